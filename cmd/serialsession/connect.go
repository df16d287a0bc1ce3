/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-serialsession/internal/tui/components"
	"github.com/allbin/go-serialsession/internal/tui/models"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <port>",
	Short: "Connect to a serial port with bidirectional communication",
	Long: `Connect to a serial port with a bidirectional terminal interface.

This command opens the specified serial port and provides an interactive terminal
with real-time bidirectional communication. Features include:
- Real-time data streaming with timestamps
- Input line for sending ASCII or hex data, with history
- Live modem signal lamps, with DTR/RTS/break toggles
- Connection status indicators

Press 'i' to type, Enter to send, Tab to switch ASCII/hex and Esc to leave
the input line.

Example usage:
  serialsession connect /dev/ttyUSB0
  serialsession connect /dev/ttyUSB0 --baud 9600 --newline
  serialsession connect /dev/ttyUSB0 --send-hex`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		rawMode, _ := cmd.Flags().GetBool("raw")
		hexOnly, _ := cmd.Flags().GetBool("hex")
		sendHex, _ := cmd.Flags().GetBool("send-hex")
		newline, _ := cmd.Flags().GetBool("newline")
		timeout, _ := cmd.Flags().GetDuration("write-timeout")

		sendMode := components.SendASCII
		if sendHex {
			sendMode = components.SendHex
		}

		err := runSessionTUI(args[0], models.Options{
			Interactive:   true,
			Display:       displayMode(noTimestamps, rawMode, hexOnly),
			SendMode:      sendMode,
			AppendNewline: newline,
			WriteTimeout:  timeout,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	connectCmd.Flags().Bool("raw", false, "Raw output mode: ASCII only, no timestamps")
	connectCmd.Flags().Bool("hex", false, "Show hex only")
	connectCmd.Flags().Bool("send-hex", false, "Start the input line in hex mode")
	connectCmd.Flags().BoolP("newline", "n", true, "Append a newline to ASCII input")
	connectCmd.Flags().Duration("write-timeout", 5*time.Second, "Timeout for each send")
}

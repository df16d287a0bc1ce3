/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/go-serialsession/internal/tui/models"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Listen for data on a serial port with real-time display",
	Long: `Listen for incoming data on a serial port with a real-time TUI display.

This command opens the specified serial port and displays incoming data in real-time
using a terminal user interface. Features include:
- Real-time data streaming with timestamps
- ASCII and hex display modes
- Live modem signal lamps, with DTR/RTS/break toggles
- Pause and resume of the read loop

Example usage:
  serialsession listen /dev/ttyUSB0
  serialsession listen /dev/ttyUSB0 --baud 9600
  serialsession listen /dev/ttyUSB0 --no-timestamps --hex`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		rawMode, _ := cmd.Flags().GetBool("raw")
		hexOnly, _ := cmd.Flags().GetBool("hex")

		err := runSessionTUI(args[0], models.Options{
			Display: displayMode(noTimestamps, rawMode, hexOnly),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	listenCmd.Flags().Bool("raw", false, "Raw output mode: ASCII only, no timestamps")
	listenCmd.Flags().Bool("hex", false, "Show hex only")
}

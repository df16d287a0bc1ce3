/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	serialsession "github.com/allbin/go-serialsession"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <port>",
	Short: "Display current modem signal states",
	Long: `Display the current state of all modem control signals.

Opens the port, waits for one signal poll and shows CTS, DSR, RI and DCD
as sampled plus the DTR, RTS and break outputs.

Examples:
  serialsession signals /dev/ttyUSB0
  serialsession signals /dev/ttyACM0

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output)
  DTR - Data Terminal Ready (output)`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		session, err := openSession(cmd.Context(), portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
			os.Exit(1)
		}
		defer session.Close()

		if err := syncSignals(cmd.Context(), session); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading modem signals: %v\n", err)
			os.Exit(1)
		}

		in, out := session.Signals(), session.OutputSignals()
		fmt.Printf("Modem Signals for %s:\n\n", portPath)
		fmt.Printf("  CTS (Clear To Send):       %s\n", formatSignalState(in.ClearToSend))
		fmt.Printf("  DSR (Data Set Ready):      %s\n", formatSignalState(in.DataSetReady))
		fmt.Printf("  RI  (Ring Indicator):      %s\n", formatSignalState(in.RingIndicator))
		fmt.Printf("  DCD (Data Carrier Detect): %s\n", formatSignalState(in.DataCarrierDetect))
		fmt.Printf("  RTS (Request To Send):     %s\n", formatSignalState(out.RequestToSend))
		fmt.Printf("  DTR (Data Terminal Ready): %s\n", formatSignalState(out.DataTerminalReady))
		fmt.Printf("  BRK (Break):               %s\n", formatSignalState(out.Break))
	},
}

func init() {
	rootCmd.AddCommand(signalsCmd)
}

// syncSignals waits for a poll, giving up after a few missed intervals.
func syncSignals(ctx context.Context, s *serialsession.Session) error {
	ctx, cancel := context.WithTimeout(ctx, 10*cfg.PollInterval+time.Second)
	defer cancel()
	return s.SyncSignals(ctx)
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func parseSignalState(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "high", "on", "true", "1":
		return true, nil
	case "low", "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (valid: high, low, on, off, true, false, 1, 0)", state)
	}
}

// newOutputCmd builds the dtr, rts and break commands, which differ only
// in the line they drive.
func newOutputCmd(name, title, long string, set func(*serialsession.Session, bool), get func(serialsession.OutputSignals) bool) *cobra.Command {
	upper := strings.ToUpper(name)
	return &cobra.Command{
		Use:   name + " <port> <state>",
		Short: fmt.Sprintf("Control %s (%s) signal", upper, title),
		Long: fmt.Sprintf(`Manually set the %s (%s) signal state.

%s

The port stays open until the signal poller has applied the change.

Examples:
  serialsession %s /dev/ttyUSB0 high
  serialsession %s /dev/ttyUSB0 off

Valid states: high, low, on, off, true, false, 1, 0`, upper, title, long, name, name),
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			portPath := args[0]

			state, err := parseSignalState(args[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			session, err := openSession(cmd.Context(), portPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
				os.Exit(1)
			}
			defer session.Close()

			set(session, state)
			if err := syncSignals(cmd.Context(), session); err != nil {
				fmt.Fprintf(os.Stderr, "Error setting %s: %v\n", upper, err)
				os.Exit(1)
			}

			fmt.Printf("%s set to %s on %s\n", upper, formatSignalState(get(session.OutputSignals())), portPath)
		},
	}
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	serialsession "github.com/allbin/go-serialsession"
)

var (
	monitorSignals  []string
	monitorDuration time.Duration
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor <port>",
	Short: "Monitor modem signal changes",
	Long: `Monitor modem control signal changes in real-time.

The signal poller samples the inputs every --poll-interval and each change
to a watched signal is printed once. Press Ctrl+C to stop.

Examples:
  serialsession monitor /dev/ttyUSB0
  serialsession monitor /dev/ttyUSB0 --signals cts,dsr
  serialsession monitor /dev/ttyUSB0 --signals dcd --duration 30s

Available signals: cts, dsr, ri, dcd`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		mask, err := parseSignalMask(monitorSignals)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing signals: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := interruptContext()
		defer cancel()
		if monitorDuration > 0 {
			ctx, cancel = context.WithTimeout(ctx, monitorDuration)
			defer cancel()
		}

		changes := make(chan signalChange, 16)
		session, err := openSession(ctx, portPath, serialsession.WithSignalHandler(
			func(in serialsession.InputSignals, changed serialsession.SignalMask) {
				if changed&mask == 0 {
					return
				}
				select {
				case changes <- signalChange{in, changed & mask}:
				default:
				}
			},
		))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
			os.Exit(1)
		}
		defer session.Close()

		fmt.Printf("Monitoring signals on %s (signals: %s)\n", portPath, mask)
		fmt.Println("Press Ctrl+C to stop")

		if err := syncSignals(ctx, session); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading initial signals: %v\n", err)
			os.Exit(1)
		}
		last := session.Signals()
		printSignalChange("Initial state", last, mask)

		for {
			select {
			case c := <-changes:
				// the first poll may report the initial state as a change
				changed := signalDiff(last, c.signals) & c.changed
				if changed == 0 {
					continue
				}
				last = c.signals
				printSignalChange("Signal change detected", c.signals, changed)
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					fmt.Printf("[%s] Monitor duration elapsed\n", time.Now().Format("15:04:05"))
				} else {
					fmt.Println("\nStopping monitor...")
				}
				return
			}
		}
	},
}

type signalChange struct {
	signals serialsession.InputSignals
	changed serialsession.SignalMask
}

func parseSignalMask(signalNames []string) (serialsession.SignalMask, error) {
	if len(signalNames) == 0 {
		return serialsession.SignalAll, nil
	}

	var mask serialsession.SignalMask
	for _, name := range signalNames {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "cts":
			mask |= serialsession.SignalCTS
		case "dsr":
			mask |= serialsession.SignalDSR
		case "ri":
			mask |= serialsession.SignalRI
		case "dcd":
			mask |= serialsession.SignalDCD
		default:
			return 0, fmt.Errorf("unknown signal: %s (valid: cts, dsr, ri, dcd)", name)
		}
	}
	return mask, nil
}

func signalDiff(a, b serialsession.InputSignals) serialsession.SignalMask {
	var m serialsession.SignalMask
	if a.ClearToSend != b.ClearToSend {
		m |= serialsession.SignalCTS
	}
	if a.DataSetReady != b.DataSetReady {
		m |= serialsession.SignalDSR
	}
	if a.RingIndicator != b.RingIndicator {
		m |= serialsession.SignalRI
	}
	if a.DataCarrierDetect != b.DataCarrierDetect {
		m |= serialsession.SignalDCD
	}
	return m
}

func printSignalChange(title string, signals serialsession.InputSignals, mask serialsession.SignalMask) {
	fmt.Printf("[%s] %s:\n", time.Now().Format("15:04:05"), title)
	if mask&serialsession.SignalCTS != 0 {
		fmt.Printf("  CTS: %s\n", formatSignalState(signals.ClearToSend))
	}
	if mask&serialsession.SignalDSR != 0 {
		fmt.Printf("  DSR: %s\n", formatSignalState(signals.DataSetReady))
	}
	if mask&serialsession.SignalRI != 0 {
		fmt.Printf("  RI:  %s\n", formatSignalState(signals.RingIndicator))
	}
	if mask&serialsession.SignalDCD != 0 {
		fmt.Printf("  DCD: %s\n", formatSignalState(signals.DataCarrierDetect))
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringSliceVarP(&monitorSignals, "signals", "s", []string{"cts", "dsr", "ri", "dcd"},
		"Signals to monitor (comma-separated: cts,dsr,ri,dcd)")
	monitorCmd.Flags().DurationVarP(&monitorDuration, "duration", "d", 0,
		"Stop monitoring after this long (0 = until Ctrl+C)")
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/atomic"
)

// captureStopTimeout bounds the wait for the read loop after Ctrl+C.
const captureStopTimeout = 2 * time.Second

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

Reads data from the specified serial port and writes it directly to the
output file. Runs until interrupted (Ctrl+C) or the device goes away.

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data.

Example usage:
  serialsession capture /dev/ttyUSB0 data.log
  serialsession capture /dev/ttyUSB0 output.txt --baud 9600
  serialsession capture /dev/ttyUSB0 capture.log --console
  serialsession capture /dev/ttyUSB0 capture.log --buffer 4096 -c`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		showConsole, _ := cmd.Flags().GetBool("console")

		if err := runCapture(args[0], args[1], showConsole); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
}

func runCapture(portPath, outputPath string, showConsole bool) error {
	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	ctx, cancel := interruptContext()
	defer cancel()

	session, err := openSession(ctx, portPath)
	if err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	defer session.Close()

	var (
		bytesWritten atomic.Int64
		writeErr     atomic.Error
	)
	onData := func(chunk []byte) {
		if _, err := file.Write(chunk); err != nil {
			if writeErr.Load() == nil {
				writeErr.Store(err)
			}
			cancel()
			return
		}
		bytesWritten.Add(int64(len(chunk)))
		if showConsole {
			os.Stdout.Write(chunk)
		}
	}

	loop, err := session.StartReading(ctx, onData)
	if err != nil {
		return fmt.Errorf("failed to start reading: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Capturing data from %s to %s\n", portPath, outputPath)
	if showConsole {
		fmt.Fprintf(os.Stderr, "Console display enabled\n")
	}
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	startTime := time.Now()
	select {
	case <-loop.Done():
	case <-ctx.Done():
		if writeErr.Load() == nil {
			fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, shutting down...\n")
		}
		_ = session.StopReading()
		select {
		case <-loop.Done():
		case <-time.After(captureStopTimeout):
		}
	}

	fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n",
		bytesWritten.Load(), time.Since(startTime).Round(time.Millisecond))

	if err := writeErr.Load(); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	if err := loop.Err(); err != nil {
		return fmt.Errorf("read error: %w", err)
	}
	return nil
}

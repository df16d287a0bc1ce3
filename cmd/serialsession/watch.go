/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	serialsession "github.com/allbin/go-serialsession"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for serial devices being attached or detached",
	Long: `Print a line every time a serial device appears or disappears.

The termios backend follows /dev; the bugst backend rescans the port list
once a second. Press Ctrl+C to stop.

Examples:
  serialsession watch
  serialsession watch --backend bugst`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := interruptContext()
		defer cancel()

		inv := newInventory(logger)
		if _, err := inv.registry.Enumerate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}
		inv.registry.OnAttach(func(h serialsession.Handle) {
			printDeviceEvent(serialsession.DeviceAttached, h)
		})
		inv.registry.OnDetach(func(h serialsession.Handle) {
			printDeviceEvent(serialsession.DeviceDetached, h)
		})

		fmt.Printf("Watching for serial devices (%d known)\n", len(inv.registry.Known()))
		fmt.Println("Press Ctrl+C to stop")

		bridge := serialsession.NewEventBridge(inv.host, inv.registry, logger)
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "Error watching devices: %v\n", err)
			os.Exit(1)
		}
	},
}

func printDeviceEvent(kind serialsession.EventKind, h serialsession.Handle) {
	fmt.Printf("[%s] %-8s %s\n", time.Now().Format("15:04:05"), kind, h)
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

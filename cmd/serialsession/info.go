/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	serialsession "github.com/allbin/go-serialsession"
	"github.com/allbin/go-serialsession/internal/ttydev"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  serialsession info /dev/ttyUSB0
  serialsession info /dev/ttyACM0

For USB devices, this displays vendor/product IDs and serial numbers as
reported by the backend. On Linux the interface, bus and device numbers are
added from sysfs.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]
		inv := newInventory(logger)

		info, err := inv.session.PortInfo(cmd.Context(), serialsession.Handle(portPath))
		isUSB := err == nil
		if err != nil && !errors.Is(err, serialsession.ErrUSBInfoNotAvailable) {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		// sysfs details are optional; other platforms have no /sys.
		dev, _ := ttydev.Default.Describe(portPath)

		fmt.Printf("Port Information: %s\n\n", portPath)
		if dev != nil {
			fmt.Printf("  Name:        %s\n", dev.Name)
			fmt.Printf("  Description: %s\n", dev.Description)
		}
		fmt.Printf("  Type:        %s\n", getPortType(filepath.Base(portPath)))

		if !isUSB {
			return
		}

		fmt.Println("\nUSB Device Information:")
		fmt.Printf("  USB ID:       %s\n", info.USBID)
		if info.SerialNumber != "" {
			fmt.Printf("  Serial:       %s\n", info.SerialNumber)
		}
		if info.Manufacturer != "" {
			fmt.Printf("  Manufacturer: %s\n", info.Manufacturer)
		}
		if info.Product != "" {
			fmt.Printf("  Product:      %s\n", info.Product)
		}
		if dev == nil {
			return
		}
		if dev.InterfaceNumber != "" {
			fmt.Printf("  Interface:    %s\n", dev.InterfaceNumber)
		}
		if dev.BusNumber != "" {
			fmt.Printf("  Bus:          %s\n", dev.BusNumber)
		}
		if dev.DeviceNumber != "" {
			fmt.Printf("  Device:       %s\n", dev.DeviceNumber)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

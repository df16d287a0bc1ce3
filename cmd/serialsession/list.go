/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	serialsession "github.com/allbin/go-serialsession"
	"github.com/allbin/go-serialsession/internal/ttydev"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial ports this process may use.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.

With --request a port matching a USB vendor:product id is looked up and
printed on its own.

Examples:
  serialsession list
  serialsession list --table --filter usb
  serialsession list --request 1a86:7523`,
	Run: func(cmd *cobra.Command, args []string) {
		inv := newInventory(logger)
		ctx := cmd.Context()

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		request, _ := cmd.Flags().GetString("request")

		if request != "" {
			filter, err := parseUSBFilter(request)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			h, err := inv.registry.RequestAuthorization(ctx, filter)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error requesting port: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(h)
			return
		}

		ports, err := inv.registry.Enumerate(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filtered := filterPorts(ports, filterType)
		if len(filtered) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			renderTable(ctx, inv.session, filtered)
		} else {
			renderSimple(filtered)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("filter", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	listCmd.Flags().String("request", "", "Find a port by USB id (vvvv:pppp)")
}

// parseUSBFilter parses "vvvv:pppp" or "vvvv" into a Filter.
func parseUSBFilter(s string) (serialsession.Filter, error) {
	vid, pid, hasPID := strings.Cut(s, ":")
	var filter serialsession.Filter
	var err error
	if filter.VendorID, err = ttydev.ParseUSBID(vid); err != nil || filter.VendorID == 0 {
		return filter, fmt.Errorf("invalid vendor id: %q", vid)
	}
	if hasPID {
		if filter.ProductID, err = ttydev.ParseUSBID(pid); err != nil || filter.ProductID == 0 {
			return filter, fmt.Errorf("invalid product id: %q", pid)
		}
	}
	return filter, nil
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []serialsession.Handle, filterType string) []serialsession.Handle {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []serialsession.Handle
	for _, port := range ports {
		name := strings.ToLower(filepath.Base(string(port)))
		switch strings.ToLower(filterType) {
		case "usb":
			if strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, port)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, port)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, port)
			}
		}
	}
	return filtered
}

const (
	columnPort   = "port"
	columnType   = "type"
	columnUSBID  = "usbid"
	columnSerial = "serial"
	columnDesc   = "desc"
)

// renderTable renders the port list in a styled static table format
func renderTable(ctx context.Context, session *serialsession.Session, ports []serialsession.Handle) {
	fmt.Printf("Found %d serial port(s):\n\n", len(ports))

	rows := make([]table.Row, 0, len(ports))
	for _, port := range ports {
		rows = append(rows, table.NewRow(portRow(ctx, session, port)))
	}

	t := table.New([]table.Column{
		table.NewColumn(columnPort, "Port", 16),
		table.NewColumn(columnType, "Type", 16),
		table.NewColumn(columnUSBID, "USB ID", 11),
		table.NewColumn(columnSerial, "Serial", 16),
		table.NewColumn(columnDesc, "Description", 30),
	}).WithRows(rows).BorderRounded()

	fmt.Println(t.View())
}

func portRow(ctx context.Context, session *serialsession.Session, port serialsession.Handle) table.RowData {
	name := filepath.Base(string(port))
	row := table.RowData{
		columnPort:   string(port),
		columnType:   getPortType(name),
		columnUSBID:  "-",
		columnSerial: "-",
		columnDesc:   "",
	}

	info, err := session.PortInfo(ctx, port)
	switch {
	case err == nil:
		row[columnUSBID] = info.USBID
		if info.SerialNumber != "" {
			row[columnSerial] = info.SerialNumber
		}
		row[columnDesc] = info.Product
	case !errors.Is(err, serialsession.ErrUSBInfoNotAvailable):
		row[columnDesc] = fmt.Sprintf("Error: %v", err)
	}

	if row[columnDesc] == "" {
		if dev, err := ttydev.Default.Describe(string(port)); err == nil {
			row[columnDesc] = dev.Description
		}
	}
	return row
}

// renderSimple renders the port list in simple text format
func renderSimple(ports []serialsession.Handle) {
	for _, port := range ports {
		fmt.Println(port)
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}

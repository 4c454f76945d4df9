// cmd/devterm/print.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"device-terminal/internal/model"
)

func printDevices(cmd *cobra.Command, devices []*model.DiscoveredDevice) {
	out := cmd.OutOrStdout()
	if len(devices) == 0 {
		fmt.Fprintln(out, "No devices found.")
		return
	}

	for _, d := range devices {
		location := d.Path
		if location == "" {
			location = fmt.Sprintf("bus %d addr %d", d.Bus, d.Address)
		}
		fmt.Fprintf(out, "%-7s %-24s %s:%s  %s\n",
			d.Transport, location, d.VendorID, d.ProductID, d.Description)
		if d.SerialNumber != "" {
			fmt.Fprintf(out, "        serial: %s\n", d.SerialNumber)
		}
	}
}

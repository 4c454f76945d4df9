// cmd/devterm/list.go
package main

import (
	"github.com/spf13/cobra"

	"device-terminal/internal/discovery"
	"device-terminal/internal/utils"
)

var listType string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List serial ports and USB devices of the configured vendor",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer utils.CloseLogger(logger)

		scanners := discovery.NewDefaultScannerManager(cfg, logger)

		ctx := cmd.Context()
		if listType == "all" {
			devices, err := scanners.ScanAll(ctx)
			if err != nil {
				return err
			}
			printDevices(cmd, devices)
			return nil
		}

		devices, err := scanners.ScanByType(ctx, listType)
		if err != nil {
			return err
		}
		printDevices(cmd, devices)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listType, "type", "all", "scanner: all, serial or usb")
	rootCmd.AddCommand(listCmd)
}

// cmd/devterm/root.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"device-terminal/internal/config"
	"device-terminal/internal/utils"
)

// Version of devterm.
const Version = "1.0.0"

var (
	configPath string
	transport  string
	portName   string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:     "devterm",
	Short:   "Serial and USB terminal for a microcontroller",
	Version: Version,
	Long: `devterm opens the serial port or USB device of a microcontroller, sends
each line typed on stdin followed by CR LF and prints what the device answers.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&transport, "transport", "t", "", "transport variant: serial, usb or usb-cdc")
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "serial port (default: first matching port)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "diagnostic log level")
}

// loadConfig applies the command line flags over the config file and env
func loadConfig() (*config.Config, error) {
	overrides := map[string]interface{}{}
	if transport != "" {
		overrides["terminal.transport"] = transport
	}
	if portName != "" {
		overrides["serial.port"] = portName
	}
	if logLevel != "" {
		overrides["logging.level"] = logLevel
	}

	cfg, err := config.LoadWithOverrides(configPath, overrides)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// diagnostics never mix with device output
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cmd/devterm/connect.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"device-terminal/internal/console"
	"device-terminal/internal/discovery"
	"device-terminal/internal/terminal"
	"device-terminal/internal/utils"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open the device and send stdin lines to it",
	Long: `Opens the configured device and starts an interactive session. Every line
typed is sent followed by CR LF. Lines starting with ":" are console commands:
:connect, :disconnect, :help and :quit.`,
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

		opts, err := terminal.OptionsFromConfig(cfg)
		if err != nil {
			return err
		}

		log := terminal.NewLog()
		controller := terminal.NewController(discovery.NewSelector(cfg, logger), opts, log, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := console.New(controller, log, cmd.OutOrStdout(), logger)

		// A failed connect is printed from the log; :connect retries.
		if err := controller.Connect(ctx); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "type :connect to retry or :quit to exit")
		}

		return c.Run(ctx, cmd.InOrStdin())
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

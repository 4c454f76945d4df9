// cmd/devterm/migrate.go
package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"device-terminal/internal/database"
	"device-terminal/internal/utils"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the transcript archive schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *database.Migrator) error {
			return m.Up()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (all when steps is omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 0
		if len(args) == 1 {
			n, err := parseVersionArg(args[0])
			if err != nil {
				return err
			}
			steps = n
		}
		return withMigrator(func(m *database.Migrator) error {
			return m.Down(steps)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *database.Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			cmd.Printf("version %d", version)
			if dirty {
				cmd.Print(" (dirty)")
			}
			cmd.Println()
			return nil
		})
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Mark a version as applied after a failed migration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := parseVersionArg(args[0])
		if err != nil {
			return err
		}
		return withMigrator(func(m *database.Migrator) error {
			return m.Force(version)
		})
	},
}

func parseVersionArg(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("expected a non-negative number, got %q", arg)
	}
	return n, nil
}

// withMigrator connects to the configured database for the duration of fn
func withMigrator(fn func(m *database.Migrator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer utils.CloseLogger(logger)

	if !cfg.Database.Enabled {
		return fmt.Errorf("transcript archive is disabled (database.enabled)")
	}

	db, err := database.NewConnection(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			utils.LogError(logger, "Database close error", err)
		}
	}()

	return fn(database.NewMigrator(db, logger.With(zap.String("command", "migrate")), &cfg.Database))
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd, migrateForceCmd)
	rootCmd.AddCommand(migrateCmd)
}

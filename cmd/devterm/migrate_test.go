package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSubcommands(t *testing.T) {
	for _, name := range []string{"up", "down", "version", "force"} {
		cmd, _, err := rootCmd.Find([]string{"migrate", name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	assert.Error(t, migrateForceCmd.Args(migrateForceCmd, nil), "force needs a version")
	assert.NoError(t, migrateDownCmd.Args(migrateDownCmd, nil))
	assert.Error(t, migrateDownCmd.Args(migrateDownCmd, []string{"1", "2"}))
}

func TestParseVersionArg(t *testing.T) {
	n, err := parseVersionArg("3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = parseVersionArg("-1")
	assert.Error(t, err)
	_, err = parseVersionArg("latest")
	assert.Error(t, err)
}

func TestMigrateRequiresEnabledArchive(t *testing.T) {
	t.Setenv("DEVICE_TERMINAL_DATABASE_ENABLED", "false")
	err := withMigrator(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

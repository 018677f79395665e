package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaynrix/trustedvalley-backend/internal/infra/config"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()

	for _, path := range [][]string{
		{"run"},
		{"schema", "up"},
		{"repair-admin-roles"},
	} {
		cmd, rest, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Empty(t, rest, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestRunCommandFlags(t *testing.T) {
	run, _, err := newRootCommand().Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"run-id", "dump-dir", "apply-schema"} {
		assert.NotNil(t, run.Flags().Lookup(name), name)
	}
	assert.Equal(t, "false", run.Flags().Lookup("apply-schema").DefValue)
}

func TestLoadConfigRejectsInvalidOverride(t *testing.T) {
	t.Setenv("TV_LEGACY_DRIVER", "firestore")

	_, err := loadConfig(func(cfg *config.AppConfig) {
		cfg.Legacy.Driver = config.LegacyDriverDump
		cfg.Legacy.DumpDir = ""
	})
	require.Error(t, err)
}

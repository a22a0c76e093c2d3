package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/insightql/internal/cli/config"
)

func TestNewRootCmd_Flags(t *testing.T) {
	cmd := NewRootCmd()

	for _, flag := range []string{"config", "state", "driver", "dsn", "log-level", "verbose", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"version", "add", "remove", "list", "query", "insights", "serve", "completion"}, names)
}

func TestNewLogger(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetErr(&bytes.Buffer{})

	logger, err := newLogger(cmd, &config.Config{LogLevel: "error"})
	require.NoError(t, err)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))

	logger, err = newLogger(cmd, &config.Config{LogLevel: "error", Verbose: true})
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	_, err = newLogger(cmd, &config.Config{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestPersistentPreRun_StoresConfig(t *testing.T) {
	t.Cleanup(config.ResetConfig)
	statePath := filepath.Join(t.TempDir(), "state.db")

	var got *config.Config
	cmd := NewRootCmd()
	cmd.AddCommand(&cobra.Command{
		Use: "probe",
		RunE: func(c *cobra.Command, _ []string) error {
			got = GetConfig(c.Context())
			assert.NotNil(t, config.GetLogger(c.Context()))
			assert.NotNil(t, GetRenderer(c.Context()))
			return nil
		},
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--state", statePath, "--log-level", "debug", "probe"})
	require.NoError(t, cmd.Execute())

	require.NotNil(t, got)
	assert.Equal(t, statePath, got.StatePath)
	assert.Equal(t, "debug", got.LogLevel)
}

func TestGetConfig_Default(t *testing.T) {
	cfg := GetConfig(context.Background())
	assert.Equal(t, config.DefaultStateFile, cfg.StatePath)
}

func TestCompletionCommand(t *testing.T) {
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"completion", "bash"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "insightql")
}

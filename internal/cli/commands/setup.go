package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/insightql/internal/cli/config"
	"github.com/leapstack-labs/insightql/internal/cli/output"
	"github.com/leapstack-labs/insightql/internal/engine"
	"github.com/leapstack-labs/insightql/internal/ingest"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	eng, err := createEngine(cmd.Context(), cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Engine = eng

	cleanup := func() {
		_ = eng.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need the dataset store.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ParseMode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, or the defaults when none was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

func createEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	store := cfg.GetStore()
	ing := cfg.GetIngest()

	ingestCfg := ingest.Config{
		Workers: ing.Workers,
		Logger:  logger,
	}
	if ing.GeolocationURL != "" {
		ingestCfg.Geolocator = ingest.NewHTTPGeolocator(ing.GeolocationURL, ing.GeolocationTimeout)
	}

	return engine.New(ctx, engine.Config{
		Driver:      store.Driver,
		StatePath:   cfg.StatePath,
		DSN:         store.DSN,
		BusyTimeout: store.BusyTimeout,
		Ingest:      ingestCfg,
		Logger:      logger,
	})
}

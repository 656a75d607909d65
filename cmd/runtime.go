package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitebuild/internal/build"
	"github.com/conneroisu/sitebuild/internal/config"
	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
	"github.com/conneroisu/sitebuild/internal/logging"
	"github.com/conneroisu/sitebuild/internal/metrics"
	"github.com/conneroisu/sitebuild/internal/mode"
)

// app is everything a command needs after configuration is loaded.
type app struct {
	cfg     *config.Config
	root    string
	logger  logging.Logger
	metrics *metrics.Recorder
	env     build.Env
}

// loadApp loads configuration and builds the environment for mode m.
func loadApp(cmd *cobra.Command, m mode.Mode) (*app, error) {
	if configReadErr != nil {
		return nil, siteerrors.NewEnhancedError(
			"Failed to read configuration",
			siteerrors.NewConfigError("failed to read "+configPath(), configReadErr),
			siteerrors.ConfigurationError(configReadErr.Error(), configPath()),
		)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, siteerrors.NewEnhancedError(
			"Invalid configuration",
			err,
			siteerrors.ConfigurationError(err.Error(), configPath()),
		)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, siteerrors.NewConfigError("invalid log level", err)
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})

	for _, w := range cfg.Warnings() {
		logger.Warn(commandContext(cmd), nil, "Configuration warning",
			"field", w.Field, "value", w.Value, "message", w.Message)
	}

	if !m.Known() {
		logger.Warn(commandContext(cmd), nil, "Unknown mode, building with production settings", "mode", m.String())
	}

	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	rec := metrics.NewDefault()
	return &app{
		cfg:     cfg,
		root:    root,
		logger:  logger,
		metrics: rec,
		env:     build.NewEnv(root, cfg, m, logger, rec),
	}, nil
}

// modeFlag returns the --mode value, or fallback when it is unset.
func modeFlag(cmd *cobra.Command, fallback mode.Mode) mode.Mode {
	if f := cmd.Flags().Lookup("mode"); f != nil && f.Changed {
		return mode.Select(f.Value.String())
	}
	return fallback
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

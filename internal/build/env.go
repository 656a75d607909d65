// Package build implements the tasks that turn a source tree into the
// output directory: clean, static and image copies, templates, styles and
// scripts. Every task receives an Env and touches only its own outputs, so
// the tasks after clean can run concurrently.
package build

import (
	"context"
	"errors"

	"github.com/conneroisu/sitebuild/internal/config"
	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
	"github.com/conneroisu/sitebuild/internal/layout"
	"github.com/conneroisu/sitebuild/internal/logging"
	"github.com/conneroisu/sitebuild/internal/metrics"
	"github.com/conneroisu/sitebuild/internal/mode"
	"github.com/conneroisu/sitebuild/internal/pipeline"
)

// Task names.
const (
	TaskClean     = "clean"
	TaskTemplates = "templates"
	TaskStyles    = "styles"
	TaskScripts   = "scripts"
	TaskImages    = "images"
	TaskStatic    = "static"
)

// Env is the configuration every task runs with. It is built once per
// invocation and never modified.
type Env struct {
	Mode    mode.Mode
	Layout  layout.Layout
	Styles  StyleOptions
	Scripts ScriptOptions
	Logger  logging.Logger
	Metrics *metrics.Recorder
}

// StyleOptions controls the CSS post-processing step.
type StyleOptions struct {
	Targets []string
}

// ScriptOptions controls the bundler.
type ScriptOptions struct {
	Target string
	Format string
}

// NewEnv derives an Env from loaded configuration. root is the absolute
// project directory.
func NewEnv(root string, cfg *config.Config, m mode.Mode, logger logging.Logger, rec *metrics.Recorder) Env {
	return Env{
		Mode:    m,
		Layout:  layout.New(root, cfg.Source.Dir, cfg.Output.Dir, cfg.Source.Entry, cfg.Metadata.File),
		Styles:  StyleOptions{Targets: cfg.Styles.Targets},
		Scripts: ScriptOptions{Target: cfg.Scripts.Target, Format: cfg.Scripts.Format},
		Logger:  logger,
		Metrics: rec,
	}
}

type taskFunc func(ctx context.Context, env Env) error

var tasks = map[string]taskFunc{
	TaskClean:     Clean,
	TaskTemplates: Templates,
	TaskStyles:    Styles,
	TaskScripts:   Scripts,
	TaskImages:    CopyImages,
	TaskStatic:    CopyStatic,
}

// Task returns the named task bound to env. The returned function carries
// the mode in its context, times the run and tags failures with the task
// name.
func (env Env) Task(name string) (pipeline.TaskFunc, bool) {
	fn, ok := tasks[name]
	if !ok {
		return nil, false
	}

	return func(ctx context.Context) error {
		ctx = mode.WithMode(ctx, env.Mode)
		logger := env.Logger.WithComponent(name)
		op := logger.StartOperation(name)

		err := fn(ctx, env.withLogger(logger))
		if err != nil {
			op.EndWithError(ctx, err)
			return tagTask(err, name)
		}
		op.End(ctx)
		return nil
	}, true
}

func (env Env) withLogger(l logging.Logger) Env {
	env.Logger = l
	return env
}

func tagTask(err error, name string) error {
	var se *siteerrors.SiteError
	if errors.As(err, &se) {
		if se.Task == "" {
			se.WithTask(name)
		}
		return err
	}
	return (&siteerrors.SiteError{
		Type:    siteerrors.ErrorTypeInternal,
		Message: "task failed",
		Cause:   err,
	}).WithTask(name)
}

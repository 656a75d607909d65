package watcher

import (
	"context"
	"errors"
	"sync"

	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
	"github.com/conneroisu/sitebuild/internal/fileset"
	"github.com/conneroisu/sitebuild/internal/livereload"
	"github.com/conneroisu/sitebuild/internal/logging"
	"github.com/conneroisu/sitebuild/internal/metrics"
	"github.com/conneroisu/sitebuild/internal/pipeline"
)

// Group binds a set of watched patterns to the task that rebuilds their
// outputs and the reload browsers get afterwards.
type Group struct {
	Name     string
	Patterns []string // root-relative globs
	Rebuild  pipeline.TaskFunc
	Reload   livereload.MessageType // MessageReload or MessageCSS
	Path     string                 // URL path sent with the reload
}

// Broadcaster delivers live-reload messages.
type Broadcaster interface {
	Broadcast(msg livereload.Message) bool
}

// Dispatcher runs the groups matched by a change batch.
type Dispatcher struct {
	groups  []Group
	locks   map[string]*sync.Mutex
	hub     Broadcaster
	metrics *metrics.Recorder
	logger  logging.Logger
}

// NewDispatcher creates a dispatcher over groups. hub may be nil.
func NewDispatcher(groups []Group, hub Broadcaster, rec *metrics.Recorder, logger logging.Logger) *Dispatcher {
	locks := make(map[string]*sync.Mutex, len(groups))
	for _, g := range groups {
		locks[g.Name] = &sync.Mutex{}
	}
	return &Dispatcher{
		groups:  groups,
		locks:   locks,
		hub:     hub,
		metrics: rec,
		logger:  logger.WithComponent("dispatch"),
	}
}

// Match returns the groups with at least one pattern matching an event, in
// declaration order.
func (d *Dispatcher) Match(events []ChangeEvent) []Group {
	var matched []Group
	for _, g := range d.groups {
		for _, ev := range events {
			if fileset.Matches(ev.Rel, g.Patterns...) {
				matched = append(matched, g)
				break
			}
		}
	}
	return matched
}

// Dispatch rebuilds every group matched by events once. Different groups
// run concurrently; runs of the same group never overlap. Failures are
// logged and broadcast as an error overlay, and returned joined.
func (d *Dispatcher) Dispatch(ctx context.Context, events []ChangeEvent) error {
	matched := d.Match(events)
	if len(matched) == 0 {
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, g := range matched {
		wg.Add(1)
		go func(g Group) {
			defer wg.Done()
			if err := d.run(ctx, g); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(g)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (d *Dispatcher) run(ctx context.Context, g Group) error {
	lock := d.locks[g.Name]
	lock.Lock()
	defer lock.Unlock()

	logger := d.logger.With("group", g.Name)
	logger.Info(ctx, "Rebuilding")
	err := g.Rebuild(ctx)
	d.metrics.IncRebuild(g.Name, err == nil)

	if err != nil {
		logger.Error(ctx, err, "Rebuild failed")
		d.notifyError(ctx, g.Name, err)
		return err
	}

	if g.Reload == livereload.MessageCSS {
		d.broadcast(livereload.CSS(g.Path))
	} else {
		d.broadcast(livereload.Reload(g.Path))
	}
	return nil
}

// notifyError titles the overlay with the failing task when the error
// carries one.
func (d *Dispatcher) notifyError(ctx context.Context, group string, err error) {
	title := group
	if task := siteerrors.TaskOf(err); task != "" {
		title = task
	}
	msg, renderErr := livereload.ErrorMessage(ctx, title, err)
	if renderErr != nil {
		d.logger.Warn(ctx, renderErr, "Failed to render error overlay", "group", group)
		return
	}
	d.broadcast(msg)
}

func (d *Dispatcher) broadcast(msg livereload.Message) {
	if d.hub == nil {
		return
	}
	d.hub.Broadcast(msg)
}

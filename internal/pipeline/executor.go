package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conneroisu/sitebuild/internal/logging"
)

// State is the final state of a task in one run.
type State int

const (
	Pending State = iota
	Succeeded
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result records how one task ended.
type Result struct {
	Name     string
	State    State
	Err      error
	Duration time.Duration
}

// Report lists the results of a run in topological order.
type Report struct {
	Results  []Result
	Duration time.Duration
}

// Result returns the result for name.
func (r *Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Count returns how many tasks ended in state s.
func (r *Report) Count(s State) int {
	n := 0
	for _, res := range r.Results {
		if res.State == s {
			n++
		}
	}
	return n
}

// Executor runs a Graph.
type Executor struct {
	graph  *Graph
	logger logging.Logger

	// OnFinish, when set, is called from the scheduling goroutine after
	// each task ends, skipped tasks included.
	OnFinish func(Result)
}

// NewExecutor creates an executor for g.
func NewExecutor(g *Graph, logger logging.Logger) *Executor {
	return &Executor{graph: g, logger: logger.WithComponent("pipeline")}
}

type completion struct {
	node     *node
	err      error
	duration time.Duration
}

// Run executes every task of the graph. Tasks whose dependencies have all
// succeeded start concurrently. On the first failure the context passed to
// running tasks is canceled, no further task is started, and Run waits for
// the tasks already running before it returns.
//
// The returned error names every task that failed on its own and wraps the
// first such failure. Tasks skipped because of it are not named.
func (e *Executor) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	nodes := e.graph.nodes
	results := make([]Result, len(nodes))
	remaining := make([]int, len(nodes))
	for _, n := range nodes {
		results[n.index] = Result{Name: n.name, State: Pending}
		remaining[n.index] = len(n.deps)
	}

	done := make(chan completion)
	running := 0
	finished := 0
	var failedNames []string
	var rootCause error

	launch := func(n *node) {
		running++
		e.logger.Debug(runCtx, "Starting task", "task", n.name)
		go func() {
			t := time.Now()
			err := n.run(runCtx)
			done <- completion{node: n, err: err, duration: time.Since(t)}
		}()
	}

	finish := func(res Result) {
		results[e.graph.byName[res.Name].index] = res
		finished++
		if e.OnFinish != nil {
			e.OnFinish(res)
		}
	}

	// skipPending marks every task that has not started as skipped.
	skipPending := func(cause error) {
		for _, n := range nodes {
			if results[n.index].State != Pending || remaining[n.index] < 0 {
				continue
			}
			remaining[n.index] = -1
			e.logger.Warn(runCtx, nil, "Skipping task", "task", n.name)
			finish(Result{Name: n.name, State: Skipped, Err: cause})
		}
	}

	if err := ctx.Err(); err != nil {
		skipPending(fmt.Errorf("%w: %w", ErrSkipped, err))
		return &Report{Results: e.ordered(results), Duration: time.Since(start)}, err
	}

	for _, n := range nodes {
		if remaining[n.index] == 0 {
			remaining[n.index] = -1
			launch(n)
		}
	}

	for running > 0 {
		c := <-done
		running--

		if c.err != nil {
			e.logger.Error(runCtx, c.err, "Task failed", "task", c.node.name, "duration", c.duration.String())
			finish(Result{Name: c.node.name, State: Failed, Err: c.err, Duration: c.duration})

			if !errors.Is(c.err, ErrSkipped) && !errors.Is(c.err, context.Canceled) {
				failedNames = append(failedNames, c.node.name)
				if rootCause == nil {
					rootCause = c.err
				}
			}

			if runCtx.Err() == nil {
				cancel()
				skipPending(fmt.Errorf("%w: upstream failure of %q", ErrSkipped, c.node.name))
			}
			continue
		}

		e.logger.Debug(runCtx, "Task completed", "task", c.node.name, "duration", c.duration.String())
		finish(Result{Name: c.node.name, State: Succeeded, Duration: c.duration})

		if runCtx.Err() != nil {
			continue
		}
		for _, d := range c.node.dependents {
			remaining[d.index]--
			if remaining[d.index] == 0 {
				remaining[d.index] = -1
				launch(d)
			}
		}
	}

	// A parent cancellation that arrived between tasks leaves the rest pending.
	if finished < len(nodes) {
		skipPending(fmt.Errorf("%w: %w", ErrSkipped, context.Cause(runCtx)))
	}

	report := &Report{Results: e.ordered(results), Duration: time.Since(start)}

	if rootCause != nil {
		return report, fmt.Errorf("execution failed for %s: %w", strings.Join(failedNames, ", "), rootCause)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (e *Executor) ordered(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, name := range e.graph.order {
		out = append(out, results[e.graph.byName[name].index])
	}
	return out
}

package build

import (
	"context"
	"fmt"

	"github.com/conneroisu/sitebuild/internal/metrics"
	"github.com/conneroisu/sitebuild/internal/pipeline"
)

// parallelTasks run after clean and in any order relative to each other.
var parallelTasks = []string{TaskTemplates, TaskStyles, TaskScripts, TaskImages, TaskStatic}

// NewGraph returns the full build: clean, then templates, styles,
// scripts, images and static concurrently.
func NewGraph(env Env) (*pipeline.Graph, error) {
	clean, _ := env.Task(TaskClean)
	graphTasks := []pipeline.Task{{Name: TaskClean, Run: clean}}

	for _, name := range parallelTasks {
		run, ok := env.Task(name)
		if !ok {
			return nil, fmt.Errorf("unknown build task %q", name)
		}
		graphTasks = append(graphTasks, pipeline.Task{Name: name, Deps: []string{TaskClean}, Run: run})
	}

	return pipeline.NewGraph(graphTasks...)
}

// Run performs one full build and records its metrics.
func Run(ctx context.Context, env Env) (*pipeline.Report, error) {
	graph, err := NewGraph(env)
	if err != nil {
		return nil, err
	}

	exec := pipeline.NewExecutor(graph, env.Logger)
	exec.OnFinish = func(r pipeline.Result) {
		env.Metrics.ObserveTask(r.Name, resultLabel(r.State), r.Duration)
	}

	env.Logger.Info(ctx, "Building site", "mode", env.Mode.String(), "output", env.Layout.Output)
	report, err := exec.Run(ctx)
	env.Metrics.ObserveBuild(report.Duration, err == nil)
	return report, err
}

func resultLabel(s pipeline.State) string {
	switch s {
	case pipeline.Succeeded:
		return metrics.ResultSuccess
	case pipeline.Skipped:
		return metrics.ResultSkipped
	default:
		return metrics.ResultFailed
	}
}

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func TestNewGraphValidation(t *testing.T) {
	tests := []struct {
		name    string
		tasks   []Task
		kind    error
		message string
	}{
		{
			name:    "no tasks",
			tasks:   nil,
			kind:    ErrInvalidGraph,
			message: "no tasks",
		},
		{
			name:    "empty name",
			tasks:   []Task{{Name: "", Run: noop}},
			kind:    ErrInvalidGraph,
			message: "task name is required",
		},
		{
			name:    "duplicate name",
			tasks:   []Task{{Name: "clean", Run: noop}, {Name: "clean", Run: noop}},
			kind:    ErrInvalidGraph,
			message: `duplicate task name: "clean"`,
		},
		{
			name:    "missing run",
			tasks:   []Task{{Name: "clean"}},
			kind:    ErrInvalidGraph,
			message: "has no run function",
		},
		{
			name:    "unknown dependency",
			tasks:   []Task{{Name: "styles", Deps: []string{"clean"}, Run: noop}},
			kind:    ErrInvalidGraph,
			message: `depends on unknown task "clean"`,
		},
		{
			name:    "self dependency",
			tasks:   []Task{{Name: "styles", Deps: []string{"styles"}, Run: noop}},
			kind:    ErrInvalidGraph,
			message: "self-dependency",
		},
		{
			name: "duplicate dependency",
			tasks: []Task{
				{Name: "clean", Run: noop},
				{Name: "styles", Deps: []string{"clean", "clean"}, Run: noop},
			},
			kind:    ErrInvalidGraph,
			message: "duplicate dependency",
		},
		{
			name: "cycle",
			tasks: []Task{
				{Name: "a", Deps: []string{"c"}, Run: noop},
				{Name: "b", Deps: []string{"a"}, Run: noop},
				{Name: "c", Deps: []string{"b"}, Run: noop},
			},
			kind:    ErrCycleFound,
			message: "cycle: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGraph(tt.tasks...)
			require.Error(t, err)
			assert.Nil(t, g)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)

			var ge *GraphError
			assert.True(t, errors.As(err, &ge))
		})
	}
}

func TestCyclePathIsClosed(t *testing.T) {
	_, err := NewGraph(
		Task{Name: "root", Run: noop},
		Task{Name: "a", Deps: []string{"root", "b"}, Run: noop},
		Task{Name: "b", Deps: []string{"a"}, Run: noop},
	)
	require.Error(t, err)

	var ge *GraphError
	require.True(t, errors.As(err, &ge))
	assert.Contains(t, []string{"cycle: a -> b -> a", "cycle: b -> a -> b"}, ge.Msg)
}

func TestTopologicalOrder(t *testing.T) {
	g, err := NewGraph(
		Task{Name: "templates", Deps: []string{"clean"}, Run: noop},
		Task{Name: "styles", Deps: []string{"clean"}, Run: noop},
		Task{Name: "clean", Run: noop},
		Task{Name: "report", Deps: []string{"templates", "styles"}, Run: noop},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"clean", "templates", "styles", "report"}, g.TopologicalOrder())
	assert.Equal(t, 4, g.Len())
	assert.True(t, g.Has("styles"))
	assert.False(t, g.Has("scripts"))
	assert.Equal(t, []string{"templates", "styles"}, g.Deps("report"))
	assert.Nil(t, g.Deps("missing"))

	order := g.TopologicalOrder()
	order[0] = "mutated"
	assert.Equal(t, "clean", g.TopologicalOrder()[0])
}

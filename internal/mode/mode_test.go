package mode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectFlags(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		known      bool
		pretty     bool
		sourceMaps bool
		minify     bool
	}{
		{name: "development", input: "development", known: true, pretty: true, sourceMaps: true, minify: false},
		{name: "production", input: "production", known: true, pretty: false, sourceMaps: false, minify: true},
		{name: "unknown fails open to production-like", input: "staging", known: false, pretty: false, sourceMaps: false, minify: true},
		{name: "empty", input: "", known: false, pretty: false, sourceMaps: false, minify: true},
		{name: "case sensitive", input: "Development", known: false, pretty: false, sourceMaps: false, minify: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Select(tt.input)
			assert.Equal(t, tt.input, m.String())
			assert.Equal(t, tt.known, m.Known())
			assert.Equal(t, tt.pretty, m.Pretty())
			assert.Equal(t, tt.sourceMaps, m.SourceMaps())
			assert.Equal(t, tt.minify, m.Minify())
			assert.Equal(t, tt.input, m.BundlerMode())
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, Production, FromContext(ctx))

	ctx = WithMode(ctx, Development)
	assert.Equal(t, Development, FromContext(ctx))

	inner := WithMode(ctx, Production)
	assert.Equal(t, Production, FromContext(inner))
	assert.Equal(t, Development, FromContext(ctx))
}

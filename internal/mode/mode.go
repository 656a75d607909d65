// Package mode selects the build mode for a sitebuild invocation.
//
// The mode is chosen once at process entry and then passed by value (and
// through the context) to every task. Nothing in the build mutates it.
//
// Unknown mode strings are accepted as-is. Every flag derived from a mode
// only turns on for Development, so an unknown value behaves like
// Production.
package mode

import "context"

// Mode is the build mode of an invocation.
type Mode string

const (
	// Development produces readable output: pretty HTML, source maps and
	// unminified scripts.
	Development Mode = "development"

	// Production produces optimized output.
	Production Mode = "production"
)

// Select returns the mode for name. The name is not validated.
func Select(name string) Mode {
	return Mode(name)
}

// String returns the mode as passed to Select.
func (m Mode) String() string {
	return string(m)
}

// Known reports whether m is Development or Production.
func (m Mode) Known() bool {
	return m == Development || m == Production
}

// IsDevelopment reports whether m is Development.
func (m Mode) IsDevelopment() bool {
	return m == Development
}

// Pretty reports whether rendered HTML should be indented.
func (m Mode) Pretty() bool {
	return m.IsDevelopment()
}

// SourceMaps reports whether stylesheets and scripts carry source maps.
func (m Mode) SourceMaps() bool {
	return m.IsDevelopment()
}

// Minify reports whether the bundler and the CSS post-processor minify
// their output.
func (m Mode) Minify() bool {
	return !m.IsDevelopment()
}

// BundlerMode is the value the script bundler receives as its
// optimization mode. It is also what bundled code sees as
// process.env.NODE_ENV.
func (m Mode) BundlerMode() string {
	return string(m)
}

type contextKey struct{}

// WithMode returns a copy of ctx carrying m.
func WithMode(ctx context.Context, m Mode) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the mode stored in ctx, or Production when none was
// stored.
func FromContext(ctx context.Context) Mode {
	if m, ok := ctx.Value(contextKey{}).(Mode); ok {
		return m
	}
	return Production
}

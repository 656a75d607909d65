package build

import (
	"context"
	"errors"
	"os"
	"path"

	"github.com/bep/golibsass/libsass"
	"github.com/bep/golibsass/libsass/libsasserrors"
	"github.com/evanw/esbuild/pkg/api"

	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
	"github.com/conneroisu/sitebuild/internal/fileset"
	"github.com/conneroisu/sitebuild/internal/layout"
)

// Styles compiles the SCSS entry, runs the result through the CSS
// post-processor and writes it as style.min.css in the output root. In
// development the stylesheet carries an inline source map; otherwise it is
// minified. Nothing is written when either step fails.
func Styles(ctx context.Context, env Env) error {
	l := env.Layout
	entry := l.StyleEntry()

	files, err := fileset.Match(l.Root, entry)
	if err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeRead, entry, err)
	}
	if len(files) == 0 {
		env.Logger.Debug(ctx, "No stylesheet entry", "entry", entry)
		return nil
	}

	src, err := os.ReadFile(l.Path(entry))
	if err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeRead, entry, err)
	}

	css, err := compileSass(env, entry, string(src))
	if err != nil {
		return err
	}

	out, err := postProcess(env, entry, css)
	if err != nil {
		return err
	}

	target := path.Join(l.Output, layout.StyleOutput)
	if err := writeFile(env, target, out); err != nil {
		return err
	}

	env.Logger.Debug(ctx, "Compiled stylesheet", "entry", entry, "output", target, "bytes", len(out))
	return nil
}

func compileSass(env Env, entry, src string) (string, error) {
	l := env.Layout

	includes := make([]string, 0, len(l.StyleIncludeDirs()))
	for _, dir := range l.StyleIncludeDirs() {
		includes = append(includes, l.Path(dir))
	}

	opts := libsass.Options{
		IncludePaths: includes,
		OutputStyle:  libsass.ExpandedStyle,
	}
	if env.Mode.SourceMaps() {
		opts.SourceMapOptions = libsass.SourceMapOptions{
			InputPath:      l.Path(entry),
			OutputPath:     l.Path(path.Join(l.Output, layout.StyleOutput)),
			Contents:       true,
			EnableEmbedded: true,
		}
	}

	transpiler, err := libsass.New(opts)
	if err != nil {
		return "", siteerrors.NewCompileError(siteerrors.CodeStyleCompile, "stylesheet compiler unavailable", err)
	}

	result, err := transpiler.Execute(src)
	if err != nil {
		se := siteerrors.NewCompileError(siteerrors.CodeStyleCompile, "stylesheet failed to compile", err)
		var sassErr libsasserrors.Error
		if errors.As(err, &sassErr) {
			return "", se.WithLocation(entry, sassErr.Line, sassErr.Column)
		}
		return "", se.WithLocation(entry, 0, 0)
	}
	return result.CSS, nil
}

// postProcess lowers syntax and adds vendor prefixes for the configured
// browsers, minifying outside development.
func postProcess(env Env, entry, css string) ([]byte, error) {
	targets, err := engines(env.Styles.Targets)
	if err != nil {
		return nil, siteerrors.NewCompileError(siteerrors.CodeStyleTransform, "invalid browser targets", err)
	}

	opts := api.TransformOptions{
		Loader:            api.LoaderCSS,
		Sourcefile:        entry,
		Engines:           targets,
		MinifyWhitespace:  env.Mode.Minify(),
		MinifySyntax:      env.Mode.Minify(),
		MinifyIdentifiers: env.Mode.Minify(),
		LogLevel:          api.LogLevelSilent,
	}
	if env.Mode.SourceMaps() {
		opts.Sourcemap = api.SourceMapInline
	}

	result := api.Transform(css, opts)
	if len(result.Errors) > 0 {
		text, file, line, column := firstMessage(result.Errors)
		if file == "" {
			file = entry
		}
		return nil, siteerrors.NewCompileError(siteerrors.CodeStyleTransform, text, nil).
			WithLocation(file, line, column)
	}
	return result.Code, nil
}

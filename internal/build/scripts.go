package build

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/evanw/esbuild/pkg/api"

	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
	"github.com/conneroisu/sitebuild/internal/fileset"
)

// Scripts bundles the script entry and its imports into <entry>.min.js in
// the output root. process.env.NODE_ENV is replaced with the build mode.
// Output is kept in memory and written only when bundling succeeds.
func Scripts(ctx context.Context, env Env) error {
	l := env.Layout
	entry := l.ScriptEntry()

	files, err := fileset.Match(l.Root, entry)
	if err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeRead, entry, err)
	}
	if len(files) == 0 {
		env.Logger.Debug(ctx, "No script entry", "entry", entry)
		return nil
	}

	target, err := languageTarget(env.Scripts.Target)
	if err != nil {
		return siteerrors.NewCompileError(siteerrors.CodeScriptBundle, "invalid script target", err)
	}
	format, err := bundleFormat(env.Scripts.Format)
	if err != nil {
		return siteerrors.NewCompileError(siteerrors.CodeScriptBundle, "invalid bundle format", err)
	}

	opts := api.BuildOptions{
		AbsWorkingDir:     l.Root,
		EntryPoints:       []string{entry},
		Bundle:            true,
		Write:             false,
		Outdir:            l.OutDir(),
		EntryNames:        "[name].min",
		Format:            format,
		Target:            target,
		Platform:          api.PlatformBrowser,
		MinifyWhitespace:  env.Mode.Minify(),
		MinifyIdentifiers: env.Mode.Minify(),
		MinifySyntax:      env.Mode.Minify(),
		Define: map[string]string{
			"process.env.NODE_ENV": strconv.Quote(env.Mode.BundlerMode()),
		},
		LogLevel: api.LogLevelSilent,
	}
	if env.Mode.SourceMaps() {
		opts.Sourcemap = api.SourceMapInline
	}

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		text, file, line, column := firstMessage(result.Errors)
		if file == "" {
			file = entry
		}
		return siteerrors.NewCompileError(siteerrors.CodeScriptBundle, text, nil).
			WithLocation(file, line, column)
	}

	for _, f := range result.OutputFiles {
		rel, err := filepath.Rel(l.Root, f.Path)
		if err != nil {
			return siteerrors.NewFilesystemError(siteerrors.CodeWrite, f.Path, err)
		}
		if err := writeFile(env, filepath.ToSlash(rel), f.Contents); err != nil {
			return err
		}
	}

	for _, w := range result.Warnings {
		env.Logger.Warn(ctx, nil, "Bundler warning", "message", w.Text)
	}
	env.Logger.Debug(ctx, "Bundled scripts", "entry", entry, "files", len(result.OutputFiles))
	return nil
}

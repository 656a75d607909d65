package watcher

import (
	"fmt"
	"path"
	"time"

	"github.com/conneroisu/sitebuild/internal/build"
	"github.com/conneroisu/sitebuild/internal/layout"
	"github.com/conneroisu/sitebuild/internal/livereload"
	"github.com/conneroisu/sitebuild/internal/logging"
)

// Groups returns the five watch groups of a project: static, images,
// styles, scripts and templates. Only styles reload stylesheets in place.
func Groups(env build.Env) ([]Group, error) {
	l := env.Layout
	specs := []struct {
		name     string
		patterns []string
		reload   livereload.MessageType
		path     string
	}{
		{build.TaskStatic, l.StaticGlobs(), livereload.MessageReload, ""},
		{build.TaskImages, l.ImageGlobs(), livereload.MessageReload, ""},
		{build.TaskStyles, l.StyleWatchGlobs(), livereload.MessageCSS, "/" + layout.StyleOutput},
		{build.TaskScripts, l.ScriptWatchGlobs(), livereload.MessageReload, "/" + l.ScriptOutput()},
		{build.TaskTemplates, l.TemplateWatchGlobs(), livereload.MessageReload, ""},
	}

	groups := make([]Group, 0, len(specs))
	for _, s := range specs {
		run, ok := env.Task(s.name)
		if !ok {
			return nil, fmt.Errorf("unknown build task %q", s.name)
		}
		groups = append(groups, Group{
			Name:     s.name,
			Patterns: s.patterns,
			Rebuild:  run,
			Reload:   s.reload,
			Path:     s.path,
		})
	}
	return groups, nil
}

// ForProject creates a watcher over the source tree and the metadata file
// of env's layout, with dispatch registered as its handler.
func ForProject(env build.Env, debounce time.Duration, dispatch *Dispatcher, logger logging.Logger) (*FileWatcher, error) {
	l := env.Layout
	fw, err := NewFileWatcher(l.Root, debounce, logger)
	if err != nil {
		return nil, err
	}

	fw.AddFilter(NoHiddenFilter)
	fw.AddFilter(NoEditorTempFilter)
	fw.AddFilter(UnderFilter([]string{l.Source}, []string{l.Metadata}))
	fw.AddFilter(ExcludeFilter(l.Output))
	fw.AddHandler(dispatch.Dispatch)

	if err := fw.AddRecursive(l.Source); err != nil {
		fw.Stop()
		return nil, fmt.Errorf("watch %s: %w", l.Source, err)
	}
	// Editors often replace files on save, so the metadata file is watched
	// through its directory.
	if err := fw.AddPath(path.Dir(l.Metadata)); err != nil {
		fw.Stop()
		return nil, fmt.Errorf("watch %s: %w", l.Metadata, err)
	}
	return fw, nil
}

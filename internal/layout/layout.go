// Package layout describes the fixed source and output conventions of a
// sitebuild project.
//
// Globs and relative paths are slash-separated and relative to the project
// root. Use Path to turn them into filesystem paths.
package layout

import (
	"path"
	"path/filepath"
)

// Output names that do not depend on the source tree.
const (
	StyleOutput   = "style.min.css"
	ScriptSuffix  = ".min.js"
	ImagesDir     = "assets/images"
	imageExts     = "{gif,png,jpg,svg}"
	defaultEntry  = "index"
	defaultSource = "src"
	defaultOutput = "dist"
	defaultMeta   = "package.json"
)

// Layout locates every input and output of a build.
type Layout struct {
	Root     string // absolute project root
	Source   string // source root relative to Root
	Output   string // output root relative to Root
	Entry    string // basename shared by the template, style and script entries
	Metadata string // project metadata file relative to Root
}

// New returns a layout for root. Empty arguments fall back to src, dist,
// index and package.json.
func New(root, source, output, entry, metadata string) Layout {
	if source == "" {
		source = defaultSource
	}
	if output == "" {
		output = defaultOutput
	}
	if entry == "" {
		entry = defaultEntry
	}
	if metadata == "" {
		metadata = defaultMeta
	}
	return Layout{
		Root:     root,
		Source:   filepath.ToSlash(filepath.Clean(source)),
		Output:   filepath.ToSlash(filepath.Clean(output)),
		Entry:    entry,
		Metadata: filepath.ToSlash(filepath.Clean(metadata)),
	}
}

// Path converts a root-relative slash path into a filesystem path.
func (l Layout) Path(rel string) string {
	return filepath.Join(l.Root, filepath.FromSlash(rel))
}

// OutDir is the absolute output directory.
func (l Layout) OutDir() string {
	return l.Path(l.Output)
}

func (l Layout) src(parts ...string) string {
	return path.Join(append([]string{l.Source}, parts...)...)
}

// StaticBase is the directory whose tree is mirrored into the output root.
func (l Layout) StaticBase() string { return l.src("static") }

// StaticGlobs match every static file.
func (l Layout) StaticGlobs() []string { return []string{l.src("static", "**", "*.*")} }

// ImageGlobs match the copied image files.
func (l Layout) ImageGlobs() []string {
	return []string{l.src("assets", "images", "*."+imageExts)}
}

// ImageOutput is the output directory for images.
func (l Layout) ImageOutput() string { return path.Join(l.Output, ImagesDir) }

// TemplateBase is the directory template output paths are relative to.
func (l Layout) TemplateBase() string { return l.Source }

// TemplateGlobs match the rendered templates.
func (l Layout) TemplateGlobs() []string {
	return []string{l.src(l.Entry + ".pug"), l.src("pages", "*.pug")}
}

// TemplateWatchGlobs match every file that affects rendered templates,
// including the project metadata file.
func (l Layout) TemplateWatchGlobs() []string {
	return []string{l.src(l.Entry + ".pug"), l.src("pages", "**", "*.pug"), l.Metadata}
}

// StyleEntry is the single stylesheet entry point.
func (l Layout) StyleEntry() string { return l.src(l.Entry + ".scss") }

// StyleIncludeDirs are searched when resolving stylesheet imports.
func (l Layout) StyleIncludeDirs() []string { return []string{l.Source, l.src("styles")} }

// StyleWatchGlobs match the entry stylesheet and its partials.
func (l Layout) StyleWatchGlobs() []string {
	return []string{l.StyleEntry(), l.src("styles", "**", "*.scss")}
}

// ScriptEntry is the single script entry point.
func (l Layout) ScriptEntry() string { return l.src(l.Entry + ".js") }

// ScriptOutput is the bundle file name: the entry module name plus
// ScriptSuffix.
func (l Layout) ScriptOutput() string {
	base := path.Base(l.ScriptEntry())
	return base[:len(base)-len(path.Ext(base))] + ScriptSuffix
}

// ScriptWatchGlobs match the entry script and its modules.
func (l Layout) ScriptWatchGlobs() []string {
	return []string{l.ScriptEntry(), l.src("scripts", "**", "*.js")}
}

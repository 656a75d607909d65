package build

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/eknkc/amber"

	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
	"github.com/conneroisu/sitebuild/internal/fileset"
	"github.com/conneroisu/sitebuild/internal/metadata"
)

type page struct {
	out  string
	html []byte
}

// Templates renders the entry template and every page template to HTML.
// Project metadata is read on every run and passed as the locals version
// and license. All pages are rendered before any of them is written, so a
// broken template leaves the previous output untouched.
func Templates(ctx context.Context, env Env) error {
	l := env.Layout
	files, err := fileset.Match(l.Root, l.TemplateGlobs()...)
	if err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeRead, l.TemplateBase(), err)
	}
	if len(files) == 0 {
		env.Logger.Debug(ctx, "No templates matched", "patterns", l.TemplateGlobs())
		return nil
	}

	project, err := metadata.Load(l.Path(l.Metadata))
	if err != nil {
		return &siteerrors.SiteError{
			Type:    siteerrors.ErrorTypeFilesystem,
			Code:    siteerrors.CodeMetadata,
			Path:    l.Metadata,
			Message: "failed to read project metadata",
			Cause:   err,
		}
	}
	locals := project.Locals()

	opts := amber.Options{PrettyPrint: env.Mode.Pretty()}
	pages := make([]page, 0, len(files))

	for _, file := range files {
		tpl, err := amber.CompileFile(l.Path(file), opts)
		if err != nil {
			return siteerrors.NewCompileError(siteerrors.CodeTemplateCompile, "template failed to compile", err).
				WithLocation(file, 0, 0)
		}

		var buf bytes.Buffer
		if err := tpl.Execute(&buf, locals); err != nil {
			return siteerrors.NewCompileError(siteerrors.CodeTemplateRender, "template failed to render", err).
				WithLocation(file, 0, 0)
		}

		rel, ok := fileset.Rel(l.TemplateBase(), file)
		if !ok {
			continue
		}
		pages = append(pages, page{
			out:  path.Join(l.Output, strings.TrimSuffix(rel, path.Ext(rel))+".html"),
			html: buf.Bytes(),
		})
	}

	for _, p := range pages {
		if err := writeFile(env, p.out, p.html); err != nil {
			return err
		}
	}

	env.Logger.Debug(ctx, "Rendered templates", "count", len(pages), "version", project.Version)
	return nil
}

package build

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
	"github.com/conneroisu/sitebuild/internal/fileset"
)

// CopyStatic copies every file under the static directory into the output
// root, keeping its path relative to the static directory.
func CopyStatic(ctx context.Context, env Env) error {
	l := env.Layout
	return copyFiles(ctx, env, l.StaticGlobs(), l.StaticBase(), l.Output)
}

// CopyImages copies gif, png, jpg and svg images into assets/images of the
// output root.
func CopyImages(ctx context.Context, env Env) error {
	l := env.Layout
	globs := l.ImageGlobs()
	return copyFiles(ctx, env, globs, fileset.Base(globs[0]), l.ImageOutput())
}

// copyFiles copies the files matching patterns from base into dest. Both
// base and dest are relative to the project root. Files are copied
// verbatim and an existing destination is overwritten.
func copyFiles(ctx context.Context, env Env, patterns []string, base, dest string) error {
	l := env.Layout
	files, err := fileset.Match(l.Root, patterns...)
	if err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeRead, base, err)
	}
	if len(files) == 0 {
		env.Logger.Debug(ctx, "No files matched", "patterns", patterns)
		return nil
	}

	for _, file := range files {
		rel, ok := fileset.Rel(base, file)
		if !ok {
			continue
		}
		target := path.Join(dest, rel)
		if err := copyFile(l.Path(file), l.Path(target)); err != nil {
			return err
		}
	}

	env.Logger.Debug(ctx, "Copied files", "count", len(files), "dest", dest)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeRead, src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeRead, src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeWrite, filepath.Dir(dst), err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeWrite, dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return siteerrors.NewFilesystemError(siteerrors.CodeWrite, dst, err)
	}
	if err := out.Close(); err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeWrite, dst, err)
	}
	return nil
}

// writeFile writes data to a path relative to the project root, creating
// parent directories as needed.
func writeFile(env Env, rel string, data []byte) error {
	dst := env.Layout.Path(rel)
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeWrite, dir, err)
	}

	// Write through a temp file so the dev server never serves a partial file.
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
	if err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeWrite, dst, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return siteerrors.NewFilesystemError(siteerrors.CodeWrite, dst, err)
	}
	if err := tmp.Close(); err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeWrite, dst, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeWrite, dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeWrite, dst, err)
	}
	return nil
}

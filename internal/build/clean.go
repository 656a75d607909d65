package build

import (
	"context"
	"os"

	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
)

// Clean removes the output directory and everything in it. A missing
// directory is not an error.
func Clean(ctx context.Context, env Env) error {
	dir := env.Layout.OutDir()
	if err := os.RemoveAll(dir); err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeRemove, dir, err)
	}
	env.Logger.Debug(ctx, "Removed output directory", "dir", env.Layout.Output)
	return nil
}

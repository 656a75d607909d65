// Package fileset resolves glob patterns into file sets.
//
// Patterns are slash-separated, relative to a root directory, and support
// "**" and "{a,b}" alternatives. A pattern that matches nothing yields an
// empty set, never an error.
package fileset

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match returns the sorted, de-duplicated files under root matching any of
// patterns. Directories are never returned.
func Match(root string, patterns ...string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	var files []string

	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether the slash-separated relative path name matches
// any of patterns.
func Matches(name string, patterns ...string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// Base returns the static directory prefix of pattern, the part before the
// first path segment containing glob syntax.
func Base(pattern string) string {
	base, _ := doublestar.SplitPattern(pattern)
	return base
}

// Rel returns name relative to base. Both are slash-separated. It reports
// false when name is not inside base.
func Rel(base, name string) (string, bool) {
	base = path.Clean(base)
	if base == "." {
		return name, true
	}
	if !strings.HasPrefix(name, base+"/") {
		return "", false
	}
	return strings.TrimPrefix(name, base+"/"), true
}

package fileset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o644))
	}
}

func TestMatch(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"src/static/robots.txt",
		"src/static/fonts/a.woff2",
		"src/static/LICENSE",
		"src/assets/images/logo.png",
		"src/assets/images/photo.jpg",
		"src/assets/images/notes.txt",
		"src/assets/images/nested/deep.png",
		"src/pages/about.pug",
	)

	tests := []struct {
		name     string
		patterns []string
		expected []string
	}{
		{
			name:     "recursive static glob requires an extension",
			patterns: []string{"src/static/**/*.*"},
			expected: []string{"src/static/fonts/a.woff2", "src/static/robots.txt"},
		},
		{
			name:     "brace alternatives are not recursive",
			patterns: []string{"src/assets/images/*.{gif,png,jpg,svg}"},
			expected: []string{"src/assets/images/logo.png", "src/assets/images/photo.jpg"},
		},
		{
			name:     "overlapping patterns are de-duplicated",
			patterns: []string{"src/pages/*.pug", "src/**/*.pug"},
			expected: []string{"src/pages/about.pug"},
		},
		{
			name:     "missing directory is an empty set",
			patterns: []string{"src/scripts/**/*.js"},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := Match(root, tt.patterns...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, files)
		})
	}
}

func TestMatchRejectsInvalidPattern(t *testing.T) {
	_, err := Match(t.TempDir(), "src/[")
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	styles := []string{"src/index.scss", "src/styles/**/*.scss"}

	assert.True(t, Matches("src/index.scss", styles...))
	assert.True(t, Matches("src/styles/_vars.scss", styles...))
	assert.True(t, Matches("src/styles/components/_button.scss", styles...))
	assert.False(t, Matches("src/other.scss", styles...))
	assert.False(t, Matches("src/index.js", styles...))
	assert.True(t, Matches("package.json", "package.json"))
}

func TestBaseAndRel(t *testing.T) {
	assert.Equal(t, "src/static", Base("src/static/**/*.*"))
	assert.Equal(t, "src/assets/images", Base("src/assets/images/*.{gif,png,jpg,svg}"))
	assert.Equal(t, "src", Base("src/index.pug"))

	rel, ok := Rel("src/static", "src/static/fonts/a.woff2")
	assert.True(t, ok)
	assert.Equal(t, "fonts/a.woff2", rel)

	_, ok = Rel("src/static", "src/staticfile.txt")
	assert.False(t, ok)

	rel, ok = Rel(".", "package.json")
	assert.True(t, ok)
	assert.Equal(t, "package.json", rel)
}

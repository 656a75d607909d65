package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
	"github.com/conneroisu/sitebuild/internal/layout"
	"github.com/conneroisu/sitebuild/internal/logging"
	"github.com/conneroisu/sitebuild/internal/metrics"
	"github.com/conneroisu/sitebuild/internal/mode"
	"github.com/conneroisu/sitebuild/internal/pipeline"
	"github.com/conneroisu/sitebuild/internal/testutils"
)

const (
	indexPug = `!!! 5
html
	head
		title Site #{version}
		link[rel="stylesheet"][href="style.min.css"]
	body
		p Released under #{license}
		script[src="index.min.js"]
`
	indexScss = `$primary: red;
body {
  p { color: $primary; }
}
`
	indexJs = `import { greet } from "./scripts/greet.js";
greet(process.env.NODE_ENV);
`
	greetJs = `export function greet(mode) { console.log("mode:", mode); }
`
	packageJSON = `{"name": "site", "version": "1.2.3", "license": "MIT"}`
)

func sampleProject(t *testing.T) string {
	return testutils.CreateTempProject(t, map[string]string{
		"package.json":         packageJSON,
		"src/index.pug":        indexPug,
		"src/index.scss":       indexScss,
		"src/index.js":         indexJs,
		"src/scripts/greet.js": greetJs,
	})
}

func testEnv(root string, m mode.Mode) Env {
	return Env{
		Mode:    m,
		Layout:  layout.New(root, "", "", "", ""),
		Styles:  StyleOptions{Targets: []string{"chrome58", "safari11"}},
		Scripts: ScriptOptions{Target: "es2017", Format: "iife"},
		Logger:  logging.Discard(),
	}
}

func readOut(t *testing.T, root, name string) string {
	t.Helper()
	return testutils.ReadFile(t, root, "dist/"+name)
}

func TestProductionBuild(t *testing.T) {
	root := sampleProject(t)
	env := testEnv(root, mode.Production)
	env.Metrics = metrics.New(nil)

	report, err := Run(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Count(pipeline.Succeeded))

	assert.Equal(t, []string{"index.html", "index.min.js", "style.min.css"}, testutils.ListFiles(t, filepath.Join(root, "dist")))

	html := readOut(t, root, "index.html")
	assert.Contains(t, html, "Site 1.2.3")
	assert.Contains(t, html, "Released under MIT")
	assert.NotContains(t, html, "\n\t")

	css := readOut(t, root, "style.min.css")
	assert.Contains(t, css, "body p{color:")
	assert.NotContains(t, css, "$primary")
	assert.NotContains(t, css, "sourceMappingURL")

	js := readOut(t, root, "index.min.js")
	assert.Contains(t, js, `"production"`)
	assert.Contains(t, js, "mode:")
	assert.NotContains(t, js, "process.env")
	assert.NotContains(t, js, "sourceMappingURL")
}

func TestDevelopmentBuild(t *testing.T) {
	root := sampleProject(t)

	_, err := Run(context.Background(), testEnv(root, mode.Development))
	require.NoError(t, err)

	html := readOut(t, root, "index.html")
	assert.Contains(t, html, "Site 1.2.3")
	assert.Greater(t, strings.Count(html, "\n"), 3, "development output should be pretty-printed")

	css := readOut(t, root, "style.min.css")
	assert.Contains(t, css, "sourceMappingURL=data:")

	js := readOut(t, root, "index.min.js")
	assert.Contains(t, js, `"development"`)
	assert.Contains(t, js, "sourceMappingURL=data:")
}

func TestUnknownModeBehavesLikeProduction(t *testing.T) {
	root := sampleProject(t)

	_, err := Run(context.Background(), testEnv(root, mode.Select("staging")))
	require.NoError(t, err)

	assert.NotContains(t, readOut(t, root, "style.min.css"), "sourceMappingURL")
	js := readOut(t, root, "index.min.js")
	assert.Contains(t, js, `"staging"`)
	assert.NotContains(t, js, "sourceMappingURL")
}

func TestCleanRemovesStaleOutput(t *testing.T) {
	root := sampleProject(t)
	stale := filepath.Join(root, "dist", "old", "stale.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	_, err := Run(context.Background(), testEnv(root, mode.Production))
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

func TestCleanIsIdempotent(t *testing.T) {
	root := t.TempDir()
	env := testEnv(root, mode.Production)

	require.NoError(t, Clean(context.Background(), env))
	require.NoError(t, Clean(context.Background(), env))
	assert.NoDirExists(t, filepath.Join(root, "dist"))
}

func TestCopyStaticAndImages(t *testing.T) {
	root := testutils.CreateTempProject(t, map[string]string{
		"src/static/robots.txt":        "User-agent: *",
		"src/static/fonts/a.woff":      "font",
		"src/static/README":            "no extension",
		"src/assets/images/logo.png":   "png",
		"src/assets/images/icon.svg":   "<svg/>",
		"src/assets/images/notes.txt":  "skip",
		"src/assets/images/deep/x.png": "skip",
	})
	env := testEnv(root, mode.Production)
	ctx := context.Background()

	require.NoError(t, CopyStatic(ctx, env))
	require.NoError(t, CopyImages(ctx, env))

	assert.Equal(t, []string{
		"assets/images/icon.svg",
		"assets/images/logo.png",
		"fonts/a.woff",
		"robots.txt",
	}, testutils.ListFiles(t, filepath.Join(root, "dist")))
	assert.Equal(t, "User-agent: *", readOut(t, root, "robots.txt"))
}

func TestEmptyTasks(t *testing.T) {
	root := t.TempDir()
	env := testEnv(root, mode.Production)
	ctx := context.Background()

	for _, name := range []string{TaskTemplates, TaskStyles, TaskScripts, TaskImages, TaskStatic} {
		t.Run(name, func(t *testing.T) {
			run, ok := env.Task(name)
			require.True(t, ok)
			assert.NoError(t, run(ctx))
		})
	}
	assert.NoDirExists(t, filepath.Join(root, "dist"))
}

func TestStyleErrorWritesNothing(t *testing.T) {
	root := testutils.CreateTempProject(t, map[string]string{
		"src/index.scss": "body { color: $undefined; }\n",
	})
	env := testEnv(root, mode.Development)

	run, _ := env.Task(TaskStyles)
	err := run(context.Background())
	require.Error(t, err)
	assert.True(t, siteerrors.IsCompileError(err))
	assert.Equal(t, TaskStyles, siteerrors.TaskOf(err))
	assert.NoFileExists(t, filepath.Join(root, "dist", "style.min.css"))
}

func TestStyleSyntaxErrorLocation(t *testing.T) {
	root := testutils.CreateTempProject(t, map[string]string{
		"src/index.scss": "body {\n  color: red;\n  p { color: blue;\n",
	})
	env := testEnv(root, mode.Production)

	err := Styles(context.Background(), env)
	require.Error(t, err)

	var se *siteerrors.SiteError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, siteerrors.CodeStyleCompile, se.Code)
	assert.Equal(t, "src/index.scss", se.Path)
	assert.Greater(t, se.Line, 0)
	assert.Contains(t, se.Error(), "src/index.scss:")
}

func TestScriptsWriteOnlyTheBundle(t *testing.T) {
	root := sampleProject(t)
	env := testEnv(root, mode.Production)

	require.NoError(t, Scripts(context.Background(), env))
	require.NoError(t, Scripts(context.Background(), env))

	assert.Equal(t, []string{"index.min.js"}, testutils.ListFiles(t, filepath.Join(root, "dist")))
	info, err := os.Stat(filepath.Join(root, "dist", "index.min.js"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestScriptErrorWritesNothing(t *testing.T) {
	root := testutils.CreateTempProject(t, map[string]string{
		"src/index.js": `import "./missing.js";` + "\n",
	})
	env := testEnv(root, mode.Production)

	err := Scripts(context.Background(), env)
	require.Error(t, err)
	assert.True(t, siteerrors.IsCompileError(err))

	var se *siteerrors.SiteError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, siteerrors.CodeScriptBundle, se.Code)
	assert.Contains(t, se.Path, "index.js")
	assert.NoFileExists(t, filepath.Join(root, "dist", "index.min.js"))
}

func TestTemplateErrorWritesNothing(t *testing.T) {
	root := testutils.CreateTempProject(t, map[string]string{
		"package.json":        packageJSON,
		"src/index.pug":       indexPug,
		"src/pages/about.pug": "p #{undefinedHelper(version)}\n",
	})
	env := testEnv(root, mode.Production)

	err := Templates(context.Background(), env)
	require.Error(t, err)
	assert.True(t, siteerrors.IsCompileError(err))
	assert.NoFileExists(t, filepath.Join(root, "dist", "index.html"))
}

func TestTemplatesRequireMetadata(t *testing.T) {
	root := testutils.CreateTempProject(t, map[string]string{
		"src/index.pug": indexPug,
	})

	err := Templates(context.Background(), testEnv(root, mode.Production))
	require.Error(t, err)

	var se *siteerrors.SiteError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, siteerrors.CodeMetadata, se.Code)
}

func TestTemplatesReadMetadataEachRun(t *testing.T) {
	root := sampleProject(t)
	env := testEnv(root, mode.Production)
	ctx := context.Background()

	require.NoError(t, Templates(ctx, env))
	assert.Contains(t, readOut(t, root, "index.html"), "1.2.3")

	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"),
		[]byte(`{"version": "2.0.0", "license": "MIT"}`), 0o644))
	require.NoError(t, Templates(ctx, env))
	assert.Contains(t, readOut(t, root, "index.html"), "2.0.0")
}

func TestPagesKeepRelativePath(t *testing.T) {
	root := testutils.CreateTempProject(t, map[string]string{
		"package.json":        packageJSON,
		"src/pages/about.pug": "p About #{version}\n",
	})

	require.NoError(t, Templates(context.Background(), testEnv(root, mode.Production)))
	assert.Contains(t, readOut(t, root, "pages/about.html"), "About 1.2.3")
}

func TestRunFailsFast(t *testing.T) {
	root := sampleProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "index.scss"), []byte("body { color: $nope; }"), 0o644))

	report, err := Run(context.Background(), testEnv(root, mode.Production))
	require.Error(t, err)
	assert.True(t, siteerrors.IsCompileError(err))
	assert.Contains(t, err.Error(), "execution failed for styles")

	res, ok := report.Result(TaskStyles)
	require.True(t, ok)
	assert.Equal(t, pipeline.Failed, res.State)
}

func TestNewGraphShape(t *testing.T) {
	g, err := NewGraph(testEnv(t.TempDir(), mode.Production))
	require.NoError(t, err)

	assert.Equal(t, 6, g.Len())
	assert.Equal(t, TaskClean, g.TopologicalOrder()[0])
	for _, name := range parallelTasks {
		assert.Equal(t, []string{TaskClean}, g.Deps(name))
	}

	_, ok := testEnv("", mode.Production).Task("deploy")
	assert.False(t, ok)
}

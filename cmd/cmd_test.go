package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
	"github.com/conneroisu/sitebuild/internal/livereload"
	"github.com/conneroisu/sitebuild/internal/testutils"
)

// syncBuffer is written by a running command while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(ctx context.Context, out, errOut io.Writer, args ...string) error {
	viper.Reset()
	resetFlags(rootCmd)
	cfgFile = ""

	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &syncBuffer{}
	err := execute(context.Background(), out, io.Discard, args...)
	return out.String(), err
}

// runLogged is run with the log output captured.
func runLogged(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, logs := &syncBuffer{}, &syncBuffer{}
	err := execute(context.Background(), out, logs, args...)
	return out.String(), logs.String(), err
}

// newProject scaffolds a sample project in a temp dir and makes it the
// working directory.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	_, err := run(t, "init", "--name", "demo")
	require.NoError(t, err)
	return dir
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, err := run(t, "init", "site", "--name", "demo", "--version", "3.1.4")
	require.NoError(t, err)
	assert.Contains(t, out, "created  src/index.pug")
	assert.Contains(t, out, "created  .sitebuild.yml")

	pkg, err := os.ReadFile(filepath.Join(dir, "site", "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(pkg), `"version": "3.1.4"`)

	out, err = run(t, "init", "site")
	require.NoError(t, err)
	assert.Contains(t, out, "exists   src/index.pug")
}

func TestBuildCommand(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "build")
	require.NoError(t, err)

	assert.Contains(t, out, "Production build")
	assert.Contains(t, out, "Templates")
	assert.Contains(t, out, "6 succeeded, 0 failed, 0 skipped")

	for _, rel := range []string{"index.html", "pages/about.html", "style.min.css", "index.min.js", "robots.txt"} {
		assert.FileExists(t, filepath.Join(dir, "dist", filepath.FromSlash(rel)))
	}
	index, err := os.ReadFile(filepath.Join(dir, "dist", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "Version 0.1.0, released under MIT.")
}

func TestBuildCommandDevelopmentMode(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, "build", "--mode", "development", "--quiet")
	require.NoError(t, err)
	assert.Empty(t, out)

	css, err := os.ReadFile(filepath.Join(dir, "dist", "style.min.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "sourceMappingURL")
}

func TestBuildCommandFailsOnCompileError(t *testing.T) {
	dir := newProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "index.scss"), []byte("body { color: $missing; }\n"), 0o644))

	out, err := run(t, "build")
	require.Error(t, err)
	assert.True(t, siteerrors.IsCompileError(err))
	assert.Contains(t, err.Error(), "styles")
	assert.Regexp(t, regexp.MustCompile(`Styles\s+failed`), out)
	assert.Equal(t, exitCompile, ExitCode(err))
}

func TestBuildCommandRejectsInvalidConfig(t *testing.T) {
	newProject(t)
	t.Setenv("SITEBUILD_SERVER_PORT", "70000")

	_, err := run(t, "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid configuration")
	assert.Contains(t, err.Error(), "Suggestions:")
	assert.Equal(t, exitConfig, ExitCode(err))
}

func TestBuildCommandLogsConfigWarnings(t *testing.T) {
	newProject(t)
	t.Setenv("SITEBUILD_SERVER_PORT", "80")

	_, logs, err := runLogged(t, "build", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, logs, "Configuration warning")
	assert.Contains(t, logs, "field=server.port")
	assert.Contains(t, logs, "port below 1024")
}

func TestBuildCommandReportsBrokenConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sitebuild.yml"), []byte("source: [unclosed\n"), 0o644))

	_, err := run(t, "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read configuration")
}

func TestConfigFileFromEnvironment(t *testing.T) {
	dir := newProject(t)
	custom := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(custom, []byte("output:\n  dir: public\n"), 0o644))
	t.Setenv("SITEBUILD_CONFIG_FILE", custom)

	_, err := run(t, "build", "--quiet")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "public", "index.html"))
}

func TestDotEnvIsLoaded(t *testing.T) {
	dir := newProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SITEBUILD_OUTPUT_DIR=site-out\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SITEBUILD_OUTPUT_DIR") })

	_, err := run(t, "build", "--quiet")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "site-out", "index.html"))
}

func TestCleanCommand(t *testing.T) {
	dir := newProject(t)
	_, err := run(t, "build", "--quiet")
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(dir, "dist"))

	out, err := run(t, "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed dist")
	assert.NoDirExists(t, filepath.Join(dir, "dist"))

	_, err = run(t, "clean")
	assert.NoError(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "sitebuild "))

	out, err = run(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	_, err = run(t, "version", "--format", "yaml")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"plain", errors.New("boom"), exitFailure},
		{"config", siteerrors.NewConfigError("invalid", nil), exitConfig},
		{"enhanced bind", siteerrors.NewEnhancedError("Failed to start server", siteerrors.NewServerError(siteerrors.CodeBind, "listen failed", nil), nil), exitServer},
		{"joined compile", errors.Join(siteerrors.NewCompileError(siteerrors.CodeScriptBundle, "bundle failed", nil)), exitCompile},
		{"filesystem", fmt.Errorf("clean: %w", siteerrors.NewFilesystemError(siteerrors.CodeRemove, "dist", nil)), exitFilesystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestNormalizeFlagName(t *testing.T) {
	assert.Equal(t, pflag.NormalizedName("log-level"), normalizeFlagName(nil, "log_level"))
	assert.Equal(t, pflag.NormalizedName("log-level"), normalizeFlagName(nil, "log.level"))
	assert.Equal(t, pflag.NormalizedName("port"), normalizeFlagName(nil, "port"))
}

func TestServeCommand(t *testing.T) {
	dir := newProject(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- execute(ctx, out, io.Discard, "serve", "--host", "127.0.0.1", "--port", "0")
	}()

	urlPattern := regexp.MustCompile(`Serving dist at (http://\S+)`)
	var url string
	require.Eventually(t, func() bool {
		m := urlPattern.FindStringSubmatch(out.String())
		if m == nil {
			return false
		}
		url = m[1]
		return true
	}, 30*time.Second, 50*time.Millisecond)

	assert.FileExists(t, filepath.Join(dir, "dist", "index.html"))

	resp, err := http.Get(url + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), string(livereload.ScriptTag))

	resp, err = http.Get(url + "/__metrics")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "sitebuild_build_duration_seconds")

	// A partial change rebuilds only the stylesheet.
	cssPath := filepath.Join(dir, "dist", "style.min.css")
	before, err := os.Stat(cssPath)
	require.NoError(t, err)
	testutils.WriteFile(t, dir, "src/styles/_variables.scss",
		"$font-stack: serif;\n$text-color: #111;\n$brand-color: #c92a2a;\n")
	testutils.WaitForFileChange(t, cssPath, before.ModTime(), 15*time.Second)
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(cssPath)
		return err == nil && strings.Contains(string(data), "#c92a2a")
	}, 15*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}

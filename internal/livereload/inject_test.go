package livereload

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectScript(t *testing.T) {
	tag := string(ScriptTag)

	tests := []struct {
		name     string
		page     string
		expected string
	}{
		{
			name:     "before closing body",
			page:     "<html><body><p>hi</p></body></html>",
			expected: "<html><body><p>hi</p>" + tag + "</body></html>",
		},
		{
			name:     "uppercase body",
			page:     "<HTML><BODY>x</BODY></HTML>",
			expected: "<HTML><BODY>x" + tag + "</BODY></HTML>",
		},
		{
			name:     "body text inside script is ignored",
			page:     `<body><script>var s = "</body>";</script></body>`,
			expected: `<body><script>var s = "</body>";</script>` + tag + `</body>`,
		},
		{
			name:     "last body wins",
			page:     "<body>a</body><body>b</body>",
			expected: "<body>a</body><body>b" + tag + "</body>",
		},
		{
			name:     "no body appends",
			page:     "<p>fragment</p>",
			expected: "<p>fragment</p>" + tag,
		},
		{
			name:     "already injected",
			page:     "<body>" + tag + "</body>",
			expected: "<body>" + tag + "</body>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(InjectScript([]byte(tt.page)))
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, 1, bytes.Count([]byte(got), ScriptTag))
		})
	}
}

func serveDir(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	srv := httptest.NewServer(Middleware(http.FileServer(http.Dir(dir))))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestMiddleware(t *testing.T) {
	srv := serveDir(t, map[string]string{
		"index.html":    "<!DOCTYPE html><html><body><h1>Home</h1></body></html>",
		"style.min.css": "body{color:red}",
		"index.min.js":  "console.log('</body>')",
	})

	resp, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, string(ScriptTag)+"</body>")
	assert.Equal(t, int64(len(body)), resp.ContentLength)

	_, css := get(t, srv.URL+"/style.min.css")
	assert.Equal(t, "body{color:red}", css)

	_, js := get(t, srv.URL+"/index.min.js")
	assert.NotContains(t, js, string(ScriptTag))

	resp, _ = get(t, srv.URL+"/missing.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMiddlewareLargePagePassesThrough(t *testing.T) {
	large := "<html><body>" + string(bytes.Repeat([]byte("a"), maxInjectSize+1)) + "</body></html>"
	srv := serveDir(t, map[string]string{"big.html": large})

	_, body := get(t, srv.URL+"/big.html")
	assert.Equal(t, large, body)
}

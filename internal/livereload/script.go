package livereload

import (
	_ "embed"
	"net/http"
)

//go:embed client.js
var clientScript []byte

// ScriptHandler serves the browser client.
func ScriptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(clientScript)
	})
}

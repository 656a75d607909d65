package livereload

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// SocketPath is the WebSocket endpoint.
	SocketPath = "/__livereload"
	// ScriptPath serves the client script.
	ScriptPath = "/__livereload.js"

	maxInjectSize = 4 << 20
)

// ScriptTag is the element injected into HTML pages.
var ScriptTag = []byte(`<script src="` + ScriptPath + `" defer></script>`)

// InjectScript inserts ScriptTag before the last </body> of page. Pages
// without </body> get the tag appended. A page that already references the
// client script is returned unchanged.
func InjectScript(page []byte) []byte {
	z := html.NewTokenizer(bytes.NewReader(page))
	offset := 0
	bodyEnd := -1

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := len(z.Raw())

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if atom.Lookup(name) == atom.Script && hasAttr && hasClientSrc(z) {
				return page
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Body {
				bodyEnd = offset
			}
		}
		offset += raw
	}

	if bodyEnd < 0 {
		out := make([]byte, 0, len(page)+len(ScriptTag))
		out = append(out, page...)
		return append(out, ScriptTag...)
	}

	out := make([]byte, 0, len(page)+len(ScriptTag))
	out = append(out, page[:bodyEnd]...)
	out = append(out, ScriptTag...)
	return append(out, page[bodyEnd:]...)
}

func hasClientSrc(z *html.Tokenizer) bool {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "src" && string(val) == ScriptPath {
			return true
		}
		if !more {
			return false
		}
	}
}

// Middleware injects the client script into every HTML response of next.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		// Range requests would be cut from the page before injection.
		r.Header.Del("Range")

		injector := &injector{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(injector, r)
		injector.finalize()
	})
}

// injector buffers an HTML response so the script can be inserted.
// Responses that are not HTML, or grow past maxInjectSize, pass through.
type injector struct {
	http.ResponseWriter
	status      int
	decided     bool
	passthrough bool
	wroteHeader bool
	buf         bytes.Buffer
}

func (i *injector) WriteHeader(code int) {
	i.status = code
	i.decide()
	if i.passthrough && !i.wroteHeader {
		i.wroteHeader = true
		i.ResponseWriter.WriteHeader(code)
	}
}

func (i *injector) decide() {
	if i.decided {
		return
	}
	i.decided = true

	ct := i.Header().Get("Content-Type")
	isHTML := strings.HasPrefix(ct, "text/html")
	encoded := i.Header().Get("Content-Encoding") != ""
	if !isHTML || encoded || i.status != http.StatusOK {
		i.passthrough = true
	}
}

func (i *injector) Write(p []byte) (int, error) {
	if !i.decided {
		if i.Header().Get("Content-Type") == "" {
			i.Header().Set("Content-Type", http.DetectContentType(p))
		}
		i.WriteHeader(i.status)
	}
	if i.passthrough {
		return i.ResponseWriter.Write(p)
	}

	if i.buf.Len()+len(p) > maxInjectSize {
		i.passthrough = true
		i.flushHeader()
		if _, err := i.ResponseWriter.Write(i.buf.Bytes()); err != nil {
			return 0, err
		}
		i.buf.Reset()
		return i.ResponseWriter.Write(p)
	}
	return i.buf.Write(p)
}

func (i *injector) flushHeader() {
	if i.wroteHeader {
		return
	}
	i.wroteHeader = true
	i.Header().Del("Content-Length")
	i.ResponseWriter.WriteHeader(i.status)
}

func (i *injector) finalize() {
	if i.passthrough {
		if !i.wroteHeader {
			i.wroteHeader = true
			i.ResponseWriter.WriteHeader(i.status)
		}
		return
	}
	if !i.decided {
		// Handler wrote nothing.
		i.ResponseWriter.WriteHeader(i.status)
		return
	}

	page := InjectScript(i.buf.Bytes())
	i.Header().Set("Content-Length", strconv.Itoa(len(page)))
	i.wroteHeader = true
	i.ResponseWriter.WriteHeader(i.status)
	_, _ = io.Copy(i.ResponseWriter, bytes.NewReader(page))
}

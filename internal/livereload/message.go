// Package livereload pushes rebuild notifications to browsers over a
// WebSocket and injects the client script into served HTML pages.
package livereload

import (
	"encoding/json"
	"time"
)

// MessageType tells the client what to do.
type MessageType string

const (
	// MessageReload reloads the whole page.
	MessageReload MessageType = "reload"
	// MessageCSS swaps stylesheets in place without a page reload.
	MessageCSS MessageType = "css"
	// MessageError shows the error overlay.
	MessageError MessageType = "error"
)

// Message is the JSON payload sent to clients.
type Message struct {
	Type      MessageType `json:"type"`
	Path      string      `json:"path,omitempty"`
	Content   string      `json:"content,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Reload asks clients for a full page reload.
func Reload(path string) Message {
	return Message{Type: MessageReload, Path: path, Timestamp: time.Now()}
}

// CSS asks clients to refresh the stylesheet at path.
func CSS(path string) Message {
	return Message{Type: MessageCSS, Path: path, Timestamp: time.Now()}
}

// Error asks clients to show content, an HTML fragment, in the overlay.
func Error(task, content string) Message {
	return Message{Type: MessageError, Path: task, Content: content, Timestamp: time.Now()}
}

func (m Message) encode() ([]byte, error) {
	return json.Marshal(m)
}

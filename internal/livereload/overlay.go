package livereload

import (
	"bytes"
	"context"
)

//go:generate templ generate -f overlay.templ

// ErrorMessage renders the Overlay component for err into an error Message.
// All text in the overlay is escaped.
func ErrorMessage(ctx context.Context, task string, err error) (Message, error) {
	var buf bytes.Buffer
	if renderErr := Overlay(task, err.Error()).Render(ctx, &buf); renderErr != nil {
		return Message{}, renderErr
	}
	return Error(task, buf.String()), nil
}

// Package errors defines the error taxonomy of sitebuild.
//
// Compile, filesystem, server and config errors are fatal to a build or
// serve invocation. During a watch session the same errors are logged and
// the session continues; that decision belongs to the caller, not to the
// error.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeCompile    ErrorType = "compile"
	ErrorTypeFilesystem ErrorType = "filesystem"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes used across the build.
const (
	CodeTemplateCompile = "TEMPLATE_COMPILE"
	CodeTemplateRender  = "TEMPLATE_RENDER"
	CodeStyleCompile    = "STYLE_COMPILE"
	CodeStyleTransform  = "STYLE_TRANSFORM"
	CodeScriptBundle    = "SCRIPT_BUNDLE"
	CodeMetadata        = "METADATA"
	CodeRead            = "READ"
	CodeWrite           = "WRITE"
	CodeRemove          = "REMOVE"
	CodeBind            = "BIND"
	CodeInvalidConfig   = "INVALID_CONFIG"
)

// SiteError is a structured error carrying the failing task and file.
type SiteError struct {
	Type    ErrorType
	Code    string
	Task    string
	Path    string
	Line    int
	Column  int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Task != "" {
		parts = append(parts, "task:"+e.Task)
	}
	if e.Path != "" {
		location := e.Path
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *SiteError) Unwrap() error {
	return e.Cause
}

// Is matches another *SiteError with the same type and code.
func (e *SiteError) Is(target error) bool {
	var t *SiteError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithTask sets the task the error happened in.
func (e *SiteError) WithTask(task string) *SiteError {
	e.Task = task
	return e
}

// WithLocation adds file location information.
func (e *SiteError) WithLocation(path string, line, column int) *SiteError {
	e.Path = path
	e.Line = line
	e.Column = column
	return e
}

// NewCompileError reports a template, stylesheet or script error.
func NewCompileError(code, message string, cause error) *SiteError {
	return &SiteError{Type: ErrorTypeCompile, Code: code, Message: message, Cause: cause}
}

// NewFilesystemError reports a read, write or delete failure on path.
func NewFilesystemError(code, path string, cause error) *SiteError {
	return &SiteError{
		Type:    ErrorTypeFilesystem,
		Code:    code,
		Path:    path,
		Message: strings.ToLower(code) + " failed",
		Cause:   cause,
	}
}

// NewServerError reports a dev server failure.
func NewServerError(code, message string, cause error) *SiteError {
	return &SiteError{Type: ErrorTypeServer, Code: code, Message: message, Cause: cause}
}

// NewConfigError reports invalid configuration.
func NewConfigError(message string, cause error) *SiteError {
	return &SiteError{Type: ErrorTypeConfig, Code: CodeInvalidConfig, Message: message, Cause: cause}
}

// HasErrorType reports whether any *SiteError in err's chain has errType.
func HasErrorType(err error, errType ErrorType) bool {
	for err != nil {
		var se *SiteError
		if !errors.As(err, &se) {
			return false
		}
		if se.Type == errType {
			return true
		}
		err = se.Cause
	}
	return false
}

// IsCompileError checks if an error is a compiler error.
func IsCompileError(err error) bool {
	return HasErrorType(err, ErrorTypeCompile)
}

// IsFilesystemError checks if an error is a filesystem error.
func IsFilesystemError(err error) bool {
	return HasErrorType(err, ErrorTypeFilesystem)
}

// IsServerError checks if an error is a dev server error.
func IsServerError(err error) bool {
	return HasErrorType(err, ErrorTypeServer)
}

// TaskOf returns the task recorded on the first *SiteError in err's chain.
func TaskOf(err error) string {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Task
	}
	return ""
}

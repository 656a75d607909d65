package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/conneroisu/sitebuild/internal/logging"
	"github.com/conneroisu/sitebuild/internal/validation"
)

// MaxDebounce bounds watch.debounce.
const MaxDebounce = 10 * time.Second

var (
	browserTargetRegex = regexp.MustCompile(`^(chrome|edge|firefox|safari|ios|opera)[0-9]+(\.[0-9]+)*$`)
	scriptTargetRegex  = regexp.MustCompile(`^(es5|es20[0-9]{2}|esnext)$`)
	scriptFormats      = []string{"iife", "esm", "cjs"}
	logFormats         = []string{"text", "json"}
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(header string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(header + "\n")
		for _, issue := range issues {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", issue.Field, issue.Message))
			for _, suggestion := range issue.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
	}

	write("Validation Errors:", vr.Errors)
	write("Validation Warnings:", vr.Warnings)

	return builder.String()
}

func (vr *ValidationResult) addError(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

// Validate checks every section of config.
func Validate(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validatePaths(config, result)
	validateStyles(&config.Styles, result)
	validateScripts(&config.Scripts, result)
	validateServer(&config.Server, result)
	validateWatch(&config.Watch, result)
	validateLog(&config.Log, result)

	return result
}

func validatePaths(config *Config, result *ValidationResult) {
	paths := []struct {
		field string
		value string
	}{
		{"source.dir", config.Source.Dir},
		{"output.dir", config.Output.Dir},
		{"metadata.file", config.Metadata.File},
	}
	for _, p := range paths {
		if err := validation.ValidatePath(p.value); err != nil {
			result.addError(p.field, p.value, err.Error(),
				"Use a path relative to the project root",
				"Avoid parent directory references (..)",
			)
		}
	}

	// The cleaner deletes the output directory, so it must never be the
	// project root or contain the sources.
	out := filepath.Clean(config.Output.Dir)
	src := filepath.Clean(config.Source.Dir)
	if out == "." {
		result.addError("output.dir", config.Output.Dir, "output directory cannot be the project root",
			"Use a dedicated directory such as 'dist'")
	} else if out == src || strings.HasPrefix(src+string(filepath.Separator), out+string(filepath.Separator)) {
		result.addError("output.dir", config.Output.Dir, "output directory must not contain the source directory",
			"Use separate directories such as 'src' and 'dist'")
	}

	entry := config.Source.Entry
	if entry == "" || strings.ContainsAny(entry, `/\`) || strings.Contains(entry, ".") {
		result.addError("source.entry", entry, "entry must be a bare file name without extension",
			"Use 'index' to build src/index.pug, src/index.scss and src/index.js")
	}
}

func validateStyles(config *StylesConfig, result *ValidationResult) {
	for i, target := range config.Targets {
		if !browserTargetRegex.MatchString(strings.ToLower(target)) {
			result.addError(fmt.Sprintf("styles.targets[%d]", i), target, "unknown browser target",
				"Use a browser name followed by a version, e.g. 'chrome58' or 'safari11'")
		}
	}
}

func validateScripts(config *ScriptsConfig, result *ValidationResult) {
	if !scriptTargetRegex.MatchString(strings.ToLower(config.Target)) {
		result.addError("scripts.target", config.Target, "unknown language target",
			"Use 'es2017', 'es2020' or 'esnext'")
	}
	if !contains(scriptFormats, strings.ToLower(config.Format)) {
		result.addError("scripts.format", config.Format, "unknown bundle format",
			"Available formats: "+strings.Join(scriptFormats, ", "))
	}
}

func validateServer(config *ServerConfig, result *ValidationResult) {
	// Port 0 asks the system for a free port.
	if config.Port < 0 || config.Port > 65535 {
		result.addError("server.port", config.Port, fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			"Use a port between 1024-65535 for non-privileged access",
			"Port 0 allows system to assign an available port",
		)
	} else if config.Port > 0 && config.Port < 1024 {
		result.addWarning("server.port", config.Port, "port below 1024 requires elevated privileges",
			"Consider using a port above 1024 for development")
	}

	if err := validation.ValidateHost(config.Host); err != nil {
		result.addError("server.host", config.Host, err.Error(),
			"Use 'localhost' for local development",
			"Use '0.0.0.0' to bind to all interfaces",
		)
	}
}

func validateWatch(config *WatchConfig, result *ValidationResult) {
	if config.Debounce < 0 || config.Debounce > MaxDebounce {
		result.addError("watch.debounce", config.Debounce.String(),
			fmt.Sprintf("debounce must be between 0 and %s", MaxDebounce),
			"Use a short delay such as '100ms'")
	}
}

func validateLog(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.addError("log.level", config.Level, err.Error(),
			"Use one of: debug, info, warn, error")
	}
	if !contains(logFormats, strings.ToLower(config.Format)) {
		result.addError("log.format", config.Format, "unknown log format",
			"Use 'text' or 'json'")
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

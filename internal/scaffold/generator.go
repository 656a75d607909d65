// Package scaffold writes a sample project and its configuration file.
package scaffold

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/sitebuild/internal/config"
	siteerrors "github.com/conneroisu/sitebuild/internal/errors"
)

// ConfigFile is the name of the generated configuration file.
const ConfigFile = config.FileName + ".yml"

// Options controls project generation.
type Options struct {
	Dir     string // project root, created if missing
	Name    string
	Version string
	License string
	Force   bool // overwrite existing files
}

// Result lists the files written and the existing files left alone, both
// relative to the project root.
type Result struct {
	Created []string
	Skipped []string
}

// Generator renders project templates.
type Generator struct {
	templates []FileTemplate
}

// NewGenerator returns a generator for the built-in sample project.
func NewGenerator() *Generator {
	return &Generator{templates: projectTemplates}
}

// Generate writes the sample project described by cfg into opts.Dir,
// followed by the configuration file.
func (g *Generator) Generate(opts Options, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Name == "" {
		opts.Name = filepath.Base(opts.Dir)
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	if opts.License == "" {
		opts.License = "MIT"
	}

	ctx := Context{
		Name:    opts.Name,
		Version: opts.Version,
		License: opts.License,
		Entry:   cfg.Source.Entry,
	}

	result := &Result{}
	for _, tmpl := range g.templates {
		rel, err := render(tmpl.Path, ctx)
		if err != nil {
			return result, err
		}
		if !tmpl.Root {
			rel = path.Join(cfg.Source.Dir, rel)
		}
		if tmpl.Root && rel == "package.json" {
			rel = cfg.Metadata.File
		}

		content, err := render(tmpl.Content, ctx)
		if err != nil {
			return result, err
		}
		if err := g.write(opts, rel, []byte(content), result); err != nil {
			return result, err
		}
	}

	data, err := MarshalConfig(cfg)
	if err != nil {
		return result, err
	}
	if err := g.write(opts, ConfigFile, data, result); err != nil {
		return result, err
	}
	return result, nil
}

func (g *Generator) write(opts Options, rel string, data []byte, result *Result) error {
	target := filepath.Join(opts.Dir, filepath.FromSlash(rel))

	if !opts.Force {
		if _, err := os.Stat(target); err == nil {
			result.Skipped = append(result.Skipped, rel)
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeWrite, rel, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return siteerrors.NewFilesystemError(siteerrors.CodeWrite, rel, err)
	}
	result.Created = append(result.Created, rel)
	return nil
}

func render(text string, ctx Context) (string, error) {
	tmpl, err := template.New("scaffold").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse scaffold template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("render scaffold template: %w", err)
	}
	return buf.String(), nil
}

// MarshalConfig renders cfg as YAML suitable for .sitebuild.yml.
func MarshalConfig(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# sitebuild configuration. Every key can be overridden with a\n")
	buf.WriteString("# SITEBUILD_ environment variable, e.g. SITEBUILD_SERVER_PORT=8080.\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode configuration: %w", err)
	}
	return buf.Bytes(), nil
}

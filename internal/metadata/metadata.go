// Package metadata reads the project metadata injected into templates.
package metadata

import (
	"fmt"

	"github.com/spf13/viper"
)

// Project holds the metadata fields rendered into templates.
type Project struct {
	Version string
	License string
}

// Load reads version and license from a package.json style file. Missing
// fields are empty strings.
func Load(path string) (Project, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return Project{}, fmt.Errorf("reading project metadata %s: %w", path, err)
	}

	return Project{
		Version: v.GetString("version"),
		License: v.GetString("license"),
	}, nil
}

// Locals returns the template locals for p.
func (p Project) Locals() map[string]interface{} {
	return map[string]interface{}{
		"version": p.Version,
		"license": p.License,
	}
}

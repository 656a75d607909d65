package build

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var browserTarget = regexp.MustCompile(`^([a-z]+)([0-9]+(?:\.[0-9]+)*)$`)

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"safari":  api.EngineSafari,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
}

// engines converts targets such as "chrome58" into esbuild engines.
func engines(targets []string) ([]api.Engine, error) {
	out := make([]api.Engine, 0, len(targets))
	for _, target := range targets {
		m := browserTarget.FindStringSubmatch(strings.ToLower(target))
		if m == nil {
			return nil, fmt.Errorf("invalid browser target %q", target)
		}
		name, ok := engineNames[m[1]]
		if !ok {
			return nil, fmt.Errorf("unknown browser %q in target %q", m[1], target)
		}
		out = append(out, api.Engine{Name: name, Version: m[2]})
	}
	return out, nil
}

var languageTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

func languageTarget(s string) (api.Target, error) {
	if s == "" {
		return api.ES2017, nil
	}
	t, ok := languageTargets[strings.ToLower(s)]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("unknown language target %q", s)
	}
	return t, nil
}

var formats = map[string]api.Format{
	"iife": api.FormatIIFE,
	"esm":  api.FormatESModule,
	"cjs":  api.FormatCommonJS,
}

func bundleFormat(s string) (api.Format, error) {
	if s == "" {
		return api.FormatIIFE, nil
	}
	f, ok := formats[strings.ToLower(s)]
	if !ok {
		return api.FormatDefault, fmt.Errorf("unknown bundle format %q", s)
	}
	return f, nil
}

// firstMessage formats the first esbuild message with its location.
func firstMessage(msgs []api.Message) (text, file string, line, column int) {
	if len(msgs) == 0 {
		return "", "", 0, 0
	}
	m := msgs[0]
	text = m.Text
	if m.Location != nil {
		file, line, column = m.Location.File, m.Location.Line, m.Location.Column
	}
	if extra := len(msgs) - 1; extra > 0 {
		text = fmt.Sprintf("%s (and %d more)", text, extra)
	}
	return text, file, line, column
}

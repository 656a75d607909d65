package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-03-01T10:20:30Z", time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"2025-03-01T10:20:30", time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"2025-03-01 10:20:30", time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"unknown", time.Time{}},
		{"yesterday", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseTime(tt.input)))
		})
	}
}

func TestBuildInfoFormatting(t *testing.T) {
	release := BuildInfo{
		Version:   "1.4.0",
		GitCommit: "a1b2c3d4e5f6",
		BuildTime: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
		Dirty:     true,
	}
	assert.True(t, release.IsRelease())
	assert.Equal(t, "1.4.0 (a1b2c3d)", release.Short())

	detailed := release.Detailed()
	assert.Contains(t, detailed, "Commit: a1b2c3d4e5f6 (dirty)")
	assert.Contains(t, detailed, "Built: 2025-03-01T10:00:00Z")
	assert.True(t, strings.HasPrefix(detailed, "Version: 1.4.0\n"))

	dev := BuildInfo{Version: "dev", GitCommit: "unknown", GoVersion: "go1.24.4", Platform: "linux/amd64"}
	assert.False(t, dev.IsRelease())
	assert.Equal(t, "dev", dev.Short())
	assert.NotContains(t, dev.Detailed(), "Commit:")
}

func TestGetUsesLinkerValues(t *testing.T) {
	oldVersion, oldCommit, oldTime := Version, GitCommit, BuildTime
	defer func() { Version, GitCommit, BuildTime = oldVersion, oldCommit, oldTime }()

	Version, GitCommit, BuildTime = "2.0.0", "0123456789ab", "2025-01-02T03:04:05Z"
	info := Get()
	assert.Equal(t, "2.0.0", info.Version)
	assert.Equal(t, "0123456789ab", info.GitCommit)
	assert.Equal(t, 2025, info.BuildTime.Year())
	assert.NotEmpty(t, info.GoVersion)
}

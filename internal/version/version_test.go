package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionDefaults(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, BuildTime)
	assert.NotEmpty(t, GitCommit)
}

func TestString(t *testing.T) {
	v, b, c := Version, BuildTime, GitCommit
	t.Cleanup(func() { Version, BuildTime, GitCommit = v, b, c })

	Version, BuildTime, GitCommit = "v1.2.3", "unknown", "unknown"
	assert.Equal(t, "v1.2.3", String())

	BuildTime, GitCommit = "2026-01-02", "abc123"
	assert.Equal(t, "v1.2.3 (commit abc123, built 2026-01-02)", String())
}

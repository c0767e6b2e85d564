package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = origVersion, origCommit, origDate })

	Version, Commit, Date = "v1.2.3", "abc123", "2026-01-02"
	assert.Equal(t, "gotranslator v1.2.3 (commit abc123, built 2026-01-02)", Info())
}

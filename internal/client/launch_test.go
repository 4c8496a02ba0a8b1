package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliveMissingSocket(t *testing.T) {
	assert.False(t, Alive(filepath.Join(t.TempDir(), "nope.sock")))
}

func TestAliveStaleSocketFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.sock")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	assert.False(t, Alive(path))
}

func TestEnsureDaemonMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	err := EnsureDaemon("ghost", filepath.Join(t.TempDir(), "d.sock"), 100*time.Millisecond, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start daemon")
}

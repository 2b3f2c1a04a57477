package boot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/clustermark/galerainit/mysqld"
	"github.com/stretchr/testify/require"
)

func scriptRunner(script string) mysqld.Runner {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", script)
	}
}

func TestInitialize_Fresh(t *testing.T) {
	datadir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(datadir, 0750))

	// Stale content from a partial prior attempt must be cleared.
	require.NoError(t, os.WriteFile(filepath.Join(datadir, "stale.ibd"), []byte("junk"), 0644))

	run := scriptRunner(fmt.Sprintf("mkdir -p %s/mysql", datadir))
	did, err := Initialize(context.Background(), run, "mariadbd", datadir, nil)
	require.NoError(t, err)
	require.True(t, did, "expected initialization to run on a fresh directory")

	if _, err := os.Stat(filepath.Join(datadir, "stale.ibd")); !os.IsNotExist(err) {
		t.Error("Expected stale content to be cleared before initialization")
	}
	require.True(t, Initialized(datadir))
}

func TestInitialize_AlreadyInitialized(t *testing.T) {
	datadir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(datadir, "mysql"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(datadir, "keep.ibd"), []byte("data"), 0644))

	// The runner would fail loudly if invoked; it must not be.
	run := scriptRunner("echo should-not-run >&2; exit 1")
	did, err := Initialize(context.Background(), run, "mariadbd", datadir, nil)
	require.NoError(t, err)
	require.False(t, did, "expected a no-op on an initialized directory")

	if _, err := os.Stat(filepath.Join(datadir, "keep.ibd")); err != nil {
		t.Error("Expected existing data to be untouched")
	}
}

func TestInitialize_RefusesClusterState(t *testing.T) {
	datadir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(datadir, "grastate.dat"), []byte("# GALERA saved state\n"), 0644))

	// The runner would fail loudly if invoked; it must not be.
	run := scriptRunner("echo should-not-run >&2; exit 1")
	did, err := Initialize(context.Background(), run, "mariadbd", datadir, nil)
	require.Error(t, err)
	require.False(t, did)

	// The membership record survives the refusal.
	if _, statErr := os.Stat(filepath.Join(datadir, "grastate.dat")); statErr != nil {
		t.Error("Expected cluster state file to be untouched")
	}
}

func TestInitialize_Failure(t *testing.T) {
	datadir := filepath.Join(t.TempDir(), "data")

	run := scriptRunner("echo boom >&2; exit 1")
	did, err := Initialize(context.Background(), run, "mariadbd", datadir, nil)
	require.Error(t, err)
	require.False(t, did)

	var initErr *InitError
	require.True(t, errors.As(err, &initErr), "expected InitError, got %T", err)
	require.Contains(t, initErr.Output, "boom")

	// The partial directory is left in place for post-mortem inspection.
	if _, statErr := os.Stat(datadir); statErr != nil {
		t.Error("Expected data directory to remain for inspection")
	}
}

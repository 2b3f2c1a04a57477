package boot

import (
	"context"
	"fmt"
	"os"

	"github.com/clustermark/galerainit/mysqld"
	"github.com/rs/zerolog/log"
)

// InitError reports a failed one-time data store creation. The data directory
// is intentionally left as-is for post-mortem inspection.
type InitError struct {
	Output string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("data store initialization failed: %v\n%s", e.Err, e.Output)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Initialize performs the one-time creation of the on-disk data store. When
// the system schema already exists it is a no-op: initialization is strictly
// at-most-once per data directory, across restarts. Returns whether work was
// actually performed.
//
// The bootstrap runs the server's unauthenticated initialization mode with
// transport security disabled; the setup pass that follows immediately locks
// the accounts down before any network listener ever exists.
func Initialize(ctx context.Context, run mysqld.Runner, binary, datadir string, serverArgs []string) (bool, error) {
	if Initialized(datadir) {
		log.Info().Str("datadir", datadir).Msg("Data directory already initialized, skipping")
		return false, nil
	}

	// The cluster state file is read-only to this program. A directory that
	// carries it but lacks the system schema is damaged, not fresh; wiping it
	// would destroy the node's membership record.
	if HasClusterState(datadir) {
		return false, fmt.Errorf("data directory %s carries cluster state but no system schema, refusing destructive initialization", datadir)
	}

	log.Info().Str("datadir", datadir).Msg("Initializing fresh data directory")
	if err := os.RemoveAll(datadir); err != nil {
		return false, fmt.Errorf("failed to clear data directory %s: %w", datadir, err)
	}
	if err := os.MkdirAll(datadir, 0750); err != nil {
		return false, fmt.Errorf("failed to recreate data directory %s: %w", datadir, err)
	}

	args := append([]string{}, serverArgs...)
	args = append(args,
		"--initialize-insecure",
		"--loose-skip-ssl",
		"--skip-networking",
	)

	cmd := run(ctx, binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return false, &InitError{Output: string(out), Err: err}
	}

	log.Info().Str("datadir", datadir).Msg("Data directory initialized")
	return true, nil
}

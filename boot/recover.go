package boot

import (
	"context"
	"os/exec"
	"strings"

	"github.com/clustermark/galerainit/mysqld"
	"github.com/rs/zerolog/log"
)

// RecoverPosition runs the position-recovery helper, when present, to obtain
// the last committed cluster position before rejoining. The helper prints a
// single start-position argument which is forwarded verbatim. A missing or
// failing helper is not fatal: the database's own crash recovery takes over.
func RecoverPosition(ctx context.Context, run mysqld.Runner, helper string, serverArgs []string) string {
	if _, err := exec.LookPath(helper); err != nil {
		log.Debug().Str("helper", helper).Msg("Recovery helper not found, relying on server crash recovery")
		return ""
	}

	cmd := run(ctx, helper, serverArgs...)
	out, err := cmd.Output()
	if err != nil {
		log.Warn().Err(err).Str("helper", helper).Msg("Position recovery failed, relying on server crash recovery")
		return ""
	}

	position := strings.TrimSpace(string(out))
	if position != "" {
		log.Info().Str("position", position).Msg("Recovered cluster position")
	}
	return position
}

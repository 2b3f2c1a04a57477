// Package mysqld wraps the contract with the database server and client
// binaries: argument composition, configuration introspection, child process
// supervision and the terminal exec handoff.
package mysqld

import (
	"context"
	"os/exec"
	"strings"
)

// Runner is the seam through which external binaries are spawned, so tests can
// substitute scripted processes.
type Runner func(ctx context.Context, name string, args ...string) *exec.Cmd

// DefaultRunner spawns real processes.
var DefaultRunner Runner = exec.CommandContext

// Command splits the container's argument vector into the server binary and
// the arguments forwarded to it. A first positional argument that does not
// look like an option selects an alternate server binary; everything else is
// forwarded verbatim.
func Command(defaultBinary string, args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return defaultBinary, args
}

// Package diag produces the post-mortem report printed when node startup
// fails. The report is best effort only: every section degrades to a notice
// when its source is unavailable, and the failure that triggered it is always
// printed first so diagnostics can never mask the original error.
package diag

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/clustermark/galerainit/mysqld"
	"github.com/denisbrodbeck/machineid"
)

// logTail bounds how much of the server error log is reproduced.
const logTail = 50

// Report writes a startup failure report to w. datadir may be empty when the
// failure happened before the data directory was known.
func Report(ctx context.Context, w io.Writer, run mysqld.Runner, datadir string, failure error) {
	fmt.Fprintln(w, "==== node startup failure ====")
	fmt.Fprintf(w, "error: %v\n", failure)

	writeIdentity(w)
	if datadir != "" {
		writeDataDir(w, datadir)
		writeErrorLog(w, filepath.Join(datadir, "error.log"))
	}
	writeJournal(ctx, w, run)

	fmt.Fprintln(w, "==== end of failure report ====")
}

func writeIdentity(w io.Writer) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	fmt.Fprintf(w, "host: %s pid: %d uid: %d\n", hostname, os.Getpid(), os.Getuid())

	if id, err := machineid.ProtectedID("galerainit"); err == nil {
		fmt.Fprintf(w, "machine: %s\n", id)
	}
}

func writeDataDir(w io.Writer, datadir string) {
	entries, err := os.ReadDir(datadir)
	if err != nil {
		fmt.Fprintf(w, "data directory %s: %v\n", datadir, err)
		return
	}

	fmt.Fprintf(w, "data directory %s:\n", datadir)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		fmt.Fprintf(w, "  %s\n", name)
	}
}

func writeErrorLog(w io.Writer, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(w, "server error log %s: %v\n", path, err)
		return
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > logTail {
		lines = lines[len(lines)-logTail:]
	}
	fmt.Fprintf(w, "server error log %s (last %d lines):\n", path, len(lines))
	for _, line := range lines {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

// writeJournal appends recent systemd journal entries when journalctl exists.
// Containers usually have no journal; its absence is not worth a notice.
func writeJournal(ctx context.Context, w io.Writer, run mysqld.Runner) {
	if _, err := exec.LookPath("journalctl"); err != nil {
		return
	}

	cmd := run(ctx, "journalctl", "-n", "50", "--no-pager")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(w, "journalctl: %v\n", err)
		return
	}

	fmt.Fprintln(w, "recent journal entries:")
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

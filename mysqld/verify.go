package mysqld

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// VerifyError reports that the server rejected the merged configuration.
// It carries the exact command and the captured error output.
type VerifyError struct {
	Cmd    string
	Output string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("server rejected configuration (%s): %s", e.Cmd, e.Output)
}

// helpArgs returns the introspection invocation: help mode plus a throwaway
// log-bin index so the dry run cannot collide with real binlog state.
func helpArgs(args []string, tmpDir string) []string {
	full := append([]string{}, args...)
	return append(full,
		"--verbose",
		"--help",
		"--log-bin-index="+filepath.Join(tmpDir, "tmp.index"),
	)
}

// Verify runs the server binary in help mode to confirm the merged
// configuration is syntactically acceptable. Any error output is fatal and is
// never retried; a bad config does not become valid by waiting.
func Verify(ctx context.Context, run Runner, binary string, args []string) error {
	tmpDir, err := os.MkdirTemp("", "galerainit-verify-")
	if err != nil {
		return fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	full := helpArgs(args, tmpDir)
	cmd := run(ctx, binary, full...)

	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	output := strings.TrimSpace(stderr.String())
	if output == "" && runErr != nil {
		output = runErr.Error()
	}
	if output != "" {
		return &VerifyError{
			Cmd:    binary + " " + strings.Join(full, " "),
			Output: output,
		}
	}
	return nil
}

// ExtractValue re-runs the introspection mode and scans its effective-values
// table for an exact key match. The server's own view is authoritative: it
// applies defaults, includes and overrides the orchestrator never sees.
func ExtractValue(ctx context.Context, run Runner, binary string, args []string, key string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "galerainit-verify-")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	cmd := run(ctx, binary, helpArgs(args, tmpDir)...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to introspect server configuration: %w", err)
	}

	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == key {
			return strings.Join(fields[1:], " "), nil
		}
	}
	return "", fmt.Errorf("key %q not present in server configuration output", key)
}

package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// captureStderr redirects standard error for the duration of fn and returns
// what was written to it.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = orig }()

	fn()

	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestRun_ConfigConflictReportsBeforeExit(t *testing.T) {
	t.Setenv("MYSQL_ROOT_PASSWORD", "a")
	t.Setenv("MYSQL_ROOT_PASSWORD_FILE", filepath.Join(t.TempDir(), "pw"))

	var code int
	out := captureStderr(t, func() {
		code = run(nil)
	})

	if code != 1 {
		t.Errorf("Expected exit code 1 for configuration conflict, got %d", code)
	}
	if !strings.Contains(out, "==== node startup failure ====") {
		t.Errorf("Expected diagnostics report on stderr, got:\n%s", out)
	}
	if !strings.Contains(out, "MYSQL_ROOT_PASSWORD and MYSQL_ROOT_PASSWORD_FILE are mutually exclusive") {
		t.Errorf("Expected the original error in the report, got:\n%s", out)
	}
}

func TestRun_MissingExplicitConfigFile(t *testing.T) {
	t.Setenv("GALERAINIT_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))

	var code int
	out := captureStderr(t, func() {
		code = run(nil)
	})

	if code != 1 {
		t.Errorf("Expected exit code 1 for missing config file, got %d", code)
	}
	if !strings.Contains(out, "==== node startup failure ====") {
		t.Errorf("Expected diagnostics report on stderr, got:\n%s", out)
	}
}

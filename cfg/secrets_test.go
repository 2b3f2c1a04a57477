package cfg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveSecret_DirectValue(t *testing.T) {
	t.Setenv("TEST_SECRET", "hunter2")

	got, err := ResolveSecret("TEST_SECRET", "fallback")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("Expected direct value, got %q", got)
	}
}

func TestResolveSecret_FileIndirection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("  hunter2\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_SECRET_FILE", path)

	got, err := ResolveSecret("TEST_SECRET", "fallback")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("Expected trimmed file content, got %q", got)
	}

	// The indirection must not leak to child processes.
	if _, ok := os.LookupEnv("TEST_SECRET_FILE"); ok {
		t.Error("Expected TEST_SECRET_FILE to be cleared after resolution")
	}
}

func TestResolveSecret_BothSet(t *testing.T) {
	t.Setenv("TEST_SECRET", "a")
	t.Setenv("TEST_SECRET_FILE", "/nonexistent")

	_, err := ResolveSecret("TEST_SECRET", "")
	if err == nil {
		t.Fatal("Expected conflict error when both forms are set")
	}

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError, got %T", err)
	}
	if conflict.Name != "TEST_SECRET" || conflict.FileName != "TEST_SECRET_FILE" {
		t.Errorf("Conflict error should name both variables, got %+v", conflict)
	}
}

func TestResolveSecret_Default(t *testing.T) {
	got, err := ResolveSecret("TEST_SECRET_UNSET", "fallback")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "fallback" {
		t.Errorf("Expected default, got %q", got)
	}
}

func TestResolveSecret_UnreadableFile(t *testing.T) {
	t.Setenv("TEST_SECRET_FILE", filepath.Join(t.TempDir(), "missing"))

	if _, err := ResolveSecret("TEST_SECRET", ""); err == nil {
		t.Error("Expected error for unreadable secret file")
	}
}

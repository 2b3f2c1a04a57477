package cfg

import (
	"fmt"
	"os"
	"strings"
)

// ConflictError reports that a variable and its _FILE indirection were both
// set; the two forms are mutually exclusive.
type ConflictError struct {
	Name     string
	FileName string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s and %s are mutually exclusive, set only one", e.Name, e.FileName)
}

// ResolveSecret resolves a configuration value from the environment: the
// direct variable wins, else the contents of the file named by <name>_FILE,
// else def. File contents are trimmed of surrounding whitespace. The _FILE
// variable is removed from the environment after resolution so it never
// reaches child processes. Empty values count as unset.
func ResolveSecret(name, def string) (string, error) {
	fileVar := name + "_FILE"
	value := os.Getenv(name)
	path := os.Getenv(fileVar)

	if value != "" && path != "" {
		return "", &ConflictError{Name: name, FileName: fileVar}
	}

	if path != "" {
		defer os.Unsetenv(fileVar)
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s from %s: %w", fileVar, path, err)
		}
		return strings.TrimSpace(string(content)), nil
	}

	if value != "" {
		return value, nil
	}

	return def, nil
}

package mysqld

import (
	"fmt"
	"os/exec"
	"syscall"
)

// HandoffError reports a failed exec of the final server invocation. There is
// no retry: a failed exec means the binary or arguments are broken, not a
// transient condition.
type HandoffError struct {
	Binary string
	Err    error
}

func (e *HandoffError) Error() string {
	return fmt.Sprintf("failed to hand off to %s: %v", e.Binary, e.Err)
}

func (e *HandoffError) Unwrap() error {
	return e.Err
}

// Exec replaces the current process image with the final server invocation so
// the container runtime's signal handling and exit-code propagation target the
// database directly. On success this call never returns; it only returns a
// HandoffError when the exec itself fails.
func Exec(binary string, args []string, env []string) error {
	path, err := exec.LookPath(binary)
	if err != nil {
		return &HandoffError{Binary: binary, Err: err}
	}

	argv := append([]string{binary}, args...)
	if err := syscall.Exec(path, argv, env); err != nil {
		return &HandoffError{Binary: binary, Err: err}
	}
	return nil
}

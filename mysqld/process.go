package mysqld

import (
	"context"
	"fmt"
	"io"
	"syscall"
	"time"
)

// Handle owns a single spawned server process. Exactly one live Handle exists
// at any time; the owner must stop it (or exec over it) before returning.
type Handle struct {
	pid     int
	signal  func(sig syscall.Signal) error
	done    chan struct{}
	waitErr error
}

// StartProcess spawns the server with the given arguments and begins reaping
// it in the background.
func StartProcess(ctx context.Context, run Runner, binary string, args []string, stdout, stderr io.Writer) (*Handle, error) {
	cmd := run(ctx, binary, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", binary, err)
	}

	h := &Handle{
		pid:  cmd.Process.Pid,
		done: make(chan struct{}),
		signal: func(sig syscall.Signal) error {
			return cmd.Process.Signal(sig)
		},
	}
	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()
	return h, nil
}

// Pid returns the child's process id.
func (h *Handle) Pid() int {
	return h.pid
}

// Alive reports whether the child has not yet exited.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the child exits and returns its exit error, if any.
func (h *Handle) Wait() error {
	<-h.done
	return h.waitErr
}

// StopGracefully sends SIGTERM and waits up to timeout for the child to exit.
// On overrun it escalates to SIGKILL, so the data directory is never left
// contended, and still reports the failure to stop in time.
func (h *Handle) StopGracefully(timeout time.Duration) error {
	if !h.Alive() {
		return nil
	}
	if err := h.signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", h.pid, err)
	}

	select {
	case <-h.done:
		return nil
	case <-time.After(timeout):
		_ = h.signal(syscall.SIGKILL)
		<-h.done
		return fmt.Errorf("process %d did not stop within %s", h.pid, timeout)
	}
}

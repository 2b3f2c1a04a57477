// Package setup provisions a freshly initialized data directory through a
// temporary, network-isolated instance of the database server: it waits for
// the instance to answer over the local socket, performs the idempotent
// provisioning steps, and stops the instance again before the real,
// cluster-enabled server takes over.
package setup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/clustermark/galerainit/cfg"
	"github.com/clustermark/galerainit/mysqld"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
)

// StartupError reports that the setup instance died before answering the
// readiness probe.
type StartupError struct {
	Err error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("setup instance failed to start: %v", e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// ShutdownError reports that the setup instance did not stop on signal within
// the wait.
type ShutdownError struct {
	Err error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("setup instance failed to stop: %v", e.Err)
}

func (e *ShutdownError) Unwrap() error { return e.Err }

// Process is the supervisor's view of the temporary server instance.
// *mysqld.Handle satisfies it.
type Process interface {
	Alive() bool
	Wait() error
	StopGracefully(timeout time.Duration) error
}

// Session is the minimal SQL surface the provisioning steps need; *sql.DB
// satisfies it.
type Session interface {
	PingContext(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Close() error
}

// Supervisor runs the setup pass. The Spawn, Connect and Clock seams exist so
// tests never need a real server.
type Supervisor struct {
	Config   *cfg.Configuration
	Runner   mysqld.Runner
	Clock    Clock
	Interval time.Duration
	StopWait time.Duration
	Spawn    func(ctx context.Context, binary string, args []string) (Process, error)
	Connect  func(socket string) (Session, error)
}

// New returns a Supervisor wired to real processes and the real driver.
func New(config *cfg.Configuration, run mysqld.Runner) *Supervisor {
	return &Supervisor{
		Config:   config,
		Runner:   run,
		Clock:    systemClock{},
		Interval: time.Second,
		StopWait: 30 * time.Second,
		Spawn: func(ctx context.Context, binary string, args []string) (Process, error) {
			return mysqld.StartProcess(ctx, run, binary, args, os.Stdout, os.Stderr)
		},
		Connect: connectSocket,
	}
}

func connectSocket(socket string) (Session, error) {
	dsn := fmt.Sprintf("root@unix(%s)/mysql?multiStatements=true", socket)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: provisioning is a single logical session.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Run executes the setup pass: spawn isolated instance, await readiness,
// provision, stop. The steps are strictly sequential; each must complete
// before the next begins.
func (s *Supervisor) Run(ctx context.Context, binary string, serverArgs []string, socket string) error {
	args := append([]string{}, serverArgs...)
	args = append(args,
		"--skip-networking",
		"--wsrep-provider=none",
		"--socket="+socket,
	)

	log.Info().Str("binary", binary).Str("socket", socket).Msg("Starting isolated setup instance")
	proc, err := s.Spawn(ctx, binary, args)
	if err != nil {
		return &StartupError{Err: err}
	}

	db, err := s.awaitReady(ctx, proc, socket)
	if err != nil {
		return err
	}

	stepErr := s.provision(ctx, db)
	_ = db.Close()
	if stepErr != nil {
		// Best-effort stop so diagnostics run against a quiesced directory.
		_ = proc.StopGracefully(s.StopWait)
		return stepErr
	}

	log.Info().Msg("Provisioning complete, stopping setup instance")
	if err := proc.StopGracefully(s.StopWait); err != nil {
		return &ShutdownError{Err: err}
	}
	return nil
}

// awaitReady polls the socket at a fixed interval for as long as the process
// is alive. There is deliberately no attempt ceiling: an arbitrarily slow
// first start is tolerated, only process death is failure.
func (s *Supervisor) awaitReady(ctx context.Context, proc Process, socket string) (Session, error) {
	log.Info().Msg("Waiting for setup instance to accept connections")
	for {
		if !proc.Alive() {
			return nil, &StartupError{Err: fmt.Errorf("setup instance exited before readiness: %v", proc.Wait())}
		}

		db, err := s.Connect(socket)
		if err == nil {
			if _, err := db.ExecContext(ctx, "SELECT 1"); err == nil {
				log.Info().Msg("Setup instance is ready")
				return db, nil
			}
			_ = db.Close()
		}

		s.Clock.Sleep(s.Interval)
	}
}

// provision runs the idempotent configuration steps in order. Init scripts
// may override later steps' inputs through the override channel.
func (s *Supervisor) provision(ctx context.Context, db Session) error {
	eff := newOverrides(s.Config)

	if err := s.loadTimezones(ctx, db); err != nil {
		return err
	}
	if err := s.createDatabase(ctx, db, eff.Database); err != nil {
		return err
	}
	if err := s.createUser(ctx, db, eff); err != nil {
		return err
	}
	if err := s.runInitFiles(ctx, db, eff); err != nil {
		return err
	}

	plan, err := ResolveRootPlan(eff.Root)
	if err != nil {
		return err
	}
	return s.applyRootBatch(ctx, db, plan)
}

// applyRootBatch executes the composed root statement set as one unit on one
// session, so partial privilege states cannot be observed externally.
func (s *Supervisor) applyRootBatch(ctx context.Context, db Session, plan RootPlan) error {
	batch := JoinBatch(BuildRootBatch(plan))
	if _, err := db.ExecContext(ctx, batch); err != nil {
		return fmt.Errorf("root account setup failed: %w", err)
	}
	log.Info().Msg("Root accounts configured")
	return nil
}

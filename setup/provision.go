package setup

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// loadTimezones generates the timezone tables with the distribution helper
// and loads them through the running setup instance. The helper is known to
// emit one benign warning about the leap-seconds list; that line is
// normalized to a debug notice instead of being treated as failure.
func (s *Supervisor) loadTimezones(ctx context.Context, db Session) error {
	if !s.Config.Timezone.LoadTzdata {
		log.Debug().Msg("Timezone data load disabled")
		return nil
	}

	cmd := s.Runner(ctx, s.Config.Server.TzDataBinary, s.Config.Timezone.ZoneinfoDir)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("timezone data generation failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	for _, line := range strings.Split(stderr.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "Warning: Unable to load") && strings.HasSuffix(line, "Skipping it.") {
			log.Debug().Str("warning", line).Msg("Ignoring known benign timezone warning")
			continue
		}
		log.Warn().Str("tool", s.Config.Server.TzDataBinary).Msg(line)
	}

	script := strings.TrimSpace(stdout.String())
	if script == "" {
		log.Warn().Msg("Timezone helper produced no statements, skipping load")
		return nil
	}
	if _, err := db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("timezone data load failed: %w", err)
	}

	log.Info().Msg("Timezone tables loaded")
	return nil
}

// createDatabase creates the application database when one is configured.
func (s *Supervisor) createDatabase(ctx context.Context, db Session, name string) error {
	if name == "" {
		return nil
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s;", quoteIdentifier(name))); err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	log.Info().Str("database", name).Msg("Application database present")
	return nil
}

// createUser creates the application user and grants it the application
// database. Both user and password must be configured; a half-configured pair
// is skipped with a notice.
func (s *Supervisor) createUser(ctx context.Context, db Session, eff *overrides) error {
	if eff.User == "" && eff.Password == "" {
		return nil
	}
	if eff.User == "" || eff.Password == "" {
		log.Warn().Msg("MYSQL_USER and MYSQL_PASSWORD must both be set to create a user, skipping")
		return nil
	}

	create := fmt.Sprintf("CREATE USER IF NOT EXISTS %s@'%%' IDENTIFIED BY %s;", quoteString(eff.User), quoteString(eff.Password))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create user %s: %w", eff.User, err)
	}

	if eff.Database != "" {
		grant := fmt.Sprintf("GRANT ALL PRIVILEGES ON %s.* TO %s@'%%';", quoteIdentifier(eff.Database), quoteString(eff.User))
		if _, err := db.ExecContext(ctx, grant); err != nil {
			return fmt.Errorf("failed to grant %s on %s: %w", eff.User, eff.Database, err)
		}
	}

	log.Info().Str("user", eff.User).Msg("Application user present")
	return nil
}

// runInitFiles executes every matching file in the custom-init directory in
// stable order, dispatched by type: executable shell scripts run through the
// override channel, SQL files (optionally gzip or zstd compressed) are
// streamed to the instance, anything else is skipped with a notice.
func (s *Supervisor) runInitFiles(ctx context.Context, db Session, eff *overrides) error {
	dir := s.Config.Init.Dir
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("dir", dir).Msg("No init directory")
			return nil
		}
		return fmt.Errorf("failed to read init directory %s: %w", dir, err)
	}

	pattern, err := glob.Compile(s.Config.Init.FilePattern)
	if err != nil {
		return fmt.Errorf("invalid init file pattern %q: %w", s.Config.Init.FilePattern, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !pattern.Match(name) {
			log.Debug().Str("file", name).Msg("Init file does not match pattern, skipping")
			continue
		}
		path := filepath.Join(dir, name)

		var stepErr error
		switch {
		case strings.HasSuffix(name, ".sh"):
			stepErr = s.runInitScript(ctx, path, eff)
		case strings.HasSuffix(name, ".sql"), strings.HasSuffix(name, ".sql.gz"), strings.HasSuffix(name, ".sql.zst"):
			stepErr = s.execSQLFile(ctx, db, path)
		default:
			log.Info().Str("file", name).Msg("Ignoring init file of unknown type")
		}
		if stepErr != nil {
			return fmt.Errorf("init file %s: %w", name, stepErr)
		}
	}
	return nil
}

// runInitScript runs an executable init script with the resolved
// configuration exported in its environment. KEY=VALUE lines it prints on
// stdout become overrides for later provisioning steps; everything else is
// logged as script output. Non-executable scripts are skipped with a notice.
func (s *Supervisor) runInitScript(ctx context.Context, path string, eff *overrides) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode()&0111 == 0 {
		log.Info().Str("file", filepath.Base(path)).Msg("Init script is not executable, skipping")
		return nil
	}

	log.Info().Str("file", filepath.Base(path)).Msg("Running init script")
	cmd := s.Runner(ctx, path)
	cmd.Env = append(os.Environ(), eff.environ()...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("script failed: %w", err)
	}

	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if key, value, found := strings.Cut(line, "="); found && eff.apply(key, value) {
			log.Info().Str("key", key).Msg("Init script override applied")
			continue
		}
		log.Info().Str("script", filepath.Base(path)).Msg(line)
	}
	return scanner.Err()
}

// execSQLFile streams a SQL payload to the setup instance, decompressing
// gzip and zstd payloads first.
func (s *Supervisor) execSQLFile(ctx context.Context, db Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var reader io.Reader = f
	switch {
	case strings.HasSuffix(path, ".sql.gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip open: %w", err)
		}
		defer gz.Close()
		reader = gz
	case strings.HasSuffix(path, ".sql.zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd open: %w", err)
		}
		defer dec.Close()
		reader = dec
	}

	script, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(script)) == 0 {
		return nil
	}

	log.Info().Str("file", filepath.Base(path)).Msg("Executing init SQL")
	if _, err := db.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}
	return nil
}

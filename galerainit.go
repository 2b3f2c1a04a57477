package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/clustermark/galerainit/boot"
	"github.com/clustermark/galerainit/cfg"
	"github.com/clustermark/galerainit/diag"
	"github.com/clustermark/galerainit/mysqld"
	"github.com/clustermark/galerainit/setup"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx := context.Background()
	runner := mysqld.DefaultRunner

	// Load configuration
	config, err := cfg.Load()
	if err != nil {
		return fail(ctx, runner, "", err)
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if config.Logging.Format == "json" {
		writer = os.Stdout
	}
	hostname, _ := os.Hostname()
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Str("host", hostname).
		Logger()

	if config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("galerainit - Galera Node Lifecycle Orchestrator")

	binary, serverArgs := mysqld.Command(config.Server.Binary, args)

	// Phase 1: Verify the merged server configuration before touching disk.
	log.Info().Str("binary", binary).Msg("Verifying server configuration")
	if err := mysqld.Verify(ctx, runner, binary, serverArgs); err != nil {
		return fail(ctx, runner, "", err)
	}

	datadir, err := mysqld.ExtractValue(ctx, runner, binary, serverArgs, "datadir")
	if err != nil {
		return fail(ctx, runner, "", err)
	}
	socket, err := mysqld.ExtractValue(ctx, runner, binary, serverArgs, "socket")
	if err != nil {
		return fail(ctx, runner, "", err)
	}
	serverArgs = append(serverArgs, "--log-error="+filepath.Join(datadir, "error.log"))

	// Phase 2: Decide how this node enters the cluster.
	mode := boot.Classify(config.Cluster.JoinAddresses, boot.HasClusterState(datadir))
	log.Info().
		Str("mode", mode.String()).
		Str("datadir", datadir).
		Strs("join_addresses", config.Cluster.JoinAddresses).
		Msg("Startup mode decided")

	// Phase 3: Initialize and provision fresh nodes. Joining nodes receive
	// their data through the cluster's state transfer instead.
	if mode.Provisions() {
		initialized, err := boot.Initialize(ctx, runner, binary, datadir, serverArgs)
		if err != nil {
			return fail(ctx, runner, datadir, err)
		}
		if initialized {
			log.Info().Msg("Running first-start provisioning")
			if err := setup.New(config, runner).Run(ctx, binary, serverArgs, socket); err != nil {
				return fail(ctx, runner, datadir, err)
			}
		}
	}

	// Phase 4: Recover the last committed cluster position for rejoining nodes.
	var position string
	if mode == boot.RecoverAndJoin {
		position = boot.RecoverPosition(ctx, runner, config.Server.RecoveryBinary, serverArgs)
	}
	serverArgs = append(serverArgs, boot.ExtraArgs(mode, config.Cluster.JoinAddresses, position)...)

	// Phase 5: Replace this process with the real server.
	log.Info().Str("binary", binary).Strs("args", serverArgs).Msg("Handing off to database server")
	err = mysqld.Exec(binary, serverArgs, os.Environ())
	return fail(ctx, runner, datadir, err)
}

// fail prints the failure report and returns the process exit code. The
// datadir may be empty when the failure happened before the server told us
// where it lives.
func fail(ctx context.Context, runner mysqld.Runner, datadir string, err error) int {
	log.Error().Err(err).Msg("Node startup failed")
	diag.Report(ctx, os.Stderr, runner, datadir, err)
	return 1
}

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/tunebridge/tunebridge/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	host := config.Server.Host
	if cmd.String("host") != "" {
		host = cmd.String("host")
	}
	port := config.Server.Port
	if cmd.Int("port") != 0 {
		port = int(cmd.Int("port"))
	}

	engine, err := r.openEngine(config)
	if err != nil {
		return err
	}
	defer engine.Close()

	srv := server.NewServer(engine.manager, engine.catalog, engine.orchestrator, r.logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, host, port); err != nil {
		return err
	}

	r.logger.Info("waiting for running conversions to finish")
	engine.orchestrator.Wait()
	return nil
}

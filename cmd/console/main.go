// Package main provides the entry point for the mission console server:
// one live log viewer exposed over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/narvanalabs/mission-console/internal/api"
	"github.com/narvanalabs/mission-console/internal/missions"
	"github.com/narvanalabs/mission-console/internal/shutdown"
	"github.com/narvanalabs/mission-console/internal/stream"
	"github.com/narvanalabs/mission-console/internal/viewer"
	"github.com/narvanalabs/mission-console/pkg/config"
	"github.com/narvanalabs/mission-console/pkg/logger"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	flagSet := pflag.NewFlagSet("console", pflag.ContinueOnError)
	cfg.AddFlags(flagSet)
	cfg.AddServerFlags(flagSet)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	// Initialize logger
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: opening log file: %v\n", err)
			return 1
		}
		defer f.Close()
		out = f
	}
	log := logger.NewWithWriter(out, logger.ParseLevel(cfg.LogLevel), cfg.LogJSON)

	url, err := stream.Endpoint(cfg.APIURL, cfg.StreamPath)
	if err != nil {
		log.WithError(err).Error("invalid stream endpoint")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coordinator := shutdown.NewCoordinator(
		shutdown.WithTimeout(cfg.ShutdownTimeout),
		shutdown.WithLogger(log.WithComponent("shutdown").Logger),
	)

	// Start the viewer
	v := viewer.New(viewer.Config{
		URL:            url,
		ReconnectDelay: cfg.ReconnectDelay,
		MaxEntries:     cfg.MaxEntries,
		Product:        cfg.Product,
	}, stream.NewWebSocketDialer(cfg.Token, cfg.HandshakeTimeout), log.Logger)
	if err := v.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start viewer")
		return 1
	}
	coordinator.Register(shutdown.NewShutdownerComponent("viewer", v))

	// Start the API server
	ctx = logger.ContextWithViewerID(ctx, v.ID())
	controlPlane := missions.NewClient(cfg.APIURL).WithToken(cfg.Token)
	coordinator.Register(shutdown.NewCloserComponent("control-plane", controlPlane))
	server := api.NewServer(cfg, v, controlPlane, log.WithContext(ctx).WithComponent("api").Logger)
	coordinator.Register(shutdown.NewShutdownerComponent("api", server))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	log.Info("mission console started",
		"listen_addr", cfg.ListenAddr,
		"stream_url", url,
		"viewer_id", v.ID(),
		"version", api.Version,
	)

	// Wait for a signal or a server failure
	waitCtx, stopWaiting := context.WithCancelCause(ctx)
	go func() {
		if err := <-serverErr; err != nil {
			log.WithError(err).Error("API server failed")
			stopWaiting(err)
		}
	}()
	coordinator.WaitForSignal(waitCtx)
	coordinator.Wait()

	if cause := context.Cause(waitCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return 1
	}
	log.Info("mission console shutdown complete")
	return coordinator.ExitCode()
}

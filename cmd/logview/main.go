// logview is a terminal viewer for the mission log stream. It connects
// to the control plane directly and keeps its own buffer; nothing is
// shared with a running console server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/narvanalabs/mission-console/internal/stream"
	"github.com/narvanalabs/mission-console/internal/tui"
	"github.com/narvanalabs/mission-console/internal/viewer"
	"github.com/narvanalabs/mission-console/pkg/config"
	"github.com/narvanalabs/mission-console/pkg/logger"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var follow bool
	flagSet := pflag.NewFlagSet("logview", pflag.ContinueOnError)
	cfg.AddFlags(flagSet)
	flagSet.BoolVar(&follow, "follow", true, "start with auto-follow enabled")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The screen belongs to the TUI; logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	log := logger.NewWithWriter(out, logger.ParseLevel(cfg.LogLevel), true)

	url, err := stream.Endpoint(cfg.APIURL, cfg.StreamPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v := viewer.New(viewer.Config{
		URL:            url,
		ReconnectDelay: cfg.ReconnectDelay,
		MaxEntries:     cfg.MaxEntries,
		Product:        cfg.Product,
	}, stream.NewWebSocketDialer(cfg.Token, cfg.HandshakeTimeout), log.WithComponent("logview").Logger)

	model := tui.NewModel(v, tui.Options{ExportDir: cfg.ExportDir, Follow: follow})
	if err := v.Start(ctx); err != nil {
		return err
	}
	defer v.Stop()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

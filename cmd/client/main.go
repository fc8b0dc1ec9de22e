package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boardgame-client/internal/config"
	"github.com/DoyleJ11/boardgame-client/internal/logging"
	"github.com/DoyleJ11/boardgame-client/internal/matchmaking"
	"github.com/DoyleJ11/boardgame-client/internal/render"
	"github.com/DoyleJ11/boardgame-client/internal/session"
	"github.com/DoyleJ11/boardgame-client/internal/shell"
)

type frontEnd interface {
	shell.Renderer
	shell.Input
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	// The board owns the terminal, so logs go to a file.
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Output: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, log.Sync()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 10 * time.Second}

	locator := matchmaking.NewLocator(
		matchmaking.NewHTTPDirectory(cfg.ServerURL, httpClient),
		matchmaking.WithSeat(cfg.Seat),
		matchmaking.WithPlayerName(cfg.PlayerName),
		matchmaking.WithNumPlayers(cfg.NumPlayers),
		matchmaking.WithLogger(log),
	)

	client := session.NewClient(ctx,
		session.NewWebSocketTransport(cfg.ServerURL, cfg.GameName, nil),
		session.WithBackoff(cfg.ReconnectMin, cfg.ReconnectMax),
		session.WithLogger(log),
	)
	defer func() { err = multierr.Append(err, client.Close()) }()

	var ui frontEnd
	switch cfg.UI {
	case "text":
		ui = render.NewText(os.Stdout, os.Stdin)
	default:
		term, err := render.NewTerminal()
		if err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		defer term.Close()
		ui = term
	}

	log.Info("starting",
		zap.String("server", cfg.ServerURL),
		zap.String("game", cfg.GameName),
		zap.String("seat", cfg.Seat),
	)

	sh := &shell.Shell{
		GameName: cfg.GameName,
		Locator:  locator,
		Session:  client,
		Renderer: ui,
		Input:    ui,
		Log:      log,
	}
	return sh.Run(ctx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/boardgame-client/internal/config"
	"github.com/DoyleJ11/boardgame-client/internal/httpapi"
	"github.com/DoyleJ11/boardgame-client/internal/hub"
	"github.com/DoyleJ11/boardgame-client/internal/logging"
)

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
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, ignoreSyncErr(log.Sync())) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, log)
	defer func() { h.Inbox() <- hub.ShutdownHub{} }()

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(h, httpapi.Options{
			Games:     httpapi.NewGames(cfg.Games...),
			PublicURL: cfg.PublicURL,
			Log:       log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.Strings("games", cfg.Games))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Sync on stderr returns EINVAL on some platforms.
func ignoreSyncErr(err error) error {
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

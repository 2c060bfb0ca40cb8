// Package main provides the claudescope viewer entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/voglerr/claudescope/internal/config"
	"github.com/voglerr/claudescope/internal/server"
	"github.com/voglerr/claudescope/internal/watcher"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "Listen port (default: settings or 37890)")
	dataDir := flag.String("data-dir", "", "Session data root (default: ~/.claude/projects)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if err := config.EnsureDataDir(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *port > 0 {
		cfg.Port = *port
	}
	if *dataDir != "" {
		cfg.DataRoot = *dataDir
	}

	// The AI summarization call lives outside this binary; only cached
	// summaries are served.
	svc, err := server.New(cfg, Version, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assemble viewer service")
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down")
		cancel()
	}()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return svc.Serve(groupCtx)
	})

	if cfg.Watch {
		w, err := watcher.New(cfg.DataRoot, svc.NotifySessionsChanged)
		if err != nil {
			log.Warn().Err(err).Msg("File watcher unavailable, live refresh disabled")
		} else {
			group.Go(func() error {
				return w.Run(groupCtx)
			})
		}
	}

	if err := group.Wait(); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Viewer exited")
	}
}

// Package server exposes the log-parsing core over a local HTTP API and
// serves the dashboard shell. Every request triggers a fresh scan of the
// data root; the only state held here is the project-name resolver (built
// once per process) and the optional AI-summary cache.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/voglerr/claudescope/internal/config"
	"github.com/voglerr/claudescope/internal/insights"
	"github.com/voglerr/claudescope/internal/logs"
	"github.com/voglerr/claudescope/internal/projects"
	"github.com/voglerr/claudescope/internal/search"
	"github.com/voglerr/claudescope/internal/server/sse"
	"github.com/voglerr/claudescope/internal/summary"
	"github.com/voglerr/claudescope/internal/summarycache"
	"github.com/voglerr/claudescope/internal/tokens"
)

// Summarizer generates an AI summary for a session transcript. The actual
// model call lives outside this module; when nil, only cached summaries are
// served.
type Summarizer func(ctx context.Context, session *logs.Session, messages []logs.Message) (string, error)

// Service wires the core components behind the HTTP API.
type Service struct {
	version     string
	config      *config.Config
	locator     *logs.Locator
	segmenter   *summary.Segmenter
	aggregator  *tokens.Aggregator
	engine      *search.Engine
	analyzer    *insights.Analyzer
	scorer      *insights.Scorer
	cache       *summarycache.Cache
	summarize   Summarizer
	broadcaster *sse.Broadcaster
	metrics     *instruments
	router      chi.Router
	startTime   time.Time
}

// New assembles a Service from cfg. The project-name resolver is built once
// here and reused for the process lifetime; a restart picks up newly
// recorded projects.
func New(cfg *config.Config, version string, summarize Summarizer) (*Service, error) {
	resolver := projects.NewResolver(cfg.ProjectMapPath)
	locator := logs.NewLocator(cfg.DataRoot, resolver.Name)

	rules := summary.DefaultRules()
	if cfg.RulesPath != "" {
		loaded, err := summary.LoadRules(cfg.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load segmentation rules: %w", err)
		}
		rules = loaded
	}
	segmenter := summary.NewSegmenter(rules)

	aggregator := tokens.NewAggregator(locator, nil)
	analyzer := insights.NewAnalyzer(locator, segmenter, aggregator, nil)

	var cache *summarycache.Cache
	if cfg.CachePath != "" {
		c, err := summarycache.Open(cfg.CachePath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.CachePath).Msg("Summary cache unavailable")
		} else {
			cache = c
		}
	}

	svc := &Service{
		version:     version,
		config:      cfg,
		locator:     locator,
		segmenter:   segmenter,
		aggregator:  aggregator,
		engine:      search.NewEngine(locator),
		analyzer:    analyzer,
		scorer:      insights.NewScorer(analyzer, cfg.MemoryFilePath),
		cache:       cache,
		summarize:   summarize,
		broadcaster: sse.NewBroadcaster(),
		metrics:     newInstruments(),
		router:      chi.NewRouter(),
		startTime:   time.Now(),
	}
	svc.setupRoutes()
	return svc, nil
}

// Router returns the HTTP handler.
func (s *Service) Router() http.Handler { return s.router }

// Close releases held resources.
func (s *Service) Close() error {
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}

// NotifySessionsChanged pushes a refresh event to connected dashboards.
func (s *Service) NotifySessionsChanged() {
	s.broadcaster.Broadcast(map[string]string{"type": "sessions-changed"})
}

func (s *Service) setupRoutes() {
	s.router.Use(s.requestLogger)

	s.router.Get("/", serveIndex)
	s.router.Handle("/assets/*", assetHandler())
	s.router.Get("/api/events", s.broadcaster.HandleSSE)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/projects", s.handleListProjects)
		r.Route("/projects/{project}", func(r chi.Router) {
			r.Get("/sessions", s.handleListSessions)
			r.Route("/sessions/{session}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Get("/messages", s.handleGetMessages)
				r.Get("/summary", s.handleGetSummary)
				r.Get("/tokens", s.handleSessionTokens)
				r.Get("/ai-summary", s.handleAISummary)
				r.Get("/export", s.handleExport)
			})
		})
		r.Get("/tokens", s.handleAllTokens)
		r.Get("/tokens/analytics", s.handleTokenAnalytics)
		r.Get("/search", s.handleSearch)
		r.Get("/trends", s.handleTrends)
		r.Get("/insights", s.handleInsights)
	})
}

// Serve runs the HTTP server on localhost until ctx is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", s.version).Msg("Viewer listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

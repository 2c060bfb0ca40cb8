package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/voglerr/claudescope/internal/export"
	"github.com/voglerr/claudescope/internal/logs"
	"github.com/voglerr/claudescope/internal/search"
	"github.com/voglerr/claudescope/internal/summarycache"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// pathIDs validates the project and session URL parameters. Invalid
// identifiers are rejected before any filesystem access.
func pathIDs(w http.ResponseWriter, r *http.Request) (project, session string, ok bool) {
	project = chi.URLParam(r, "project")
	session = chi.URLParam(r, "session")
	if err := logs.ValidateID(project); err != nil {
		writeError(w, http.StatusBadRequest, "invalid project identifier")
		return "", "", false
	}
	if session != "" {
		if err := logs.ValidateID(session); err != nil {
			writeError(w, http.StatusBadRequest, "invalid session identifier")
			return "", "", false
		}
	}
	return project, session, true
}

func intParam(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     s.version,
		"uptime":      time.Since(s.startTime).String(),
		"sse_clients": s.broadcaster.ClientCount(),
	})
}

func (s *Service) handleListProjects(w http.ResponseWriter, r *http.Request) {
	type project struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}

	result := []project{}
	for _, key := range s.locator.ListProjects() {
		result = append(result, project{Key: key, Name: s.locator.ProjectName(key)})
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleListSessions(w http.ResponseWriter, r *http.Request) {
	project, _, ok := pathIDs(w, r)
	if !ok {
		return
	}
	sessions := s.locator.ListSessions(project)
	if sessions == nil {
		sessions = []*logs.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	project, session, ok := pathIDs(w, r)
	if !ok {
		return
	}
	meta := s.locator.GetSession(project, session)
	if meta == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Service) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	project, session, ok := pathIDs(w, r)
	if !ok {
		return
	}
	messages := s.locator.GetMessages(project, session)
	if messages == nil {
		messages = []logs.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Service) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	project, session, ok := pathIDs(w, r)
	if !ok {
		return
	}
	path, err := s.locator.SessionPath(project, session)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid identifier")
		return
	}
	result := s.segmenter.Segment(project, session, path)
	if result == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleSessionTokens(w http.ResponseWriter, r *http.Request) {
	project, session, ok := pathIDs(w, r)
	if !ok {
		return
	}
	stats := s.aggregator.SessionStatsFor(project, session)
	if stats == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Service) handleAllTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.aggregator.AllStats())
}

func (s *Service) handleTokenAnalytics(w http.ResponseWriter, r *http.Request) {
	days := intParam(r, "days", 30)
	writeJSON(w, http.StatusOK, s.aggregator.Analytics(days))
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}

	results := s.engine.Search(search.Params{
		Query:    query,
		Project:  q.Get("project"),
		DateFrom: q.Get("from"),
		DateTo:   q.Get("to"),
		Tool:     q.Get("tool"),
	})
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Service) handleTrends(w http.ResponseWriter, r *http.Request) {
	days := intParam(r, "days", 90)
	writeJSON(w, http.StatusOK, s.analyzer.Trends(days))
}

func (s *Service) handleInsights(w http.ResponseWriter, r *http.Request) {
	days := intParam(r, "days", 30)
	writeJSON(w, http.StatusOK, s.scorer.Insights(days))
}

// handleAISummary serves the cached AI-generated summary for a session,
// generating one through the injected summarizer on a cache miss. Without a
// summarizer only cached entries are served.
func (s *Service) handleAISummary(w http.ResponseWriter, r *http.Request) {
	project, session, ok := pathIDs(w, r)
	if !ok {
		return
	}
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "summary cache unavailable")
		return
	}

	path, err := s.locator.SessionPath(project, session)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid identifier")
		return
	}

	if s.summarize == nil {
		text, found := s.cache.Get(r.Context(), project, session, summarycache.Fingerprint(path))
		if !found {
			writeError(w, http.StatusNotFound, "no cached summary")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"summary": text})
		return
	}

	meta := s.locator.GetSession(project, session)
	if meta == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	text, err := s.cache.GetOrGenerate(r.Context(), project, session, path,
		func(ctx context.Context) (string, error) {
			return s.summarize(ctx, meta, s.locator.GetMessages(project, session))
		})
	if err != nil {
		writeError(w, http.StatusBadGateway, "summary generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": text})
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	project, session, ok := pathIDs(w, r)
	if !ok {
		return
	}

	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatMarkdown
	}

	meta := s.locator.GetSession(project, session)
	if meta == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	body, err := export.Render(format, meta, s.locator.GetMessages(project, session))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown export format")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

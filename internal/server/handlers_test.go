package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voglerr/claudescope/internal/config"
	"github.com/voglerr/claudescope/internal/logs"
	"github.com/voglerr/claudescope/internal/summarycache"
)

// fixtureLines is one small but complete session: a topic summary line, two
// user turns and two assistant turns, the second of which edits a file and
// reports usage.
var fixtureLines = []string{
	`{"type":"summary","summary":"Fix login validation"}`,
	`{"type":"user","timestamp":"2025-06-01T09:00:00Z","message":{"role":"user","content":"investigate the login bug"}}`,
	`{"type":"assistant","timestamp":"2025-06-01T09:00:10Z","message":{"role":"assistant","model":"claude-sonnet-4","content":[{"type":"tool_use","name":"Read","input":{"file_path":"/src/auth/login.go"}}],"usage":{"input_tokens":60,"output_tokens":20}}}`,
	`{"type":"user","timestamp":"2025-06-01T09:05:00Z","message":{"role":"user","content":"apply the fix"}}`,
	`{"type":"assistant","timestamp":"2025-06-01T09:05:10Z","message":{"role":"assistant","content":[{"type":"tool_use","name":"Edit","input":{"file_path":"/src/auth/login.go"}}],"usage":{"input_tokens":40,"output_tokens":30}}}`,
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	root := t.TempDir()

	projDir := filepath.Join(root, "proj1")
	require.NoError(t, os.MkdirAll(projDir, 0o755))
	content := strings.Join(fixtureLines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(projDir, "sess-1.jsonl"), []byte(content), 0o600))

	cfg := &config.Config{
		Port:           0,
		DataRoot:       root,
		ProjectMapPath: filepath.Join(root, "absent.json"),
		MemoryFilePath: filepath.Join(root, "CLAUDE.md"),
		CachePath:      filepath.Join(t.TempDir(), "summaries.db"),
	}

	svc, err := New(cfg, "test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, root
}

func get(t *testing.T, svc *Service, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHandleHealth(t *testing.T) {
	svc, _ := newTestService(t)
	rec := get(t, svc, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestHandleListProjects(t *testing.T) {
	svc, _ := newTestService(t)
	rec := get(t, svc, "/api/projects")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]string
	decode(t, rec, &body)
	require.Len(t, body, 1)
	assert.Equal(t, "proj1", body[0]["key"])
}

func TestHandleListSessions(t *testing.T) {
	svc, _ := newTestService(t)
	rec := get(t, svc, "/api/projects/proj1/sessions")
	require.Equal(t, http.StatusOK, rec.Code)

	var sessions []logs.Session
	decode(t, rec, &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, "sess-1", sessions[0].SessionID)
	assert.Equal(t, "Fix login validation", sessions[0].Summary)
	assert.Equal(t, "2025-06-01T09:00:00Z", sessions[0].FirstMessageTime)
	assert.Equal(t, "2025-06-01T09:05:10Z", sessions[0].LastMessageTime)
}

func TestHandleListSessions_InvalidProject(t *testing.T) {
	svc, _ := newTestService(t)
	rec := get(t, svc, "/api/projects/bad%20key/sessions")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetSession(t *testing.T) {
	svc, _ := newTestService(t)

	rec := get(t, svc, "/api/projects/proj1/sessions/sess-1/")
	require.Equal(t, http.StatusOK, rec.Code)

	var session logs.Session
	decode(t, rec, &session)
	assert.Equal(t, "sess-1", session.SessionID)

	assert.Equal(t, http.StatusNotFound, get(t, svc, "/api/projects/proj1/sessions/nope/").Code)
}

func TestHandleGetMessages(t *testing.T) {
	svc, _ := newTestService(t)
	rec := get(t, svc, "/api/projects/proj1/sessions/sess-1/messages")
	require.Equal(t, http.StatusOK, rec.Code)

	var messages []logs.Message
	decode(t, rec, &messages)
	// Tool-only assistant turns carry no text and are not transcript entries.
	require.Len(t, messages, 2)
	assert.Equal(t, "investigate the login bug", messages[0].Content)
	assert.Equal(t, "apply the fix", messages[1].Content)
}

func TestHandleGetSummary(t *testing.T) {
	svc, _ := newTestService(t)
	rec := get(t, svc, "/api/projects/proj1/sessions/sess-1/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		TotalTasks int `json:"total_tasks"`
		Tasks      []struct {
			UserMessage string   `json:"user_message"`
			Phases      []string `json:"phases"`
		} `json:"tasks"`
	}
	decode(t, rec, &body)
	require.Equal(t, 2, body.TotalTasks)
	assert.Equal(t, "investigate the login bug", body.Tasks[0].UserMessage)
	assert.Equal(t, []string{"investigation"}, body.Tasks[0].Phases)
	assert.Equal(t, []string{"implementation"}, body.Tasks[1].Phases)
}

func TestHandleSessionTokens(t *testing.T) {
	svc, _ := newTestService(t)
	rec := get(t, svc, "/api/projects/proj1/sessions/sess-1/tokens")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Usage logs.TokenUsage `json:"usage"`
		Model string          `json:"model"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 100, body.Usage.InputTokens)
	assert.Equal(t, 50, body.Usage.OutputTokens)
	assert.Equal(t, "claude-sonnet-4", body.Model)
}

func TestHandleSearch(t *testing.T) {
	svc, _ := newTestService(t)

	assert.Equal(t, http.StatusBadRequest, get(t, svc, "/api/search").Code)

	rec := get(t, svc, "/api/search?q=login")
	require.Equal(t, http.StatusOK, rec.Code)

	var results []struct {
		SessionID    string `json:"session_id"`
		TotalMatches int    `json:"total_matches"`
	}
	decode(t, rec, &results)
	require.Len(t, results, 1)
	assert.Equal(t, "sess-1", results[0].SessionID)
	assert.Equal(t, 1, results[0].TotalMatches)

	rec = get(t, svc, "/api/search?q=nonexistent-needle")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHandleExport(t *testing.T) {
	svc, _ := newTestService(t)

	rec := get(t, svc, "/api/projects/proj1/sessions/sess-1/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "# Session sess-1")

	rec = get(t, svc, "/api/projects/proj1/sessions/sess-1/export?format=json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusBadRequest,
		get(t, svc, "/api/projects/proj1/sessions/sess-1/export?format=pdf").Code)
}

func TestHandleAISummary_CacheOnly(t *testing.T) {
	svc, _ := newTestService(t)

	// No summarizer and no cached entry.
	assert.Equal(t, http.StatusNotFound,
		get(t, svc, "/api/projects/proj1/sessions/sess-1/ai-summary").Code)

	path, err := svc.locator.SessionPath("proj1", "sess-1")
	require.NoError(t, err)
	require.NoError(t, svc.cache.Put(context.Background(), "proj1", "sess-1",
		summarycache.Fingerprint(path), "A short AI summary."))

	rec := get(t, svc, "/api/projects/proj1/sessions/sess-1/ai-summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "A short AI summary.", body["summary"])
}

func TestHandleAISummary_WithSummarizer(t *testing.T) {
	svc, _ := newTestService(t)
	calls := 0
	svc.summarize = func(ctx context.Context, session *logs.Session, messages []logs.Message) (string, error) {
		calls++
		return "generated", nil
	}

	rec := get(t, svc, "/api/projects/proj1/sessions/sess-1/ai-summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)

	// Second request is served from the cache.
	rec = get(t, svc, "/api/projects/proj1/sessions/sess-1/ai-summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)
}

func TestHandleAISummary_GenerationFailure(t *testing.T) {
	svc, _ := newTestService(t)
	svc.summarize = func(ctx context.Context, session *logs.Session, messages []logs.Message) (string, error) {
		return "", errors.New("model unavailable")
	}

	assert.Equal(t, http.StatusBadGateway,
		get(t, svc, "/api/projects/proj1/sessions/sess-1/ai-summary").Code)
}

func TestHandleTrendsAndInsights(t *testing.T) {
	svc, _ := newTestService(t)

	// The fixture session is far in the past relative to the default window;
	// the endpoints still answer with empty aggregates.
	rec := get(t, svc, "/api/trends?days=90")
	require.Equal(t, http.StatusOK, rec.Code)

	var trends struct {
		Days int `json:"days"`
	}
	decode(t, rec, &trends)
	assert.Equal(t, 90, trends.Days)

	rec = get(t, svc, "/api/insights")
	require.Equal(t, http.StatusOK, rec.Code)

	var insights struct {
		Days         int `json:"days"`
		SessionCount int `json:"session_count"`
	}
	decode(t, rec, &insights)
	assert.Equal(t, 30, insights.Days)
	assert.Equal(t, 0, insights.SessionCount)
}

func TestDashboardAssets(t *testing.T) {
	svc, _ := newTestService(t)

	rec := get(t, svc, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = get(t, svc, "/assets/app.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")

	assert.Equal(t, http.StatusNotFound, get(t, svc, "/assets/missing.js").Code)
}

func TestHandleTokenAnalytics_DefaultDays(t *testing.T) {
	svc, _ := newTestService(t)
	rec := get(t, svc, "/api/tokens/analytics")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Days int `json:"days"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 30, body.Days)
}

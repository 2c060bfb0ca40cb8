package logs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSession writes a session fixture and returns its path.
func writeSession(t *testing.T, dir, project, session string, lines ...string) string {
	t.Helper()
	projectDir := filepath.Join(dir, project)
	require.NoError(t, os.MkdirAll(projectDir, 0o750))
	path := filepath.Join(projectDir, session+".jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func userLine(ts, text string) string {
	return `{"type":"user","uuid":"u","timestamp":"` + ts + `","message":{"role":"user","content":"` + text + `"}}`
}

func assistantLine(ts, text string) string {
	return `{"type":"assistant","uuid":"a","timestamp":"` + ts + `","message":{"role":"assistant","content":[{"type":"text","text":"` + text + `"}]}}`
}

func TestParseSessionMeta(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "proj", "s1",
		`{"type":"summary","summary":"Fix the login bug"}`,
		userLine("2025-06-01T09:00:00Z", "please fix login"),
		assistantLine("2025-06-01T09:00:05Z", "on it"),
		`{"type":"summary","summary":"a second summary that must lose"}`,
		userLine("2025-06-01T09:10:00Z", "thanks"),
	)

	session := ParseSessionMeta("proj", "s1", path)
	require.NotNil(t, session)
	assert.Equal(t, "Fix the login bug", session.Summary)
	assert.Equal(t, "2025-06-01T09:00:00Z", session.FirstMessageTime)
	assert.Equal(t, "2025-06-01T09:10:00Z", session.LastMessageTime)
}

func TestParseSessionMeta_NoQualifyingLines(t *testing.T) {
	dir := t.TempDir()

	// Only a summary line: no session.
	path := writeSession(t, dir, "proj", "only-summary",
		`{"type":"summary","summary":"orphan"}`)
	assert.Nil(t, ParseSessionMeta("proj", "only-summary", path))

	// Malformed lines only: no session.
	path = writeSession(t, dir, "proj", "garbage", `{not json`, `also not json`)
	assert.Nil(t, ParseSessionMeta("proj", "garbage", path))

	// Missing file: no session, no error.
	assert.Nil(t, ParseSessionMeta("proj", "missing", filepath.Join(dir, "proj", "missing.jsonl")))
}

func TestParseMessages(t *testing.T) {
	dir := t.TempDir()
	path := writeSession(t, dir, "proj", "s1",
		`{"type":"summary","summary":"s"}`,
		userLine("2025-06-01T09:00:00Z", "first"),
		`{broken json line`,
		`{"type":"assistant","uuid":"a1","timestamp":"2025-06-01T09:00:05Z","message":{"role":"assistant","content":[{"type":"tool_use","name":"Read","input":{"file_path":"/x.go"}}]}}`,
		assistantLine("2025-06-01T09:00:10Z", "done"),
	)

	messages := ParseMessages(path)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, LineTypeUser, messages[0].Type)
	assert.Equal(t, "done", messages[1].Content)
	assert.Equal(t, LineTypeAssistant, messages[1].Type)
}

func TestParseMessages_MissingFile(t *testing.T) {
	assert.Empty(t, ParseMessages(filepath.Join(t.TempDir(), "nope.jsonl")))
}

func TestValidateID_TableDriven(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"simple", "abc-123_DEF", true},
		{"uuid-like", "3f2b8a1c-9d4e-4f6a-b2c1-000000000000", true},
		{"empty", "", false},
		{"dotdot", "../etc", false},
		{"slash", "a/b", false},
		{"backslash", `a\b`, false},
		{"nul", "a\x00b", false},
		{"space", "a b", false},
		{"dot", "a.b", false},
		{"too long", strings.Repeat("x", 300), false},
		{"max length", strings.Repeat("x", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidIdentifier)
			}
		})
	}
}

func TestLocator(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "proj1", "older",
		userLine("2025-06-01T09:00:00Z", "old request"))
	writeSession(t, dir, "proj1", "newer",
		userLine("2025-06-02T09:00:00Z", "new request"))
	writeSession(t, dir, "proj2", "empty-file") // single empty line, no session

	loc := NewLocator(dir, func(key string) string { return "/decoded/" + key })

	assert.Equal(t, []string{"proj1", "proj2"}, loc.ListProjects())

	sessions := loc.ListSessions("proj1")
	require.Len(t, sessions, 2)
	assert.Equal(t, "newer", sessions[0].SessionID)
	assert.Equal(t, "older", sessions[1].SessionID)
	assert.Equal(t, "/decoded/proj1", sessions[0].ProjectName)

	assert.Empty(t, loc.ListSessions("proj2"))
	assert.Empty(t, loc.ListSessions("no-such-project"))

	session := loc.GetSession("proj1", "older")
	require.NotNil(t, session)
	assert.Equal(t, "2025-06-01T09:00:00Z", session.FirstMessageTime)

	assert.Nil(t, loc.GetSession("../etc", "older"))
	assert.Nil(t, loc.GetSession("proj1", "a/b"))
	assert.Empty(t, loc.GetMessages("proj1", "a/b"))

	_, err := loc.SessionPath("proj1", "../../secret")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestLocator_MissingRoot(t *testing.T) {
	loc := NewLocator(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	assert.Empty(t, loc.ListProjects())
	assert.Empty(t, loc.ListSessions("anything"))
}

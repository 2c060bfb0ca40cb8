// Package logs reads Claude Code session transcripts: append-only JSONL
// files, one per session, grouped into project directories under the data
// root. Everything here is a pure projection of file contents; nothing is
// cached or mutated.
package logs

import (
	"github.com/goccy/go-json"
)

// Line types observed in session files. Anything else is carried through
// as-is and ignored by the aggregators.
const (
	LineTypeUser      = "user"
	LineTypeAssistant = "assistant"
	LineTypeSummary   = "summary"
)

// TokenUsage holds the raw API usage counts from a single assistant
// message. Fields are summable across turns, sessions and days.
type TokenUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// IsZero reports whether no tokens were counted at all.
func (u TokenUsage) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0 &&
		u.CacheCreationInputTokens == 0 && u.CacheReadInputTokens == 0
}

// MessageBody is the nested "message" object inside a log line. Content is
// either a plain string or an array of content blocks, so it stays raw until
// ExtractText / ExtractToolCalls project it.
type MessageBody struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *TokenUsage     `json:"usage"`
}

// LogLine is one JSON object per physical line of a session file.
type LogLine struct {
	Type      string      `json:"type"`
	UUID      string      `json:"uuid"`
	Timestamp string      `json:"timestamp"`
	Summary   string      `json:"summary"`
	Message   MessageBody `json:"message"`
}

// DecodeLine parses one raw JSONL line. A malformed line yields ok=false and
// is skipped by every caller; one corrupt line must never abort parsing of a
// whole session file, so decode failures are swallowed, not surfaced.
func DecodeLine(raw []byte) (LogLine, bool) {
	var line LogLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return LogLine{}, false
	}
	return line, true
}

// Message is a display-oriented transcript entry. Only text content is
// retained; thinking and tool_use blocks are dropped here and resurface via
// tool-call extraction in the summary layer.
type Message struct {
	UUID      string `json:"uuid"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Session is the per-file metadata record. It exists iff at least one
// user/assistant line carries a timestamp.
type Session struct {
	ProjectKey       string `json:"project_key"`
	ProjectName      string `json:"project_name"`
	SessionID        string `json:"session_id"`
	Summary          string `json:"summary,omitempty"`
	FirstMessageTime string `json:"first_message_time"`
	LastMessageTime  string `json:"last_message_time"`
}

// ToolCall is a structured action invocation emitted by the assistant within
// a turn. The timestamp is the enclosing message's; tool calls have no
// independent clock.
type ToolCall struct {
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	Timestamp string         `json:"timestamp"`
}

package summary

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/voglerr/claudescope/internal/logs"
)

const (
	maxUserMessageLen = 200
	maxCommandLen     = 50
)

// Task is a user-initiated unit of work: one qualifying user message and
// every assistant tool call up to the next qualifying user message.
type Task struct {
	ID             int             `json:"id"`
	UserMessage    string          `json:"user_message"`
	Timestamp      string          `json:"timestamp"`
	Phases         []string        `json:"phases"`
	ToolCalls      []logs.ToolCall `json:"tool_calls"`
	FilesRead      []string        `json:"files_read"`
	FilesModified  []string        `json:"files_modified"`
	FilesCreated   []string        `json:"files_created"`
	CommandsRun    []string        `json:"commands_run"`
	AssistantTurns int             `json:"assistant_turns"`
}

// SessionSummary is the task-segmented view of one session.
type SessionSummary struct {
	ProjectKey     string   `json:"project_key"`
	SessionID      string   `json:"session_id"`
	TotalTasks     int      `json:"total_tasks"`
	Tasks          []*Task  `json:"tasks"`
	FilesRead      []string `json:"files_read"`
	FilesModified  []string `json:"files_modified"`
	FilesCreated   []string `json:"files_created"`
	SearchCount    int      `json:"search_count"`
	WebSearchCount int      `json:"web_search_count"`
	TotalToolCalls int      `json:"total_tool_calls"`
}

// Segmenter runs the single forward pass over session lines that produces
// tasks. It is stateless between calls; one Segmenter may serve concurrent
// requests.
type Segmenter struct {
	rules *Rules
}

// NewSegmenter creates a Segmenter using rules, or the default rule table
// when rules is nil.
func NewSegmenter(rules *Rules) *Segmenter {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Segmenter{rules: rules}
}

// Rules exposes the active rule table, mainly for the insights layer.
func (s *Segmenter) Rules() *Rules { return s.rules }

// segmentState carries the mutable single-pass state: one open task plus the
// session-global accumulators.
type segmentState struct {
	rules   *Rules
	summary *SessionSummary
	current *Task

	// De-duplication sets keyed by category plus full file path, so a file
	// that is read and later edited shows up in both lists.
	taskSeen    map[string]bool
	sessionSeen map[string]bool
}

// Segment parses path into a task-segmented summary. Returns nil when the
// file does not exist; a file with no qualifying user line yields a summary
// with zero tasks. The result is a pure function of the file contents.
func (s *Segmenter) Segment(projectKey, sessionID, path string) *SessionSummary {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	st := &segmentState{
		rules: s.rules,
		summary: &SessionSummary{
			ProjectKey: projectKey,
			SessionID:  sessionID,
		},
		sessionSeen: make(map[string]bool),
	}

	logs.EachLine(path, func(line logs.LogLine) {
		switch line.Type {
		case logs.LineTypeUser:
			st.onUserLine(line)
		case logs.LineTypeAssistant:
			st.onAssistantLine(line)
		}
	})
	st.flush()

	st.summary.TotalTasks = len(st.summary.Tasks)
	return st.summary
}

// onUserLine opens a new task when the line is a genuine user turn rather
// than a tool-result or system echo.
func (st *segmentState) onUserLine(line logs.LogLine) {
	text := logs.ExtractText(line.Message.Content)
	if text == "" || st.rules.SkipsUserLine(text) {
		return
	}

	st.flush()
	st.current = &Task{
		ID:          len(st.summary.Tasks) + 1,
		UserMessage: cleanUserMessage(text),
		Timestamp:   line.Timestamp,
	}
	st.taskSeen = make(map[string]bool)
}

// onAssistantLine accumulates tool calls onto the open task and buckets them
// into the per-task and session-global sets.
func (st *segmentState) onAssistantLine(line logs.LogLine) {
	if st.current != nil {
		st.current.AssistantTurns++
	}

	calls := logs.ExtractToolCalls(line.Message.Content, line.Timestamp)
	for _, call := range calls {
		st.summary.TotalToolCalls++

		switch call.Name {
		case "Glob", "Grep":
			st.summary.SearchCount++
		case "WebSearch", "WebFetch":
			st.summary.WebSearchCount++
		}

		if st.current == nil {
			continue
		}
		st.current.ToolCalls = append(st.current.ToolCalls, call)

		switch call.Name {
		case "Read":
			st.addFile("read", call, &st.current.FilesRead, &st.summary.FilesRead)
		case "Edit":
			st.addFile("modified", call, &st.current.FilesModified, &st.summary.FilesModified)
		case "Write":
			st.addFile("created", call, &st.current.FilesCreated, &st.summary.FilesCreated)
		case "Bash":
			if cmd, ok := call.Input["command"].(string); ok && cmd != "" {
				// Every invocation counts; commands are not de-duplicated.
				st.current.CommandsRun = append(st.current.CommandsRun, truncate(cmd, maxCommandLen))
			}
		}
	}
}

// addFile records a file-path tool argument, de-duplicated per task and per
// session, displayed as the last two path segments.
func (st *segmentState) addFile(category string, call logs.ToolCall, taskList, sessionList *[]string) {
	path, ok := call.Input["file_path"].(string)
	if !ok || path == "" {
		return
	}
	key := category + "\x00" + path
	short := shortPath(path)
	if !st.taskSeen[key] {
		st.taskSeen[key] = true
		*taskList = append(*taskList, short)
	}
	if !st.sessionSeen[key] {
		st.sessionSeen[key] = true
		*sessionList = append(*sessionList, short)
	}
}

// flush classifies and emits the open task, if any.
func (st *segmentState) flush() {
	if st.current == nil {
		return
	}
	st.current.Phases = st.rules.Classify(st.current.ToolCalls)
	st.summary.Tasks = append(st.summary.Tasks, st.current)
	st.current = nil
}

var wrapperTagRe = regexp.MustCompile(`</?(?:command-message|command-name)>`)
var anyTagRe = regexp.MustCompile(`<[^>]*>`)

// cleanUserMessage strips known wrapper tags, then any remaining
// angle-bracket tags, and truncates to the display length.
func cleanUserMessage(text string) string {
	text = wrapperTagRe.ReplaceAllString(text, "")
	text = anyTagRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	return truncate(text, maxUserMessageLen)
}

// truncate cuts s to max characters, not bytes, so multibyte text is never
// split mid-rune.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// shortPath keeps the last two path segments for display.
func shortPath(path string) string {
	dir, base := filepath.Split(filepath.Clean(path))
	parent := filepath.Base(filepath.Clean(dir))
	if parent == "." || parent == string(filepath.Separator) || parent == "" {
		return base
	}
	return filepath.Join(parent, base)
}

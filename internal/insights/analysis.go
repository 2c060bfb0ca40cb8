// Package insights derives cross-session analytics: activity trends, tool
// distributions, a day-by-hour heatmap and the heuristic coaching score.
// Everything builds on per-session analysis records produced by the shared
// session parser and task segmenter; there is no separate scanning logic.
package insights

import (
	"time"

	"github.com/voglerr/claudescope/internal/logs"
	"github.com/voglerr/claudescope/internal/summary"
	"github.com/voglerr/claudescope/internal/tokens"
)

// SessionAnalysis is the per-session record every trend and score is
// computed from.
type SessionAnalysis struct {
	ProjectKey  string
	ProjectName string
	SessionID   string
	Timestamp   string

	TaskCount      int
	AssistantTurns []int // per task, segmenter order
	ToolCalls      []logs.ToolCall
	UserMessages   []string // full text of qualifying user turns
	EditedFiles    []string // multiset: one entry per Edit/Write call
	Usage          logs.TokenUsage

	HasEditOrWrite bool
	HasTestOrBuild bool
	HasPlanMode    bool
	HasSubagent    bool
}

// Analyzer builds analysis records over the locator's corpus.
type Analyzer struct {
	loc       *logs.Locator
	segmenter *summary.Segmenter
	aggr      *tokens.Aggregator
	now       func() time.Time
}

// NewAnalyzer creates an Analyzer. now may be nil for time.Now.
func NewAnalyzer(loc *logs.Locator, segmenter *summary.Segmenter, aggr *tokens.Aggregator, now func() time.Time) *Analyzer {
	if now == nil {
		now = time.Now
	}
	return &Analyzer{loc: loc, segmenter: segmenter, aggr: aggr, now: now}
}

// Analyze scans every session whose anchor timestamp falls inside the
// inclusive [now-days, now] window. A session that fails to parse is
// skipped; the aggregate never aborts over one bad unit.
func (a *Analyzer) Analyze(days int) []SessionAnalysis {
	now := a.now()
	cutoff := now.AddDate(0, 0, -days)

	var analyses []SessionAnalysis
	for _, projectKey := range a.loc.ListProjects() {
		projectName := a.loc.ProjectName(projectKey)
		paths, ids := a.loc.SessionFiles(projectKey)
		for i, path := range paths {
			analysis := a.analyzeSession(projectKey, projectName, ids[i], path)
			if analysis == nil {
				continue
			}
			ts, err := time.Parse(time.RFC3339Nano, analysis.Timestamp)
			if err != nil || ts.Before(cutoff) || ts.After(now) {
				continue
			}
			analyses = append(analyses, *analysis)
		}
	}
	return analyses
}

func (a *Analyzer) analyzeSession(projectKey, projectName, sessionID, path string) *SessionAnalysis {
	stats := a.aggr.SessionStatsFor(projectKey, sessionID)
	if stats == nil {
		return nil
	}
	sess := a.segmenter.Segment(projectKey, sessionID, path)
	if sess == nil {
		return nil
	}

	analysis := &SessionAnalysis{
		ProjectKey:  projectKey,
		ProjectName: projectName,
		SessionID:   sessionID,
		Timestamp:   stats.Timestamp,
		TaskCount:   sess.TotalTasks,
		Usage:       stats.Usage,
	}

	for _, task := range sess.Tasks {
		analysis.AssistantTurns = append(analysis.AssistantTurns, task.AssistantTurns)
		analysis.ToolCalls = append(analysis.ToolCalls, task.ToolCalls...)

		for _, phase := range task.Phases {
			switch phase {
			case summary.PhasePlanning:
				analysis.HasPlanMode = true
			case summary.PhaseVerification:
				analysis.HasTestOrBuild = true
			}
		}
	}

	for _, call := range analysis.ToolCalls {
		switch call.Name {
		case "Edit", "Write":
			analysis.HasEditOrWrite = true
			if file, ok := call.Input["file_path"].(string); ok && file != "" {
				analysis.EditedFiles = append(analysis.EditedFiles, file)
			}
		case "Task":
			analysis.HasSubagent = true
		}
	}

	// Task-level user messages are display-truncated; instruction-quality
	// scoring needs the full text, so re-project the message list keeping
	// the turns the segmenter would have opened a task for.
	analysis.UserMessages = fullUserMessages(path, a.segmenter.Rules())

	return analysis
}

// fullUserMessages returns the untruncated text of every qualifying user
// turn in file order.
func fullUserMessages(path string, rules *summary.Rules) []string {
	var msgs []string
	for _, msg := range logs.ParseMessages(path) {
		if msg.Type == logs.LineTypeUser && !rules.SkipsUserLine(msg.Content) {
			msgs = append(msgs, msg.Content)
		}
	}
	return msgs
}

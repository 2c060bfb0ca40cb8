// Package search implements free-text search across every session file: a
// linear case-insensitive substring scan, not an inverted index. The corpus
// is re-read on every query and nothing is cached, so the per-session match
// cap exists only to bound response size.
package search

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/voglerr/claudescope/internal/logs"
)

// MaxMatchesPerSession caps how many matches a single session contributes.
// Occurrences past the cap are silently dropped in file order.
const MaxMatchesPerSession = 10

const snippetContext = 50

// Params are the search filters. Query is required; the rest are optional.
// Dates are "2006-01-02" strings interpreted in local time, DateFrom at
// 00:00 and DateTo at 23:59:59.999, both inclusive.
type Params struct {
	Query    string
	Project  string
	DateFrom string
	DateTo   string
	Tool     string
}

// Match is one substring occurrence inside a session.
type Match struct {
	Role      string `json:"role"`
	Snippet   string `json:"snippet"`
	Timestamp string `json:"timestamp"`
	LineIndex int    `json:"line_index"`
}

// Result aggregates a session's matches.
type Result struct {
	ProjectKey   string  `json:"project_key"`
	ProjectName  string  `json:"project_name"`
	SessionID    string  `json:"session_id"`
	Timestamp    string  `json:"timestamp"`
	TotalMatches int     `json:"total_matches"`
	Matches      []Match `json:"matches"`
}

// Engine scans the locator's session corpus per query.
type Engine struct {
	loc *logs.Locator
}

// NewEngine creates a search Engine over loc.
func NewEngine(loc *logs.Locator) *Engine {
	return &Engine{loc: loc}
}

// Search runs one query over every project and session, returning sessions
// with at least one match, sorted by total matches descending (stable
// otherwise). Sessions failing the date or tool filter are dropped even when
// they matched text.
func (e *Engine) Search(params Params) []Result {
	if params.Query == "" {
		return nil
	}

	dateFrom, dateTo, ok := parseDateRange(params.DateFrom, params.DateTo)
	if !ok {
		return nil
	}

	var results []Result
	for _, projectKey := range e.loc.ListProjects() {
		projectName := e.loc.ProjectName(projectKey)
		if !projectMatches(params.Project, projectKey, projectName) {
			continue
		}

		paths, ids := e.loc.SessionFiles(projectKey)
		for i, path := range paths {
			result := e.scanSession(path, params)
			if result == nil {
				continue
			}
			if !withinRange(result.Timestamp, dateFrom, dateTo) {
				continue
			}
			result.ProjectKey = projectKey
			result.ProjectName = projectName
			result.SessionID = ids[i]
			results = append(results, *result)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalMatches > results[j].TotalMatches
	})
	return results
}

// scanSession runs the single pass over one file: anchor timestamp, tool
// filter flag and up to MaxMatchesPerSession text matches. Returns nil when
// the session should be dropped.
func (e *Engine) scanSession(path string, params Params) *Result {
	query := strings.ToLower(params.Query)
	toolWanted := strings.ToLower(params.Tool)
	toolSatisfied := toolWanted == ""

	result := &Result{}

	logs.EachLineIndexed(path, func(index int, line logs.LogLine) {
		if result.Timestamp == "" && line.Timestamp != "" {
			result.Timestamp = line.Timestamp
		}

		if line.Type != logs.LineTypeUser && line.Type != logs.LineTypeAssistant {
			return
		}

		if !toolSatisfied && line.Type == logs.LineTypeAssistant {
			for _, call := range logs.ExtractToolCalls(line.Message.Content, line.Timestamp) {
				if strings.ToLower(call.Name) == toolWanted {
					toolSatisfied = true
					break
				}
			}
		}

		if len(result.Matches) >= MaxMatchesPerSession {
			return
		}

		text := logs.ExtractText(line.Message.Content)
		if text == "" {
			return
		}

		lower := strings.ToLower(text)
		for from := 0; len(result.Matches) < MaxMatchesPerSession; {
			idx := strings.Index(lower[from:], query)
			if idx < 0 {
				break
			}
			at := from + idx
			result.Matches = append(result.Matches, Match{
				Role:      line.Type,
				Snippet:   snippet(text, at, len(query)),
				Timestamp: line.Timestamp,
				LineIndex: index,
			})
			from = at + len(query)
		}
	})

	result.TotalMatches = len(result.Matches)
	if result.TotalMatches == 0 || !toolSatisfied {
		return nil
	}
	return result
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// snippet cuts ±snippetContext characters around a match, collapses
// whitespace and marks truncation boundaries with ellipses. The window is
// widened rune by rune so multibyte text is never split mid-sequence.
func snippet(text string, at, matchLen int) string {
	begin := at
	for i := 0; i < snippetContext && begin > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:begin])
		begin -= size
	}
	end := at + matchLen
	for i := 0; i < snippetContext && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}

	s := whitespaceRe.ReplaceAllString(text[begin:end], " ")
	if begin > 0 {
		s = "..." + s
	}
	if end < len(text) {
		s += "..."
	}
	return s
}

// projectMatches implements the project filter as an OR of exact-raw,
// exact-decoded, substring-raw and substring-decoded (substring forms
// case-insensitive). No tie-break between the four conditions is needed.
func projectMatches(filter, projectKey, projectName string) bool {
	if filter == "" {
		return true
	}
	if filter == projectKey || filter == projectName {
		return true
	}
	lower := strings.ToLower(filter)
	return strings.Contains(strings.ToLower(projectKey), lower) ||
		strings.Contains(strings.ToLower(projectName), lower)
}

// parseDateRange turns the date filter strings into inclusive local-time
// bounds. ok is false when a supplied date does not parse.
func parseDateRange(fromStr, toStr string) (from, to time.Time, ok bool) {
	if fromStr != "" {
		t, err := time.ParseInLocation("2006-01-02", fromStr, time.Local)
		if err != nil {
			return from, to, false
		}
		from = t
	}
	if toStr != "" {
		t, err := time.ParseInLocation("2006-01-02", toStr, time.Local)
		if err != nil {
			return from, to, false
		}
		to = t.Add(24*time.Hour - time.Millisecond)
	}
	return from, to, true
}

// withinRange checks a session anchor timestamp against the bounds. A
// session without a parseable anchor is only kept when no date filter was
// given.
func withinRange(timestamp string, from, to time.Time) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}
	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return false
	}
	if !from.IsZero() && ts.Before(from) {
		return false
	}
	if !to.IsZero() && ts.After(to) {
		return false
	}
	return true
}

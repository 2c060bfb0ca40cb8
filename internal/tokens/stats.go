// Package tokens aggregates per-turn token usage into session, daily and
// period totals, plus display cost estimates.
package tokens

import (
	"os"
	"sort"
	"time"

	"github.com/voglerr/claudescope/internal/logs"
)

// SessionStats is the token accounting of one session.
type SessionStats struct {
	ProjectKey  string         `json:"project_key"`
	ProjectName string         `json:"project_name"`
	SessionID   string         `json:"session_id"`
	Usage       logs.TokenUsage `json:"usage"`
	Model       string         `json:"model"`
	Timestamp   string         `json:"timestamp"`
	CostUSD     float64        `json:"cost_usd"`
}

// DailyUsage is the calendar-day bucket of an analytics period.
type DailyUsage struct {
	Date    string          `json:"date"`
	Usage   logs.TokenUsage `json:"usage"`
	CostUSD float64         `json:"cost_usd"`
}

// Analytics is the period aggregation returned by Aggregator.Analytics.
type Analytics struct {
	Days                int             `json:"days"`
	Daily               []DailyUsage    `json:"daily"`
	Sessions            []SessionStats  `json:"sessions"`
	Totals              logs.TokenUsage `json:"totals"`
	TotalCostUSD        float64         `json:"total_cost_usd"`
	EstimatedUserTokens int             `json:"estimated_user_tokens"`
}

// Aggregator computes token statistics over the locator's session files.
// Stateless; every call re-reads the files.
type Aggregator struct {
	loc *logs.Locator
	now func() time.Time
}

// NewAggregator creates an Aggregator. now may be nil for time.Now.
func NewAggregator(loc *logs.Locator, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{loc: loc, now: now}
}

// SessionStatsFor computes one session's token stats, or nil for invalid
// identifiers or a missing file. The first non-empty model string wins; a
// mid-session model switch is not tracked. The anchor timestamp is the first
// timestamp of any line type, which deliberately differs from the session
// parser's user/assistant-only rule; an empty file anchors to "now".
func (a *Aggregator) SessionStatsFor(projectKey, sessionID string) *SessionStats {
	path, err := a.loc.SessionPath(projectKey, sessionID)
	if err != nil {
		return nil
	}
	return a.statsForFile(projectKey, sessionID, path)
}

func (a *Aggregator) statsForFile(projectKey, sessionID, path string) *SessionStats {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	stats := &SessionStats{
		ProjectKey:  projectKey,
		ProjectName: a.loc.ProjectName(projectKey),
		SessionID:   sessionID,
	}

	logs.EachLine(path, func(line logs.LogLine) {
		if stats.Timestamp == "" && line.Timestamp != "" {
			stats.Timestamp = line.Timestamp
		}
		if line.Type != logs.LineTypeAssistant {
			return
		}
		if line.Message.Usage != nil {
			stats.Usage.Add(*line.Message.Usage)
		}
		if stats.Model == "" && line.Message.Model != "" {
			stats.Model = line.Message.Model
		}
	})

	if stats.Timestamp == "" {
		stats.Timestamp = a.now().Format(time.RFC3339)
	}
	stats.CostUSD = CalculateTokenCost(stats.Usage)
	return stats
}

// AllStats scans every session of every project, keeping sessions with
// nonzero input+output tokens, newest anchor timestamp first.
func (a *Aggregator) AllStats() []SessionStats {
	var all []SessionStats
	for _, projectKey := range a.loc.ListProjects() {
		paths, ids := a.loc.SessionFiles(projectKey)
		for i, path := range paths {
			stats := a.statsForFile(projectKey, ids[i], path)
			if stats == nil || stats.Usage.InputTokens+stats.Usage.OutputTokens == 0 {
				continue
			}
			all = append(all, *stats)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp > all[j].Timestamp
	})
	return all
}

// Analytics filters AllStats to the inclusive [now-days, now] window,
// re-buckets into UTC calendar days and sums period totals.
func (a *Aggregator) Analytics(days int) *Analytics {
	now := a.now()
	cutoff := now.AddDate(0, 0, -days)

	result := &Analytics{Days: days}
	byDay := make(map[string]*DailyUsage)

	for _, stats := range a.AllStats() {
		ts, err := time.Parse(time.RFC3339Nano, stats.Timestamp)
		if err != nil {
			continue
		}
		if ts.Before(cutoff) || ts.After(now) {
			continue
		}

		result.Sessions = append(result.Sessions, stats)
		result.Totals.Add(stats.Usage)
		result.EstimatedUserTokens += a.estimateUserTokens(stats.ProjectKey, stats.SessionID)

		day := ts.UTC().Format("2006-01-02")
		bucket, ok := byDay[day]
		if !ok {
			bucket = &DailyUsage{Date: day}
			byDay[day] = bucket
		}
		bucket.Usage.Add(stats.Usage)
	}

	for _, bucket := range byDay {
		bucket.CostUSD = CalculateTokenCost(bucket.Usage)
		result.Daily = append(result.Daily, *bucket)
	}
	sort.Slice(result.Daily, func(i, j int) bool {
		return result.Daily[i].Date < result.Daily[j].Date
	})

	result.TotalCostUSD = CalculateTokenCost(result.Totals)
	return result
}

// estimateUserTokens sums the estimated prompt-side tokens of a session's
// user turns.
func (a *Aggregator) estimateUserTokens(projectKey, sessionID string) int {
	path, err := a.loc.SessionPath(projectKey, sessionID)
	if err != nil {
		return 0
	}
	total := 0
	for _, msg := range logs.ParseMessages(path) {
		if msg.Type == logs.LineTypeUser {
			total += EstimateTokens(msg.Content)
		}
	}
	return total
}

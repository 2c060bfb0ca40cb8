package insights

import (
	"math"
	"sort"
	"time"

	"github.com/voglerr/claudescope/internal/logs"
	"github.com/voglerr/claudescope/internal/tokens"
)

// WeeklyPoint is one ISO-week bucket of a trend series. Week is the Monday
// the week starts on, formatted 2006-01-02.
type WeeklyPoint struct {
	Week  string  `json:"week"`
	Value float64 `json:"value"`
}

// ProjectActivity is the per-project slice of the analysis set.
type ProjectActivity struct {
	ProjectKey  string          `json:"project_key"`
	ProjectName string          `json:"project_name"`
	Sessions    int             `json:"sessions"`
	Tasks       int             `json:"tasks"`
	Usage       logs.TokenUsage `json:"usage"`
}

// ToolUsage is one entry of the tool distribution.
type ToolUsage struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// HeatmapCell is one non-zero cell of the day-of-week by hour-of-day
// activity heatmap (sparse representation, local time).
type HeatmapCell struct {
	DayOfWeek int `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	Hour      int `json:"hour"`        // 0..23
	Count     int `json:"count"`
}

// TrendData is the full trend aggregation for a date window.
type TrendData struct {
	Days            int               `json:"days"`
	SessionsPerWeek []WeeklyPoint     `json:"sessions_per_week"`
	Complexity      []WeeklyPoint     `json:"complexity"`
	TokenEfficiency []WeeklyPoint     `json:"token_efficiency"`
	Projects        []ProjectActivity `json:"projects"`
	Tools           []ToolUsage       `json:"tools"`
	Heatmap         []HeatmapCell     `json:"heatmap"`
}

// Trends computes the time-bucketed activity view over the window.
func (a *Analyzer) Trends(days int) *TrendData {
	return buildTrends(days, a.Analyze(days))
}

func buildTrends(days int, analyses []SessionAnalysis) *TrendData {
	trends := &TrendData{Days: days}

	type weekAccum struct {
		sessions   int
		complexity float64
		editWrites int
		tokenTotal int
	}
	weeks := make(map[string]*weekAccum)
	projects := make(map[string]*ProjectActivity)
	toolCounts := make(map[string]int)
	heatmap := make(map[[2]int]int)
	totalCalls := 0

	for i := range analyses {
		analysis := &analyses[i]

		ts, err := time.Parse(time.RFC3339Nano, analysis.Timestamp)
		if err != nil {
			continue
		}
		local := ts.Local()

		week := weekStart(local).Format("2006-01-02")
		accum, ok := weeks[week]
		if !ok {
			accum = &weekAccum{}
			weeks[week] = accum
		}
		accum.sessions++
		accum.complexity += float64(analysis.TaskCount + uniqueCount(analysis.EditedFiles))
		accum.tokenTotal += analysis.Usage.InputTokens + analysis.Usage.OutputTokens

		heatmap[[2]int{int(local.Weekday()), local.Hour()}]++

		project, ok := projects[analysis.ProjectKey]
		if !ok {
			project = &ProjectActivity{
				ProjectKey:  analysis.ProjectKey,
				ProjectName: analysis.ProjectName,
			}
			projects[analysis.ProjectKey] = project
		}
		project.Sessions++
		project.Tasks += analysis.TaskCount
		project.Usage.Add(analysis.Usage)

		for _, call := range analysis.ToolCalls {
			toolCounts[call.Name]++
			totalCalls++
			if call.Name == "Edit" || call.Name == "Write" {
				accum.editWrites++
			}
		}
	}

	for week, accum := range weeks {
		trends.SessionsPerWeek = append(trends.SessionsPerWeek,
			WeeklyPoint{Week: week, Value: float64(accum.sessions)})
		trends.Complexity = append(trends.Complexity,
			WeeklyPoint{Week: week, Value: accum.complexity / float64(accum.sessions)})
		trends.TokenEfficiency = append(trends.TokenEfficiency,
			WeeklyPoint{Week: week, Value: tokens.EditsPer100K(accum.editWrites, accum.tokenTotal)})
	}
	sortWeekly(trends.SessionsPerWeek)
	sortWeekly(trends.Complexity)
	sortWeekly(trends.TokenEfficiency)

	for _, project := range projects {
		trends.Projects = append(trends.Projects, *project)
	}
	sort.Slice(trends.Projects, func(i, j int) bool {
		return trends.Projects[i].Sessions > trends.Projects[j].Sessions
	})

	for name, count := range toolCounts {
		percent := 0.0
		if totalCalls > 0 {
			percent = math.Round(float64(count)/float64(totalCalls)*1000) / 10
		}
		trends.Tools = append(trends.Tools, ToolUsage{Name: name, Count: count, Percent: percent})
	}
	sort.Slice(trends.Tools, func(i, j int) bool {
		if trends.Tools[i].Count != trends.Tools[j].Count {
			return trends.Tools[i].Count > trends.Tools[j].Count
		}
		return trends.Tools[i].Name < trends.Tools[j].Name
	})

	for cell, count := range heatmap {
		trends.Heatmap = append(trends.Heatmap, HeatmapCell{DayOfWeek: cell[0], Hour: cell[1], Count: count})
	}
	sort.Slice(trends.Heatmap, func(i, j int) bool {
		if trends.Heatmap[i].DayOfWeek != trends.Heatmap[j].DayOfWeek {
			return trends.Heatmap[i].DayOfWeek < trends.Heatmap[j].DayOfWeek
		}
		return trends.Heatmap[i].Hour < trends.Heatmap[j].Hour
	})

	return trends
}

// weekStart returns the Monday 00:00 of t's ISO week, in t's location.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -offset)
}

func uniqueCount(items []string) int {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		seen[item] = true
	}
	return len(seen)
}

func sortWeekly(points []WeeklyPoint) {
	sort.Slice(points, func(i, j int) bool { return points[i].Week < points[j].Week })
}

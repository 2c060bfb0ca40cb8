package tokens

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voglerr/claudescope/internal/logs"
)

func TestCalculateTokenCost(t *testing.T) {
	assert.Equal(t, 0.0, CalculateTokenCost(logs.TokenUsage{}))

	// 1000 in, 500 out, 200 cache write, 100 cache read.
	usage := logs.TokenUsage{
		InputTokens:              1000,
		OutputTokens:             500,
		CacheCreationInputTokens: 200,
		CacheReadInputTokens:     100,
	}
	assert.InDelta(t, 0.01128, CalculateTokenCost(usage), 1e-9)

	// Linear in each field.
	double := logs.TokenUsage{
		InputTokens:              2000,
		OutputTokens:             1000,
		CacheCreationInputTokens: 400,
		CacheReadInputTokens:     200,
	}
	assert.InDelta(t, 2*CalculateTokenCost(usage), CalculateTokenCost(double), 1e-9)
}

func TestCalculateTokenCost_PartitionSum(t *testing.T) {
	a := logs.TokenUsage{InputTokens: 123, OutputTokens: 456}
	b := logs.TokenUsage{InputTokens: 789, CacheReadInputTokens: 1000}
	sum := a
	sum.Add(b)
	assert.InDelta(t, CalculateTokenCost(a)+CalculateTokenCost(b), CalculateTokenCost(sum), 1e-9)
}

func TestEditsPer100K(t *testing.T) {
	assert.Equal(t, 0.0, EditsPer100K(5, 0))
	assert.InDelta(t, 10.0, EditsPer100K(10, 100_000), 1e-9)
	assert.InDelta(t, 4.0, EditsPer100K(2, 50_000), 1e-9)
}

func writeLines(t *testing.T, dir, project, session, content string) {
	t.Helper()
	projDir := filepath.Join(dir, project)
	require.NoError(t, os.MkdirAll(projDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projDir, session+".jsonl"), []byte(content), 0o600))
}

func assistantUsage(ts, model string, in, out int) string {
	return `{"type":"assistant","timestamp":"` + ts + `","message":{"role":"assistant","model":"` + model + `","content":[{"type":"text","text":"ok"}],"usage":{"input_tokens":` + strconv.Itoa(in) + `,"output_tokens":` + strconv.Itoa(out) + `}}}` + "\n"
}

func TestSessionStatsFor_FirstModelWins(t *testing.T) {
	root := t.TempDir()
	writeLines(t, root, "proj", "s1",
		`{"type":"summary","summary":"topic"}`+"\n"+
			assistantUsage("2025-06-01T10:00:00Z", "claude-sonnet-4", 100, 50)+
			assistantUsage("2025-06-01T10:05:00Z", "claude-opus-4", 200, 80))

	aggr := NewAggregator(logs.NewLocator(root, nil), nil)
	stats := aggr.SessionStatsFor("proj", "s1")
	require.NotNil(t, stats)

	assert.Equal(t, "claude-sonnet-4", stats.Model)
	assert.Equal(t, 300, stats.Usage.InputTokens)
	assert.Equal(t, 130, stats.Usage.OutputTokens)
	// Anchor is the first timestamped line of any type; the summary line
	// here has none, so the first assistant line anchors.
	assert.Equal(t, "2025-06-01T10:00:00Z", stats.Timestamp)
}

func TestSessionStatsFor_EmptyFileAnchorsToNow(t *testing.T) {
	root := t.TempDir()
	writeLines(t, root, "proj", "s1", "")

	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	aggr := NewAggregator(logs.NewLocator(root, nil), func() time.Time { return fixed })
	stats := aggr.SessionStatsFor("proj", "s1")
	require.NotNil(t, stats)
	assert.Equal(t, fixed.Format(time.RFC3339), stats.Timestamp)
	assert.True(t, stats.Usage.IsZero())
}

func TestSessionStatsFor_InvalidID(t *testing.T) {
	aggr := NewAggregator(logs.NewLocator(t.TempDir(), nil), nil)
	assert.Nil(t, aggr.SessionStatsFor("proj", "../escape"))
	assert.Nil(t, aggr.SessionStatsFor("proj", "missing"))
}

func TestAllStats_FiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	writeLines(t, root, "proj", "old", assistantUsage("2025-06-01T10:00:00Z", "m", 10, 5))
	writeLines(t, root, "proj", "new", assistantUsage("2025-06-10T10:00:00Z", "m", 20, 5))
	// Zero input+output tokens gets dropped.
	writeLines(t, root, "proj", "empty", assistantUsage("2025-06-05T10:00:00Z", "m", 0, 0))

	aggr := NewAggregator(logs.NewLocator(root, nil), nil)
	all := aggr.AllStats()
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].SessionID)
	assert.Equal(t, "old", all[1].SessionID)
}

func TestAnalytics_DailyBucketsUTC(t *testing.T) {
	root := t.TempDir()
	// Two sessions on the same UTC day, one the day after.
	writeLines(t, root, "proj", "a", assistantUsage("2025-06-10T08:00:00Z", "m", 100, 10))
	writeLines(t, root, "proj", "b", assistantUsage("2025-06-10T20:00:00Z", "m", 200, 20))
	writeLines(t, root, "proj", "c", assistantUsage("2025-06-11T03:00:00Z", "m", 50, 5))
	// Outside the window.
	writeLines(t, root, "proj", "stale", assistantUsage("2025-01-01T00:00:00Z", "m", 999, 999))

	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	aggr := NewAggregator(logs.NewLocator(root, nil), func() time.Time { return fixed })

	analytics := aggr.Analytics(30)
	require.NotNil(t, analytics)
	assert.Equal(t, 30, analytics.Days)
	assert.Len(t, analytics.Sessions, 3)
	assert.Equal(t, 350, analytics.Totals.InputTokens)
	assert.Equal(t, 35, analytics.Totals.OutputTokens)

	require.Len(t, analytics.Daily, 2)
	assert.Equal(t, "2025-06-10", analytics.Daily[0].Date)
	assert.Equal(t, 300, analytics.Daily[0].Usage.InputTokens)
	assert.Equal(t, "2025-06-11", analytics.Daily[1].Date)
	assert.Equal(t, 50, analytics.Daily[1].Usage.InputTokens)

	assert.InDelta(t, CalculateTokenCost(analytics.Totals), analytics.TotalCostUSD, 1e-9)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	n := EstimateTokens("hello world, this is a short prompt")
	assert.Greater(t, n, 0)
	assert.Less(t, n, 20)
}

package insights

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/voglerr/claudescope/internal/summary"
	"github.com/voglerr/claudescope/internal/tokens"
)

// Axis weights for the overall score.
const (
	weightBestPractice       = 0.3
	weightInstructionQuality = 0.4
	weightWorkDensity        = 0.3
)

// primitiveBashRe marks shell commands that have a dedicated tool
// equivalent. Tool-appropriateness scores the share of Bash calls that are
// not one of these.
var primitiveBashRe = regexp.MustCompile(`^(cat |head |tail |grep |rg |find |sed |awk |echo\s*>)`)

// filePathRe detects a file-path-like substring in a user message, the
// context-provision signal.
var filePathRe = regexp.MustCompile(`(\/[\w./-]+\.\w+|[\w-]+\.\w{1,5})`)

// correctionPhrases are the redo/undo/that's-wrong phrases counted by the
// correction-rate score.
var correctionPhrases = []string{
	"違う", "ちがう", "そうじゃない", "やり直し", "やりなおし",
	"戻して", "もどして", "キャンセル", "間違い", "間違って",
}

// SubScore is one named 0-100 component of an axis.
type SubScore struct {
	Category string  `json:"category"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Finding  string  `json:"finding"`
}

// AxisScore is the unweighted mean of an axis's sub-scores.
type AxisScore struct {
	Score     float64    `json:"score"`
	SubScores []SubScore `json:"sub_scores"`
}

// Result is the full coaching model output.
type Result struct {
	Days               int       `json:"days"`
	SessionCount       int       `json:"session_count"`
	Overall            int       `json:"overall"`
	BestPractice       AxisScore `json:"best_practice"`
	InstructionQuality AxisScore `json:"instruction_quality"`
	WorkDensity        AxisScore `json:"work_density"`
	Recommendations    []string  `json:"recommendations"`
}

// advice maps a sub-score category to its coaching text. Uncategorized
// sub-scores fall back to their own finding.
var advice = map[string]string{
	"tool-appropriateness": "Prefer the dedicated Read/Grep/Glob tools over raw shell equivalents like cat and grep.",
	"plan-mode":            "Use plan mode or TodoWrite for multi-step work so tasks start with an explicit plan.",
	"verification":         "Run the project's tests or build after making changes to catch regressions early.",
	"sub-agent":            "Delegate exploration and research to sub-agents to keep the main context focused.",
	"config-file":          "Add a CLAUDE.md with project conventions so every session starts with shared context.",
	"specificity":          "Write longer, more specific instructions; short prompts force the assistant to guess.",
	"context-provision":    "Mention concrete file paths in instructions so work starts in the right place.",
	"instruction-accuracy": "Front-load requirements into the first instruction to reduce back-and-forth turns.",
	"correction-rate":      "Frequent corrections suggest unclear initial instructions; state the goal up front.",
	"token-efficiency":     "Sessions consume many tokens per change; narrow the scope or split sessions.",
	"phase-balance":        "Most tool calls are exploratory; push more sessions through to implementation.",
	"rework":               "The same files are edited repeatedly; slow down and verify before re-editing.",
}

const allGoodMessage = "Solid working habits across the board. Keep doing what you are doing."

const recommendationCount = 5

// Scorer computes the coaching model over an analysis window.
type Scorer struct {
	analyzer *Analyzer
	// configFilePath is checked for existence by the config-file sub-score
	// (typically ~/.claude/CLAUDE.md).
	configFilePath string
}

// NewScorer creates a Scorer over analyzer.
func NewScorer(analyzer *Analyzer, configFilePath string) *Scorer {
	return &Scorer{analyzer: analyzer, configFilePath: configFilePath}
}

// Insights scores the sessions of the window on the three axes. The
// thresholds below drive user-visible coaching text and are fixed.
func (s *Scorer) Insights(days int) *Result {
	analyses := s.analyzer.Analyze(days)

	result := &Result{
		Days:               days,
		SessionCount:       len(analyses),
		BestPractice:       axis(s.bestPracticeScores(analyses)),
		InstructionQuality: axis(instructionQualityScores(analyses)),
		WorkDensity:        axis(workDensityScores(analyses, s.analyzer.segmenter.Rules())),
	}

	result.Overall = int(math.Round(
		weightBestPractice*result.BestPractice.Score +
			weightInstructionQuality*result.InstructionQuality.Score +
			weightWorkDensity*result.WorkDensity.Score))

	result.Recommendations = recommend(
		result.BestPractice.SubScores,
		result.InstructionQuality.SubScores,
		result.WorkDensity.SubScores)

	return result
}

func axis(subs []SubScore) AxisScore {
	total := 0.0
	for _, sub := range subs {
		total += sub.Score
	}
	return AxisScore{Score: total / float64(len(subs)), SubScores: subs}
}

// bestPracticeScores: tool appropriateness, plan-mode usage, verification
// rate, sub-agent usage, config-file existence.
func (s *Scorer) bestPracticeScores(analyses []SessionAnalysis) []SubScore {
	bashCalls, primitiveCalls := 0, 0
	planSessions, subagentSessions := 0, 0
	changeSessions, verifiedSessions := 0, 0

	for i := range analyses {
		analysis := &analyses[i]
		for _, call := range analysis.ToolCalls {
			if call.Name != "Bash" {
				continue
			}
			bashCalls++
			if cmd, ok := call.Input["command"].(string); ok && primitiveBashRe.MatchString(cmd) {
				primitiveCalls++
			}
		}
		if analysis.HasPlanMode {
			planSessions++
		}
		if analysis.HasSubagent {
			subagentSessions++
		}
		if analysis.HasEditOrWrite {
			changeSessions++
			if analysis.HasTestOrBuild {
				verifiedSessions++
			}
		}
	}

	toolScore := 100.0
	if bashCalls > 0 {
		toolScore = float64(bashCalls-primitiveCalls) / float64(bashCalls) * 100
	}

	planScore := 0.0
	switch {
	case planSessions >= 2:
		planScore = 100
	case planSessions == 1:
		planScore = 50
	}

	verifyScore := 100.0
	if changeSessions > 0 {
		verifyScore = float64(verifiedSessions) / float64(changeSessions) * 100
	}

	subagentScore := 0.0
	if len(analyses) > 0 {
		subagentScore = float64(subagentSessions) / float64(len(analyses)) * 100
	}

	configScore := 0.0
	if _, err := os.Stat(s.configFilePath); err == nil {
		configScore = 100
	}

	return []SubScore{
		{Category: "tool-appropriateness", Name: "Tool appropriateness", Score: toolScore,
			Finding: fmt.Sprintf("%d of %d shell commands have a dedicated tool equivalent", primitiveCalls, bashCalls)},
		{Category: "plan-mode", Name: "Plan mode usage", Score: planScore,
			Finding: fmt.Sprintf("%d sessions used planning", planSessions)},
		{Category: "verification", Name: "Verification rate", Score: verifyScore,
			Finding: fmt.Sprintf("%d of %d sessions with changes ran tests or builds", verifiedSessions, changeSessions)},
		{Category: "sub-agent", Name: "Sub-agent usage", Score: subagentScore,
			Finding: fmt.Sprintf("%d of %d sessions delegated to sub-agents", subagentSessions, len(analyses))},
		{Category: "config-file", Name: "Project configuration file", Score: configScore,
			Finding: fmt.Sprintf("checked %s", s.configFilePath)},
	}
}

// instructionQualityScores: specificity, context provision, initial
// instruction accuracy, correction rate.
func instructionQualityScores(analyses []SessionAnalysis) []SubScore {
	totalChars, messageCount := 0, 0
	withPath, corrections := 0, 0
	totalTurns, taskCount := 0, 0

	for i := range analyses {
		analysis := &analyses[i]
		for _, msg := range analysis.UserMessages {
			messageCount++
			totalChars += len([]rune(msg))
			if filePathRe.MatchString(msg) {
				withPath++
			}
			for _, phrase := range correctionPhrases {
				if strings.Contains(msg, phrase) {
					corrections++
					break
				}
			}
		}
		for _, turns := range analysis.AssistantTurns {
			totalTurns += turns
			taskCount++
		}
	}

	specificity := 30.0
	if messageCount > 0 {
		avgLen := float64(totalChars) / float64(messageCount)
		switch {
		case avgLen >= 500:
			specificity = 100
		case avgLen >= 150:
			specificity = 90
		case avgLen >= 50:
			specificity = 60
		}
	}

	contextScore := 0.0
	if messageCount > 0 {
		contextScore = float64(withPath) / float64(messageCount) * 100
	}

	accuracy := 30.0
	if taskCount > 0 {
		avgTurns := float64(totalTurns) / float64(taskCount)
		switch {
		case avgTurns <= 3:
			accuracy = 100
		case avgTurns <= 5:
			accuracy = 80
		case avgTurns <= 10:
			accuracy = 50
		}
	}

	correctionScore := 100.0
	if messageCount > 0 {
		rate := float64(corrections) / float64(messageCount)
		correctionScore = math.Max(0, 100-200*rate)
	}

	return []SubScore{
		{Category: "specificity", Name: "Instruction specificity", Score: specificity,
			Finding: fmt.Sprintf("average instruction length over %d messages", messageCount)},
		{Category: "context-provision", Name: "Context provision", Score: contextScore,
			Finding: fmt.Sprintf("%d of %d instructions mention a file path", withPath, messageCount)},
		{Category: "instruction-accuracy", Name: "Initial instruction accuracy", Score: accuracy,
			Finding: fmt.Sprintf("%d assistant turns across %d tasks", totalTurns, taskCount)},
		{Category: "correction-rate", Name: "Correction rate", Score: correctionScore,
			Finding: fmt.Sprintf("%d of %d instructions were corrections", corrections, messageCount)},
	}
}

// workDensityScores: token efficiency, phase balance, rework. Phase balance
// counts implementation and verification calls: Edit/Write plus Bash
// commands matching the rule table's verification pattern, so plumbing
// commands do not inflate the score.
func workDensityScores(analyses []SessionAnalysis, rules *summary.Rules) []SubScore {
	editWrites, totalTokens, totalCalls := 0, 0, 0
	productiveCalls := 0
	fileTouches := make(map[string]int)

	for i := range analyses {
		analysis := &analyses[i]
		totalTokens += analysis.Usage.InputTokens + analysis.Usage.OutputTokens
		for _, call := range analysis.ToolCalls {
			totalCalls++
			switch call.Name {
			case "Edit", "Write":
				editWrites++
				productiveCalls++
			case "Bash":
				if cmd, ok := call.Input["command"].(string); ok && rules.VerifiesCommand(cmd) {
					productiveCalls++
				}
			}
		}
		for _, file := range analysis.EditedFiles {
			fileTouches[file]++
		}
	}

	efficiency := tokens.EditsPer100K(editWrites, totalTokens)
	efficiencyScore := 20.0
	switch {
	case efficiency >= 10:
		efficiencyScore = 100
	case efficiency >= 5:
		efficiencyScore = 80
	case efficiency >= 2:
		efficiencyScore = 60
	case efficiency >= 1:
		efficiencyScore = 40
	}

	balanceScore := 40.0
	if totalCalls > 0 {
		fraction := float64(productiveCalls) / float64(totalCalls)
		switch {
		case fraction >= 0.4:
			balanceScore = 100
		case fraction >= 0.3:
			balanceScore = 80
		case fraction >= 0.2:
			balanceScore = 60
		}
	}

	reworked := 0
	for _, touches := range fileTouches {
		if touches >= 3 {
			reworked++
		}
	}
	reworkScore := 100.0
	if len(fileTouches) > 0 {
		rate := float64(reworked) / float64(len(fileTouches))
		reworkScore = math.Max(0, 100-200*rate)
	}

	return []SubScore{
		{Category: "token-efficiency", Name: "Token efficiency", Score: efficiencyScore,
			Finding: fmt.Sprintf("%.1f edits per 100K tokens", efficiency)},
		{Category: "phase-balance", Name: "Phase balance", Score: balanceScore,
			Finding: fmt.Sprintf("%d of %d tool calls change or verify code", productiveCalls, totalCalls)},
		{Category: "rework", Name: "Rework", Score: reworkScore,
			Finding: fmt.Sprintf("%d of %d edited files touched three or more times", reworked, len(fileTouches))},
	}
}

// recommend picks the five lowest sub-scores across all axes, ties broken by
// encounter order, and maps each through the advice table. When every
// sub-score is at least 60, a single affirmation replaces the list.
func recommend(axes ...[]SubScore) []string {
	var all []SubScore
	for _, subs := range axes {
		all = append(all, subs...)
	}

	allGood := true
	for _, sub := range all {
		if sub.Score < 60 {
			allGood = false
			break
		}
	}
	if allGood {
		return []string{allGoodMessage}
	}

	// Stable sort keeps encounter order among equal scores.
	indexes := make([]int, len(all))
	for i := range indexes {
		indexes[i] = i
	}
	sort.SliceStable(indexes, func(i, j int) bool {
		return all[indexes[i]].Score < all[indexes[j]].Score
	})

	count := recommendationCount
	if count > len(indexes) {
		count = len(indexes)
	}

	var recs []string
	for _, idx := range indexes[:count] {
		sub := all[idx]
		if text, ok := advice[sub.Category]; ok {
			recs = append(recs, text)
		} else {
			recs = append(recs, sub.Finding)
		}
	}
	return recs
}

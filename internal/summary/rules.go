// Package summary segments a session transcript into user-initiated tasks
// and classifies each task into heuristic work phases.
package summary

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/voglerr/claudescope/internal/logs"
)

// Phase labels attached to tasks. A task may carry several; Immediate is the
// sentinel for a turn with no tool calls at all.
const (
	PhaseInvestigation  = "investigation"
	PhasePlanning       = "planning"
	PhaseImplementation = "implementation"
	PhaseVerification   = "verification"
	PhaseImmediate      = "immediate"
)

// PhaseRule tags a task with Phase when any of its tool calls matches one of
// the Tools names, a Task-tool call with one of the SubagentTypes, or a Bash
// call whose command matches BashPattern.
type PhaseRule struct {
	Phase         string   `yaml:"phase"`
	Tools         []string `yaml:"tools,omitempty"`
	SubagentTypes []string `yaml:"subagent_types,omitempty"`
	BashPattern   string   `yaml:"bash_pattern,omitempty"`

	bashRe *regexp.Regexp
}

// Rules is the segmentation rule table: which user lines open a task and how
// the accumulated tool calls map to phases. Kept as data rather than inlined
// conditionals so the heuristics can be unit-tested and evolved without
// touching the scanning loop.
type Rules struct {
	// SkipPrefixes lists case-sensitive prefixes marking a user line as a
	// tool-result or system echo rather than a genuine turn.
	SkipPrefixes []string    `yaml:"skip_prefixes"`
	Phases       []PhaseRule `yaml:"phases"`
}

// DefaultRules returns the compiled-in rule table. The verification keyword
// pattern and subagent type strings are matched case-sensitively; insights
// scoring depends on them verbatim.
func DefaultRules() *Rules {
	r := &Rules{
		SkipPrefixes: []string{"<function_results>", "<system-reminder>"},
		Phases: []PhaseRule{
			{
				Phase:         PhaseInvestigation,
				Tools:         []string{"Read", "Glob", "Grep"},
				SubagentTypes: []string{"Explore"},
			},
			{
				Phase:         PhasePlanning,
				Tools:         []string{"TodoWrite"},
				SubagentTypes: []string{"Plan"},
			},
			{
				Phase: PhaseImplementation,
				Tools: []string{"Edit", "Write"},
			},
			{
				Phase:       PhaseVerification,
				BashPattern: `npm test|npm run build|npm run lint|pytest|jest|cargo test`,
			},
		},
	}
	if err := r.compile(); err != nil {
		panic("default rules: " + err.Error())
	}
	return r
}

// LoadRules reads a rule table from a YAML file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.compile(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rules) compile() error {
	for i := range r.Phases {
		if r.Phases[i].BashPattern == "" {
			continue
		}
		re, err := regexp.Compile(r.Phases[i].BashPattern)
		if err != nil {
			return fmt.Errorf("phase %q pattern: %w", r.Phases[i].Phase, err)
		}
		r.Phases[i].bashRe = re
	}
	return nil
}

// SkipsUserLine reports whether text begins with one of the skip prefixes.
func (r *Rules) SkipsUserLine(text string) bool {
	for _, prefix := range r.SkipPrefixes {
		if len(text) >= len(prefix) && text[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// VerifiesCommand reports whether a shell command matches the verification
// phase's keyword pattern.
func (r *Rules) VerifiesCommand(cmd string) bool {
	for _, rule := range r.Phases {
		if rule.Phase == PhaseVerification && rule.bashRe != nil && rule.bashRe.MatchString(cmd) {
			return true
		}
	}
	return false
}

// Classify evaluates every phase rule against a task's tool calls, union
// semantics, rule order independent. Zero matches yields the immediate
// sentinel.
func (r *Rules) Classify(calls []logs.ToolCall) []string {
	var phases []string
	for _, rule := range r.Phases {
		if rule.matches(calls) {
			phases = append(phases, rule.Phase)
		}
	}
	if len(phases) == 0 {
		phases = []string{PhaseImmediate}
	}
	return phases
}

func (rule *PhaseRule) matches(calls []logs.ToolCall) bool {
	for _, call := range calls {
		for _, tool := range rule.Tools {
			if call.Name == tool {
				return true
			}
		}
		if call.Name == "Task" && len(rule.SubagentTypes) > 0 {
			if sub, ok := call.Input["subagent_type"].(string); ok {
				for _, want := range rule.SubagentTypes {
					if sub == want {
						return true
					}
				}
			}
		}
		if call.Name == "Bash" && rule.bashRe != nil {
			if cmd, ok := call.Input["command"].(string); ok && rule.bashRe.MatchString(cmd) {
				return true
			}
		}
	}
	return false
}

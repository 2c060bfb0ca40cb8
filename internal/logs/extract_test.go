package logs

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText_TableDriven(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "plain string",
			content:  `"hello world"`,
			expected: "hello world",
		},
		{
			name:     "empty content",
			content:  "",
			expected: "",
		},
		{
			name:     "single text block",
			content:  `[{"type":"text","text":"first"}]`,
			expected: "first",
		},
		{
			name:     "multiple text blocks newline joined",
			content:  `[{"type":"text","text":"first"},{"type":"text","text":"second"}]`,
			expected: "first\nsecond",
		},
		{
			name:     "thinking blocks ignored",
			content:  `[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"answer"}]`,
			expected: "answer",
		},
		{
			name:     "tool_use blocks ignored",
			content:  `[{"type":"tool_use","name":"Read","input":{"file_path":"/a/b.go"}}]`,
			expected: "",
		},
		{
			name:     "unparseable content",
			content:  `42`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractText(json.RawMessage(tt.content)))
		})
	}
}

func TestExtractToolCalls(t *testing.T) {
	content := json.RawMessage(`[
		{"type":"text","text":"let me look"},
		{"type":"tool_use","name":"Read","input":{"file_path":"/src/main.go"}},
		{"type":"tool_use","name":"","input":{}},
		{"type":"tool_use","name":"Bash","input":{"command":"ls"}}
	]`)

	calls := ExtractToolCalls(content, "2025-06-01T10:00:00Z")
	require.Len(t, calls, 2)

	assert.Equal(t, "Read", calls[0].Name)
	assert.Equal(t, "/src/main.go", calls[0].Input["file_path"])
	assert.Equal(t, "2025-06-01T10:00:00Z", calls[0].Timestamp)

	assert.Equal(t, "Bash", calls[1].Name)
	assert.Equal(t, "ls", calls[1].Input["command"])
}

func TestExtractToolCalls_StringContent(t *testing.T) {
	assert.Nil(t, ExtractToolCalls(json.RawMessage(`"just text"`), "ts"))
	assert.Nil(t, ExtractToolCalls(nil, "ts"))
}

func TestDecodeLine(t *testing.T) {
	line, ok := DecodeLine([]byte(`{"type":"assistant","uuid":"a1","timestamp":"2025-06-01T10:00:00Z","message":{"role":"assistant","model":"m","usage":{"input_tokens":5,"output_tokens":7}}}`))
	require.True(t, ok)
	assert.Equal(t, LineTypeAssistant, line.Type)
	assert.Equal(t, "a1", line.UUID)
	require.NotNil(t, line.Message.Usage)
	assert.Equal(t, 5, line.Message.Usage.InputTokens)

	_, ok = DecodeLine([]byte(`{not json`))
	assert.False(t, ok)
}

func TestTokenUsageAdd(t *testing.T) {
	u := TokenUsage{InputTokens: 1, OutputTokens: 2, CacheCreationInputTokens: 3, CacheReadInputTokens: 4}
	u.Add(TokenUsage{InputTokens: 10, OutputTokens: 20, CacheCreationInputTokens: 30, CacheReadInputTokens: 40})
	assert.Equal(t, TokenUsage{InputTokens: 11, OutputTokens: 22, CacheCreationInputTokens: 33, CacheReadInputTokens: 44}, u)

	assert.True(t, TokenUsage{}.IsZero())
	assert.False(t, u.IsZero())
}

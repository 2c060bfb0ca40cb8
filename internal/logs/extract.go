package logs

import (
	"strings"

	"github.com/goccy/go-json"
)

// contentBlock is one element of array-shaped message content. The type tag
// selects which of the payload fields is meaningful.
type contentBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ExtractText projects a raw content field to plain text. String content is
// returned verbatim; array content contributes the text of every
// type:"text" block, newline-joined in order. Thinking and tool_use blocks
// contribute nothing. Empty or missing content yields "".
func ExtractText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s
	}

	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return ""
	}

	var texts []string
	for _, block := range blocks {
		if block.Type == "text" && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// ExtractToolCalls returns the tool_use blocks of array-shaped content,
// stamped with the enclosing message's timestamp. Blocks without a name are
// skipped. String content never carries tool calls.
func ExtractToolCalls(content json.RawMessage, timestamp string) []ToolCall {
	if len(content) == 0 {
		return nil
	}

	var blocks []contentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return nil
	}

	var calls []ToolCall
	for _, block := range blocks {
		if block.Type != "tool_use" || block.Name == "" {
			continue
		}
		calls = append(calls, ToolCall{
			Name:      block.Name,
			Input:     block.Input,
			Timestamp: timestamp,
		})
	}
	return calls
}

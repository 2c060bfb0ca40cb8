package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// EstimateTokens approximates the token count of arbitrary text with the
// cl100k vocabulary. User turns carry no usage object in the logs, so this
// is the only prompt-side number available; it is surfaced separately and
// never mixed into the exact usage sums.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return
		}
		codec = c
	})
	if codec == nil {
		return 0
	}

	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0
	}
	return len(ids)
}

package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const tokenEncoding = "cl100k_base"

// runesPerToken approximates English text when no encoding is available.
const runesPerToken = 4

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// loadEncoding loads the BPE ranks once. A failed load (offline host, no
// cache) leaves enc nil and callers fall back to a rune budget.
func loadEncoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(tokenEncoding)
		if err == nil {
			enc = e
		}
	})
	return enc
}

// truncateTokens cuts text to at most maxTokens tokens. maxTokens <= 0
// disables truncation.
func truncateTokens(text string, maxTokens int) string {
	// Every token covers at least one byte.
	if maxTokens <= 0 || len(text) <= maxTokens {
		return text
	}

	if e := loadEncoding(); e != nil {
		tokens := e.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			return text
		}
		return e.Decode(tokens[:maxTokens])
	}

	runes := []rune(text)
	if budget := maxTokens * runesPerToken; len(runes) > budget {
		return string(runes[:budget])
	}
	return text
}

// Package tokens estimates prompt sizes for logging and the operator console.
package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// perMessageOverhead approximates the role/separator tokens chat APIs add per message.
const perMessageOverhead = 4

var (
	tk     *tiktoken.Tiktoken
	tkErr  error
	tkOnce sync.Once
)

func tokenizer() (*tiktoken.Tiktoken, error) {
	tkOnce.Do(func() {
		tk, tkErr = tiktoken.GetEncoding("cl100k_base")
	})
	return tk, tkErr
}

// Count returns the cl100k token count of text. When the encoding cannot be
// loaded (it is fetched on first use) it falls back to ~4 bytes per token.
func Count(text string) int {
	if text == "" {
		return 0
	}
	enc, err := tokenizer()
	if err != nil {
		return estimate(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// CountMessages sums Count over message contents plus per-message overhead.
func CountMessages(contents ...string) int {
	total := 0
	for _, c := range contents {
		total += Count(c) + perMessageOverhead
	}
	return total
}

func estimate(text string) int {
	n := len(text) / 4
	if n == 0 && utf8.RuneCountInString(text) > 0 {
		n = 1
	}
	return n
}

// Package reduce fits retrieved context into a token budget.
//
// Reduction is two steps: lines that mention none of the query keywords are
// dropped, then the remainder is truncated to the budget. Truncation can cut
// a line short enough to lose its keyword, so both steps repeat until the
// text stops changing. The result is therefore stable under reapplication.
package reduce

import (
	"errors"
	"strings"

	"github.com/poiesic/docchat/tokenize"
)

// DefaultMaxTokens is the context budget used when callers have no better figure.
const DefaultMaxTokens = 1500

// ErrTokenizerRequired is returned when a tokenizer is not provided.
var ErrTokenizerRequired = errors.New("tokenizer required")

// Reducer trims context text to a token budget.
type Reducer struct {
	tok tokenize.Tokenizer
}

// New creates a Reducer counting tokens with tok.
func New(tok tokenize.Tokenizer) (*Reducer, error) {
	if tok == nil {
		return nil, ErrTokenizerRequired
	}
	return &Reducer{tok: tok}, nil
}

// Reduce keeps the lines of text that contain a keyword and truncates the
// result to maxTokens. With no keywords the filter is skipped. A budget of
// zero or less yields "".
func (r *Reducer) Reduce(text string, maxTokens int, keywords []string) string {
	if maxTokens <= 0 {
		return ""
	}
	needles := normalize(keywords)
	for {
		next := tokenize.Truncate(r.tok, Filter(text, needles), maxTokens)
		if next == text {
			return next
		}
		text = next
	}
}

// Filter keeps the lines of text that contain at least one keyword,
// ignoring case, in their original order. Blank keywords are ignored; with
// none left the text is returned unchanged.
func Filter(text string, keywords []string) string {
	needles := normalize(keywords)
	if len(needles) == 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, needle := range needles {
			if strings.Contains(lower, needle) {
				kept = append(kept, line)
				break
			}
		}
	}
	return strings.Join(kept, "\n")
}

func normalize(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Package chunk splits extracted text into overlapping token windows.
package chunk

import (
	"strings"

	"github.com/poiesic/docchat/tokenize"
)

const (
	// DefaultMaxTokens is the window size. Small windows give finer retrieval
	// granularity; the embedding provider's own ceiling is far higher.
	DefaultMaxTokens = 350

	// DefaultStride advances each window by 200 tokens, overlapping 150.
	DefaultStride = 200
)

// Chunk is one token window of a source text.
type Chunk struct {
	Index int
	Start int // First token offset, inclusive
	End   int // Last token offset, exclusive
	Text  string
}

// Chunker emits windows of maxTokens tokens advancing by stride tokens.
type Chunker struct {
	tok       tokenize.Tokenizer
	maxTokens int
	stride    int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxTokens sets the window size in tokens.
func WithMaxTokens(n int) Option {
	return func(c *Chunker) {
		c.maxTokens = n
	}
}

// WithStride sets how many tokens each window advances.
// A stride smaller than the window size produces overlap.
func WithStride(n int) Option {
	return func(c *Chunker) {
		c.stride = n
	}
}

// New creates a chunker using tok to count tokens.
func New(tok tokenize.Tokenizer, opts ...Option) (*Chunker, error) {
	if tok == nil {
		return nil, ErrTokenizerRequired
	}
	c := &Chunker{
		tok:       tok,
		maxTokens: DefaultMaxTokens,
		stride:    DefaultStride,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxTokens < 1 || c.stride < 1 {
		return nil, ErrInvalidWindow
	}
	return c, nil
}

// MaxTokens returns the configured window size.
func (c *Chunker) MaxTokens() int {
	return c.maxTokens
}

// Stride returns the configured stride.
func (c *Chunker) Stride() int {
	return c.stride
}

// Chunks tokenizes text and returns its windows in order.
//
// The first window starts at token 0. Windows advance by stride and the
// last window emitted is the first one that reaches the end of the token
// stream, so N tokens yield ceil((N-max)/stride)+1 windows when N >= max
// and a single window otherwise. Blank text yields no windows.
func (c *Chunker) Chunks(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	tokens := c.tok.Encode(text)
	n := len(tokens)
	if n == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, expectedCount(n, c.maxTokens, c.stride))
	for start := 0; start < n; start += c.stride {
		end := min(start+c.maxTokens, n)
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  tokenize.Window(c.tok, tokens, start, end),
		})
		if end == n {
			break
		}
	}
	return chunks
}

// Split returns only the text of each window.
func (c *Chunker) Split(text string) []string {
	chunks := c.Chunks(text)
	out := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		if ch.Text == "" {
			continue
		}
		out = append(out, ch.Text)
	}
	return out
}

// expectedCount is the number of windows Chunks emits for n tokens.
func expectedCount(n, maxTokens, stride int) int {
	if n <= 0 {
		return 0
	}
	if n <= maxTokens {
		return 1
	}
	return (n-maxTokens+stride-1)/stride + 1
}

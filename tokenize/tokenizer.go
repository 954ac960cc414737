package tokenize

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when a model name has no known tiktoken encoding.
const DefaultEncoding = "cl100k_base"

// ErrUnknownEncoding is returned when neither the model nor the fallback
// encoding can be loaded.
var ErrUnknownEncoding = errors.New("unknown token encoding")

// Tokenizer converts between text and provider token ids.
// Implementations must be safe for concurrent use.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Tiktoken adapts a tiktoken-go encoding to Tokenizer.
type Tiktoken struct {
	enc  *tiktoken.Tiktoken
	name string
}

var _ Tokenizer = (*Tiktoken)(nil)

// NewTiktoken loads the encoding used by model, falling back to
// DefaultEncoding for models tiktoken does not know (local embedding models
// served behind OpenAI-compatible APIs are the common case).
func NewTiktoken(model string) (*Tiktoken, error) {
	if model != "" {
		if enc, err := tiktoken.EncodingForModel(model); err == nil {
			return &Tiktoken{enc: enc, name: model}, nil
		}
	}
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnknownEncoding, DefaultEncoding, err)
	}
	return &Tiktoken{enc: enc, name: DefaultEncoding}, nil
}

// Name returns the model or encoding the tokenizer was resolved from.
func (t *Tiktoken) Name() string {
	return t.name
}

func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// Runes treats every rune as one token. Token ids are the code points.
type Runes struct{}

var _ Tokenizer = Runes{}

func (Runes) Encode(text string) []int {
	tokens := make([]int, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		tokens = append(tokens, int(r))
	}
	return tokens
}

func (Runes) Decode(tokens []int) string {
	var b strings.Builder
	b.Grow(len(tokens))
	for _, t := range tokens {
		b.WriteRune(rune(t))
	}
	return b.String()
}

// Count returns the number of tokens in text.
func Count(tok Tokenizer, text string) int {
	if text == "" {
		return 0
	}
	return len(tok.Encode(text))
}

// Truncate keeps the first max tokens of text.
//
// Byte-level encodings can split a multi-byte character across a window
// edge; partial sequences are dropped. The result always re-encodes to at
// most max tokens, and Truncate(Truncate(s, n), n) == Truncate(s, n).
func Truncate(tok Tokenizer, text string, max int) string {
	if max <= 0 || text == "" {
		return ""
	}
	tokens := tok.Encode(text)
	if len(tokens) <= max {
		return text
	}
	for keep := max; keep > 0; keep-- {
		out := strings.ToValidUTF8(tok.Decode(tokens[:keep]), "")
		if Count(tok, out) <= max {
			return out
		}
	}
	return ""
}

// Window decodes tokens[start:end] back to text, clamping the bounds and
// dropping partial UTF-8 sequences at the edges.
func Window(tok Tokenizer, tokens []int, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(tokens) {
		end = len(tokens)
	}
	if start >= end {
		return ""
	}
	return strings.ToValidUTF8(tok.Decode(tokens[start:end]), "")
}

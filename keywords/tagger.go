package keywords

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

// TaggedToken is a word with its Penn Treebank part-of-speech tag.
type TaggedToken struct {
	Text string
	Tag  string
}

// Tagger assigns part-of-speech tags to non-Thai text.
type Tagger interface {
	Tag(text string) ([]TaggedToken, error)
}

// ProseTagger tags English text with prose's averaged perceptron model.
type ProseTagger struct{}

var _ Tagger = ProseTagger{}

// Tag tokenizes and tags text. Sentence segmentation and entity extraction
// are turned off; queries are short.
func (ProseTagger) Tag(text string) ([]TaggedToken, error) {
	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return nil, err
	}
	tokens := doc.Tokens()
	out := make([]TaggedToken, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, TaggedToken{Text: tok.Text, Tag: tok.Tag})
	}
	return out, nil
}

// contentTag reports whether a tag marks a noun, verb, adjective or adverb.
func contentTag(tag string) bool {
	for _, prefix := range []string{"NN", "VB", "JJ", "RB"} {
		if strings.HasPrefix(tag, prefix) {
			return true
		}
	}
	return false
}

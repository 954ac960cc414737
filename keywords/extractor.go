package keywords

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// DefaultMinLength is the shortest keyword kept, in runes.
const DefaultMinLength = 2

var (
	loadOnce         sync.Once
	thaiDictionary   *wordSet
	thaiStopwords    *wordSet
	englishStopwords *wordSet
)

func loadLexicons() {
	loadOnce.Do(func() {
		thaiStopwords = loadWordSet(thaiStopwordsData)
		// Stopwords must segment too, or they leak into unknown runs.
		thaiDictionary = loadWordSet(thaiWordsData, thaiStopwordsData)
		englishStopwords = loadWordSet(englishStopwordsData)
	})
}

// Extractor turns a free-text query into search keywords.
type Extractor struct {
	minLength int
	tagger    Tagger
	seg       *segmenter
	logger    *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMinLength sets the minimum keyword length in runes. Default is 2.
func WithMinLength(n int) Option {
	return func(e *Extractor) {
		if n < 1 {
			n = 1
		}
		e.minLength = n
	}
}

// WithTagger replaces the part-of-speech tagger used for non-Thai text.
func WithTagger(tagger Tagger) Option {
	return func(e *Extractor) {
		if tagger != nil {
			e.tagger = tagger
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// New creates an Extractor with the embedded Thai dictionary.
func New(opts ...Option) *Extractor {
	loadLexicons()
	e := &Extractor{
		minLength: DefaultMinLength,
		tagger:    ProseTagger{},
		seg:       &segmenter{dict: thaiDictionary},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "keywords")
	return e
}

// Keywords returns the distinct keywords of query in first-seen order.
func (e *Extractor) Keywords(query string) []string {
	return e.Extract(query, nil, 0)
}

// Extract returns the distinct keywords of query. With a non-empty corpus
// and topK > 0 the keywords are ranked by BM25 weight in the corpus and only
// the first topK are returned; equal weights keep first-seen order.
// Blank input yields an empty slice.
func (e *Extractor) Extract(query string, corpus []string, topK int) []string {
	found := make([]string, 0)
	if strings.TrimSpace(query) == "" {
		return found
	}

	seen := make(map[string]bool)
	keep := func(word string) {
		if utf8.RuneCountInString(word) < e.minLength || seen[word] {
			return
		}
		seen[word] = true
		found = append(found, word)
	}

	for _, sp := range splitScripts(query) {
		if sp.thai {
			for _, word := range e.seg.segment(sp.text) {
				if !thaiStopwords.contains(word) && hasLetter(word) {
					keep(word)
				}
			}
			continue
		}
		if strings.TrimSpace(sp.text) == "" {
			continue
		}
		for _, word := range e.latinKeywords(sp.text) {
			keep(word)
		}
	}

	if len(corpus) == 0 || topK <= 0 {
		return found
	}
	return rank(found, corpus, topK)
}

func (e *Extractor) latinKeywords(text string) []string {
	tokens, err := e.tagger.Tag(text)
	if err != nil {
		e.logger.Warn("tagging failed", "err", err)
		return nil
	}
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		word := strings.ToLower(strings.TrimSpace(tok.Text))
		if word == "" || !contentTag(tok.Tag) || englishStopwords.contains(word) || !hasLetter(word) {
			continue
		}
		words = append(words, word)
	}
	return words
}

func rank(words, corpus []string, topK int) []string {
	scorer := newBM25(corpus)
	type scored struct {
		word  string
		score float64
	}
	ranked := make([]scored, len(words))
	for i, w := range words {
		ranked[i] = scored{word: w, score: scorer.score(w)}
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})
	if topK < len(ranked) {
		ranked = ranked[:topK]
	}
	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.word
	}
	return out
}

func hasLetter(word string) bool {
	for _, r := range word {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

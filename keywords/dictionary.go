package keywords

import (
	"bufio"
	_ "embed"
	"strings"
	"unicode/utf8"
)

var (
	//go:embed data/thai_words.txt
	thaiWordsData string

	//go:embed data/thai_stopwords.txt
	thaiStopwordsData string

	//go:embed data/english_stopwords.txt
	englishStopwordsData string
)

// wordSet is a set of words with the rune length of the longest entry.
type wordSet struct {
	words  map[string]struct{}
	maxLen int
}

func newWordSet() *wordSet {
	return &wordSet{words: make(map[string]struct{})}
}

func (s *wordSet) add(word string) {
	word = strings.TrimSpace(word)
	if word == "" || strings.HasPrefix(word, "#") {
		return
	}
	s.words[word] = struct{}{}
	if n := utf8.RuneCountInString(word); n > s.maxLen {
		s.maxLen = n
	}
}

func (s *wordSet) addAll(data string) {
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		s.add(scanner.Text())
	}
}

func (s *wordSet) contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

func loadWordSet(data ...string) *wordSet {
	s := newWordSet()
	for _, d := range data {
		s.addAll(d)
	}
	return s
}

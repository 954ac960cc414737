package keywords

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25 scores terms against a fixed corpus. Thai documents are not
// whitespace-delimited, so term frequency counts case-insensitive substring
// occurrences and document length is measured in runes.
type bm25 struct {
	docs   []string
	lens   []float64
	avgLen float64
}

func newBM25(corpus []string) *bm25 {
	b := &bm25{
		docs: make([]string, len(corpus)),
		lens: make([]float64, len(corpus)),
	}
	var total float64
	for i, doc := range corpus {
		b.docs[i] = strings.ToLower(doc)
		b.lens[i] = float64(utf8.RuneCountInString(doc))
		total += b.lens[i]
	}
	if len(corpus) > 0 {
		b.avgLen = total / float64(len(corpus))
	}
	return b
}

// score sums the BM25 weight of term over every document.
func (b *bm25) score(term string) float64 {
	if len(b.docs) == 0 || b.avgLen == 0 {
		return 0
	}
	term = strings.ToLower(term)

	tfs := make([]float64, len(b.docs))
	df := 0
	for i, doc := range b.docs {
		tfs[i] = float64(strings.Count(doc, term))
		if tfs[i] > 0 {
			df++
		}
	}
	if df == 0 {
		return 0
	}

	n := float64(len(b.docs))
	idf := math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)

	var total float64
	for i, tf := range tfs {
		if tf == 0 {
			continue
		}
		norm := bm25K1 * (1 - bm25B + bm25B*b.lens[i]/b.avgLen)
		total += idf * tf * (bm25K1 + 1) / (tf + norm)
	}
	return total
}

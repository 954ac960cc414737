// Package keywords pulls search keywords out of Thai, English and mixed
// queries.
//
// Thai has no spaces between words, so Thai runs are segmented against an
// embedded dictionary using maximal matching, which picks the cover with the
// fewest unknown characters and then the fewest words. The result is filtered
// through a Thai stopword list. Everything else goes through a part-of-speech tagger and
// keeps content words: nouns, verbs, adjectives and adverbs.
//
// When a corpus is supplied, the keywords are ranked by their BM25 weight in
// that corpus so the most discriminating terms come first.
package keywords

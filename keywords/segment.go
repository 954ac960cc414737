package keywords

// segmenter splits Thai text into words by maximal matching against a
// dictionary. Among all ways to cover the text with dictionary words and
// unknown characters it picks the one with the fewest unknown characters,
// then the fewest tokens. Adjacent unknown characters are emitted as a single
// unknown token.
type segmenter struct {
	dict *wordSet
}

// cost orders segmentations: fewer unknown runes first, then fewer tokens.
type cost struct {
	unknown int
	tokens  int
}

func (c cost) less(o cost) bool {
	if c.unknown != o.unknown {
		return c.unknown < o.unknown
	}
	return c.tokens < o.tokens
}

func (s *segmenter) segment(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	// best[i] is the cheapest segmentation of runes[:i]; step[i] is the rune
	// length of its last piece, negative when that piece is unknown.
	best := make([]cost, n+1)
	step := make([]int, n+1)
	for i := 1; i <= n; i++ {
		best[i] = cost{unknown: n + 1}
	}

	for i := 0; i < n; i++ {
		// An unknown rune only adds a token when it starts a new run.
		c := best[i]
		c.unknown++
		if i == 0 || step[i] > 0 {
			c.tokens++
		}
		if c.less(best[i+1]) {
			best[i+1], step[i+1] = c, -1
		}

		for l := 1; l <= s.dict.maxLen && i+l <= n; l++ {
			if !s.dict.contains(string(runes[i : i+l])) {
				continue
			}
			c := cost{unknown: best[i].unknown, tokens: best[i].tokens + 1}
			if c.less(best[i+l]) || (c == best[i+l] && step[i+l] > 0 && l > step[i+l]) {
				best[i+l], step[i+l] = c, l
			}
		}
	}

	var reversed []string
	for i := n; i > 0; {
		if step[i] > 0 {
			reversed = append(reversed, string(runes[i-step[i]:i]))
			i -= step[i]
			continue
		}
		j := i
		for j > 0 && step[j] < 0 {
			j--
		}
		reversed = append(reversed, string(runes[j:i]))
		i = j
	}

	tokens := make([]string, len(reversed))
	for i, tok := range reversed {
		tokens[len(reversed)-1-i] = tok
	}
	return tokens
}

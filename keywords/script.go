package keywords

import "unicode"

// Script classifies the writing system of a text.
type Script int

const (
	ScriptUnknown Script = iota
	ScriptThai
	ScriptLatin
	ScriptMixed
)

func (s Script) String() string {
	switch s {
	case ScriptThai:
		return "thai"
	case ScriptLatin:
		return "latin"
	case ScriptMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// Detect reports which scripts the letters of text belong to.
func Detect(text string) Script {
	var thai, latin bool
	for _, r := range text {
		switch {
		case isThai(r):
			thai = true
		case unicode.Is(unicode.Latin, r):
			latin = true
		}
		if thai && latin {
			return ScriptMixed
		}
	}
	switch {
	case thai:
		return ScriptThai
	case latin:
		return ScriptLatin
	default:
		return ScriptUnknown
	}
}

func isThai(r rune) bool {
	return r >= 0x0E00 && r <= 0x0E7F
}

// span is a maximal run of text that is either all Thai or all non-Thai.
type span struct {
	text string
	thai bool
}

// splitScripts cuts text into alternating Thai and non-Thai spans.
func splitScripts(text string) []span {
	var spans []span
	start := 0
	inThai := false
	for i, r := range text {
		t := isThai(r)
		if i == 0 {
			inThai = t
			continue
		}
		if t != inThai {
			spans = append(spans, span{text: text[start:i], thai: inThai})
			start, inThai = i, t
		}
	}
	if start < len(text) {
		spans = append(spans, span{text: text[start:], thai: inThai})
	}
	return spans
}

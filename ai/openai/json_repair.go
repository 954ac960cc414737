// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"strings"
	"unicode"
)

// stripCodeFence removes a surrounding ```json fence if the model added one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// repairJSON fixes the two mistakes models make most often in small objects:
// keys missing their opening quote (`, hobby":`) and trailing commas before a
// closing bracket. Text inside string literals is left untouched.
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)

	inString := false
	escaped := false
	for i := 0; i < len(in); i++ {
		ch := in[i]

		if inString {
			out = append(out, ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			out = append(out, ch)

		case ',':
			// Drop the comma when only whitespace separates it from } or ].
			j := i + 1
			for j < len(in) && unicode.IsSpace(in[j]) {
				j++
			}
			if j < len(in) && (in[j] == '}' || in[j] == ']') {
				continue
			}
			out = append(out, ch)
			i = copyUnquotedKey(in, i+1, &out) - 1

		case '{':
			out = append(out, ch)
			i = copyUnquotedKey(in, i+1, &out) - 1

		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

// copyUnquotedKey copies whitespace starting at pos and, when a bare word is
// followed by `":`, emits it with the missing opening quote. It returns the
// index of the first rune it did not consume.
func copyUnquotedKey(in []rune, pos int, out *[]rune) int {
	i := pos
	for i < len(in) && unicode.IsSpace(in[i]) {
		*out = append(*out, in[i])
		i++
	}
	if i >= len(in) || !unicode.IsLetter(in[i]) {
		return i
	}

	start := i
	for i < len(in) && (unicode.IsLetter(in[i]) || unicode.IsDigit(in[i]) || in[i] == '_') {
		i++
	}
	if i+1 < len(in) && in[i] == '"' && in[i+1] == ':' {
		*out = append(*out, '"')
		*out = append(*out, in[start:i]...)
		*out = append(*out, '"')
		return i + 1
	}
	// Not a broken key; let the caller copy it verbatim.
	return start
}

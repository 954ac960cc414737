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


package core

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// CleanText removes characters that carry no meaning for retrieval: control
// characters other than newline and tab, the Unicode replacement character
// left behind by broken decoders, zero-width marks and private-use code
// points that OCR engines emit for unrecognised glyphs.
func CleanText(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\uFFFD', r == '\uFEFF':
			return -1
		case r >= '\u200B' && r <= '\u200D':
			return -1
		case unicode.Is(unicode.Co, r):
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}

// ValidateDocumentRecord validates a DocumentRecord according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - RawText must not be empty after CleanText
//   - Vector must not be empty
//   - Kind must be text or image
//
// Model is not validated; legacy records may carry no tag.
func ValidateDocumentRecord(record *DocumentRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidDocumentRecord)
	}
	if record.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocumentRecord, ErrEmptyID)
	}
	if CleanText(record.RawText) == "" {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDocumentRecord, record.ID, ErrEmptyContent)
	}
	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDocumentRecord, record.ID, ErrEmptyVector)
	}
	for i, v := range record.Vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: %s: %w at index %d", ErrInvalidDocumentRecord, record.ID, ErrNonFiniteVector, i)
		}
	}
	if record.Kind != RecordKindText && record.Kind != RecordKindImage {
		return fmt.Errorf("%w: %s: %w: value %d", ErrInvalidDocumentRecord, record.ID, ErrInvalidKind, record.Kind)
	}
	return nil
}

// ValidateSession checks that a session names a known backend and carries
// the location fields that backend needs.
func ValidateSession(session *Session) error {
	if session == nil {
		return fmt.Errorf("%w: session is nil", ErrInvalidSession)
	}
	if session.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSession, ErrEmptyID)
	}
	if err := ValidateLocation(session.Backend, session.Location); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	return nil
}

// ValidateLocation checks the location fields required by backend.
func ValidateLocation(backend Backend, loc Location) error {
	switch backend {
	case BackendVectorIndex:
		if loc.Index == "" {
			return fmt.Errorf("%w: index is required for %s", ErrMissingLocation, backend)
		}
	case BackendDocumentStore:
		if loc.Database == "" || loc.Collection == "" {
			return fmt.Errorf("%w: database and collection are required for %s", ErrMissingLocation, backend)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	return nil
}

// ValidateTurn validates a conversation turn.
func ValidateTurn(turn *Turn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrInvalidTurn)
	}
	if turn.UserID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptyID)
	}
	if turn.Role != RoleUser && turn.Role != RoleAssistant {
		return fmt.Errorf("%w: %w: %q", ErrInvalidTurn, ErrInvalidRole, turn.Role)
	}
	if strings.TrimSpace(turn.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptyContent)
	}
	return nil
}

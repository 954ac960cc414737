package core

import (
	"errors"
	"math"
	"testing"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "hello", want: "hello"},
		{name: "keeps newlines and tabs", in: "a\tb\nc", want: "a\tb\nc"},
		{name: "drops control characters", in: "a\x00b\x07c\r", want: "abc"},
		{name: "drops replacement character", in: "ab\uFFFDc", want: "abc"},
		{name: "drops zero width", in: "ก\u200Bข\u200Dค", want: "กขค"},
		{name: "drops private use", in: "x\uE000y", want: "xy"},
		{name: "trims", in: "  text  ", want: "text"},
		{name: "only garbage", in: "\x00\uFFFD", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateDocumentRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *DocumentRecord
		wantErr error
	}{
		{
			name: "valid record",
			record: &DocumentRecord{
				ID:      "vec-0",
				Kind:    RecordKindText,
				Vector:  []float32{0.1, 0.2},
				RawText: "name: Alice",
			},
		},
		{
			name: "valid record without model tag",
			record: &DocumentRecord{
				ID:      "img-0",
				Kind:    RecordKindImage,
				Vector:  []float32{1},
				RawText: "[image]",
			},
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrInvalidDocumentRecord,
		},
		{
			name: "empty id",
			record: &DocumentRecord{
				Kind:    RecordKindText,
				Vector:  []float32{0.1},
				RawText: "text",
			},
			wantErr: ErrEmptyID,
		},
		{
			name: "raw text empty after cleaning",
			record: &DocumentRecord{
				ID:      "vec-1",
				Kind:    RecordKindText,
				Vector:  []float32{0.1},
				RawText: " \x00 ",
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "empty vector",
			record: &DocumentRecord{
				ID:      "vec-2",
				Kind:    RecordKindText,
				RawText: "text",
			},
			wantErr: ErrEmptyVector,
		},
		{
			name: "nan component",
			record: &DocumentRecord{
				ID:      "vec-4",
				Kind:    RecordKindText,
				Vector:  []float32{0.1, float32(math.NaN())},
				RawText: "text",
			},
			wantErr: ErrNonFiniteVector,
		},
		{
			name: "invalid kind",
			record: &DocumentRecord{
				ID:      "vec-3",
				Kind:    RecordKind(9),
				Vector:  []float32{0.1},
				RawText: "text",
			},
			wantErr: ErrInvalidKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentRecord(tt.record)

			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocumentRecord() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocumentRecord() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDocumentRecord) {
				t.Errorf("ValidateDocumentRecord() error = %v, want wrapped %v", err, ErrInvalidDocumentRecord)
			}
		})
	}
}

func TestValidateSession(t *testing.T) {
	tests := []struct {
		name    string
		session *Session
		wantErr error
	}{
		{
			name: "vector index",
			session: &Session{
				ID:       "s1",
				Backend:  BackendVectorIndex,
				Location: Location{Index: "faq"},
			},
		},
		{
			name: "document store",
			session: &Session{
				ID:       "s2",
				Backend:  BackendDocumentStore,
				Location: Location{Database: "db", Collection: "docs"},
			},
		},
		{
			name:    "nil session",
			wantErr: ErrInvalidSession,
		},
		{
			name: "missing id",
			session: &Session{
				Backend:  BackendVectorIndex,
				Location: Location{Index: "faq"},
			},
			wantErr: ErrEmptyID,
		},
		{
			name: "document store without collection",
			session: &Session{
				ID:       "s3",
				Backend:  BackendDocumentStore,
				Location: Location{Database: "db"},
			},
			wantErr: ErrMissingLocation,
		},
		{
			name: "vector index without index",
			session: &Session{
				ID:       "s4",
				Backend:  BackendVectorIndex,
				Location: Location{Namespace: "ns"},
			},
			wantErr: ErrMissingLocation,
		},
		{
			name: "unknown backend",
			session: &Session{
				ID:      "s5",
				Backend: Backend("cassandra"),
			},
			wantErr: ErrUnknownBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSession(tt.session)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSession() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSession() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTurn(t *testing.T) {
	tests := []struct {
		name    string
		turn    *Turn
		wantErr error
	}{
		{name: "valid", turn: &Turn{UserID: "u1", Role: RoleUser, Content: "hi"}},
		{name: "nil", wantErr: ErrInvalidTurn},
		{name: "no user", turn: &Turn{Role: RoleUser, Content: "hi"}, wantErr: ErrEmptyID},
		{name: "bad role", turn: &Turn{UserID: "u1", Role: "system", Content: "hi"}, wantErr: ErrInvalidRole},
		{name: "blank content", turn: &Turn{UserID: "u1", Role: RoleAssistant, Content: "  "}, wantErr: ErrEmptyContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTurn(tt.turn)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateTurn() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTurn() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

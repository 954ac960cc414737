package core

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ContentHash returns a short deterministic digest of text using BLAKE2b.
// Identical content always produces identical hashes.
func ContentHash(text string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// RecordKind identifies what a document record was embedded from.
type RecordKind int

const (
	// RecordKindText is a chunk of extracted text.
	RecordKindText RecordKind = iota + 1
	// RecordKindImage is an embedded image.
	RecordKindImage
)

func (k RecordKind) String() string {
	switch k {
	case RecordKindText:
		return "text"
	case RecordKindImage:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DocumentRecord is one retrievable unit of an ingested corpus.
type DocumentRecord struct {
	ID          string
	Collection  string
	Kind        RecordKind
	Vector      []float32
	Model       string            // Embedding model that produced Vector; empty for legacy records
	Metadata    map[string]string // Source fields (row columns, file name, page number)
	RawText     string
	ContentHash string
	CreatedAt   time.Time
}

// Dimensions returns the length of the record's embedding.
func (r *DocumentRecord) Dimensions() int {
	return len(r.Vector)
}

// ReplaceRecordID returns the id used for the n-th text chunk of a full re-ingestion.
func ReplaceRecordID(n int) string {
	return fmt.Sprintf("vec-%d", n)
}

// ReplaceImageID returns the id used for the n-th image of a full re-ingestion.
func ReplaceImageID(n int) string {
	return fmt.Sprintf("img-%d", n)
}

// UpsertRecordID returns the collision-free id used for incremental ingestion.
// The session prefix keeps chunks from different sessions apart.
func UpsertRecordID(sessionID, sourceID string, n int) string {
	return fmt.Sprintf("%s-%s_chunk%d", sessionID, sourceID, n)
}

// UpsertImageID is the image counterpart of UpsertRecordID.
func UpsertImageID(sessionID, sourceID string, n int) string {
	return fmt.Sprintf("%s-%s_image%d", sessionID, sourceID, n)
}

// Backend identifies where a session's corpus lives.
type Backend string

const (
	// BackendVectorIndex stores records in the embedded key-value vector index.
	BackendVectorIndex Backend = "vector_index"
	// BackendDocumentStore stores records in the relational document store.
	BackendDocumentStore Backend = "document_store"
)

// ParseBackend accepts the canonical names plus the legacy upload form values.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vector_index", "vectorindex", "pinecone", "badger":
		return BackendVectorIndex, nil
	case "document_store", "documentstore", "mongodb", "sqlite":
		return BackendDocumentStore, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// Location is the backend-specific address of a corpus.
// Index and Namespace apply to BackendVectorIndex; Database and Collection
// apply to BackendDocumentStore.
type Location struct {
	Index      string `json:"index,omitempty" bson:"index,omitempty"`
	Namespace  string `json:"namespace,omitempty" bson:"namespace,omitempty"`
	Database   string `json:"database,omitempty" bson:"database,omitempty"`
	Collection string `json:"collection,omitempty" bson:"collection,omitempty"`
}

// CollectionKey flattens a location into the collection name used by storage.
func (l Location) CollectionKey(backend Backend) string {
	switch backend {
	case BackendVectorIndex:
		if l.Namespace == "" {
			return l.Index
		}
		return l.Index + "/" + l.Namespace
	case BackendDocumentStore:
		return l.Database + "/" + l.Collection
	default:
		return ""
	}
}

// Session ties an ingested corpus to the location needed to query it later.
// Sessions are immutable once created.
type Session struct {
	ID        string
	Backend   Backend
	Location  Location
	Files     []string
	CreatedAt time.Time
}

// Collection returns the storage collection the session points at.
func (s *Session) Collection() string {
	return s.Location.CollectionKey(s.Backend)
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a user's conversation log.
type Turn struct {
	UserID    string
	Role      Role
	Content   string
	Timestamp time.Time
}

// Profile is the best-effort picture of a user assembled from their messages.
type Profile struct {
	Name       string
	Age        int
	Profession string
	Hobbies    []string
}

// Merge folds other into p field by field. Non-empty scalar fields of other
// win, hobbies are unioned preserving first-seen order.
func (p *Profile) Merge(other Profile) {
	if other.Name != "" {
		p.Name = other.Name
	}
	if other.Age > 0 {
		p.Age = other.Age
	}
	if other.Profession != "" {
		p.Profession = other.Profession
	}
	seen := make(map[string]bool, len(p.Hobbies))
	for _, h := range p.Hobbies {
		seen[h] = true
	}
	for _, h := range other.Hobbies {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		p.Hobbies = append(p.Hobbies, h)
	}
}

// IsZero reports whether nothing is known about the user.
func (p Profile) IsZero() bool {
	return p.Name == "" && p.Age == 0 && p.Profession == "" && len(p.Hobbies) == 0
}

// SearchResult pairs a stored record with its similarity to a query.
type SearchResult struct {
	Record *DocumentRecord
	Score  float32
}

package core

import (
	"reflect"
	"testing"
)

func TestContentHash(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "ascii", content: "test content"},
		{name: "empty string", content: ""},
		{name: "thai", content: "ติดต่อเจ้าหน้าที่"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1 := ContentHash(tt.content)
			h2 := ContentHash(tt.content)
			if h1 != h2 {
				t.Errorf("ContentHash() produced different hashes for same content: %s vs %s", h1, h2)
			}
			if len(h1) != 16 {
				t.Errorf("ContentHash() length = %d, want 16", len(h1))
			}
		})
	}
}

func TestContentHash_Different(t *testing.T) {
	if ContentHash("content1") == ContentHash("content2") {
		t.Errorf("ContentHash() produced same hash for different content")
	}
}

func TestRecordIDs(t *testing.T) {
	if got := ReplaceRecordID(3); got != "vec-3" {
		t.Errorf("ReplaceRecordID() = %q", got)
	}
	if got := UpsertRecordID("s1", "faq.csv", 0); got != "s1-faq.csv_chunk0" {
		t.Errorf("UpsertRecordID() = %q", got)
	}
	if got := UpsertImageID("s1", "scan", 2); got != "s1-scan_image2" {
		t.Errorf("UpsertImageID() = %q", got)
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{in: "vector_index", want: BackendVectorIndex},
		{in: "Pinecone", want: BackendVectorIndex},
		{in: "MongoDB", want: BackendDocumentStore},
		{in: " document_store ", want: BackendDocumentStore},
		{in: "cassandra", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseBackend(%q) error = nil", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBackend(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseBackend(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLocation_CollectionKey(t *testing.T) {
	loc := Location{Index: "faq", Namespace: "it", Database: "file_agent_db", Collection: "docs"}

	if got := loc.CollectionKey(BackendVectorIndex); got != "faq/it" {
		t.Errorf("vector index key = %q", got)
	}
	if got := loc.CollectionKey(BackendDocumentStore); got != "file_agent_db/docs" {
		t.Errorf("document store key = %q", got)
	}
	if got := (Location{Index: "faq"}).CollectionKey(BackendVectorIndex); got != "faq" {
		t.Errorf("key without namespace = %q", got)
	}
}

func TestProfile_Merge(t *testing.T) {
	p := Profile{Name: "Somchai", Hobbies: []string{"football", "chess"}}

	p.Merge(Profile{Age: 21, Hobbies: []string{"chess", "music", " "}})
	p.Merge(Profile{Profession: "student"})

	want := Profile{
		Name:       "Somchai",
		Age:        21,
		Profession: "student",
		Hobbies:    []string{"football", "chess", "music"},
	}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("Merge() = %+v, want %+v", p, want)
	}

	p.Merge(Profile{})
	if !reflect.DeepEqual(p, want) {
		t.Errorf("Merge(empty) changed profile to %+v", p)
	}
}

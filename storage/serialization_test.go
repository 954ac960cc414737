package storage

import (
	"math"
	"testing"
	"time"

	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorBlob(t *testing.T) {
	t.Run("round trip keeps exact bits", func(t *testing.T) {
		vector := []float32{0.1, -0.2, 3.5e-8, 1}
		blob, err := EncodeVector(vector)
		require.NoError(t, err)
		assert.Len(t, blob, 4+4*len(vector))

		decoded, err := DecodeVector(blob)
		require.NoError(t, err)
		assert.Equal(t, vector, decoded)
	})

	t.Run("empty vector rejected", func(t *testing.T) {
		_, err := EncodeVector(nil)
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("non-finite values rejected", func(t *testing.T) {
		_, err := EncodeVector([]float32{1, float32(math.NaN())})
		assert.ErrorIs(t, err, ErrSerializationFailed)
		_, err = EncodeVector([]float32{float32(math.Inf(1))})
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("truncated blobs", func(t *testing.T) {
		_, err := DecodeVector([]byte{1, 0})
		assert.ErrorIs(t, err, ErrTruncatedData)

		blob, err := EncodeVector([]float32{1, 2})
		require.NoError(t, err)
		_, err = DecodeVector(blob[:len(blob)-1])
		assert.ErrorIs(t, err, ErrTruncatedData)
	})

	t.Run("zero dimension header", func(t *testing.T) {
		_, err := DecodeVector([]byte{0, 0, 0, 0})
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})
}

func TestDocumentRecordCodec(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 30, 15, 123456789, time.UTC)
	record := &core.DocumentRecord{
		ID:          "vec-0",
		Collection:  "buu-index/faq",
		Kind:        core.RecordKindText,
		Vector:      []float32{0.25, 0.5, -0.75},
		Model:       "text-embedding-3-small",
		Metadata:    map[string]string{"source": "faq.csv", "row": "3"},
		RawText:     "คำถาม: ลืมรหัสผ่าน\nคำตอบ: ติดต่อสำนักคอมพิวเตอร์",
		ContentHash: core.ContentHash("x"),
		CreatedAt:   created,
	}

	data, err := MarshalDocumentRecord(record)
	require.NoError(t, err)

	decoded, err := UnmarshalDocumentRecord(data)
	require.NoError(t, err)

	assert.Equal(t, record.ID, decoded.ID)
	assert.Equal(t, record.Collection, decoded.Collection)
	assert.Equal(t, record.Kind, decoded.Kind)
	assert.Equal(t, record.Vector, decoded.Vector)
	assert.Equal(t, record.Model, decoded.Model)
	assert.Equal(t, record.Metadata, decoded.Metadata)
	assert.Equal(t, record.RawText, decoded.RawText)
	assert.Equal(t, record.ContentHash, decoded.ContentHash)
	// BSON datetimes have millisecond precision.
	assert.True(t, created.Truncate(time.Millisecond).Equal(decoded.CreatedAt))

	t.Run("legacy record without model or metadata", func(t *testing.T) {
		legacy := &core.DocumentRecord{ID: "vec-1", Kind: core.RecordKindText, Vector: []float32{1}, RawText: "x"}
		data, err := MarshalDocumentRecord(legacy)
		require.NoError(t, err)
		decoded, err := UnmarshalDocumentRecord(data)
		require.NoError(t, err)
		assert.Empty(t, decoded.Model)
		assert.Nil(t, decoded.Metadata)
	})

	t.Run("garbage bytes", func(t *testing.T) {
		_, err := UnmarshalDocumentRecord([]byte("not bson"))
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})
}

func TestBackendsFor(t *testing.T) {
	repo := &nopRepository{}
	backends := Backends{core.BackendVectorIndex: repo}

	got, err := backends.For(core.BackendVectorIndex)
	require.NoError(t, err)
	assert.Same(t, repo, got)

	_, err = backends.For(core.BackendDocumentStore)
	assert.ErrorIs(t, err, core.ErrUnknownBackend)
}

type nopRepository struct{ DocumentRepository }

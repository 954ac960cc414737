package storage

import (
	"testing"

	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textRecord(id, model string, vector ...float32) *core.DocumentRecord {
	return &core.DocumentRecord{ID: id, Kind: core.RecordKindText, Model: model, Vector: vector, RawText: id}
}

func TestValidateBatchDimensions(t *testing.T) {
	t.Run("same shape same length", func(t *testing.T) {
		require.NoError(t, ValidateBatch([]*core.DocumentRecord{
			textRecord("a", "embed", 1, 0),
			textRecord("b", "embed", 0, 1),
		}))
	})

	t.Run("mixed lengths for one model", func(t *testing.T) {
		err := ValidateBatch([]*core.DocumentRecord{
			textRecord("a", "embed", 1, 0),
			textRecord("b", "embed", 0, 1, 0),
		})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		assert.Contains(t, err.Error(), "record b")
	})

	t.Run("models and kinds keep their own length", func(t *testing.T) {
		image := textRecord("img", "embed", 1, 0, 0, 0)
		image.Kind = core.RecordKindImage
		require.NoError(t, ValidateBatch([]*core.DocumentRecord{
			textRecord("a", "embed", 1, 0),
			textRecord("b", "legacy", 1, 0, 0),
			image,
		}))
	})
}

func TestValidateBatchAgainstExisting(t *testing.T) {
	existing := Dimensions{{Kind: core.RecordKindText, Model: "embed"}: 2}

	require.NoError(t, ValidateBatchAgainst(existing, []*core.DocumentRecord{textRecord("a", "embed", 1, 0)}))
	require.NoError(t, ValidateBatchAgainst(existing, []*core.DocumentRecord{textRecord("a", "other", 1, 0, 0)}))

	err := ValidateBatchAgainst(existing, []*core.DocumentRecord{textRecord("a", "embed", 1, 0, 0)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Len(t, existing, 1, "existing dimensions are not modified")
}

func TestEncodedVectorDimensions(t *testing.T) {
	blob, err := EncodeVector([]float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, EncodedVectorDimensions(len(blob)))
	assert.Equal(t, 0, EncodedVectorDimensions(2))
}

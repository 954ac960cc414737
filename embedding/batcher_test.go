package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/tokenize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("text-%03d", i)
	}
	return out
}

func newTestBatcher(t *testing.T, embedder *mock.MockEmbedder, opts ...Option) *Batcher {
	t.Helper()
	b, err := NewBatcher(embedder, tokenize.Runes{}, opts...)
	require.NoError(t, err)
	t.Cleanup(b.Release)
	return b
}

func TestNewBatcherRequiresDependencies(t *testing.T) {
	_, err := NewBatcher(nil, tokenize.Runes{})
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewBatcher(mock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrTokenizerRequired)
}

func TestEmbedManyPreservesOrder(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	b := newTestBatcher(t, embedder, WithBatchSize(7), WithPoolSize(4))

	input := texts(50)
	vectors, err := b.EmbedMany(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, vectors, len(input))

	for i, text := range input {
		assert.Equal(t, mock.DeterministicVector(text, mock.DefaultDimensions), vectors[i], "slot %d", i)
	}
	// ceil(50/7) batches
	assert.Equal(t, 8, embedder.CallCount())
}

func TestEmbedManyEmptyInput(t *testing.T) {
	b := newTestBatcher(t, mock.NewMockEmbedder())
	vectors, err := b.EmbedMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedManyReportsShortBatch(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, in []string) ([][]float32, error) {
		// Drop one vector from the batch that contains text-012.
		out := make([][]float32, 0, len(in))
		for _, text := range in {
			out = append(out, mock.DeterministicVector(text, 8))
		}
		for _, text := range in {
			if text == "text-012" {
				return out[:len(out)-1], nil
			}
		}
		return out, nil
	})
	b := newTestBatcher(t, embedder, WithBatchSize(5), WithPoolSize(3))

	vectors, err := b.EmbedMany(context.Background(), texts(20))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCardinalityMismatch)
	require.Len(t, vectors, 20, "result never shrinks")

	failed := FailedBatches(err)
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].Batch)
	assert.Equal(t, 10, failed[0].Offset)
	assert.Equal(t, 5, failed[0].Expected)

	for i, v := range vectors {
		if i >= 10 && i < 15 {
			assert.Nil(t, v, "slot %d should be empty", i)
		} else {
			assert.NotNil(t, v, "slot %d should be filled", i)
		}
	}
}

func TestEmbedManyProviderFailure(t *testing.T) {
	providerErr := errors.New("rate limited")
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, in []string) ([][]float32, error) {
		return nil, providerErr
	})
	b := newTestBatcher(t, embedder, WithBatchSize(4))

	vectors, err := b.EmbedMany(context.Background(), texts(10))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCardinalityMismatch)
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, providerErr)
	assert.Len(t, FailedBatches(err), 3)
	require.Len(t, vectors, 10)
	for _, v := range vectors {
		assert.Nil(t, v)
	}
}

func TestEmbedBatchTruncatesInputs(t *testing.T) {
	var seen []string
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, in []string) ([][]float32, error) {
		seen = append(seen, in...)
		return make([][]float32, len(in)), nil
	})
	b := newTestBatcher(t, embedder, WithMaxInputTokens(5))

	_, err := b.EmbedBatch(context.Background(), []string{strings.Repeat("ก", 12), "short"})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, 5, utf8.RuneCountInString(seen[0]))
	assert.Equal(t, "short", seen[1])
}

func TestEmbedBatchCardinality(t *testing.T) {
	embedder := mock.NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, in []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	})
	b := newTestBatcher(t, embedder)

	_, err := b.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrCardinalityMismatch)
}

func TestEmbedImages(t *testing.T) {
	images := mock.NewMockImageEmbedder()
	images.EmbedImageFunc = func(ctx context.Context, data []byte) ([]float32, error) {
		if string(data) == "bad" {
			return nil, errors.New("decode failed")
		}
		return []float32{float32(len(data))}, nil
	}

	t.Run("skips failures", func(t *testing.T) {
		b := newTestBatcher(t, mock.NewMockEmbedder(), WithImageEmbedder(images))
		vectors, indices, err := b.EmbedImages(context.Background(), [][]byte{[]byte("a"), []byte("bad"), []byte("ccc")})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 2}, indices)
		assert.Equal(t, [][]float32{{1}, {3}}, vectors)
		assert.Equal(t, "mock-image", b.ImageModel())
	})

	t.Run("requires image embedder", func(t *testing.T) {
		b := newTestBatcher(t, mock.NewMockEmbedder())
		_, _, err := b.EmbedImages(context.Background(), [][]byte{[]byte("a")})
		assert.ErrorIs(t, err, ErrImageEmbedderRequired)
		assert.Empty(t, b.ImageModel())
	})
}

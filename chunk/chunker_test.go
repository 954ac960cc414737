package chunk

import (
	"strings"
	"testing"

	"github.com/poiesic/docchat/tokenize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := New(tokenize.Runes{})
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxTokens, c.MaxTokens())
		assert.Equal(t, DefaultStride, c.Stride())
	})

	t.Run("nil tokenizer", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, ErrTokenizerRequired)
	})

	t.Run("invalid window", func(t *testing.T) {
		_, err := New(tokenize.Runes{}, WithMaxTokens(0))
		assert.ErrorIs(t, err, ErrInvalidWindow)
	})

	t.Run("invalid stride", func(t *testing.T) {
		_, err := New(tokenize.Runes{}, WithStride(-1))
		assert.ErrorIs(t, err, ErrInvalidWindow)
	})
}

func TestChunks_EdgeCases(t *testing.T) {
	c, err := New(tokenize.Runes{}, WithMaxTokens(4), WithStride(2))
	require.NoError(t, err)

	assert.Empty(t, c.Chunks(""))
	assert.Empty(t, c.Chunks("   \n\t"))

	short := c.Chunks("abc")
	require.Len(t, short, 1)
	assert.Equal(t, "abc", short[0].Text)
	assert.Equal(t, 0, short[0].Start)
	assert.Equal(t, 3, short[0].End)

	exact := c.Chunks("abcd")
	require.Len(t, exact, 1)
	assert.Equal(t, "abcd", exact[0].Text)
}

func TestChunks_Overlap(t *testing.T) {
	c, err := New(tokenize.Runes{}, WithMaxTokens(4), WithStride(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"abcd", "cdef", "efgh", "ghij"}, c.Split("abcdefghij"))
}

func TestChunks_NoOverlap(t *testing.T) {
	c, err := New(tokenize.Runes{}, WithMaxTokens(3), WithStride(3))
	require.NoError(t, err)

	assert.Equal(t, []string{"abc", "def", "g"}, c.Split("abcdefg"))
}

func TestChunks_CountBound(t *testing.T) {
	for maxTokens := 1; maxTokens <= 7; maxTokens++ {
		for stride := 1; stride <= maxTokens; stride++ {
			c, err := New(tokenize.Runes{}, WithMaxTokens(maxTokens), WithStride(stride))
			require.NoError(t, err)

			for n := 1; n <= 30; n++ {
				text := strings.Repeat("x", n)
				got := len(c.Chunks(text))

				want := 1
				if n >= maxTokens {
					want = (n-maxTokens+stride-1)/stride + 1
				}
				assert.Equal(t, want, got, "n=%d max=%d stride=%d", n, maxTokens, stride)
			}
		}
	}
}

func TestChunks_Coverage(t *testing.T) {
	for maxTokens := 1; maxTokens <= 6; maxTokens++ {
		for stride := 1; stride <= maxTokens; stride++ {
			c, err := New(tokenize.Runes{}, WithMaxTokens(maxTokens), WithStride(stride))
			require.NoError(t, err)

			for n := 1; n <= 25; n++ {
				covered := make([]bool, n)
				for _, ch := range c.Chunks(strings.Repeat("y", n)) {
					assert.LessOrEqual(t, ch.End-ch.Start, maxTokens)
					for i := ch.Start; i < ch.End; i++ {
						covered[i] = true
					}
				}
				for i, ok := range covered {
					assert.True(t, ok, "token %d uncovered for n=%d max=%d stride=%d", i, n, maxTokens, stride)
				}
			}
		}
	}
}

func TestChunks_IndexesAreSequential(t *testing.T) {
	c, err := New(tokenize.Runes{}, WithMaxTokens(5), WithStride(3))
	require.NoError(t, err)

	for i, ch := range c.Chunks("ข้อมูลนี้มาจากหลายไฟล์") {
		assert.Equal(t, i, ch.Index)
		assert.NotEmpty(t, ch.Text)
	}
}

package retrieval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{2, 0}, []float32{5, 0}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
		{"nan", []float32{nan, 1}, []float32{1, 1}, 0},
		{"inf", []float32{inf, 1}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-6)
		})
	}
}

func TestCosineBounded(t *testing.T) {
	vectors := [][]float32{
		{1e30, 1e30}, {-3, 4}, {0.1, -0.2}, {1, 1e-30}, {7, 7},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			score := Cosine(a, b)
			assert.False(t, math.IsNaN(float64(score)))
			assert.LessOrEqual(t, score, float32(1))
			assert.GreaterOrEqual(t, score, float32(-1))
		}
	}
}

func TestFit(t *testing.T) {
	assert.Equal(t, []float32{1, 2}, fit([]float32{1, 2, 3}, 2))
	assert.Equal(t, []float32{1, 2, 0, 0}, fit([]float32{1, 2}, 4))
}

func TestReconcilerProject(t *testing.T) {
	r := NewReconciler(nil)

	t.Run("single vector is padded", func(t *testing.T) {
		got := r.Project([][]float32{{1, 2}}, 3)
		assert.Equal(t, [][]float32{{1, 2, 0}}, got)
	})

	t.Run("single vector is sliced", func(t *testing.T) {
		got := r.Project([][]float32{{1, 2, 3, 4}}, 2)
		assert.Equal(t, [][]float32{{1, 2}}, got)
	})

	t.Run("group is projected", func(t *testing.T) {
		group := [][]float32{
			{1, 2, 0, 1},
			{2, 4, 1, 0},
			{3, 6, 0, 1},
			{4, 8, 1, 1},
		}
		got := r.Project(group, 2)
		assert.Len(t, got, len(group))
		for _, v := range got {
			assert.Len(t, v, 2)
			for _, x := range v {
				assert.False(t, math.IsNaN(float64(x)))
			}
		}
		// The dominant direction is (1, 2, 0, 0); rows spread along it in order.
		first := got[0][0]
		last := got[3][0]
		assert.Greater(t, math.Abs(float64(last-first)), 1.0)
	})

	t.Run("too few rows falls back to slicing", func(t *testing.T) {
		group := [][]float32{{1, 2, 3, 4, 5}, {5, 4, 3, 2, 1}}
		got := r.Project(group, 3)
		assert.Equal(t, [][]float32{{1, 2, 3}, {5, 4, 3}}, got)
	})

	t.Run("growing dimension falls back to padding", func(t *testing.T) {
		group := [][]float32{{1, 2}, {3, 4}, {5, 6}}
		got := r.Project(group, 3)
		assert.Equal(t, [][]float32{{1, 2, 0}, {3, 4, 0}, {5, 6, 0}}, got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, r.Project(nil, 3))
	})
}

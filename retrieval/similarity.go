package retrieval

import "math"

// Cosine returns the cosine similarity of a and b, clamped to [-1, 1].
// Vectors of different lengths, zero vectors and vectors holding NaN or Inf
// score 0.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(score) || math.IsInf(score, 0):
		return 0
	case score > 1:
		return 1
	case score < -1:
		return -1
	}
	return float32(score)
}

// fit slices v to dim components, or pads it with zeros.
func fit(v []float32, dim int) []float32 {
	out := make([]float32, dim)
	copy(out, v)
	return out
}

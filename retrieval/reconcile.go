package retrieval

import (
	"log/slog"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Reconciler maps vectors of a foreign dimension onto a target dimension.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{logger: logger}
}

// Project maps every vector of group, which must share one dimension, to
// dim components. A lone vector is sliced or padded. A larger group is
// projected onto its first dim principal components; when the group has too
// few rows or columns for that, each vector is sliced or padded instead.
func (r *Reconciler) Project(group [][]float32, dim int) [][]float32 {
	if len(group) == 0 || dim < 1 {
		return nil
	}
	if len(group) > 1 {
		if projected, ok := principalProjection(group, dim); ok {
			return projected
		}
		r.logger.Debug("pca unavailable, slicing vectors",
			"vectors", len(group), "from", len(group[0]), "to", dim)
	}
	out := make([][]float32, len(group))
	for i, v := range group {
		out[i] = fit(v, dim)
	}
	return out
}

func principalProjection(group [][]float32, k int) ([][]float32, bool) {
	n, d := len(group), len(group[0])
	if k > n || k > d {
		return nil, false
	}

	data := mat.NewDense(n, d, nil)
	for i, v := range group {
		if len(v) != d {
			return nil, false
		}
		for j, x := range v {
			data.Set(i, j, float64(x))
		}
	}

	var pc stat.PC
	if !pc.PrincipalComponents(data, nil) {
		return nil, false
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	if _, c := vecs.Dims(); k > c {
		return nil, false
	}

	// Center columns before projecting, as the components describe
	// variance around the mean.
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, data)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			data.Set(i, j, col[i]-mean)
		}
	}

	var proj mat.Dense
	proj.Mul(data, vecs.Slice(0, d, 0, k))

	out := make([][]float32, n)
	for i := range out {
		row := make([]float32, k)
		for j := range row {
			row[j] = float32(proj.At(i, j))
		}
		out[i] = row
	}
	return out, true
}

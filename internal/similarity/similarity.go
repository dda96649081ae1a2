// Package similarity scores pairs of embedding vectors.
//
// Cosine never returns a sentinel score: when either operand carries no
// usable signal (absent, empty, mismatched length or zero norm) the second
// return value is false and the caller excludes the pair. Negative scores
// are legitimate results.
package similarity

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Cosine returns dot(a,b)/(|a||b|) in [-1,1] and whether the pair had signal.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	va, vb := toVec(a), toVec(b)
	normA := mat.Norm(va, 2)
	normB := mat.Norm(vb, 2)
	if normA == 0 || normB == 0 {
		return 0, false
	}

	return clamp(mat.Dot(va, vb)/(normA*normB), -1, 1), true
}

// Batch computes the cosine similarity of query against every row.
//
// Rows are normalized in bulk and scored with one matrix-vector product.
// The returned ok slice marks rows that produced a score; rows that are
// empty, zero, or of a different dimension than the query are excluded.
// A query without signal excludes every row.
func Batch(query []float32, rows [][]float32) (scores []float64, ok []bool) {
	scores = make([]float64, len(rows))
	ok = make([]bool, len(rows))

	q := toVec(query)
	if len(query) == 0 {
		return scores, ok
	}
	qNorm := mat.Norm(q, 2)
	if qNorm == 0 {
		return scores, ok
	}
	q.ScaleVec(1/qNorm, q)

	// Pack usable rows into a dense matrix, remembering their positions.
	dim := len(query)
	index := make([]int, 0, len(rows))
	data := make([]float64, 0, len(rows)*dim)
	for i, row := range rows {
		if len(row) != dim {
			continue
		}
		var sum float64
		for _, v := range row {
			sum += float64(v) * float64(v)
		}
		if sum == 0 {
			continue
		}
		norm := math.Sqrt(sum)
		for _, v := range row {
			data = append(data, float64(v)/norm)
		}
		index = append(index, i)
	}
	if len(index) == 0 {
		return scores, ok
	}

	m := mat.NewDense(len(index), dim, data)
	var out mat.VecDense
	out.MulVec(m, q)

	for j, i := range index {
		scores[i] = clamp(out.AtVec(j), -1, 1)
		ok[i] = true
	}
	return scores, ok
}

func toVec(v []float32) *mat.VecDense {
	data := make([]float64, len(v))
	for i, x := range v {
		data[i] = float64(x)
	}
	if len(data) == 0 {
		// gonum panics on zero-length vectors
		return mat.NewVecDense(1, nil)
	}
	return mat.NewVecDense(len(data), data)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

package rerank

import (
	"fmt"
	"math"

	"github.com/poiesic/inquirit/core"
)

// Score computes the similarity between two equal-length vectors.
//
// Cosine scores fall in [-1, 1]; a zero-magnitude vector on either side
// scores 0. Dot returns the raw inner product. Two empty vectors score 0
// under either measure. Sums accumulate in float64.
func Score(x, y []float32, measure core.SimilarityMeasure) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("%w: %w: %d != %d", core.ErrInvalidInput, core.ErrVectorLengthMismatch, len(x), len(y))
	}

	switch measure {
	case core.SimilarityCosine:
		return cosine(x, y), nil
	case core.SimilarityDot:
		return dot(x, y), nil
	default:
		return 0, fmt.Errorf("%w: unknown similarity measure %q", core.ErrInvalidInput, measure)
	}
}

func dot(x, y []float32) float64 {
	var sum float64
	for i := range x {
		sum += float64(x[i]) * float64(y[i])
	}
	return sum
}

func cosine(x, y []float32) float64 {
	var product, xx, yy float64
	for i := range x {
		a, b := float64(x[i]), float64(y[i])
		product += a * b
		xx += a * a
		yy += b * b
	}
	if xx == 0 || yy == 0 {
		return 0
	}
	s := product / (math.Sqrt(xx) * math.Sqrt(yy))
	// clamp rounding drift
	return math.Max(-1, math.Min(1, s))
}

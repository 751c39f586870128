package ranking

import (
	"fmt"

	apperrors "agrirank/internal/errors"
)

// Normalizer applies min-max scaling within one bucket.
type Normalizer struct {
	degenerate float64
}

// NewNormalizer returns a normalizer that emits degenerate for every value
// of a constant series. Only 0 and 0.5 are accepted.
func NewNormalizer(degenerate float64) (Normalizer, error) {
	if degenerate != 0 && degenerate != 0.5 {
		return Normalizer{}, apperrors.NewConfigError(
			fmt.Sprintf("degenerate normalization value must be 0 or 0.5, got %v", degenerate), nil).
			WithContext("field", "degenerate_value")
	}
	return Normalizer{degenerate: degenerate}, nil
}

// DegenerateValue returns the constant used for constant series.
func (n Normalizer) DegenerateValue() float64 {
	return n.degenerate
}

// Normalize maps values onto [0,1] as (x-min)/(max-min). The maximum maps
// to exactly 1 and the minimum to exactly 0. When every value is equal the
// result is the degenerate constant and the second return value is true.
func (n Normalizer) Normalize(values []float64) ([]float64, bool) {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out, false
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		for i := range out {
			out[i] = n.degenerate
		}
		return out, true
	}

	span := hi - lo
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out, false
}

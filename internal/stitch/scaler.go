package stitch

import (
	"math"

	"github.com/Denis-Evseev/google-daily-trends/internal/contracts"
)

// Scale aligns incoming onto reference's scale using the maxima of both
// inside overlap: coef = max(reference) / max(incoming).
// Both maxima must exist and be non-zero, so coef is always > 0.
func Scale(incoming, reference contracts.Series, overlap contracts.Window) (contracts.Series, float64, error) {
	yNew, okNew := incoming.Max(overlap.From, overlap.To)
	yAcc, okAcc := reference.Max(overlap.From, overlap.To)
	if !okNew || !okAcc {
		return contracts.Series{}, 0, newError(KindEmptyOverlap,
			"no shared days in %s (incoming %d points, reference %d points)",
			overlap, incoming.Between(overlap.From, overlap.To).Len(), reference.Between(overlap.From, overlap.To).Len())
	}

	coef, err := coefficient(yAcc, yNew)
	if err != nil {
		return contracts.Series{}, 0, err
	}
	return incoming.Scale(coef), coef, nil
}

// coefficient divides the reference maximum by the incoming maximum
func coefficient(ref, in float64) (float64, error) {
	if in == 0 {
		return 0, newError(KindZeroDenominator, "incoming overlap maximum is 0")
	}
	if ref == 0 {
		return 0, newError(KindZeroDenominator, "reference overlap maximum is 0")
	}
	coef := ref / in
	if coef <= 0 || math.IsNaN(coef) || math.IsInf(coef, 0) {
		return 0, newError(KindZeroDenominator, "coefficient %v is not positive and finite", coef)
	}
	return coef, nil
}

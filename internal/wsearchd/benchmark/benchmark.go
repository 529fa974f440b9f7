// Package benchmark maps an average search rank to the click-through rate a
// result at that rank is expected to earn.
package benchmark

import (
	"fmt"
	"math"
)

const (
	// MinRank and MaxRank bound the ranks covered by a curve
	MinRank = 1
	MaxRank = 10

	// Fallback is returned for a rank missing from the curve
	Fallback = 0.01
)

// Curve holds expected CTR values indexed by integer rank
type Curve map[int]float64

// Default is the fixed first-page CTR curve
var Default = Curve{
	1:  0.28,
	2:  0.15,
	3:  0.11,
	4:  0.08,
	5:  0.06,
	6:  0.05,
	7:  0.04,
	8:  0.03,
	9:  0.03,
	10: 0.02,
}

// CTR returns the expected click-through rate for position using the default curve
func CTR(position float64) float64 {
	return Default.CTR(position)
}

// CTR rounds position to the nearest rank, clamps it to the first page and
// looks it up.
func (c Curve) CTR(position float64) float64 {
	rank := int(math.Round(position))
	if rank < MinRank {
		rank = MinRank
	}
	if rank > MaxRank {
		rank = MaxRank
	}
	if v, ok := c[rank]; ok {
		return v
	}
	return Fallback
}

// Validate checks that every rank is present, within [0,1], and that expected
// CTR never increases as rank worsens.
func (c Curve) Validate() error {
	prev := math.Inf(1)
	for rank := MinRank; rank <= MaxRank; rank++ {
		v, ok := c[rank]
		if !ok {
			return fmt.Errorf("benchmark curve missing rank %d", rank)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("benchmark ctr for rank %d out of range: %v", rank, v)
		}
		if v > prev {
			return fmt.Errorf("benchmark curve increases at rank %d (%v > %v)", rank, v, prev)
		}
		prev = v
	}
	return nil
}

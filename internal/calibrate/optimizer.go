package calibrate

import (
	"errors"
	"math"
	"math/rand/v2"
)

// ErrNoConvergence marks an optimization run that never found a finite loss.
// It is always surfaced to the caller; the engine never falls back to a
// default parameter set.
var ErrNoConvergence = errors.New("optimizer failed to converge")

// Bound is an inclusive search interval for one parameter.
type Bound struct {
	Lo, Hi float64
}

// Clamp pulls v into the bound.
func (b Bound) Clamp(v float64) float64 {
	return math.Min(b.Hi, math.Max(b.Lo, v))
}

// Optimizer minimizes a black-box loss over a bounded box. Hints are
// candidate points evaluated before any exploration; implementations clamp
// them into bounds. Any gradient-free scheme satisfies the contract.
type Optimizer interface {
	Minimize(loss func([]float64) float64, bounds []Bound, hints [][]float64, iters int) ([]float64, float64, error)
}

// RandomSearch explores uniformly at first, then concentrates Gaussian
// perturbations around the incumbent with a shrinking radius. Deterministic
// for a given seed.
type RandomSearch struct {
	rng *rand.Rand

	// ExploreFraction of the budget is spent on uniform draws; the rest
	// refines around the best point.
	ExploreFraction float64
}

func NewRandomSearch(seed uint64) *RandomSearch {
	return &RandomSearch{
		rng:             rand.New(rand.NewPCG(seed, 0)),
		ExploreFraction: 0.4,
	}
}

// Minimize runs the search for iters evaluations beyond the hints.
func (o *RandomSearch) Minimize(loss func([]float64) float64, bounds []Bound, hints [][]float64, iters int) ([]float64, float64, error) {
	dim := len(bounds)
	best := make([]float64, dim)
	bestLoss := math.Inf(1)

	try := func(x []float64) {
		l := loss(x)
		if !math.IsNaN(l) && l < bestLoss {
			bestLoss = l
			copy(best, x)
		}
	}

	for _, h := range hints {
		x := make([]float64, dim)
		for i, b := range bounds {
			v := b.Lo
			if i < len(h) {
				v = b.Clamp(h[i])
			}
			x[i] = v
		}
		try(x)
	}

	explore := int(float64(iters) * o.ExploreFraction)
	for it := 0; it < iters; it++ {
		x := make([]float64, dim)
		if it < explore || math.IsInf(bestLoss, 1) {
			for i, b := range bounds {
				x[i] = b.Lo + o.rng.Float64()*(b.Hi-b.Lo)
			}
		} else {
			// Shrink the perturbation radius as the refinement progresses.
			progress := float64(it-explore) / float64(iters-explore)
			sigma := 0.25 * math.Pow(0.05/0.25, progress)
			for i, b := range bounds {
				span := b.Hi - b.Lo
				x[i] = b.Clamp(best[i] + o.rng.NormFloat64()*sigma*span)
			}
		}
		try(x)
	}

	if math.IsInf(bestLoss, 1) {
		return nil, 0, ErrNoConvergence
	}
	return best, bestLoss, nil
}

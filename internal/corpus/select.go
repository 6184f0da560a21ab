package corpus

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// Selector draws corpus indices. Each call first draws a probability
// vector from a Dirichlet distribution whose concentrations are the
// descriptor weights, then draws indices from the categorical
// distribution over that vector. Longer files are favoured on average
// while every call sees a different bias.
type Selector struct {
	rng *rand.Rand
}

// NewSelector draws with rng, which must not be shared across goroutines.
func NewSelector(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

// Select returns k indices into c. It returns false when c is empty.
func (s *Selector) Select(c Corpus, k int) ([]int, bool) {
	if len(c) == 0 {
		return nil, false
	}
	if len(c) == 1 {
		return make([]int, k), true
	}

	weights := make([]float64, len(c))
	for i, d := range c {
		weights[i] = d.Weight
	}

	p := distmv.NewDirichlet(weights, s.rng).Rand(nil)
	if !usable(p) {
		// Every gamma draw underflowed; fall back to the weights themselves.
		p = weights
	}

	cat := distuv.NewCategorical(p, s.rng)
	out := make([]int, k)
	for i := range out {
		out[i] = int(cat.Rand())
	}
	return out, true
}

func usable(p []float64) bool {
	var sum float64
	for _, v := range p {
		if math.IsNaN(v) || v < 0 {
			return false
		}
		sum += v
	}
	return sum > 0 && !math.IsInf(sum, 0)
}

package mcts

import rng "github.com/leesper/go_rng"

// Dirichlet draws one sample from Dirichlet(alpha, alpha, ..., alpha) of the
// given length, via the standard gamma-sample-then-normalize construction:
// each coordinate is an independent Gamma(alpha, 1) draw, and the vector is
// renormalized to sum to 1. An alpha <= 0 yields the uniform vector.
func Dirichlet(seed int64, alpha float32, n int) []float32 {
	g := rng.NewGammaGenerator(seed)
	out := make([]float32, n)
	var sum float64
	if alpha > 0 {
		for i := range out {
			v := g.Gamma(float64(alpha), 1.0)
			out[i] = float32(v)
			sum += v
		}
	}
	if sum <= 0 {
		// Degenerate draw (alpha <= 0, which the gamma sampler rejects, or a
		// very small alpha): fall back to a uniform vector rather than
		// returning all-zero noise.
		for i := range out {
			out[i] = 1 / float32(n)
		}
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

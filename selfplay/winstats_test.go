package selfplay

import (
	"testing"

	dual "github.com/gorgonia/selfplay/dualnet"
	围碁 "github.com/gorgonia/selfplay/game/wq"
	"github.com/gorgonia/selfplay/mcts"
	"github.com/stretchr/testify/assert"
)

func newFinishedGame(t *testing.T, resigned bool) *SelfplayGame {
	t.Helper()
	opts := NewOptions(baseConfig(), true, false)
	opts.BoardSize = 5
	opts.NumReadouts = 1
	opts.VirtualLosses = 4
	opts.ResignThreshold = -0.1
	features := dual.DefaultFeatureDescriptor()
	g := NewSelfplayGame(opts, mcts.DefaultConfig(), features, 1)

	value := float32(0)
	if resigned {
		// A fresh root's mover is always Black, and Q() is already
		// Black-absolute, so a crushing loss (-1) backed up to the root
		// makes QFromOwnPerspective() very negative, past the threshold
		// below, from the actual mover's own point of view.
		value = -1
	}

	var inferences []Inference
	g.SelectLeaves(nullCache{}, &inferences)
	for i := range inferences {
		inferences[i].Output = dual.Output{Policy: uniformPolicyFor(g), Value: value}
	}
	g.ProcessInferences("dummy-v1", inferences)

	g.MaybePlayMove()
	return g
}

func uniformPolicyFor(g *SelfplayGame) []float32 {
	n := g.Opts.BoardSize*g.Opts.BoardSize + 1
	p := make([]float32, n)
	for i := range p {
		p[i] = 1 / float32(n)
	}
	return p
}

func TestWinStatsRecordsUnderEveryModelUsed(t *testing.T) {
	g := newFinishedGame(t, true)
	assert.True(t, g.Resigned())

	stats := NewWinStats()
	stats.Record(g)

	models := g.ModelsUsed()
	assert.Len(t, models, 1)
	total := stats.wins[models[0]] + stats.losses[models[0]] + stats.draws[models[0]]
	assert.Equal(t, 1, total)
}

func TestWinStatsRecordFallsBackToEmptyModelName(t *testing.T) {
	g := &SelfplayGame{
		Opts: Options{BoardSize: 5},
		tree: mcts.New(围碁.New(5, 0, 0), mcts.DefaultConfig(), 0),
	}
	stats := NewWinStats()
	stats.Record(g)
	total := stats.wins[""] + stats.losses[""] + stats.draws[""]
	assert.Equal(t, 1, total)
}

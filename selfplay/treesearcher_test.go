package selfplay

import (
	"testing"

	dual "github.com/gorgonia/selfplay/dualnet"
	"github.com/gorgonia/selfplay/mcts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeSearcherSearchBuildsSpansPerGame(t *testing.T) {
	boardSize := 5
	opts := NewOptions(baseConfig(), true, false)
	opts.BoardSize = boardSize
	opts.NumReadouts = 8
	opts.VirtualLosses = 4
	features := dual.DefaultFeatureDescriptor()

	g1 := NewSelfplayGame(opts, mcts.DefaultConfig(), features, 1)
	g2 := NewSelfplayGame(opts, mcts.DefaultConfig(), features, 2)

	cache := NewInferenceCache(boardSize, boardSize*boardSize, 16, 2, 2)
	var s TreeSearcher
	s.search(cache, []*SelfplayGame{g1, g2})

	require.Len(t, s.Spans(), 2)
	assert.Equal(t, g1, s.Spans()[0].Game)
	assert.Equal(t, g2, s.Spans()[1].Game)
	assert.Equal(t, 0, s.Spans()[0].Pos)
	assert.Equal(t, s.Spans()[0].Len, s.Spans()[1].Pos)
	assert.Len(t, s.Inferences(), s.Spans()[0].Len+s.Spans()[1].Len)
}

func TestTreeSearcherSearchResetsBuffersBetweenCalls(t *testing.T) {
	boardSize := 5
	opts := NewOptions(baseConfig(), true, false)
	opts.BoardSize = boardSize
	opts.NumReadouts = 8
	opts.VirtualLosses = 4
	features := dual.DefaultFeatureDescriptor()
	g := NewSelfplayGame(opts, mcts.DefaultConfig(), features, 1)

	cache := NewInferenceCache(boardSize, boardSize*boardSize, 16, 2, 1)
	var s TreeSearcher
	s.search(cache, []*SelfplayGame{g})
	first := len(s.Inferences())
	require.Greater(t, first, 0)

	// With no ProcessInferences call in between, the root is still
	// unexpanded, so a second search on the same game queues it once more;
	// the buffers should hold only this round's entries, not leak the prior
	// round's.
	s.search(cache, []*SelfplayGame{g})
	assert.LessOrEqual(t, len(s.Inferences()), first)
}

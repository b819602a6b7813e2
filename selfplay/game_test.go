package selfplay

import (
	"testing"

	dual "github.com/gorgonia/selfplay/dualnet"
	"github.com/gorgonia/selfplay/game/symmetry"
	"github.com/gorgonia/selfplay/mcts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, boardSize int) *SelfplayGame {
	t.Helper()
	opts := NewOptions(baseConfig(), true, false)
	opts.BoardSize = boardSize
	opts.NumReadouts = 8
	opts.VirtualLosses = 4
	features := dual.DefaultFeatureDescriptor()
	return NewSelfplayGame(opts, mcts.DefaultConfig(), features, 7)
}

func runOneRound(g *SelfplayGame, cache InferenceCache) {
	var inferences []Inference
	g.SelectLeaves(cache, &inferences)
	for i := range inferences {
		n := g.Opts.BoardSize*g.Opts.BoardSize + 1
		policy := make([]float32, n)
		for j := range policy {
			policy[j] = 1 / float32(n)
		}
		inferences[i].Output = dual.Output{Policy: policy, Value: 0}
	}
	for i := range inferences {
		cache.Merge(inferences[i].Key, inferences[i].CanonicalSym, inferences[i].InferenceSym, inferences[i].Output)
	}
	g.ProcessInferences("dummy-v1", inferences)
}

func TestSelfplayGameReachesReadyToPlayAfterEnoughRounds(t *testing.T) {
	g := newTestGame(t, 5)
	cache := NewInferenceCache(5, 25, 16, 2, 1)

	for i := 0; i < 20 && g.State() != ReadyToPlay; i++ {
		runOneRound(g, cache)
	}
	assert.Equal(t, ReadyToPlay, g.State())
	assert.GreaterOrEqual(t, g.Tree().RootNode().N(), uint32(g.Opts.NumReadouts))
}

func TestMaybePlayMoveNoopsBeforeReadyToPlay(t *testing.T) {
	g := newTestGame(t, 5)
	assert.False(t, g.MaybePlayMove())
	assert.Equal(t, WaitingForInferences, g.State())
}

func TestMaybePlayMovePlaysAndRecordsAPly(t *testing.T) {
	g := newTestGame(t, 5)
	cache := NewInferenceCache(5, 25, 16, 2, 1)
	for i := 0; i < 20 && g.State() != ReadyToPlay; i++ {
		runOneRound(g, cache)
	}
	require.Equal(t, ReadyToPlay, g.State())

	played := g.MaybePlayMove()
	require.True(t, played)
	require.Len(t, g.Moves(), 1)

	ply := g.Moves()[0]
	assert.NotNil(t, ply.Features)
	assert.Len(t, ply.SearchPi, g.Opts.BoardSize*g.Opts.BoardSize+1)
}

func TestSelfplayGameRunsToCompletionAgainstDummyModel(t *testing.T) {
	boardSize := 5
	opts := NewOptions(baseConfig(), true, false)
	opts.BoardSize = boardSize
	opts.NumReadouts = 4
	opts.VirtualLosses = 4
	opts.MoveLimit = 6
	features := dual.DefaultFeatureDescriptor()
	g := NewSelfplayGame(opts, mcts.DefaultConfig(), features, 7)
	cache := NewInferenceCache(boardSize, boardSize*boardSize, 16, 2, 1)

	for rounds := 0; rounds < 500 && g.State() != Completed; rounds++ {
		runOneRound(g, cache)
		if g.State() == ReadyToPlay {
			g.MaybePlayMove()
		}
	}
	require.Equal(t, Completed, g.State())
	assert.LessOrEqual(t, len(g.Moves()), g.Opts.MoveLimit+1)

	for _, ply := range g.Moves() {
		assert.Contains(t, []float32{-1, 0, 1}, ply.FinalValue)
	}
}

func TestRecordModelUsedDedupesMostRecentLast(t *testing.T) {
	g := newTestGame(t, 5)
	g.recordModelUsed("a")
	g.recordModelUsed("b")
	g.recordModelUsed("a")
	assert.Equal(t, []string{"b", "a"}, g.ModelsUsed())
}

func TestEndgameValue(t *testing.T) {
	assert.Equal(t, float32(1), endgameValue(5, mcts.Black))
	assert.Equal(t, float32(-1), endgameValue(5, mcts.White))
	assert.Equal(t, float32(-1), endgameValue(-5, mcts.Black))
	assert.Equal(t, float32(1), endgameValue(-5, mcts.White))
}

func TestRotateFeaturePlanesPermutesEveryPlaneIdentically(t *testing.T) {
	boardSize := 3
	numFeatures := 2
	size := boardSize * boardSize
	input := make([]float32, size*numFeatures)
	for i := range input {
		input[i] = float32(i)
	}

	rotated := rotateFeaturePlanes(input, boardSize, numFeatures, symmetry.Identity)
	assert.Equal(t, input, rotated)

	// Plane 1 is plane 0 shifted by size, so after the same permutation the
	// two planes must still differ by exactly size at every point.
	rotated = rotateFeaturePlanes(input, boardSize, numFeatures, symmetry.Rot90)
	for j := 0; j < size; j++ {
		assert.Equal(t, rotated[j]+float32(size), rotated[size+j])
	}
}

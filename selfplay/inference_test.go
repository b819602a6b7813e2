package selfplay

import (
	"testing"

	"github.com/gorgonia/selfplay/game/symmetry"
	围碁 "github.com/gorgonia/selfplay/game/wq"
	"github.com/gorgonia/selfplay/mcts"
	"github.com/stretchr/testify/assert"
)

func TestNewCacheKeyUsesTheLeafsMove(t *testing.T) {
	boardSize := 5
	tree := mcts.New(围碁.New(boardSize, 0, 0), mcts.DefaultConfig(), 0)
	leaf := tree.SelectLeaf(true)

	node := tree.Node(leaf)
	key := NewCacheKey(node, boardSize)
	assert.Equal(t, node.Move(), key.Move)
}

func TestInferenceSymmetryIsDeterministicForSameInputs(t *testing.T) {
	boardSize := 9
	tree := mcts.New(围碁.New(boardSize, 0, 0), mcts.DefaultConfig(), 0)
	node := tree.RootNode()

	a := inferenceSymmetry(node.Position().Hash(), 12345)
	b := inferenceSymmetry(node.Position().Hash(), 12345)
	assert.Equal(t, a, b)
	assert.Less(t, uint8(a), uint8(symmetry.NumSymmetries))
}

func TestInferenceSymmetryVariesWithMix(t *testing.T) {
	boardSize := 9
	tree := mcts.New(围碁.New(boardSize, 0, 0), mcts.DefaultConfig(), 0)
	node := tree.RootNode()

	seen := map[symmetry.Symmetry]bool{}
	for mix := uint64(0); mix < 64; mix++ {
		seen[inferenceSymmetry(node.Position().Hash(), mix)] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestMixBitsIsDeterministic(t *testing.T) {
	assert.Equal(t, mixBits(7), mixBits(7))
	assert.NotEqual(t, mixBits(7), mixBits(8))
}

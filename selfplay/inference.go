package selfplay

import (
	dual "github.com/gorgonia/selfplay/dualnet"
	"github.com/gorgonia/selfplay/game"
	"github.com/gorgonia/selfplay/game/symmetry"
	"github.com/gorgonia/selfplay/mcts"
)

// CacheKey identifies a position for the inference cache: the move that led
// to it, plus a hash of its board in *canonical* orientation - so two
// positions reached by different move orders but related by one of the 8
// board symmetries collide onto the same entry (§4.1's 8x hit-rate
// rationale).
type CacheKey struct {
	Move          game.Single
	CanonicalHash uint64
}

// NewCacheKey builds the key for leaf, rotating both its board and its
// move into the canonical orientation the tree already computed at
// allocation time (mcts.Tree stamps every node with CanonicalSymmetry() via
// game/symmetry.Canonical). Rotating the move too, not just the board,
// matters for the hit-rate rationale above: two rotation-equivalent
// reach-paths into the same canonical board must also collide on Move, or
// they'd miss each other in the cache despite hashing to the same position.
func NewCacheKey(leaf *mcts.Node, boardSize int) CacheKey {
	sym := leaf.CanonicalSymmetry()
	canon := symmetry.RotateBoard(leaf.Position().Board(), boardSize, sym)
	move := symmetry.RotateMove(leaf.Move(), boardSize, sym)
	return CacheKey{Move: move, CanonicalHash: hashBoard(canon)}
}

// hashBoard is a plain FNV-1a over the board bytes, independent of the
// rules package's own Zobrist hash - it exists purely so that two boards
// with identical canonical orientation hash identically, and is never
// compared against game.Zobrist values.
func hashBoard(board []game.Colour) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, c := range board {
		h ^= uint64(c)
		h *= prime64
	}
	return h
}

// inferenceMixPrime is the fixed large prime P in the inference-symmetry
// formula (§4.4): inference_sym = MixBits(stone_hash*P + symmetry_mix) mod 8.
const inferenceMixPrime uint64 = 0xFFFFFFFFFFFFFFC5 // 2^64 - 59

// mixBits is a splitmix64-style avalanche finalizer: enough bit mixing that
// low bits of stone_hash*P+symmetry_mix don't correlate with the low bits of
// its inputs, which matters here because only the low 3 bits (mod 8) are
// kept.
func mixBits(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// inferenceSymmetry picks the per-leaf orientation a position is actually
// fed to the model under, so that repeated visits to the same position
// across many games see varied input orientations instead of always the
// canonical one (which would bias the policy network's receptive field).
func inferenceSymmetry(stoneHash game.Zobrist, symmetryMix uint64) symmetry.Symmetry {
	mixed := mixBits(uint64(stoneHash)*inferenceMixPrime + symmetryMix)
	return symmetry.Symmetry(mixed % symmetry.NumSymmetries)
}

// Inference is one pending leaf evaluation: what SelectLeaves queued for
// RunInferences to feed the model (Input, oriented per InferenceSym) and
// where the result is written back to once it returns (Leaf, for
// ProcessInferences; Key/CanonicalSym, for the cache merge).
type Inference struct {
	Key          CacheKey
	CanonicalSym symmetry.Symmetry
	InferenceSym symmetry.Symmetry
	Leaf         mcts.Leaf
	Input        []float32
	Output       dual.Output
}

// InferenceSpan locates one game's slice of Inferences inside a
// TreeSearcher's flat array (§3.1).
type InferenceSpan struct {
	Game *SelfplayGame
	Pos  int
	Len  int
}

package selfplay

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	dual "github.com/gorgonia/selfplay/dualnet"
	"github.com/gorgonia/selfplay/game"
	"github.com/gorgonia/selfplay/game/symmetry"
	围碁 "github.com/gorgonia/selfplay/game/wq"
	"github.com/gorgonia/selfplay/mcts"
	"github.com/rs/zerolog/log"
)

// softPickCutoff is the move number before which PickMove samples a move
// proportional to visit count rather than taking the argmax - the usual
// AlphaZero exploration window.
const softPickCutoff = 30

// gameState is the three-state cycle a SelfplayGame moves through between
// a SelectLeaves/ProcessInferences round and the next (§4.4).
type gameState int

const (
	// WaitingForInferences: SelectLeaves has queued work (or found nothing
	// left to queue) and the game is waiting on ProcessInferences.
	WaitingForInferences gameState = iota
	// ReadyToPlay: root.N() has reached target_readouts; MaybePlayMove can
	// commit a move.
	ReadyToPlay
	// Completed: the game has ended (resignation, two passes, or the move
	// limit) and duration has been stamped.
	Completed
)

// Ply is one played move's training-relevant record: the player, the move
// itself, the root's value estimate and visit-count policy at the time it
// was picked, and whether this ply should be emitted as a training example
// (fast-play and resignation plies are not).
type Ply struct {
	Player     game.Player
	Move       game.Single
	Q          float32
	SearchPi   []float32
	Features   []float32 // board encoding at the position the move was chosen from, identity orientation
	FinalValue float32   // backfilled once the game ends: +1/-1/0 from Player's perspective
	Trainable  bool
}

// SelfplayGame drives one game's MctsTree through the externally-stepped
// select/infer/play cycle (§4.4). It owns no network handle and does no
// I/O itself - SelectLeaves only ever appends work, ProcessInferences only
// ever consumes results handed back to it, and a SelfplayThread is the one
// that actually calls a Model and an InferenceCache in between.
type SelfplayGame struct {
	Opts     Options
	features dual.FeatureDescriptor

	tree *mcts.Tree
	rng  *rand.Rand

	symmetryMix uint64

	targetReadouts int
	fastplay       bool
	injectNoise    bool

	modelsUsed []string
	moves      []Ply

	state gameState
	start time.Time
	duration time.Duration
}

// NewSelfplayGame starts a fresh game: an empty board under opts, ready for
// its first SelectLeaves call. cfg is the tree-search tuning (PUCT, FPU,
// Benson's restriction); it is immutable for the tree's lifetime. seed
// derives both the game's move-sampling RNG and its per-leaf symmetry mix.
func NewSelfplayGame(opts Options, cfg mcts.Config, features dual.FeatureDescriptor, seed int64) *SelfplayGame {
	root := 围碁.New(opts.BoardSize, opts.Handicap, opts.Komi)
	tree := mcts.New(root, cfg, opts.MoveLimit)

	rng := rand.New(rand.NewSource(seed))
	return &SelfplayGame{
		Opts:           opts,
		features:       features,
		tree:           tree,
		rng:            rng,
		symmetryMix:    uint64(rng.Int63()),
		targetReadouts: opts.NumReadouts,
		fastplay:       false,
		injectNoise:    true,
		state:          WaitingForInferences,
		start:          time.Now(),
	}
}

// State reports where in the select/infer/play cycle the game currently is.
func (g *SelfplayGame) State() gameState { return g.state }

// Tree exposes the underlying search tree, e.g. for verbose logging
// (Tree.Describe) from the owning thread.
func (g *SelfplayGame) Tree() *mcts.Tree { return g.tree }

// ModelsUsed is every distinct model name that produced an inference for
// this game, most-recently-used last (§4.8, stamped into the SGF/example
// output as provenance).
func (g *SelfplayGame) ModelsUsed() []string { return g.modelsUsed }

// Moves is the played-move record, in order.
func (g *SelfplayGame) Moves() []Ply { return g.moves }

// Duration is the wall-clock time the game took, valid once State() is
// Completed.
func (g *SelfplayGame) Duration() time.Duration { return g.duration }

// Resigned reports whether the game ended by resignation rather than by
// the normal scoring rules.
func (g *SelfplayGame) Resigned() bool {
	return len(g.moves) > 0 && g.moves[len(g.moves)-1].Move.IsResignation()
}

// Winner reports the winning colour once the game is Completed: by the
// board score when it ran to completion, or by the resigning player's
// opponent when it ended in resignation.
func (g *SelfplayGame) Winner() game.Player {
	if g.Resigned() {
		last := g.moves[len(g.moves)-1]
		if last.Player == game.Player(game.Black) {
			return game.Player(game.White)
		}
		return game.Player(game.Black)
	}
	if g.tree.CalculateScore(float32(g.Opts.Komi)) >= 0 {
		return game.Player(game.Black)
	}
	return game.Player(game.White)
}

// SelectLeaves implements §4.4's select_leaves: descend the tree queuing
// leaves for inference until either num_virtual_losses are in flight or
// root.N() reaches target_readouts, appending every queued Inference to
// out and returning how many were queued this call (cache hits and
// terminal leaves are resolved immediately and don't count).
func (g *SelfplayGame) SelectLeaves(cache InferenceCache, out *[]Inference) int {
	if g.injectNoise {
		g.armRootNoise()
		g.injectNoise = false
	}

	queued := 0
	for queued < g.Opts.VirtualLosses && g.tree.RootNode().N() < uint32(g.targetReadouts) {
		leaf := g.tree.SelectLeaf(g.Opts.AllowPass)
		if !leaf.IsValid() {
			break
		}
		isRoot := leaf == g.tree.Root()
		leafNode := g.tree.Node(leaf)

		if leafNode.GameOver() || leafNode.AtMoveLimit() {
			pos := leafNode.Position()
			score := pos.Score(mcts.Black) - pos.Score(mcts.White) - float32(g.Opts.Komi)
			value := endgameValue(score, leafNode.ToPlay())
			g.tree.IncorporateEndGameResult(leaf, value)
			continue
		}

		if g.maybeQueueInference(cache, leaf, leafNode, out) {
			queued++
		}

		if isRoot {
			// First expansion of this move: queue exactly the root, then
			// stop, regardless of fastplay. Without this unconditional
			// break, a fastplay round whose root was just cleared
			// (ClearSubtrees, still unexpanded) would have SelectLeaf keep
			// returning the same unexpanded root every iteration, queuing
			// up to VirtualLosses duplicate, all-cache-missing inferences
			// for one position. Noise injection is armed for the *next*
			// SelectLeaves call rather than this one (the root's children,
			// and hence priors to blend into, don't exist until
			// IncorporateResults/ProcessInferences runs), and only when
			// this move isn't a fastplay move.
			g.injectNoise = !g.fastplay
			break
		}
	}
	g.state = WaitingForInferences
	if g.tree.RootNode().N() >= uint32(g.targetReadouts) {
		g.state = ReadyToPlay
	}
	return queued
}

// armRootNoise draws a Dirichlet(alpha) vector sized to the root's current
// child count and blends it into their priors. A no-op if the root has no
// children yet (nothing to blend into - SelectLeaves will expand it this
// round and re-arm for next time).
func (g *SelfplayGame) armRootNoise() {
	kids := g.tree.RootChildrenCount()
	if kids == 0 {
		return
	}
	d := mcts.Dirichlet(g.rng.Int63(), g.Opts.DirichletAlpha, kids)
	g.tree.InjectNoise(d, g.Opts.NoiseMix)
}

// maybeQueueInference implements step 3 of select_leaves: try the cache
// first; a hit is incorporated immediately, a miss is encoded, given a
// virtual loss, and appended to out. Returns true iff a real inference was
// queued.
func (g *SelfplayGame) maybeQueueInference(cache InferenceCache, leaf mcts.Leaf, leafNode *mcts.Node, out *[]Inference) bool {
	key := NewCacheKey(leafNode, g.Opts.BoardSize)
	canonicalSym := leafNode.CanonicalSymmetry()
	requestedSym := inferenceSymmetry(leafNode.Position().Hash(), g.symmetryMix)

	if output, ok := cache.TryGet(key, canonicalSym, requestedSym); ok {
		g.incorporate(leaf, output, requestedSym)
		return false
	}

	input := g.encodeInput(leafNode, requestedSym)
	g.tree.AddVirtualLoss(leaf)
	*out = append(*out, Inference{
		Key:          key,
		CanonicalSym: canonicalSym,
		InferenceSym: requestedSym,
		Leaf:         leaf,
		Input:        input,
	})
	return true
}

// incorporate un-rotates output (arrived oriented under requestedSym, see
// inferenceSymmetry) back to the leaf's own identity-frame coordinates
// before handing it to the tree, which indexes children by un-rotated move.
func (g *SelfplayGame) incorporate(leaf mcts.Leaf, output dual.Output, requestedSym symmetry.Symmetry) {
	policy := symmetry.RotatePolicy(output.Policy, g.Opts.BoardSize, symmetry.Inverse(requestedSym))
	g.tree.IncorporateResults(leaf, policy, output.Value)
}

// encodeInput builds the model input for leafNode, in sym's orientation -
// every spatial plane is permuted identically, the to-move plane is
// uniform so permuting it is a no-op.
func (g *SelfplayGame) encodeInput(leafNode *mcts.Node, sym symmetry.Symmetry) []float32 {
	raw := g.features.Encode(leafNode.Position())
	return rotateFeaturePlanes(raw, g.Opts.BoardSize, g.features.NumFeatures(), sym)
}

func rotateFeaturePlanes(input []float32, boardSize, numFeatures int, sym symmetry.Symmetry) []float32 {
	size := boardSize * boardSize
	perm := symmetry.Permutation(boardSize, sym)
	out := make([]float32, len(input))
	for f := 0; f < numFeatures; f++ {
		base := f * size
		for i := 0; i < size; i++ {
			out[base+perm[i]] = input[base+i]
		}
	}
	return out
}

// ProcessInferences implements §4.4's process_inferences: record the
// serving model's name (deduplicated, most-recently-used last) and
// incorporate every inference's result, reverting the virtual loss it was
// queued under. The cache merge is the caller's (SelfplayThread's)
// responsibility, done once per inference across all games sharing this
// model call (§4.6 step 4) rather than per game.
func (g *SelfplayGame) ProcessInferences(modelName string, inferences []Inference) {
	if modelName != "" {
		g.recordModelUsed(modelName)
	}
	for _, inf := range inferences {
		g.incorporate(inf.Leaf, inf.Output, inf.InferenceSym)
		g.tree.RevertVirtualLoss(inf.Leaf)
	}
	if g.tree.RootNode().N() >= uint32(g.targetReadouts) {
		g.state = ReadyToPlay
	}
}

func (g *SelfplayGame) recordModelUsed(name string) {
	for i, n := range g.modelsUsed {
		if n == name {
			g.modelsUsed = append(g.modelsUsed[:i], g.modelsUsed[i+1:]...)
			break
		}
	}
	g.modelsUsed = append(g.modelsUsed, name)
}

// MaybePlayMove implements §4.4's maybe_play_move: returns false without
// effect if root.N() hasn't reached target_readouts yet, otherwise commits
// one move (possibly a resignation) and arms the next move's fast-play and
// noise regime.
func (g *SelfplayGame) MaybePlayMove() bool {
	root := g.tree.RootNode()
	if root.N() < uint32(g.targetReadouts) {
		return false
	}

	toMove := g.tree.ToPlay()
	var move game.Single
	trainable := true

	if g.Opts.ResignEnabled && root.QFromOwnPerspective() < -absFloat32(g.Opts.ResignThreshold) {
		move = mcts.Resign
		trainable = false
	} else {
		move = g.tree.PickMove(g.rng, softPickCutoff)
	}

	searchPi := g.tree.CalculateSearchPi()
	q := root.Q()

	if g.Opts.Verbose {
		g.logMove(toMove, move, q)
	}

	if g.Opts.TargetPruning && !g.fastplay {
		g.tree.ReshapeFinalVisits(move)
	}

	g.moves = append(g.moves, Ply{
		Player:    toMove,
		Move:      move,
		Q:         q,
		SearchPi:  searchPi,
		Features:  g.features.Encode(root.Position()),
		Trainable: trainable && !g.fastplay,
	})

	if move.IsResignation() {
		g.finish()
		return true
	}

	g.tree.PlayMove(move)

	if g.tree.IsGameOver() || g.tree.AtMoveLimit() {
		g.finish()
		return true
	}

	g.armNextMove()
	return true
}

// armNextMove samples the fast-play/noise regime for the move about to be
// searched (§4.1's playout-cap oscillation): a fraction fastplay_frequency
// of moves get only fastplay_readouts and no noise, the rest get the full
// num_readouts budget with noise. target_readouts is additive on top of
// whatever visits tree reuse carried over into the new root.
func (g *SelfplayGame) armNextMove() {
	g.fastplay = g.rng.Float64() < g.Opts.FastplayFrequency
	g.injectNoise = !g.fastplay

	readouts := g.Opts.NumReadouts
	if g.fastplay {
		readouts = g.Opts.FastplayReadouts
	}
	g.targetReadouts = int(g.tree.RootNode().N()) + readouts

	if g.Opts.FastplayFrequency > 0 && !g.fastplay {
		// Oscillation is enabled and this is a full read: the reused
		// subtree's statistics were gathered partly under the cheap
		// fastplay budget, which must not leak into a full, noise-bearing
		// read's policy target.
		g.tree.ClearSubtrees()
	}

	g.state = WaitingForInferences
}

// logMove emits one structured per-move log line when Opts.Verbose is set
// (§4.4, SPEC_FULL §12 features #1-#2): the move itself, the root's Q
// estimate, cumulative captures per colour, and Tree.Describe()'s
// most-visited-first child summary. The pretty board and capture counts are
// 围碁-specific, so they're best-effort via a type assertion rather than a
// new method on the game.State interface every other Position
// implementation would have to satisfy.
func (g *SelfplayGame) logMove(player game.Player, move game.Single, q float32) {
	entry := log.Info().
		Int("move_number", len(g.moves)+1).
		Str("player", fmt.Sprintf("%v", player)).
		Int32("move", int32(move)).
		Float32("q", q).
		Int("tree_size", g.tree.Size()).
		Str("tree", g.tree.Describe())

	if pos, ok := g.tree.RootNode().Position().(*围碁.Game); ok {
		entry = entry.
			Int("black_captures", pos.Captures(围碁.BlackP)).
			Int("white_captures", pos.Captures(围碁.WhiteP)).
			Str("board", "\n"+pos.FormatBoard())
	}
	entry.Msg("played move")
}

func (g *SelfplayGame) finish() {
	g.state = Completed
	g.duration = time.Since(g.start)
	g.backfillFinalValues()
}

// backfillFinalValues stamps every ply's FinalValue with the game's actual
// outcome (+1 win, -1 loss, 0 draw) from that ply's own mover's
// perspective, now that the result is known - the AlphaZero-style training
// target the engine's own Q estimate (recorded at search time) only
// approximated during play.
func (g *SelfplayGame) backfillFinalValues() {
	draw := !g.Resigned() && g.tree.CalculateScore(float32(g.Opts.Komi)) == 0
	winner := g.Winner()
	for i := range g.moves {
		switch {
		case draw:
			g.moves[i].FinalValue = 0
		case g.moves[i].Player == winner:
			g.moves[i].FinalValue = 1
		default:
			g.moves[i].FinalValue = -1
		}
	}
}

// endgameValue scores a terminal position from the given player's
// perspective, as the [-1, 1] win/loss signal IncorporateEndGameResult
// expects (a score >= 0 is a full Black win and a negative score a full
// White win, not scaled by margin).
func endgameValue(score float32, toPlay game.Player) float32 {
	blackWins := score >= 0
	if toPlay == game.Player(game.Black) {
		if blackWins {
			return 1
		}
		return -1
	}
	if blackWins {
		return -1
	}
	return 1
}

func absFloat32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

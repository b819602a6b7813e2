// Package mcts implements the MctsTree/MctsNode collaborator described by
// the self-play engine: a PUCT search tree over a node-arena, driven
// externally by a caller that owns leaf selection, NN inference and result
// incorporation as three separate steps (rather than the tree calling an
// inferencer itself). This lets one thread batch the leaves of many trees
// into a single model call before feeding results back in.
package mcts

import "github.com/gorgonia/selfplay/game"

const (
	Pass   game.Single = -1
	Resign game.Single = -2

	White game.Player = game.Player(game.White)
	Black game.Player = game.Player(game.Black)
)

func init() {
	if !Pass.IsPass() {
		panic("Pass has to be Pass")
	}
	if !Resign.IsResignation() {
		panic("Resign has to be Resignation")
	}
}

// Status mirrors a node's place in the tree: a freshly allocated node is
// Active; ClearSubtrees prunes everything below the new root by marking it
// Invalid and returning it to the freelist.
type Status uint32

const (
	Invalid Status = iota
	Active
	Pruned
)

func (a Status) String() string {
	switch a {
	case Invalid:
		return "Invalid"
	case Active:
		return "Active"
	case Pruned:
		return "Pruned"
	}
	return "UNKNOWN STATUS"
}

// Config holds the tree-search tuning knobs that are read at expansion and
// selection time. It is built once by the caller (selfplay.Options, ulitmately
// the CLI flags) and treated as immutable for the lifetime of a Tree -
// mirroring the "flag set as an immutable configuration value" design note.
type Config struct {
	PUCT              float32
	ValueInitPenalty  float32 // first-play-urgency penalty: unvisited children start at the parent's raw NN value moved this far against the mover, clamped to [-1, 1]
	PolicySoftmaxTemp float32
	RestrictInBensons bool // engage the (currently unclassified) Benson's-region descent restriction after 5 passes
}

func DefaultConfig() Config {
	return Config{
		PUCT:              1.0,
		ValueInitPenalty:  2.0,
		PolicySoftmaxTemp: 0.98,
	}
}

func opponent(p game.Player) game.Player {
	switch game.Colour(p) {
	case game.Black:
		return game.Player(game.White)
	case game.White:
		return game.Player(game.Black)
	}
	panic("unreachable: invalid player")
}

package dual

import "github.com/gorgonia/selfplay/game"

// FeatureDescriptor describes how a position's board history is flattened
// into the planes a Model's input expects: lookback colour planes for each
// side plus two planes announcing who is to move next, generalizing the
// teacher's hard-coded WQEncoder (encoding_helper.go) into a value the
// out-of-scope feature encoder collaborator (spec.md §1) is parameterized
// by.
type FeatureDescriptor struct {
	Lookback int // number of past-position planes kept per colour
}

// DefaultFeatureDescriptor matches the teacher's WQEncoder: 8 planes of
// history per colour plus two "who's to move" planes.
func DefaultFeatureDescriptor() FeatureDescriptor { return FeatureDescriptor{Lookback: 8} }

// NumFeatures is the number of planes Encode produces per point on the
// board: two colour histories of depth Lookback, plus two side-to-move planes.
func (f FeatureDescriptor) NumFeatures() int { return 2*f.Lookback + 2 }

// Encode flattens s's board history into a single []float32 of length
// BoardSize*NumFeatures, arranged exactly like the teacher's WQEncoder:
// the to-move player's Lookback history planes first, then the opponent's,
// then two side-to-move planes: the first is all +1 when Black is to move,
// the second all -1 when White is to move, and the other one stays zero.
func (f FeatureDescriptor) Encode(s game.State) []float32 {
	board := s.Board()
	size := len(board)
	out := make([]float32, size*f.NumFeatures())

	next := s.ToMove()
	encodedPlayer := float32(1)
	var ownStart, oppStart, toMoveStart int
	if next == game.Player(game.Black) {
		ownStart = 0
		oppStart = f.Lookback * size
		toMoveStart = 2 * f.Lookback * size
	} else {
		ownStart = f.Lookback * size
		oppStart = 0
		toMoveStart = (2*f.Lookback + 1) * size
		encodedPlayer = -1
	}

	current := s.MoveNumber() - 1
	for i := 0; i < f.Lookback; i++ {
		h := current - i
		var past []game.Colour
		if h == current {
			past = board
		} else if h >= 0 {
			past = s.Historical(h)
		}
		if past != nil {
			encodeColour(past, game.Black, out[ownStart:ownStart+size])
			encodeColour(past, game.White, out[oppStart:oppStart+size])
		}
		ownStart += size
		oppStart += size
	}

	for i := toMoveStart; i < toMoveStart+size; i++ {
		out[i] = encodedPlayer
	}
	return out
}

// encodeColour writes +1 where board holds of, -1 where it holds the other
// colour, 0 elsewhere - the teacher's EncodeTwoPlayerBoard, specialized to
// pick a side instead of always favouring Black.
func encodeColour(board []game.Colour, of game.Colour, prealloc []float32) {
	other := game.Black
	if of == game.Black {
		other = game.White
	}
	for i, c := range board {
		switch c {
		case of:
			prealloc[i] = 1
		case other:
			prealloc[i] = -1
		default:
			prealloc[i] = 0
		}
	}
}

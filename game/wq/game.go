package 围碁

import (
	"fmt"

	"github.com/gorgonia/selfplay/game"
)

var _ game.State = &Game{}

// historicalBoard is a snapshot of everything needed to restore a Game to
// a point in its move history: the board itself, its hash, and the bits of
// Game state that Score/Ended/ToMove depend on.
type historicalBoard struct {
	board      []game.Colour
	hash       game.Zobrist
	captures   [2]byte
	passes     int
	nextToMove game.Player
}

// Game implements game.State
type Game struct {
	board      *Board
	history    []game.PlayerMove
	historical []historicalBoard
	nextToMove game.Player

	komi      float32 // komidashi
	moveCount int     // move number, 1 indexed
	passes    int     // count of passes
	histPtr   int     // pointer at the history (for easy forwarding)
	handicap  int     // duh
	captures  [2]byte // number of captures
	ends      bool    // game ended by resignation
}

func New(boardSize, handicap int, komi float64) *Game {
	b := newBoard(boardSize)
	g := &Game{
		board:      b,
		nextToMove: game.Player(game.Black),
		komi:       float32(komi),
		handicap:   handicap,
		historical: make([]historicalBoard, 0, int(b.size)),
		history:    make([]game.PlayerMove, 0, int(b.size)),
	}
	g.historical = append(g.historical, g.snapshot())
	return g
}

// snapshot captures the current board and move-dependent state so it can be
// restored later by UndoLastMove/Fwd.
func (g *Game) snapshot() historicalBoard {
	bd := make([]game.Colour, len(g.board.data))
	copy(bd, g.board.data)
	return historicalBoard{
		board:      bd,
		hash:       game.Zobrist(g.board.hash),
		captures:   g.captures,
		passes:     g.passes,
		nextToMove: g.nextToMove,
	}
}

// restore resets the board and the move-dependent Game fields to a previously
// captured snapshot. It never touches history/historical/histPtr themselves.
func (g *Game) restore(h historicalBoard) {
	copy(g.board.data, h.board)
	g.board.hash = int32(h.hash)
	g.captures = h.captures
	g.passes = h.passes
	g.nextToMove = h.nextToMove
	g.ends = false
}

func (g *Game) BoardSize() (int, int) { return int(g.board.size), int(g.board.size) }

func (g *Game) Board() []game.Colour { return g.board.data }

func (g *Game) Historical(i int) []game.Colour { return g.historical[i].board }

func (g *Game) Hash() game.Zobrist { return game.Zobrist(g.board.hash) }

func (g *Game) ActionSpace() int { return len(g.board.data) }

func (g *Game) SetToMove(p game.Player) { g.nextToMove = p }

func (g *Game) ToMove() game.Player { return g.nextToMove }

func (g *Game) LastMove() game.PlayerMove {
	if g.histPtr > 0 {
		return g.history[g.histPtr-1]
	}
	return game.PlayerMove{Player: game.Player(game.None), Single: -1}
}

func (g *Game) Passes() int { return g.passes }

// MoveNumber returns the number of moves applied to reach the current
// position, i.e. the current cursor into the move history, not the total
// length of the history (which may include moves beyond the cursor after an
// UndoLastMove).
func (g *Game) MoveNumber() int { return g.histPtr }

func (g *Game) Check(m game.PlayerMove) bool {
	if m.Single.IsResignation() {
		return true
	}
	if m.Single.IsPass() {
		return true
	}
	if int(m.Single) >= len(g.board.data) {
		return false
	}
	_, err := g.board.check(m)
	return err == nil
}

// Apply returns a new State with m applied. Applying a move while histPtr is
// behind the end of history (i.e. after one or more UndoLastMove calls)
// truncates the abandoned branch, exactly like a typical undo/redo buffer.
func (g *Game) Apply(m game.PlayerMove) game.State {
	newState := g.Clone().(*Game)

	switch {
	case m.Single.IsResignation():
		newState.ends = true
	case m.Single.IsPass():
		newState.passes++
	default:
		// Apply assumes m was already validated via Check; board.Apply errors
		// here would indicate a bug in the caller's move selection, not a
		// recoverable runtime condition.
		captures, _ := newState.board.Apply(m)
		newState.captures[m.Player-1] += captures
		newState.passes = 0
	}

	newState.nextToMove = Opponent(m.Player)
	newState.history = append(newState.history[:newState.histPtr], m)
	newState.historical = append(newState.historical[:newState.histPtr+1], newState.snapshot())
	newState.histPtr++
	newState.moveCount++
	return newState
}

func (g *Game) Ended() (ended bool, winner game.Player) {
	if g.passes >= 2 {
		ended = true
	}
	if g.ends {
		ended = true
	}
	if !ended {
		return false, game.Player(game.None)
	}

	blackScore := g.Score(BlackP)
	whiteScore := g.Score(WhiteP) + g.AdditionalScore()
	switch {
	case whiteScore == blackScore:
		return true, game.Player(game.None)
	case whiteScore > blackScore:
		return true, WhiteP
	default:
		return true, BlackP
	}
}

func (g *Game) Reset() {
	g.board.Reset()
	g.history = g.history[:0]
	g.historical = g.historical[:0]
	g.nextToMove = game.Player(game.Black)
	g.moveCount = 0
	g.passes = 0
	g.histPtr = 0
	g.captures = [2]byte{}
	g.ends = false
	g.historical = append(g.historical, g.snapshot())
}

func (g *Game) UndoLastMove() {
	if g.histPtr == 0 {
		return
	}
	g.histPtr--
	g.moveCount--
	g.restore(g.historical[g.histPtr])
}

func (g *Game) Fwd() {
	if g.histPtr >= len(g.historical)-1 {
		return
	}
	g.histPtr++
	g.moveCount++
	g.restore(g.historical[g.histPtr])
}

func (g *Game) Eq(other game.State) bool {
	ot, ok := other.(*Game)
	if !ok {
		return false
	}

	// easy to check stuff first
	if g.nextToMove != ot.nextToMove ||
		g.komi != ot.komi ||
		g.moveCount != ot.moveCount ||
		g.passes != ot.passes ||
		g.handicap != ot.handicap ||
		len(g.history) != len(ot.history) &&
			(len(g.history) > 0 && len(ot.history) > 0 && len(g.history[:g.histPtr-1]) != len(ot.history[:ot.histPtr-1])) {
		return false
	}

	// specifically unchecked: histPtr

	for i, c := range g.captures {
		if ot.captures[i] != c {
			return false
		}
	}

	// heavier checks

	if !g.board.Eq(ot.board) {
		return false
	}
	for i, j := 0, 0; i < g.histPtr && j < ot.histPtr; i, j = i+1, j+1 {
		pm := g.history[i]
		if !pm.Eq(ot.history[j]) {
			return false
		}
	}

	return true
}

func (g *Game) Clone() game.State {
	newState := &Game{}
	newState.board = g.board.Clone()
	newState.history = make([]game.PlayerMove, len(g.history), len(g.history)+1)
	copy(newState.history, g.history)
	newState.historical = make([]historicalBoard, len(g.historical), len(g.historical)+1)
	for i, h := range g.historical {
		bd := make([]game.Colour, len(h.board))
		copy(bd, h.board)
		newState.historical[i] = historicalBoard{
			board:      bd,
			hash:       h.hash,
			captures:   h.captures,
			passes:     h.passes,
			nextToMove: h.nextToMove,
		}
	}
	newState.nextToMove = g.nextToMove
	newState.komi = g.komi
	newState.moveCount = g.moveCount
	newState.passes = g.passes
	newState.histPtr = g.histPtr
	newState.handicap = g.handicap
	newState.captures = g.captures
	newState.ends = g.ends
	return newState
}

func (g *Game) Handicap() int { return g.handicap }

// Captures returns the number of opposing stones p has captured so far.
func (g *Game) Captures(p game.Player) int { return int(g.captures[p-1]) }

// FormatBoard renders the board via Board.Format's stone-glyph layout, for
// verbose per-move logging.
func (g *Game) FormatBoard() string { return fmt.Sprintf("%s", g.board) }

// Score returns the area score (stones of p's colour plus empty points only
// reachable from them) for p. It does not include komi; AdditionalScore
// carries that, and Ended() is the one place that combines the two.
func (g *Game) Score(p game.Player) float32 { return g.board.Score(p) }

func (g *Game) AdditionalScore() float32 { return g.komi }

// SuperKo reports whether the current board position has occurred earlier in
// this game's history (positional superko), using the Zobrist hashes already
// maintained by Board for every recorded position.
func (g *Game) SuperKo() bool {
	cur := game.Zobrist(g.board.hash)
	for i := 0; i < g.histPtr; i++ {
		if g.historical[i].hash == cur {
			return true
		}
	}
	return false
}

// IsEye reports whether the point in m is a simple eye for m.Player: empty,
// with every orthogonal neighbour occupied by m.Player's colour. It does not
// consider diagonal points, so it under-approximates false eyes at the edge
// of larger eye shapes.
func (g *Game) IsEye(m game.PlayerMove) bool {
	if m.Single.IsPass() || m.Single.IsResignation() {
		return false
	}
	if int(m.Single) >= len(g.board.data) || g.board.data[m.Single] != game.None {
		return false
	}

	x := int16(int32(m.Single) / g.board.size)
	y := int16(int32(m.Single) % g.board.size)
	c := game.Coord{X: x, Y: y}
	colour := game.Colour(m.Player)

	for _, a := range g.board.adjacentsCoord(c) {
		if !g.board.isCoordValid(a) {
			continue
		}
		if g.board.it[a.X][a.Y] != colour {
			return false
		}
	}
	return true
}

// Package sgf writes Go games in Smart Game Format (SGF FF[4]). It is a
// minimal encoder for the file-I/O collaborator spec.md §1 keeps out of
// scope as an external interface: the self-play engine only needs to
// produce a record a human or another tool can replay, not parse one, so
// there is no reader here.
package sgf

import (
	"fmt"
	"strconv"
	"strings"
)

// Move is one played stone or pass, with an optional annotation carried
// only into the "full" rendering - per-move search statistics such as
// visit counts and Q, the kind of detail a "clean" SGF meant for casual
// replay omits.
type Move struct {
	Black   bool // true for Black, false for White
	Pass    bool
	X, Y    int // 0-indexed column, row; meaningless when Pass
	Comment string
}

// Game accumulates one completed game's record before it is rendered.
type Game struct {
	BoardSize int
	Komi      float64
	Result    string // e.g. "B+12.5", "W+R", "Void"
	comment   string // root-node comment; AddComment appends to it
	moves     []Move
}

// AddComment appends to the root-node comment, matching the original
// engine's AddComment(models used) call in OutputThread.WriteOutputs.
func (g *Game) AddComment(c string) {
	if c == "" {
		return
	}
	if g.comment != "" {
		g.comment += "\n"
	}
	g.comment += c
}

// AddMove records one played move.
func (g *Game) AddMove(m Move) { g.moves = append(g.moves, m) }

// Render serializes the game as SGF text. When full is false (a "clean"
// SGF), per-move Comments are dropped; the root comment is always kept.
func (g *Game) Render(full bool) string {
	var b strings.Builder
	b.WriteString("(;GM[1]FF[4]CA[UTF-8]AP[selfplay]")
	fmt.Fprintf(&b, "SZ[%d]KM[%s]", g.BoardSize, formatKomi(g.Komi))
	if g.Result != "" {
		fmt.Fprintf(&b, "RE[%s]", escape(g.Result))
	}
	if g.comment != "" {
		fmt.Fprintf(&b, "C[%s]", escape(g.comment))
	}

	for _, m := range g.moves {
		colour := "B"
		if !m.Black {
			colour = "W"
		}
		coord := ""
		if !m.Pass {
			coord = pointToSGF(m.X, m.Y)
		}
		fmt.Fprintf(&b, "\n;%s[%s]", colour, coord)
		if full && m.Comment != "" {
			fmt.Fprintf(&b, "C[%s]", escape(m.Comment))
		}
	}
	b.WriteString(")\n")
	return b.String()
}

// pointToSGF maps a 0-indexed (x, y) to SGF's single-letter-per-axis
// coordinate scheme: 'a' is 0, 'z' is 25, the range every real Go board
// size fits within.
func pointToSGF(x, y int) string {
	return string([]byte{sgfLetter(x), sgfLetter(y)})
}

func sgfLetter(n int) byte { return byte('a' + n) }

func formatKomi(komi float64) string {
	return strconv.FormatFloat(komi, 'g', -1, 64)
}

// escape backslash-escapes the two characters SGF text values treat
// specially.
func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `]`, `\]`)
	return s
}

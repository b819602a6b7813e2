package sgf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderCleanOmitsMoveComments(t *testing.T) {
	g := &Game{BoardSize: 9, Komi: 7.5, Result: "B+12.5"}
	g.AddComment("Inferences: [dummy-v1]")
	g.AddMove(Move{Black: true, X: 2, Y: 3, Comment: "N=128 Q=0.12"})
	g.AddMove(Move{Black: false, Pass: true, Comment: "N=64 Q=-0.02"})

	out := g.Render(false)
	assert.True(t, strings.HasPrefix(out, "(;GM[1]"))
	assert.Contains(t, out, "SZ[9]")
	assert.Contains(t, out, "RE[B+12.5]")
	assert.Contains(t, out, `C[Inferences: [dummy-v1\]]`)
	assert.Contains(t, out, ";B[cd]")
	assert.Contains(t, out, ";W[]")
	assert.NotContains(t, out, "N=128")
}

func TestRenderFullKeepsMoveComments(t *testing.T) {
	g := &Game{BoardSize: 9}
	g.AddMove(Move{Black: true, X: 0, Y: 0, Comment: "N=8 Q=0.50"})

	out := g.Render(true)
	assert.Contains(t, out, ";B[aa]")
	assert.Contains(t, out, "C[N=8 Q=0.50]")
}

func TestAddCommentAccumulates(t *testing.T) {
	g := &Game{}
	g.AddComment("a")
	g.AddComment("b")
	assert.Equal(t, "a\nb", g.comment)
}

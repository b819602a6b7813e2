package selfplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputThreadDrainsInIncreasingIDOrder(t *testing.T) {
	cfg := &Config{}
	in := make(chan outputItem, 8)
	ot := NewOutputThread(cfg, in)

	// cfg has no SgfDir/OutputDir set and Verbose is off, so write logs
	// nothing and skips every file step - exactly what's needed to exercise the pending/next
	// reordering bookkeeping in isolation.
	g0 := newTestGame(t, 5)
	g1 := newTestGame(t, 5)
	g2 := newTestGame(t, 5)

	// Deliver out of order: 2, 0, 1.
	in <- outputItem{id: 2, game: g2}
	in <- outputItem{id: 0, game: g0}
	in <- outputItem{id: 1, game: g1}
	in <- outputItem{} // sentinel

	require.NoError(t, ot.Run())
	assert.Equal(t, 3, ot.next)
	assert.Empty(t, ot.pending)
}

func TestOutputThreadErrorsOnMissingPredecessor(t *testing.T) {
	cfg := &Config{}
	in := make(chan outputItem, 4)
	ot := NewOutputThread(cfg, in)

	g1 := newTestGame(t, 5)
	in <- outputItem{id: 1, game: g1} // id 0 never arrives
	in <- outputItem{}

	assert.Error(t, ot.Run())
}

func TestFormatResultForResignedGame(t *testing.T) {
	g := newFinishedGame(t, true)
	require.True(t, g.Resigned())
	result := formatResult(g)
	assert.Contains(t, []string{"B+R", "W+R"}, result)
}

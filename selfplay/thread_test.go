package selfplay

import (
	"testing"

	dual "github.com/gorgonia/selfplay/dualnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrchestrator(t *testing.T, numGames, boardSize int) *Orchestrator {
	t.Helper()
	cfg := &Config{
		Model:                    "dummy-v1",
		Engine:                   "dummy",
		BoardSize:                boardSize,
		NumGames:                 numGames,
		SelfplayThreads:          1,
		ParallelSearch:           1,
		ParallelInference:        1,
		ConcurrentGamesPerThread: 2,
		NumReadouts:              4,
		VirtualLosses:            4,
		CacheSizeMB:              8,
		CacheShards:              1,
		Seed:                     123,
		MoveLimit:                6,
	}
	require.NoError(t, cfg.Validate())

	features := dual.DefaultFeatureDescriptor()
	model := dual.NewDummyModel(cfg.Model, boardSize*boardSize, 0)
	return NewOrchestrator(cfg, []dual.Model{model}, cfg.Model, features)
}

func TestSelfplayThreadRunsUntilQuotaExhausted(t *testing.T) {
	orch := testOrchestrator(t, 3, 5)
	// Drain the output channel concurrently so EndGame never blocks.
	done := make(chan struct{})
	go func() {
		for range orch.output {
		}
		close(done)
	}()

	thread := NewSelfplayThread(0, orch)
	require.NoError(t, thread.Run())
	assert.Empty(t, thread.games)

	orch.output <- outputItem{} // sentinel, lets the drain goroutine exit
	<-done
}

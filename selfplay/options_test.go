package selfplay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *Config {
	return &Config{
		Model:                    "dummy-v1",
		SelfplayThreads:          2,
		ParallelInference:        1,
		ParallelSearch:           1,
		ConcurrentGamesPerThread: 1,
		BoardSize:                9,
		NumGames:                 10,
	}
}

func TestConfigValidateRejectsAmbiguousGameCount(t *testing.T) {
	cfg := baseConfig()
	cfg.NumGames = 0
	cfg.RunForever = false
	assert.Error(t, cfg.Validate())

	cfg.RunForever = true
	cfg.NumGames = 10
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsEmptyModel(t *testing.T) {
	cfg := baseConfig()
	cfg.Model = ""
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateClampsConcurrentGamesPerThread(t *testing.T) {
	cfg := baseConfig()
	cfg.NumGames = 3
	cfg.SelfplayThreads = 2
	cfg.ConcurrentGamesPerThread = 10
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.ConcurrentGamesPerThread) // ceil(3/2) = 2
}

func TestConfigValidateLeavesConcurrencyAloneUnderRunForever(t *testing.T) {
	cfg := baseConfig()
	cfg.NumGames = 0
	cfg.RunForever = true
	cfg.ConcurrentGamesPerThread = 10
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.ConcurrentGamesPerThread)
}

func TestParallelGamesTotal(t *testing.T) {
	cfg := baseConfig()
	cfg.SelfplayThreads = 3
	cfg.ConcurrentGamesPerThread = 4
	assert.Equal(t, 12, cfg.ParallelGamesTotal())
}

func TestNewOptionsCopiesFromConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.NumReadouts = 64
	cfg.BoardSize = 13
	cfg.Komi = 6.5

	opts := NewOptions(cfg, true, false)
	assert.Equal(t, 64, opts.NumReadouts)
	assert.Equal(t, 13, opts.BoardSize)
	assert.Equal(t, 6.5, opts.Komi)
	assert.True(t, opts.ResignEnabled)
	assert.False(t, opts.IsHoldout)
}

package selfplay

import (
	"context"
	"math/rand"
	"sync"
	"time"

	dual "github.com/gorgonia/selfplay/dualnet"
	"github.com/gorgonia/selfplay/mcts"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// outputItem is one entry on the orchestrator's output queue: a finished
// game tagged with its global, monotonically increasing game id, or a nil
// Game acting as the shutdown sentinel (§4.8).
type outputItem struct {
	id   int
	game *SelfplayGame
}

// Orchestrator is the Run() entry point (§4.7): it owns the shared
// inference cache, model pool, RNG, game-id/quota counters and win
// statistics, and drives selfplay_threads workers plus one OutputThread to
// completion.
type Orchestrator struct {
	cfg      *Config
	cache    InferenceCache
	pool     *ModelPool
	features dual.FeatureDescriptor
	executor *ShardedExecutor

	mu             sync.Mutex
	rng            *rand.Rand
	gamesRemaining int64
	runForever     bool
	nextGameID     int
	modelName      string
	winStats       *WinStats

	output chan outputItem
}

// NewOrchestrator wires cfg's knobs into a ready-to-Run orchestrator. models
// is the pool of already-loaded model handles (§4.7: "populates ModelPool
// with parallel_inference handles"); modelName is the logical name the
// first handle reports, kept on the Orchestrator. It is not copied onto
// games: each game records the names its RunMany calls report (ModelsUsed).
func NewOrchestrator(cfg *Config, models []dual.Model, modelName string, features dual.FeatureDescriptor) *Orchestrator {
	seed := cfg.Seed
	if seed == 0 {
		seed = timeSeed()
	}
	return &Orchestrator{
		cfg:            cfg,
		cache:          NewInferenceCache(cfg.BoardSize, cfg.BoardSize*cfg.BoardSize, cfg.CacheSizeMB, cfg.CacheShards, cfg.ParallelGamesTotal()),
		pool:           NewModelPool(models),
		features:       features,
		executor:       NewShardedExecutor(cfg.ParallelSearch),
		rng:            rand.New(rand.NewSource(seed)),
		gamesRemaining: int64(cfg.NumGames),
		runForever:     cfg.RunForever,
		modelName:      modelName,
		winStats:       NewWinStats(),
		output:         make(chan outputItem, 64),
	}
}

// Run spawns selfplay_threads workers and one OutputThread, waits for the
// workers to drain the quota, pushes the sentinel, waits for the output
// thread, and logs final win stats (§4.7).
func (o *Orchestrator) Run() error {
	log.Info().Str("config", o.cfg.String()).Msg("starting self-play")

	outputErrs := make(chan error, 1)
	go func() {
		outputErrs <- NewOutputThread(o.cfg, o.output).Run()
	}()

	var wg sync.WaitGroup
	workerErrs := make([]error, o.cfg.SelfplayThreads)
	wg.Add(o.cfg.SelfplayThreads)
	for i := 0; i < o.cfg.SelfplayThreads; i++ {
		i := i
		go func() {
			defer wg.Done()
			workerErrs[i] = NewSelfplayThread(i, o).Run()
		}()
	}
	wg.Wait()

	o.output <- outputItem{} // sentinel: nil game

	for _, err := range workerErrs {
		if err != nil {
			return errors.Wrap(err, "selfplay thread")
		}
	}
	if err := <-outputErrs; err != nil {
		return errors.Wrap(err, "output thread")
	}

	stats := o.cache.Stats()
	log.Info().
		Uint64("cache_hits", stats.Hits).
		Uint64("cache_misses", stats.Misses).
		Uint64("cache_evictions", stats.Evictions).
		Msg("cache stats")
	o.winStats.Log()

	return o.pool.Close()
}

// StartNewGame implements §4.7's start_new_game: atomically decrements
// num_games_remaining (no-op under run_forever), returning nil once the
// quota is exhausted. resign_enabled and is_holdout are sampled once here,
// under the orchestrator's lock, per §4.7.
func (o *Orchestrator) StartNewGame(verbose bool) *SelfplayGame {
	o.mu.Lock()
	if !o.runForever {
		if o.gamesRemaining <= 0 {
			o.mu.Unlock()
			return nil
		}
		o.gamesRemaining--
	}
	resignEnabled := o.rng.Float64() >= o.cfg.DisableResignPct
	isHoldout := o.rng.Float64() < o.cfg.HoldoutPct
	seed := o.rng.Int63()
	o.mu.Unlock()

	opts := NewOptions(o.cfg, resignEnabled, isHoldout)
	opts.Verbose = verbose
	cfg := treeConfigFrom(o.cfg)
	return NewSelfplayGame(opts, cfg, o.features, seed)
}

// EndGame implements §4.7's end_game: updates win stats under lock and
// pushes the game onto the output queue with the next sequential id.
func (o *Orchestrator) EndGame(g *SelfplayGame) {
	o.mu.Lock()
	o.winStats.Record(g)
	id := o.nextGameID
	o.nextGameID++
	o.mu.Unlock()

	o.output <- outputItem{id: id, game: g}
}

// ExecuteSharded runs fn across the process-wide ShardedExecutor (§4.7). It
// is the single executor shared by every SelfplayThread; its serializing
// mutex is what lets one thread's parallel select_leaves section run while
// every other thread is blocked inside run_many, instead of all threads'
// CPU-bound sections racing the accelerator at once (§9).
func (o *Orchestrator) ExecuteSharded(fn func(shardIndex, shardCount int) error) error {
	return o.executor.Execute(fn)
}

// AcquireModel and ReleaseModel delegate to the shared ModelPool (§4.7).
func (o *Orchestrator) AcquireModel() (dual.Model, error) {
	return o.pool.Acquire(context.Background())
}
func (o *Orchestrator) ReleaseModel(m dual.Model) { o.pool.Release(m) }

// timeSeed derives a seed from the wall clock, used when the configured
// seed is 0 ("0 ⇒ time-based" per §6).
func timeSeed() int64 { return time.Now().UnixNano() }

// treeConfigFrom copies the tree-search knobs out of the process-wide
// Config into an mcts.Config, which a Tree treats as immutable for its
// lifetime.
func treeConfigFrom(c *Config) mcts.Config {
	return mcts.Config{
		PUCT:              mcts.DefaultConfig().PUCT,
		ValueInitPenalty:  c.ValueInitPenalty,
		PolicySoftmaxTemp: c.PolicySoftmaxTemp,
		RestrictInBensons: c.RestrictInBensons,
	}
}

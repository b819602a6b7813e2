package selfplay

import (
	"fmt"

	"github.com/pkg/errors"
)

// Options are the per-game knobs named by SelfplayOptions (§3.1):
// immutable for the lifetime of one SelfplayGame, either copied straight
// from the process-wide Config or sampled once under the orchestrator's
// lock when the game is created (ResignEnabled, IsHoldout).
type Options struct {
	VirtualLosses     int
	NumReadouts       int
	FastplayReadouts  int
	FastplayFrequency float64
	DirichletAlpha    float32
	NoiseMix          float32
	TargetPruning     bool
	Verbose           bool
	AllowPass         bool

	ResignThreshold float32 // compared as -|value| against Q_from_side_to_move
	ResignEnabled   bool
	IsHoldout       bool

	BoardSize int
	Komi      float64
	Handicap  int
	MoveLimit int
}

// NewOptions copies the per-game knobs out of the process-wide Config.
// resignEnabled and isHoldout are the two fields §3.1 says are sampled once
// under the orchestrator's lock at game-creation time rather than simply
// copied (resign is disabled for a configured fraction of games so some
// training data always reflects a played-out game; holdout games are
// withheld from the training set entirely).
func NewOptions(c *Config, resignEnabled, isHoldout bool) Options {
	return Options{
		VirtualLosses:     c.VirtualLosses,
		NumReadouts:       c.NumReadouts,
		FastplayReadouts:  c.FastplayReadouts,
		FastplayFrequency: c.FastplayFrequency,
		DirichletAlpha:    c.DirichletAlpha,
		NoiseMix:          c.NoiseMix,
		TargetPruning:     c.TargetPruning,
		Verbose:           c.Verbose,
		AllowPass:         c.AllowPass,
		ResignThreshold:   c.ResignThreshold,
		ResignEnabled:     resignEnabled,
		IsHoldout:         isHoldout,
		BoardSize:         c.BoardSize,
		Komi:              c.Komi,
		Handicap:          c.Handicap,
		MoveLimit:         c.MoveLimit,
	}
}

// Config is the process-wide, immutable configuration built once at startup
// from the CLI flags (§6) and threaded down to every component - the
// "treat the flag set as an immutable configuration value" design note
// (§9). No component reaches for a process-wide singleton instead.
type Config struct {
	// Inference
	Engine      string
	Device      string
	Model       string
	CacheSizeMB int
	CacheShards int

	// Tree search
	NumReadouts       int
	FastplayFrequency float64
	FastplayReadouts  int
	VirtualLosses     int
	DirichletAlpha    float32
	NoiseMix          float32
	ValueInitPenalty  float32
	TargetPruning     bool
	PolicySoftmaxTemp float32
	RestrictInBensons bool
	AllowPass         bool

	// Threading
	SelfplayThreads          int
	ParallelSearch           int
	ParallelInference        int
	ConcurrentGamesPerThread int

	// Game
	Seed             int64
	ResignThreshold  float32
	DisableResignPct float64
	NumGames         int
	RunForever       bool
	BoardSize        int
	Komi             float64
	Handicap         int
	MoveLimit        int

	// Output
	HoldoutPct float64
	OutputDir  string
	HoldoutDir string
	SgfDir     string
	Verbose    bool
}

// Validate applies §6's startup validation rules, fast-failing with a
// wrapped error cmd/selfplay/main.go logs and exits non-zero on - §7's
// "configuration error: fail-fast at startup with a clear message".
func (c *Config) Validate() error {
	if (c.NumGames > 0) == c.RunForever {
		return errors.New("exactly one of num_games > 0 or run_forever must be set")
	}
	if c.Model == "" {
		return errors.New("model must be non-empty")
	}
	if c.SelfplayThreads < 1 {
		return errors.New("selfplay_threads must be at least 1")
	}
	if c.ParallelInference < 1 {
		return errors.New("parallel_inference must be at least 1")
	}
	if c.BoardSize < 2 {
		return errors.Errorf("board size %d is too small", c.BoardSize)
	}

	// "concurrent_games_per_thread is clamped to ceil(num_games /
	// selfplay_threads) to avoid late-stage load imbalance" - only
	// meaningful for a finite run.
	if !c.RunForever {
		ceil := (c.NumGames + c.SelfplayThreads - 1) / c.SelfplayThreads
		if ceil < 1 {
			ceil = 1
		}
		if c.ConcurrentGamesPerThread > ceil {
			c.ConcurrentGamesPerThread = ceil
		}
	}
	if c.ConcurrentGamesPerThread < 1 {
		c.ConcurrentGamesPerThread = 1
	}
	return nil
}

// ParallelGamesTotal is concurrent_games_per_thread * selfplay_threads, the
// bound §4.1 clamps the inference cache's shard count to.
func (c *Config) ParallelGamesTotal() int {
	return c.ConcurrentGamesPerThread * c.SelfplayThreads
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{model=%q threads=%d parallel_inference=%d num_games=%d run_forever=%v}",
		c.Model, c.SelfplayThreads, c.ParallelInference, c.NumGames, c.RunForever)
}

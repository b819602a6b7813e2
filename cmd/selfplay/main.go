// Command selfplay runs the concurrent self-play engine: selfplay_threads
// workers search parallel_search-sharded MctsTrees, batch their queued
// leaves through parallel_inference model handles, and an output thread
// writes SGF and training examples for every finished game.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	dual "github.com/gorgonia/selfplay/dualnet"
	"github.com/gorgonia/selfplay/selfplay"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := parseFlags()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if !cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("configuration error")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("self-play run failed")
		os.Exit(1)
	}
}

func run(cfg *selfplay.Config) error {
	features := dual.DefaultFeatureDescriptor()

	models := make([]dual.Model, cfg.ParallelInference)
	for i := range models {
		m, err := newModel(cfg, features)
		if err != nil {
			return err
		}
		models[i] = m
	}

	orch := selfplay.NewOrchestrator(cfg, models, cfg.Model, features)
	return orch.Run()
}

// newModel dispatches on the engine flag. The neural-network inference
// backend is an out-of-scope external collaborator: only "dummy", a
// uniform-policy stand-in useful for exercising the rest of the pipeline
// (and for tests), is actually wired up.
func newModel(cfg *selfplay.Config, features dual.FeatureDescriptor) (dual.Model, error) {
	switch cfg.Engine {
	case "", "dummy":
		actionSpace := cfg.BoardSize * cfg.BoardSize
		return dual.NewDummyModel(cfg.Model, actionSpace, 0), nil
	default:
		return nil, fmt.Errorf("engine %q is not wired to a real inference backend", cfg.Engine)
	}
}

func parseFlags() *selfplay.Config {
	cfg := &selfplay.Config{}

	// Inference
	flag.StringVar(&cfg.Engine, "engine", "dummy", "inference backend: tf|tpu|lite|dummy")
	flag.StringVar(&cfg.Device, "device", "", "device to run the model on")
	flag.StringVar(&cfg.Model, "model", "", "path or name of the model to serve")
	flag.IntVar(&cfg.CacheSizeMB, "cache_size_mb", 1024, "inference cache budget in megabytes (<=0 disables caching)")
	flag.IntVar(&cfg.CacheShards, "cache_shards", 8, "number of inference cache shards")

	// Tree search
	flag.IntVar(&cfg.NumReadouts, "num_readouts", 104, "number of tree readouts per full-strength move")
	flag.Float64Var(&cfg.FastplayFrequency, "fastplay_frequency", 0.0, "fraction of moves played with the cheap fastplay readout budget")
	flag.IntVar(&cfg.FastplayReadouts, "fastplay_readouts", 20, "number of tree readouts per fast-play move")
	flag.IntVar(&cfg.VirtualLosses, "virtual_losses", 8, "number of leaves queued per select_leaves round")
	flag.Var(newFloat32Value(&cfg.DirichletAlpha, 0.03), "dirichlet_alpha", "Dirichlet noise concentration")
	flag.Var(newFloat32Value(&cfg.NoiseMix, 0.25), "noise_mix", "weight of Dirichlet noise blended into root priors")
	flag.Var(newFloat32Value(&cfg.ValueInitPenalty, 2.0), "value_init_penalty", "first-play-urgency penalty")
	flag.BoolVar(&cfg.TargetPruning, "target_pruning", false, "reshape final visit counts to match the played move")
	flag.Var(newFloat32Value(&cfg.PolicySoftmaxTemp, 0.98), "policy_softmax_temp", "policy softmax temperature")
	flag.BoolVar(&cfg.RestrictInBensons, "restrict_in_bensons", false, "restrict descent to outside Benson's-safe regions after 5 passes")
	flag.BoolVar(&cfg.AllowPass, "allow_pass", true, "allow pass during tree descent")

	// Threading
	flag.IntVar(&cfg.SelfplayThreads, "selfplay_threads", 3, "number of self-play worker threads")
	flag.IntVar(&cfg.ParallelSearch, "parallel_search", 3, "number of TreeSearcher shards per thread")
	flag.IntVar(&cfg.ParallelInference, "parallel_inference", 2, "number of model handles in the pool")
	flag.IntVar(&cfg.ConcurrentGamesPerThread, "concurrent_games_per_thread", 1, "number of live games per self-play thread")

	// Game
	flag.Int64Var(&cfg.Seed, "seed", 0, "RNG seed (0 chooses a time-based seed)")
	flag.Var(newFloat32Value(&cfg.ResignThreshold, -0.999), "resign_threshold", "resignation threshold, compared as -|value|")
	flag.Float64Var(&cfg.DisableResignPct, "disable_resign_pct", 0.1, "fraction of games with resignation disabled")
	flag.IntVar(&cfg.NumGames, "num_games", 0, "number of games to play (mutually exclusive with run_forever)")
	flag.BoolVar(&cfg.RunForever, "run_forever", false, "run until externally signalled (mutually exclusive with num_games)")
	flag.IntVar(&cfg.BoardSize, "board_size", 19, "board size")
	flag.Float64Var(&cfg.Komi, "komi", 7.5, "komi")
	flag.IntVar(&cfg.Handicap, "handicap", 0, "handicap stones")
	flag.IntVar(&cfg.MoveLimit, "move_limit", 0, "move number at which a game is forced to end (0 = unlimited)")

	// Output
	flag.Float64Var(&cfg.HoldoutPct, "holdout_pct", 0.03, "fraction of games withheld as holdout")
	flag.StringVar(&cfg.OutputDir, "output_dir", "", "training example output directory")
	flag.StringVar(&cfg.HoldoutDir, "holdout_dir", "", "holdout training example output directory")
	flag.StringVar(&cfg.SgfDir, "sgf_dir", "", "SGF output directory")
	flag.BoolVar(&cfg.Verbose, "verbose", true, "verbose logging")

	flag.Parse()
	return cfg
}

// float32Value adapts a *float32 Config field to flag.Value, since the
// flag package only has a built-in Var for float64 and several of this
// binary's tree-search knobs are float32 (matching mcts.Config).
type float32Value float32

func newFloat32Value(target *float32, def float32) *float32Value {
	*target = def
	return (*float32Value)(target)
}

func (f *float32Value) String() string { return fmt.Sprintf("%g", *f) }
func (f *float32Value) Set(s string) error {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return err
	}
	*f = float32Value(v)
	return nil
}

package selfplay

import (
	"github.com/pkg/errors"
)

// SelfplayThread owns up to ConcurrentGamesPerThread live SelfplayGames and
// ParallelSearch TreeSearchers, cycling them through
// StartNewGames → SelectLeaves → RunInferences → ProcessInferences →
// PlayMoves until the orchestrator's quota is drained (§4.6).
type SelfplayThread struct {
	id   int
	orch *Orchestrator

	searchers []*TreeSearcher
	games     []*SelfplayGame
}

// NewSelfplayThread builds thread id's workers against orch's shared
// cache/model pool/quota.
func NewSelfplayThread(id int, orch *Orchestrator) *SelfplayThread {
	searchers := make([]*TreeSearcher, orch.cfg.ParallelSearch)
	for i := range searchers {
		searchers[i] = &TreeSearcher{}
	}
	return &SelfplayThread{
		id:        id,
		orch:      orch,
		searchers: searchers,
		games:     make([]*SelfplayGame, 0, orch.cfg.ConcurrentGamesPerThread),
	}
}

// Run drives the thread's main cycle to completion: it returns once a
// StartNewGames call finds every slot unfillable and no live games remain.
func (t *SelfplayThread) Run() error {
	for {
		t.startNewGames()
		if len(t.games) == 0 {
			return nil
		}

		t.selectLeaves()

		modelName, err := t.runInferences()
		if err != nil {
			return errors.Wrap(err, "inference failure")
		}

		t.processInferences(modelName)
		t.playMoves()
	}
}

// startNewGames fills every empty slot up to ConcurrentGamesPerThread by
// asking the orchestrator for work; verbosity is granted only to thread 0's
// slot 0, per §4.6 step 1.
func (t *SelfplayThread) startNewGames() {
	capacity := cap(t.games)
	if capacity == 0 {
		capacity = 1
	}
	for len(t.games) < capacity {
		verbose := t.id == 0 && len(t.games) == 0 && t.orch.cfg.Verbose
		g := t.orch.StartNewGame(verbose)
		if g == nil {
			break
		}
		t.games = append(t.games, g)
	}
}

// selectLeaves implements §4.6 step 2: fan the games out across the
// thread's TreeSearchers via the orchestrator's process-wide, shared
// ShardedExecutor (§4.3, §4.7) - every SelfplayThread contends for the same
// executor, so its serializing mutex is what pipelines CPU-bound select
// against accelerator-bound run_many across threads (§9).
func (t *SelfplayThread) selectLeaves() {
	t.orch.ExecuteSharded(func(i, n int) error {
		begin, end := ShardRange(i, n, len(t.games))
		t.searchers[i].search(t.orch.cache, t.games[begin:end])
		return nil
	})
}

// runInferences implements §4.6 step 3: gather every queued input across
// shards into one flat batch, run it under one acquired model handle, and
// scatter the outputs back into place. Returns the empty string (and no
// error) if nothing was queued this round.
func (t *SelfplayThread) runInferences() (string, error) {
	type ref struct{ searcher, idx int }

	var inputs [][]float32
	var refs []ref
	for si, s := range t.searchers {
		for i := range s.inferences {
			inputs = append(inputs, s.inferences[i].Input)
			refs = append(refs, ref{si, i})
		}
	}
	if len(inputs) == 0 {
		return "", nil
	}

	model, err := t.orch.AcquireModel()
	if err != nil {
		return "", errors.Wrap(err, "acquire model")
	}
	outputs, modelName, err := model.RunMany(inputs)
	t.orch.ReleaseModel(model)
	if err != nil {
		return "", errors.Wrapf(err, "model %q run_many", modelName)
	}
	if len(outputs) != len(inputs) {
		return "", errors.Errorf("model %q returned %d outputs for %d inputs", modelName, len(outputs), len(inputs))
	}

	for k, r := range refs {
		t.searchers[r.searcher].inferences[r.idx].Output = outputs[k]
	}
	return modelName, nil
}

// processInferences implements §4.6 step 4: merge every inference into the
// shared cache under its canonical orientation, then hand each game its own
// span of results.
func (t *SelfplayThread) processInferences(modelName string) {
	for _, s := range t.searchers {
		for _, inf := range s.inferences {
			t.orch.cache.Merge(inf.Key, inf.CanonicalSym, inf.InferenceSym, inf.Output)
		}
		for _, span := range s.spans {
			span.Game.ProcessInferences(modelName, s.inferences[span.Pos:span.Pos+span.Len])
		}
	}
}

// playMoves implements §4.6 step 5: ask each live game to commit a move if
// it has enough readouts, handing finished games to the orchestrator and
// compacting the slot array (swap-with-back + pop) as they complete.
func (t *SelfplayThread) playMoves() {
	i := 0
	for i < len(t.games) {
		g := t.games[i]
		g.MaybePlayMove()
		if g.State() == Completed {
			t.orch.EndGame(g)
			last := len(t.games) - 1
			t.games[i] = t.games[last]
			t.games = t.games[:last]
			continue
		}
		i++
	}
}

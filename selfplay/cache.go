package selfplay

import (
	"container/list"
	"sync"

	dual "github.com/gorgonia/selfplay/dualnet"
	"github.com/gorgonia/selfplay/game/symmetry"
)

// CacheStats is what InferenceCache.Stats reports for logging (§4.1).
type CacheStats struct {
	Hits, Misses, Evictions, Size uint64
}

// InferenceCache is the symmetry-aware, sharded, bounded map from CacheKey
// to a model's (policy, value) - and the null variant that bypasses storage
// entirely, sharing the same interface so SelfplayGame never has to branch
// on whether caching is enabled (§4.1).
type InferenceCache interface {
	TryGet(key CacheKey, canonicalSym, requestedSym symmetry.Symmetry) (dual.Output, bool)
	Merge(key CacheKey, canonicalSym, requestedSym symmetry.Symmetry, output dual.Output)
	Stats() CacheStats
}

// entryOverheadBytes approximates the bookkeeping (map entry, list node,
// key) around each stored policy, used to turn a megabyte budget into an
// entry-count bound (§4.1 "derived from a target megabyte budget by
// dividing by a fixed per-entry size").
const entryOverheadBytes = 64

type cacheEntry struct {
	key     CacheKey
	policy  []float32
	value   float32
}

type shard struct {
	mu    sync.Mutex
	cap   int
	lru   *list.List // front = most recently used
	index map[CacheKey]*list.Element

	hits, misses, evictions uint64
}

func newShard(capacity int) *shard {
	return &shard{cap: capacity, lru: list.New(), index: make(map[CacheKey]*list.Element, capacity)}
}

func (s *shard) tryGet(key CacheKey) (cacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.index[key]
	if !ok {
		s.misses++
		return cacheEntry{}, false
	}
	s.hits++
	s.lru.MoveToFront(el)
	return el.Value.(cacheEntry), true
}

func (s *shard) put(entry cacheEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.index[entry.key]; ok {
		el.Value = entry
		s.lru.MoveToFront(el)
		return
	}
	el := s.lru.PushFront(entry)
	s.index[entry.key] = el
	if s.cap > 0 {
		for len(s.index) > s.cap {
			back := s.lru.Back()
			if back == nil {
				break
			}
			s.lru.Remove(back)
			delete(s.index, back.Value.(cacheEntry).key)
			s.evictions++
		}
	}
}

func (s *shard) stats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CacheStats{Hits: s.hits, Misses: s.misses, Evictions: s.evictions, Size: uint64(len(s.index))}
}

// shardedCache is the normal, storing InferenceCache. Shards are selected
// by a stable hash of the key so that unrelated positions spread evenly
// across shards and the hottest path - lookups during SelectLeaves - never
// contends on one global lock (§4.1's rationale).
type shardedCache struct {
	boardSize int
	shards    []*shard
}

// NewInferenceCache builds the normal cache: sizeMB is divided by a
// per-entry byte estimate (derived from actionSpace, the policy length) to
// get a total entry budget, split evenly across shardCount shards (itself
// clamped to at most parallelGamesTotal, per §4.1). sizeMB <= 0 returns the
// null variant instead.
func NewInferenceCache(boardSize, actionSpace, sizeMB, shardCount, parallelGamesTotal int) InferenceCache {
	if sizeMB <= 0 {
		return nullCache{}
	}
	if shardCount < 1 {
		shardCount = 1
	}
	if parallelGamesTotal > 0 && shardCount > parallelGamesTotal {
		shardCount = parallelGamesTotal
	}

	entryBytes := (actionSpace+1)*4 + entryOverheadBytes
	totalEntries := (sizeMB * 1 << 20) / entryBytes
	perShard := totalEntries / shardCount
	if perShard < 1 {
		perShard = 1
	}

	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = newShard(perShard)
	}
	return &shardedCache{boardSize: boardSize, shards: shards}
}

func (c *shardedCache) shardFor(key CacheKey) *shard {
	h := key.CanonicalHash ^ uint64(key.Move)*0x100000001b3
	return c.shards[h%uint64(len(c.shards))]
}

// TryGet rotates the stored canonical-orientation output to requestedSym by
// composing inverse(canonicalSym) then requestedSym, exactly invariant 6's
// formula.
func (c *shardedCache) TryGet(key CacheKey, canonicalSym, requestedSym symmetry.Symmetry) (dual.Output, bool) {
	entry, ok := c.shardFor(key).tryGet(key)
	if !ok {
		return dual.Output{}, false
	}
	transform := symmetry.Compose(symmetry.Inverse(canonicalSym), requestedSym)
	policy := symmetry.RotatePolicy(entry.policy, c.boardSize, transform)
	return dual.Output{Policy: policy, Value: entry.value}, true
}

// Merge rotates output (arrived under requestedSym, the orientation it was
// actually fed to the model under) back to canonical orientation by
// composing inverse(requestedSym) then canonicalSym, then stores it.
func (c *shardedCache) Merge(key CacheKey, canonicalSym, requestedSym symmetry.Symmetry, output dual.Output) {
	transform := symmetry.Compose(symmetry.Inverse(requestedSym), canonicalSym)
	policy := symmetry.RotatePolicy(output.Policy, c.boardSize, transform)
	c.shardFor(key).put(cacheEntry{key: key, policy: policy, value: output.Value})
}

func (c *shardedCache) Stats() CacheStats {
	var out CacheStats
	for _, s := range c.shards {
		st := s.stats()
		out.Hits += st.Hits
		out.Misses += st.Misses
		out.Evictions += st.Evictions
		out.Size += st.Size
	}
	return out
}

// nullCache is the capacity-0 variant: every lookup misses, nothing is ever
// stored, no lock is ever taken.
type nullCache struct{}

func (nullCache) TryGet(CacheKey, symmetry.Symmetry, symmetry.Symmetry) (dual.Output, bool) {
	return dual.Output{}, false
}
func (nullCache) Merge(CacheKey, symmetry.Symmetry, symmetry.Symmetry, dual.Output) {}
func (nullCache) Stats() CacheStats                                                { return CacheStats{} }

var (
	_ InferenceCache = &shardedCache{}
	_ InferenceCache = nullCache{}
)

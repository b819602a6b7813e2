package selfplay

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// ShardedExecutor fans a function out across ShardCount workers and joins
// on all of them, or - when ShardCount is 1 - just runs it inline on the
// caller (§4.3). A mutex serializes concurrent Execute calls when
// ShardCount > 1: this is load-bearing, not incidental (§9 "executor with
// blocking semantics") - it is what lets one SelfplayThread own the
// executor during its CPU-bound select phase while another is blocked
// inside RunInferences, instead of both racing the accelerator at once.
type ShardedExecutor struct {
	ShardCount int
	mu         sync.Mutex
}

// NewShardedExecutor builds an executor with the given shard count,
// clamping anything less than 1 up to 1 (inline execution).
func NewShardedExecutor(shardCount int) *ShardedExecutor {
	if shardCount < 1 {
		shardCount = 1
	}
	return &ShardedExecutor{ShardCount: shardCount}
}

// Execute runs fn(shardIndex, shardCount) on every shard and waits for all
// of them, returning the first error encountered (if any).
func (e *ShardedExecutor) Execute(fn func(shardIndex, shardCount int) error) error {
	if e.ShardCount == 1 {
		return fn(0, 1)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var g errgroup.Group
	for i := 0; i < e.ShardCount; i++ {
		i := i
		g.Go(func() error { return fn(i, e.ShardCount) })
	}
	return g.Wait()
}

// ShardRange splits total items as evenly as possible across n shards,
// handing remainder items to the lowest-indexed shards, and returns the
// half-open range [begin, end) shard i owns.
func ShardRange(i, n, total int) (begin, end int) {
	if n < 1 {
		n = 1
	}
	base := total / n
	rem := total % n

	extra := i
	if extra > rem {
		extra = rem
	}
	begin = i*base + extra
	end = begin + base
	if i < rem {
		end++
	}
	return begin, end
}

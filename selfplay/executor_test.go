package selfplay

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardRangeCoversEveryItemExactlyOnce(t *testing.T) {
	for _, tc := range []struct{ n, total int }{
		{1, 10}, {3, 10}, {4, 10}, {5, 7}, {8, 3}, {6, 0},
	} {
		seen := make([]int, tc.total)
		for i := 0; i < tc.n; i++ {
			begin, end := ShardRange(i, tc.n, tc.total)
			for j := begin; j < end; j++ {
				seen[j]++
			}
		}
		for j, count := range seen {
			assert.Equal(t, 1, count, "item %d covered %d times (n=%d total=%d)", j, count, tc.n, tc.total)
		}
	}
}

func TestShardedExecutorRunsInlineForOneShard(t *testing.T) {
	e := NewShardedExecutor(1)
	var ran bool
	err := e.Execute(func(i, n int) error {
		ran = true
		assert.Equal(t, 0, i)
		assert.Equal(t, 1, n)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestShardedExecutorFansOutAndJoins(t *testing.T) {
	e := NewShardedExecutor(4)
	var count int32
	err := e.Execute(func(i, n int) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	assert.NoError(t, err)
	assert.EqualValues(t, 4, count)
}

package selfplay

import (
	"fmt"
	"sync/atomic"
	"time"
)

// outputNameCounter is the monotonic tail of GetOutputName: a timestamp
// alone can collide when two games finish within the same second, so every
// call also consumes a process-wide counter.
var outputNameCounter uint64

// GetOutputName builds a globally unique per-game output name from the
// current time plus a monotonic counter and gameID, delegated to from
// OutputThread exactly as §6's filesystem layout names "the output helper".
func GetOutputName(now time.Time, gameID int) string {
	seq := atomic.AddUint64(&outputNameCounter, 1)
	return fmt.Sprintf("%d-%06d-%d", now.Unix(), seq, gameID)
}

// GetOutputDir builds the root/YYYY-MM-DD-HH/ hour bucket §6 places every
// game's outputs under, using UTC per §4.8.
func GetOutputDir(now time.Time, root string) string {
	return fmt.Sprintf("%s/%s", root, now.UTC().Format("2006-01-02-15"))
}

package selfplay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetOutputNameIsUniquePerCall(t *testing.T) {
	now := time.Unix(1000, 0)
	a := GetOutputName(now, 1)
	b := GetOutputName(now, 1)
	assert.NotEqual(t, a, b)
}

func TestGetOutputDirUsesUTCHourBucket(t *testing.T) {
	now := time.Date(2026, 8, 6, 15, 30, 0, 0, time.FixedZone("UTC+9", 9*3600))
	dir := GetOutputDir(now, "/out")
	assert.Equal(t, "/out/2026-08-06-06", dir)
}

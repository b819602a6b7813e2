package example

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAllReadAllRoundTrips(t *testing.T) {
	examples := []Example{
		{BoardSize: 5, Board: []float32{1, 0, -1}, Policy: []float32{0.5, 0.5}, Value: 1},
		{BoardSize: 5, Board: []float32{0, 0, 0}, Policy: []float32{1, 0}, Value: -1},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAll(&buf, examples))

	got, err := ReadAll(&buf)
	require.NoError(t, err)
	assert.Equal(t, examples, got)
}

func TestReadAllOnEmptyInputReturnsNoExamples(t *testing.T) {
	got, err := ReadAll(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

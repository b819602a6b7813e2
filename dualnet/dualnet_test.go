package dual

import (
	"testing"

	围碁 "github.com/gorgonia/selfplay/game/wq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureDescriptorEncodeShape(t *testing.T) {
	g := 围碁.New(5, 0, 0)
	fd := DefaultFeatureDescriptor()

	enc := fd.Encode(g)
	assert.Len(t, enc, 5*5*fd.NumFeatures())
}

func TestDummyModelRunManyFillsEveryInput(t *testing.T) {
	g := 围碁.New(5, 0, 0)
	fd := DefaultFeatureDescriptor()
	inputs := [][]float32{fd.Encode(g), fd.Encode(g), fd.Encode(g)}

	m := NewDummyModel("dummy-v1", g.ActionSpace(), 0.25)
	outputs, name, err := m.RunMany(inputs)
	require.NoError(t, err)
	assert.Equal(t, "dummy-v1", name)
	require.Len(t, outputs, len(inputs))

	for _, o := range outputs {
		assert.Len(t, o.Policy, g.ActionSpace()+1)
		assert.Equal(t, float32(0.25), o.Value)
		var sum float32
		for _, p := range o.Policy {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-4)
	}
	require.NoError(t, m.Close())
}

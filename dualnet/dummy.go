package dual

// DummyModel is a deterministic stand-in for the real inference backend,
// batching the teacher's dummyInferer (dummy.go) across a RunMany call: a
// uniform policy over the action space and a fixed value, so tests can
// exercise the selfplay pipeline without a real network. Name is reported
// back as the model_name RunMany promises to fill.
type DummyModel struct {
	Name        string
	ActionSpace int // board moves plus pass
	Value       float32
}

// NewDummyModel returns a DummyModel that always answers with a uniform
// policy over actionSpace+1 moves (pass included) and the given value.
func NewDummyModel(name string, actionSpace int, value float32) *DummyModel {
	return &DummyModel{Name: name, ActionSpace: actionSpace, Value: value}
}

func (d *DummyModel) RunMany(inputs [][]float32) (outputs []Output, modelName string, err error) {
	n := d.ActionSpace + 1
	uniform := make([]float32, n)
	for i := range uniform {
		uniform[i] = 1 / float32(n)
	}

	outputs = make([]Output, len(inputs))
	for i := range inputs {
		policy := make([]float32, n)
		copy(policy, uniform)
		outputs[i] = Output{Policy: policy, Value: d.Value}
	}
	return outputs, d.Name, nil
}

func (d *DummyModel) Close() error { return nil }

var _ Model = &DummyModel{}

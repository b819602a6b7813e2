package dual

import "io"

// Output is one Model's verdict on one input: a policy over ActionSpace()+1
// moves (board moves, pass last) and a value in [-1,1] from the position's
// side-to-move perspective.
type Output struct {
	Policy []float32
	Value  float32
}

// Model is the "model handle" of the external neural-network inference
// backend: an opaque, acquirable resource supporting run_many(inputs) ->
// (outputs, model_name). A Model is thread-unsafe per handle - only one
// goroutine may call RunMany on a given Model at a time - but distinct
// handles (as ModelPool hands out concurrently) may run simultaneously.
// This is the teacher's Inferer (datatypes.go), batched: one call per
// shard-wide inference round instead of one call per board.
type Model interface {
	// RunMany fills one Output per input and reports the model's logical
	// name. A failed RunMany is a fatal inference error (spec.md §7):
	// every queued leaf must produce a result or the process aborts.
	RunMany(inputs [][]float32) (outputs []Output, modelName string, err error)
	io.Closer
}

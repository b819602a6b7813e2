package mcts

// naughty is an index into a Tree's node arena. Using an index instead of a
// pointer means nodes can live in a plain growable slice (no GC pressure per
// node, no pointer-chasing) and a subtree can be discarded by putting its
// indices back on the freelist instead of relying on the garbage collector
// to notice a pointer graph became unreachable.
type naughty int32

const nilNode naughty = -1

func (n naughty) isValid() bool { return n >= 0 }

// Leaf is the opaque handle a caller gets back from SelectLeaf and hands
// back to IncorporateResults/AddVirtualLoss/etc. It is an alias for naughty
// rather than a wrapper struct so that callers outside this package (an
// Inference's leaf reference, an InferenceSpan) can hold and compare it
// directly without the arena's internals leaking further than "it's an
// opaque comparable value".
type Leaf = naughty

// NilLeaf is the handle SelectLeaf returns when no leaf was selectable.
const NilLeaf Leaf = nilNode

// IsValid reports whether l is a real leaf handle, as opposed to NilLeaf.
func (n naughty) IsValid() bool { return n.isValid() }

// Package example writes the training examples a self-play game produces:
// one (board features, search policy, final outcome) triple per trainable
// move. File I/O for training examples is an out-of-scope external
// collaborator (spec.md §1) with no reference format in the retrieval
// pack, so this is a minimal writer over encoding/gob rather than a
// TFRecord/protobuf pipeline - just enough to give OutputThread something
// concrete to call.
package example

import (
	"encoding/gob"
	"io"
)

// Example mirrors the teacher's datatypes.Example (Board/Policy/Value)
// with an added BoardSize so a reader can reshape Board/Policy without an
// external schema.
type Example struct {
	BoardSize int
	Board     []float32
	Policy    []float32
	Value     float32
}

// WriteAll gob-encodes every example to w, one Example per Encode call.
func WriteAll(w io.Writer, examples []Example) error {
	enc := gob.NewEncoder(w)
	for _, ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return err
		}
	}
	return nil
}

// ReadAll decodes every Example gob-encoded to r until EOF.
func ReadAll(r io.Reader) ([]Example, error) {
	dec := gob.NewDecoder(r)
	var out []Example
	for {
		var ex Example
		if err := dec.Decode(&ex); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
		out = append(out, ex)
	}
}

// +build debug

package mcts

import (
	"bytes"
	"fmt"
)

// lumberjack is the tree's hot-path tracer: a build-tag no-op in normal
// builds so the inner search loop pays nothing for it, and a buffered
// logger under `-tags debug` for diagnosing search behavior.
type lumberjack struct {
	*bytes.Buffer
}

func makeLumberJack() lumberjack {
	return lumberjack{Buffer: new(bytes.Buffer)}
}

func (l *lumberjack) log(msg string, args ...interface{}) {
	fmt.Fprintf(l.Buffer, msg, args...)
	l.WriteByte('\n')
}

func (l *lumberjack) Reset() { l.Buffer.Reset() }

func (l lumberjack) Log() string { return l.String() }

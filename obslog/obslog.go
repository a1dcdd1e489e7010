// Package obslog wires the simulator's structured logger: a
// logiface.Logger[*stumpy.Event] writing newline-delimited JSON, the shape
// the engine uses for its per-job (enqueue, start, reserve, finish) debug
// lines and its end-of-run summary.
package obslog

import (
	"io"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete logger type threaded through the engine.
type Logger = logiface.Logger[*stumpy.Event]

// New builds a Logger writing to w at the given minimum level. A nil w
// defaults to stumpy's own default (os.Stderr).
func New(w io.Writer, level logiface.Level) *Logger {
	var stumpyOpts []stumpy.Option
	if w != nil {
		stumpyOpts = append(stumpyOpts, stumpy.WithWriter(w))
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpyOpts...),
		stumpy.L.WithLevel(level),
	)
}

// Discard builds a Logger that drops every event; useful in tests and
// library embeddings that don't want simulator logging.
func Discard() *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(),
		stumpy.L.WithLevel(logiface.LevelDisabled),
	)
}

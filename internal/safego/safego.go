// Package safego launches background goroutines that survive panics.
package safego

import "log/slog"

// Go runs fn on a new goroutine and turns a panic inside it into an
// error log instead of a process crash. Fire-and-forget work such as
// the edit flusher's debounced writes runs through this wrapper; a
// panicking flush must not take the whole API down with it.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", "panic", r)
			}
		}()
		fn()
	}()
}

package safego

import (
	"testing"
	"time"
)

func waitOrFail(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Error(msg)
	}
}

func TestGo_RunsFunction(t *testing.T) {
	ran := make(chan struct{})
	Go(func() { close(ran) })
	waitOrFail(t, ran, "goroutine did not run")
}

func TestGo_RecoversPanic(t *testing.T) {
	reached := make(chan struct{})
	Go(func() {
		defer close(reached)
		panic("intentional panic in test")
	})
	// A recovered panic must not crash the process; reaching here at
	// all, with the deferred close having fired, is the assertion.
	waitOrFail(t, reached, "goroutine did not complete after panic")
}

func TestGo_PanicDoesNotBlockLaterWork(t *testing.T) {
	Go(func() { panic("first launch panics") })

	ran := make(chan struct{})
	Go(func() { close(ran) })
	waitOrFail(t, ran, "subsequent goroutine did not run after earlier panic")
}

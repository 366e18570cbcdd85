package matching

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		d.Trigger(func() {
			calls.Add(1)
			close(done)
		})
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced call never fired")
	}
	// Allow any stray earlier timers to fire if they were going to.
	time.Sleep(50 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one invocation, got %d", got)
	}
}

func TestDebouncerStopCancelsPendingCall(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()

	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("expected the pending call to be cancelled, got %d invocations", got)
	}
}

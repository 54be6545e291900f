package queue

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDrain_FIFO(t *testing.T) {
	q := New(nil)
	var got []int
	for i := 1; i <= 3; i++ {
		i := i
		q.Enqueue(Func(func() { got = append(got, i) }))
	}

	if n := q.Drain(); n != 3 {
		t.Fatalf("Drain() = %d, want 3", n)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("delivery order = %v, want [1 2 3]", got)
	}
	if q.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", q.Len())
	}
}

func TestDrain_NestedEnqueueDeferredToNextDrain(t *testing.T) {
	q := New(nil)
	var got []string
	q.Enqueue(Func(func() {
		got = append(got, "outer")
		q.Enqueue(Func(func() { got = append(got, "inner") }))
	}))

	q.Drain()
	if len(got) != 1 || got[0] != "outer" {
		t.Fatalf("after first drain got %v, want [outer]", got)
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 pending inner callback", q.Len())
	}

	q.Drain()
	if len(got) != 2 || got[1] != "inner" {
		t.Errorf("after second drain got %v, want [outer inner]", got)
	}
}

func TestDrain_Empty(t *testing.T) {
	q := New(nil)
	if n := q.Drain(); n != 0 {
		t.Errorf("Drain() on empty queue = %d, want 0", n)
	}
}

func TestEnqueue_NilIgnored(t *testing.T) {
	q := New(nil)
	q.Enqueue(nil)
	q.Post(nil)
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestDrain_PanicDoesNotStopSnapshot(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	q := New(zap.New(core))

	delivered := false
	q.Enqueue(Func(func() { panic("boom") }))
	q.Enqueue(Func(func() { delivered = true }))

	q.Drain()
	if !delivered {
		t.Error("callback after a panicking one was not delivered")
	}
	if logs.FilterMessage("callback panicked").Len() != 1 {
		t.Errorf("expected one panic diagnostic, got %d", logs.Len())
	}
}

func TestPost_FromOtherGoroutines(t *testing.T) {
	q := New(nil)
	count := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Post(Func(func() { count++ }))
		}()
	}
	wg.Wait()

	if n := q.Drain(); n != 8 {
		t.Fatalf("Drain() = %d, want 8", n)
	}
	if count != 8 {
		t.Errorf("count = %d, want 8", count)
	}
}

func TestPost_AfterEnqueuedEntries(t *testing.T) {
	q := New(nil)
	var got []string
	q.Post(Func(func() { got = append(got, "posted") }))
	q.Enqueue(Func(func() { got = append(got, "local") }))

	q.Drain()
	if len(got) != 2 || got[0] != "local" || got[1] != "posted" {
		t.Errorf("order = %v, want [local posted]", got)
	}
}

func TestClear(t *testing.T) {
	q := New(nil)
	called := false
	q.Enqueue(Func(func() { called = true }))
	q.Post(Func(func() { called = true }))
	q.Clear()
	q.Drain()
	if called {
		t.Error("cleared callback was delivered")
	}
}

package events

import (
	"testing"

	"github.com/nathoo/scriptcore/types"
)

func TestEmit_DeliversToAllSubscribers(t *testing.T) {
	b := NewBus()
	var a, c int
	b.Subscribe(func(types.Event) { a++ })
	b.Subscribe(func(types.Event) { c++ })

	b.Emit(New(VerbStarted, "verb", "open"))

	if a != 1 || c != 1 {
		t.Errorf("deliveries = (%d, %d), want (1, 1)", a, c)
	}
}

func TestEmit_CarriesData(t *testing.T) {
	b := NewBus()
	var got types.Event
	b.Subscribe(func(ev types.Event) { got = ev })

	b.Emit(New(ActionFault, "object", "door", "ip", 2))

	if got.Type != ActionFault {
		t.Errorf("Type = %q, want %q", got.Type, ActionFault)
	}
	if got.Data["object"] != "door" || got.Data["ip"] != 2 {
		t.Errorf("Data = %v", got.Data)
	}
}

func TestEmit_NestedEmissionIsNotRecursive(t *testing.T) {
	b := NewBus()
	var order []string
	depth := 0
	maxDepth := 0

	b.Subscribe(func(ev types.Event) {
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		order = append(order, ev.Type)
		if ev.Type == VerbStarted {
			b.Emit(New(VerbFinished))
		}
		depth--
	})

	b.Emit(New(VerbStarted))

	if maxDepth != 1 {
		t.Errorf("handler re-entered: max depth %d", maxDepth)
	}
	if len(order) != 2 || order[0] != VerbStarted || order[1] != VerbFinished {
		t.Errorf("order = %v", order)
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	b := NewBus()
	n := 0
	cancel := b.Subscribe(func(types.Event) { n++ })

	b.Emit(New(VerbStep))
	cancel()
	b.Emit(New(VerbStep))

	if n != 1 {
		t.Errorf("deliveries = %d, want 1", n)
	}
}

func TestEmit_NilBus(t *testing.T) {
	var b *Bus
	b.Emit(New(VerbStep)) // must not panic
}

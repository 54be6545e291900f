// Package events implements single-pass event fan-out for runtime
// observers (trace output, diagnostics, tests). Events emitted by a handler
// are delivered after the current emission finishes, never recursively.
package events

import "github.com/nathoo/scriptcore/types"

// Event types emitted by the runtime.
const (
	VerbStarted     = "verb_started"
	VerbStep        = "verb_step"
	VerbSuspended   = "verb_suspended"
	VerbResumed     = "verb_resumed"
	VerbFinished    = "verb_finished"
	VerbCancelled   = "verb_cancelled"
	VerbMissing     = "verb_missing"
	ActionFault     = "action_fault"
	StaleCompletion = "stale_completion"
	OptionSelected  = "option_selected"
	SceneChanged    = "scene_changed"
	ItemAdded       = "item_added"
	ItemRemoved     = "item_removed"
)

// Handler receives events.
type Handler func(types.Event)

// Bus fans events out to subscribers. A nil *Bus is valid and drops events.
type Bus struct {
	handlers []*subscription
	pending  []types.Event
	emitting bool
}

type subscription struct {
	fn Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Handler) func() {
	sub := &subscription{fn: fn}
	b.handlers = append(b.handlers, sub)
	return func() {
		for i, s := range b.handlers {
			if s == sub {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers ev to every subscriber. Events emitted from inside a
// handler are queued and delivered once the outer emission completes.
func (b *Bus) Emit(ev types.Event) {
	if b == nil {
		return
	}
	b.pending = append(b.pending, ev)
	if b.emitting {
		return
	}

	b.emitting = true
	defer func() { b.emitting = false }()

	for len(b.pending) > 0 {
		next := b.pending[0]
		b.pending = b.pending[1:]
		for _, sub := range append([]*subscription(nil), b.handlers...) {
			sub.fn(next)
		}
	}
}

// New builds an event with the given data pairs.
func New(typ string, kv ...any) types.Event {
	data := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			data[k] = kv[i+1]
		}
	}
	return types.Event{Type: typ, Data: data}
}

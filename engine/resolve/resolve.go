// Package resolve finds the verb to run for an (object, verb, target,
// state) request, and maps player-typed names to object IDs.
package resolve

import (
	"fmt"
	"sort"

	"github.com/nathoo/scriptcore/engine/verb"
)

// NotFoundError indicates no verb matched a request, not even a default.
type NotFoundError struct {
	Object string
	Verb   string
	Target string
}

func (e *NotFoundError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("verb %q not found for %q with target %q", e.Verb, e.Object, e.Target)
	}
	return fmt.Sprintf("verb %q not found for %q", e.Verb, e.Object)
}

// DuplicateError indicates a verb key was added twice to one table.
type DuplicateError struct {
	Key string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate verb %q", e.Key)
}

// Table holds the verbs of one object, keyed by verb.Key. A nil *Table
// behaves as an empty table.
type Table struct {
	verbs map[string]*verb.Verb
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{verbs: make(map[string]*verb.Verb)}
}

// Add inserts v under its key.
func (t *Table) Add(v *verb.Verb) error {
	k := v.Key()
	if _, dup := t.verbs[k]; dup {
		return &DuplicateError{Key: k}
	}
	t.verbs[k] = v
	return nil
}

// Get returns the verb stored under an exact key.
func (t *Table) Get(key string) (*verb.Verb, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.verbs[key]
	return v, ok
}

// Remove deletes the verb under key and reports whether it existed.
func (t *Table) Remove(key string) bool {
	if t == nil {
		return false
	}
	if _, ok := t.verbs[key]; !ok {
		return false
	}
	delete(t.verbs, key)
	return true
}

// Len returns the number of verbs.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.verbs)
}

// Keys returns every key, sorted.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, 0, len(t.verbs))
	for k := range t.verbs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Verbs returns every verb ordered by key.
func (t *Table) Verbs() []*verb.Verb {
	keys := t.Keys()
	out := make([]*verb.Verb, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.verbs[k])
	}
	return out
}

// IDs returns the distinct verb ids in the table, sorted.
func (t *Table) IDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, v := range t.Verbs() {
		if !seen[v.ID] {
			seen[v.ID] = true
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// Busy reports whether any verb in the table is running or suspended.
func (t *Table) Busy() bool {
	if t == nil {
		return false
	}
	for _, v := range t.verbs {
		if v.Busy() {
			return true
		}
	}
	return false
}

// Lookup finds the most specific local verb. The order is id.target.state
// (only when both are set), id.target, id.state, then the bare id.
func (t *Table) Lookup(id, target, state string) (*verb.Verb, bool) {
	if t == nil {
		return nil, false
	}
	if target != "" && state != "" {
		if v, ok := t.verbs[verb.Key(id, target, state)]; ok {
			return v, true
		}
	}
	if target != "" {
		if v, ok := t.verbs[verb.Key(id, target, "")]; ok {
			return v, true
		}
	}
	if state != "" {
		if v, ok := t.verbs[verb.Key(id, "", state)]; ok {
			return v, true
		}
	}
	v, ok := t.verbs[id]
	return v, ok
}

// Resolve looks the request up in the object's own table, then in the
// defaults table by bare id. A miss returns *NotFoundError.
func Resolve(local, defaults *Table, objectID, id, state, target string) (*verb.Verb, error) {
	if v, ok := local.Lookup(id, target, state); ok {
		return v, nil
	}
	if v, ok := defaults.Get(id); ok {
		return v, nil
	}
	return nil, &NotFoundError{Object: objectID, Verb: id, Target: target}
}

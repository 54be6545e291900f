// Package tui provides a Bubble Tea terminal UI for the scriptcore runtime.
// The runtime is ticked in real time, so effects play out while the player
// types.
package tui

// History is a bounded command history with cursor-based navigation.
// Re-entering an older command moves it to the newest position.
type History struct {
	entries []string
	max     int
	cursor  int // len(entries) when not navigating
}

// NewHistory creates a history holding at most max commands.
func NewHistory(max int) *History {
	if max < 1 {
		max = 1
	}
	return &History{max: max}
}

// Push records a command and resets navigation.
func (h *History) Push(cmd string) {
	for i, e := range h.entries {
		if e == cmd {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append(h.entries, cmd)
	if over := len(h.entries) - h.max; over > 0 {
		h.entries = h.entries[over:]
	}
	h.cursor = len(h.entries)
}

// Len returns the number of stored commands.
func (h *History) Len() int { return len(h.entries) }

// Prev steps back to an older command. It stays on the oldest entry once
// reached and reports false only when the history is empty.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next steps forward to a newer command. Stepping past the newest returns
// false, meaning the input line should be cleared.
func (h *History) Next() (string, bool) {
	if h.cursor >= len(h.entries) {
		return "", false
	}
	h.cursor++
	if h.cursor == len(h.entries) {
		return "", false
	}
	return h.entries[h.cursor], true
}

// ResetCursor ends navigation.
func (h *History) ResetCursor() {
	h.cursor = len(h.entries)
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sceneDisplayName derives a human-readable name from a scene ID.
// "great_hall" -> "Great Hall", "castle_gates" -> "Castle Gates".
func sceneDisplayName(id string) string {
	if id == "" {
		return "-"
	}
	words := strings.Split(id, "_")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// statusParts returns the left and right halves of the status bar.
func (m Model) statusParts() (string, string) {
	s := m.engine.State

	left := " " + sceneDisplayName(s.Scene)
	if s.Dialog != "" {
		left += " | Dialog: " + s.Dialog
	}

	var flags []string
	rec := m.engine.Recorder()
	switch {
	case rec.Recording():
		flags = append(flags, "REC")
	case rec.Playing():
		pos, total := rec.Progress()
		flags = append(flags, fmt.Sprintf("PLAY %d/%d", pos, total))
	}
	if m.bot != nil {
		flags = append(flags, fmt.Sprintf("BOT %d", m.bot.Moves()))
	}
	flags = append(flags, fmt.Sprintf("T:%d ", s.Tick))
	return left, strings.Join(flags, " | ")
}

// renderStatusBar produces a full-width inverted status line. It turns red
// while a cut-scene holds control.
func (m Model) renderStatusBar() string {
	left, right := m.statusParts()
	if m.engine.InCutMode() {
		left += " | CUT"
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	style := styleStatusBar
	if m.engine.InCutMode() {
		style = styleStatusCut
	}
	return style.Width(m.width).Render(bar)
}

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleStatusCut = lipgloss.NewStyle().
			Background(lipgloss.Color("124")).
			Foreground(lipgloss.Color("231")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleSceneDesc = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleYouSee = lipgloss.NewStyle().
			Bold(true)

	styleSpeaker = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	styleSpeech = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleEffect = lipgloss.NewStyle().
			Foreground(lipgloss.Color("109")).
			Italic(true)

	styleSceneChange = lipgloss.NewStyle().
				Foreground(lipgloss.Color("81")).
				Bold(true)

	styleOption = lipgloss.NewStyle().
			Foreground(lipgloss.Color("150"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindSceneDesc lineKind = iota
	kindYouSee
	kindSpeech
	kindEffect
	kindSceneChange
	kindOption
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "You see:"):
		return kindYouSee
	case strings.HasPrefix(line, "-- ") && strings.HasSuffix(line, " --"):
		return kindSceneChange
	case strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")"):
		return kindEffect
	case isOptionLine(line):
		return kindOption
	case strings.HasPrefix(line, "You can't"),
		strings.HasPrefix(line, "Nothing to"):
		return kindError
	case speaker(line) != "":
		return kindSpeech
	default:
		return kindSceneDesc
	}
}

// speaker returns the actor of an "actor: text" line, or "" when the line
// is not speech. Actor IDs never contain spaces.
func speaker(line string) string {
	i := strings.Index(line, ": ")
	if i <= 0 {
		return ""
	}
	who := line[:i]
	if strings.ContainsAny(who, " ([") {
		return ""
	}
	return who
}

// isOptionLine matches the "  3. Text" lines of a dialog menu.
func isOptionLine(line string) bool {
	rest := strings.TrimPrefix(line, "  ")
	if len(rest) == len(line) {
		return false
	}
	i := strings.Index(rest, ". ")
	if i <= 0 {
		return false
	}
	for _, r := range rest[:i] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// styledYouSee renders "You see: a, b." with the names bold.
func styledYouSee(line string) string {
	const prefix = "You see: "
	if !strings.HasPrefix(line, prefix) {
		return styleSceneDesc.Render(line)
	}
	return styleSceneDesc.Render(prefix) + styleYouSee.Render(line[len(prefix):])
}

// styledSpeech renders the speaker and the spoken text in separate colors.
func styledSpeech(line string) string {
	who := speaker(line)
	if who == "" {
		return styleSpeech.Render(line)
	}
	return styleSpeaker.Render(who+":") + styleSpeech.Render(line[len(who)+1:])
}

func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}

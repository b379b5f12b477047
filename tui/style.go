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

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("141"))

	styleHeading = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")).
			Bold(true)

	styleRoomDesc = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleYouSee = lipgloss.NewStyle().
			Bold(true)

	styleExits = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleQuest = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleHint = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("141"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindRoomDesc lineKind = iota
	kindHeading
	kindYouSee
	kindExits
	kindDialogue
	kindQuest
	kindSystem
	kindHint
	kindTrace
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "== ") && strings.HasSuffix(line, " =="):
		return kindHeading
	case strings.HasPrefix(line, "You see:"):
		return kindYouSee
	case strings.HasPrefix(line, "Exit:"):
		return kindExits
	case strings.HasPrefix(line, "QUEST "),
		strings.HasPrefix(line, "Your journey is complete"),
		strings.HasPrefix(line, "Badges:"):
		return kindQuest
	case strings.HasPrefix(line, "You need "),
		strings.HasSuffix(line, "has not let you pass yet."),
		strings.HasPrefix(line, "Move closer"):
		return kindHint
	case isSpeech(line):
		return kindDialogue
	default:
		return kindRoomDesc
	}
}

// isSpeech reports whether line has the `Speaker: "text"` shape.
func isSpeech(line string) bool {
	i := strings.Index(line, `: "`)
	return i > 0 && strings.HasSuffix(line, `"`) && !strings.ContainsAny(line[:i], `"`)
}

// styledYouSee renders "You see: item1, item2." with item names bold.
func styledYouSee(line string) string {
	const prefix = "You see: "
	if !strings.HasPrefix(line, prefix) {
		return styleRoomDesc.Render(line)
	}
	return styleRoomDesc.Render(prefix) + styleYouSee.Render(line[len(prefix):])
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// displayName derives a human-readable name from an ID.
// "crystal-shore" -> "Crystal Shore", "tide_observatory" -> "Tide Observatory".
func displayName(id string) string {
	return titleCaser.String(strings.NewReplacer("-", " ", "_", " ").Replace(id))
}

// formatPlayTime renders seconds as m:ss, or h:mm:ss past an hour.
func formatPlayTime(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	h, m, s := secs/3600, (secs/60)%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// renderStatusBar produces a full-width inverted status line showing the
// current island and room, items left, exit state, badges and play time.
func (m Model) renderStatusBar() string {
	var left string
	if v, ok := m.engine.CurrentRoomSnapshot(); ok {
		island, room := v.IslandName, v.Name
		if island == "" {
			island = displayName(v.IslandID)
		}
		if room == "" {
			room = displayName(v.RoomID)
		}
		exit := "closed"
		if v.ExitOpen {
			exit = "open"
		}
		left = fmt.Sprintf(" %s | %s (%d/3) | Items: %d | Exit: %s", island, room, v.Index+1, v.Remaining, exit)
	} else if _, done := m.engine.Finale(); done {
		left = " Journey complete | /mint to claim your star"
	} else {
		left = " " + m.defs.Game.Title
	}

	ld := m.engine.LedgerSnapshot()
	earned := 0
	for _, l := range ld.Lines {
		if l.BadgeEarned {
			earned++
		}
	}
	right := fmt.Sprintf("Badges: %d/%d | %s ", earned, len(ld.Lines), formatPlayTime(m.engine.PlaySeconds()))

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}

package engine

import (
	"fmt"
	"strings"

	"github.com/nathoo/cosmicisles/engine/collect"
	"github.com/nathoo/cosmicisles/engine/dialogue"
	"github.com/nathoo/cosmicisles/engine/ledger"
	"github.com/nathoo/cosmicisles/engine/room"
	"github.com/nathoo/cosmicisles/types"
)

// describeEvent renders one event as narrative output lines.
func (e *Engine) describeEvent(ev types.Event) []string {
	str := func(k string) string { s, _ := ev.Data[k].(string); return s }

	switch ev.Type {
	case room.EventEntered:
		return e.describeRoom()

	case collect.EventArmed:
		return e.describeArmed(str("item"))

	case collect.EventRevealed:
		return []string{fmt.Sprintf("You search the %s and find the %s!", e.concealerName(str("concealer")), str("name"))}

	case collect.EventResolved:
		return []string{fmt.Sprintf("You collected the %s!", str("name"))}

	case collect.EventExhausted:
		return []string{"You have found everything in this room."}

	case dialogue.EventNPCSpoke:
		return []string{fmt.Sprintf("%s: %q", str("name"), str("text"))}

	case dialogue.EventPlayerReplied:
		return []string{fmt.Sprintf("You: %q", str("text"))}

	case dialogue.EventPassageGranted:
		if r, ok := e.currentRoom(); ok {
			return []string{fmt.Sprintf("%s lets you pass.", r.NPC.Name)}
		}

	case room.EventIslandCleared:
		if isl, ok := e.Defs.IslandIndex(str("island")); ok {
			return []string{fmt.Sprintf("You leave %s.", e.Defs.Islands[isl].Name)}
		}

	case ledger.EventLineCompleted:
		return []string{fmt.Sprintf("QUEST COMPLETE!\nYou earned the %s badge.", str("badge"))}

	case ledger.EventMetaCompleted:
		g := e.Defs.Game
		if g.MetaQuest != "" {
			return []string{fmt.Sprintf("%s complete! You earned the %s badge.", g.MetaQuest, g.MetaBadge)}
		}
	}
	return nil
}

// describeRoom produces the standard room description output.
func (e *Engine) describeRoom() []string {
	if e.room == nil {
		return []string{e.idleMessage()}
	}
	v := e.room.Snapshot()
	r, ok := e.room.Room()
	if !ok {
		return nil
	}

	output := []string{fmt.Sprintf("== %s: %s ==", v.IslandName, v.Name)}
	if v.Description != "" {
		output = append(output, v.Description)
	}

	var names []string
	for _, ref := range e.visibleRefs() {
		if ref.Kind != types.ActivateExit {
			names = append(names, ref.Name)
		}
	}
	if len(names) > 0 {
		output = append(output, "You see: "+strings.Join(names, ", ")+".")
	}

	exit := r.Exit.Name
	if exit == "" {
		exit = r.Exit.ID
	}
	status := "closed"
	if v.ExitOpen {
		status = "open"
	}
	output = append(output, fmt.Sprintf("Exit: %s (%s).", exit, status))
	return output
}

// describeArmed announces the encounter that just became active.
func (e *Engine) describeArmed(itemID string) []string {
	def, ok := e.encounterDef(itemID)
	if !ok {
		return nil
	}
	switch def.Kind {
	case types.EncounterHidden:
		name := def.TriggerName
		if name == "" {
			name = def.Trigger
		}
		return []string{fmt.Sprintf("Something glimmers behind the %s.", name)}
	case types.EncounterMoving:
		return []string{fmt.Sprintf("The %s drifts around the room. Stay close to catch it.", def.Name)}
	case types.EncounterChoice:
		return []string{fmt.Sprintf("%d places could hold the %s. Choose one (1-%d).", def.Options, def.Name, def.Options)}
	}
	return nil
}

func (e *Engine) encounterDef(itemID string) (types.EncounterDef, bool) {
	r, ok := e.currentRoom()
	if !ok {
		return types.EncounterDef{}, false
	}
	for _, d := range r.Encounters {
		if d.ItemID == itemID {
			return d, true
		}
	}
	return types.EncounterDef{}, false
}

func (e *Engine) concealerName(id string) string {
	r, ok := e.currentRoom()
	if ok {
		for _, d := range r.Encounters {
			if d.Trigger == id && d.TriggerName != "" {
				return d.TriggerName
			}
		}
	}
	return id
}

func (e *Engine) currentRoom() (types.RoomDef, bool) {
	if e.room == nil {
		return types.RoomDef{}, false
	}
	return e.room.Room()
}

// idleMessage is shown when no room is active.
func (e *Engine) idleMessage() string {
	if !e.started {
		return "The journey has not started yet."
	}
	return "Your journey is complete. Use /mint to claim your star."
}

// questAnnouncement is shown on arrival at an island.
func questAnnouncement(isl types.IslandDef) string {
	return "QUEST STARTED:\n" + strings.ToUpper(isl.Quest)
}

// finaleLines summarize the finished journey.
func finaleLines(f types.Finale) []string {
	badges := "none"
	if len(f.Badges) > 0 {
		badges = strings.Join(f.Badges, ", ")
	}
	unit := "minutes"
	if f.ElapsedMinutes == 1 {
		unit = "minute"
	}
	return []string{
		"Your journey is complete!",
		fmt.Sprintf("Badges: %s.", badges),
		fmt.Sprintf("Time: %d %s (%s).", f.ElapsedMinutes, unit, f.SpeedTier),
	}
}

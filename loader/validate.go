package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/cosmicisles/engine/rules"
	"github.com/nathoo/cosmicisles/engine/state"
	"github.com/nathoo/cosmicisles/types"
)

// RoomsPerIsland is the fixed length of every island.
const RoomsPerIsland = 3

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// validate checks the compiled defs for referential integrity and
// winnability. It always returns the collected report.
func validate(defs *state.Defs) *ValidationError {
	ve := &ValidationError{}

	if defs.Game.Title == "" {
		ve.errorf("Game.Title is required")
	}
	if len(defs.Islands) == 0 {
		ve.errorf("at least one Island is required")
	}
	if (defs.Game.MetaQuest == "") != (defs.Game.MetaBadge == "") {
		ve.warnf("Game.meta_quest and Game.meta_badge should be set together")
	}

	islandIDs := map[string]bool{}
	for _, isl := range defs.Islands {
		if islandIDs[isl.ID] {
			ve.errorf("duplicate island ID %q", isl.ID)
		}
		islandIDs[isl.ID] = true
	}

	tuning := state.DefaultTuning()
	for _, isl := range defs.Islands {
		validateIsland(isl, islandIDs, tuning, ve)
	}
	return ve
}

func validateIsland(isl types.IslandDef, islandIDs map[string]bool, t state.Tuning, ve *ValidationError) {
	if isl.Name == "" {
		ve.errorf("island %q: name is required", isl.ID)
	}
	if isl.Badge == "" {
		ve.errorf("island %q: badge is required", isl.ID)
	}
	if isl.Quest == "" {
		ve.warnf("island %q has no quest announcement", isl.ID)
	}
	if len(isl.Rooms) != RoomsPerIsland {
		ve.errorf("island %q has %d rooms, want %d", isl.ID, len(isl.Rooms), RoomsPerIsland)
	}

	items := map[string]bool{}
	roomIDs := map[string]bool{}
	for _, r := range isl.Rooms {
		for _, enc := range r.Encounters {
			if enc.ItemID == "" {
				continue
			}
			if items[enc.ItemID] {
				ve.errorf("island %q: duplicate item ID %q", isl.ID, enc.ItemID)
			}
			items[enc.ItemID] = true
		}
	}

	for i, r := range isl.Rooms {
		where := fmt.Sprintf("island %q room %q", isl.ID, r.ID)
		if r.ID == "" {
			where = fmt.Sprintf("island %q room %d", isl.ID, i+1)
			ve.errorf("%s: id is required", where)
		} else if roomIDs[r.ID] {
			ve.errorf("%s: duplicate room ID", where)
		}
		roomIDs[r.ID] = true

		if r.Exit.ID == "" {
			ve.errorf("%s: exit is required", where)
		}
		if r.Exit.Pos != (types.Vec{}) && !t.Bounds.Contains(r.Exit.Pos) {
			ve.warnf("%s: exit lies outside the room bounds", where)
		}

		last := i == len(isl.Rooms)-1
		if (last || r.Exit.NeedsPermission) && !grantsPassage(r.NPC) {
			ve.errorf("%s: exit needs permission but no NPC line grants passage", where)
		}
		validateNPC(where, r.NPC, items, islandIDs, t, ve)

		for _, enc := range r.Encounters {
			validateEncounter(where, enc, t, ve)
		}
	}
}

func grantsPassage(npc types.NPCDef) bool {
	if npc.ID == "" {
		return false
	}
	for _, l := range npc.Lines {
		if l.GrantsPassage {
			return true
		}
	}
	return false
}

func validateNPC(where string, npc types.NPCDef, items, islandIDs map[string]bool, t state.Tuning, ve *ValidationError) {
	if npc.ID == "" {
		return
	}
	if npc.Name == "" {
		ve.warnf("%s: npc %q has no name", where, npc.ID)
	}
	if len(npc.Lines) == 0 {
		ve.warnf("%s: npc %q has no lines", where, npc.ID)
	}
	if !t.Bounds.Contains(npc.Pos) {
		ve.warnf("%s: npc %q lies outside the room bounds", where, npc.ID)
	}
	for i, l := range npc.Lines {
		if l.Text == "" {
			ve.errorf("%s: npc %q line %d has no text", where, npc.ID, i+1)
		}
		validateConditions(where, l.Requires, items, islandIDs, ve)
	}
}

func validateEncounter(where string, enc types.EncounterDef, t state.Tuning, ve *ValidationError) {
	if enc.ItemID == "" {
		ve.errorf("%s: encounter has no item ID", where)
		return
	}
	what := fmt.Sprintf("%s: %s %q", where, enc.Kind, enc.ItemID)
	if enc.Name == "" {
		ve.warnf("%s has no name", what)
	}

	switch enc.Kind {
	case types.EncounterHidden:
		if enc.Trigger == "" {
			ve.errorf("%s needs a trigger", what)
		}
		if !t.Bounds.Contains(enc.Pos) {
			ve.warnf("%s lies outside the room bounds", what)
		}
	case types.EncounterMoving:
		if len(enc.Path) < 2 {
			ve.errorf("%s needs a path of at least 2 points", what)
		}
		if enc.Speed <= 0 {
			ve.errorf("%s needs a positive speed", what)
		}
		if enc.HoverSeconds < 0 {
			ve.errorf("%s has a negative hover time", what)
		}
		for _, p := range enc.Path {
			if !t.Bounds.Contains(p) {
				ve.warnf("%s path leaves the room bounds", what)
				break
			}
		}
	case types.EncounterChoice:
		if enc.Options < 2 {
			ve.errorf("%s needs at least 2 options", what)
		}
	}
}

func validateConditions(where string, conditions []types.Condition, items, islandIDs map[string]bool, ve *ValidationError) {
	for _, cond := range conditions {
		if !rules.ValidTypes[cond.Type] {
			ve.errorf("%s: unknown condition type %q", where, cond.Type)
			continue
		}

		switch cond.Type {
		case rules.CondItemFound:
			if item, _ := cond.Params["item"].(string); !items[item] {
				ve.errorf("%s: condition item_found references undefined item %q", where, item)
			}
		case rules.CondLineComplete:
			if line, _ := cond.Params["line"].(string); !islandIDs[line] {
				ve.errorf("%s: condition line_complete references undefined island %q", where, line)
			}
		case rules.CondNot:
			if cond.Inner != nil {
				validateConditions(where, []types.Condition{*cond.Inner}, items, islandIDs, ve)
			}
		}
	}
}

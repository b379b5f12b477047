package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/cosmicisles/engine/collect"
	"github.com/nathoo/cosmicisles/engine/geom"
	"github.com/nathoo/cosmicisles/engine/parser"
	"github.com/nathoo/cosmicisles/engine/resolve"
	"github.com/nathoo/cosmicisles/types"
)

// Text play subdivides waiting into ticks of this many seconds.
const (
	waitTick    = 0.25
	maxWaitSecs = 30
)

var directionVectors = map[string]types.Vec{
	"north":     {X: 0, Y: -1},
	"south":     {X: 0, Y: 1},
	"east":      {X: 1, Y: 0},
	"west":      {X: -1, Y: 0},
	"up":        {X: 0, Y: -1},
	"down":      {X: 0, Y: 1},
	"left":      {X: -1, Y: 0},
	"right":     {X: 1, Y: 0},
	"northeast": {X: 1, Y: -1},
	"northwest": {X: -1, Y: -1},
	"southeast": {X: 1, Y: 1},
	"southwest": {X: -1, Y: 1},
}

// Step processes one text command and returns the result. It is a thin
// adapter over Activate, Move and Tick for the terminal drivers.
func (e *Engine) Step(input string) types.Result {
	var result types.Result

	intent := parser.Parse(input)
	if intent.Verb == "" {
		result.Output = append(result.Output, "What do you want to do?")
		return result
	}

	switch intent.Verb {
	case "inventory":
		result.Output = e.inventory()
		return result
	case "look":
		if intent.Object == "" {
			result.Output = e.describeRoom()
			return result
		}
		intent.Verb = "examine"
	}

	if e.room == nil {
		result.Output = append(result.Output, e.idleMessage())
		return result
	}

	switch intent.Verb {
	case "examine":
		return e.stepExamine(intent)
	case "go":
		return e.stepGo(intent.Object)
	case "approach":
		return e.stepApproach(intent.Object)
	case "talk":
		return e.stepTalk(intent.Object)
	case "use":
		return e.stepUse(intent.Object)
	case "take":
		return e.stepTake(intent.Object)
	case "choose":
		return e.stepChoose(intent.Object)
	case "exit":
		return e.stepExit()
	case "wait":
		return e.stepWait(intent.Object)
	case "dismiss":
		return e.withFallback(e.BubbleExpired(), "Nothing to dismiss.")
	default:
		result.Output = append(result.Output, fmt.Sprintf("I don't know how to %q.", intent.Verb))
		return result
	}
}

// visibleRefs lists what the player can act on in the current room.
func (e *Engine) visibleRefs() []resolve.Ref {
	r, ok := e.currentRoom()
	if !ok {
		return nil
	}
	v := e.room.Snapshot()

	var refs []resolve.Ref
	if r.NPC.ID != "" {
		refs = append(refs, resolve.Ref{ID: r.NPC.ID, Name: r.NPC.Name, Kind: types.ActivateNPC, Pos: r.NPC.Pos})
	}

	seen := map[string]bool{}
	for _, d := range r.Encounters {
		if d.Kind != types.EncounterHidden || d.Trigger == "" || seen[d.Trigger] || e.Ledger.HasItem(v.IslandID, d.ItemID) {
			continue
		}
		seen[d.Trigger] = true
		name := d.TriggerName
		if name == "" {
			name = d.Trigger
		}
		refs = append(refs, resolve.Ref{ID: d.Trigger, Name: name, Kind: types.ActivateConcealer, Pos: d.Pos})
	}

	for _, ev := range v.Encounters {
		if !ev.Armed || (ev.Kind == types.EncounterHidden && !ev.Revealed) {
			continue
		}
		refs = append(refs, resolve.Ref{ID: ev.ItemID, Name: ev.Name, Kind: types.ActivateEncounter, Pos: ev.Pos})
	}

	name := r.Exit.Name
	if name == "" {
		name = r.Exit.ID
	}
	refs = append(refs, resolve.Ref{ID: r.Exit.ID, Name: name, Kind: types.ActivateExit, Pos: r.Exit.Pos})
	return refs
}

// lookup resolves name among the visible refs of the given kinds.
func (e *Engine) lookup(name string, kinds ...types.ActivationKind) (resolve.Ref, string) {
	refs := e.visibleRefs()
	if len(kinds) > 0 {
		refs = resolve.OfKind(refs, kinds...)
	}
	ref, err := resolve.Resolve(refs, name)
	if err != nil {
		var nf *resolve.NotFoundError
		if errors.As(err, &nf) && len(kinds) > 0 {
			if _, err2 := resolve.Resolve(e.visibleRefs(), name); err2 == nil {
				return resolve.Ref{}, "You can't do that with it."
			}
		}
		return resolve.Ref{}, capitalize(err.Error()) + "."
	}
	return ref, ""
}

func (e *Engine) stepExamine(intent types.Intent) types.Result {
	var result types.Result
	ref, msg := e.lookup(intent.Object)
	if msg != "" {
		result.Output = append(result.Output, msg)
		return result
	}
	dist := "within reach"
	if !geom.Within(e.Session.Player, ref.Pos, e.Session.Tuning.InteractionRadius) {
		dist = "some distance away"
	}
	result.Output = append(result.Output, fmt.Sprintf("%s, %s.", ref.Name, dist))
	return result
}

func (e *Engine) stepGo(direction string) types.Result {
	dir, ok := directionVectors[direction]
	if !ok {
		var result types.Result
		if direction == "" {
			result.Output = append(result.Output, "Go where?")
		} else {
			result.Output = append(result.Output, "You can't go that way.")
		}
		return result
	}
	step := e.Session.Tuning.StepSize
	result := e.Move(dir.X*step, dir.Y*step)
	p := e.Session.Player
	result.Output = append(result.Output, fmt.Sprintf("You are at (%.0f, %.0f).", p.X, p.Y))
	return result
}

func (e *Engine) stepApproach(name string) types.Result {
	ref, msg := e.lookup(name)
	if msg != "" {
		return types.Result{Output: []string{msg}}
	}
	result := e.MoveTo(ref.Pos)
	result.Output = append([]string{fmt.Sprintf("You walk over to the %s.", ref.Name)}, result.Output...)
	return result
}

func (e *Engine) stepTalk(name string) types.Result {
	r, _ := e.currentRoom()
	if r.NPC.ID == "" {
		return types.Result{Output: []string{"There is no one here to talk to."}}
	}
	id := r.NPC.ID
	if name != "" {
		ref, msg := e.lookup(name, types.ActivateNPC)
		if msg != "" {
			return types.Result{Output: []string{msg}}
		}
		id = ref.ID
	}
	return e.Activate(types.Activation{Kind: types.ActivateNPC, Entity: id})
}

func (e *Engine) stepUse(name string) types.Result {
	if name == "" {
		return types.Result{Output: []string{"Use what?"}}
	}
	ref, msg := e.lookup(name)
	if msg != "" {
		return types.Result{Output: []string{msg}}
	}
	switch ref.Kind {
	case types.ActivateEncounter:
		return e.stepTake(ref.ID)
	case types.ActivateConcealer:
		return e.withFallback(e.Activate(types.Activation{Kind: ref.Kind, Entity: ref.ID}),
			fmt.Sprintf("You search the %s but find nothing.", ref.Name))
	default:
		return e.Activate(types.Activation{Kind: ref.Kind, Entity: ref.ID})
	}
}

func (e *Engine) stepTake(name string) types.Result {
	if name == "" {
		return types.Result{Output: []string{"Take what?"}}
	}
	ref, msg := e.lookup(name, types.ActivateEncounter)
	if msg != "" {
		return types.Result{Output: []string{msg}}
	}
	if def, ok := e.encounterDef(ref.ID); ok && def.Kind == types.EncounterChoice {
		return types.Result{Output: []string{fmt.Sprintf("Choose a place first (1-%d).", def.Options)}}
	}
	return e.withFallback(e.Activate(types.Activation{Kind: types.ActivateEncounter, Entity: ref.ID}),
		"It slips out of reach.")
}

// stepChoose handles "choose 2" and "choose shell 2".
func (e *Engine) stepChoose(arg string) types.Result {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return types.Result{Output: []string{"Choose which one?"}}
	}
	slot, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return types.Result{Output: []string{"Choose a number."}}
	}

	var itemID string
	if len(fields) > 1 {
		ref, msg := e.lookup(strings.Join(fields[:len(fields)-1], " "), types.ActivateEncounter)
		if msg != "" {
			return types.Result{Output: []string{msg}}
		}
		itemID = ref.ID
	} else {
		for _, v := range e.room.Snapshot().Encounters {
			if v.Armed && v.Kind == types.EncounterChoice {
				itemID = v.ItemID
			}
		}
	}
	if itemID == "" {
		return types.Result{Output: []string{"There is nothing to choose here."}}
	}
	return e.withFallback(e.Activate(types.Activation{Kind: types.ActivateEncounter, Entity: itemID, Slot: slot}),
		"Nothing there.")
}

func (e *Engine) stepExit() types.Result {
	r, _ := e.currentRoom()
	return e.Activate(types.Activation{Kind: types.ActivateExit, Entity: r.Exit.ID})
}

// stepWait advances time in small ticks. While waiting the player stays on
// the moving item they last approached, so a patrol can be followed.
func (e *Engine) stepWait(arg string) types.Result {
	secs := 1.0
	if arg != "" {
		if n, err := strconv.ParseFloat(strings.TrimSuffix(arg, "s"), 64); err == nil && n > 0 {
			secs = min(n, maxWaitSecs)
		}
	}

	follow := e.followTarget()
	var result types.Result
	for t := 0.0; t < secs && e.room != nil; t += waitTick {
		if follow != "" {
			if pos, ok := e.encounterPos(follow); ok {
				e.Session.MoveTo(pos)
			}
		}
		tick := e.Tick(waitTick)
		merge(&result, tick)
		if hasEvent(tick.Events, collect.EventResolved) {
			break
		}
	}
	if len(result.Output) == 0 {
		result.Output = append(result.Output, "Time passes.")
	}
	return result
}

// followTarget returns the armed moving item the player is standing on.
func (e *Engine) followTarget() string {
	if e.room == nil {
		return ""
	}
	for _, v := range e.room.Snapshot().Encounters {
		if v.Armed && v.Kind == types.EncounterMoving &&
			geom.Within(e.Session.Player, v.Pos, e.Session.Tuning.HoverRadius) {
			return v.ItemID
		}
	}
	return ""
}

func (e *Engine) encounterPos(itemID string) (types.Vec, bool) {
	for _, v := range e.room.Snapshot().Encounters {
		if v.ItemID == itemID && v.Armed {
			return v.Pos, true
		}
	}
	return types.Vec{}, false
}

// inventory lists earned badges and the items found on the current island.
func (e *Engine) inventory() []string {
	badges := e.Ledger.EarnedBadgeNames()
	out := []string{}
	if len(badges) == 0 {
		out = append(out, "You have no badges yet.")
	} else {
		out = append(out, "Badges: "+strings.Join(badges, ", ")+".")
	}
	if isl, ok := e.Defs.Island(e.island); ok {
		found := e.Ledger.FoundItems(isl.ID)
		if len(found) == 0 {
			out = append(out, "You are carrying nothing.")
		} else {
			names := make([]string, 0, len(found))
			for _, id := range found {
				names = append(names, itemName(isl, id))
			}
			out = append(out, "You are carrying: "+strings.Join(names, ", ")+".")
		}
	}
	return out
}

// withFallback adds msg when res carries neither output nor hints.
func (e *Engine) withFallback(res types.Result, msg string) types.Result {
	if len(res.Output) == 0 && len(res.Hints) == 0 {
		res.Output = append(res.Output, msg)
	}
	return res
}

func itemName(isl types.IslandDef, itemID string) string {
	for _, r := range isl.Rooms {
		for _, d := range r.Encounters {
			if d.ItemID == itemID && d.Name != "" {
				return d.Name
			}
		}
	}
	return itemID
}

func hasEvent(evs []types.Event, eventType string) bool {
	for _, ev := range evs {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}

func merge(dst *types.Result, src types.Result) {
	dst.Events = append(dst.Events, src.Events...)
	dst.Output = append(dst.Output, src.Output...)
	dst.Hints = append(dst.Hints, src.Hints...)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

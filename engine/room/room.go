// Package room drives the ordered three-room sequence of one island.
//
// Each room owns a fresh collectible sequencer and dialogue exchange. The
// exit of a room opens when every encounter is collected and, for rooms that
// ask for it (and always the last room), the NPC has granted passage.
package room

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/engine/collect"
	"github.com/nathoo/cosmicisles/engine/dialogue"
	"github.com/nathoo/cosmicisles/engine/geom"
	"github.com/nathoo/cosmicisles/engine/ledger"
	"github.com/nathoo/cosmicisles/logger"
	"github.com/nathoo/cosmicisles/types"
)

// Event types emitted by the machine.
const (
	EventEntered       = "room_entered"
	EventExitRefused   = "exit_refused"
	EventExited        = "room_exited"
	EventIslandCleared = "island_cleared"
)

// Radii are the proximity thresholds used inside a room.
type Radii struct {
	Interaction float64 // NPC talk range
	Collect     float64
	Hover       float64
}

// Completion is reported when the last room is exited.
type Completion struct {
	IslandID       string
	Island         string
	Badge          string
	ElapsedSeconds int64 // journey play time at the moment of completion
}

// Machine is the room state machine of one island.
type Machine struct {
	island types.IslandDef
	index  int // -1 before the first Enter
	exited bool

	seq    *collect.Sequencer
	talk   *dialogue.Controller
	ledger *ledger.Ledger
	rng    collect.Roller
	radii  Radii
	clock  func() int64
	log    logrus.FieldLogger
}

// New returns a machine for island. Call Enter to place the player.
func New(island types.IslandDef, l *ledger.Ledger, rng collect.Roller, radii Radii, log logrus.FieldLogger) *Machine {
	log = logger.OrDiscard(log).WithField("island", island.ID)
	return &Machine{
		island: island,
		index:  -1,
		ledger: l,
		rng:    rng,
		radii:  radii,
		log:    log,
		talk:   dialogue.New(types.NPCDef{}, log),
	}
}

// SetClock installs the play time source stamped on the Completion.
func (m *Machine) SetClock(fn func() int64) { m.clock = fn }

// Island returns the island definition.
func (m *Machine) Island() types.IslandDef { return m.island }

// Index returns the current room index, or -1 before the first Enter.
func (m *Machine) Index() int { return m.index }

// Exited reports whether the last room has been left.
func (m *Machine) Exited() bool { return m.exited }

// Room returns the current room definition.
func (m *Machine) Room() (types.RoomDef, bool) {
	if m.index < 0 || m.index >= len(m.island.Rooms) {
		return types.RoomDef{}, false
	}
	return m.island.Rooms[m.index], true
}

// Enter places the player in room n. Entering the current room again is a
// no-op, so the presentation can rebuild its visuals without resetting state.
func (m *Machine) Enter(n int) []types.Event {
	if n < 0 || n >= len(m.island.Rooms) {
		m.log.WithField("room", n).Warn("enter: no such room")
		return nil
	}
	if n == m.index && !m.exited && m.seq != nil {
		return nil
	}

	r := m.island.Rooms[n]
	m.index = n
	m.exited = false
	m.seq = collect.New(m.island.ID, r.Encounters, m.ledger, m.rng,
		collect.Radii{Collect: m.radii.Collect, Hover: m.radii.Hover}, m.log.WithField("room", r.ID))
	m.talk.Reset(r.NPC)

	m.log.WithFields(logrus.Fields{"room": r.ID, "index": n}).Debug("room entered")
	events := []types.Event{{Type: EventEntered, Data: map[string]any{
		"island": m.island.ID, "room": r.ID, "index": n, "name": r.Name,
	}}}
	return append(events, m.seq.ArmedEvent()...)
}

// Activate routes a presentation activation to the owning component. It
// returns events, an optional hint, and a non-nil Completion when the
// activation left the island.
func (m *Machine) Activate(a types.Activation, player types.Vec) ([]types.Event, string, *Completion) {
	r, ok := m.Room()
	if !ok || m.exited {
		m.log.WithField("entity", a.Entity).Warn("activate: no active room")
		return nil, "", nil
	}

	switch a.Kind {
	case types.ActivateNPC:
		inRange := geom.Within(player, r.NPC.Pos, m.radii.Interaction)
		evs, hint := m.talk.Activate(a.Entity, inRange, m)
		return evs, hint, nil

	case types.ActivateEncounter:
		evs, hint := m.seq.Activate(a.Entity, a.Slot)
		return evs, hint, nil

	case types.ActivateConcealer:
		return m.seq.Reveal(a.Entity), "", nil

	case types.ActivateExit:
		if a.Entity != r.Exit.ID {
			m.log.WithField("exit", a.Entity).Warn("activate: unknown exit")
			return nil, "", nil
		}
		return m.TryExit()

	default:
		m.log.WithField("kind", a.Kind).Warn("activate: unknown kind")
		return nil, "", nil
	}
}

// TryExit attempts to leave the current room.
func (m *Machine) TryExit() ([]types.Event, string, *Completion) {
	r, ok := m.Room()
	if !ok || m.exited {
		return nil, "", nil
	}

	if hint := m.exitGate(r); hint != "" {
		return []types.Event{{Type: EventExitRefused, Data: map[string]any{
			"room": r.ID, "hint": hint,
		}}}, hint, nil
	}

	events := []types.Event{{Type: EventExited, Data: map[string]any{"room": r.ID, "index": m.index}}}
	if m.index == len(m.island.Rooms)-1 {
		m.exited = true
		m.log.Info("island cleared")
		var elapsed int64
		if m.clock != nil {
			elapsed = m.clock()
		}
		events = append(events, types.Event{Type: EventIslandCleared, Data: map[string]any{
			"island": m.island.ID, "badge": m.island.Badge, "elapsed": elapsed,
		}})
		return events, "", &Completion{
			IslandID: m.island.ID, Island: m.island.Name, Badge: m.island.Badge, ElapsedSeconds: elapsed,
		}
	}
	return append(events, m.Enter(m.index+1)...), "", nil
}

// ExitOpen reports whether TryExit would succeed now.
func (m *Machine) ExitOpen() bool {
	r, ok := m.Room()
	return ok && !m.exited && m.exitGate(r) == ""
}

// exitGate returns the hint for the first unsatisfied gate, or "".
func (m *Machine) exitGate(r types.RoomDef) string {
	switch n := m.seq.Remaining(); {
	case n == 1:
		return "You need 1 more item."
	case n > 1:
		return fmt.Sprintf("You need %d more items.", n)
	}
	if m.needsPermission(r) && !m.talk.Permission() {
		return fmt.Sprintf("%s has not let you pass yet.", r.NPC.Name)
	}
	return ""
}

func (m *Machine) needsPermission(r types.RoomDef) bool {
	return r.Exit.NeedsPermission || m.index == len(m.island.Rooms)-1
}

// Tick advances the room's sequencer.
func (m *Machine) Tick(dt float64, player types.Vec) []types.Event {
	if m.seq == nil || m.exited {
		return nil
	}
	return m.seq.Tick(dt, player)
}

// BubbleExpired dismisses a timed-out dialogue bubble.
func (m *Machine) BubbleExpired() []types.Event {
	return m.talk.BubbleExpired()
}

// ItemFound implements rules.Facts.
func (m *Machine) ItemFound(itemID string) bool {
	return m.ledger.HasItem(m.island.ID, itemID)
}

// ItemsPending implements rules.Facts.
func (m *Machine) ItemsPending() int {
	if m.seq == nil {
		return 0
	}
	return m.seq.Remaining()
}

// LineComplete implements rules.Facts.
func (m *Machine) LineComplete(lineID string) bool {
	return m.ledger.IsComplete(lineID)
}

// BadgeCount implements rules.Facts.
func (m *Machine) BadgeCount() int {
	return m.ledger.BadgeCount()
}

// View is the render-facing state of the current room.
type View struct {
	IslandID    string
	IslandName  string
	Index       int
	RoomID      string
	Name        string
	Background  string
	Description string
	NPC         types.NPCDef
	Encounters  []collect.View
	Exit        types.ExitDef
	ExitOpen    bool
	Remaining   int
	Exited      bool
}

// Snapshot returns the current room for rendering.
func (m *Machine) Snapshot() View {
	v := View{IslandID: m.island.ID, IslandName: m.island.Name, Index: m.index, Exited: m.exited}
	r, ok := m.Room()
	if !ok {
		return v
	}
	v.RoomID = r.ID
	v.Name = r.Name
	v.Background = r.Background
	v.Description = r.Description
	v.NPC = types.NPCDef{ID: r.NPC.ID, Name: r.NPC.Name, Pos: r.NPC.Pos}
	v.Exit = r.Exit
	v.ExitOpen = m.ExitOpen()
	if m.seq != nil {
		v.Encounters = m.seq.Snapshot()
		v.Remaining = m.seq.Remaining()
	}
	return v
}

// DialogueSnapshot returns the state of the room's exchange.
func (m *Machine) DialogueSnapshot() dialogue.View {
	return m.talk.Snapshot()
}

// Package collect implements the per-room collectible sequencer. Exactly one
// encounter is armed at a time; the ones behind it stay dormant until it is
// resolved.
package collect

import (
	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/engine/geom"
	"github.com/nathoo/cosmicisles/engine/ledger"
	"github.com/nathoo/cosmicisles/logger"
	"github.com/nathoo/cosmicisles/types"
)

// Event types emitted by the sequencer.
const (
	EventArmed     = "encounter_armed"
	EventRevealed  = "item_revealed"
	EventResolved  = "encounter_resolved"
	EventMissed    = "choice_missed"
	EventExhausted = "sequence_exhausted"
)

// DefaultMissHint is shown for a wrong choice when the room gives none.
const DefaultMissHint = "Not this one. Try another!"

// Roller draws a value in [1, sides].
type Roller interface {
	Roll(sides int) int
}

// Radii are the proximity thresholds for completion.
type Radii struct {
	Collect float64 // revealed hidden items
	Hover   float64 // moving items
}

type encounter struct {
	def       types.EncounterDef
	revealed  bool
	resolved  bool
	winner    int // 1-based, choice only
	pos       types.Vec
	travelled float64
	hovered   float64
}

// Sequencer tracks the encounters of one room instance.
type Sequencer struct {
	lineID string
	encs   []*encounter
	armed  int // index into encs, -1 when exhausted
	ledger *ledger.Ledger
	radii  Radii
	log    logrus.FieldLogger
}

// New builds the sequencer for a room. Winning choice slots are drawn from
// rng here, once per room instance.
func New(lineID string, defs []types.EncounterDef, l *ledger.Ledger, rng Roller, radii Radii, log logrus.FieldLogger) *Sequencer {
	s := &Sequencer{
		lineID: lineID,
		ledger: l,
		radii:  radii,
		armed:  -1,
		log:    logger.OrDiscard(log),
	}
	for _, d := range defs {
		e := &encounter{def: d, pos: d.Pos}
		if l.HasItem(lineID, d.ItemID) {
			e.resolved = true
		}
		switch d.Kind {
		case types.EncounterChoice:
			if !e.resolved && d.Options > 0 {
				e.winner = rng.Roll(d.Options)
			}
		case types.EncounterMoving:
			if len(d.Path) > 0 {
				e.pos = d.Path[0]
			}
		}
		s.encs = append(s.encs, e)
	}
	s.arm()
	return s
}

// arm selects the first unresolved encounter and reports whether one was found.
func (s *Sequencer) arm() bool {
	for i, e := range s.encs {
		if !e.resolved {
			s.armed = i
			return true
		}
	}
	s.armed = -1
	return false
}

// Armed returns the armed encounter definition.
func (s *Sequencer) Armed() (types.EncounterDef, bool) {
	if s.armed < 0 {
		return types.EncounterDef{}, false
	}
	return s.encs[s.armed].def, true
}

// Remaining returns how many items in this room are still uncollected.
func (s *Sequencer) Remaining() int {
	n := 0
	for _, e := range s.encs {
		if !e.resolved {
			n++
		}
	}
	return n
}

// Exhausted reports whether every encounter is resolved.
func (s *Sequencer) Exhausted() bool {
	return s.armed < 0
}

// ArmedEvent describes the current armed encounter, or nil when exhausted.
func (s *Sequencer) ArmedEvent() []types.Event {
	if s.armed < 0 {
		return nil
	}
	e := s.encs[s.armed]
	return []types.Event{{Type: EventArmed, Data: map[string]any{
		"item": e.def.ItemID, "name": e.def.Name, "kind": string(e.def.Kind),
	}}}
}

// Reveal handles activation of a concealer. Only the armed hidden encounter
// whose trigger matches is affected.
func (s *Sequencer) Reveal(concealerID string) []types.Event {
	e := s.current()
	if e == nil || e.def.Kind != types.EncounterHidden || e.def.Trigger != concealerID {
		s.log.WithField("concealer", concealerID).Debug("reveal ignored: not the armed concealer")
		return nil
	}
	if e.revealed {
		return nil
	}
	e.revealed = true
	return []types.Event{{Type: EventRevealed, Data: map[string]any{
		"item": e.def.ItemID, "name": e.def.Name, "concealer": concealerID,
	}}}
}

// Activate handles a direct activation of an item. slot is only used by
// choice encounters. It returns a hint when the activation is a miss.
func (s *Sequencer) Activate(itemID string, slot int) ([]types.Event, string) {
	e := s.current()
	if e == nil || e.def.ItemID != itemID {
		s.log.WithField("item", itemID).Debug("activation ignored: encounter is not armed")
		return nil, ""
	}

	switch e.def.Kind {
	case types.EncounterHidden:
		if !e.revealed {
			return nil, ""
		}
	case types.EncounterChoice:
		if slot < 1 || slot > e.def.Options {
			s.log.WithFields(logrus.Fields{"item": itemID, "slot": slot}).Debug("activation ignored: no such slot")
			return nil, ""
		}
		if slot != e.winner {
			hint := e.def.Hint
			if hint == "" {
				hint = DefaultMissHint
			}
			return []types.Event{{Type: EventMissed, Data: map[string]any{
				"item": itemID, "slot": slot,
			}}}, hint
		}
	}
	return s.resolve(e), ""
}

// Tick advances moving encounters by dt seconds and checks proximity
// completion against the player position.
func (s *Sequencer) Tick(dt float64, player types.Vec) []types.Event {
	e := s.current()
	if e == nil {
		return nil
	}

	switch e.def.Kind {
	case types.EncounterHidden:
		if e.revealed && geom.Within(player, e.pos, s.radii.Collect) {
			return s.resolve(e)
		}

	case types.EncounterMoving:
		if dt > 0 && e.def.Speed > 0 {
			e.travelled += e.def.Speed * dt
			e.pos = geom.PointAlong(e.def.Path, e.travelled)
		}
		if geom.Within(player, e.pos, s.radii.Hover) {
			e.hovered += dt
			if e.hovered >= e.def.HoverSeconds {
				return s.resolve(e)
			}
		} else {
			e.hovered = 0
		}
	}
	return nil
}

func (s *Sequencer) current() *encounter {
	if s.armed < 0 {
		return nil
	}
	return s.encs[s.armed]
}

func (s *Sequencer) resolve(e *encounter) []types.Event {
	e.resolved = true
	s.ledger.CompleteItem(s.lineID, e.def.ItemID)

	events := []types.Event{{Type: EventResolved, Data: map[string]any{
		"item": e.def.ItemID, "name": e.def.Name, "kind": string(e.def.Kind),
	}}}
	if s.arm() {
		events = append(events, s.ArmedEvent()...)
	} else {
		events = append(events, types.Event{Type: EventExhausted, Data: map[string]any{"line": s.lineID}})
	}
	s.log.WithFields(logrus.Fields{"line": s.lineID, "item": e.def.ItemID}).Info("item collected")
	return events
}

// View is the render-facing state of one encounter.
type View struct {
	ItemID   string
	Name     string
	Kind     types.EncounterKind
	Pos      types.Vec
	Armed    bool
	Revealed bool
	Resolved bool
	Trigger  string
	Options  int // unresolved armed choice only
}

// Snapshot returns the state of every encounter, in sequence order.
func (s *Sequencer) Snapshot() []View {
	views := make([]View, 0, len(s.encs))
	for i, e := range s.encs {
		v := View{
			ItemID:   e.def.ItemID,
			Name:     e.def.Name,
			Kind:     e.def.Kind,
			Pos:      e.pos,
			Armed:    i == s.armed,
			Revealed: e.revealed,
			Resolved: e.resolved,
			Trigger:  e.def.Trigger,
		}
		if v.Armed && e.def.Kind == types.EncounterChoice {
			v.Options = e.def.Options
		}
		views = append(views, v)
	}
	return views
}

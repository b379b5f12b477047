// Package state holds the immutable game definitions and the per-journey
// session context that the engine passes to its components.
package state

import (
	"github.com/nathoo/cosmicisles/engine/geom"
	"github.com/nathoo/cosmicisles/engine/ledger"
	"github.com/nathoo/cosmicisles/types"
)

// DefaultPlayerName is used when the player leaves the name empty.
const DefaultPlayerName = "Star Walker"

// Defs holds the immutable game definitions loaded from Lua.
type Defs struct {
	Game    types.GameDef
	Islands []types.IslandDef // in journey order
}

// Island returns the island at journey index i.
func (d *Defs) Island(i int) (types.IslandDef, bool) {
	if i < 0 || i >= len(d.Islands) {
		return types.IslandDef{}, false
	}
	return d.Islands[i], true
}

// IslandIndex returns the journey index of the island with the given id.
func (d *Defs) IslandIndex(id string) (int, bool) {
	for i, isl := range d.Islands {
		if isl.ID == id {
			return i, true
		}
	}
	return -1, false
}

// LineSpecs returns one quest line per island, in journey order.
func (d *Defs) LineSpecs() []ledger.LineSpec {
	specs := make([]ledger.LineSpec, 0, len(d.Islands))
	for _, isl := range d.Islands {
		specs = append(specs, ledger.LineSpec{ID: isl.ID, Badge: isl.Badge})
	}
	return specs
}

// Tuning holds the spatial constants of a room.
type Tuning struct {
	InteractionRadius float64     `yaml:"interaction_radius"`
	CollectRadius     float64     `yaml:"collect_radius"`
	HoverRadius       float64     `yaml:"hover_radius"`
	StepSize          float64     `yaml:"step_size"`
	Bounds            geom.Bounds `yaml:"bounds"`
	Start             types.Vec   `yaml:"start"`
}

// DefaultTuning matches a 1280x720 room.
func DefaultTuning() Tuning {
	return Tuning{
		InteractionRadius: 150,
		CollectRadius:     80,
		HoverRadius:       60,
		StepSize:          40,
		Bounds: geom.Bounds{
			Min: types.Vec{X: 50, Y: 50},
			Max: types.Vec{X: 1230, Y: 670},
		},
		Start: types.Vec{X: 100, Y: 500},
	}
}

// Session is the context object for one journey. There are no package
// globals; the engine owns exactly one Session.
type Session struct {
	ID         string
	PlayerName string
	Avatar     types.Avatar
	Player     types.Vec
	Tuning     Tuning
}

// NewSession returns a session with the player at the tuning start point.
func NewSession(id, playerName string, avatar types.Avatar, tuning Tuning) *Session {
	if playerName == "" {
		playerName = DefaultPlayerName
	}
	return &Session{
		ID:         id,
		PlayerName: playerName,
		Avatar:     avatar,
		Player:     geom.Clamp(tuning.Start, tuning.Bounds),
		Tuning:     tuning,
	}
}

// MoveBy offsets the player and clamps to the room bounds.
func (s *Session) MoveBy(dx, dy float64) types.Vec {
	return s.MoveTo(types.Vec{X: s.Player.X + dx, Y: s.Player.Y + dy})
}

// MoveTo places the player, clamped to the room bounds.
func (s *Session) MoveTo(p types.Vec) types.Vec {
	s.Player = geom.Clamp(p, s.Tuning.Bounds)
	return s.Player
}

// ResetPosition puts the player back at the start point, as on room entry.
func (s *Session) ResetPosition() {
	s.Player = geom.Clamp(s.Tuning.Start, s.Tuning.Bounds)
}

package collect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/cosmicisles/engine/ledger"
	"github.com/nathoo/cosmicisles/types"
)

const line = "whispering-grove"

// fixedRoller always rolls the same value.
type fixedRoller int

func (r fixedRoller) Roll(int) int { return int(r) }

var radii = Radii{Collect: 80, Hover: 60}

func testLedger() *ledger.Ledger {
	return ledger.New([]ledger.LineSpec{{ID: line, Badge: "Grove Guardian"}})
}

func hidden(item, trigger string, pos types.Vec) types.EncounterDef {
	return types.EncounterDef{Kind: types.EncounterHidden, ItemID: item, Name: item, Trigger: trigger, Pos: pos}
}

func choice(item string, options int) types.EncounterDef {
	return types.EncounterDef{Kind: types.EncounterChoice, ItemID: item, Name: item, Options: options, Pos: types.Vec{X: 640, Y: 400}}
}

func moving(item string, hover float64) types.EncounterDef {
	return types.EncounterDef{
		Kind: types.EncounterMoving, ItemID: item, Name: item,
		Path:  []types.Vec{{X: 100, Y: 100}, {X: 500, Y: 100}},
		Speed: 100, HoverSeconds: hover,
	}
}

func eventTypes(evs []types.Event) []string {
	var out []string
	for _, e := range evs {
		out = append(out, e.Type)
	}
	return out
}

func TestNew_ArmsFirstUncollected(t *testing.T) {
	l := testLedger()
	l.CompleteItem(line, "a")
	s := New(line, []types.EncounterDef{choice("a", 2), choice("b", 2), choice("c", 2)}, l, fixedRoller(1), radii, nil)

	armed, ok := s.Armed()
	require.True(t, ok)
	assert.Equal(t, "b", armed.ItemID)
	assert.Equal(t, 2, s.Remaining())
}

func TestNew_EmptyIsExhausted(t *testing.T) {
	s := New(line, nil, testLedger(), fixedRoller(1), radii, nil)
	assert.True(t, s.Exhausted())
	assert.Equal(t, 0, s.Remaining())
	assert.Nil(t, s.ArmedEvent())
}

func TestArming_AtMostOneInPrefixOrder(t *testing.T) {
	l := testLedger()
	s := New(line, []types.EncounterDef{choice("a", 2), choice("b", 2), choice("c", 2)}, l, fixedRoller(2), radii, nil)

	for _, want := range []string{"a", "b", "c"} {
		armedCount := 0
		for _, v := range s.Snapshot() {
			if v.Armed {
				armedCount++
				assert.Equal(t, want, v.ItemID)
			}
		}
		assert.Equal(t, 1, armedCount)
		s.Activate(want, 2)
	}
	assert.True(t, s.Exhausted())
	assert.Equal(t, 3, len(l.FoundItems(line)))
}

func TestActivate_DormantIgnored(t *testing.T) {
	l := testLedger()
	s := New(line, []types.EncounterDef{choice("a", 2), choice("b", 2)}, l, fixedRoller(1), radii, nil)

	evs, hint := s.Activate("b", 1)
	assert.Nil(t, evs)
	assert.Empty(t, hint)
	assert.False(t, l.HasItem(line, "b"))

	evs, _ = s.Activate("ghost", 1)
	assert.Nil(t, evs)
}

func TestHidden_RevealThenProximity(t *testing.T) {
	l := testLedger()
	s := New(line, []types.EncounterDef{hidden("glowing-stone", "bushes", types.Vec{X: 640, Y: 430})}, l, fixedRoller(1), radii, nil)

	// Direct activation before reveal does nothing.
	evs, _ := s.Activate("glowing-stone", 0)
	assert.Nil(t, evs)

	// Proximity before reveal does nothing.
	assert.Nil(t, s.Tick(0, types.Vec{X: 640, Y: 430}))

	// Wrong concealer.
	assert.Nil(t, s.Reveal("rocks"))

	evs = s.Reveal("bushes")
	assert.Equal(t, []string{EventRevealed}, eventTypes(evs))
	assert.Nil(t, s.Reveal("bushes"), "second reveal is a no-op")

	// Out of range.
	assert.Nil(t, s.Tick(0, types.Vec{X: 100, Y: 500}))

	evs = s.Tick(0, types.Vec{X: 660, Y: 440})
	assert.Equal(t, []string{EventResolved, EventExhausted}, eventTypes(evs))
	assert.True(t, l.HasItem(line, "glowing-stone"))
}

func TestHidden_DirectActivationAfterReveal(t *testing.T) {
	l := testLedger()
	s := New(line, []types.EncounterDef{
		hidden("a", "bush", types.Vec{X: 900, Y: 600}),
		hidden("b", "rock", types.Vec{X: 300, Y: 600}),
	}, l, fixedRoller(1), radii, nil)

	s.Reveal("bush")
	evs, _ := s.Activate("a", 0)
	assert.Equal(t, []string{EventResolved, EventArmed}, eventTypes(evs))
	assert.Equal(t, "b", evs[1].Data["item"])
}

func TestChoice_Scenario(t *testing.T) {
	l := testLedger()
	s := New(line, []types.EncounterDef{choice("song-seed", 3)}, l, fixedRoller(2), radii, nil)

	evs, hint := s.Activate("song-seed", 1)
	assert.Equal(t, []string{EventMissed}, eventTypes(evs))
	assert.Equal(t, DefaultMissHint, hint)
	assert.False(t, l.HasItem(line, "song-seed"), "a miss changes no progress")
	line0, _ := l.Line(line)
	assert.Equal(t, 0, line0.Progress[ledger.ItemsFoundKey])
	armed, ok := s.Armed()
	require.True(t, ok)
	assert.Equal(t, "song-seed", armed.ItemID, "encounter stays armed after a miss")

	evs, hint = s.Activate("song-seed", 2)
	assert.Equal(t, []string{EventResolved, EventExhausted}, eventTypes(evs))
	assert.Empty(t, hint)
	assert.True(t, l.HasItem(line, "song-seed"))

	evs, hint = s.Activate("song-seed", 3)
	assert.Nil(t, evs, "slots are gone once resolved")
	assert.Empty(t, hint)
}

func TestChoice_CustomHintAndBadSlot(t *testing.T) {
	def := choice("moonstone", 4)
	def.Hint = "Only sand in this shell."
	s := New(line, []types.EncounterDef{def}, testLedger(), fixedRoller(4), radii, nil)

	_, hint := s.Activate("moonstone", 3)
	assert.Equal(t, "Only sand in this shell.", hint)

	evs, hint := s.Activate("moonstone", 9)
	assert.Nil(t, evs)
	assert.Empty(t, hint)

	views := s.Snapshot()
	assert.Equal(t, 4, views[0].Options)
}

func TestChoice_WinnerDrawnFromRoller(t *testing.T) {
	l := testLedger()
	var rolled []int
	r := rollerFunc(func(sides int) int { rolled = append(rolled, sides); return 3 })
	New(line, []types.EncounterDef{choice("x", 5), hidden("y", "t", types.Vec{}), choice("z", 2)}, l, r, radii, nil)
	assert.Equal(t, []int{5, 2}, rolled)
}

type rollerFunc func(int) int

func (f rollerFunc) Roll(sides int) int { return f(sides) }

func TestMoving_PatrolAndHover(t *testing.T) {
	l := testLedger()
	s := New(line, []types.EncounterDef{moving("ember-core", 1.0)}, l, fixedRoller(1), radii, nil)

	views := s.Snapshot()
	assert.Equal(t, types.Vec{X: 100, Y: 100}, views[0].Pos)

	// Item moves 100 units/s along the path.
	player := types.Vec{X: 300, Y: 100}
	assert.Nil(t, s.Tick(1, types.Vec{X: 1200, Y: 600}))
	assert.InDelta(t, 200, s.Snapshot()[0].Pos.X, 1e-9)

	// Within hover radius, but not long enough yet.
	assert.Nil(t, s.Tick(0.5, player))
	assert.Nil(t, s.Tick(0.25, player))

	// Dwell resets when the item leaves the radius.
	assert.Nil(t, s.Tick(1, types.Vec{X: 1200, Y: 600}))

	// Item at 350: stay close for a full second.
	near := types.Vec{X: 380, Y: 100}
	assert.Nil(t, s.Tick(0.5, near))
	evs := s.Tick(0.5, types.Vec{X: 430, Y: 100})
	assert.Equal(t, []string{EventResolved, EventExhausted}, eventTypes(evs))
	assert.True(t, l.HasItem(line, "ember-core"))
}

func TestMoving_ZeroHoverCompletesOnFirstTickInRange(t *testing.T) {
	l := testLedger()
	s := New(line, []types.EncounterDef{moving("ember-core", 0)}, l, fixedRoller(1), radii, nil)

	evs := s.Tick(0, types.Vec{X: 110, Y: 110})
	assert.Equal(t, []string{EventResolved, EventExhausted}, eventTypes(evs))
}

func TestMoving_DirectActivation(t *testing.T) {
	l := testLedger()
	s := New(line, []types.EncounterDef{moving("ember-core", 3)}, l, fixedRoller(1), radii, nil)

	evs, _ := s.Activate("ember-core", 0)
	assert.Equal(t, []string{EventResolved, EventExhausted}, eventTypes(evs))
}

func TestResolved_NoDoubleCount(t *testing.T) {
	l := testLedger()
	s := New(line, []types.EncounterDef{choice("a", 2)}, l, fixedRoller(1), radii, nil)
	s.Activate("a", 1)
	s.Activate("a", 1)
	q, _ := l.Line(line)
	assert.Equal(t, 1, q.Progress[ledger.ItemsFoundKey])
}

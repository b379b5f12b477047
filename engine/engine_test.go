package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/cosmicisles/engine/collect"
	"github.com/nathoo/cosmicisles/engine/dialogue"
	"github.com/nathoo/cosmicisles/engine/ledger"
	"github.com/nathoo/cosmicisles/engine/room"
	"github.com/nathoo/cosmicisles/engine/rules"
	"github.com/nathoo/cosmicisles/engine/save"
	"github.com/nathoo/cosmicisles/engine/state"
	"github.com/nathoo/cosmicisles/store"
	"github.com/nathoo/cosmicisles/types"
)

var (
	villagerPos = types.Vec{X: 900, Y: 450}
	sagePos     = types.Vec{X: 640, Y: 360}
	smithPos    = types.Vec{X: 700, Y: 300}
)

// testDefs builds a two-island journey small enough to play by hand.
func testDefs() *state.Defs {
	return &state.Defs{
		Game: types.GameDef{
			Title: "Test Isles", Version: "1.0", Intro: "Welcome, traveller.",
			MetaQuest: "Shattered Star", MetaBadge: "Star Reforged",
		},
		Islands: []types.IslandDef{
			{
				ID: "crystal-isle", Name: "Crystal Isle", Badge: "Crystal Keeper", Quest: "Find the crystal", Order: 1,
				Rooms: []types.RoomDef{
					{
						ID: "shore", Name: "Shore", Description: "Waves lap at the sand.",
						NPC: types.NPCDef{ID: "guidebot", Name: "Guidebot", Pos: types.Vec{X: 200, Y: 500},
							Lines: []types.DialogueLine{{Text: "Search the shore!"}}},
						Encounters: []types.EncounterDef{
							{Kind: types.EncounterChoice, ItemID: "shell", Name: "Shell", Options: 1, Pos: types.Vec{X: 640, Y: 400}},
						},
						Exit: types.ExitDef{ID: "path", Name: "Path", Pos: types.Vec{X: 1200, Y: 400}},
					},
					{
						ID: "village", Name: "Village",
						NPC: types.NPCDef{ID: "villager", Name: "Villager", Pos: villagerPos, Lines: []types.DialogueLine{
							{
								Text:          "Oh! You have the crystal?",
								Reply:         "Yes! I can unlock the door.",
								Requires:      []types.Condition{{Type: rules.CondItemsDone}},
								GrantsPassage: true,
							},
							{Text: "Something glows in the bushes."},
						}},
						Encounters: []types.EncounterDef{
							{Kind: types.EncounterHidden, ItemID: "glowing-stone", Name: "Glowing Stone",
								Trigger: "bushes", TriggerName: "Bushes", Pos: types.Vec{X: 640, Y: 430}},
						},
						Exit: types.ExitDef{ID: "door", Name: "Door", NeedsPermission: true},
					},
					{
						ID: "sanctuary", Name: "Sanctuary",
						NPC: types.NPCDef{ID: "sage", Name: "Sage", Pos: sagePos, Lines: []types.DialogueLine{
							{Text: "The Sanctuary is open.\nTap the portal to enter.", Reply: "Thank you, Sage.", GrantsPassage: true},
						}},
						Exit: types.ExitDef{ID: "portal", Name: "Portal"},
					},
				},
			},
			{
				ID: "ember-forge", Name: "Ember Forge", Badge: "Flame Tamer", Quest: "Catch the ember", Order: 2,
				Rooms: []types.RoomDef{
					{
						ID: "vents", Name: "Vents",
						Encounters: []types.EncounterDef{
							{Kind: types.EncounterMoving, ItemID: "ember-core", Name: "Ember Core",
								Path: []types.Vec{{X: 100, Y: 100}, {X: 300, Y: 100}}, Speed: 50},
						},
						Exit: types.ExitDef{ID: "bridge", Name: "Bridge"},
					},
					{ID: "hall", Name: "Hall", Exit: types.ExitDef{ID: "gate", Name: "Gate"}},
					{
						ID: "forge", Name: "Forge",
						NPC: types.NPCDef{ID: "smith", Name: "Smith", Pos: smithPos, Lines: []types.DialogueLine{
							{Text: "Go on through.", GrantsPassage: true},
						}},
						Exit: types.ExitDef{ID: "forge-door", Name: "Forge Door"},
					},
				},
			},
		},
	}
}

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time            { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
}

type fakeReporter struct {
	events []types.ProgressEvent
	err    error
}

func (f *fakeReporter) Report(_ context.Context, ev types.ProgressEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

type fakeMinter struct {
	resp types.MintResponse
	err  error
	reqs []types.MintRequest
}

func (f *fakeMinter) Mint(_ context.Context, req types.MintRequest) (types.MintResponse, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

func act(e *Engine, kind types.ActivationKind, id string, slot int) types.Result {
	return e.Activate(types.Activation{Kind: kind, Entity: id, Slot: slot})
}

func eventTypes(evs []types.Event) []string {
	var out []string
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}

// clearCrystalIsle plays the first island through the activation API.
func clearCrystalIsle(t *testing.T, e *Engine) types.Result {
	t.Helper()
	act(e, types.ActivateEncounter, "shell", 1)
	act(e, types.ActivateExit, "path", 0)
	require.Equal(t, 1, e.room.Index())

	act(e, types.ActivateConcealer, "bushes", 0)
	act(e, types.ActivateEncounter, "glowing-stone", 0)
	e.MoveTo(villagerPos)
	act(e, types.ActivateNPC, "villager", 0)
	act(e, types.ActivateNPC, "villager", 0)
	act(e, types.ActivateExit, "door", 0)
	require.Equal(t, 2, e.room.Index())

	e.MoveTo(sagePos)
	act(e, types.ActivateNPC, "sage", 0)
	act(e, types.ActivateNPC, "sage", 0)
	return act(e, types.ActivateExit, "portal", 0)
}

func clearEmberForge(t *testing.T, e *Engine) types.Result {
	t.Helper()
	e.MoveTo(types.Vec{X: 100, Y: 100})
	act(e, types.ActivateExit, "bridge", 0)
	act(e, types.ActivateExit, "gate", 0)
	require.Equal(t, 2, e.room.Index())
	e.MoveTo(smithPos)
	act(e, types.ActivateNPC, "smith", 0)
	return act(e, types.ActivateExit, "forge-door", 0)
}

func TestStart(t *testing.T) {
	e := New(testDefs())
	res := e.Start()

	out := strings.Join(res.Output, "\n")
	assert.Contains(t, out, "Welcome, traveller.")
	assert.Contains(t, out, "QUEST STARTED:\nFIND THE CRYSTAL")
	assert.Contains(t, out, "== Crystal Isle: Shore ==")
	assert.Equal(t, []string{room.EventEntered, collect.EventArmed}, eventTypes(res.Events))

	v, ok := e.CurrentRoomSnapshot()
	require.True(t, ok)
	assert.Equal(t, "shore", v.RoomID)
	assert.Equal(t, types.Vec{X: 100, Y: 500}, e.Session.Player)
}

func TestActivate_BeforeStart(t *testing.T) {
	e := New(testDefs())
	res := act(e, types.ActivateNPC, "guidebot", 0)
	assert.Equal(t, []string{"The journey has not started yet."}, res.Output)
}

func TestExitRefused_Hint(t *testing.T) {
	e := New(testDefs())
	e.Start()

	res := act(e, types.ActivateExit, "path", 0)
	assert.Equal(t, []string{"You need 1 more item."}, res.Hints)
	assert.Equal(t, 0, e.room.Index())
}

func TestIslandCompletion(t *testing.T) {
	rep := &fakeReporter{}
	clk := newClock()
	e := New(testDefs(), WithReporter(rep), WithClock(clk.now))
	e.Start()
	clk.advance(90 * time.Second)

	res := clearCrystalIsle(t, e)

	got := eventTypes(res.Events)
	assert.Contains(t, got, room.EventIslandCleared)
	for _, ev := range res.Events {
		if ev.Type == room.EventIslandCleared {
			assert.Equal(t, int64(90), ev.Data["elapsed"])
		}
	}
	assert.Contains(t, got, ledger.EventLineCompleted)
	assert.NotContains(t, got, ledger.EventMetaCompleted)
	out := strings.Join(res.Output, "\n")
	assert.Contains(t, out, "QUEST COMPLETE!\nYou earned the Crystal Keeper badge.")
	assert.Contains(t, out, "QUEST STARTED:\nCATCH THE EMBER")

	assert.Equal(t, 1, e.IslandIndex())
	assert.True(t, e.Ledger.IsComplete("crystal-isle"))
	assert.Equal(t, []string{"Crystal Keeper"}, e.Ledger.EarnedBadgeNames())

	require.Len(t, rep.events, 1)
	ev := rep.events[0]
	assert.Equal(t, 1, ev.IslandIndex)
	assert.Equal(t, "crystal-isle", ev.LineID)
	assert.True(t, ev.BadgeEarned)
	assert.Equal(t, "Crystal Keeper", ev.Badge)
	assert.True(t, ev.Completed)
	assert.Equal(t, e.Session.ID, ev.SessionID)
	assert.Equal(t, "2026-10-19T09:01:30Z", ev.Timestamp)

	// The snapshot already points at the next island.
	p := e.Progress()
	assert.Equal(t, 1, p.CurrentIslandIndex)
	assert.Equal(t, 0, p.CurrentRoom)
}

func TestTelemetryFailureIsNotFatal(t *testing.T) {
	e := New(testDefs(), WithReporter(&fakeReporter{err: errors.New("redis down")}))
	e.Start()
	clearCrystalIsle(t, e)
	assert.Equal(t, 1, e.IslandIndex())
}

func TestFinale(t *testing.T) {
	clk := newClock()
	e := New(testDefs(), WithClock(clk.now))
	e.Start()

	clearCrystalIsle(t, e)
	clk.advance(12*time.Minute + 30*time.Second)
	res := clearEmberForge(t, e)

	assert.Contains(t, eventTypes(res.Events), ledger.EventMetaCompleted)
	assert.Contains(t, eventTypes(res.Events), EventJourneyComplete)
	assert.Contains(t, strings.Join(res.Output, "\n"), "Shattered Star complete! You earned the Star Reforged badge.")

	f, ok := e.Finale()
	require.True(t, ok)
	assert.Equal(t, types.Finale{
		Badges:         []string{"Crystal Keeper", "Flame Tamer"},
		ElapsedMinutes: 12,
		SpeedTier:      types.SpeedFast,
		AllComplete:    true,
	}, f)

	_, hasRoom := e.CurrentRoomSnapshot()
	assert.False(t, hasRoom)
	res = act(e, types.ActivateNPC, "smith", 0)
	assert.Contains(t, res.Output[0], "journey is complete")
}

func TestTier(t *testing.T) {
	tests := []struct {
		minutes int
		want    types.SpeedTier
	}{
		{0, types.SpeedFast},
		{12, types.SpeedFast},
		{14, types.SpeedFast},
		{15, types.SpeedNormal},
		{20, types.SpeedNormal},
		{24, types.SpeedNormal},
		{25, types.SpeedExploratory},
		{40, types.SpeedExploratory},
	}
	for _, tt := range tests {
		if got := Tier(tt.minutes); got != tt.want {
			t.Errorf("Tier(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestProgressResumeRoundTrip(t *testing.T) {
	clk := newClock()
	e := New(testDefs(), WithClock(clk.now), WithSeed(7), WithPlayer("Nova", types.Avatar{BodyColor: "teal"}))
	e.Start()
	clearCrystalIsle(t, e)
	e.MoveTo(types.Vec{X: 100, Y: 100})
	act(e, types.ActivateExit, "bridge", 0)
	clk.advance(3 * time.Minute)

	p := e.Progress()
	assert.Equal(t, int64(180), p.PlaySeconds)
	assert.Equal(t, "Nova", p.PlayerName)

	data, err := save.Encode(p)
	require.NoError(t, err)
	decoded, err := save.Decode(data)
	require.NoError(t, err)

	clk2 := newClock()
	e2 := New(testDefs(), WithClock(clk2.now))
	res := e2.Resume(decoded)
	assert.Contains(t, res.Output[0], "Welcome back, Nova.")

	assert.Equal(t, 1, e2.IslandIndex())
	v, ok := e2.CurrentRoomSnapshot()
	require.True(t, ok)
	assert.Equal(t, "hall", v.RoomID)
	assert.Equal(t, e.LedgerSnapshot(), e2.LedgerSnapshot())
	assert.Equal(t, p.SessionID, e2.Session.ID)
	assert.Equal(t, types.Avatar{BodyColor: "teal"}, e2.Session.Avatar)
	assert.Equal(t, p.RNGPosition, e2.RNG.Position())

	clk2.advance(time.Minute)
	assert.Equal(t, int64(240), e2.PlaySeconds(), "play time accumulates across resume")
}

func TestResume_SkipsCompletedIsland(t *testing.T) {
	e := New(testDefs())
	e.Start()
	clearCrystalIsle(t, e)
	p := e.Progress()
	p.CurrentIslandIndex = 0
	p.CurrentRoom = 2

	e2 := New(testDefs())
	e2.Resume(&p)
	assert.Equal(t, 1, e2.IslandIndex())
	v, _ := e2.CurrentRoomSnapshot()
	assert.Equal(t, "vents", v.RoomID)
}

func TestResume_FinishedJourney(t *testing.T) {
	e := New(testDefs())
	e.Start()
	clearCrystalIsle(t, e)
	clearEmberForge(t, e)
	p := e.Progress()

	e2 := New(testDefs())
	e2.Resume(&p)
	_, ok := e2.Finale()
	assert.True(t, ok)
}

func TestAutosave_StartIntervalAndLoad(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	mem := store.NewMemory()
	as := save.NewAutosaver(save.NewGateway(mem, nil), 30*time.Second, nil)
	e := New(testDefs(), WithClock(clk.now), WithAutosaver(as))

	e.Start()
	as.Wait()
	require.Equal(t, int64(1), as.Writes(), "saves immediately on start")

	clk.advance(10 * time.Second)
	e.Tick(0.016)
	as.Wait()
	assert.Equal(t, int64(1), as.Writes(), "interval not yet elapsed")

	clk.advance(25 * time.Second)
	e.Tick(0.016)
	as.Wait()
	assert.Equal(t, int64(2), as.Writes())

	act(e, types.ActivateEncounter, "shell", 1)
	as.Wait()
	assert.Equal(t, int64(3), as.Writes(), "item collection saves")

	require.NoError(t, e.Save(ctx))

	e2 := New(testDefs(), WithAutosaver(save.NewAutosaver(save.NewGateway(mem, nil), time.Minute, nil)))
	_, err := e2.Load(ctx)
	require.NoError(t, err)
	assert.True(t, e2.Ledger.HasItem("crystal-isle", "shell"))
}

func TestLoad_NoSave(t *testing.T) {
	e := New(testDefs(), WithAutosaver(save.NewAutosaver(save.NewGateway(store.NewMemory(), nil), time.Minute, nil)))
	_, err := e.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSave)

	_, err = New(testDefs()).Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSave)
}

func TestNewGame_ClearsSaveAndLedger(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	as := save.NewAutosaver(save.NewGateway(mem, nil), time.Hour, nil)
	e := New(testDefs(), WithAutosaver(as))
	e.Start()
	clearCrystalIsle(t, e)
	oldSession := e.Session.ID

	e.NewGame(ctx)
	as.Wait()
	assert.Equal(t, 0, e.IslandIndex())
	assert.False(t, e.Ledger.IsComplete("crystal-isle"))
	assert.NotEqual(t, oldSession, e.Session.ID)

	p, err := as.Gateway().Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, p, "the new journey saves on start")
	assert.Equal(t, 0, p.CurrentIslandIndex)
	assert.False(t, p.Ledger.Lines[0].Completed)
}

func TestEnterRoom_Idempotent(t *testing.T) {
	e := New(testDefs())
	e.Start()
	act(e, types.ActivateEncounter, "shell", 1)

	res := e.EnterRoom(0)
	assert.Empty(t, res.Events)
	assert.NotEmpty(t, res.Output)
	assert.True(t, e.Ledger.HasItem("crystal-isle", "shell"))
	v, _ := e.CurrentRoomSnapshot()
	assert.Equal(t, 0, v.Remaining)

	res = e.EnterRoom(2)
	assert.Empty(t, res.Output, "cannot jump ahead")
	assert.Equal(t, 0, e.room.Index())
}

func TestDialogueSnapshot(t *testing.T) {
	e := New(testDefs())
	e.Start()
	act(e, types.ActivateEncounter, "shell", 1)
	act(e, types.ActivateExit, "path", 0)

	res := act(e, types.ActivateNPC, "villager", 0)
	assert.Equal(t, []string{dialogue.HintMoveCloser}, res.Hints)
	assert.Equal(t, dialogue.SpeakerNone, e.ActiveDialogueSnapshot().Speaker)

	e.MoveTo(villagerPos)
	res = act(e, types.ActivateNPC, "villager", 0)
	assert.Equal(t, []string{`Villager: "Something glows in the bushes."`}, res.Output)
	assert.Equal(t, dialogue.SpeakerNPC, e.ActiveDialogueSnapshot().Speaker)

	e.BubbleExpired()
	assert.Equal(t, dialogue.SpeakerNone, e.ActiveDialogueSnapshot().Speaker)
}

func TestExpiredBubbleStillGrantsPassage(t *testing.T) {
	e := New(testDefs())
	e.Start()
	act(e, types.ActivateEncounter, "shell", 1)
	act(e, types.ActivateExit, "path", 0)
	act(e, types.ActivateConcealer, "bushes", 0)
	act(e, types.ActivateEncounter, "glowing-stone", 0)
	e.MoveTo(villagerPos)
	act(e, types.ActivateNPC, "villager", 0)
	act(e, types.ActivateNPC, "villager", 0)
	act(e, types.ActivateExit, "door", 0)
	require.Equal(t, 2, e.room.Index())

	e.MoveTo(sagePos)
	act(e, types.ActivateNPC, "sage", 0)
	e.BubbleExpired()
	res := act(e, types.ActivateNPC, "sage", 0)
	assert.Contains(t, eventTypes(res.Events), dialogue.EventPassageGranted)

	res = act(e, types.ActivateExit, "portal", 0)
	assert.Contains(t, eventTypes(res.Events), room.EventIslandCleared)
}

func TestRequestMint(t *testing.T) {
	ctx := context.Background()
	e := New(testDefs(), WithPlayer("Nova", types.Avatar{Outfit: "explorer"}))
	e.Start()

	resp := <-e.RequestMint(ctx)
	assert.False(t, resp.Success)
	assert.Equal(t, "journey not complete", resp.Error)

	clearCrystalIsle(t, e)
	clearEmberForge(t, e)

	resp = <-e.RequestMint(ctx)
	assert.Equal(t, "minting is not configured", resp.Error)

	m := &fakeMinter{resp: types.MintResponse{Success: true, TransactionRef: "0xabc", Rarity: "Legendary"}}
	e.minter = m
	resp = <-e.RequestMint(ctx)
	assert.True(t, resp.Success)
	assert.Equal(t, "0xabc", resp.TransactionRef)
	require.Len(t, m.reqs, 1)
	assert.Equal(t, "Nova", m.reqs[0].PlayerName)
	assert.Equal(t, "explorer", m.reqs[0].Avatar.Outfit)
	assert.Equal(t, []string{"Crystal Keeper", "Flame Tamer"}, m.reqs[0].Badges)
	assert.True(t, m.reqs[0].AllComplete)
}

func TestRequestMint_FailureSurfacedLedgerUntouched(t *testing.T) {
	e := New(testDefs(), WithMinter(&fakeMinter{err: errors.New("wallet rejected the transaction")}))
	e.Start()
	clearCrystalIsle(t, e)
	clearEmberForge(t, e)
	before := e.LedgerSnapshot()

	resp := <-e.RequestMint(context.Background())
	assert.False(t, resp.Success)
	assert.Equal(t, "wallet rejected the transaction", resp.Error)
	assert.Equal(t, before, e.LedgerSnapshot())

	// Retrying is allowed.
	resp = <-e.RequestMint(context.Background())
	assert.Equal(t, "wallet rejected the transaction", resp.Error)
}

func TestTick_NegativeDtIgnored(t *testing.T) {
	e := New(testDefs())
	e.Start()
	clearCrystalIsle(t, e)
	before := e.room.Snapshot().Encounters[0].Pos
	e.Tick(-5)
	assert.Equal(t, before, e.room.Snapshot().Encounters[0].Pos)
}

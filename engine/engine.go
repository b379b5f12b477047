// Package engine provides the journey controller: it owns the quest ledger,
// the session and the active island's room machine, and turns activations,
// movement and ticks into results for the presentation layer.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/engine/dialogue"
	"github.com/nathoo/cosmicisles/engine/events"
	"github.com/nathoo/cosmicisles/engine/ledger"
	"github.com/nathoo/cosmicisles/engine/room"
	"github.com/nathoo/cosmicisles/engine/save"
	"github.com/nathoo/cosmicisles/engine/state"
	"github.com/nathoo/cosmicisles/logger"
	"github.com/nathoo/cosmicisles/types"
)

// Reporter receives one progress event per completed quest line. Report is
// called on the engine goroutine and must not block.
type Reporter interface {
	Report(ctx context.Context, ev types.ProgressEvent) error
}

// Minter submits the finale to the external minting workflow.
type Minter interface {
	Mint(ctx context.Context, req types.MintRequest) (types.MintResponse, error)
}

var (
	// ErrNoSave is returned by Load when the store holds no snapshot.
	ErrNoSave = errors.New("no saved progress")
	// ErrNoStore is returned by Save when the engine has no autosaver.
	ErrNoStore = errors.New("save: no store configured")
)

// Engine holds the game definitions and the journey state.
type Engine struct {
	Defs    *state.Defs
	Session *state.Session
	Ledger  *ledger.Ledger
	RNG     *RNG
	Bus     *events.Bus

	island  int // journey index; len(Defs.Islands) once every island is done
	room    *room.Machine
	finale  *types.Finale
	started bool

	playBase  int64 // seconds carried over from a resumed snapshot
	resumedAt time.Time

	now      func() time.Time
	autosave *save.Autosaver
	reporter Reporter
	minter   Minter
	log      logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithAutosaver enables autosave on an interval and on every completion.
func WithAutosaver(a *save.Autosaver) Option {
	return func(e *Engine) { e.autosave = a }
}

// WithReporter sets the progress telemetry sink.
func WithReporter(r Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// WithMinter sets the minting workflow.
func WithMinter(m Minter) Option {
	return func(e *Engine) { e.minter = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSeed seeds the session RNG.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.RNG = NewRNG(seed) }
}

// WithPlayer sets the player's name and avatar.
func WithPlayer(name string, avatar types.Avatar) Option {
	return func(e *Engine) {
		e.Session.PlayerName = name
		if name == "" {
			e.Session.PlayerName = state.DefaultPlayerName
		}
		e.Session.Avatar = avatar
	}
}

// WithTuning overrides the spatial constants.
func WithTuning(t state.Tuning) Option {
	return func(e *Engine) {
		e.Session.Tuning = t
		e.Session.ResetPosition()
	}
}

// New creates an engine from definitions. Call Start or Resume before play.
func New(defs *state.Defs, opts ...Option) *Engine {
	e := &Engine{
		Defs:    defs,
		Session: state.NewSession(uuid.NewString(), "", types.Avatar{}, state.DefaultTuning()),
		RNG:     NewRNG(0),
		Bus:     events.NewBus(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.log = logger.OrDiscard(e.log)
	e.Ledger = ledger.New(defs.LineSpecs(),
		ledger.WithLogger(e.log.WithField("component", "ledger")),
		ledger.WithSaveHook(e.requestSave))
	e.Bus.Subscribe(ledger.EventLineCompleted, e.reportLine)
	return e
}

// Start begins a journey at the first incomplete island.
func (e *Engine) Start() types.Result {
	var res types.Result
	e.started = true
	e.playBase = 0
	e.resumedAt = e.now()
	e.finale = nil

	if e.Defs.Game.Intro != "" {
		res.Output = append(res.Output, e.Defs.Game.Intro)
	}
	e.island = e.firstIncomplete(0)
	e.enterCurrent(0, &res)
	e.requestSave("start")
	return res
}

// Resume restores a saved journey and re-enters the saved room.
func (e *Engine) Resume(p *save.SavedProgress) types.Result {
	var res types.Result
	e.started = true
	e.finale = nil

	e.Ledger.Restore(p.Ledger)
	id := p.SessionID
	if id == "" {
		id = e.Session.ID
	}
	e.Session = state.NewSession(id, p.PlayerName, p.Avatar, e.Session.Tuning)
	e.RNG = RestoreRNG(p.RNGSeed, p.RNGPosition)
	e.playBase = p.PlaySeconds
	e.resumedAt = e.now()

	idx := min(max(p.CurrentIslandIndex, 0), len(e.Defs.Islands))
	roomIdx := p.CurrentRoom
	if next := e.firstIncomplete(idx); next != idx {
		roomIdx = 0
		idx = next
	}
	e.island = idx

	e.log.WithFields(logrus.Fields{"island": idx, "room": roomIdx, "session": id}).Info("journey resumed")
	res.Output = append(res.Output, "Welcome back, "+e.Session.PlayerName+".")
	e.enterCurrent(roomIdx, &res)
	return res
}

// Load resumes from the autosaver's store.
func (e *Engine) Load(ctx context.Context) (types.Result, error) {
	if e.autosave == nil {
		return types.Result{}, ErrNoSave
	}
	e.autosave.Wait()
	p, err := e.autosave.Gateway().Load(ctx)
	if err != nil {
		return types.Result{}, err
	}
	if p == nil {
		return types.Result{}, ErrNoSave
	}
	return e.Resume(p), nil
}

// NewGame clears the saved snapshot and every quest line, then starts over.
func (e *Engine) NewGame(ctx context.Context) types.Result {
	if e.autosave != nil {
		e.autosave.Wait()
		if err := e.autosave.Gateway().Clear(ctx); err != nil {
			e.log.WithError(err).Error("new game: clearing saved progress failed")
		}
	}
	e.Ledger.Reset()
	e.Session = state.NewSession(uuid.NewString(), e.Session.PlayerName, e.Session.Avatar, e.Session.Tuning)
	e.RNG = NewRNG(e.RNG.Seed() + 1)
	return e.Start()
}

// firstIncomplete returns the first island at or after i whose line is open.
func (e *Engine) firstIncomplete(i int) int {
	for i < len(e.Defs.Islands) && e.Ledger.IsComplete(e.Defs.Islands[i].ID) {
		i++
	}
	return i
}

// enterCurrent builds the room machine for the current island, or the
// finale once every island is done.
func (e *Engine) enterCurrent(roomIdx int, res *types.Result) {
	isl, ok := e.Defs.Island(e.island)
	if !ok {
		e.room = nil
		e.finishJourney(res)
		return
	}
	t := e.Session.Tuning
	e.room = room.New(isl, e.Ledger, e.RNG,
		room.Radii{Interaction: t.InteractionRadius, Collect: t.CollectRadius, Hover: t.HoverRadius},
		e.log.WithField("component", "room"))
	e.room.SetClock(e.PlaySeconds)
	e.Session.ResetPosition()

	if roomIdx == 0 && isl.Quest != "" {
		res.Output = append(res.Output, questAnnouncement(isl))
	}
	if roomIdx < 0 || roomIdx >= len(isl.Rooms) {
		roomIdx = 0
	}
	e.apply(e.room.Enter(roomIdx), res)
}

// Activate handles a tap on an entity of the current room.
func (e *Engine) Activate(a types.Activation) types.Result {
	var res types.Result
	if e.room == nil {
		res.Output = append(res.Output, e.idleMessage())
		return res
	}
	evs, hint, done := e.room.Activate(a, e.Session.Player)
	e.apply(evs, &res)
	if hint != "" {
		res.Hints = append(res.Hints, hint)
	}
	if done != nil {
		e.completeIsland(done, &res)
	}
	return res
}

// Move offsets the player and runs proximity checks.
func (e *Engine) Move(dx, dy float64) types.Result {
	e.Session.MoveBy(dx, dy)
	return e.Tick(0)
}

// MoveTo places the player and runs proximity checks.
func (e *Engine) MoveTo(p types.Vec) types.Result {
	e.Session.MoveTo(p)
	return e.Tick(0)
}

// Tick advances patrols by dt seconds, checks proximity completion and
// fires the interval autosave. Any tick rate works, including long gaps.
func (e *Engine) Tick(dt float64) types.Result {
	var res types.Result
	if dt < 0 {
		dt = 0
	}
	if e.room != nil {
		e.apply(e.room.Tick(dt, e.Session.Player), &res)
	}
	if e.started && e.autosave != nil && e.autosave.Due(e.now()) {
		e.requestSave("interval")
	}
	return res
}

// BubbleExpired dismisses a dialogue bubble the presentation timed out.
func (e *Engine) BubbleExpired() types.Result {
	var res types.Result
	if e.room != nil {
		e.apply(e.room.BubbleExpired(), &res)
	}
	return res
}

// EnterRoom rebuilds the current room for the presentation. Only the
// current room may be entered; state is untouched.
func (e *Engine) EnterRoom(n int) types.Result {
	var res types.Result
	if e.room == nil || n != e.room.Index() {
		e.log.WithField("room", n).Warn("enter room: not the current room")
		return res
	}
	e.apply(e.room.Enter(n), &res)
	res.Output = append(res.Output, e.describeRoom()...)
	return res
}

// apply records evs on res, renders them and dispatches them on the bus.
func (e *Engine) apply(evs []types.Event, res *types.Result) {
	if len(evs) == 0 {
		return
	}
	res.Events = append(res.Events, evs...)
	for _, ev := range evs {
		if ev.Type == room.EventEntered {
			e.Session.ResetPosition()
		}
		res.Output = append(res.Output, e.describeEvent(ev)...)
	}
	e.Bus.Dispatch(evs)
}

// completeIsland records the island's badge and moves the journey on. The
// island index advances before the ledger write so the snapshot taken by
// the save hook already points at the next island.
func (e *Engine) completeIsland(c *room.Completion, res *types.Result) {
	e.log.WithFields(logrus.Fields{"island": c.IslandID, "badge": c.Badge, "elapsed": c.ElapsedSeconds}).Info("island completed")
	e.island++
	e.room = nil
	evs := e.Ledger.CompleteLine(c.IslandID)
	e.apply(evs, res)
	e.island = e.firstIncomplete(e.island)
	e.enterCurrent(0, res)
}

// finishJourney computes the finale once.
func (e *Engine) finishJourney(res *types.Result) {
	if e.finale != nil {
		return
	}
	minutes := int(e.PlaySeconds() / 60)
	f := types.Finale{
		Badges:         e.Ledger.EarnedBadgeNames(),
		ElapsedMinutes: minutes,
		SpeedTier:      Tier(minutes),
		AllComplete:    e.Ledger.MetaComplete(),
	}
	e.finale = &f
	e.log.WithFields(logrus.Fields{"minutes": minutes, "tier": f.SpeedTier, "badges": len(f.Badges)}).Info("journey complete")
	res.Events = append(res.Events, types.Event{Type: EventJourneyComplete, Data: map[string]any{
		"badges": f.Badges, "elapsedMinutes": minutes, "speedTier": string(f.SpeedTier),
	}})
	res.Output = append(res.Output, finaleLines(f)...)
	e.requestSave("finale")
}

// EventJourneyComplete is emitted once, when the last island is cleared.
const EventJourneyComplete = "journey_complete"

// reportLine forwards a completed line to telemetry.
func (e *Engine) reportLine(ev types.Event) {
	if e.reporter == nil {
		return
	}
	line, _ := ev.Data["line"].(string)
	badge, _ := ev.Data["badge"].(string)
	idx, _ := e.Defs.IslandIndex(line)
	pe := types.ProgressEvent{
		SessionID:   e.Session.ID,
		IslandIndex: idx + 1,
		LineID:      line,
		Completed:   true,
		BadgeEarned: true,
		Badge:       badge,
		Timestamp:   e.now().UTC().Format(time.RFC3339),
	}
	if err := e.reporter.Report(context.Background(), pe); err != nil {
		e.log.WithError(err).WithField("line", line).Error("progress report failed")
	}
}

// requestSave is the ledger save hook and the interval trigger.
func (e *Engine) requestSave(reason string) {
	if e.autosave == nil || !e.started {
		return
	}
	e.autosave.Request(e.now(), reason, e.Progress)
}

// Save writes a snapshot synchronously, waiting for any in-flight autosave.
func (e *Engine) Save(ctx context.Context) error {
	if e.autosave == nil {
		return ErrNoStore
	}
	e.autosave.Wait()
	return e.autosave.Gateway().Save(ctx, e.Progress())
}

// Progress captures the current journey as a snapshot.
func (e *Engine) Progress() save.SavedProgress {
	roomIdx := 0
	if e.room != nil && e.room.Index() > 0 {
		roomIdx = e.room.Index()
	}
	return save.SavedProgress{
		Version:            save.Version,
		SessionID:          e.Session.ID,
		CurrentIslandIndex: e.island,
		CurrentRoom:        roomIdx,
		PlayerName:         e.Session.PlayerName,
		Avatar:             e.Session.Avatar,
		Ledger:             e.Ledger.Snapshot(),
		PlaySeconds:        e.PlaySeconds(),
		RNGSeed:            e.RNG.Seed(),
		RNGPosition:        e.RNG.Position(),
	}
}

// PlaySeconds returns the wall-clock play time including resumed sessions.
func (e *Engine) PlaySeconds() int64 {
	if e.resumedAt.IsZero() {
		return e.playBase
	}
	return e.playBase + int64(e.now().Sub(e.resumedAt)/time.Second)
}

// IslandIndex returns the current journey index.
func (e *Engine) IslandIndex() int { return e.island }

// Started reports whether Start or Resume has run.
func (e *Engine) Started() bool { return e.started }

// CurrentRoomSnapshot returns the room for rendering.
func (e *Engine) CurrentRoomSnapshot() (room.View, bool) {
	if e.room == nil {
		return room.View{}, false
	}
	return e.room.Snapshot(), true
}

// ActiveDialogueSnapshot returns the dialogue exchange of the current room.
func (e *Engine) ActiveDialogueSnapshot() dialogue.View {
	if e.room == nil {
		return dialogue.View{}
	}
	return e.room.DialogueSnapshot()
}

// LedgerSnapshot returns a copy of the quest ledger.
func (e *Engine) LedgerSnapshot() types.LedgerData {
	return e.Ledger.Snapshot()
}

// Finale returns the finale payload once the journey is complete.
func (e *Engine) Finale() (types.Finale, bool) {
	if e.finale == nil {
		return types.Finale{}, false
	}
	return *e.finale, true
}

// RequestMint hands the finale to the minting workflow. The response is
// delivered on the returned channel and never changes the ledger; calling
// again after a failure retries.
func (e *Engine) RequestMint(ctx context.Context) <-chan types.MintResponse {
	out := make(chan types.MintResponse, 1)
	f, ok := e.Finale()
	switch {
	case !ok:
		out <- types.MintResponse{Error: "journey not complete"}
		close(out)
		return out
	case e.minter == nil:
		out <- types.MintResponse{Error: "minting is not configured"}
		close(out)
		return out
	}

	req := types.MintRequest{
		PlayerName:     e.Session.PlayerName,
		Avatar:         e.Session.Avatar,
		Badges:         f.Badges,
		SpeedTier:      f.SpeedTier,
		ElapsedMinutes: f.ElapsedMinutes,
		AllComplete:    f.AllComplete,
	}
	m, log := e.minter, e.log
	go func() {
		defer close(out)
		resp, err := m.Mint(ctx, req)
		if err != nil {
			log.WithError(err).Error("mint failed")
			resp = types.MintResponse{Error: err.Error()}
		}
		out <- resp
	}()
	return out
}

// Close waits for any in-flight autosave.
func (e *Engine) Close() {
	if e.autosave != nil {
		e.autosave.Wait()
	}
}

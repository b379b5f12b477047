package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/cosmicisles/types"
)

func testSpecs() []LineSpec {
	return []LineSpec{
		{ID: "crystal-isle", Badge: "Crystal Keeper"},
		{ID: "ember-forge", Badge: "Flame Tamer"},
		{ID: "whispering-grove", Badge: "Grove Guardian"},
	}
}

func TestNew_InitialState(t *testing.T) {
	l := New(testSpecs())

	assert.Equal(t, 0, l.BadgeCount())
	assert.False(t, l.MetaComplete())
	assert.Empty(t, l.EarnedBadgeNames())
	line, ok := l.Line("ember-forge")
	require.True(t, ok)
	assert.Equal(t, "Flame Tamer", line.Badge)
	assert.NotNil(t, line.Progress)
}

func TestCompleteLine_Idempotent(t *testing.T) {
	saves := 0
	l := New(testSpecs(), WithSaveHook(func(string) { saves++ }))

	events := l.CompleteLine("crystal-isle")
	require.Len(t, events, 1)
	assert.Equal(t, EventLineCompleted, events[0].Type)
	assert.Equal(t, "Crystal Keeper", events[0].Data["badge"])
	before := l.Snapshot()

	again := l.CompleteLine("crystal-isle")
	assert.Empty(t, again)
	assert.Equal(t, before, l.Snapshot())
	assert.Equal(t, 1, saves, "second completion must not request a save")
}

func TestCompleteLine_UnknownIsNoop(t *testing.T) {
	l := New(testSpecs())
	before := l.Snapshot()

	assert.Nil(t, l.CompleteLine("atlantis"))
	assert.Equal(t, before, l.Snapshot())
}

func TestMetaComplete_IffAllLinesCompleted(t *testing.T) {
	specs := testSpecs()
	// Every subset of lines, completed in index order.
	for mask := 0; mask < 1<<len(specs); mask++ {
		l := New(specs)
		var sawMeta bool
		for i, s := range specs {
			if mask&(1<<i) == 0 {
				continue
			}
			for _, ev := range l.CompleteLine(s.ID) {
				if ev.Type == EventMetaCompleted {
					sawMeta = true
				}
			}
		}
		all := mask == 1<<len(specs)-1
		assert.Equal(t, all, l.MetaComplete(), "mask %03b", mask)
		assert.Equal(t, all, sawMeta, "mask %03b", mask)
		assert.Equal(t, all, l.Snapshot().MetaComplete, "mask %03b", mask)
	}
}

func TestMetaComplete_EmptyLedger(t *testing.T) {
	l := New(nil)
	assert.False(t, l.MetaComplete())
}

func TestEarnedBadgeNames_LineOrder(t *testing.T) {
	l := New(testSpecs())
	l.CompleteLine("whispering-grove")
	l.CompleteLine("crystal-isle")

	assert.Equal(t, []string{"Crystal Keeper", "Grove Guardian"}, l.EarnedBadgeNames())
	assert.Equal(t, 2, l.BadgeCount())
}

func TestProgress_MonotonicWhileIncomplete(t *testing.T) {
	l := New(testSpecs())

	l.Progress("ember-forge", "ventsActivated", 2)
	l.Progress("ember-forge", "ventsActivated", 1)
	line, _ := l.Line("ember-forge")
	assert.Equal(t, 2, line.Progress["ventsActivated"])

	l.Progress("ember-forge", "ventsActivated", 3)
	line, _ = l.Line("ember-forge")
	assert.Equal(t, 3, line.Progress["ventsActivated"])
}

func TestProgress_UnknownLine(t *testing.T) {
	l := New(testSpecs())
	before := l.Snapshot()
	l.Progress("nowhere", "x", 1)
	assert.Equal(t, before, l.Snapshot())
}

func TestCompleteItem(t *testing.T) {
	var reasons []string
	l := New(testSpecs(), WithSaveHook(func(r string) { reasons = append(reasons, r) }))

	assert.True(t, l.CompleteItem("crystal-isle", "glowing-stone"))
	assert.False(t, l.CompleteItem("crystal-isle", "glowing-stone"))
	assert.True(t, l.HasItem("crystal-isle", "glowing-stone"))
	assert.False(t, l.HasItem("ember-forge", "glowing-stone"))
	assert.False(t, l.CompleteItem("nowhere", "glowing-stone"))

	line, _ := l.Line("crystal-isle")
	assert.Equal(t, 1, line.Progress[ItemsFoundKey])
	assert.Equal(t, []string{"glowing-stone"}, l.FoundItems("crystal-isle"))
	assert.Equal(t, []string{"item_found"}, reasons)
}

func TestFoundItems_DiscoveryOrder(t *testing.T) {
	l := New(testSpecs())
	l.CompleteItem("crystal-isle", "shell")
	l.CompleteItem("crystal-isle", "glowing-stone")
	l.CompleteItem("crystal-isle", "amethyst")

	assert.Equal(t, []string{"shell", "glowing-stone", "amethyst"}, l.FoundItems("crystal-isle"))
	assert.Nil(t, l.FoundItems("nowhere"))

	// Order survives a snapshot round trip.
	other := New(testSpecs())
	other.Restore(l.Snapshot())
	assert.Equal(t, []string{"shell", "glowing-stone", "amethyst"}, other.FoundItems("crystal-isle"))
}

func TestSnapshot_DeepCopy(t *testing.T) {
	l := New(testSpecs())
	l.CompleteItem("crystal-isle", "glowing-stone")

	snap := l.Snapshot()
	snap.Lines[0].Progress[ItemsFoundKey] = 99
	snap.Lines[0].Completed = true

	line, _ := l.Line("crystal-isle")
	assert.Equal(t, 1, line.Progress[ItemsFoundKey])
	assert.False(t, line.Completed)
}

func TestRestore_RoundTrip(t *testing.T) {
	l := New(testSpecs())
	l.CompleteItem("crystal-isle", "glowing-stone")
	l.CompleteLine("crystal-isle")
	l.Progress("ember-forge", "ventsActivated", 2)
	snap := l.Snapshot()

	l2 := New(testSpecs())
	l2.Restore(snap)
	assert.Equal(t, snap, l2.Snapshot())
}

func TestRestore_UnknownAndMissingLines(t *testing.T) {
	l := New(testSpecs())
	l.Restore(types.LedgerData{
		Lines: []types.QuestLine{
			{ID: "atlantis", Completed: true, BadgeEarned: true},
			{ID: "ember-forge", Badge: "Wrong", Completed: true, BadgeEarned: true, Progress: map[string]int{"found:ember-core": 1}},
		},
		MetaComplete: true,
	})

	assert.False(t, l.MetaComplete(), "meta is derived, not trusted")
	assert.Equal(t, []string{"Flame Tamer"}, l.EarnedBadgeNames())
	assert.True(t, l.HasItem("ember-forge", "ember-core"))
	_, ok := l.Line("atlantis")
	assert.False(t, ok)
	line, _ := l.Line("crystal-isle")
	assert.False(t, line.Completed)
}

func TestRestore_BadgeRequiresCompletion(t *testing.T) {
	l := New(testSpecs())
	l.Restore(types.LedgerData{Lines: []types.QuestLine{{ID: "crystal-isle", BadgeEarned: true}}})
	assert.Equal(t, 0, l.BadgeCount())
}

func TestReset(t *testing.T) {
	l := New(testSpecs())
	for _, s := range testSpecs() {
		l.CompleteLine(s.ID)
	}
	require.True(t, l.MetaComplete())

	l.Reset()
	assert.False(t, l.MetaComplete())
	assert.Equal(t, 0, l.BadgeCount())
	assert.Equal(t, New(testSpecs()).Snapshot(), l.Snapshot())
}

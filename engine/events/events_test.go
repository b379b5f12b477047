package events

import (
	"testing"

	"github.com/nathoo/cosmicisles/types"
)

func TestDispatch_MatchesEventType(t *testing.T) {
	b := NewBus()
	var got []string
	b.Subscribe("line_completed", func(e types.Event) { got = append(got, "first:"+e.Data["line"].(string)) })
	b.Subscribe("item_revealed", func(e types.Event) { got = append(got, "other") })
	b.Subscribe("line_completed", func(e types.Event) { got = append(got, "second") })

	b.Dispatch([]types.Event{{Type: "line_completed", Data: map[string]any{"line": "crystal-isle"}}})

	if len(got) != 2 {
		t.Fatalf("expected 2 handler calls, got %d: %v", len(got), got)
	}
	if got[0] != "first:crystal-isle" || got[1] != "second" {
		t.Errorf("handlers ran out of order: %v", got)
	}
}

func TestDispatch_Wildcard(t *testing.T) {
	b := NewBus()
	var seen []string
	b.Subscribe(Any, func(e types.Event) { seen = append(seen, e.Type) })

	b.Dispatch([]types.Event{{Type: "room_entered"}, {Type: "encounter_armed"}})
	if len(seen) != 2 || seen[0] != "room_entered" || seen[1] != "encounter_armed" {
		t.Errorf("seen = %v", seen)
	}
}

func TestDispatch_SkipsNonMatchingEventType(t *testing.T) {
	b := NewBus()
	calls := 0
	b.Subscribe("meta_completed", func(types.Event) { calls++ })

	b.Dispatch([]types.Event{{Type: "line_completed"}})
	if calls != 0 {
		t.Errorf("expected 0 calls, got %d", calls)
	}
}

func TestDispatch_SinglePass(t *testing.T) {
	b := NewBus()
	calls := 0
	// A handler that dispatches inside a handler is the caller's business;
	// the bus itself only walks the slice it was given.
	b.Subscribe("a", func(types.Event) { calls++ })

	evs := []types.Event{{Type: "a"}, {Type: "a"}}
	b.Dispatch(evs)
	if calls != 2 {
		t.Errorf("expected one call per event, got %d", calls)
	}
}

func TestDispatch_NilAndEmpty(t *testing.T) {
	var b *Bus
	b.Dispatch([]types.Event{{Type: "x"}}) // must not panic

	empty := NewBus()
	empty.Dispatch(nil)
	empty.Subscribe("x", nil)
	if empty.Count("x") != 0 {
		t.Error("nil handler should not be registered")
	}
}

func TestCount(t *testing.T) {
	b := NewBus()
	b.Subscribe("x", func(types.Event) {})
	b.Subscribe("x", func(types.Event) {})
	b.Subscribe(Any, func(types.Event) {})
	if got := b.Count("x"); got != 2 {
		t.Errorf("Count(x) = %d, want 2", got)
	}
}

// Package ledger implements the quest ledger: per-island quest lines, their
// progress counters, earned badges, and the meta-quest flag derived from them.
package ledger

import (
	"maps"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/logger"
	"github.com/nathoo/cosmicisles/types"
)

// Event types emitted by the ledger.
const (
	EventLineCompleted = "line_completed"
	EventMetaCompleted = "meta_completed"
)

// ItemsFoundKey is the progress counter incremented by CompleteItem.
const ItemsFoundKey = "itemsFound"

const foundPrefix = "found:"

// LineSpec declares one quest line.
type LineSpec struct {
	ID    string
	Badge string
}

// Ledger owns the quest lines. It is not safe for concurrent use; the
// journey controller mutates it from a single goroutine.
type Ledger struct {
	specs []LineSpec
	lines []types.QuestLine
	index map[string]int
	meta  bool

	onSave func(reason string)
	log    logrus.FieldLogger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for rejected mutations.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithSaveHook registers fn to be called after every completion.
func WithSaveHook(fn func(reason string)) Option {
	return func(l *Ledger) { l.onSave = fn }
}

// New creates a ledger with one incomplete line per definition, in order.
func New(specs []LineSpec, opts ...Option) *Ledger {
	l := &Ledger{
		specs: append([]LineSpec(nil), specs...),
		index: make(map[string]int, len(specs)),
	}
	for _, o := range opts {
		o(l)
	}
	l.log = logger.OrDiscard(l.log)
	l.Reset()
	return l
}

// SetSaveHook replaces the save hook.
func (l *Ledger) SetSaveHook(fn func(reason string)) {
	l.onSave = fn
}

// Reset returns every line to its initial state.
func (l *Ledger) Reset() {
	l.lines = make([]types.QuestLine, len(l.specs))
	clear(l.index)
	for i, s := range l.specs {
		l.lines[i] = types.QuestLine{ID: s.ID, Badge: s.Badge, Progress: map[string]int{}}
		l.index[s.ID] = i
	}
	l.meta = false
}

// CompleteLine marks a line completed and its badge earned. Completing an
// already-completed line does nothing and returns no events.
func (l *Ledger) CompleteLine(id string) []types.Event {
	i, ok := l.index[id]
	if !ok {
		l.log.WithField("line", id).Warn("complete: unknown quest line")
		return nil
	}
	line := &l.lines[i]
	if line.Completed {
		return nil
	}
	line.Completed = true
	line.BadgeEarned = true

	events := []types.Event{{
		Type: EventLineCompleted,
		Data: map[string]any{"line": id, "badge": line.Badge, "index": i},
	}}
	if !l.meta && l.allCompleted() {
		l.meta = true
		events = append(events, types.Event{
			Type: EventMetaCompleted,
			Data: map[string]any{"badges": l.EarnedBadgeNames()},
		})
	}
	l.log.WithFields(logrus.Fields{"line": id, "badge": line.Badge, "meta": l.meta}).Info("quest line completed")
	l.requestSave("line_completed")
	return events
}

// Progress sets a progress counter on a line. Unknown lines and decreases on
// an incomplete line are logged and ignored.
func (l *Ledger) Progress(id, key string, value int) {
	i, ok := l.index[id]
	if !ok {
		l.log.WithFields(logrus.Fields{"line": id, "key": key}).Warn("progress: unknown quest line")
		return
	}
	line := &l.lines[i]
	if cur := line.Progress[key]; value < cur && !line.Completed {
		l.log.WithFields(logrus.Fields{"line": id, "key": key, "from": cur, "to": value}).Warn("progress: refusing to decrease counter")
		return
	}
	line.Progress[key] = value
}

// CompleteItem records itemID as found on the line and returns true. It
// returns false if the item was already recorded or the line is unknown.
func (l *Ledger) CompleteItem(id, itemID string) bool {
	i, ok := l.index[id]
	if !ok {
		l.log.WithFields(logrus.Fields{"line": id, "item": itemID}).Warn("item: unknown quest line")
		return false
	}
	line := &l.lines[i]
	if line.Progress[foundPrefix+itemID] > 0 {
		return false
	}
	line.Progress[ItemsFoundKey]++
	line.Progress[foundPrefix+itemID] = line.Progress[ItemsFoundKey]
	l.requestSave("item_found")
	return true
}

// HasItem reports whether itemID has been recorded on the line.
func (l *Ledger) HasItem(id, itemID string) bool {
	i, ok := l.index[id]
	if !ok {
		return false
	}
	return l.lines[i].Progress[foundPrefix+itemID] > 0
}

// FoundItems returns the item ids recorded on a line in discovery order.
// Each found: counter holds the item's position in that order.
func (l *Ledger) FoundItems(id string) []string {
	i, ok := l.index[id]
	if !ok {
		return nil
	}
	progress := l.lines[i].Progress
	var items []string
	for k, v := range progress {
		if v > 0 && strings.HasPrefix(k, foundPrefix) {
			items = append(items, strings.TrimPrefix(k, foundPrefix))
		}
	}
	slices.SortFunc(items, func(a, b string) int {
		if d := progress[foundPrefix+a] - progress[foundPrefix+b]; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return items
}

// Line returns a copy of a quest line.
func (l *Ledger) Line(id string) (types.QuestLine, bool) {
	i, ok := l.index[id]
	if !ok {
		return types.QuestLine{}, false
	}
	return copyLine(l.lines[i]), true
}

// IsComplete reports whether the line has been completed.
func (l *Ledger) IsComplete(id string) bool {
	i, ok := l.index[id]
	return ok && l.lines[i].Completed
}

// MetaComplete reports whether every line is completed.
func (l *Ledger) MetaComplete() bool {
	return l.meta
}

// BadgeCount returns how many badges have been earned.
func (l *Ledger) BadgeCount() int {
	n := 0
	for _, line := range l.lines {
		if line.BadgeEarned {
			n++
		}
	}
	return n
}

// EarnedBadgeNames returns earned badges in line order.
func (l *Ledger) EarnedBadgeNames() []string {
	names := []string{}
	for _, line := range l.lines {
		if line.BadgeEarned {
			names = append(names, line.Badge)
		}
	}
	return names
}

// Snapshot returns a deep copy of the ledger.
func (l *Ledger) Snapshot() types.LedgerData {
	d := types.LedgerData{
		Lines:        make([]types.QuestLine, len(l.lines)),
		MetaComplete: l.meta,
	}
	for i, line := range l.lines {
		d.Lines[i] = copyLine(line)
	}
	return d
}

// Restore loads a snapshot. Lines the ledger does not declare are logged
// and skipped; declared lines missing from the snapshot keep their initial
// state. The meta flag is recomputed rather than trusted.
func (l *Ledger) Restore(d types.LedgerData) {
	l.Reset()
	for _, saved := range d.Lines {
		i, ok := l.index[saved.ID]
		if !ok {
			l.log.WithField("line", saved.ID).Warn("restore: skipping unknown quest line")
			continue
		}
		line := copyLine(saved)
		line.Badge = l.specs[i].Badge
		if line.BadgeEarned && !line.Completed {
			line.BadgeEarned = false
		}
		l.lines[i] = line
	}
	l.meta = l.allCompleted()
	if d.MetaComplete != l.meta {
		l.log.WithFields(logrus.Fields{"saved": d.MetaComplete, "derived": l.meta}).Warn("restore: meta flag disagreed with lines")
	}
}

func (l *Ledger) allCompleted() bool {
	if len(l.lines) == 0 {
		return false
	}
	for _, line := range l.lines {
		if !line.Completed {
			return false
		}
	}
	return true
}

func (l *Ledger) requestSave(reason string) {
	if l.onSave != nil {
		l.onSave(reason)
	}
}

func copyLine(q types.QuestLine) types.QuestLine {
	q.Progress = maps.Clone(q.Progress)
	if q.Progress == nil {
		q.Progress = map[string]int{}
	}
	return q
}

// Package tui provides a Bubble Tea terminal UI for the Cosmic Isles engine.
package tui

// History keeps the most recent commands in a fixed-size ring and walks
// them with a cursor for Up/Down recall.
type History struct {
	ring   []string
	start  int // index of the oldest entry
	count  int
	cursor int // -1 when not navigating, else 0 (oldest)..count-1 (newest)
}

// NewHistory creates a history holding at most size commands.
func NewHistory(size int) *History {
	return &History{ring: make([]string, max(size, 1)), cursor: -1}
}

// Len returns the number of stored commands.
func (h *History) Len() int { return h.count }

// at returns the i-th entry counted from the oldest.
func (h *History) at(i int) string {
	return h.ring[(h.start+i)%len(h.ring)]
}

// Push records cmd, overwriting the oldest entry when full. Repeating the
// newest entry is a no-op.
func (h *History) Push(cmd string) {
	if h.count > 0 && h.at(h.count-1) == cmd {
		return
	}
	if h.count < len(h.ring) {
		h.ring[(h.start+h.count)%len(h.ring)] = cmd
		h.count++
		return
	}
	h.ring[h.start] = cmd
	h.start = (h.start + 1) % len(h.ring)
}

// Prev steps back to an older command, stopping at the oldest.
func (h *History) Prev() (string, bool) {
	if h.count == 0 {
		return "", false
	}
	switch {
	case h.cursor == -1:
		h.cursor = h.count - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.at(h.cursor), true
}

// Next steps forward; past the newest it returns ("", false) and leaves
// navigation.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= h.count {
		h.cursor = -1
		return "", false
	}
	return h.at(h.cursor), true
}

// ResetCursor leaves navigation.
func (h *History) ResetCursor() {
	h.cursor = -1
}

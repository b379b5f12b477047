// Package rules evaluates the conditions attached to dialogue lines.
package rules

import "github.com/nathoo/cosmicisles/types"

// Facts is the read-only view of progress that conditions are checked
// against. A room instance provides it.
type Facts interface {
	// ItemFound reports whether the item has been collected on the current island.
	ItemFound(itemID string) bool
	// ItemsPending returns how many items the current room still holds.
	ItemsPending() int
	// LineComplete reports whether the quest line has been completed.
	LineComplete(lineID string) bool
	// BadgeCount returns how many badges have been earned.
	BadgeCount() int
}

// Known condition types.
const (
	CondItemFound     = "item_found"
	CondItemsPending  = "items_pending"
	CondItemsDone     = "items_done"
	CondLineComplete  = "line_complete"
	CondBadgesAtLeast = "badges_at_least"
	CondNot           = "not"
)

// ValidTypes lists every condition type EvalCondition understands.
var ValidTypes = map[string]bool{
	CondItemFound:     true,
	CondItemsPending:  true,
	CondItemsDone:     true,
	CondLineComplete:  true,
	CondBadgesAtLeast: true,
	CondNot:           true,
}

// EvalCondition evaluates a single condition.
func EvalCondition(c types.Condition, f Facts) bool {
	switch c.Type {
	case CondItemFound:
		item, _ := c.Params["item"].(string)
		return f.ItemFound(item)

	case CondItemsPending:
		return f.ItemsPending() > 0

	case CondItemsDone:
		return f.ItemsPending() == 0

	case CondLineComplete:
		line, _ := c.Params["line"].(string)
		return f.LineComplete(line)

	case CondBadgesAtLeast:
		return f.BadgeCount() >= toInt(c.Params["count"])

	case CondNot:
		if c.Inner == nil {
			return true
		}
		return !EvalCondition(*c.Inner, f)

	default:
		return false
	}
}

// EvalAllConditions returns true if all conditions pass (AND logic).
// An empty condition list is vacuously true.
func EvalAllConditions(conditions []types.Condition, f Facts) bool {
	for _, c := range conditions {
		if !EvalCondition(c, f) {
			return false
		}
	}
	return true
}

// toInt converts an any value to int, handling float64 from JSON/Lua.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}

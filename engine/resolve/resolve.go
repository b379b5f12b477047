// Package resolve maps names typed by the player to the entities visible in
// the current room.
package resolve

import (
	"fmt"
	"strings"

	"github.com/nathoo/cosmicisles/types"
)

// Ref is one activatable entity in the current room.
type Ref struct {
	ID   string
	Name string
	Kind types.ActivationKind
	Pos  types.Vec
}

// AmbiguityError indicates multiple entities matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// NotFoundError indicates no entity matched a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("you don't see %q here", e.Name)
}

// Resolve finds the single ref matching name.
func Resolve(refs []Ref, name string) (Ref, error) {
	nameLower := strings.ToLower(strings.TrimSpace(name))

	// 1. Exact entity ID match.
	for _, r := range refs {
		if strings.ToLower(r.ID) == nameLower {
			return r, nil
		}
	}

	// 2. Search by name, then by normalized ID.
	var matches []Ref
	for _, r := range refs {
		if matchesName(r, nameLower) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return Ref{}, &NotFoundError{Name: name}
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.Name)
		}
		return Ref{}, &AmbiguityError{Name: name, Candidates: ids}
	}
}

// OfKind narrows refs to the given kinds.
func OfKind(refs []Ref, kinds ...types.ActivationKind) []Ref {
	var out []Ref
	for _, r := range refs {
		for _, k := range kinds {
			if r.Kind == k {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// matchesName checks whether a ref's name matches the query (case-insensitive).
// Supports exact match, word-based partial match, and normalized ID match.
func matchesName(r Ref, nameLower string) bool {
	entityNameLower := strings.ToLower(r.Name)
	if entityNameLower != "" {
		if entityNameLower == nameLower {
			return true
		}
		// Word-based partial match: "stone" matches "glowing stone".
		for _, word := range strings.Fields(entityNameLower) {
			if word == nameLower {
				return true
			}
		}
	}
	// Separator normalization: "glowing stone" matches "glowing-stone" and "glowing_stone".
	idLower := strings.ToLower(r.ID)
	if strings.ReplaceAll(nameLower, " ", "-") == idLower || strings.ReplaceAll(nameLower, " ", "_") == idLower {
		return true
	}
	for _, word := range strings.FieldsFunc(idLower, isSeparator) {
		if word == nameLower {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return r == '-' || r == '_'
}

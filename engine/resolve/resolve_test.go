package resolve

import (
	"errors"
	"testing"

	"github.com/nathoo/cosmicisles/types"
)

func testRefs() []Ref {
	return []Ref{
		{ID: "villager", Name: "Villager", Kind: types.ActivateNPC},
		{ID: "glowing-stone", Name: "Glowing Stone", Kind: types.ActivateEncounter},
		{ID: "bushes", Name: "Rustling Bushes", Kind: types.ActivateConcealer},
		{ID: "old_door", Name: "Old Door", Kind: types.ActivateExit},
		{ID: "blue-shell", Name: "Blue Shell", Kind: types.ActivateEncounter},
	}
}

func TestResolve_ExactID(t *testing.T) {
	r, err := Resolve(testRefs(), "glowing-stone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != "glowing-stone" {
		t.Errorf("expected glowing-stone, got %q", r.ID)
	}
}

func TestResolve_ByName_CaseInsensitive(t *testing.T) {
	r, err := Resolve(testRefs(), "GLOWING stone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != "glowing-stone" {
		t.Errorf("expected glowing-stone, got %q", r.ID)
	}
}

func TestResolve_PartialNameMatch(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"bushes", "bushes"},
		{"rustling", "bushes"},
		{"door", "old_door"},
		{"stone", "glowing-stone"},
	}
	for _, tt := range tests {
		r, err := Resolve(testRefs(), tt.query)
		if err != nil {
			t.Errorf("Resolve(%q) error: %v", tt.query, err)
			continue
		}
		if r.ID != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.query, r.ID, tt.want)
		}
	}
}

func TestResolve_SeparatorNormalization(t *testing.T) {
	refs := []Ref{{ID: "ember-core", Kind: types.ActivateEncounter}, {ID: "sea_gate", Kind: types.ActivateExit}}

	r, err := Resolve(refs, "ember core")
	if err != nil || r.ID != "ember-core" {
		t.Errorf("ember core → %q, %v", r.ID, err)
	}
	r, err = Resolve(refs, "sea gate")
	if err != nil || r.ID != "sea_gate" {
		t.Errorf("sea gate → %q, %v", r.ID, err)
	}
	r, err = Resolve(refs, "gate")
	if err != nil || r.ID != "sea_gate" {
		t.Errorf("gate → %q, %v", r.ID, err)
	}
}

func TestResolve_NotFound(t *testing.T) {
	_, err := Resolve(testRefs(), "dragon")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
	if nf.Name != "dragon" {
		t.Errorf("expected name 'dragon', got %q", nf.Name)
	}
	if err.Error() != `you don't see "dragon" here` {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestResolve_Ambiguity(t *testing.T) {
	refs := append(testRefs(), Ref{ID: "red-shell", Name: "Red Shell", Kind: types.ActivateEncounter})
	_, err := Resolve(refs, "shell")
	var amb *AmbiguityError
	if !errors.As(err, &amb) {
		t.Fatalf("expected AmbiguityError, got %T: %v", err, err)
	}
	if len(amb.Candidates) != 2 {
		t.Errorf("expected 2 candidates, got %v", amb.Candidates)
	}
	if amb.Error() != "which shell? (Blue Shell, Red Shell)" {
		t.Errorf("unexpected message %q", amb.Error())
	}
}

func TestResolve_EmptyRoom(t *testing.T) {
	if _, err := Resolve(nil, "villager"); err == nil {
		t.Error("expected an error for an empty room")
	}
}

func TestOfKind(t *testing.T) {
	got := OfKind(testRefs(), types.ActivateEncounter, types.ActivateExit)
	if len(got) != 3 {
		t.Fatalf("expected 3 refs, got %d", len(got))
	}
	for _, r := range got {
		if r.Kind != types.ActivateEncounter && r.Kind != types.ActivateExit {
			t.Errorf("unexpected kind %q", r.Kind)
		}
	}
}

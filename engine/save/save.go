// Package save implements the persisted progress snapshot: its JSON
// encoding, schema check on load, the keyed-store gateway and the
// coalescing autosaver.
package save

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nathoo/cosmicisles/types"
)

// Version is the current snapshot format version.
const Version = 1

// SavedProgress is the JSON-serializable snapshot of a journey.
type SavedProgress struct {
	Version            int              `json:"version"`
	SessionID          string           `json:"sessionId,omitempty"`
	CurrentIslandIndex int              `json:"currentIslandIndex"`
	CurrentRoom        int              `json:"currentRoom"`
	PlayerName         string           `json:"playerName"`
	Avatar             types.Avatar     `json:"avatar"`
	Ledger             types.LedgerData `json:"ledger"`
	PlaySeconds        int64            `json:"playSeconds"`
	RNGSeed            int64            `json:"rngSeed"`
	RNGPosition        int64            `json:"rngPosition"`
	SavedAt            string           `json:"savedAt"`
}

// Encode serializes a snapshot to JSON bytes.
func Encode(p SavedProgress) ([]byte, error) {
	if p.Version == 0 {
		p.Version = Version
	}
	return json.MarshalIndent(p, "", "  ")
}

// Decode validates data against the snapshot schema and deserializes it.
func Decode(data []byte) (*SavedProgress, error) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing saved progress: %w", err)
	}
	if err := progressSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("saved progress failed validation: %w", err)
	}

	var p SavedProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding saved progress: %w", err)
	}
	if p.Version > Version {
		return nil, fmt.Errorf("saved progress version %d is newer than supported %d", p.Version, Version)
	}
	// Ensure maps and slices are never nil after load.
	if p.Ledger.Lines == nil {
		p.Ledger.Lines = []types.QuestLine{}
	}
	for i := range p.Ledger.Lines {
		if p.Ledger.Lines[i].Progress == nil {
			p.Ledger.Lines[i].Progress = map[string]int{}
		}
	}
	return &p, nil
}

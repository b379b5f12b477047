package server

import (
	"encoding/json"

	"github.com/nathoo/cosmicisles/engine/dialogue"
	"github.com/nathoo/cosmicisles/engine/room"
	"github.com/nathoo/cosmicisles/types"
)

// Client message types.
const (
	TypeActivate = "activate"
	TypeMove     = "move"
	TypeMoveTo   = "moveTo"
	TypeTick     = "tick"
	TypeCommand  = "command"
	TypeSnapshot = "snapshot"
	TypeSave     = "save"
	TypeMint     = "mint"
)

// Server message types.
const (
	TypeResult = "result"
	TypeState  = "state"
	TypeMinted = "minted"
	TypeError  = "error"
)

// ClientMsg is one request from the presentation.
type ClientMsg struct {
	Type string `json:"type"`

	Kind   types.ActivationKind `json:"kind,omitempty"`
	Entity string               `json:"entity,omitempty"`
	Slot   int                  `json:"slot,omitempty"`

	DX float64 `json:"dx,omitempty"`
	DY float64 `json:"dy,omitempty"`
	X  float64 `json:"x,omitempty"`
	Y  float64 `json:"y,omitempty"`
	DT float64 `json:"dt,omitempty"`

	Input string `json:"input,omitempty"`
}

// Snapshot is everything the presentation needs to draw a frame.
type Snapshot struct {
	Started  bool             `json:"started"`
	Island   int              `json:"island"`
	Player   types.Vec        `json:"player"`
	Room     *room.View       `json:"room,omitempty"`
	Dialogue dialogue.View    `json:"dialogue"`
	Ledger   types.LedgerData `json:"ledger"`
	Finale   *types.Finale    `json:"finale,omitempty"`
	PlaySecs int64            `json:"playSeconds"`
}

// ServerMsg is one reply.
type ServerMsg struct {
	Type     string              `json:"type"`
	Result   *types.Result       `json:"result,omitempty"`
	Snapshot *Snapshot           `json:"snapshot,omitempty"`
	Mint     *types.MintResponse `json:"mint,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// DecodeClientMsg parses msg and checks it names a known type.
func DecodeClientMsg(msg []byte) (ClientMsg, error) {
	var m ClientMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		return ClientMsg{}, err
	}
	switch m.Type {
	case TypeActivate, TypeMove, TypeMoveTo, TypeTick, TypeCommand, TypeSnapshot, TypeSave, TypeMint:
		return m, nil
	case "":
		return ClientMsg{}, errMissingType
	default:
		return ClientMsg{}, &unknownTypeError{m.Type}
	}
}

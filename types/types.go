// Package types defines the shared data structures for the Cosmic Isles engine.
// This package contains only type definitions. No logic, no methods.
package types

// Vec is a point or offset in room coordinates.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Intent is the parsed representation of a text command.
type Intent struct {
	Verb   string
	Object string // optional
	Target string // optional
}

// Event is emitted by a component after a state change.
type Event struct {
	Type string
	Data map[string]any
}

// Result is the output of a single input or tick.
type Result struct {
	Events []Event
	Output []string
	Hints  []string // gate-not-satisfied feedback
}

// Condition is a predicate that must be true for a dialogue line to be chosen.
type Condition struct {
	Type   string         // "item_found", "items_pending", "items_done", "line_complete", etc.
	Params map[string]any // condition-specific parameters
	Inner  *Condition     // for Not(): the negated inner condition
}

// DialogueLine is one NPC line and the player's optional reply.
type DialogueLine struct {
	Text          string
	Reply         string // empty for a single-sided line
	Requires      []Condition
	GrantsPassage bool
}

// NPCDef is the room's speaking character.
type NPCDef struct {
	ID    string
	Name  string
	Pos   Vec
	Lines []DialogueLine
}

// EncounterKind names the trigger variant of an encounter.
type EncounterKind string

const (
	EncounterHidden EncounterKind = "hidden"
	EncounterMoving EncounterKind = "moving"
	EncounterChoice EncounterKind = "choice"
)

// EncounterDef is a tagged variant; only the fields of its Kind are set.
type EncounterDef struct {
	Kind   EncounterKind
	ItemID string
	Name   string
	Pos    Vec

	// Hidden
	Trigger     string // concealer entity id
	TriggerName string

	// Moving
	Path         []Vec // closed patrol path
	Speed        float64
	HoverSeconds float64

	// Choice
	Options int
	Hint    string // feedback on a wrong slot
}

// ExitDef is the room's way out.
type ExitDef struct {
	ID              string
	Name            string
	Pos             Vec
	NeedsPermission bool
}

// RoomDef is one of the three rooms of an island.
type RoomDef struct {
	ID          string
	Name        string
	Background  string
	Description string
	NPC         NPCDef
	Encounters  []EncounterDef
	Exit        ExitDef
}

// IslandDef is one quest line's island.
type IslandDef struct {
	ID    string
	Name  string
	Badge string
	Quest string // announced on arrival, e.g. "Find the crystal"
	Order int
	Rooms []RoomDef
}

// GameDef holds game metadata from Lua.
type GameDef struct {
	Title     string
	Author    string
	Version   string
	Intro     string
	MetaQuest string
	MetaBadge string
}

// QuestLine is one island's progress record.
type QuestLine struct {
	ID          string         `json:"id"`
	Badge       string         `json:"badge"`
	Completed   bool           `json:"completed"`
	BadgeEarned bool           `json:"badgeEarned"`
	Progress    map[string]int `json:"progress"`
}

// LedgerData is the serializable form of the quest ledger.
type LedgerData struct {
	Lines        []QuestLine `json:"lines"`
	MetaComplete bool        `json:"metaComplete"`
}

// Avatar is the player's cosmetic choice.
type Avatar struct {
	BodyColor string `json:"bodyColor" yaml:"body_color"`
	Outfit    string `json:"outfit" yaml:"outfit"`
	Accessory string `json:"accessory" yaml:"accessory"`
}

// ActivationKind names what the presentation layer activated.
type ActivationKind string

const (
	ActivateNPC       ActivationKind = "npc"
	ActivateEncounter ActivationKind = "encounter"
	ActivateConcealer ActivationKind = "concealer"
	ActivateExit      ActivationKind = "exit"
)

// Activation is a tap or click on an entity.
type Activation struct {
	Kind   ActivationKind `json:"kind"`
	Entity string         `json:"entity"`
	Slot   int            `json:"slot,omitempty"` // 1-based, choice encounters only
}

// SpeedTier classifies total play time.
type SpeedTier string

const (
	SpeedFast        SpeedTier = "fast"
	SpeedNormal      SpeedTier = "normal"
	SpeedExploratory SpeedTier = "exploratory"
)

// Finale is handed to the minting workflow once every island is done.
type Finale struct {
	Badges         []string  `json:"badges"`
	ElapsedMinutes int       `json:"elapsedMinutes"`
	SpeedTier      SpeedTier `json:"speedTier"`
	AllComplete    bool      `json:"allComplete"`
}

// ProgressEvent is reported to telemetry per completed quest line.
type ProgressEvent struct {
	SessionID   string `json:"sessionId"`
	IslandIndex int    `json:"islandNum"`
	LineID      string `json:"lineId"`
	Completed   bool   `json:"completed"`
	BadgeEarned bool   `json:"badgeEarned"`
	Badge       string `json:"badge,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// MintRequest is sent to the external minting workflow.
type MintRequest struct {
	PlayerName     string    `json:"playerName"`
	Avatar         Avatar    `json:"avatar"`
	Badges         []string  `json:"badges"`
	SpeedTier      SpeedTier `json:"completionSpeed"`
	ElapsedMinutes int       `json:"completionTime"`
	AllComplete    bool      `json:"allQuestsComplete"`
}

// MintResponse is the workflow's answer, surfaced unchanged.
type MintResponse struct {
	Success        bool   `json:"success"`
	TransactionRef string `json:"transactionRef,omitempty"`
	Rarity         string `json:"rarity,omitempty"`
	Error          string `json:"error,omitempty"`
}

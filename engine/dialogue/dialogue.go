// Package dialogue implements the NPC/player turn controller for one room.
package dialogue

import (
	"github.com/sirupsen/logrus"

	"github.com/nathoo/cosmicisles/engine/rules"
	"github.com/nathoo/cosmicisles/logger"
	"github.com/nathoo/cosmicisles/types"
)

// Event types emitted by the controller.
const (
	EventNPCSpoke       = "npc_spoke"
	EventPlayerReplied  = "player_replied"
	EventDismissed      = "dialogue_dismissed"
	EventPassageGranted = "passage_granted"
)

// HintMoveCloser is returned when the player activates an NPC out of range.
const HintMoveCloser = "Move closer to talk."

// Speaker is whose bubble is currently shown.
type Speaker int

const (
	SpeakerNone Speaker = iota
	SpeakerNPC
	SpeakerPlayer
)

func (s Speaker) String() string {
	switch s {
	case SpeakerNPC:
		return "npc"
	case SpeakerPlayer:
		return "player"
	default:
		return "none"
	}
}

// Controller runs the exchange between the room's NPC and the player.
type Controller struct {
	npc        types.NPCDef
	active     Speaker
	line       *types.DialogueLine // line currently being exchanged
	last       map[Speaker]string  // last text shown by each speaker
	permission bool
	log        logrus.FieldLogger
}

// New returns an idle controller for npc.
func New(npc types.NPCDef, log logrus.FieldLogger) *Controller {
	c := &Controller{log: logger.OrDiscard(log)}
	c.Reset(npc)
	return c
}

// Reset starts a fresh exchange with npc: idle, no history, latch cleared.
func (c *Controller) Reset(npc types.NPCDef) {
	c.npc = npc
	c.active = SpeakerNone
	c.line = nil
	c.last = map[Speaker]string{}
	c.permission = false
}

// Permission reports whether the NPC has granted passage in this room.
func (c *Controller) Permission() bool {
	return c.permission
}

// Active returns the current speaker.
func (c *Controller) Active() Speaker {
	return c.active
}

// NextLine returns the first line whose conditions hold.
func (c *Controller) NextLine(f rules.Facts) (*types.DialogueLine, bool) {
	for i := range c.npc.Lines {
		if rules.EvalAllConditions(c.npc.Lines[i].Requires, f) {
			return &c.npc.Lines[i], true
		}
	}
	return nil, false
}

// Activate handles a tap on actorID. inRange is the caller's proximity
// verdict. It returns the resulting events and a hint when no turn was taken.
func (c *Controller) Activate(actorID string, inRange bool, f rules.Facts) ([]types.Event, string) {
	if c.npc.ID == "" || actorID != c.npc.ID {
		c.log.WithField("actor", actorID).Warn("dialogue: unknown actor")
		return nil, ""
	}
	if !inRange {
		return nil, HintMoveCloser
	}

	switch c.active {
	case SpeakerNone:
		line, ok := c.NextLine(f)
		if !ok {
			c.log.WithField("npc", c.npc.ID).Debug("dialogue: no line available")
			return nil, ""
		}
		if line.Text == c.last[SpeakerNPC] {
			// The bubble closed before the player answered: resume with the reply.
			if line.Reply != "" && line.Reply != c.last[SpeakerPlayer] {
				c.line = line
				return c.speakPlayer(), ""
			}
			return c.dismiss(), ""
		}
		return c.speakNPC(line), ""

	case SpeakerNPC:
		if c.line == nil || c.line.Reply == "" || c.line.Reply == c.last[SpeakerPlayer] {
			return c.dismiss(), ""
		}
		return c.speakPlayer(), ""

	default:
		return c.dismiss(), ""
	}
}

// BubbleExpired dismisses a bubble the presentation timed out.
func (c *Controller) BubbleExpired() []types.Event {
	if c.active == SpeakerNone {
		return nil
	}
	return c.dismiss()
}

func (c *Controller) speakNPC(line *types.DialogueLine) []types.Event {
	c.active = SpeakerNPC
	c.line = line
	c.last[SpeakerNPC] = line.Text

	events := []types.Event{{Type: EventNPCSpoke, Data: map[string]any{
		"npc": c.npc.ID, "name": c.npc.Name, "text": line.Text,
	}}}
	if line.GrantsPassage && line.Reply == "" {
		events = append(events, c.grant()...)
	}
	return events
}

func (c *Controller) speakPlayer() []types.Event {
	c.active = SpeakerPlayer
	c.last[SpeakerPlayer] = c.line.Reply

	events := []types.Event{{Type: EventPlayerReplied, Data: map[string]any{
		"npc": c.npc.ID, "text": c.line.Reply,
	}}}
	if c.line.GrantsPassage {
		events = append(events, c.grant()...)
	}
	return events
}

func (c *Controller) grant() []types.Event {
	if c.permission {
		return nil
	}
	c.permission = true
	c.log.WithField("npc", c.npc.ID).Info("passage granted")
	return []types.Event{{Type: EventPassageGranted, Data: map[string]any{"npc": c.npc.ID}}}
}

func (c *Controller) dismiss() []types.Event {
	c.active = SpeakerNone
	c.line = nil
	return []types.Event{{Type: EventDismissed, Data: map[string]any{"npc": c.npc.ID}}}
}

// View is the render-facing state of the exchange.
type View struct {
	NPCID      string
	NPCName    string
	Speaker    Speaker
	Text       string // text of the visible bubble
	Permission bool
}

// Snapshot returns the current exchange state.
func (c *Controller) Snapshot() View {
	v := View{NPCID: c.npc.ID, NPCName: c.npc.Name, Speaker: c.active, Permission: c.permission}
	switch c.active {
	case SpeakerNPC:
		v.Text = c.line.Text
	case SpeakerPlayer:
		v.Text = c.line.Reply
	}
	return v
}

// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the Cosmic Isles engine.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/nathoo/cosmicisles/engine"
	"github.com/nathoo/cosmicisles/engine/state"
	"github.com/nathoo/cosmicisles/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	Defs      *state.Defs
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine, defs *state.Defs) *CLI {
	return &CLI{
		Engine: eng,
		Defs:   defs,
		In:     os.Stdin,
		Out:    os.Stdout,
	}
}

// Run prints the opening result (from Start or Load), then loops:
// prompt → input → dispatch → output.
func (c *CLI) Run(ctx context.Context, opening types.Result) {
	c.printResult(opening)

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, input) {
				return // /quit
			}
			continue
		}

		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result := c.Engine.Step(input)
		c.printResult(result)

		if c.Trace {
			c.printTrace(result)
		}
	}
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case "/quit", "/exit":
		if err := c.Engine.Save(ctx); err != nil && !errors.Is(err, engine.ErrNoStore) {
			c.printSystem(fmt.Sprintf("Save failed: %v", err))
		}
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(ctx)

	case "/load":
		c.cmdLoad(ctx)

	case "/new":
		c.printResult(c.Engine.NewGame(ctx))

	case "/mint":
		c.cmdMint(ctx)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdSave(ctx context.Context) {
	if err := c.Engine.Save(ctx); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem("Progress saved.")
}

func (c *CLI) cmdLoad(ctx context.Context) {
	result, err := c.Engine.Load(ctx)
	switch {
	case errors.Is(err, engine.ErrNoSave):
		c.printSystem("No saved progress.")
		return
	case err != nil:
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.printResult(result)
}

func (c *CLI) cmdMint(ctx context.Context) {
	c.printSystem("Minting your badge...")
	select {
	case resp := <-c.Engine.RequestMint(ctx):
		c.printLines(MintLines(resp))
	case <-ctx.Done():
		c.printSystem("Minting cancelled.")
	}
}

// MintLines formats a minting response for display.
func MintLines(resp types.MintResponse) []string {
	if !resp.Success {
		return []string{fmt.Sprintf("Minting failed: %s", resp.Error), "Type /mint to try again."}
	}
	lines := []string{"Badge minted!"}
	if resp.Rarity != "" {
		lines = append(lines, "Rarity: "+resp.Rarity)
	}
	if resp.TransactionRef != "" {
		lines = append(lines, "Transaction: "+resp.TransactionRef)
	}
	return lines
}

func (c *CLI) cmdHelp() {
	c.printLines(HelpLines())
}

// HelpLines lists the meta and game commands.
func HelpLines() []string {
	return []string{
		"System:",
		"  /save   Save progress now",
		"  /load   Resume saved progress",
		"  /new    Start a new journey (clears saved progress)",
		"  /mint   Mint your badge once the journey is complete",
		"  /quit   Save and exit",
		"  /help   Show this help",
		"  /state  Debug: dump current state",
		"  /trace  Toggle debug trace output",
		"",
		"Game commands:",
		"  look (l)                Describe the room",
		"  examine <thing> (x)     Look closely at something",
		"  go <dir>                Walk (or just type n/s/e/w)",
		"  approach <thing>        Walk up to someone or something",
		"  talk <npc>              Talk, or advance the conversation",
		"  use/search <thing>      Search a hiding place",
		"  take <item>             Collect an item",
		"  choose <n>              Pick one of the choices",
		"  exit                    Leave through the room's exit",
		"  wait [seconds] (z)      Let time pass",
		"  inventory (i)           List the items found on this island",
		"  again (g)               Repeat your last command",
	}
}

func (c *CLI) cmdState() {
	c.printLines(StateLines(c.Engine))
}

// StateLines summarises the journey for the /state command.
func StateLines(eng *engine.Engine) []string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Session: %s", eng.Session.ID))
	lines = append(lines, fmt.Sprintf("Island: %d", eng.IslandIndex()+1))
	if v, ok := eng.CurrentRoomSnapshot(); ok {
		lines = append(lines, fmt.Sprintf("Room: %s (%d/3), %d item(s) left", v.RoomID, v.Index+1, v.Remaining))
	}
	p := eng.Session.Player
	lines = append(lines, fmt.Sprintf("Position: (%.0f, %.0f)", p.X, p.Y))
	lines = append(lines, fmt.Sprintf("Play time: %ds", eng.PlaySeconds()))

	ld := eng.LedgerSnapshot()
	for _, l := range ld.Lines {
		status := "open"
		if l.Completed {
			status = "complete"
		}
		var counters []string
		for k, v := range l.Progress {
			counters = append(counters, fmt.Sprintf("%s=%d", k, v))
		}
		sort.Strings(counters)
		lines = append(lines, fmt.Sprintf("  %s [%s] %s", l.ID, status, strings.Join(counters, " ")))
	}
	if ld.MetaComplete {
		lines = append(lines, "Meta quest complete.")
	}
	return lines
}

func (c *CLI) printTrace(result types.Result) {
	if len(result.Events) > 0 {
		c.printSystem(fmt.Sprintf("[trace] Events: %d", len(result.Events)))
		for _, e := range result.Events {
			c.printSystem(fmt.Sprintf("[trace]   %s %v", e.Type, e.Data))
		}
	}
	for _, h := range result.Hints {
		c.printSystem(fmt.Sprintf("[trace] Hint: %s", h))
	}
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
	for _, h := range result.Hints {
		if !slices.Contains(result.Output, h) {
			c.printLine(h)
		}
	}
}

func (c *CLI) printLines(lines []string) {
	for _, l := range lines {
		c.printSystem(l)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}

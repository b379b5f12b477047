package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/nathoo/cosmicisles/cli"
	"github.com/nathoo/cosmicisles/engine"
	"github.com/nathoo/cosmicisles/engine/state"
	"github.com/nathoo/cosmicisles/types"
)

// tickInterval is how often the engine clock advances while the TUI is idle.
const tickInterval = 250 * time.Millisecond

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for system messages
}

// Model is the Bubble Tea model for the Cosmic Isles TUI.
type Model struct {
	ctx     context.Context
	engine  *engine.Engine
	defs    *state.Defs
	opening types.Result

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated narrative lines (unstyled, for re-wrapping)

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
	quitErr  error // final save failure, returned by Run
	minting  bool
	lastCmd  string
	lastTx   string // transaction reference of the last successful mint
	lastTick time.Time
	copyFn   func(string) error
}

// gameOutputMsg carries output from the engine into the Update loop.
type gameOutputMsg struct {
	input    string   // echoed player input (empty for intro)
	lines    []string // output lines
	hints    []string // gate feedback, styled apart from narrative
	isSystem bool     // true for meta-command output
}

type tickMsg time.Time

type mintMsg types.MintResponse

// New creates a TUI model wired to the given engine. opening is the result
// of Start or Load, shown first.
func New(ctx context.Context, eng *engine.Engine, defs *state.Defs, opening types.Result) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		ctx:     ctx,
		engine:  eng,
		defs:    defs,
		opening: opening,
		input:   ti,
		history: NewHistory(100),
		copyFn:  clipboard.WriteAll,
	}
}

// Run starts the Bubble Tea program.
func Run(ctx context.Context, eng *engine.Engine, defs *state.Defs, opening types.Result) error {
	m := New(ctx, eng, defs, opening)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	final, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return fm.quitErr
	}
	return nil
}

// Init returns the initial commands: cursor blink, opening text, clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) initialOutput() tea.Cmd {
	opening := m.opening
	g := m.defs.Game
	return func() tea.Msg {
		msg := resultMsg("", opening)
		msg.lines = append([]string{g.Title + " v" + g.Version + " by " + g.Author, ""}, msg.lines...)
		return msg
	}
}

// Update handles messages (key presses, window resize, game output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case mintMsg:
		m.minting = false
		resp := types.MintResponse(msg)
		if resp.Success {
			m.lastTx = resp.TransactionRef
		}
		m = m.appendOutput(gameOutputMsg{lines: cli.MintLines(resp), isSystem: true})
		return m, nil

	case gameOutputMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// resize fits the viewport between the top of the screen and the status
// bar + input line.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	vpHeight := max(height-2, 1)
	if m.ready {
		m.viewport.Width, m.viewport.Height = width, vpHeight
	} else {
		m.viewport = viewport.New(width, vpHeight)
		m.viewport.KeyMap = viewportKeyMap()
		m.ready = true
	}
	m.refreshViewport()
}

// handleKey consumes navigation and submit keys. Unhandled keys fall
// through to the text input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		m.saveOnQuit()
		return m, tea.Quit, true
	case "enter":
		next, cmd := m.handleEnter()
		return next, cmd, true
	case "up":
		if prev, ok := m.history.Prev(); ok {
			m.input.SetValue(prev)
			m.input.CursorEnd()
		}
		return m, nil, true
	case "down":
		next, ok := m.history.Next()
		if !ok {
			m.history.ResetCursor()
		}
		m.input.SetValue(next)
		m.input.CursorEnd()
		return m, nil, true
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd, true
	}
	return m, nil, false
}

// handleTick advances the engine clock by the time since the previous tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	dt := 0.0
	if !m.lastTick.IsZero() {
		dt = now.Sub(m.lastTick).Seconds()
	}
	m.lastTick = now

	result := m.engine.Tick(dt)
	if len(result.Output) > 0 || len(result.Hints) > 0 {
		msg := resultMsg("", result)
		if m.trace {
			msg.lines = append(msg.lines, formatTrace(result)...)
		}
		m = m.appendOutput(msg)
	}
	return m, tick()
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(gameOutputMsg{
				input: input, lines: []string{"Nothing to repeat."}, isSystem: true,
			})
			return m, nil
		}
		input = m.lastCmd
	} else {
		m.lastCmd = input
	}

	if strings.HasPrefix(input, "/") {
		output, cmd := m.handleMeta(input)
		m = m.appendOutput(gameOutputMsg{input: input, lines: output, isSystem: true})
		if m.quitting {
			return m, tea.Quit
		}
		return m, cmd
	}

	result := m.engine.Step(input)
	msg := resultMsg(input, result)
	if m.trace {
		msg.lines = append(msg.lines, formatTrace(result)...)
	}
	m = m.appendOutput(msg)
	return m, nil
}

// resultMsg splits a result into narrative lines and hints not already
// part of the narrative.
func resultMsg(input string, result types.Result) gameOutputMsg {
	msg := gameOutputMsg{input: input, lines: result.Output}
	for _, h := range result.Hints {
		if !slices.Contains(result.Output, h) {
			msg.hints = append(msg.hints, h)
		}
	}
	return msg
}

// emit delivers msg through the Update loop.
func emit(msg gameOutputMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// appendOutput adds lines to the narrative and refreshes the viewport.
func (m Model) appendOutput(msg gameOutputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{
			text: "> " + msg.input, isInput: true,
		})
	}

	for _, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}
	for _, h := range msg.hints {
		m.rawLines = append(m.rawLines, rawLine{text: h, kind: kindHint})
	}

	// Blank line separator between turns.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := max(m.width, 10)

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindHeading:
		return styleHeading.Render(line)
	case kindYouSee:
		return styledYouSee(line)
	case kindExits:
		return styleExits.Render(line)
	case kindDialogue:
		return styleDialogue.Render(line)
	case kindQuest:
		return styleQuest.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindHint:
		return styleHint.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleRoomDesc.Render(line)
	}
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries. Preserves existing newlines within the text.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return wordwrap.String(text, width)
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// saveOnQuit makes the final save. A missing store is not a failure.
func (m *Model) saveOnQuit() error {
	err := m.engine.Save(m.ctx)
	if err != nil && !errors.Is(err, engine.ErrNoStore) {
		m.quitErr = fmt.Errorf("saving on quit: %w", err)
		return err
	}
	return nil
}

// handleMeta dispatches meta-commands. It returns output lines and an
// optional follow-up command; /quit sets m.quitting.
func (m *Model) handleMeta(input string) ([]string, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case "/quit", "/exit":
		m.quitting = true
		if err := m.saveOnQuit(); err != nil {
			return []string{fmt.Sprintf("Save failed: %v", err), "Goodbye."}, nil
		}
		return []string{"Goodbye."}, nil

	case "/save":
		if err := m.engine.Save(m.ctx); err != nil {
			return []string{fmt.Sprintf("Save failed: %v", err)}, nil
		}
		return []string{"Progress saved."}, nil

	case "/load":
		result, err := m.engine.Load(m.ctx)
		switch {
		case errors.Is(err, engine.ErrNoSave):
			return []string{"No saved progress."}, nil
		case err != nil:
			return []string{fmt.Sprintf("Load failed: %v", err)}, nil
		}
		return []string{"Progress loaded."}, emit(resultMsg("", result))

	case "/new":
		m.lastTx = ""
		return []string{"Starting a new journey."}, emit(resultMsg("", m.engine.NewGame(m.ctx)))

	case "/mint":
		if m.minting {
			return []string{"Minting already in progress."}, nil
		}
		m.minting = true
		ch := m.engine.RequestMint(m.ctx)
		return []string{"Minting your badge..."}, func() tea.Msg { return mintMsg(<-ch) }

	case "/copy":
		if m.lastTx == "" {
			return []string{"Nothing to copy yet. Mint your badge first."}, nil
		}
		if err := m.copyFn(m.lastTx); err != nil {
			return []string{fmt.Sprintf("Copy failed: %v", err)}, nil
		}
		return []string{"Transaction reference copied to the clipboard."}, nil

	case "/help":
		return m.cmdHelp(), nil

	case "/state":
		return cli.StateLines(m.engine), nil

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, nil
		}
		return []string{"Trace output disabled."}, nil

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, nil
	}
}

func (m *Model) cmdHelp() []string {
	lines := cli.HelpLines()
	lines = slices.Insert(lines, 5, "  /copy   Copy the minted transaction reference")
	return append(lines, "", "Navigation: PgUp/PgDn to scroll, Up/Down for command history")
}

func formatTrace(result types.Result) []string {
	var lines []string
	if len(result.Events) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] Events: %d", len(result.Events)))
		for _, e := range result.Events {
			lines = append(lines, fmt.Sprintf("[trace]   %s %v", e.Type, e.Data))
		}
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}

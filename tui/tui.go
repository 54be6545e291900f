package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/buildkite/shellwords"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/nathoo/scriptcore/engine"
	"github.com/nathoo/scriptcore/engine/effects"
	"github.com/nathoo/scriptcore/engine/recorder"
	"github.com/nathoo/scriptcore/engine/resolve"
	"github.com/nathoo/scriptcore/engine/save"
	"github.com/nathoo/scriptcore/engine/state"
	"github.com/nathoo/scriptcore/types"
)

// DefaultInterval is the real time between two runtime ticks.
const DefaultInterval = time.Second / 30

// Options configures a Model.
type Options struct {
	SaveDir   string
	RecordDir string
	Interval  time.Duration
}

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for system messages
}

// traceSink collects bus events between ticks. It is shared by every copy
// of the Model.
type traceSink struct {
	lines []string
	stop  func()
}

// Model is the Bubble Tea model for the scriptcore TUI.
type Model struct {
	engine *engine.Engine
	defs   *state.Defs

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated output lines (unstyled, for re-wrapping)

	width      int
	height     int
	ready      bool
	started    bool
	quitting   bool
	lastCmd    string
	saveDir    string
	recordDir  string
	recordName string
	interval   time.Duration
	menu       string // dialog menu currently on screen
	scene      string // scene last described
	trace      *traceSink
	bot        *engine.Bot
}

// gameOutputMsg carries output into the Update loop.
type gameOutputMsg struct {
	input    string   // echoed player input (empty for intro)
	lines    []string // output lines
	isSystem bool     // true for meta-command output
}

// startMsg enters the start scene. It is handled in Update so the engine is
// only ever touched from the Bubble Tea loop.
type startMsg struct{}

// tickMsg advances the runtime by one interval.
type tickMsg time.Time

// New creates a TUI model wired to the given engine.
func New(eng *engine.Engine, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	home, _ := os.UserHomeDir()
	if opts.SaveDir == "" {
		opts.SaveDir = filepath.Join(home, ".scriptcore", "saves")
	}
	if opts.RecordDir == "" {
		opts.RecordDir = filepath.Join(home, ".scriptcore", "records")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	return Model{
		engine:    eng,
		defs:      eng.Defs,
		input:     ti,
		history:   NewHistory(100),
		saveDir:   opts.SaveDir,
		recordDir: opts.RecordDir,
		interval:  opts.Interval,
		trace:     &traceSink{},
	}
}

// Run starts the Bubble Tea program.
func Run(eng *engine.Engine, opts Options) error {
	m := New(eng, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	if m.trace.stop != nil {
		m.trace.stop()
	}
	return err
}

// Init shows the title and schedules the start of the game.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return startMsg{} })
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages (key presses, window resize, ticks).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case startMsg:
		m = m.start()
		return m, m.tick()

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		m = m.step()
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "esc":
			if host, ok := m.engine.Host().(*effects.Sim); ok {
				host.SkipAll()
			}
			return m, nil

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case gameOutputMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// start prints the title and intro, then enters the start scene.
func (m Model) start() Model {
	if m.started {
		return m
	}
	m.started = true

	g := m.defs.Game
	lines := []string{g.Title}
	if g.Version != "" {
		lines[0] += " v" + g.Version
	}
	if g.Author != "" {
		lines[0] += " by " + g.Author
	}
	lines = append(lines, "")
	if g.Intro != "" {
		lines = append(lines, g.Intro, "")
	}

	if err := m.engine.Start(); err != nil {
		return m.appendOutput(gameOutputMsg{lines: []string{fmt.Sprintf("Start failed: %v", err)}, isSystem: true})
	}
	lines = append(lines, m.engine.Describe()...)
	m.scene = m.engine.State.Scene
	return m.appendOutput(gameOutputMsg{lines: lines})
}

// step ticks the runtime once and shows whatever it produced. A scene
// change made by the tick or by a command since the last step is described.
func (m Model) step() Model {
	m.engine.Tick(m.interval.Seconds())
	if m.bot != nil && m.engine.Bot() == nil {
		m.bot = nil
	}

	lines := m.drain()
	if m.engine.State.Scene != m.scene {
		m.scene = m.engine.State.Scene
		lines = append(lines, m.engine.Describe()...)
	}
	if menu := m.dialogMenu(); len(menu) > 0 {
		lines = append(lines, menu...)
	}
	if len(lines) == 0 {
		return m
	}
	return m.appendOutput(gameOutputMsg{lines: lines})
}

// drain collects host output and trace lines since the last call.
func (m Model) drain() []string {
	var lines []string
	if host, ok := m.engine.Host().(interface{ Output() []effects.Line }); ok {
		for _, l := range host.Output() {
			lines = append(lines, l.String())
		}
	}
	lines = append(lines, m.trace.lines...)
	m.trace.lines = nil
	return lines
}

// dialogMenu returns the visible options of the active dialog once the
// runtime is idle, and only when they differ from what is on screen.
func (m *Model) dialogMenu() []string {
	d, ok := m.engine.Dialog(m.engine.CurrentDialog())
	if !ok {
		m.menu = ""
		return nil
	}
	if m.engine.Busy() {
		return nil
	}

	visible := d.Visible()
	id := fmt.Sprintf("%s/%s/%v", d.ID, d.CurrentPath(), visible)
	if id == m.menu {
		return nil
	}
	m.menu = id

	lines := make([]string, 0, len(visible))
	for i, oid := range visible {
		opt, _ := d.Option(oid)
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, opt.Text))
	}
	return lines
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

	// Handle "again" / "g".
	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(gameOutputMsg{
				input: input, lines: []string{"Nothing to repeat."}, isSystem: true,
			})
			return m, nil
		}
		input = m.lastCmd
	} else if !strings.HasPrefix(input, "/") {
		m.lastCmd = input
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m = m.appendOutput(gameOutputMsg{input: input, lines: output, isSystem: true})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	if m.engine.InCutMode() {
		m = m.appendOutput(gameOutputMsg{
			input: input, lines: []string{"The scene is playing. Press Esc to skip ahead."}, isSystem: true,
		})
		return m, nil
	}

	m = m.appendOutput(gameOutputMsg{input: input, lines: m.dispatch(input)})
	return m, nil
}

// dispatch runs a game command. Its effects show up on later ticks, so it
// only returns immediate feedback.
func (m *Model) dispatch(input string) []string {
	// A bare number picks a dialog option.
	if n, err := strconv.Atoi(input); err == nil && m.engine.CurrentDialog() != "" {
		return m.selectOption(n)
	}

	parts, err := shellwords.SplitPosix(input)
	if err != nil {
		return []string{"[" + err.Error() + "]"}
	}
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "run":
		if len(parts) < 3 {
			return []string{"[usage: run <object> <verb> [target]]"}
		}
		if m.engine.RunVerb(parts[1], parts[2], arg(parts, 3)) == nil {
			return []string{fmt.Sprintf("[No verb %s on %s.]", parts[2], parts[1])}
		}
	case "cancel":
		if len(parts) < 3 {
			return []string{"[usage: cancel <object> <verb> [target]]"}
		}
		if !m.engine.CancelVerb(parts[1], parts[2], arg(parts, 3)) {
			return []string{"[Nothing to cancel.]"}
		}
		return []string{"[Cancelled.]"}
	case "option":
		n, err := strconv.Atoi(arg(parts, 1))
		if err != nil {
			return []string{"[usage: option <n>]"}
		}
		return m.selectOption(n)
	case "goto":
		x, errX := strconv.ParseFloat(arg(parts, 1), 64)
		y, errY := strconv.ParseFloat(arg(parts, 2), 64)
		if errX != nil || errY != nil {
			return []string{"[usage: goto <x> <y>]"}
		}
		m.engine.Goto(types.Vec2{X: x, Y: y})
	case "inventory", "inv", "i":
		return []string{m.engine.DescribeInventory()}
	default:
		if _, err := m.engine.Command(input); err != nil {
			var nf *resolve.NotFoundError
			if errors.As(err, &nf) {
				return []string{"You can't do that."}
			}
			return []string{capitalize(err.Error())}
		}
	}
	return nil
}

// selectOption picks the n-th visible option of the menu on screen,
// counting from 1.
func (m *Model) selectOption(n int) []string {
	if err := m.engine.SelectOption(m.engine.CurrentDialog(), n-1); err != nil {
		return []string{"[" + err.Error() + "]"}
	}
	m.menu = ""
	return nil
}

// appendOutput adds lines to the transcript and refreshes the viewport.
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

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

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
	case kindYouSee:
		return styledYouSee(line)
	case kindSpeech:
		return styledSpeech(line)
	case kindEffect:
		return styleEffect.Render(line)
	case kindSceneChange:
		return styleSceneChange.Render(line)
	case kindOption:
		return styleOption.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleSceneDesc.Render(line)
	}
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0

	for i, word := range strings.Fields(text) {
		wLen := len(word)

		switch {
		case i == 0:
			lineLen = wLen
		case lineLen+1+wLen > width:
			result.WriteString("\n")
			lineLen = wLen
		default:
			result.WriteString(" ")
			lineLen += 1 + wLen
		}
		result.WriteString(word)
	}

	return result.String()
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

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts, err := shellwords.SplitPosix(input)
	if err != nil || len(parts) == 0 {
		return []string{fmt.Sprintf("Bad command: %v", err)}, false
	}

	switch parts[0] {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/save":
		return m.cmdSave(arg(parts, 1)), false

	case "/load":
		return m.cmdLoad(arg(parts, 1)), false

	case "/help":
		return m.cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	case "/trace":
		return m.cmdTrace(), false

	case "/skip":
		host, ok := m.engine.Host().(*effects.Sim)
		if !ok {
			return []string{"This host cannot skip."}, false
		}
		host.SkipAll()
		return []string{"Skipped running effects."}, false

	case "/record":
		return m.cmdRecord(arg(parts, 1), arg(parts, 2)), false

	case "/replay":
		return m.cmdReplay(arg(parts, 1)), false

	case "/bot":
		return m.cmdBot(arg(parts, 1)), false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", parts[0])}, false
	}
}

func (m *Model) cmdSave(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	data, err := m.engine.Save()
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	if _, err := save.WriteFile(m.saveDir, name, data); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}

	return []string{fmt.Sprintf("Game saved to %s.", name)}
}

func (m *Model) cmdLoad(name string) []string {
	if name == "" {
		name = "quicksave"
	}

	data, err := save.ReadFile(m.saveDir, name)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	if err := m.engine.LoadSave(data); err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	m.menu = ""
	m.scene = m.engine.State.Scene

	output := []string{fmt.Sprintf("Game loaded from %s (tick %d).", name, m.engine.State.Tick)}
	return append(output, m.engine.Describe()...)
}

func (m *Model) cmdHelp() []string {
	return []string{
		"System:",
		"  /save [name]        Save game (default: quicksave)",
		"  /load [name]        Load game (default: quicksave)",
		"  /quit               Exit game",
		"  /help               Show this help",
		"  /state              Debug: dump current state",
		"  /trace              Toggle runtime event trace",
		"  /skip               Finish running speech and animations (or press Esc)",
		"  /record start|stop  Record calls to a session file",
		"  /replay <name>      Replay a recorded session",
		"  /bot                Toggle the tester bot",
		"",
		"Game commands:",
		"  look at <thing>            Run lookat on something",
		"  pick up / talk to / open / close / push / pull <thing>",
		"  use <thing> with <thing>   Run use with a target",
		"  drop <thing>               Put down a carried thing",
		"  inventory (i)              List what you carry",
		"  run <obj> <verb> [target]  Run any verb directly",
		"  cancel <obj> <verb>        Cancel a running verb",
		"  <n> or option <n>          Pick a dialog option",
		"  goto <x> <y>               Walk the player",
		"  again (g)                  Repeat your last command",
		"",
		"Navigation: PgUp/PgDn to scroll, Up/Down for command history",
	}
}

func (m *Model) cmdState() []string {
	s := m.engine.State
	output := []string{
		fmt.Sprintf("Tick: %d (%.1fs)", s.Tick, s.Clock),
		fmt.Sprintf("Scene: %s", s.Scene),
		fmt.Sprintf("Cut mode: %v", s.CutMode),
	}
	if s.Dialog != "" {
		output = append(output, fmt.Sprintf("Dialog: %s", s.Dialog))
	}
	if len(s.Inventory) > 0 {
		output = append(output, "Inventory: "+strings.Join(s.Inventory, ", "))
	}
	if len(s.Flags) > 0 {
		var flags []string
		for f, v := range s.Flags {
			flags = append(flags, fmt.Sprintf("%s=%v", f, v))
		}
		sort.Strings(flags)
		output = append(output, "Flags: "+strings.Join(flags, " "))
	}
	for _, id := range state.ObjectsInScene(s, m.defs, s.Scene) {
		pos := state.ObjectPos(s, m.defs, id)
		output = append(output, fmt.Sprintf("  %s state=%q pos=%g,%g", id, state.ObjectState(s, m.defs, id), pos.X, pos.Y))
	}
	return output
}

func (m *Model) cmdTrace() []string {
	if m.trace.stop != nil {
		m.trace.stop()
		m.trace.stop = nil
		return []string{"Trace output disabled."}
	}
	sink := m.trace
	sink.stop = m.engine.Bus().Subscribe(func(ev types.Event) {
		sink.lines = append(sink.lines, formatTrace(ev))
	})
	return []string{"Trace output enabled."}
}

func (m *Model) cmdRecord(sub, name string) []string {
	rec := m.engine.Recorder()
	switch sub {
	case "start":
		if name == "" {
			name = "session"
		}
		m.recordName = name
		rec.StartRecording(m.defs.Game.Title)
		return []string{fmt.Sprintf("Recording %s.", name)}
	case "stop":
		if !rec.Recording() {
			return []string{"Not recording."}
		}
		s := rec.StopRecording()
		path := filepath.Join(m.recordDir, m.recordName+".json")
		if err := recorder.Save(path, s); err != nil {
			return []string{fmt.Sprintf("Record failed: %v", err)}
		}
		return []string{fmt.Sprintf("Recorded %d calls to %s.", len(s.Entries), m.recordName)}
	default:
		return []string{"usage: /record start [name] | stop"}
	}
}

func (m *Model) cmdReplay(name string) []string {
	if name == "" {
		return []string{"usage: /replay <name>"}
	}
	s, err := recorder.Load(filepath.Join(m.recordDir, name+".json"))
	if err != nil {
		return []string{fmt.Sprintf("Replay failed: %v", err)}
	}
	m.engine.Recorder().Play(s)
	return []string{fmt.Sprintf("Replaying %d calls.", len(s.Entries))}
}

func (m *Model) cmdBot(exclude string) []string {
	if m.bot != nil {
		moves := m.bot.Moves()
		m.engine.StopBot()
		m.bot = nil
		return []string{fmt.Sprintf("Bot stopped after %d moves.", moves)}
	}
	b := engine.NewBot(m.engine.Logger())
	b.SetExclude(exclude)
	m.engine.StartBot(b)
	m.bot = b
	return []string{"Bot started. Type /bot again to stop it."}
}

func formatTrace(ev types.Event) string {
	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("[trace] ")
	b.WriteString(ev.Type)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, ev.Data[k])
	}
	return b.String()
}

func arg(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
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

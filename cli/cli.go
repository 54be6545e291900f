// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the scriptcore runtime.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/buildkite/shellwords"
	"github.com/pkg/errors"
	"github.com/rodaine/table"

	"github.com/nathoo/scriptcore/engine"
	"github.com/nathoo/scriptcore/engine/dialogue"
	"github.com/nathoo/scriptcore/engine/effects"
	"github.com/nathoo/scriptcore/engine/recorder"
	"github.com/nathoo/scriptcore/engine/resolve"
	"github.com/nathoo/scriptcore/engine/save"
	"github.com/nathoo/scriptcore/engine/state"
	"github.com/nathoo/scriptcore/types"
)

// Pump defaults.
const (
	DefaultStep     = 0.1
	DefaultMaxTicks = 600
	DefaultBotTicks = 300
)

// outputter is a host whose output can be printed.
type outputter interface {
	Output() []effects.Line
}

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	Defs      *state.Defs
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	RecordDir string
	Step      float64 // seconds advanced per tick
	MaxTicks  int     // ticks pumped per command before giving up on idle
	EchoInput bool    // echo each input line after the prompt (for script playback)

	lastCmd    string
	recordName string
	untrace    func()
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".scriptcore")
	return &CLI{
		Engine:    eng,
		Defs:      eng.Defs,
		In:        os.Stdin,
		Out:       os.Stdout,
		SaveDir:   filepath.Join(base, "saves"),
		RecordDir: filepath.Join(base, "records"),
		Step:      DefaultStep,
		MaxTicks:  DefaultMaxTicks,
	}
}

// Run starts the game loop. It shows the intro, enters the start scene,
// then loops: prompt, input, dispatch, pump, output.
func (c *CLI) Run() {
	if err := c.Start(); err != nil {
		c.printSystem(fmt.Sprintf("Start failed: %v", err))
		return
	}

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}
		if c.Exec(input) {
			break
		}
	}
	if c.untrace != nil {
		c.untrace()
	}
}

// Start shows the intro, enters the start scene and describes it.
func (c *CLI) Start() error {
	if c.Defs.Game.Intro != "" {
		c.printLine(c.Defs.Game.Intro)
		c.printLine("")
	}
	if err := c.Engine.Start(); err != nil {
		return errors.Wrap(err, "starting game")
	}
	c.pump(c.MaxTicks)
	c.describe()
	return nil
}

// Exec runs one line of input and pumps the engine until it settles.
// It returns true when the player asked to quit.
func (c *CLI) Exec(input string) bool {
	if strings.HasPrefix(input, "/") {
		return c.handleMeta(input)
	}

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if c.lastCmd == "" {
			c.printLine("Nothing to repeat.")
			return false
		}
		input = c.lastCmd
	} else {
		c.lastCmd = input
	}

	scene := c.Engine.State.Scene
	c.dispatch(input)
	c.pump(c.MaxTicks)
	if c.Engine.State.Scene != scene {
		c.describe()
	}
	c.showDialog()
	return false
}

func (c *CLI) dispatch(input string) {
	// A bare number picks a dialog option.
	if n, err := strconv.Atoi(input); err == nil && c.Engine.CurrentDialog() != "" {
		c.selectOption(n)
		return
	}

	parts, err := shellwords.SplitPosix(input)
	if err != nil {
		c.printSystem(err.Error())
		return
	}
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "run":
		if len(parts) < 3 {
			c.printSystem("usage: run <object> <verb> [target]")
			return
		}
		if c.Engine.RunVerb(parts[1], parts[2], arg(parts, 3)) == nil {
			c.printSystem(fmt.Sprintf("No verb %s on %s.", parts[2], parts[1]))
		}
	case "cancel":
		if len(parts) < 3 {
			c.printSystem("usage: cancel <object> <verb> [target]")
			return
		}
		if c.Engine.CancelVerb(parts[1], parts[2], arg(parts, 3)) {
			c.printSystem("Cancelled.")
		} else {
			c.printSystem("Nothing to cancel.")
		}
	case "option":
		n, err := strconv.Atoi(arg(parts, 1))
		if err != nil {
			c.printSystem("usage: option <n>")
			return
		}
		c.selectOption(n)
	case "goto":
		x, errX := strconv.ParseFloat(arg(parts, 1), 64)
		y, errY := strconv.ParseFloat(arg(parts, 2), 64)
		if errX != nil || errY != nil {
			c.printSystem("usage: goto <x> <y>")
			return
		}
		c.Engine.Goto(types.Vec2{X: x, Y: y})
	case "inventory", "inv", "i":
		c.printLine(c.Engine.DescribeInventory())
	case "tick":
		n := 1
		if len(parts) > 1 {
			if n, err = strconv.Atoi(parts[1]); err != nil || n < 1 {
				c.printSystem("usage: tick [n]")
				return
			}
		}
		for i := 0; i < n; i++ {
			c.Engine.Tick(c.Step)
		}
		c.flush()
	default:
		if _, err := c.Engine.Command(input); err != nil {
			c.printCommandError(err)
		}
	}
}

func (c *CLI) printCommandError(err error) {
	var nf *resolve.NotFoundError
	if errors.As(err, &nf) {
		c.printLine("You can't do that.")
		return
	}
	c.printLine(capitalize(err.Error()))
}

// selectOption picks the n-th visible option of the dialog on screen,
// counting from 1.
func (c *CLI) selectOption(n int) {
	if err := c.Engine.SelectOption(c.Engine.CurrentDialog(), n-1); err != nil {
		c.printSystem(err.Error())
	}
}

// pump ticks until the engine is idle and no replay is running, or max
// ticks have passed.
func (c *CLI) pump(max int) {
	rec := c.Engine.Recorder()
	for i := 0; i < max && (c.Engine.Busy() || rec.Playing()); i++ {
		c.Engine.Tick(c.Step)
		c.flush()
	}
	c.flush()
}

// flush prints host output produced since the last flush.
func (c *CLI) flush() {
	host, ok := c.Engine.Host().(outputter)
	if !ok {
		return
	}
	for _, l := range host.Output() {
		c.printLine(l.String())
	}
}

func (c *CLI) describe() {
	for _, line := range c.Engine.Describe() {
		c.printLine(line)
	}
}

// showDialog prints the visible options of the active dialog.
func (c *CLI) showDialog() {
	d, ok := c.Engine.Dialog(c.Engine.CurrentDialog())
	if !ok {
		return
	}
	for i, id := range d.Visible() {
		opt, _ := d.Option(id)
		c.printLine(fmt.Sprintf("  %d. %s", i+1, opt.Text))
	}
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(input string) bool {
	parts, err := shellwords.SplitPosix(input)
	if err != nil || len(parts) == 0 {
		c.printSystem(fmt.Sprintf("Bad command: %v", err))
		return false
	}

	switch parts[0] {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true
	case "/save":
		c.cmdSave(arg(parts, 1))
	case "/load":
		c.cmdLoad(arg(parts, 1))
	case "/help":
		c.cmdHelp()
	case "/state":
		c.cmdState()
	case "/verbs":
		c.cmdVerbs(arg(parts, 1))
	case "/dialog":
		c.cmdDialog()
	case "/trace":
		c.cmdTrace()
	case "/record":
		c.cmdRecord(arg(parts, 1), arg(parts, 2))
	case "/replay":
		c.cmdReplay(arg(parts, 1))
	case "/bot":
		c.cmdBot(arg(parts, 1), arg(parts, 2))
	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", parts[0]))
	}
	return false
}

func (c *CLI) cmdSave(name string) {
	if name == "" {
		name = "quicksave"
	}
	data, err := c.Engine.Save()
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	if _, err := save.WriteFile(c.SaveDir, name, data); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game saved to %s.", name))
}

func (c *CLI) cmdLoad(name string) {
	if name == "" {
		name = "quicksave"
	}
	data, err := save.ReadFile(c.SaveDir, name)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	if err := c.Engine.LoadSave(data); err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game loaded from %s (tick %d).", name, c.Engine.State.Tick))
	c.describe()
	c.pump(c.MaxTicks)
	c.showDialog()
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [name]               Save game (default: quicksave)",
		"  /load [name]               Load game (default: quicksave)",
		"  /state                     Dump world state",
		"  /verbs [object]            List an object's verbs (default: scene)",
		"  /dialog                    Show the active dialog tree",
		"  /trace                     Toggle runtime event trace",
		"  /record start [name]       Start recording calls",
		"  /record stop               Stop and write the recording",
		"  /record list               List recordings",
		"  /replay <name>             Replay a recording",
		"  /bot [ticks] [exclude,..]  Let the tester bot play",
		"  /quit                      Exit",
		"",
		"Game commands:",
		"  look at <thing>            Run lookat on something",
		"  pick up / talk to / open / close / push / pull <thing>",
		"  use <thing> with <thing>   Run use with a target",
		"  drop <thing>               Put down a carried thing",
		"  inventory (i)              List what you carry",
		"  run <obj> <verb> [target]  Run any verb directly",
		"  cancel <obj> <verb>        Cancel a running verb",
		"  option <n>, or just <n>    Pick a dialog option",
		"  goto <x> <y>               Walk the player",
		"  tick [n]                   Advance time",
		"  again (g)                  Repeat your last command",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Engine.State
	c.printSystem(fmt.Sprintf("Tick: %d (%.1fs)", s.Tick, s.Clock))
	c.printSystem(fmt.Sprintf("Scene: %s", s.Scene))
	c.printSystem(fmt.Sprintf("Cut mode: %v", s.CutMode))
	if s.Dialog != "" {
		c.printSystem(fmt.Sprintf("Dialog: %s", s.Dialog))
	}
	if len(s.Inventory) > 0 {
		c.printSystem("Inventory: " + strings.Join(s.Inventory, ", "))
	}
	if len(s.Flags) > 0 {
		var flags []string
		for f, v := range s.Flags {
			flags = append(flags, fmt.Sprintf("%s=%v", f, v))
		}
		sort.Strings(flags)
		c.printSystem("Flags: " + strings.Join(flags, " "))
	}
	c.printSystem(fmt.Sprintf("RNG: seed %d, position %d", c.Engine.RNG.Seed(), c.Engine.RNG.Position()))

	t := table.New("Object", "State", "Pos", "Hidden").WithWriter(c.Out)
	for _, id := range c.Engine.Objects() {
		pos := state.ObjectPos(s, c.Defs, id)
		t.AddRow(id, state.ObjectState(s, c.Defs, id), fmt.Sprintf("%g,%g", pos.X, pos.Y), state.IsHidden(s, id))
	}
	t.Print()
}

func (c *CLI) cmdVerbs(objectID string) {
	if objectID == "" {
		objectID = c.Engine.State.Scene
	}
	tbl := c.Engine.Table(objectID)
	if objectID == "defaults" && tbl == nil {
		tbl = c.Engine.Defaults()
	}
	if tbl == nil {
		c.printSystem(fmt.Sprintf("No object %s.", objectID))
		return
	}

	t := table.New("Verb", "Status", "IP", "Actions").WithWriter(c.Out)
	for _, v := range tbl.Verbs() {
		t.AddRow(v.Key(), v.Status(), v.IP(), v.Len())
	}
	t.Print()
}

func (c *CLI) cmdDialog() {
	d, ok := c.Engine.Dialog(c.Engine.CurrentDialog())
	if !ok {
		c.printSystem("No active dialog.")
		return
	}
	c.printSystem(fmt.Sprintf("Dialog %s with %s, at %q", d.ID, d.Actor, d.CurrentPath()))

	t := table.New("Path", "Text", "Verb", "Next", "Visible", "Once").WithWriter(c.Out)
	var walk func(parent dialogue.OptionID)
	walk = func(parent dialogue.OptionID) {
		for _, id := range d.Children(parent) {
			opt, _ := d.Option(id)
			t.AddRow(d.Path(id), opt.Text, opt.Verb, opt.Next, opt.Visible, opt.Once)
			walk(id)
		}
	}
	walk(dialogue.Root)
	t.Print()
}

func (c *CLI) cmdTrace() {
	if c.untrace != nil {
		c.untrace()
		c.untrace = nil
		c.printSystem("Trace output disabled.")
		return
	}
	c.untrace = c.Engine.Bus().Subscribe(func(ev types.Event) {
		c.printSystem("trace " + formatEvent(ev))
	})
	c.printSystem("Trace output enabled.")
}

func (c *CLI) cmdRecord(sub, name string) {
	rec := c.Engine.Recorder()
	switch sub {
	case "start":
		if name == "" {
			name = "session"
		}
		c.recordName = name
		rec.StartRecording(c.Defs.Game.Title)
		c.printSystem(fmt.Sprintf("Recording %s.", name))
	case "stop":
		if !rec.Recording() {
			c.printSystem("Not recording.")
			return
		}
		s := rec.StopRecording()
		path := filepath.Join(c.RecordDir, c.recordName+".json")
		if err := recorder.Save(path, s); err != nil {
			c.printSystem(fmt.Sprintf("Record failed: %v", err))
			return
		}
		c.printSystem(fmt.Sprintf("Recorded %d calls to %s.", len(s.Entries), c.recordName))
	case "list":
		c.listRecordings()
	default:
		c.printSystem("usage: /record start [name] | stop | list")
	}
}

func (c *CLI) listRecordings() {
	files, _ := filepath.Glob(filepath.Join(c.RecordDir, "*.json"))
	t := table.New("Name", "Calls", "Seconds", "Created").WithWriter(c.Out)
	for _, f := range files {
		s, err := recorder.Load(f)
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(f), ".json")
		t.AddRow(name, len(s.Entries), fmt.Sprintf("%.1f", s.Duration()), s.Created.Format("2006-01-02 15:04"))
	}
	t.Print()
}

func (c *CLI) cmdReplay(name string) {
	if name == "" {
		c.printSystem("usage: /replay <name>")
		return
	}
	s, err := recorder.Load(filepath.Join(c.RecordDir, name+".json"))
	if err != nil {
		c.printSystem(fmt.Sprintf("Replay failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Replaying %d calls.", len(s.Entries)))
	c.Engine.Recorder().Play(s)
	c.pump(c.MaxTicks + int(s.Duration()/c.Step) + len(s.Entries))
	c.showDialog()
}

func (c *CLI) cmdBot(ticksArg, exclude string) {
	ticks := DefaultBotTicks
	if ticksArg != "" {
		n, err := strconv.Atoi(ticksArg)
		if err != nil || n < 1 {
			c.printSystem("usage: /bot [ticks] [exclude,...]")
			return
		}
		ticks = n
	}

	b := engine.NewBot(c.Engine.Logger())
	b.SetExclude(exclude)
	c.Engine.StartBot(b)
	for i := 0; i < ticks; i++ {
		c.Engine.Tick(c.Step)
		c.flush()
	}
	c.Engine.StopBot()
	c.printSystem(fmt.Sprintf("Bot made %d moves.", b.Moves()))
}

func formatEvent(ev types.Event) string {
	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
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

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}

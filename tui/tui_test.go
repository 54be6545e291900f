package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/scriptcore/engine"
	"github.com/nathoo/scriptcore/engine/state"
	"github.com/nathoo/scriptcore/types"
)

func TestSceneDisplayName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"hall", "Hall"},
		{"great_hall", "Great Hall"},
		{"castle_gates", "Castle Gates"},
		{"tower_top", "Tower Top"},
		{"", "-"},
	}
	for _, tt := range tests {
		got := sceneDisplayName(tt.id)
		if got != tt.want {
			t.Errorf("sceneDisplayName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"You see: door, guard, key.", kindYouSee},
		{"[Game saved to test.]", kindSystem},
		{"[trace] verb_started object=door verb=open", kindTrace},
		{"-- street --", kindSceneChange},
		{"(door sound clunk)", kindEffect},
		{"(hero walk to 5,6)", kindEffect},
		{"  1. Who are you?", kindOption},
		{"  12. Bye.", kindOption},
		{"You can't do that.", kindError},
		{"Nothing to repeat.", kindError},
		{"guard: Hmm.", kindSpeech},
		{"A grand hall.", kindSceneDesc},
		{"A quiet hall: nobody here.", kindSceneDesc},
		{"", kindSceneDesc},
	}
	for _, tt := range tests {
		got := classifyLine(tt.line)
		if got != tt.want {
			t.Errorf("classifyLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestSpeaker(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"guard: Hmm.", "guard"},
		{"old_man: Who goes there?", "old_man"},
		{"The guard says: hi", ""},
		{": nothing", ""},
		{"no colon here", ""},
		{"[Usage: x]", ""},
	}
	for _, tt := range tests {
		if got := speaker(tt.line); got != tt.want {
			t.Errorf("speaker(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 20, "short"},
		{"the quick brown fox", 10, "the quick\nbrown fox"},
		{"a b c", 0, "a b c"},
		{"supercalifragilistic word", 5, "supercalifragilistic\nword"},
	}
	for _, tt := range tests {
		if got := wordWrap(tt.text, tt.width); got != tt.want {
			t.Errorf("wordWrap(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestHistory_Prev(t *testing.T) {
	h := NewHistory(5)
	h.Push("look at door")
	h.Push("open door")

	prev, ok := h.Prev()
	if !ok || prev != "open door" {
		t.Errorf("expected 'open door', got %q (ok=%v)", prev, ok)
	}
	prev, ok = h.Prev()
	if !ok || prev != "look at door" {
		t.Errorf("expected 'look at door', got %q (ok=%v)", prev, ok)
	}
	// Stays at the oldest entry.
	prev, ok = h.Prev()
	if !ok || prev != "look at door" {
		t.Errorf("expected 'look at door' at boundary, got %q (ok=%v)", prev, ok)
	}
}

func TestHistory_Next(t *testing.T) {
	h := NewHistory(5)
	h.Push("look at door")
	h.Push("open door")

	h.Prev()
	h.Prev()

	next, ok := h.Next()
	if !ok || next != "open door" {
		t.Errorf("expected 'open door', got %q (ok=%v)", next, ok)
	}
	if _, ok = h.Next(); ok {
		t.Error("expected false when past newest entry")
	}
	if _, ok = h.Next(); ok {
		t.Error("expected false when not navigating")
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	if _, ok := h.Prev(); ok {
		t.Error("expected false on empty history")
	}
	if _, ok := h.Next(); ok {
		t.Error("expected false on empty history")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	h.Push("b")
	h.Push("c") // "a" evicted

	if h.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", h.Len())
	}
	prev, _ := h.Prev()
	if prev != "c" {
		t.Errorf("expected 'c', got %q", prev)
	}
	prev, _ = h.Prev()
	if prev != "b" {
		t.Errorf("expected 'b', got %q", prev)
	}
}

func TestHistory_RepeatMovesToNewest(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("open door")
	h.Push("look")

	if h.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", h.Len())
	}
	if prev, _ := h.Prev(); prev != "look" {
		t.Errorf("expected 'look' as newest, got %q", prev)
	}
}

func TestHistory_ResetCursor(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("open door")

	h.Prev()
	h.Prev()
	h.ResetCursor()

	prev, ok := h.Prev()
	if !ok || prev != "open door" {
		t.Errorf("expected 'open door' after reset, got %q", prev)
	}
}

func act(typ string, kv ...any) types.ActionDef {
	params := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		params[kv[i].(string)] = kv[i+1]
	}
	return types.ActionDef{Type: typ, Params: params}
}

// testDefs returns minimal game definitions for TUI testing.
func testDefs() *state.Defs {
	return &state.Defs{
		Game: types.GameDef{
			Title:   "Test Game",
			Author:  "Test",
			Version: "1.0",
			Start:   "hall",
			Player:  "hero",
			Intro:   "Welcome to the test.",
		},
		Objects: map[string]types.ObjectDef{
			"hall": {
				ID:    "hall",
				Kind:  state.KindScene,
				Desc:  "A grand hall.",
				Verbs: []types.VerbDef{{ID: "init", Actions: []types.ActionDef{act("set_flag", "flag", "visited_hall")}}},
			},
			"street": {ID: "street", Kind: state.KindScene, Desc: "A narrow street."},
			"hero":   {ID: "hero", Kind: state.KindActor, Scene: "hall"},
			"door": {
				ID:    "door",
				Kind:  state.KindActor,
				Scene: "hall",
				State: "locked",
				Verbs: []types.VerbDef{
					{ID: "open", State: "locked", Actions: []types.ActionDef{act("sound", "sound", "clunk", "duration", 0.0)}},
					{ID: "leave", Actions: []types.ActionDef{act("leave", "scene", "street")}},
				},
			},
			"guard": {
				ID:    "guard",
				Kind:  state.KindActor,
				Scene: "hall",
				Verbs: []types.VerbDef{
					{ID: "talkto", Actions: []types.ActionDef{act("start_dialog", "dialog", "chat")}},
					{ID: "dialog", Actions: []types.ActionDef{act("say", "text", "Hmm.", "wait", false)}},
					{ID: "bribe", Actions: []types.ActionDef{act("set_flag", "flag", "bribed")}},
				},
			},
		},
		Defaults: []types.VerbDef{
			{ID: "lookat", Actions: []types.ActionDef{act("say", "actor", "hero", "text", "Nothing special.", "wait", false)}},
		},
		Dialogs: map[string]types.DialogDef{
			"chat": {ID: "chat", Actor: "guard", Options: []types.OptionDef{
				{Text: "Who are you?", Response: "The guard.", Next: "parent", Visible: true},
				{Text: "Take this coin.", Verb: "bribe", Next: "parent", Visible: true, Once: true},
				{Text: "Bye.", Visible: true},
			}},
		},
	}
}

// newTestModel returns a started model with a sized viewport.
func newTestModel(t *testing.T) Model {
	t.Helper()
	eng, err := engine.New(testDefs())
	if err != nil {
		t.Fatal(err)
	}
	m := New(eng, Options{
		SaveDir:   t.TempDir(),
		RecordDir: t.TempDir(),
		Interval:  100 * time.Millisecond,
	})
	m = send(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return send(m, startMsg{})
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func enter(m Model, input string) Model {
	m.input.SetValue(input)
	return send(m, tea.KeyMsg{Type: tea.KeyEnter})
}

func ticks(m Model, n int) Model {
	for i := 0; i < n; i++ {
		m = send(m, tickMsg(time.Time{}))
	}
	return m
}

func transcript(m Model) string {
	lines := make([]string, len(m.rawLines))
	for i, rl := range m.rawLines {
		lines[i] = rl.text
	}
	return strings.Join(lines, "\n")
}

func TestModel_Start(t *testing.T) {
	m := ticks(newTestModel(t), 1)
	out := transcript(m)

	for _, want := range []string{"Test Game v1.0 by Test", "Welcome to the test.", "A grand hall.", "You see: door, guard."} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in transcript:\n%s", want, out)
		}
	}
	if !state.GetFlag(m.engine.State, "visited_hall") {
		t.Error("scene init verb did not run")
	}
}

func TestModel_StartIsIdempotent(t *testing.T) {
	m := send(newTestModel(t), startMsg{})
	if n := strings.Count(transcript(m), "Welcome to the test."); n != 1 {
		t.Errorf("intro shown %d times", n)
	}
}

func TestModel_CommandPlaysOverTicks(t *testing.T) {
	m := newTestModel(t)
	m = enter(m, "look at door")
	m = ticks(m, 10)
	out := transcript(m)

	if !strings.Contains(out, "> look at door") {
		t.Errorf("expected echoed input:\n%s", out)
	}
	if !strings.Contains(out, "hero: Nothing special.") {
		t.Errorf("expected speech:\n%s", out)
	}
	if m.history.Len() != 1 {
		t.Errorf("expected command in history, got %d entries", m.history.Len())
	}
}

func TestModel_UnknownCommand(t *testing.T) {
	m := enter(newTestModel(t), "push door")
	if !strings.Contains(transcript(m), "You can't do that.") {
		t.Errorf("expected miss message:\n%s", transcript(m))
	}
}

func TestModel_Again(t *testing.T) {
	m := enter(newTestModel(t), "g")
	if !strings.Contains(transcript(m), "Nothing to repeat.") {
		t.Errorf("expected nothing to repeat:\n%s", transcript(m))
	}

	m = enter(m, "open door")
	m = ticks(m, 3)
	m = enter(m, "again")
	m = ticks(m, 5)
	if n := strings.Count(transcript(m), "(door sound clunk)"); n != 2 {
		t.Errorf("expected the command to run twice, ran %d times", n)
	}
}

func TestModel_Inventory(t *testing.T) {
	m := enter(newTestModel(t), "inventory")
	if !strings.Contains(transcript(m), "You carry nothing.") {
		t.Errorf("expected an empty inventory:\n%s", transcript(m))
	}

	state.AddItem(m.engine.State, "door")
	if got := m.dispatch("i"); len(got) != 1 || got[0] != "You carry: door." {
		t.Errorf("dispatch(i) = %v", got)
	}
	dump, _ := m.handleMeta("/state")
	if !strings.Contains(strings.Join(dump, "\n"), "Inventory: door") {
		t.Errorf("expected the inventory in the state dump:\n%s", strings.Join(dump, "\n"))
	}
}

func TestModel_SceneChangeDescribes(t *testing.T) {
	m := enter(newTestModel(t), "run door leave")
	m = ticks(m, 20)
	out := transcript(m)

	if m.engine.State.Scene != "street" {
		t.Fatalf("expected street, got %q", m.engine.State.Scene)
	}
	if !strings.Contains(out, "A narrow street.") {
		t.Errorf("expected the new scene description:\n%s", out)
	}
}

func TestModel_SceneChangeDescribedOnce(t *testing.T) {
	// leave changes the scene while the command is dispatched, before any tick.
	m := enter(newTestModel(t), "run door leave")
	if m.engine.State.Scene != "street" {
		t.Fatalf("expected street right after the command, got %q", m.engine.State.Scene)
	}
	m = ticks(m, 5)
	if n := strings.Count(transcript(m), "A narrow street."); n != 1 {
		t.Errorf("expected one description of the street, got %d:\n%s", n, transcript(m))
	}
	if n := strings.Count(transcript(m), "A grand hall."); n != 1 {
		t.Errorf("expected the hall described only at start, got %d", n)
	}
}

func TestModel_LoadDoesNotDescribeTwice(t *testing.T) {
	m := enter(newTestModel(t), "/save here")
	m = enter(m, "run door leave")
	m = ticks(m, 2)
	m = enter(m, "/load here")
	m = ticks(m, 2)

	if m.engine.State.Scene != "hall" {
		t.Fatalf("expected hall after load, got %q", m.engine.State.Scene)
	}
	// Start plus the load output; the tick after the load adds nothing.
	if n := strings.Count(transcript(m), "A grand hall."); n != 2 {
		t.Errorf("expected two descriptions of the hall, got %d:\n%s", n, transcript(m))
	}
}

func TestModel_DialogMenu(t *testing.T) {
	m := enter(newTestModel(t), "talk to guard")
	m = ticks(m, 5)
	out := transcript(m)
	if !strings.Contains(out, "  1. Who are you?") || !strings.Contains(out, "  3. Bye.") {
		t.Fatalf("expected dialog menu:\n%s", out)
	}

	m = enter(m, "2")
	m = ticks(m, 30)
	if !state.GetFlag(m.engine.State, "bribed") {
		t.Error("option verb did not run")
	}
	if !strings.Contains(transcript(m), "  2. Bye.") {
		t.Errorf("expected shrunk menu:\n%s", transcript(m))
	}
}

func TestModel_OptionOutOfRange(t *testing.T) {
	m := enter(newTestModel(t), "talk to guard")
	m = ticks(m, 5)
	m = enter(m, "option 9")
	if !strings.Contains(transcript(m), "out of range") {
		t.Errorf("expected range error:\n%s", transcript(m))
	}
}

func TestModel_CutModeBlocksCommands(t *testing.T) {
	m := newTestModel(t)
	m.engine.State.CutMode = true

	m = enter(m, "open door")
	m = ticks(m, 5)
	out := transcript(m)
	if !strings.Contains(out, "The scene is playing.") {
		t.Errorf("expected cut mode notice:\n%s", out)
	}
	if strings.Contains(out, "(door sound clunk)") {
		t.Error("command ran during cut mode")
	}
	if !strings.Contains(m.View(), "CUT") {
		t.Error("expected CUT in the status bar")
	}
}

func TestModel_View(t *testing.T) {
	eng, err := engine.New(testDefs())
	if err != nil {
		t.Fatal(err)
	}
	m := New(eng, Options{})
	if m.View() != "Loading..." {
		t.Errorf("expected loading view, got %q", m.View())
	}

	m = send(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = send(m, startMsg{})
	m = ticks(m, 3)
	view := m.View()
	if !strings.Contains(view, "Hall") || !strings.Contains(view, "T:3") {
		t.Errorf("expected status bar in view:\n%s", view)
	}
}

func TestModel_CtrlCQuits(t *testing.T) {
	m := newTestModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !next.(Model).quitting || cmd == nil {
		t.Error("expected ctrl+c to quit")
	}
	if next.(Model).View() != "" {
		t.Error("expected empty view after quit")
	}
}

func TestHandleMeta_Quit(t *testing.T) {
	m := newTestModel(t)

	if _, quit := m.handleMeta("/quit"); !quit {
		t.Error("expected quit=true for /quit")
	}
	if _, quit := m.handleMeta("/exit"); !quit {
		t.Error("expected quit=true for /exit")
	}
}

func TestHandleMeta_SaveLoad(t *testing.T) {
	m := newTestModel(t)
	m = ticks(m, 1)

	output, quit := m.handleMeta("/save test")
	if quit {
		t.Error("save should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "Game saved") {
		t.Fatalf("expected save confirmation, got %v", output)
	}

	m.engine.State.Flags["visited_hall"] = false
	output, _ = m.handleMeta("/load test")
	if len(output) == 0 || !strings.Contains(output[0], "Game loaded from test") {
		t.Fatalf("expected load confirmation, got %v", output)
	}
	if !state.GetFlag(m.engine.State, "visited_hall") {
		t.Error("load did not restore flags")
	}
}

func TestHandleMeta_LoadNonexistent(t *testing.T) {
	m := newTestModel(t)

	output, quit := m.handleMeta("/load nonexistent")
	if quit {
		t.Error("load should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "Load failed") {
		t.Errorf("expected load failure, got %v", output)
	}
}

func TestHandleMeta_Help(t *testing.T) {
	m := newTestModel(t)

	output, quit := m.handleMeta("/help")
	if quit {
		t.Error("help should not quit")
	}

	joined := strings.Join(output, "\n")
	for _, expected := range []string{"/save", "/load", "/quit", "/record", "look at", "use <thing> with <thing>"} {
		if !strings.Contains(joined, expected) {
			t.Errorf("expected %q in help output", expected)
		}
	}
}

func TestHandleMeta_Trace(t *testing.T) {
	m := newTestModel(t)

	output, _ := m.handleMeta("/trace")
	if m.trace.stop == nil {
		t.Fatal("expected trace to be enabled")
	}
	if len(output) == 0 || !strings.Contains(output[0], "enabled") {
		t.Errorf("expected enabled message, got %v", output)
	}

	m = enter(m, "open door")
	m = ticks(m, 3)
	if !strings.Contains(transcript(m), "[trace] verb_started") {
		t.Errorf("expected trace lines:\n%s", transcript(m))
	}

	output, _ = m.handleMeta("/trace")
	if m.trace.stop != nil {
		t.Error("expected trace to be disabled")
	}
	if len(output) == 0 || !strings.Contains(output[0], "disabled") {
		t.Errorf("expected disabled message, got %v", output)
	}
}

func TestHandleMeta_Unknown(t *testing.T) {
	m := newTestModel(t)

	output, quit := m.handleMeta("/bogus")
	if quit {
		t.Error("unknown command should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "Unknown command") {
		t.Errorf("expected unknown command message, got %v", output)
	}
}

func TestHandleMeta_State(t *testing.T) {
	m := newTestModel(t)

	output, quit := m.handleMeta("/state")
	if quit {
		t.Error("state should not quit")
	}

	joined := strings.Join(output, "\n")
	if !strings.Contains(joined, "Scene: hall") {
		t.Error("expected scene in state output")
	}
	if !strings.Contains(joined, "Tick:") {
		t.Error("expected tick count in state output")
	}
	if !strings.Contains(joined, `door state="locked"`) {
		t.Errorf("expected object states, got:\n%s", joined)
	}
}

func TestHandleMeta_RecordAndReplay(t *testing.T) {
	m := newTestModel(t)

	if out, _ := m.handleMeta("/record stop"); out[0] != "Not recording." {
		t.Errorf("got %v", out)
	}

	m.handleMeta("/record start walk")
	if !strings.Contains(m.View(), "REC") {
		t.Error("expected REC in the status bar")
	}
	m = enter(m, "open door")
	m = ticks(m, 3)

	out, _ := m.handleMeta("/record stop")
	if out[0] != "Recorded 1 calls to walk." {
		t.Fatalf("got %v", out)
	}

	out, _ = m.handleMeta("/replay walk")
	if out[0] != "Replaying 1 calls." {
		t.Fatalf("got %v", out)
	}
	m = ticks(m, 30)
	if n := strings.Count(transcript(m), "(door sound clunk)"); n != 2 {
		t.Errorf("expected the replay to repeat the call, saw it %d times", n)
	}
	if m.engine.Recorder().Playing() {
		t.Error("replay should have finished")
	}
}

func TestHandleMeta_Bot(t *testing.T) {
	m := newTestModel(t)

	out, _ := m.handleMeta("/bot")
	if m.bot == nil || m.engine.Bot() == nil {
		t.Fatalf("expected bot to start, got %v", out)
	}
	m = ticks(m, 50)
	if !strings.Contains(m.View(), "BOT") {
		t.Error("expected BOT in the status bar")
	}

	out, _ = m.handleMeta("/bot")
	if m.bot != nil || m.engine.Bot() != nil {
		t.Error("expected bot to stop")
	}
	if !strings.Contains(out[0], "Bot stopped after") {
		t.Errorf("got %v", out)
	}
}

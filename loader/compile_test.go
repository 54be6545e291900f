package loader

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nathoo/scriptcore/types"
	lua "github.com/yuin/gopher-lua"
)

// newTestVM creates a sandboxed Lua VM with the API registered and a fresh collector.
func newTestVM() (*lua.LState, *collector) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	coll := &collector{}
	registerAPI(L, coll)
	return L, coll
}

// eval runs src, which must return one value, and pops it.
func eval(t *testing.T, L *lua.LState, src string) lua.LValue {
	t.Helper()
	if err := L.DoString(src); err != nil {
		t.Fatal(err)
	}
	v := L.Get(-1)
	L.Pop(1)
	return v
}

func TestCompileGame(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	tbl := eval(t, L, `
		return {
			title = "Test Game",
			author = "Author",
			version = "1.0",
			start = "hall",
			player = "hero",
			intro = "Welcome!"
		}
	`).(*lua.LTable)

	want := types.GameDef{
		Title:   "Test Game",
		Author:  "Author",
		Version: "1.0",
		Start:   "hall",
		Player:  "hero",
		Intro:   "Welcome!",
	}
	if diff := cmp.Diff(want, compileGame(tbl)); diff != "" {
		t.Errorf("compileGame mismatch (-want +got):\n%s", diff)
	}
}

func TestToGoValue(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	tests := []struct {
		src  string
		want any
	}{
		{`return 3`, 3},
		{`return 1.5`, 1.5},
		{`return "x"`, "x"},
		{`return true`, true},
		{`return nil`, nil},
		{`return {1, "a"}`, []any{1, "a"}},
		{`return {x = 1, y = {2}}`, map[string]any{"x": 1, "y": []any{2}}},
		{`return {}`, map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := toGoValue(eval(t, L, tt.src))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("toGoValue mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestActionHelpers(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	tests := []struct {
		src  string
		want types.ActionDef
	}{
		{`return Say("Hi.")`, types.ActionDef{Type: "say", Params: map[string]any{"text": "Hi."}}},
		{
			`return Say("Hi.", { actor = "guard", wait = false })`,
			types.ActionDef{Type: "say", Params: map[string]any{"text": "Hi.", "actor": "guard", "wait": false}},
		},
		{`return Sound("clunk")`, types.ActionDef{Type: "sound", Params: map[string]any{"sound": "clunk"}}},
		{
			`return Walk(3, 4.5, { actor = "hero" })`,
			types.ActionDef{Type: "walk", Params: map[string]any{
				"to":    map[string]any{"x": 3, "y": 4.5},
				"actor": "hero",
			}},
		},
		{`return Wait(2)`, types.ActionDef{Type: "wait", Params: map[string]any{"seconds": 2}}},
		{`return SetFlag("f")`, types.ActionDef{Type: "set_flag", Params: map[string]any{"flag": "f", "value": true}}},
		{`return SetFlag("f", false)`, types.ActionDef{Type: "set_flag", Params: map[string]any{"flag": "f", "value": false}}},
		{
			`return RunVerb("door", "open", { target = "key", wait = false })`,
			types.ActionDef{Type: "run_verb", Params: map[string]any{
				"actor": "door", "verb": "open", "target": "key", "wait": false,
			}},
		},
		{`return CutMode()`, types.ActionDef{Type: "cut_mode", Params: map[string]any{"on": true}}},
		{`return CutMode(false)`, types.ActionDef{Type: "cut_mode", Params: map[string]any{"on": false}}},
		{`return StartDialog("d")`, types.ActionDef{Type: "start_dialog", Params: map[string]any{"dialog": "d"}}},
		{`return EndDialog()`, types.ActionDef{Type: "end_dialog", Params: map[string]any{}}},
		{`return Leave("street")`, types.ActionDef{Type: "leave", Params: map[string]any{"scene": "street"}}},
		{
			`return IfFlag("f", { value = false, skip = 2 })`,
			types.ActionDef{Type: "if_flag", Params: map[string]any{"flag": "f", "value": false, "skip": 2}},
		},
		{`return Hide()`, types.ActionDef{Type: "hide", Params: map[string]any{"actor": "$self"}}},
		{`return Show("key")`, types.ActionDef{Type: "show", Params: map[string]any{"actor": "key"}}},
		{`return PickUp()`, types.ActionDef{Type: "pickup", Params: map[string]any{"actor": "$self"}}},
		{`return RemoveItem("coin")`, types.ActionDef{Type: "remove_item", Params: map[string]any{"actor": "coin"}}},
		{
			`return Drop("coin", { scene = "street", pos = { x = 5, y = 6 } })`,
			types.ActionDef{Type: "drop", Params: map[string]any{
				"actor": "coin",
				"scene": "street",
				"pos":   map[string]any{"x": 5, "y": 6},
			}},
		},
		{
			`return Action("shake", { strength = 2, type = "ignored" })`,
			types.ActionDef{Type: "shake", Params: map[string]any{"strength": 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			verb := L.NewTable()
			verb.RawSetString(verbMarker, lua.LString("v"))
			verb.Append(eval(t, L, tt.src))

			vd, err := compileVerb(verb)
			if err != nil {
				t.Fatal(err)
			}
			if len(vd.Actions) != 1 {
				t.Fatalf("got %d actions, want 1", len(vd.Actions))
			}
			if diff := cmp.Diff(tt.want, vd.Actions[0]); diff != "" {
				t.Errorf("action mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompileVerb_Specializations(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	v := eval(t, L, `return Verb "use" { target = "key", state = "locked", Say("No.") }`).(*lua.LTable)
	vd, err := compileVerb(v)
	if err != nil {
		t.Fatal(err)
	}
	if vd.ID != "use" || vd.Target != "key" || vd.State != "locked" {
		t.Errorf("got %+v", vd)
	}
}

func TestCompileVerb_ActionWithoutType(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	v := eval(t, L, `return Verb "use" { { text = "hi" } }`).(*lua.LTable)
	if _, err := compileVerb(v); err == nil {
		t.Fatal("expected error for action without type")
	}
}

func TestCompileOptions_Nested(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	if err := L.DoString(`
		Dialog "d" {
			actor = "guard",
			Option { text = "a",
				Option { text = "a1", next = "parent" },
				Option { text = "a2", next = "1", once = true },
			},
			Option { text = "b", visible = false, verb = "wave" },
		}
	`); err != nil {
		t.Fatal(err)
	}
	if len(coll.dialogs) != 1 {
		t.Fatalf("got %d dialogs", len(coll.dialogs))
	}

	got, err := compileOptions(coll.dialogs[0].table)
	if err != nil {
		t.Fatal(err)
	}
	want := []types.OptionDef{
		{Text: "a", Visible: true, Options: []types.OptionDef{
			{Text: "a1", Next: "parent", Visible: true},
			{Text: "a2", Next: "1", Visible: true, Once: true},
		}},
		{Text: "b", Verb: "wave"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestCompilePos(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	for _, src := range []string{`return {3, 4}`, `return {x = 3, y = 4}`} {
		pos, err := compilePos(eval(t, L, src).(*lua.LTable))
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		if pos != (types.Vec2{X: 3, Y: 4}) {
			t.Errorf("%s: got %v", src, pos)
		}
	}
}

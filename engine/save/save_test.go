package save

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/nathoo/scriptcore/engine/dialogue"
	"github.com/nathoo/scriptcore/engine/state"
	"github.com/nathoo/scriptcore/engine/verb"
	"github.com/nathoo/scriptcore/types"
)

func testDefs() *state.Defs {
	return &state.Defs{
		Game: types.GameDef{
			Title:   "Test Game",
			Version: "0.1.0",
			Start:   "hall",
			Player:  "hero",
		},
		Objects: map[string]types.ObjectDef{
			"hall": {ID: "hall", Kind: state.KindScene},
			"door": {ID: "door", Kind: state.KindActor, Scene: "hall", State: "locked"},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)
	s.Scene = "street"
	s.Tick = 42
	s.Clock = 1.4
	s.CutMode = true
	s.Dialog = "guard_talk"
	s.Flags["door_open"] = true
	state.SetObjectState(s, "door", "open")
	state.SetObjectPos(s, "hero", types.Vec2{X: 3, Y: 7})
	s.RNGSeed = 99
	s.RNGPos = 5

	rt := Runtime{
		Dialogs: map[string]dialogue.Snapshot{
			"guard_talk": {Current: "0.1", Hidden: []string{"2"}},
		},
		Verbs: map[string]map[string]verb.Snapshot{
			"door": {"open": {IP: 1, Status: "suspended", Target: "key"}},
		},
	}

	data, err := Save(s, defs, rt)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	sd, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if sd.Game != "Test Game" || sd.Version != "0.1.0" {
		t.Errorf("Game/Version = %q/%q", sd.Game, sd.Version)
	}
	if diff := cmp.Diff(rt.Dialogs, sd.Dialogs); diff != "" {
		t.Errorf("Dialogs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(rt.Verbs, sd.Verbs); diff != "" {
		t.Errorf("Verbs mismatch (-want +got):\n%s", diff)
	}

	restored := state.NewState(defs)
	ApplySave(restored, sd)
	if diff := cmp.Diff(s, restored); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_ProducesValidJSON(t *testing.T) {
	defs := testDefs()
	s := state.NewState(defs)

	data, err := Save(s, defs, Runtime{})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"version", "scene", "flags", "objects", "rng_position"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Error("save is not indented")
	}
}

func TestLoad_MissingOptionalFields(t *testing.T) {
	sd, err := Load([]byte(`{"version":"0.1.0","scene":"hall"}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sd.Flags == nil || sd.Objects == nil || sd.Dialogs == nil || sd.Verbs == nil {
		t.Error("maps must be non-nil after load")
	}
}

func TestLoad_Garbage(t *testing.T) {
	if _, err := Load([]byte("{not json")); err == nil {
		t.Error("expected an error for malformed input")
	}
}

func TestWriteReadFile(t *testing.T) {
	dir := t.TempDir() + "/saves"
	path, err := WriteFile(dir, "slot1", []byte(`{"scene":"hall"}`))
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !strings.HasSuffix(path, "slot1.json") {
		t.Errorf("path = %q", path)
	}
	data, err := ReadFile(dir, "slot1")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != `{"scene":"hall"}` {
		t.Errorf("data = %q", data)
	}
	if _, err := ReadFile(dir, "missing"); err == nil {
		t.Error("expected an error for a missing save")
	}
}

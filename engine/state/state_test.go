package state

import (
	"testing"

	"github.com/nathoo/scriptcore/types"
)

func testDefs() *Defs {
	return &Defs{
		Game: types.GameDef{
			Title:   "Test Game",
			Author:  "Test",
			Version: "0.1.0",
			Start:   "hall",
			Player:  "hero",
		},
		Objects: map[string]types.ObjectDef{
			"hall":   {ID: "hall", Kind: KindScene, Desc: "A grand hall."},
			"street": {ID: "street", Kind: KindScene},
			"hero":   {ID: "hero", Kind: KindActor, Desc: "You."},
			"door": {
				ID:    "door",
				Kind:  KindActor,
				Scene: "hall",
				Desc:  "Oak door",
				State: "locked",
				Pos:   types.Vec2{X: 10, Y: 4},
			},
			"lamp":  {ID: "lamp", Kind: KindActor, Scene: "hall"},
			"guard": {ID: "guard", Kind: KindActor, Scene: "street"},
		},
	}
}

func TestNewState(t *testing.T) {
	s := NewState(testDefs())
	if s.Scene != "hall" {
		t.Errorf("Scene = %q, want %q", s.Scene, "hall")
	}
	if s.Objects == nil || s.Flags == nil {
		t.Fatal("maps must be initialised")
	}
	if GetFlag(s, "anything") {
		t.Error("unset flag should be false")
	}
}

func TestObjectState_Layering(t *testing.T) {
	defs := testDefs()
	s := NewState(defs)

	if got := ObjectState(s, defs, "door"); got != "locked" {
		t.Errorf("base state = %q, want %q", got, "locked")
	}

	SetObjectState(s, "door", "open")
	if got := ObjectState(s, defs, "door"); got != "open" {
		t.Errorf("override state = %q, want %q", got, "open")
	}

	if got := ObjectState(s, defs, "ghost"); got != "" {
		t.Errorf("unknown object state = %q, want empty", got)
	}
}

func TestObjectPos_Layering(t *testing.T) {
	defs := testDefs()
	s := NewState(defs)

	if got := ObjectPos(s, defs, "door"); got != (types.Vec2{X: 10, Y: 4}) {
		t.Errorf("base pos = %v", got)
	}
	SetObjectPos(s, "door", types.Vec2{X: 1, Y: 2})
	if got := ObjectPos(s, defs, "door"); got != (types.Vec2{X: 1, Y: 2}) {
		t.Errorf("override pos = %v", got)
	}
	if got := ObjectState(s, defs, "door"); got != "locked" {
		t.Errorf("pos override clobbered state: %q", got)
	}
}

func TestObjectsInScene(t *testing.T) {
	defs := testDefs()
	s := NewState(defs)

	got := ObjectsInScene(s, defs, "hall")
	want := []string{"door", "hero", "lamp"}
	if len(got) != len(want) {
		t.Fatalf("ObjectsInScene = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ObjectsInScene[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	SetHidden(s, "lamp", true)
	got = ObjectsInScene(s, defs, "hall")
	for _, id := range got {
		if id == "lamp" {
			t.Error("hidden lamp still listed")
		}
	}
}

func TestObjectScene(t *testing.T) {
	defs := testDefs()
	tests := []struct {
		id, want string
	}{
		{"hall", "hall"},
		{"door", "hall"},
		{"hero", ""},
		{"ghost", ""},
	}
	for _, tt := range tests {
		if got := ObjectScene(defs, tt.id); got != tt.want {
			t.Errorf("ObjectScene(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestScenes(t *testing.T) {
	got := Scenes(testDefs())
	if len(got) != 2 || got[0] != "hall" || got[1] != "street" {
		t.Errorf("Scenes = %v, want [hall street]", got)
	}
}

func TestInventory(t *testing.T) {
	defs := testDefs()
	s := NewState(defs)

	if !AddItem(s, "lamp") || !AddItem(s, "door") {
		t.Fatal("AddItem of new items should succeed")
	}
	if AddItem(s, "lamp") {
		t.Error("AddItem twice should report false")
	}
	if len(s.Inventory) != 2 || s.Inventory[0] != "lamp" || s.Inventory[1] != "door" {
		t.Errorf("Inventory = %v, want [lamp door]", s.Inventory)
	}
	for _, id := range ObjectsInScene(s, defs, "hall") {
		if id == "lamp" || id == "door" {
			t.Errorf("carried %s still listed in the scene", id)
		}
	}

	if !RemoveItem(s, "lamp") || RemoveItem(s, "lamp") {
		t.Error("RemoveItem should succeed exactly once")
	}
	if InInventory(s, "lamp") || !InInventory(s, "door") {
		t.Errorf("Inventory = %v, want [door]", s.Inventory)
	}
}

func TestSetObjectScene(t *testing.T) {
	defs := testDefs()
	s := NewState(defs)

	SetObjectScene(s, "lamp", "street")
	for _, id := range ObjectsInScene(s, defs, "hall") {
		if id == "lamp" {
			t.Error("moved lamp still listed in the hall")
		}
	}
	got := ObjectsInScene(s, defs, "street")
	want := []string{"guard", "hero", "lamp"}
	if len(got) != len(want) {
		t.Fatalf("ObjectsInScene(street) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ObjectsInScene(street)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

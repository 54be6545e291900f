// Package state manages the mutable world state and object lookups with
// override layering (runtime state overrides base definitions).
package state

import (
	"sort"

	"github.com/nathoo/scriptcore/types"
)

// Object kinds.
const (
	KindActor = "actor"
	KindScene = "scene"
)

// Defs holds the immutable game definitions loaded from Lua.
type Defs struct {
	Game     types.GameDef
	Objects  map[string]types.ObjectDef
	Defaults []types.VerbDef
	Dialogs  map[string]types.DialogDef
}

// NewState creates a fresh world state from definitions.
func NewState(defs *Defs) *types.State {
	return &types.State{
		Scene:   defs.Game.Start,
		Objects: map[string]types.ObjectState{},
		Flags:   map[string]bool{},
	}
}

// GetFlag returns the value of a flag. Unset flags return false.
func GetFlag(s *types.State, name string) bool {
	return s.Flags[name]
}

// ObjectState returns the effective state of an object, checking the
// runtime override first, then the base definition.
func ObjectState(s *types.State, defs *Defs, id string) string {
	if os, ok := s.Objects[id]; ok && os.State != "" {
		return os.State
	}
	return defs.Objects[id].State
}

// ObjectPos returns the effective position of an object.
func ObjectPos(s *types.State, defs *Defs, id string) types.Vec2 {
	if os, ok := s.Objects[id]; ok && os.Pos != nil {
		return *os.Pos
	}
	return defs.Objects[id].Pos
}

// IsHidden reports whether an object has been hidden at runtime.
func IsHidden(s *types.State, id string) bool {
	return s.Objects[id].Hidden
}

// SetObjectState records a state override.
func SetObjectState(s *types.State, id, st string) {
	os := s.Objects[id]
	os.State = st
	s.Objects[id] = os
}

// SetObjectPos records a position override.
func SetObjectPos(s *types.State, id string, pos types.Vec2) {
	os := s.Objects[id]
	os.Pos = &pos
	s.Objects[id] = os
}

// SetHidden records a visibility override.
func SetHidden(s *types.State, id string, hidden bool) {
	os := s.Objects[id]
	os.Hidden = hidden
	s.Objects[id] = os
}

// ObjectScene returns the scene an object belongs to. Scenes belong to
// themselves; actors with no scene are present everywhere and return "".
func ObjectScene(defs *Defs, id string) string {
	def, ok := defs.Objects[id]
	if !ok {
		return ""
	}
	if def.Kind == KindScene {
		return def.ID
	}
	return def.Scene
}

// ObjectsInScene returns the sorted IDs of the visible actors present in a
// scene, including actors that belong to no scene. Carried items are in no
// scene.
func ObjectsInScene(s *types.State, defs *Defs, sceneID string) []string {
	var result []string
	for id, def := range defs.Objects {
		if def.Kind == KindScene || IsHidden(s, id) || InInventory(s, id) {
			continue
		}
		scene := def.Scene
		if os, ok := s.Objects[id]; ok && os.Scene != "" {
			scene = os.Scene
		}
		if scene == "" || scene == sceneID {
			result = append(result, id)
		}
	}
	sort.Strings(result)
	return result
}

// SetObjectScene moves an actor into another scene.
func SetObjectScene(s *types.State, id, sceneID string) {
	os := s.Objects[id]
	os.Scene = sceneID
	s.Objects[id] = os
}

// InInventory reports whether the player carries an object.
func InInventory(s *types.State, id string) bool {
	for _, item := range s.Inventory {
		if item == id {
			return true
		}
	}
	return false
}

// AddItem puts an object into the inventory. It reports false when the
// object is already carried.
func AddItem(s *types.State, id string) bool {
	if InInventory(s, id) {
		return false
	}
	s.Inventory = append(s.Inventory, id)
	return true
}

// RemoveItem takes an object out of the inventory and reports whether it
// was carried.
func RemoveItem(s *types.State, id string) bool {
	for i, item := range s.Inventory {
		if item == id {
			s.Inventory = append(s.Inventory[:i], s.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// Scenes returns the sorted IDs of every scene object.
func Scenes(defs *Defs) []string {
	var result []string
	for id, def := range defs.Objects {
		if def.Kind == KindScene {
			result = append(result, id)
		}
	}
	sort.Strings(result)
	return result
}

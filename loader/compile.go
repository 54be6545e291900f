// Package loader loads Lua game content into Go structs at compile time.
// The Lua VM is discarded after loading; nothing runs Lua at play time.
package loader

import (
	"sort"

	"github.com/nathoo/scriptcore/engine/state"
	"github.com/nathoo/scriptcore/types"
	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
)

// rawObject holds a scene or actor table before compilation.
type rawObject struct {
	id    string
	kind  string
	table *lua.LTable
}

// rawDialog holds a dialog table before compilation.
type rawDialog struct {
	id    string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	if b, ok := tbl.RawGetString(key).(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	if t, ok := tbl.RawGetString(key).(*lua.LTable); ok {
		return t
	}
	return nil
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Sequential integer keys from 1 make an array.
		if maxN := val.MaxN(); maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		return tableToAnyMap(val)
	default:
		return nil
	}
}

// tableToAnyMap converts the string-keyed fields of a Lua table to a map,
// skipping any listed keys.
func tableToAnyMap(tbl *lua.LTable, skip ...string) map[string]any {
	m := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok {
			return
		}
		for _, s := range skip {
			if string(ks) == s {
				return
			}
		}
		m[string(ks)] = toGoValue(v)
	})
	return m
}

// elements returns the array part of a Lua table as tables. Non-table
// entries are reported by their 1-based index.
func elements(tbl *lua.LTable) ([]*lua.LTable, error) {
	var out []*lua.LTable
	for i := 1; i <= tbl.MaxN(); i++ {
		t, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, errors.Errorf("entry %d is a %s, not a table", i, tbl.RawGetInt(i).Type())
		}
		out = append(out, t)
	}
	return out, nil
}

// compile converts all collected Lua data into a Defs struct.
func compile(coll *collector) (*state.Defs, error) {
	defs := &state.Defs{
		Objects: map[string]types.ObjectDef{},
		Dialogs: map[string]types.DialogDef{},
	}

	if coll.game == nil {
		return nil, errors.New("no Game{} definition found")
	}
	defs.Game = compileGame(coll.game)

	for _, raw := range coll.objects {
		if _, dup := defs.Objects[raw.id]; dup {
			return nil, errors.Errorf("duplicate object ID %q", raw.id)
		}
		obj, err := compileObject(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "compiling %s %s", raw.kind, raw.id)
		}
		defs.Objects[obj.ID] = obj
	}

	for _, tbl := range coll.defaults {
		vd, err := compileVerb(tbl)
		if err != nil {
			return nil, errors.Wrapf(err, "compiling default verb %s", getString(tbl, verbMarker))
		}
		defs.Defaults = append(defs.Defaults, vd)
	}

	for _, raw := range coll.dialogs {
		if _, dup := defs.Dialogs[raw.id]; dup {
			return nil, errors.Errorf("duplicate dialog ID %q", raw.id)
		}
		opts, err := compileOptions(raw.table)
		if err != nil {
			return nil, errors.Wrapf(err, "compiling dialog %s", raw.id)
		}
		defs.Dialogs[raw.id] = types.DialogDef{
			ID:      raw.id,
			Actor:   getString(raw.table, "actor"),
			Options: opts,
		}
	}

	return defs, nil
}

func compileGame(tbl *lua.LTable) types.GameDef {
	return types.GameDef{
		Title:   getString(tbl, "title"),
		Author:  getString(tbl, "author"),
		Version: getString(tbl, "version"),
		Start:   getString(tbl, "start"),
		Player:  getString(tbl, "player"),
		Intro:   getString(tbl, "intro"),
	}
}

func compileObject(raw rawObject) (types.ObjectDef, error) {
	tbl := raw.table
	obj := types.ObjectDef{
		ID:    raw.id,
		Kind:  raw.kind,
		Scene: getString(tbl, "scene"),
		Desc:  getString(tbl, "desc"),
		State: getString(tbl, "state"),
	}
	if p := getTable(tbl, "pos"); p != nil {
		pos, err := compilePos(p)
		if err != nil {
			return obj, err
		}
		obj.Pos = pos
	}
	if vt := getTable(tbl, "verbs"); vt != nil {
		verbs, err := elements(vt)
		if err != nil {
			return obj, errors.Wrap(err, "verbs")
		}
		for i, v := range verbs {
			if getString(v, verbMarker) == "" {
				return obj, errors.Errorf("verbs entry %d is not a Verb", i+1)
			}
			vd, err := compileVerb(v)
			if err != nil {
				return obj, errors.Wrapf(err, "verb %s", getString(v, verbMarker))
			}
			obj.Verbs = append(obj.Verbs, vd)
		}
	}
	return obj, nil
}

// compilePos accepts {x, y} or {x = .., y = ..}.
func compilePos(tbl *lua.LTable) (types.Vec2, error) {
	x, okX := tbl.RawGetString("x").(lua.LNumber)
	y, okY := tbl.RawGetString("y").(lua.LNumber)
	if !okX || !okY {
		x, okX = tbl.RawGetInt(1).(lua.LNumber)
		y, okY = tbl.RawGetInt(2).(lua.LNumber)
	}
	if !okX || !okY {
		return types.Vec2{}, errors.New("pos must be {x, y}")
	}
	return types.Vec2{X: float64(x), Y: float64(y)}, nil
}

func compileVerb(tbl *lua.LTable) (types.VerbDef, error) {
	vd := types.VerbDef{
		ID:     getString(tbl, verbMarker),
		Target: getString(tbl, "target"),
		State:  getString(tbl, "state"),
	}
	acts, err := elements(tbl)
	if err != nil {
		return vd, err
	}
	for i, a := range acts {
		typ := getString(a, "type")
		if typ == "" {
			return vd, errors.Errorf("action %d has no type", i+1)
		}
		vd.Actions = append(vd.Actions, types.ActionDef{
			Type:   typ,
			Params: tableToAnyMap(a, "type"),
		})
	}
	return vd, nil
}

func compileOptions(tbl *lua.LTable) ([]types.OptionDef, error) {
	children, err := elements(tbl)
	if err != nil {
		return nil, err
	}
	var out []types.OptionDef
	for i, c := range children {
		if !getBool(c, optionMarker, false) {
			return nil, errors.Errorf("entry %d is not an Option", i+1)
		}
		nested, err := compileOptions(c)
		if err != nil {
			return nil, errors.Wrapf(err, "option %q", getString(c, "text"))
		}
		out = append(out, types.OptionDef{
			Text:     getString(c, "text"),
			Response: getString(c, "response"),
			Verb:     getString(c, "verb"),
			Next:     getString(c, "next"),
			Visible:  getBool(c, "visible", true),
			Once:     getBool(c, "once", false),
			Options:  nested,
		})
	}
	return out, nil
}

// sortedLuaFiles returns .lua files in a directory, with game.lua first
// and the rest sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}

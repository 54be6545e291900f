package loader

import (
	"github.com/nathoo/scriptcore/engine/action"
	lua "github.com/yuin/gopher-lua"
)

// Marker fields set on tables returned by Verb and Option.
const (
	verbMarker   = "__verb"
	optionMarker = "__option"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerActionHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", start = "...", player = "..." }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// Scene "id" { ... } and Actor "id" { ... } are curried.
	L.SetGlobal("Scene", objectConstructor(L, coll, "scene"))
	L.SetGlobal("Actor", objectConstructor(L, coll, "actor"))

	// Verb "id" { target = ..., state = ..., actions... } returns the table
	// marked with its ID so an object's verbs list can hold it.
	L.SetGlobal("Verb", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			tbl.RawSetString(verbMarker, lua.LString(id))
			L.Push(tbl)
			return 1
		}))
		return 1
	}))

	// DefaultVerb "id" { actions... } registers a fallback verb.
	L.SetGlobal("DefaultVerb", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			tbl.RawSetString(verbMarker, lua.LString(id))
			coll.defaults = append(coll.defaults, tbl)
			return 0
		}))
		return 1
	}))

	// Dialog "id" { actor = "...", Option {...}, ... }
	L.SetGlobal("Dialog", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.dialogs = append(coll.dialogs, rawDialog{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// Option { text = "...", response = "...", verb = "...", next = "...", Option {...} }
	L.SetGlobal("Option", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		tbl.RawSetString(optionMarker, lua.LTrue)
		L.Push(tbl)
		return 1
	}))
}

func objectConstructor(L *lua.LState, coll *collector, kind string) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.objects = append(coll.objects, rawObject{id: id, kind: kind, table: tbl})
			return 0
		}))
		return 1
	})
}

// newAction builds an action table of type typ from fields, then copies
// every string-keyed field of the optional options table at index opts.
func newAction(L *lua.LState, typ string, opts int, fields ...any) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("type", lua.LString(typ))
	for i := 0; i+1 < len(fields); i += 2 {
		tbl.RawSetString(fields[i].(string), fields[i+1].(lua.LValue))
	}
	if o, ok := L.Get(opts).(*lua.LTable); ok {
		o.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok && string(ks) != "type" {
				tbl.RawSetString(string(ks), v)
			}
		})
	}
	return tbl
}

func registerActionHelpers(L *lua.LState) {
	// stringAction registers Name("arg", {opts}) for actions with one
	// leading string parameter.
	stringAction := func(name, typ, param string) {
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			arg := L.CheckString(1)
			L.Push(newAction(L, typ, 2, param, lua.LString(arg)))
			return 1
		}))
	}

	stringAction("Say", action.TypeSay, "text")
	stringAction("Animate", action.TypeAnimate, "anim")
	stringAction("Sound", action.TypeSound, "sound")
	stringAction("SetState", action.TypeSetState, "state")
	stringAction("StartDialog", action.TypeStartDialog, "dialog")
	stringAction("Leave", action.TypeLeave, "scene")
	stringAction("IfFlag", action.TypeIfFlag, "flag")

	// Walk(x, y, {opts})
	L.SetGlobal("Walk", L.NewFunction(func(L *lua.LState) int {
		to := L.NewTable()
		to.RawSetString("x", L.CheckNumber(1))
		to.RawSetString("y", L.CheckNumber(2))
		L.Push(newAction(L, action.TypeWalk, 3, "to", to))
		return 1
	}))

	// Wait(seconds)
	L.SetGlobal("Wait", L.NewFunction(func(L *lua.LState) int {
		L.Push(newAction(L, action.TypeWait, 0, "seconds", L.CheckNumber(1)))
		return 1
	}))

	// SetFlag("flag", value) with value defaulting to true.
	L.SetGlobal("SetFlag", L.NewFunction(func(L *lua.LState) int {
		flag := L.CheckString(1)
		value := L.OptBool(2, true)
		L.Push(newAction(L, action.TypeSetFlag, 0, "flag", lua.LString(flag), "value", lua.LBool(value)))
		return 1
	}))

	// RunVerb("actor", "verb", {target = ..., wait = ...})
	L.SetGlobal("RunVerb", L.NewFunction(func(L *lua.LState) int {
		actor := L.CheckString(1)
		verb := L.CheckString(2)
		L.Push(newAction(L, action.TypeRunVerb, 3, "actor", lua.LString(actor), "verb", lua.LString(verb)))
		return 1
	}))

	// CutMode(on) with on defaulting to true.
	L.SetGlobal("CutMode", L.NewFunction(func(L *lua.LState) int {
		L.Push(newAction(L, action.TypeCutMode, 0, "on", lua.LBool(L.OptBool(1, true))))
		return 1
	}))

	// EndDialog()
	L.SetGlobal("EndDialog", L.NewFunction(func(L *lua.LState) int {
		L.Push(newAction(L, action.TypeEndDialog, 0))
		return 1
	}))

	// Hide("actor"), Show("actor") and the inventory helpers; the actor
	// defaults to the verb's owner.
	visibility := func(name, typ string) {
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			L.Push(newAction(L, typ, 0, "actor", lua.LString(L.OptString(1, action.RefSelf))))
			return 1
		}))
	}
	visibility("Hide", action.TypeHide)
	visibility("Show", action.TypeShow)
	visibility("PickUp", action.TypePickUp)
	visibility("RemoveItem", action.TypeRemoveItem)

	// Drop("actor", {scene = ..., pos = {x, y}}) puts a carried actor down.
	L.SetGlobal("Drop", L.NewFunction(func(L *lua.LState) int {
		L.Push(newAction(L, action.TypeDrop, 2, "actor", lua.LString(L.OptString(1, action.RefSelf))))
		return 1
	}))

	// Action("type", {params}) builds an action of any registered type.
	L.SetGlobal("Action", L.NewFunction(func(L *lua.LState) int {
		typ := L.CheckString(1)
		L.Push(newAction(L, typ, 2))
		return 1
	}))
}

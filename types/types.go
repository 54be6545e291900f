// Package types defines the shared data structures for the scriptcore engine.
// This package contains only type definitions, no logic.
package types

// Intent is the parsed representation of a player command.
type Intent struct {
	Verb   string
	Object string // optional
	Target string // optional
}

// Vec2 is a position in scene coordinates.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Event is emitted by the runtime while verbs execute.
type Event struct {
	Type string
	Data map[string]any
}

// ActionDef is the authored form of a single action.
type ActionDef struct {
	Type   string
	Params map[string]any
}

// VerbDef is an authored script bound to an object. Target and State are
// optional specializations that become part of the verb's table key.
type VerbDef struct {
	ID      string
	Target  string
	State   string
	Actions []ActionDef
}

// OptionDef is one authored dialog option and its children.
type OptionDef struct {
	Text     string
	Response string
	Verb     string // defaults to "dialog"
	Next     string // "parent", a path such as "0.1", or empty
	Visible  bool
	Once     bool
	Options  []OptionDef
}

// DialogDef is an authored dialog tree owned by an actor.
type DialogDef struct {
	ID      string
	Actor   string
	Options []OptionDef
}

// ObjectDef is the base definition of an object that owns verbs.
type ObjectDef struct {
	ID    string
	Kind  string // "actor" or "scene"
	Scene string // owning scene for actors
	Desc  string
	State string
	Pos   Vec2
	Verbs []VerbDef
}

// GameDef holds game metadata from Lua.
type GameDef struct {
	Title   string
	Author  string
	Version string
	Start   string // starting scene ID
	Player  string // player actor ID
	Intro   string
}

// ObjectState holds runtime overrides for an object.
type ObjectState struct {
	State  string `json:"state,omitempty"`
	Pos    *Vec2  `json:"pos,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
	Scene  string `json:"scene,omitempty"` // set once an item is dropped elsewhere
}

// State is the complete mutable world state outside of verb cursors.
type State struct {
	Scene     string
	Objects   map[string]ObjectState
	Flags     map[string]bool
	CutMode   bool
	Dialog    string   // active dialog ID, empty when none
	Inventory []string // carried object IDs, in pickup order
	Tick      int
	Clock     float64
	RNGSeed   int64
	RNGPos    int64
}

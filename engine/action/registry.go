package action

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/nathoo/scriptcore/types"
)

// Built-in action type names.
const (
	TypeSay         = "say"
	TypeAnimate     = "animate"
	TypeSound       = "sound"
	TypeWalk        = "walk"
	TypeWait        = "wait"
	TypeSetState    = "set_state"
	TypeSetFlag     = "set_flag"
	TypeRunVerb     = "run_verb"
	TypeCutMode     = "cut_mode"
	TypeStartDialog = "start_dialog"
	TypeEndDialog   = "end_dialog"
	TypeLeave       = "leave"
	TypeIfFlag      = "if_flag"
	TypeHide        = "hide"
	TypeShow        = "show"
	TypePickUp      = "pickup"
	TypeDrop        = "drop"
	TypeRemoveItem  = "remove_item"
)

// UnknownTypeError is returned when a definition names an unregistered type.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown action type %q", e.Type)
}

// ParamError reports a parameter with the wrong shape.
type ParamError struct {
	Type  string
	Param string
	Want  string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: param %q must be %s", e.Type, e.Param, e.Want)
}

// Constructor builds a fresh action from its authored parameters.
type Constructor func(p Params) (Action, error)

// Registry maps action type names to constructors.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry returns a registry holding every built-in action.
func NewRegistry() *Registry {
	r := &Registry{ctors: make(map[string]Constructor)}
	r.Register(TypeSay, func(p Params) (Action, error) {
		text, err := p.String("text", "")
		if err != nil {
			return nil, err
		}
		return &Say{Actor: p.Actor(), Text: text, Wait: p.Bool("wait", true)}, nil
	})
	r.Register(TypeAnimate, func(p Params) (Action, error) {
		anim, err := p.String("anim", "")
		if err != nil {
			return nil, err
		}
		return &Animate{
			Actor:    p.Actor(),
			Anim:     anim,
			Duration: p.Number("duration", 1),
			Wait:     p.Bool("wait", false),
		}, nil
	})
	r.Register(TypeSound, func(p Params) (Action, error) {
		id, err := p.String("sound", "")
		if err != nil {
			return nil, err
		}
		return &Sound{
			Actor:    p.Actor(),
			Sound:    id,
			Duration: p.Number("duration", 0.5),
			Wait:     p.Bool("wait", false),
		}, nil
	})
	r.Register(TypeWalk, func(p Params) (Action, error) {
		to, err := p.Vec("to")
		if err != nil {
			return nil, err
		}
		return &Walk{Actor: p.Actor(), To: to, Wait: p.Bool("wait", true)}, nil
	})
	r.Register(TypeWait, func(p Params) (Action, error) {
		return &Wait{Seconds: p.Number("seconds", 0)}, nil
	})
	r.Register(TypeSetState, func(p Params) (Action, error) {
		state, err := p.String("state", "")
		if err != nil {
			return nil, err
		}
		return &SetState{Actor: p.Actor(), State: state}, nil
	})
	r.Register(TypeSetFlag, func(p Params) (Action, error) {
		flag, err := p.String("flag", "")
		if err != nil {
			return nil, err
		}
		return &SetFlag{Flag: flag, Value: p.Bool("value", true)}, nil
	})
	r.Register(TypeRunVerb, func(p Params) (Action, error) {
		verb, err := p.String("verb", "")
		if err != nil {
			return nil, err
		}
		target, err := p.String("target", "")
		if err != nil {
			return nil, err
		}
		return &RunVerb{Actor: p.Actor(), Verb: verb, Target: target, Wait: p.Bool("wait", true)}, nil
	})
	r.Register(TypeCutMode, func(p Params) (Action, error) {
		return &CutMode{On: p.Bool("on", true)}, nil
	})
	r.Register(TypeStartDialog, func(p Params) (Action, error) {
		id, err := p.String("dialog", "")
		if err != nil {
			return nil, err
		}
		return &StartDialog{Dialog: id}, nil
	})
	r.Register(TypeEndDialog, func(Params) (Action, error) {
		return &EndDialog{}, nil
	})
	r.Register(TypeLeave, func(p Params) (Action, error) {
		scene, err := p.String("scene", "")
		if err != nil {
			return nil, err
		}
		return &Leave{Scene: scene, Wait: p.Bool("wait", true)}, nil
	})
	r.Register(TypeIfFlag, func(p Params) (Action, error) {
		flag, err := p.String("flag", "")
		if err != nil {
			return nil, err
		}
		if flag == "" {
			return nil, &ParamError{Type: TypeIfFlag, Param: "flag", Want: "a flag name"}
		}
		return &IfFlag{Flag: flag, Value: p.Bool("value", true), Count: int(p.Number("skip", 1))}, nil
	})
	r.Register(TypeHide, func(p Params) (Action, error) {
		return &Visibility{Actor: p.Actor(), Hidden: true}, nil
	})
	r.Register(TypeShow, func(p Params) (Action, error) {
		return &Visibility{Actor: p.Actor(), Hidden: false}, nil
	})
	r.Register(TypePickUp, func(p Params) (Action, error) {
		return &PickUp{Actor: p.Actor()}, nil
	})
	r.Register(TypeDrop, func(p Params) (Action, error) {
		scene, err := p.String("scene", "")
		if err != nil {
			return nil, err
		}
		a := &Drop{Actor: p.Actor(), Scene: scene}
		if _, ok := p.m["pos"]; ok {
			pos, err := p.Vec("pos")
			if err != nil {
				return nil, err
			}
			a.Pos = &pos
		}
		return a, nil
	})
	r.Register(TypeRemoveItem, func(p Params) (Action, error) {
		return &RemoveItem{Actor: p.Actor()}, nil
	})
	return r
}

// Register adds or replaces the constructor for typ.
func (r *Registry) Register(typ string, c Constructor) {
	r.ctors[typ] = c
}

// Known reports whether typ has a constructor.
func (r *Registry) Known(typ string) bool {
	_, ok := r.ctors[typ]
	return ok
}

// Types returns every registered type name, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build creates a new action instance from def.
func (r *Registry) Build(def types.ActionDef) (Action, error) {
	c, ok := r.ctors[def.Type]
	if !ok {
		return nil, &UnknownTypeError{Type: def.Type}
	}
	return c(Params{typ: def.Type, m: def.Params})
}

// BuildAll builds a sequence of actions, stopping at the first failure.
func (r *Registry) BuildAll(defs []types.ActionDef) ([]Action, error) {
	out := make([]Action, 0, len(defs))
	for i, d := range defs {
		a, err := r.Build(d)
		if err != nil {
			return nil, errors.Wrapf(err, "action %d", i)
		}
		out = append(out, a)
	}
	return out, nil
}

// Params wraps authored action parameters with typed accessors.
type Params struct {
	typ string
	m   map[string]any
}

// NewParams wraps m for a constructor of type typ.
func NewParams(typ string, m map[string]any) Params {
	return Params{typ: typ, m: m}
}

// Actor returns the "actor" param, defaulting to the verb's owner.
func (p Params) Actor() string {
	if s, ok := p.m["actor"].(string); ok && s != "" {
		return s
	}
	return RefSelf
}

// String returns a string param, or def when absent.
func (p Params) String(key, def string) (string, error) {
	v, ok := p.m[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ParamError{Type: p.typ, Param: key, Want: "a string"}
	}
	return s, nil
}

// Bool returns a bool param, or def when absent or mistyped.
func (p Params) Bool(key string, def bool) bool {
	if b, ok := p.m[key].(bool); ok {
		return b
	}
	return def
}

// Number returns a numeric param, or def when absent or mistyped.
func (p Params) Number(key string, def float64) float64 {
	switch n := p.m[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// Vec reads a position given as {x=, y=} or {x, y}.
func (p Params) Vec(key string) (types.Vec2, error) {
	bad := &ParamError{Type: p.typ, Param: key, Want: "a position {x, y}"}
	switch v := p.m[key].(type) {
	case types.Vec2:
		return v, nil
	case map[string]any:
		x, okX := toFloat(v["x"])
		y, okY := toFloat(v["y"])
		if !okX || !okY {
			return types.Vec2{}, bad
		}
		return types.Vec2{X: x, Y: y}, nil
	case []any:
		if len(v) != 2 {
			return types.Vec2{}, bad
		}
		x, okX := toFloat(v[0])
		y, okY := toFloat(v[1])
		if !okX || !okY {
			return types.Vec2{}, bad
		}
		return types.Vec2{X: x, Y: y}, nil
	}
	return types.Vec2{}, bad
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

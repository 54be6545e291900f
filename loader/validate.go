package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/scriptcore/engine/action"
	"github.com/nathoo/scriptcore/engine/dialogue"
	"github.com/nathoo/scriptcore/engine/state"
	"github.com/nathoo/scriptcore/engine/verb"
	"github.com/nathoo/scriptcore/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// validate checks the compiled defs for referential integrity and
// consistency. Problems are reported in a stable order.
func validate(defs *state.Defs, reg *action.Registry) *ValidationError {
	ve := &ValidationError{}

	if defs.Game.Title == "" {
		ve.errorf("Game.title is required")
	}
	if defs.Game.Start == "" {
		ve.errorf("Game.start is required")
	} else if def, ok := defs.Objects[defs.Game.Start]; !ok || def.Kind != state.KindScene {
		ve.errorf("start scene %q not found in defined scenes", defs.Game.Start)
	}
	if defs.Game.Player == "" {
		ve.errorf("Game.player is required")
	} else if def, ok := defs.Objects[defs.Game.Player]; !ok || def.Kind != state.KindActor {
		ve.errorf("player %q not found in defined actors", defs.Game.Player)
	}

	started := map[string]bool{}

	for _, id := range sortedIDs(defs.Objects) {
		obj := defs.Objects[id]
		if obj.Kind == state.KindActor && obj.Scene != "" {
			if sc, ok := defs.Objects[obj.Scene]; !ok || sc.Kind != state.KindScene {
				ve.errorf("actor %q is placed in undefined scene %q", id, obj.Scene)
			}
		}
		validateVerbs("object "+id, obj.Verbs, defs, reg, started, ve)
	}
	validateVerbs("defaults", defs.Defaults, defs, reg, started, ve)

	for _, id := range sortedIDs(defs.Dialogs) {
		validateDialog(defs.Dialogs[id], defs, ve)
		if !started[id] {
			ve.warnf("dialog %q is never started", id)
		}
	}
	return ve
}

func validateVerbs(owner string, verbs []types.VerbDef, defs *state.Defs, reg *action.Registry, started map[string]bool, ve *ValidationError) {
	seen := map[string]bool{}
	for _, vd := range verbs {
		key := verb.Key(vd.ID, vd.Target, vd.State)
		if seen[key] {
			ve.errorf("%s: duplicate verb %q", owner, key)
		}
		seen[key] = true

		if vd.Target != "" {
			if _, ok := defs.Objects[vd.Target]; !ok {
				ve.warnf("%s: verb %q targets undefined object %q", owner, key, vd.Target)
			}
		}

		for i, ad := range vd.Actions {
			where := fmt.Sprintf("%s: verb %q action %d", owner, key, i+1)
			if _, err := reg.Build(ad); err != nil {
				ve.errorf("%s: %v", where, err)
				continue
			}
			validateRefs(where, ad, defs, started, ve)
		}
	}
}

// validateRefs checks the object, scene and dialog IDs an action names.
func validateRefs(where string, ad types.ActionDef, defs *state.Defs, started map[string]bool, ve *ValidationError) {
	str := func(key string) string {
		s, _ := ad.Params[key].(string)
		return s
	}

	if actor := str("actor"); actor != "" && actor != action.RefSelf && actor != action.RefTarget {
		if _, ok := defs.Objects[actor]; !ok {
			ve.errorf("%s: %s references undefined object %q", where, ad.Type, actor)
		}
	}

	switch ad.Type {
	case action.TypeLeave:
		if scene := str("scene"); scene != "" {
			if def, ok := defs.Objects[scene]; !ok || def.Kind != state.KindScene {
				ve.errorf("%s: leave references undefined scene %q", where, scene)
			}
		}
	case action.TypeStartDialog:
		id := str("dialog")
		if _, ok := defs.Dialogs[id]; !ok {
			ve.errorf("%s: start_dialog references undefined dialog %q", where, id)
		}
		started[id] = true
	case action.TypeRunVerb:
		target := str("target")
		if target != "" && target != action.RefSelf && target != action.RefTarget {
			if _, ok := defs.Objects[target]; !ok {
				ve.errorf("%s: run_verb target references undefined object %q", where, target)
			}
		}
	}
}

func validateDialog(dd types.DialogDef, defs *state.Defs, ve *ValidationError) {
	actor, ok := defs.Objects[dd.Actor]
	if !ok {
		ve.errorf("dialog %q: actor %q not found", dd.ID, dd.Actor)
	}

	d := dialogue.FromDef(dd)
	var walk func(parent dialogue.OptionID)
	walk = func(parent dialogue.OptionID) {
		for _, id := range d.Children(parent) {
			opt, _ := d.Option(id)
			path := d.Path(id)
			switch opt.Next {
			case "", dialogue.NextParent:
			default:
				if _, err := d.FindByPath(opt.Next); err != nil {
					ve.errorf("dialog %q option %s: next %q does not resolve", dd.ID, path, opt.Next)
				}
			}
			if ok && opt.Verb != "" && !hasVerb(actor.Verbs, opt.Verb) && !hasVerb(defs.Defaults, opt.Verb) {
				ve.warnf("dialog %q option %s: actor %q has no verb %q", dd.ID, path, dd.Actor, opt.Verb)
			}
			walk(id)
		}
	}
	walk(dialogue.Root)
}

func hasVerb(verbs []types.VerbDef, id string) bool {
	for _, vd := range verbs {
		if vd.ID == id {
			return true
		}
	}
	return false
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

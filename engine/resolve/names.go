package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/scriptcore/engine/state"
	"github.com/nathoo/scriptcore/types"
)

// Result holds the resolved object IDs for an intent.
type Result struct {
	ObjectID string
	TargetID string
}

// AmbiguityError indicates multiple objects matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// UnknownObjectError indicates no object matched a name.
type UnknownObjectError struct {
	Name string
}

func (e *UnknownObjectError) Error() string {
	return fmt.Sprintf("you don't see %q here", e.Name)
}

// ResolveIntent maps the object and target names of an intent to IDs.
func ResolveIntent(s *types.State, defs *state.Defs, intent types.Intent) (Result, error) {
	var res Result
	var err error

	if intent.Object != "" {
		res.ObjectID, err = ResolveObject(s, defs, intent.Object)
		if err != nil {
			return res, err
		}
	}

	if intent.Target != "" {
		res.TargetID, err = ResolveObject(s, defs, intent.Target)
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

// ResolveObject resolves a single name to an object ID. Exact IDs always
// match; otherwise the name is compared against the descriptions and IDs
// of the objects present in the current scene, the carried items and the
// scene itself.
func ResolveObject(s *types.State, defs *state.Defs, name string) (string, error) {
	if _, ok := defs.Objects[name]; ok {
		return name, nil
	}

	nameLower := strings.ToLower(name)
	candidates := state.ObjectsInScene(s, defs, s.Scene)
	candidates = append(candidates, s.Inventory...)
	if _, ok := defs.Objects[s.Scene]; ok {
		candidates = append(candidates, s.Scene)
	}

	var matches []string
	for _, id := range candidates {
		if matchesName(id, defs.Objects[id], nameLower) {
			matches = append(matches, id)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", &UnknownObjectError{Name: name}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguityError{Name: name, Candidates: matches}
	}
}

// matchesName checks the description (exact or any word, case-insensitive)
// and the ID, with spaces normalised to underscores.
func matchesName(id string, def types.ObjectDef, nameLower string) bool {
	if def.Desc != "" {
		descLower := strings.ToLower(def.Desc)
		if descLower == nameLower {
			return true
		}
		// "door" matches "oak door", "guard" matches "castle guard".
		for _, word := range strings.Fields(descLower) {
			if strings.Trim(word, ".,!?") == nameLower {
				return true
			}
		}
	}
	idLower := strings.ToLower(id)
	if idLower == nameLower {
		return true
	}
	return strings.ReplaceAll(nameLower, " ", "_") == idLower
}

// Package save implements JSON serialization and deserialization of game state.
package save

import (
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/nathoo/scriptcore/engine/dialogue"
	"github.com/nathoo/scriptcore/engine/state"
	"github.com/nathoo/scriptcore/engine/verb"
	"github.com/nathoo/scriptcore/types"
)

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version     string                              `json:"version"`
	Game        string                              `json:"game"`
	Scene       string                              `json:"scene"`
	Tick        int                                 `json:"tick"`
	Clock       float64                             `json:"clock"`
	Flags       map[string]bool                     `json:"flags"`
	Objects     map[string]types.ObjectState        `json:"objects"`
	CutMode     bool                                `json:"cut_mode"`
	Dialog      string                              `json:"dialog,omitempty"`
	Inventory   []string                            `json:"inventory,omitempty"`
	Dialogs     map[string]dialogue.Snapshot        `json:"dialogs"`
	Verbs       map[string]map[string]verb.Snapshot `json:"verbs"`
	RNGSeed     int64                               `json:"rng_seed"`
	RNGPosition int64                               `json:"rng_position"`
}

// Runtime is the interpreter state saved alongside the world: dialog
// cursors by dialog ID, and the cursors of non-idle verbs by object ID and
// verb key.
type Runtime struct {
	Dialogs map[string]dialogue.Snapshot
	Verbs   map[string]map[string]verb.Snapshot
}

// Save serializes game state to JSON bytes.
func Save(s *types.State, defs *state.Defs, rt Runtime) ([]byte, error) {
	data := SaveData{
		Version:     defs.Game.Version,
		Game:        defs.Game.Title,
		Scene:       s.Scene,
		Tick:        s.Tick,
		Clock:       s.Clock,
		Flags:       s.Flags,
		Objects:     s.Objects,
		CutMode:     s.CutMode,
		Dialog:      s.Dialog,
		Inventory:   s.Inventory,
		Dialogs:     rt.Dialogs,
		Verbs:       rt.Verbs,
		RNGSeed:     s.RNGSeed,
		RNGPosition: s.RNGPos,
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding save")
	}
	return out, nil
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, errors.Wrap(err, "decoding save")
	}
	// Ensure maps are never nil after load.
	if sd.Flags == nil {
		sd.Flags = map[string]bool{}
	}
	if sd.Objects == nil {
		sd.Objects = map[string]types.ObjectState{}
	}
	if sd.Dialogs == nil {
		sd.Dialogs = map[string]dialogue.Snapshot{}
	}
	if sd.Verbs == nil {
		sd.Verbs = map[string]map[string]verb.Snapshot{}
	}
	return &sd, nil
}

// ApplySave applies loaded world state onto a state. Verb and dialog
// cursors are applied by the engine, which owns them.
func ApplySave(s *types.State, sd *SaveData) {
	s.Scene = sd.Scene
	s.Tick = sd.Tick
	s.Clock = sd.Clock
	s.Flags = sd.Flags
	s.Objects = sd.Objects
	s.CutMode = sd.CutMode
	s.Dialog = sd.Dialog
	s.Inventory = sd.Inventory
	s.RNGSeed = sd.RNGSeed
	s.RNGPos = sd.RNGPosition
}

// WriteFile writes save bytes under dir, creating it if needed, and
// returns the file's path.
func WriteFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating save directory %s", dir)
	}
	path := filepath.Join(dir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing save %s", path)
	}
	return path, nil
}

// ReadFile reads the save called name from dir.
func ReadFile(dir, name string) ([]byte, error) {
	path := filepath.Join(dir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading save %s", path)
	}
	return data, nil
}

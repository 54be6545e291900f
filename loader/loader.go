package loader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nathoo/scriptcore/engine/action"
	"github.com/nathoo/scriptcore/engine/state"
	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	game     *lua.LTable
	objects  []rawObject
	defaults []*lua.LTable
	dialogs  []rawDialog
}

// Option configures a load.
type Option func(*options)

type options struct {
	registry *action.Registry
	log      *zap.Logger
}

// WithRegistry validates action types against r instead of the built-ins.
func WithRegistry(r *action.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithLogger sets the logger that receives validation warnings.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// Load reads all .lua files from dir, compiles them into game definitions,
// validates references, and returns the immutable Defs. The Lua VM is
// discarded after loading.
func Load(dir string, opts ...Option) (*state.Defs, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = action.NewRegistry()
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading game directory %s", dir)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, errors.Errorf("no .lua files found in %s", dir)
	}

	// game.lua first, rest alphabetical.
	luaFiles = sortedLuaFiles(luaFiles)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		if err := L.DoFile(filepath.Join(dir, f)); err != nil {
			return nil, errors.Wrapf(err, "executing %s", f)
		}
	}

	defs, err := compile(coll)
	if err != nil {
		return nil, errors.Wrap(err, "compiling game data")
	}

	ve := validate(defs, o.registry)
	for _, w := range ve.Warnings {
		o.log.Warn("game data", zap.String("warning", w))
	}
	if len(ve.Errors) > 0 {
		return nil, ve
	}

	o.log.Info("game loaded",
		zap.String("dir", dir),
		zap.String("title", defs.Game.Title),
		zap.Int("files", len(luaFiles)),
		zap.Int("objects", len(defs.Objects)),
		zap.Int("dialogs", len(defs.Dialogs)))
	return defs, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
		"require", "module",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Scripts share the engine's seeded RNG; reseeding would break replays.
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
	}
}

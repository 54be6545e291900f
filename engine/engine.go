// Package engine is the script runtime. It owns the callback queue, the
// per-object and default verb tables, the dialogs and the host, and exposes
// the entry points shared by player input, the tester bot and replay:
// RunVerb, CancelVerb, SelectOption and Goto. Tick drives everything.
package engine

import (
	"sort"
	"strings"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nathoo/scriptcore/engine/action"
	"github.com/nathoo/scriptcore/engine/dialogue"
	"github.com/nathoo/scriptcore/engine/effects"
	"github.com/nathoo/scriptcore/engine/events"
	"github.com/nathoo/scriptcore/engine/parser"
	"github.com/nathoo/scriptcore/engine/queue"
	"github.com/nathoo/scriptcore/engine/recorder"
	"github.com/nathoo/scriptcore/engine/resolve"
	"github.com/nathoo/scriptcore/engine/save"
	"github.com/nathoo/scriptcore/engine/state"
	"github.com/nathoo/scriptcore/engine/verb"
	"github.com/nathoo/scriptcore/types"
)

// InitVerb is run on a scene object when the scene is entered.
const InitVerb = "init"

// Default verbs run once per session: the first when a new game starts,
// the second after a saved game is loaded.
const (
	InitNewGameVerb   = "init_new_game"
	InitSavedGameVerb = "init_saved_game"
)

// DefaultMissTTL is how long a missing verb is reported only once.
const DefaultMissTTL = 5 * time.Second

var (
	ErrNoDialog        = errors.New("no active dialog")
	ErrDialogNotActive = errors.New("dialog is not active")
	ErrEmptyCommand    = errors.New("what do you want to do?")
)

// Host performs external effects and reports their completion through the
// engine's queue.
type Host interface {
	action.Host
	Update(dt float64)
	Busy() bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by the runtime.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithQueue sets the callback queue. A custom host must complete effects
// into this queue.
func WithQueue(q *queue.Queue) Option {
	return func(e *Engine) { e.queue = q }
}

// WithHost replaces the simulated host.
func WithHost(h Host) Option {
	return func(e *Engine) { e.host = h }
}

// WithRegistry sets the action registry used to build verbs.
func WithRegistry(r *action.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithRecorder sets the recorder.
func WithRecorder(r *recorder.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithMissTTL sets how long a missing verb is reported at warn level only
// once. Zero reports every miss.
func WithMissTTL(d time.Duration) Option {
	return func(e *Engine) { e.missTTL = d }
}

// WithSeed seeds the RNG.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.State.RNGSeed = seed }
}

// Engine holds the game definitions, mutable state and the script runtime.
type Engine struct {
	Defs  *state.Defs
	State *types.State
	RNG   *RNG

	log      *zap.Logger
	queue    *queue.Queue
	bus      *events.Bus
	host     Host
	registry *action.Registry
	recorder *recorder.Recorder
	bot      *Bot
	world    *world
	rt       *verb.Runtime

	missTTL time.Duration
	misses  cache.Cache[string, struct{}]

	tables   map[string]*resolve.Table
	defaults *resolve.Table
	dialogs  map[string]*dialogue.Dialog
}

// New builds the runtime for defs. Every authored action is constructed up
// front, so an unknown action type or bad parameter fails here.
func New(defs *state.Defs, opts ...Option) (*Engine, error) {
	e := &Engine{
		Defs:    defs,
		State:   state.NewState(defs),
		missTTL: DefaultMissTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.queue == nil {
		e.queue = queue.New(e.log)
	}
	if e.registry == nil {
		e.registry = action.NewRegistry()
	}
	if e.host == nil {
		e.host = effects.NewSim(e.queue, e.log)
	}
	if e.recorder == nil {
		e.recorder = recorder.New(e.log)
	}
	if e.missTTL > 0 {
		e.misses = cache.NewCache[string, struct{}]().WithTTL(e.missTTL).WithMaxKeys(1024)
	}
	e.bus = events.NewBus()
	e.RNG = NewRNG(e.State.RNGSeed)
	e.rt = &verb.Runtime{Queue: e.queue, Log: e.log, Bus: e.bus}
	e.world = &world{e: e}

	e.tables = make(map[string]*resolve.Table, len(defs.Objects))
	for _, id := range sortedKeys(defs.Objects) {
		t, err := e.buildTable(defs.Objects[id].Verbs)
		if err != nil {
			return nil, errors.Wrapf(err, "object %s", id)
		}
		e.tables[id] = t
	}
	var err error
	if e.defaults, err = e.buildTable(defs.Defaults); err != nil {
		return nil, errors.Wrap(err, "default verbs")
	}

	e.dialogs = make(map[string]*dialogue.Dialog, len(defs.Dialogs))
	for id, def := range defs.Dialogs {
		e.dialogs[id] = dialogue.FromDef(def)
	}
	return e, nil
}

func (e *Engine) buildTable(defs []types.VerbDef) (*resolve.Table, error) {
	t := resolve.NewTable()
	for _, vd := range defs {
		acts, err := e.registry.BuildAll(vd.Actions)
		if err != nil {
			return nil, errors.Wrapf(err, "verb %s", verb.Key(vd.ID, vd.Target, vd.State))
		}
		if err := t.Add(verb.New(vd.ID, vd.Target, vd.State, acts, e.rt)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Start runs the init_new_game default verb, then enters the start scene
// and runs its init verb.
func (e *Engine) Start() error {
	e.runSessionVerb(InitNewGameVerb, e.Defs.Game.Start)
	return e.world.ChangeScene(e.Defs.Game.Start)
}

// runSessionVerb runs a default verb that belongs to no object, if the game
// defines it.
func (e *Engine) runSessionVerb(verbID, self string) {
	v, ok := e.defaults.Get(verbID)
	if !ok {
		return
	}
	e.log.Debug("run session verb", zap.String("verb", verbID))
	v.Run(e.env(self, ""), nil)
}

// RestoreRNG re-creates the RNG from seed and advances to the saved position.
func (e *Engine) RestoreRNG(seed int64, position int64) {
	e.RNG = RestoreRNG(seed, position)
}

func (e *Engine) env(self, target string) *action.Env {
	return &action.Env{Host: e.host, World: e.world, Self: self, Target: target}
}

// invoke resolves verbID on objectID against the object's current state and
// runs it. A miss is reported and returned; it never aborts anything.
func (e *Engine) invoke(objectID, verbID, target string, done queue.Callback) (*verb.Verb, error) {
	if _, ok := e.Defs.Objects[objectID]; !ok {
		e.reportMiss(objectID, verbID, target)
		return nil, &resolve.UnknownObjectError{Name: objectID}
	}
	st := state.ObjectState(e.State, e.Defs, objectID)
	v, err := resolve.Resolve(e.tables[objectID], e.defaults, objectID, verbID, st, target)
	if err != nil {
		e.reportMiss(objectID, verbID, target)
		return nil, err
	}
	e.log.Debug("run verb",
		zap.String("object", objectID),
		zap.String("verb", v.Key()),
		zap.String("target", target))
	v.Run(e.env(objectID, target), done)
	return v, nil
}

// reportMiss logs a verb miss at warn level the first time it is seen
// within the miss TTL and at debug level afterwards.
func (e *Engine) reportMiss(objectID, verbID, target string) {
	fields := []zap.Field{
		zap.String("object", objectID),
		zap.String("verb", verbID),
		zap.String("target", target),
	}
	key := objectID + ":" + verb.Key(verbID, target, "")
	if e.misses != nil {
		if _, seen := e.misses.Get(key); seen {
			e.log.Debug("verb not found", fields...)
		} else {
			e.misses.Add(key, struct{}{})
			e.log.Warn("verb not found", fields...)
		}
	} else {
		e.log.Warn("verb not found", fields...)
	}
	e.bus.Emit(events.New(events.VerbMissing, "object", objectID, "verb", verbID, "target", target))
}

// lookup resolves a verb for an existing object without running it.
func (e *Engine) lookup(objectID, verbID, target string) (*verb.Verb, bool) {
	if _, ok := e.Defs.Objects[objectID]; !ok {
		return nil, false
	}
	st := state.ObjectState(e.State, e.Defs, objectID)
	v, err := resolve.Resolve(e.tables[objectID], e.defaults, objectID, verbID, st, target)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (e *Engine) run(actorID, verbID, target string) (*verb.Verb, error) {
	e.recorder.RecordVerb(actorID, verbID, target)
	return e.invoke(actorID, verbID, target, nil)
}

// RunVerb resolves and runs a verb on an object. It returns the verb that
// ran, or nil when nothing matched.
func (e *Engine) RunVerb(actorID, verbID, target string) *verb.Verb {
	v, _ := e.run(actorID, verbID, target)
	return v
}

// UseItem uses item on target. When the item has no use verb of its own,
// the target's use verb runs with the item as its target instead.
func (e *Engine) UseItem(itemID, targetID string) *verb.Verb {
	v, _ := e.use(itemID, targetID)
	return v
}

func (e *Engine) use(itemID, targetID string) (*verb.Verb, error) {
	_, itemOK := e.Defs.Objects[itemID]
	_, targetOK := e.Defs.Objects[targetID]
	if itemOK && targetOK {
		st := state.ObjectState(e.State, e.Defs, itemID)
		if _, own := e.tables[itemID].Lookup(parser.Use, targetID, st); !own {
			return e.run(targetID, parser.Use, itemID)
		}
	}
	return e.run(itemID, parser.Use, targetID)
}

// Inventory returns the IDs of the carried objects, in pickup order.
func (e *Engine) Inventory() []string {
	return append([]string(nil), e.State.Inventory...)
}

// CancelVerb cancels the verb that RunVerb would resolve for the same
// arguments. It reports whether a busy verb was cancelled. An unknown
// object or verb is reported like a RunVerb miss.
func (e *Engine) CancelVerb(actorID, verbID, target string) bool {
	if _, ok := e.Defs.Objects[actorID]; !ok {
		e.reportMiss(actorID, verbID, target)
		return false
	}
	v, ok := e.lookup(actorID, verbID, target)
	if !ok {
		e.reportMiss(actorID, verbID, target)
		return false
	}
	if !v.Busy() {
		return false
	}
	v.Cancel()
	return true
}

// SelectOption chooses the i-th visible option of dialogID, which must be
// the active dialog. The dialog ends once it has no visible options left.
func (e *Engine) SelectOption(dialogID string, i int) error {
	id := e.State.Dialog
	if id == "" {
		return ErrNoDialog
	}
	if dialogID != id {
		return errors.Wrapf(ErrDialogNotActive, "%s (active: %s)", dialogID, id)
	}
	d, ok := e.dialogs[id]
	if !ok {
		return errors.Errorf("unknown dialog %q", id)
	}

	opt, err := d.Select(i, func(actorID, verbID string) {
		e.invoke(actorID, verbID, "", nil)
	})
	var ie *dialogue.IndexError
	if errors.As(err, &ie) {
		return err
	}
	e.recorder.RecordOption(id, i)
	if opt.Response != "" {
		e.host.Say(d.Actor, opt.Response, nil)
	}
	e.bus.Emit(events.New(events.OptionSelected,
		"dialog", id, "option", i, "text", opt.Text))

	if e.State.Dialog == id && d.Ended() {
		e.world.EndDialog()
	}
	return err
}

// Goto walks the player to pos.
func (e *Engine) Goto(pos types.Vec2) {
	e.recorder.RecordGoto(pos)
	player := e.Defs.Game.Player
	if player == "" {
		e.log.Warn("goto without a player actor")
		return
	}
	state.SetObjectPos(e.State, player, pos)
	e.host.Walk(player, pos, nil)
}

// Command parses player text and runs the resulting verb. With no object
// the verb runs on the current scene.
func (e *Engine) Command(input string) (*verb.Verb, error) {
	intent := parser.Parse(input)
	if intent.Verb == "" {
		return nil, ErrEmptyCommand
	}
	res, err := resolve.ResolveIntent(e.State, e.Defs, intent)
	if err != nil {
		return nil, err
	}
	obj := res.ObjectID
	if obj == "" {
		obj = e.State.Scene
	}
	if intent.Verb == parser.Use && res.TargetID != "" {
		return e.use(obj, res.TargetID)
	}
	return e.run(obj, intent.Verb, res.TargetID)
}

// Tick advances the runtime by dt seconds: the host completes due effects,
// the recorder and bot feed input, then the queue is drained exactly once.
// It returns the number of callbacks delivered.
func (e *Engine) Tick(dt float64) int {
	e.State.Tick++
	e.State.Clock += dt

	e.host.Update(dt)
	e.recorder.Update(dt, e)
	if e.bot != nil {
		e.bot.Update(dt, e)
	}
	n := e.queue.Drain()

	e.State.RNGSeed = e.RNG.Seed()
	e.State.RNGPos = e.RNG.Position()
	return n
}

// Busy reports whether any effect, callback or verb is outstanding.
func (e *Engine) Busy() bool {
	if e.host.Busy() || e.queue.Len() > 0 {
		return true
	}
	if e.defaults.Busy() {
		return true
	}
	for _, t := range e.tables {
		if t.Busy() {
			return true
		}
	}
	return false
}

// InCutMode reports whether a cut-scene has taken control from the player.
func (e *Engine) InCutMode() bool { return e.State.CutMode }

// CurrentDialog returns the active dialog ID, or "".
func (e *Engine) CurrentDialog() string { return e.State.Dialog }

// Dialog returns a dialog by ID.
func (e *Engine) Dialog(id string) (*dialogue.Dialog, bool) {
	d, ok := e.dialogs[id]
	return d, ok
}

// Verb returns a verb by table key. An empty objectID looks in the
// default table.
func (e *Engine) Verb(objectID, key string) (*verb.Verb, bool) {
	if objectID == "" {
		return e.defaults.Get(key)
	}
	return e.tables[objectID].Get(key)
}

// Table returns the verb table of an object.
func (e *Engine) Table(objectID string) *resolve.Table { return e.tables[objectID] }

// Defaults returns the default verb table.
func (e *Engine) Defaults() *resolve.Table { return e.defaults }

// Objects returns the sorted IDs of every object.
func (e *Engine) Objects() []string { return sortedKeys(e.Defs.Objects) }

func (e *Engine) Bus() *events.Bus { return e.bus }
func (e *Engine) Queue() *queue.Queue { return e.queue }
func (e *Engine) Host() Host { return e.host }
func (e *Engine) Recorder() *recorder.Recorder { return e.recorder }
func (e *Engine) Registry() *action.Registry { return e.registry }
func (e *Engine) Logger() *zap.Logger { return e.log }

// Describe produces the description of the current scene.
func (e *Engine) Describe() []string {
	scene, ok := e.Defs.Objects[e.State.Scene]
	if !ok {
		return []string{"You are somewhere unknown."}
	}

	var output []string
	if scene.Desc != "" {
		output = append(output, scene.Desc)
	}

	// List visible actors, leaving out the player.
	var names []string
	for _, id := range state.ObjectsInScene(e.State, e.Defs, e.State.Scene) {
		if id == e.Defs.Game.Player {
			continue
		}
		names = append(names, id)
	}
	if len(names) > 0 {
		output = append(output, "You see: "+strings.Join(names, ", ")+".")
	}
	return output
}

// DescribeInventory lists what the player carries.
func (e *Engine) DescribeInventory() string {
	if len(e.State.Inventory) == 0 {
		return "You carry nothing."
	}
	return "You carry: " + strings.Join(e.State.Inventory, ", ") + "."
}

// Save serializes the world state plus the cursors of every non-idle verb
// and every dialog.
func (e *Engine) Save() ([]byte, error) {
	rt := save.Runtime{
		Dialogs: make(map[string]dialogue.Snapshot, len(e.dialogs)),
		Verbs:   map[string]map[string]verb.Snapshot{},
	}
	for id, d := range e.dialogs {
		rt.Dialogs[id] = d.Snapshot()
	}
	collect := func(owner string, t *resolve.Table) {
		for _, v := range t.Verbs() {
			if v.Status() == verb.Idle {
				continue
			}
			if rt.Verbs[owner] == nil {
				rt.Verbs[owner] = map[string]verb.Snapshot{}
			}
			rt.Verbs[owner][v.Key()] = v.Snapshot()
		}
	}
	for _, id := range sortedKeys(e.tables) {
		collect(id, e.tables[id])
	}
	collect("", e.defaults)

	e.State.RNGSeed = e.RNG.Seed()
	e.State.RNGPos = e.RNG.Position()
	return save.Save(e.State, e.Defs, rt)
}

// LoadSave decodes and restores a save produced by Save, then runs the
// init_saved_game default verb.
func (e *Engine) LoadSave(data []byte) error {
	sd, err := save.Load(data)
	if err != nil {
		return err
	}
	if err := e.Restore(sd); err != nil {
		return err
	}
	e.runSessionVerb(InitSavedGameVerb, e.State.Scene)
	return nil
}

// Restore replaces the runtime state with sd. Pending effects and
// callbacks are dropped; verbs that were waiting resume on the next drain.
// A save whose dialogs do not fit the loaded game is rejected before
// anything changes.
func (e *Engine) Restore(sd *save.SaveData) error {
	for _, id := range sortedKeys(sd.Dialogs) {
		if d, ok := e.dialogs[id]; ok {
			if err := d.Check(sd.Dialogs[id]); err != nil {
				return errors.Wrapf(err, "dialog %s", id)
			}
		}
	}

	save.ApplySave(e.State, sd)
	e.RestoreRNG(sd.RNGSeed, sd.RNGPosition)

	e.queue.Clear()
	if r, ok := e.host.(interface{ Reset() }); ok {
		r.Reset()
	}
	e.recorder.Stop()

	// Every verb goes idle first, which also invalidates old completions.
	for _, v := range e.defaults.Verbs() {
		v.Restore(verb.Snapshot{}, nil)
	}
	for _, t := range e.tables {
		for _, v := range t.Verbs() {
			v.Restore(verb.Snapshot{}, nil)
		}
	}

	var restored []*verb.Verb
	for _, owner := range sortedKeys(sd.Verbs) {
		t := e.defaults
		if owner != "" {
			t = e.tables[owner]
		}
		if t == nil {
			e.log.Warn("save references unknown object", zap.String("object", owner))
			continue
		}
		snaps := sd.Verbs[owner]
		for _, key := range sortedKeys(snaps) {
			v, ok := t.Get(key)
			if !ok {
				e.log.Warn("save references unknown verb",
					zap.String("object", owner), zap.String("verb", key))
				continue
			}
			snap := snaps[key]
			self := snap.Self
			if self == "" {
				self = owner
			}
			v.Restore(snap, e.env(self, snap.Target))
			restored = append(restored, v)
		}
	}
	// Nested verbs are busy again only now, so callers relink afterwards.
	for _, v := range restored {
		v.Relink()
	}

	for _, id := range sortedKeys(sd.Dialogs) {
		d, ok := e.dialogs[id]
		if !ok {
			continue
		}
		if err := d.Restore(sd.Dialogs[id]); err != nil {
			return errors.Wrapf(err, "dialog %s", id)
		}
	}
	return nil
}

package action

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/nathoo/scriptcore/engine/queue"
	"github.com/nathoo/scriptcore/types"
)

// Say shows a line of text spoken by an actor.
type Say struct {
	Actor string
	Text  string
	Wait  bool

	cb queue.Callback
}

func (a *Say) Prepare(cb queue.Callback) bool {
	a.cb = nil
	if a.Wait {
		a.cb = cb
	}
	return a.Wait
}

func (a *Say) Run(env *Env) error {
	env.Host.Say(env.Actor(a.Actor), a.Text, a.cb)
	return nil
}

func (a *Say) Describe() string { return fmt.Sprintf("say(%s)", a.Actor) }

// Animate plays an animation on an actor.
type Animate struct {
	Actor    string
	Anim     string
	Duration float64
	Wait     bool

	cb queue.Callback
}

func (a *Animate) Prepare(cb queue.Callback) bool {
	a.cb = nil
	if a.Wait {
		a.cb = cb
	}
	return a.Wait
}

func (a *Animate) Run(env *Env) error {
	if a.Anim == "" {
		return errors.New("animate: no animation given")
	}
	env.Host.Animate(env.Actor(a.Actor), a.Anim, a.Duration, a.cb)
	return nil
}

func (a *Animate) Describe() string { return fmt.Sprintf("animate(%s, %s)", a.Actor, a.Anim) }

// Sound plays a sound effect.
type Sound struct {
	Actor    string
	Sound    string
	Duration float64
	Wait     bool

	cb queue.Callback
}

func (a *Sound) Prepare(cb queue.Callback) bool {
	a.cb = nil
	if a.Wait {
		a.cb = cb
	}
	return a.Wait
}

func (a *Sound) Run(env *Env) error {
	env.Host.PlaySound(env.Actor(a.Actor), a.Sound, a.Duration, a.cb)
	return nil
}

func (a *Sound) Describe() string { return fmt.Sprintf("sound(%s)", a.Sound) }

// Walk moves an actor to a position.
type Walk struct {
	Actor string
	To    types.Vec2
	Wait  bool

	cb queue.Callback
}

func (a *Walk) Prepare(cb queue.Callback) bool {
	a.cb = nil
	if a.Wait {
		a.cb = cb
	}
	return a.Wait
}

func (a *Walk) Run(env *Env) error {
	id := env.Actor(a.Actor)
	env.World.SetObjectPos(id, a.To)
	env.Host.Walk(id, a.To, a.cb)
	return nil
}

func (a *Walk) Describe() string {
	return fmt.Sprintf("walk(%s, %.0f,%.0f)", a.Actor, a.To.X, a.To.Y)
}

// Wait pauses the verb for a number of seconds.
type Wait struct {
	Seconds float64

	cb queue.Callback
}

func (a *Wait) Prepare(cb queue.Callback) bool {
	a.cb = cb
	return a.Seconds > 0
}

func (a *Wait) Run(env *Env) error {
	if a.Seconds > 0 {
		env.Host.Delay(a.Seconds, a.cb)
	}
	return nil
}

func (a *Wait) Describe() string { return fmt.Sprintf("wait(%gs)", a.Seconds) }

// SetState changes an object's state, which selects state-specialized verbs.
type SetState struct {
	Actor string
	State string
}

func (a *SetState) Run(env *Env) error {
	env.World.SetObjectState(env.Actor(a.Actor), a.State)
	return nil
}

func (a *SetState) Describe() string { return fmt.Sprintf("set_state(%s, %q)", a.Actor, a.State) }

// SetFlag sets a world flag.
type SetFlag struct {
	Flag  string
	Value bool
}

func (a *SetFlag) Run(env *Env) error {
	env.World.SetFlag(a.Flag, a.Value)
	return nil
}

func (a *SetFlag) Describe() string { return fmt.Sprintf("set_flag(%s)", a.Flag) }

// RunVerb runs a verb on another object. With Wait the calling verb
// suspends until the nested verb finishes.
type RunVerb struct {
	Actor  string
	Verb   string
	Target string
	Wait   bool

	cb      queue.Callback
	started Invocation
}

func (a *RunVerb) Prepare(cb queue.Callback) bool {
	a.cb = nil
	if a.Wait {
		a.cb = cb
	}
	return a.Wait
}

func (a *RunVerb) target(env *Env) string {
	if a.Target == "" {
		return ""
	}
	return env.Actor(a.Target)
}

func (a *RunVerb) Run(env *Env) error {
	a.started = nil
	inv, err := env.World.Invoke(env.Actor(a.Actor), a.Verb, a.target(env), a.cb)
	if err != nil {
		return err
	}
	a.started = inv
	return nil
}

// Cancel cancels the nested verb if it is still running.
func (a *RunVerb) Cancel() {
	if a.started != nil && !a.started.Finished() {
		a.started.Cancel()
	}
}

// Relink reattaches to the nested verb after a load, so cancelling the
// caller still reaches it.
func (a *RunVerb) Relink(env *Env) {
	a.started = nil
	if inv, ok := env.World.Running(env.Actor(a.Actor), a.Verb, a.target(env)); ok {
		a.started = inv
	}
}

func (a *RunVerb) Describe() string { return fmt.Sprintf("run_verb(%s, %s)", a.Actor, a.Verb) }

// CutMode enters or leaves cut-scene mode.
type CutMode struct {
	On bool
}

func (a *CutMode) Run(env *Env) error {
	env.World.SetCutMode(a.On)
	return nil
}

func (a *CutMode) Describe() string { return fmt.Sprintf("cut_mode(%t)", a.On) }

// StartDialog makes a dialog the active one.
type StartDialog struct {
	Dialog string
}

func (a *StartDialog) Run(env *Env) error {
	return env.World.StartDialog(a.Dialog)
}

func (a *StartDialog) Describe() string { return fmt.Sprintf("start_dialog(%s)", a.Dialog) }

// EndDialog closes the active dialog.
type EndDialog struct{}

func (a *EndDialog) Run(env *Env) error {
	env.World.EndDialog()
	return nil
}

func (a *EndDialog) Describe() string { return "end_dialog" }

// Leave transitions to another scene.
type Leave struct {
	Scene string
	Wait  bool

	cb queue.Callback
}

func (a *Leave) Prepare(cb queue.Callback) bool {
	a.cb = nil
	if a.Wait {
		a.cb = cb
	}
	return a.Wait
}

func (a *Leave) Run(env *Env) error {
	if err := env.World.ChangeScene(a.Scene); err != nil {
		return err
	}
	env.Host.Transition(a.Scene, a.cb)
	return nil
}

func (a *Leave) Describe() string { return fmt.Sprintf("leave(%s)", a.Scene) }

// IfFlag skips the next Count actions when Flag does not equal Value.
type IfFlag struct {
	Flag  string
	Value bool
	Count int

	skip int
}

func (a *IfFlag) Run(env *Env) error {
	a.skip = 0
	if env.World.Flag(a.Flag) != a.Value {
		a.skip = a.Count
	}
	return nil
}

func (a *IfFlag) Skip() int { return a.skip }

func (a *IfFlag) Describe() string {
	return fmt.Sprintf("if_flag(%s=%t, skip %d)", a.Flag, a.Value, a.Count)
}

// Visibility hides or shows an object.
type Visibility struct {
	Actor  string
	Hidden bool
}

func (a *Visibility) Run(env *Env) error {
	env.World.SetHidden(env.Actor(a.Actor), a.Hidden)
	return nil
}

func (a *Visibility) Describe() string {
	if a.Hidden {
		return fmt.Sprintf("hide(%s)", a.Actor)
	}
	return fmt.Sprintf("show(%s)", a.Actor)
}

// PickUp moves an actor into the player's inventory.
type PickUp struct {
	Actor string
}

func (a *PickUp) Run(env *Env) error {
	return env.World.AddItem(env.Actor(a.Actor))
}

func (a *PickUp) Describe() string { return fmt.Sprintf("pickup(%s)", a.Actor) }

// Drop puts a carried actor down, in Scene or in the current scene.
type Drop struct {
	Actor string
	Scene string
	Pos   *types.Vec2
}

func (a *Drop) Run(env *Env) error {
	id := env.Actor(a.Actor)
	if err := env.World.DropItem(id, a.Scene); err != nil {
		return err
	}
	if a.Pos != nil {
		env.World.SetObjectPos(id, *a.Pos)
	}
	return nil
}

func (a *Drop) Describe() string { return fmt.Sprintf("drop(%s)", a.Actor) }

// RemoveItem takes a carried actor out of the game.
type RemoveItem struct {
	Actor string
}

func (a *RemoveItem) Run(env *Env) error {
	return env.World.RemoveItem(env.Actor(a.Actor))
}

func (a *RemoveItem) Describe() string { return fmt.Sprintf("remove_item(%s)", a.Actor) }

// Package action defines the contract between verbs and the commands they
// run, plus the built-in command set and the registry that builds actions
// from authored definitions.
package action

import (
	"fmt"

	"github.com/nathoo/scriptcore/engine/queue"
	"github.com/nathoo/scriptcore/types"
)

// Actor references understood by every built-in action.
const (
	RefSelf   = "$self"
	RefTarget = "$target"
)

// Action is a single command. Run fires its side effects; a returned error
// (or panic) is treated by the interpreter as an immediate completion.
type Action interface {
	Run(env *Env) error
}

// Suspender is implemented by actions that may complete after Run returns.
// Prepare is called right before Run with the continuation to notify, and
// reports whether this run will notify it.
type Suspender interface {
	Action
	Prepare(cb queue.Callback) bool
}

// Canceller is implemented by actions that start nested invocations.
type Canceller interface {
	Cancel()
}

// Relinker is implemented by actions that hold a nested invocation and can
// find it again after a load.
type Relinker interface {
	Relink(env *Env)
}

// Brancher is implemented by actions that skip some of the actions that
// follow them. Skip is read right after Run.
type Brancher interface {
	Skip() int
}

// Describer gives an action a readable identity for logs and traces.
type Describer interface {
	Describe() string
}

// Describe returns a printable identity for a.
func Describe(a Action) string {
	if d, ok := a.(Describer); ok {
		return d.Describe()
	}
	return fmt.Sprintf("%T", a)
}

// Host is the external side of long-running effects. Every method that
// takes a callback must deliver it exactly once through the callback queue,
// never from inside the call itself. A nil callback means fire-and-forget.
type Host interface {
	Say(actorID, text string, cb queue.Callback)
	Animate(actorID, anim string, duration float64, cb queue.Callback)
	PlaySound(actorID, soundID string, duration float64, cb queue.Callback)
	Walk(actorID string, to types.Vec2, cb queue.Callback)
	Transition(sceneID string, cb queue.Callback)
	Delay(seconds float64, cb queue.Callback)
}

// Invocation is a running nested verb.
type Invocation interface {
	Cancel()
	Finished() bool
}

// World is the runtime side available to actions.
type World interface {
	ObjectState(objectID string) string
	SetObjectState(objectID, state string)
	SetObjectPos(objectID string, pos types.Vec2)
	SetHidden(objectID string, hidden bool)
	Flag(name string) bool
	SetFlag(name string, value bool)
	SetCutMode(on bool)
	StartDialog(dialogID string) error
	EndDialog()
	ChangeScene(sceneID string) error
	// AddItem moves an object into the player's inventory.
	AddItem(objectID string) error
	// DropItem takes a carried object out of the inventory and places it in
	// sceneID, or in the current scene when sceneID is empty.
	DropItem(objectID, sceneID string) error
	// RemoveItem takes a carried object out of the game.
	RemoveItem(objectID string) error
	// Invoke resolves and runs a verb on another object. done is enqueued
	// once that verb finishes or is cancelled.
	Invoke(objectID, verbID, target string, done queue.Callback) (Invocation, error)
	// Running returns the busy verb that Invoke would resolve to, without
	// running anything.
	Running(objectID, verbID, target string) (Invocation, bool)
}

// Env is what an action sees while it runs.
type Env struct {
	Host   Host
	World  World
	Self   string // object owning the running verb
	Target string // target the verb was run with, may be empty
}

// Actor maps an actor reference to an object ID.
func (e *Env) Actor(ref string) string {
	switch ref {
	case "", RefSelf:
		return e.Self
	case RefTarget:
		return e.Target
	default:
		return ref
	}
}

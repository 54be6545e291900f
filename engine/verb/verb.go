// Package verb implements the resumable interpreter that runs a verb's
// action list. A verb runs synchronous actions back to back and parks on
// the first action that completes later; the completion, delivered through
// the callback queue, resumes it where it stopped.
package verb

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nathoo/scriptcore/engine/action"
	"github.com/nathoo/scriptcore/engine/events"
	"github.com/nathoo/scriptcore/engine/queue"
)

// Status is the interpreter state of a verb.
type Status int

const (
	Idle Status = iota
	Running
	Suspended
	Finished
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// ParseStatus is the inverse of Status.String. Unknown names map to Idle.
func ParseStatus(s string) Status {
	switch s {
	case "running":
		return Running
	case "suspended":
		return Suspended
	case "finished":
		return Finished
	}
	return Idle
}

// Key joins a verb id with its optional target and state specializations.
func Key(id, target, state string) string {
	k := id
	if target != "" {
		k += "." + target
	}
	if state != "" {
		k += "." + state
	}
	return k
}

// Runtime is shared by every verb of one engine.
type Runtime struct {
	Queue *queue.Queue
	Log   *zap.Logger
	Bus   *events.Bus
}

// Verb is a named, possibly specialized action list plus its cursor.
type Verb struct {
	ID     string
	Target string
	State  string

	actions []action.Action
	rt      *Runtime

	ip        int
	status    Status
	ticket    uint64
	runs      uint64
	cancelled bool
	done      queue.Callback
	env       *action.Env
}

// New creates an idle verb. A nil runtime gets a private queue.
func New(id, target, state string, actions []action.Action, rt *Runtime) *Verb {
	if rt == nil {
		rt = &Runtime{}
	}
	if rt.Queue == nil {
		rt.Queue = queue.New(rt.Log)
	}
	if rt.Log == nil {
		rt.Log = zap.NewNop()
	}
	return &Verb{
		ID:      id,
		Target:  target,
		State:   state,
		actions: actions,
		rt:      rt,
		ip:      -1,
	}
}

// Key returns the verb's table key.
func (v *Verb) Key() string { return Key(v.ID, v.Target, v.State) }

// IP returns the index of the current action, or -1 before the first run.
func (v *Verb) IP() int { return v.ip }

// Status returns the interpreter state.
func (v *Verb) Status() Status { return v.status }

// Len returns the number of actions.
func (v *Verb) Len() int { return len(v.actions) }

// Cancelled reports whether the last run ended through Cancel.
func (v *Verb) Cancelled() bool { return v.cancelled }

// Finished reports whether the verb is not running or suspended.
func (v *Verb) Finished() bool {
	return v.status != Running && v.status != Suspended
}

// Busy reports whether the verb is running or suspended.
func (v *Verb) Busy() bool { return !v.Finished() }

// Self returns the object the current run belongs to.
func (v *Verb) Self() string {
	if v.env == nil {
		return ""
	}
	return v.env.Self
}

// Run starts the verb from its first action. done, if non-nil, is enqueued
// once the run finishes or is cancelled. Running a busy verb cancels its
// nested invocations, hands the old run's done callback to the queue and
// restarts; completions from the old run are discarded when they arrive.
func (v *Verb) Run(env *action.Env, done queue.Callback) {
	if v.Busy() {
		v.rt.Log.Debug("restarting busy verb",
			zap.String("object", env.Self), zap.String("verb", v.Key()), zap.Int("ip", v.ip))
		v.cancelNested()
		v.emit(events.VerbCancelled)
		v.notifyDone()
	}

	v.env = env
	v.done = done
	v.ip = -1
	v.cancelled = false
	v.ticket++
	v.runs++
	v.status = Running

	v.emit(events.VerbStarted)
	v.step()
}

// Cancel stops the verb. Nested invocations are cancelled first, depth
// first. Cancelling an idle or finished verb does nothing.
func (v *Verb) Cancel() {
	if !v.Busy() {
		return
	}
	v.cancelNested()
	v.ip = len(v.actions)
	v.status = Finished
	v.cancelled = true
	v.ticket++

	v.emit(events.VerbCancelled)
	v.notifyDone()
}

// nestedStart is the first action that may still own a running nested
// verb. It is one behind the cursor: once a restored verb resumes, the
// run_verb it was parked on sits just before the cursor while its nested
// verb keeps running.
func (v *Verb) nestedStart() int {
	if v.ip < 1 {
		return 0
	}
	return v.ip - 1
}

func (v *Verb) cancelNested() {
	for i := v.nestedStart(); i < len(v.actions); i++ {
		if c, ok := v.actions[i].(action.Canceller); ok {
			c.Cancel()
		}
	}
}

// step runs actions until one suspends or the list ends.
func (v *Verb) step() {
	run := v.runs
	for {
		v.ip++
		if v.ip >= len(v.actions) {
			v.finish()
			return
		}

		a := v.actions[v.ip]
		suspending := false
		if s, ok := a.(action.Suspender); ok {
			v.ticket++
			suspending = s.Prepare(&continuation{v: v, ticket: v.ticket})
		}

		v.emit(events.VerbStep, "action", action.Describe(a))
		if err := v.fire(a); err != nil {
			v.rt.Log.Error("action fault",
				zap.String("object", v.Self()),
				zap.String("verb", v.Key()),
				zap.Int("ip", v.ip),
				zap.String("action", action.Describe(a)),
				zap.Error(err))
			v.emit(events.ActionFault, "action", action.Describe(a), "error", err.Error())
			if suspending {
				v.ticket++
				suspending = false
			}
		}

		// The action may have cancelled or restarted this verb.
		if v.runs != run || v.status != Running {
			return
		}

		if b, ok := a.(action.Brancher); ok {
			if n := b.Skip(); n > 0 {
				v.ip += n
			}
		}

		if suspending {
			v.status = Suspended
			v.emit(events.VerbSuspended)
			return
		}
	}
}

func (v *Verb) fire(a action.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("action panicked: %v", r)
		}
	}()
	return a.Run(v.env)
}

func (v *Verb) finish() {
	v.ip = len(v.actions)
	v.status = Finished
	v.emit(events.VerbFinished)
	v.notifyDone()
}

func (v *Verb) notifyDone() {
	if v.done == nil {
		return
	}
	done := v.done
	v.done = nil
	v.rt.Queue.Enqueue(done)
}

func (v *Verb) resume(ticket uint64) {
	if v.status != Suspended || v.ticket != ticket {
		v.rt.Log.Debug("stale completion discarded",
			zap.String("object", v.Self()),
			zap.String("verb", v.Key()),
			zap.Stringer("status", v.status))
		v.emit(events.StaleCompletion)
		return
	}
	v.status = Running
	v.emit(events.VerbResumed)
	v.step()
}

func (v *Verb) emit(typ string, kv ...any) {
	if v.rt.Bus == nil {
		return
	}
	kv = append(kv, "object", v.Self(), "verb", v.Key(), "ip", v.ip)
	v.rt.Bus.Emit(events.New(typ, kv...))
}

// continuation resumes a suspended verb. It is bound to the ticket issued
// for one suspension, so completions from older runs are ignored.
type continuation struct {
	v      *Verb
	ticket uint64
}

func (c *continuation) OnEvent() { c.v.resume(c.ticket) }

// Snapshot is the persisted cursor of a verb.
type Snapshot struct {
	IP     int    `json:"ip"`
	Status string `json:"status"`
	Self   string `json:"self,omitempty"`
	Target string `json:"target,omitempty"`
}

// Snapshot captures the verb's cursor.
func (v *Verb) Snapshot() Snapshot {
	s := Snapshot{IP: v.ip, Status: v.status.String()}
	if v.env != nil {
		s.Self = v.env.Self
		s.Target = v.env.Target
	}
	return s
}

// Restore puts the verb back at a saved cursor. A verb that was waiting on
// an effect is resumed on the next drain, as the effect itself is not
// persisted.
func (v *Verb) Restore(s Snapshot, env *action.Env) {
	v.env = env
	v.done = nil
	v.cancelled = false
	v.ticket++
	v.runs++
	v.ip = s.IP
	if v.ip > len(v.actions) {
		v.ip = len(v.actions)
	}

	switch ParseStatus(s.Status) {
	case Running, Suspended:
		v.status = Suspended
		v.rt.Queue.Enqueue(&continuation{v: v, ticket: v.ticket})
	case Finished:
		v.status = Finished
	default:
		v.status = Idle
		v.ip = -1
	}
}

// Relink reattaches the nested invocations at the cursor of a restored busy
// verb. Call it after every verb has been restored, so the nested verbs are
// busy again when they are looked up.
func (v *Verb) Relink() {
	if !v.Busy() || v.env == nil {
		return
	}
	for i := v.nestedStart(); i <= v.ip && i < len(v.actions); i++ {
		if r, ok := v.actions[i].(action.Relinker); ok {
			r.Relink(v.env)
		}
	}
}

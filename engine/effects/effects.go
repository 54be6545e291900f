// Package effects simulates the long-running side of actions (speech,
// animation, sound, movement, scene transitions) as timed jobs. It is the
// host used by the terminal front ends and by tests; a graphical host would
// replace it with real playback.
package effects

import (
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nathoo/scriptcore/engine/queue"
	"github.com/nathoo/scriptcore/types"
)

// Output kinds.
const (
	KindSay     = "say"
	KindAnimate = "animate"
	KindSound   = "sound"
	KindWalk    = "walk"
	KindScene   = "scene"
)

// Timing defaults, in seconds.
const (
	DefaultSayBase    = 0.5
	DefaultSayPerRune = 0.05
	DefaultWalkTime   = 1.0
	DefaultTransition = 0.5
)

// Line is one piece of host output.
type Line struct {
	Kind  string
	Actor string
	Text  string
}

func (l Line) String() string {
	switch l.Kind {
	case KindSay:
		return fmt.Sprintf("%s: %s", l.Actor, l.Text)
	case KindScene:
		return fmt.Sprintf("-- %s --", l.Text)
	default:
		return fmt.Sprintf("(%s %s %s)", l.Actor, l.Kind, l.Text)
	}
}

type job struct {
	remaining float64
	cb        queue.Callback
	label     string
}

// Sim is a time-stepped host. Completions are enqueued on the callback
// queue from Update, never from the call that started the effect.
type Sim struct {
	SayBase        float64
	SayPerRune     float64
	WalkTime       float64
	TransitionTime float64

	q    *queue.Queue
	log  *zap.Logger
	jobs []*job
	out  []Line
}

// NewSim creates a host that completes effects into q.
func NewSim(q *queue.Queue, log *zap.Logger) *Sim {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sim{
		SayBase:        DefaultSayBase,
		SayPerRune:     DefaultSayPerRune,
		WalkTime:       DefaultWalkTime,
		TransitionTime: DefaultTransition,
		q:              q,
		log:            log,
	}
}

func (s *Sim) Say(actorID, text string, cb queue.Callback) {
	s.emit(KindSay, actorID, text)
	d := s.SayBase + s.SayPerRune*float64(utf8.RuneCountInString(text))
	s.schedule(d, cb, "say "+actorID)
}

func (s *Sim) Animate(actorID, anim string, duration float64, cb queue.Callback) {
	s.emit(KindAnimate, actorID, anim)
	s.schedule(duration, cb, "animate "+actorID+" "+anim)
}

func (s *Sim) PlaySound(actorID, soundID string, duration float64, cb queue.Callback) {
	s.emit(KindSound, actorID, soundID)
	s.schedule(duration, cb, "sound "+soundID)
}

func (s *Sim) Walk(actorID string, to types.Vec2, cb queue.Callback) {
	s.emit(KindWalk, actorID, fmt.Sprintf("to %.0f,%.0f", to.X, to.Y))
	s.schedule(s.WalkTime, cb, "walk "+actorID)
}

func (s *Sim) Transition(sceneID string, cb queue.Callback) {
	s.emit(KindScene, "", sceneID)
	s.schedule(s.TransitionTime, cb, "transition "+sceneID)
}

func (s *Sim) Delay(seconds float64, cb queue.Callback) {
	s.schedule(seconds, cb, "delay")
}

func (s *Sim) emit(kind, actor, text string) {
	s.out = append(s.out, Line{Kind: kind, Actor: actor, Text: text})
}

func (s *Sim) schedule(d float64, cb queue.Callback, label string) {
	if cb == nil {
		return
	}
	s.jobs = append(s.jobs, &job{remaining: d, cb: cb, label: label})
}

// Update advances every job by dt seconds and enqueues the completions of
// the jobs that are due, in start order.
func (s *Sim) Update(dt float64) {
	if len(s.jobs) == 0 {
		return
	}
	kept := s.jobs[:0]
	for _, j := range s.jobs {
		j.remaining -= dt
		if j.remaining <= 0 {
			s.log.Debug("effect finished", zap.String("effect", j.label))
			s.q.Enqueue(j.cb)
			continue
		}
		kept = append(kept, j)
	}
	s.jobs = kept
}

// Busy reports whether any effect is still waited on.
func (s *Sim) Busy() bool { return len(s.jobs) > 0 }

// Pending returns the number of effects still waited on.
func (s *Sim) Pending() int { return len(s.jobs) }

// SkipAll completes every pending effect on the next drain.
func (s *Sim) SkipAll() {
	for _, j := range s.jobs {
		s.q.Enqueue(j.cb)
	}
	s.jobs = nil
}

// Reset drops every pending effect without completing it.
func (s *Sim) Reset() {
	s.jobs = nil
	s.out = nil
}

// Output returns the lines produced since the last call.
func (s *Sim) Output() []Line {
	out := s.out
	s.out = nil
	return out
}

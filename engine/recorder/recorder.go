// Package recorder records the calls made on the engine's public entry
// points and replays them later through the same entry points. Entries are
// timestamped by the delay since the previous entry, so a session replays
// at a different start time and tolerates per-frame jitter.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nathoo/scriptcore/engine/verb"
	"github.com/nathoo/scriptcore/types"
)

// Entry kinds.
const (
	KindVerb   = "verb"
	KindOption = "option"
	KindGoto   = "goto"
)

// Entry is one recorded call. Exactly one of Verb, Option and Pos is set.
type Entry struct {
	Time   float64     `json:"time"`
	Actor  string      `json:"actor,omitempty"`
	Verb   string      `json:"verb,omitempty"`
	Target string      `json:"target,omitempty"`
	Dialog string      `json:"dialog,omitempty"`
	Option *int        `json:"option,omitempty"`
	Pos    *types.Vec2 `json:"pos,omitempty"`
}

// Kind returns which entry point the entry replays through.
func (e Entry) Kind() string {
	switch {
	case e.Verb != "":
		return KindVerb
	case e.Pos != nil:
		return KindGoto
	default:
		return KindOption
	}
}

func (e Entry) String() string {
	switch e.Kind() {
	case KindVerb:
		if e.Target != "" {
			return fmt.Sprintf("%s %s with %s", e.Verb, e.Actor, e.Target)
		}
		return fmt.Sprintf("%s %s", e.Verb, e.Actor)
	case KindGoto:
		return fmt.Sprintf("goto %g,%g", e.Pos.X, e.Pos.Y)
	default:
		if e.Option == nil {
			return "option ?"
		}
		if e.Dialog == "" {
			return fmt.Sprintf("option %d", *e.Option)
		}
		return fmt.Sprintf("option %s %d", e.Dialog, *e.Option)
	}
}

// Session is a recorded sequence of entries.
type Session struct {
	ID      ulid.ULID `json:"id"`
	Game    string    `json:"game"`
	Created time.Time `json:"created"`
	Entries []Entry   `json:"entries"`
}

// Duration returns the total replay time of the session.
func (s Session) Duration() float64 {
	var d float64
	for _, e := range s.Entries {
		d += e.Time
	}
	return d
}

// Driver is the surface a replay drives. The engine implements it.
type Driver interface {
	RunVerb(actorID, verbID, target string) *verb.Verb
	SelectOption(dialogID string, i int) error
	Goto(pos types.Vec2)
	InCutMode() bool
	CurrentDialog() string
}

// Recorder records or replays one session at a time.
type Recorder struct {
	log *zap.Logger
	now func() time.Time

	session   Session
	recording bool
	playing   bool
	clock     float64
	pos       int
}

// New creates an idle recorder.
func New(log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{log: log, now: time.Now}
}

// Recording reports whether calls are being recorded.
func (r *Recorder) Recording() bool { return r.recording }

// Playing reports whether a session is being replayed.
func (r *Recorder) Playing() bool { return r.playing }

// Progress returns the index of the next entry to replay and the number of
// entries in the session.
func (r *Recorder) Progress() (int, int) { return r.pos, len(r.session.Entries) }

// StartRecording begins a new session. Any replay in progress stops.
func (r *Recorder) StartRecording(game string) {
	r.session = Session{
		ID:      ulid.Make(),
		Game:    game,
		Created: r.now().UTC(),
	}
	r.playing = false
	r.recording = true
	r.clock = 0
	r.pos = 0
	r.log.Debug("recording started", zap.Stringer("session", r.session.ID))
}

// StopRecording ends recording and returns the session.
func (r *Recorder) StopRecording() Session {
	if r.recording {
		r.log.Debug("recording stopped",
			zap.Stringer("session", r.session.ID),
			zap.Int("entries", len(r.session.Entries)))
	}
	r.recording = false
	r.clock = 0
	return r.session
}

// RecordVerb appends a verb invocation. It does nothing unless recording.
func (r *Recorder) RecordVerb(actorID, verbID, target string) {
	r.add(Entry{Actor: actorID, Verb: verbID, Target: target})
}

// RecordOption appends a dialog option selection.
func (r *Recorder) RecordOption(dialogID string, i int) {
	r.add(Entry{Dialog: dialogID, Option: &i})
}

// RecordGoto appends a player movement.
func (r *Recorder) RecordGoto(pos types.Vec2) {
	r.add(Entry{Pos: &pos})
}

func (r *Recorder) add(e Entry) {
	if !r.recording {
		return
	}
	e.Time = r.clock
	r.session.Entries = append(r.session.Entries, e)
	r.clock = 0
}

// Play starts replaying s from its first entry. Recording stops.
func (r *Recorder) Play(s Session) {
	r.session = s
	r.recording = false
	r.playing = len(s.Entries) > 0
	r.clock = 0
	r.pos = 0
	r.log.Debug("replay started",
		zap.Stringer("session", s.ID), zap.Int("entries", len(s.Entries)))
}

// Stop ends a replay.
func (r *Recorder) Stop() {
	r.playing = false
	r.clock = 0
}

// Update advances the recorder clock by dt. Time spent in cut mode is not
// counted, while recording or while replaying. During a replay, at most one
// entry is fired per update, once the time since the previous entry reaches
// the entry's delay.
func (r *Recorder) Update(dt float64, d Driver) {
	if !r.recording && !r.playing {
		return
	}
	if d.InCutMode() {
		return
	}
	r.clock += dt
	if r.recording {
		return
	}

	if r.pos >= len(r.session.Entries) {
		r.finish()
		return
	}
	e := r.session.Entries[r.pos]
	if r.clock < e.Time {
		return
	}

	r.fire(e, d)
	r.clock = 0
	r.pos++
	if r.pos >= len(r.session.Entries) {
		r.finish()
	}
}

func (r *Recorder) finish() {
	r.playing = false
	r.clock = 0
	r.log.Debug("replay finished", zap.Stringer("session", r.session.ID))
}

func (r *Recorder) fire(e Entry, d Driver) {
	r.log.Debug("replay", zap.Int("entry", r.pos), zap.Stringer("call", e))

	switch e.Kind() {
	case KindVerb:
		d.RunVerb(e.Actor, e.Verb, e.Target)
	case KindGoto:
		d.Goto(*e.Pos)
	case KindOption:
		if e.Option == nil {
			r.log.Warn("replay entry without option index", zap.Int("entry", r.pos))
			return
		}
		if d.CurrentDialog() == "" {
			r.log.Warn("replay option skipped, no active dialog",
				zap.Int("entry", r.pos), zap.Int("option", *e.Option))
			return
		}
		// Sessions recorded without a dialog ID pick from whatever is active.
		dialog := e.Dialog
		if dialog == "" {
			dialog = d.CurrentDialog()
		}
		if err := d.SelectOption(dialog, *e.Option); err != nil {
			r.log.Warn("replay option failed",
				zap.Int("entry", r.pos),
				zap.String("dialog", dialog),
				zap.Int("option", *e.Option),
				zap.Error(err))
		}
	}
}

// Save writes a session as indented JSON to path.
func Save(path string, s Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating session directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing session %s", path)
	}
	return nil
}

// Load reads a session written by Save.
func Load(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, errors.Wrapf(err, "reading session %s", path)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, errors.Wrapf(err, "decoding session %s", path)
	}
	return s, nil
}

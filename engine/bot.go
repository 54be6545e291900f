package engine

import (
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/scriptcore/engine/parser"
	"github.com/nathoo/scriptcore/engine/state"
	"github.com/nathoo/scriptcore/types"
)

// Bot plays the game at random through the same entry points as a player.
// It draws from the engine's RNG, so a session is reproducible for a seed.
type Bot struct {
	MaxInterval float64 // max seconds between two moves
	InSceneTime float64 // min seconds in a scene before leave verbs run
	RunLeave    bool
	RunGoto     bool
	Width       float64 // goto area
	Height      float64

	log     *zap.Logger
	exclude map[string]bool
	elapsed float64
	wait    float64
	inScene float64
	moves   int
}

// NewBot creates a bot with the default pacing.
func NewBot(log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		MaxInterval: 1,
		InSceneTime: 20,
		RunLeave:    true,
		Width:       320,
		Height:      200,
		log:         log,
		exclude:     map[string]bool{},
	}
}

// SetExclude sets the comma separated object IDs the bot never touches.
func (b *Bot) SetExclude(list string) {
	b.exclude = map[string]bool{}
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			b.exclude[id] = true
		}
	}
}

// Moves returns the number of moves made.
func (b *Bot) Moves() int { return b.moves }

// StartBot lets b play from the next Tick.
func (e *Engine) StartBot(b *Bot) {
	e.bot = b
	b.log.Debug("bot enabled")
}

// StopBot disables the bot.
func (e *Engine) StopBot() {
	if e.bot != nil {
		e.bot.log.Debug("bot disabled")
	}
	e.bot = nil
}

// Bot returns the active bot, or nil.
func (e *Engine) Bot() *Bot { return e.bot }

// Update makes at most one move once the current wait has elapsed. The bot
// never moves in cut mode; with an active dialog it picks a visible option.
func (b *Bot) Update(dt float64, e *Engine) {
	b.elapsed += dt
	b.inScene += dt
	if e.InCutMode() || b.elapsed <= b.wait {
		return
	}
	b.elapsed = 0
	b.wait = e.RNG.Float() * b.MaxInterval

	if id := e.CurrentDialog(); id != "" {
		d, ok := e.Dialog(id)
		if !ok {
			return
		}
		if n := len(d.Visible()); n > 0 {
			i := e.RNG.Intn(n)
			b.log.Debug("bot selects option", zap.String("dialog", id), zap.Int("option", i))
			b.moves++
			if err := e.SelectOption(id, i); err != nil {
				b.log.Debug("bot option failed", zap.Error(err))
			}
		}
		return
	}

	if b.RunGoto && !e.RNG.Chance(0.75) {
		pos := types.Vec2{X: e.RNG.Float() * b.Width, Y: e.RNG.Float() * b.Height}
		b.log.Debug("bot goto", zap.Float64("x", pos.X), zap.Float64("y", pos.Y))
		b.moves++
		e.Goto(pos)
		return
	}

	actors := b.candidates(e)
	items := b.items(e)
	if len(items) > 0 && (len(actors) == 0 || e.RNG.Chance(0.5)) {
		b.useItem(e, items, actors)
		return
	}
	if len(actors) == 0 {
		return
	}
	id := e.RNG.Pick(actors)

	var verbID, target string
	switch {
	case hasVerb(e, id, parser.Leave):
		if !b.RunLeave || b.inScene < b.InSceneTime {
			return
		}
		verbID = parser.Leave
	case e.RNG.Chance(0.33):
		verbID = parser.LookAt
	case hasVerb(e, id, parser.TalkTo):
		verbID = parser.TalkTo
	case len(actors) > 1 && e.RNG.Chance(0.25):
		verbID = parser.Use
		target = e.RNG.Pick(actors)
		if target == id {
			return
		}
	default:
		verbID = parser.PickUp
	}

	b.log.Debug("bot runs verb",
		zap.String("object", id), zap.String("verb", verbID), zap.String("target", target))
	b.moves++
	e.RunVerb(id, verbID, target)
	if verbID == parser.Leave {
		b.inScene = 0
	}
}

// useItem looks at a carried item or uses it with another item or a scene
// actor.
func (b *Bot) useItem(e *Engine, items, actors []string) {
	item := e.RNG.Pick(items)
	if e.RNG.Intn(4) == 0 {
		b.log.Debug("bot runs verb", zap.String("object", item), zap.String("verb", parser.LookAt))
		b.moves++
		e.RunVerb(item, parser.LookAt, "")
		return
	}

	var target string
	if len(items) > 1 && e.RNG.Chance(0.33) {
		target = e.RNG.Pick(items)
	} else if len(actors) > 0 {
		target = e.RNG.Pick(actors)
	}
	if target == "" || target == item {
		return
	}
	b.log.Debug("bot uses item", zap.String("item", item), zap.String("target", target))
	b.moves++
	e.UseItem(item, target)
}

// items returns the carried items the bot may touch.
func (b *Bot) items(e *Engine) []string {
	var out []string
	for _, id := range e.State.Inventory {
		if !b.exclude[id] {
			out = append(out, id)
		}
	}
	return out
}

// candidates returns the actors of the current scene the bot may touch.
func (b *Bot) candidates(e *Engine) []string {
	var out []string
	for _, id := range state.ObjectsInScene(e.State, e.Defs, e.State.Scene) {
		if id == e.Defs.Game.Player || b.exclude[id] {
			continue
		}
		if e.Table(id).Len() == 0 {
			continue
		}
		out = append(out, id)
	}
	return out
}

func hasVerb(e *Engine, objectID, verbID string) bool {
	_, ok := e.Table(objectID).Lookup(verbID, "", state.ObjectState(e.State, e.Defs, objectID))
	return ok
}

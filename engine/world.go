package engine

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nathoo/scriptcore/engine/action"
	"github.com/nathoo/scriptcore/engine/events"
	"github.com/nathoo/scriptcore/engine/queue"
	"github.com/nathoo/scriptcore/engine/state"
	"github.com/nathoo/scriptcore/types"
)

// world is the engine as seen by running actions.
type world struct {
	e *Engine
}

var _ action.World = (*world)(nil)

func (w *world) ObjectState(objectID string) string {
	return state.ObjectState(w.e.State, w.e.Defs, objectID)
}

func (w *world) SetObjectState(objectID, st string) {
	state.SetObjectState(w.e.State, objectID, st)
}

func (w *world) SetObjectPos(objectID string, pos types.Vec2) {
	state.SetObjectPos(w.e.State, objectID, pos)
}

func (w *world) SetHidden(objectID string, hidden bool) {
	state.SetHidden(w.e.State, objectID, hidden)
}

func (w *world) Flag(name string) bool {
	return state.GetFlag(w.e.State, name)
}

func (w *world) SetFlag(name string, value bool) {
	w.e.State.Flags[name] = value
}

func (w *world) SetCutMode(on bool) {
	w.e.State.CutMode = on
}

// StartDialog makes a dialog active, positioned at its root.
func (w *world) StartDialog(dialogID string) error {
	d, ok := w.e.dialogs[dialogID]
	if !ok {
		return errors.Errorf("unknown dialog %q", dialogID)
	}
	d.Reset()
	w.e.State.Dialog = dialogID
	w.e.log.Debug("dialog started", zap.String("dialog", dialogID))
	return nil
}

func (w *world) EndDialog() {
	if w.e.State.Dialog == "" {
		return
	}
	w.e.log.Debug("dialog ended", zap.String("dialog", w.e.State.Dialog))
	w.e.State.Dialog = ""
}

// ChangeScene switches the current scene and runs the new scene's init
// verb when it has one. An active dialog ends.
func (w *world) ChangeScene(sceneID string) error {
	def, ok := w.e.Defs.Objects[sceneID]
	if !ok || def.Kind != state.KindScene {
		return errors.Errorf("unknown scene %q", sceneID)
	}
	from := w.e.State.Scene
	w.e.State.Scene = sceneID
	w.EndDialog()
	w.e.bus.Emit(events.New(events.SceneChanged, "from", from, "to", sceneID))

	if _, ok := w.e.tables[sceneID].Get(InitVerb); ok {
		w.e.invoke(sceneID, InitVerb, "", nil)
	}
	return nil
}

func (w *world) AddItem(objectID string) error {
	def, ok := w.e.Defs.Objects[objectID]
	if !ok || def.Kind != state.KindActor {
		return errors.Errorf("cannot carry %q", objectID)
	}
	if !state.AddItem(w.e.State, objectID) {
		return errors.Errorf("%s is already carried", objectID)
	}
	w.e.bus.Emit(events.New(events.ItemAdded, "object", objectID))
	return nil
}

func (w *world) DropItem(objectID, sceneID string) error {
	if sceneID == "" {
		sceneID = w.e.State.Scene
	}
	if def, ok := w.e.Defs.Objects[sceneID]; !ok || def.Kind != state.KindScene {
		return errors.Errorf("unknown scene %q", sceneID)
	}
	if !state.RemoveItem(w.e.State, objectID) {
		return errors.Errorf("%s is not carried", objectID)
	}
	state.SetObjectScene(w.e.State, objectID, sceneID)
	state.SetHidden(w.e.State, objectID, false)
	w.e.bus.Emit(events.New(events.ItemRemoved, "object", objectID, "scene", sceneID))
	return nil
}

// RemoveItem hides the object as well, so it does not reappear in its
// original scene.
func (w *world) RemoveItem(objectID string) error {
	if !state.RemoveItem(w.e.State, objectID) {
		return errors.Errorf("%s is not carried", objectID)
	}
	state.SetHidden(w.e.State, objectID, true)
	w.e.bus.Emit(events.New(events.ItemRemoved, "object", objectID))
	return nil
}

func (w *world) Invoke(objectID, verbID, target string, done queue.Callback) (action.Invocation, error) {
	v, err := w.e.invoke(objectID, verbID, target, done)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (w *world) Running(objectID, verbID, target string) (action.Invocation, bool) {
	v, ok := w.e.lookup(objectID, verbID, target)
	if !ok || !v.Busy() {
		return nil, false
	}
	return v, true
}

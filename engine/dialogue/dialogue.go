// Package dialogue implements dialog trees as an arena of option nodes
// addressed by index, with a cursor that tracks the player's position.
package dialogue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/scriptcore/types"
)

const (
	// DefaultVerb runs for options that do not name a verb.
	DefaultVerb = "dialog"
	// NextParent moves the cursor to the selected option's parent.
	NextParent = "parent"
)

// OptionID addresses an option node inside one dialog.
type OptionID int

// Root is the dialog's root level. It is never a real node.
const Root OptionID = -1

// Option is the authored content of a node.
type Option struct {
	Text     string
	Response string
	Verb     string
	Next     string
	Visible  bool
	Once     bool
}

// IndexError rejects a selection outside the visible options.
type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("option %d out of range (%d visible)", e.Index, e.Count)
}

// PathError reports a path that does not address a node.
type PathError struct {
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("no dialog option at path %q", e.Path)
}

// UnknownOptionError reports an OptionID that is not a live node.
type UnknownOptionError struct {
	ID OptionID
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown dialog option %d", e.ID)
}

type node struct {
	opt      Option
	parent   OptionID
	children []OptionID
	removed  bool
}

// Dialog is a tree of options owned by an actor.
type Dialog struct {
	ID    string
	Actor string

	nodes   []node
	roots   []OptionID
	current OptionID
}

// New creates an empty dialog positioned at the root.
func New(id, actor string) *Dialog {
	return &Dialog{ID: id, Actor: actor, current: Root}
}

// FromDef builds a dialog from its authored definition.
func FromDef(def types.DialogDef) *Dialog {
	d := New(def.ID, def.Actor)
	d.addDefs(Root, def.Options)
	return d
}

func (d *Dialog) addDefs(parent OptionID, defs []types.OptionDef) {
	for _, od := range defs {
		id, _ := d.Add(parent, Option{
			Text:     od.Text,
			Response: od.Response,
			Verb:     od.Verb,
			Next:     od.Next,
			Visible:  od.Visible,
			Once:     od.Once,
		})
		d.addDefs(id, od.Options)
	}
}

func (d *Dialog) live(id OptionID) bool {
	return id >= 0 && int(id) < len(d.nodes) && !d.nodes[id].removed
}

// Add appends an option under parent (Root for the top level).
func (d *Dialog) Add(parent OptionID, o Option) (OptionID, error) {
	if parent != Root && !d.live(parent) {
		return Root, &UnknownOptionError{ID: parent}
	}
	id := OptionID(len(d.nodes))
	d.nodes = append(d.nodes, node{opt: o, parent: parent})
	if parent == Root {
		d.roots = append(d.roots, id)
	} else {
		d.nodes[parent].children = append(d.nodes[parent].children, id)
	}
	return id, nil
}

// Remove unlinks an option and its subtree. A cursor inside the removed
// subtree moves to the removed option's parent.
func (d *Dialog) Remove(id OptionID) error {
	if !d.live(id) {
		return &UnknownOptionError{ID: id}
	}
	parent := d.nodes[id].parent
	if d.within(d.current, id) {
		d.current = parent
	}

	if parent == Root {
		d.roots = without(d.roots, id)
	} else {
		d.nodes[parent].children = without(d.nodes[parent].children, id)
	}
	d.tombstone(id)
	return nil
}

func (d *Dialog) tombstone(id OptionID) {
	d.nodes[id].removed = true
	for _, c := range d.nodes[id].children {
		d.tombstone(c)
	}
}

// within reports whether id is ancestor or id itself.
func (d *Dialog) within(id, ancestor OptionID) bool {
	for id != Root {
		if id == ancestor {
			return true
		}
		id = d.nodes[id].parent
	}
	return false
}

func without(ids []OptionID, id OptionID) []OptionID {
	out := ids[:0:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// Option returns the content of a live node.
func (d *Dialog) Option(id OptionID) (Option, bool) {
	if !d.live(id) {
		return Option{}, false
	}
	return d.nodes[id].opt, true
}

// Parent returns the parent of a live node, or Root.
func (d *Dialog) Parent(id OptionID) OptionID {
	if !d.live(id) {
		return Root
	}
	return d.nodes[id].parent
}

// SetVisible shows or hides an option.
func (d *Dialog) SetVisible(id OptionID, visible bool) error {
	if !d.live(id) {
		return &UnknownOptionError{ID: id}
	}
	d.nodes[id].opt.Visible = visible
	return nil
}

// Children returns the live children of parent in sibling order.
func (d *Dialog) Children(parent OptionID) []OptionID {
	if parent == Root {
		return append([]OptionID(nil), d.roots...)
	}
	if !d.live(parent) {
		return nil
	}
	return append([]OptionID(nil), d.nodes[parent].children...)
}

// Visible returns the visible options at the cursor.
func (d *Dialog) Visible() []OptionID {
	var out []OptionID
	for _, id := range d.Children(d.current) {
		if d.nodes[id].opt.Visible {
			out = append(out, id)
		}
	}
	return out
}

// Ended reports whether no option is left to choose at the cursor.
func (d *Dialog) Ended() bool { return len(d.Visible()) == 0 }

// Current returns the cursor, Root at the top level.
func (d *Dialog) Current() OptionID { return d.current }

// Reset moves the cursor back to the root.
func (d *Dialog) Reset() { d.current = Root }

// Runner runs a verb on an actor without a target.
type Runner func(actorID, verbID string)

// Select chooses the i-th visible option at the cursor, runs its verb on
// the dialog's actor and moves the cursor. An out of range index is
// rejected before anything changes. A next path that does not resolve
// resets the cursor to the root and returns *PathError.
func (d *Dialog) Select(i int, run Runner) (Option, error) {
	visible := d.Visible()
	if i < 0 || i >= len(visible) {
		return Option{}, &IndexError{Index: i, Count: len(visible)}
	}

	id := visible[i]
	opt := d.nodes[id].opt
	parent := d.nodes[id].parent

	verbID := opt.Verb
	if verbID == "" {
		verbID = DefaultVerb
	}
	if run != nil {
		run(d.Actor, verbID)
	}

	// The verb may have edited the tree.
	if !d.live(id) {
		return opt, nil
	}
	if opt.Once {
		d.nodes[id].opt.Visible = false
	}

	switch opt.Next {
	case NextParent:
		d.current = parent
	case "":
		d.current = id
	default:
		target, err := d.FindByPath(opt.Next)
		if err != nil {
			d.current = Root
			return opt, err
		}
		d.current = target
	}
	return opt, nil
}

// Path returns the dot-joined sibling indices leading to id, such as
// "0.2.1". Root has the empty path. Paths encode position, so they change
// when earlier siblings of an ancestor are removed.
func (d *Dialog) Path(id OptionID) string {
	if id == Root || !d.live(id) {
		return ""
	}
	var parts []string
	for id != Root {
		parent := d.nodes[id].parent
		for i, sib := range d.Children(parent) {
			if sib == id {
				parts = append(parts, strconv.Itoa(i))
				break
			}
		}
		id = parent
	}
	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return strings.Join(parts, ".")
}

// FindByPath returns the node a path addresses. The empty path is Root.
func (d *Dialog) FindByPath(path string) (OptionID, error) {
	if path == "" {
		return Root, nil
	}
	id := Root
	for _, seg := range strings.Split(path, ".") {
		n, err := strconv.Atoi(seg)
		if err != nil {
			return Root, &PathError{Path: path}
		}
		children := d.Children(id)
		if n < 0 || n >= len(children) {
			return Root, &PathError{Path: path}
		}
		id = children[n]
	}
	return id, nil
}

// CurrentPath returns the cursor as a path.
func (d *Dialog) CurrentPath() string { return d.Path(d.current) }

// SetCurrentPath moves the cursor to the node at path.
func (d *Dialog) SetCurrentPath(path string) error {
	id, err := d.FindByPath(path)
	if err != nil {
		return err
	}
	d.current = id
	return nil
}

// Snapshot is the persisted form of a dialog's mutable state.
type Snapshot struct {
	Current string   `json:"current"`
	Hidden  []string `json:"hidden,omitempty"`
}

// Snapshot captures the cursor and the paths of hidden options.
func (d *Dialog) Snapshot() Snapshot {
	s := Snapshot{Current: d.CurrentPath()}
	d.walk(Root, func(id OptionID) {
		if !d.nodes[id].opt.Visible {
			s.Hidden = append(s.Hidden, d.Path(id))
		}
	})
	return s
}

// Check reports whether s can be restored onto this dialog.
func (d *Dialog) Check(s Snapshot) error {
	_, err := d.FindByPath(s.Current)
	return err
}

// Restore applies a snapshot taken from a dialog with the same shape. A
// snapshot whose cursor does not resolve leaves the dialog untouched.
func (d *Dialog) Restore(s Snapshot) error {
	cur, err := d.FindByPath(s.Current)
	if err != nil {
		return err
	}
	hidden := make(map[string]bool, len(s.Hidden))
	for _, p := range s.Hidden {
		hidden[p] = true
	}
	d.walk(Root, func(id OptionID) {
		d.nodes[id].opt.Visible = !hidden[d.Path(id)]
	})
	d.current = cur
	return nil
}

// walk visits every live node depth first in sibling order.
func (d *Dialog) walk(parent OptionID, fn func(OptionID)) {
	for _, id := range d.Children(parent) {
		fn(id)
		d.walk(id, fn)
	}
}

package blueprint

import (
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"

	"github.com/cory-johannsen/qudex/internal/codec"
)

// Tree is the load handle for one resolved forest: the root object, an index
// of every object by name, and the identity of the load.
//
// A Tree is never mutated after Resolve returns and may be shared by
// concurrent readers without locking. Objects from different trees are never
// interchangeable, even when their names match.
type Tree struct {
	id          uuid.UUID
	fingerprint codec.Hash
	source      string
	root        *Object
	index       map[string]*Object
	templates   []RawTemplate
}

// ID returns the unique identifier of this load.
func (t *Tree) ID() uuid.UUID { return t.id }

// Fingerprint returns the content hash of the forest this tree was built from.
// Two loads of identical templates share a fingerprint but not an ID.
func (t *Tree) Fingerprint() codec.Hash { return t.fingerprint }

// Source returns the label given with WithSource, or "".
func (t *Tree) Source() string { return t.source }

// Root returns the single parentless object.
func (t *Tree) Root() *Object { return t.root }

// Len returns the number of objects in the tree.
func (t *Tree) Len() int { return len(t.index) }

// Get returns the object with the given name.
//
// Postcondition: Returns the object, or an error matching ErrNotFound.
func (t *Tree) Get(name string) (*Object, error) {
	obj, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("blueprint %q: %w", name, ErrNotFound)
	}
	return obj, nil
}

// Lookup returns the object with the given name and whether it exists.
func (t *Tree) Lookup(name string) (*Object, bool) {
	obj, ok := t.index[name]
	return obj, ok
}

// Contains reports whether obj belongs to this tree.
func (t *Tree) Contains(obj *Object) bool {
	return obj != nil && obj.tree == t
}

// Names returns every object name in sorted order.
func (t *Tree) Names() []string {
	names := make([]string, 0, len(t.index))
	for name := range t.index {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Children returns a restartable view over obj's children in declared order.
// Objects from another tree have no children here.
func (t *Tree) Children(obj *Object) iter.Seq[*Object] {
	if !t.Contains(obj) {
		return func(func(*Object) bool) {}
	}
	return obj.Children()
}

// Parent returns obj's parent. The root has no parent.
//
// Postcondition: Returns (parent, nil), (nil, ErrNotFound) for the root, or
// (nil, ErrForeignObject) when obj belongs to another tree.
func (t *Tree) Parent(obj *Object) (*Object, error) {
	if !t.Contains(obj) {
		return nil, ErrForeignObject
	}
	p, ok := obj.Parent()
	if !ok {
		return nil, fmt.Errorf("blueprint %q has no parent: %w", obj.name, ErrNotFound)
	}
	return p, nil
}

// Walk visits every object in pre-order starting at the root. fn receives the
// object and its depth; returning false skips the object's subtree.
func (t *Tree) Walk(fn func(obj *Object, depth int) bool) {
	t.WalkFrom(t.root, fn)
}

// WalkFrom visits start and its descendants in pre-order, with depths
// relative to start.
//
// Precondition: start belongs to t.
func (t *Tree) WalkFrom(start *Object, fn func(obj *Object, depth int) bool) {
	if !t.Contains(start) {
		return
	}
	type frame struct {
		obj   *Object
		depth int
	}
	stack := []frame{{start, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.obj, f.depth) {
			continue
		}
		// Push in reverse so children pop in declared order.
		for i := len(f.obj.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{t.index[f.obj.children[i]], f.depth + 1})
		}
	}
}

// Templates returns a copy of the raw forest the tree was resolved from.
func (t *Tree) Templates() []RawTemplate {
	return cloneTemplates(t.templates)
}

package blueprint

import (
	"iter"
	"slices"
	"strings"
)

// Object is one resolved template. Its parent is held by name and looked up
// through the owning tree's index; ownership runs strictly root to leaves.
//
// Invariant: an Object is never modified after Resolve returns.
type Object struct {
	name     string
	parent   string
	attrs    Attributes
	declared map[string]map[string]bool
	children []string
	depth    int
	tree     *Tree
}

// Name returns the template name.
func (o *Object) Name() string { return o.name }

// ParentName returns the parent's name, or "" for the root.
func (o *Object) ParentName() string { return o.parent }

// Depth returns the number of ancestors: 0 for the root.
func (o *Object) Depth() int { return o.depth }

// Tree returns the load this object belongs to.
func (o *Object) Tree() *Tree { return o.tree }

// IsRoot reports whether the object has no parent.
func (o *Object) IsRoot() bool { return o.parent == "" }

// Parent returns the parent object; ok is false for the root.
func (o *Object) Parent() (*Object, bool) {
	if o.parent == "" {
		return nil, false
	}
	return o.tree.Lookup(o.parent)
}

// Children returns a restartable view over the children in declared order.
func (o *Object) Children() iter.Seq[*Object] {
	return func(yield func(*Object) bool) {
		for _, name := range o.children {
			if !yield(o.tree.index[name]) {
				return
			}
		}
	}
}

// ChildNames returns a copy of the child names in declared order.
func (o *Object) ChildNames() []string {
	return slices.Clone(o.children)
}

// NumChildren returns the number of direct children.
func (o *Object) NumChildren() int { return len(o.children) }

// Ancestors yields the parent, grandparent, and so on up to the root.
func (o *Object) Ancestors() iter.Seq[*Object] {
	return func(yield func(*Object) bool) {
		for cur, ok := o.Parent(); ok; cur, ok = cur.Parent() {
			if !yield(cur) {
				return
			}
		}
	}
}

// InheritsFrom reports whether the object is name or descends from name.
func (o *Object) InheritsFrom(name string) bool {
	if o.name == name {
		return true
	}
	for a := range o.Ancestors() {
		if a.name == name {
			return true
		}
	}
	return false
}

// InheritancePath renders the chain from the root, e.g. "Object➜Item➜Bandage".
func (o *Object) InheritancePath() string {
	path := []string{o.name}
	for a := range o.Ancestors() {
		path = append(path, a.name)
	}
	slices.Reverse(path)
	return strings.Join(path, "➜")
}

// String returns the object's name.
func (o *Object) String() string { return o.name }

// Package blueprint resolves raw object templates into an immutable tree of
// objects with fully merged attributes.
//
// A template names an optional parent and carries an ordered list of attribute
// operations. Resolving a template starts from a copy of its parent's resolved
// attributes and applies the template's own operations on top, so the effective
// attributes of any object are the cascade of every ancestor's operations.
// Each template is resolved exactly once; the result is a [Tree] that indexes
// every [Object] by name and is safe for concurrent readers.
package blueprint

import (
	"fmt"
	"maps"
)

// NoInherit is the field value that keeps a tag on the declaring object but
// stops it from being copied into descendants.
const NoInherit = "*noinherit"

// Fields maps field names to their raw string values within one tag.
type Fields map[string]string

// Clone returns an independent copy of f. A nil f clones to an empty map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	maps.Copy(out, f)
	return out
}

// noInherit reports whether the tag carries the NoInherit marker.
func (f Fields) noInherit() bool {
	for _, v := range f {
		if v == NoInherit {
			return true
		}
	}
	return false
}

// Attributes maps tag names to their fields.
type Attributes map[string]Fields

// Clone returns a deep copy of a.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for tag, fields := range a {
		out[tag] = fields.Clone()
	}
	return out
}

// inheritable returns the deep copy a child starts from: every tag except
// those marked NoInherit.
func (a Attributes) inheritable() Attributes {
	out := make(Attributes, len(a))
	for tag, fields := range a {
		if fields.noInherit() {
			continue
		}
		out[tag] = fields.Clone()
	}
	return out
}

// TagName composes the canonical tag name for a definition element, e.g.
// TagName("part", "Render") == "part_Render".
func TagName(element, name string) string {
	return element + "_" + name
}

// OpKind identifies an attribute operation.
type OpKind uint8

const (
	// OpSet replaces or defines a tag wholesale.
	OpSet OpKind = iota + 1
	// OpRemove deletes a tag, hiding it from this template and its descendants.
	OpRemove
	// OpMergeField sets one field, creating the tag if needed.
	OpMergeField
	// OpEnsure creates the tag if it does not exist and otherwise leaves it alone.
	OpEnsure
)

// String returns the lowercase operation name.
func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpRemove:
		return "remove"
	case OpMergeField:
		return "merge"
	case OpEnsure:
		return "ensure"
	default:
		return fmt.Sprintf("op(%d)", uint8(k))
	}
}

// ParseOpKind parses the name produced by OpKind.String.
func ParseOpKind(name string) (OpKind, error) {
	switch name {
	case "set":
		return OpSet, nil
	case "remove":
		return OpRemove, nil
	case "merge":
		return OpMergeField, nil
	case "ensure":
		return OpEnsure, nil
	default:
		return 0, fmt.Errorf("unknown attribute operation %q", name)
	}
}

// AttributeOp is one operation on a named tag.
type AttributeOp struct {
	Kind   OpKind `cbor:"1,keyasint"`
	Tag    string `cbor:"2,keyasint"`
	Field  string `cbor:"3,keyasint,omitempty"`
	Value  string `cbor:"4,keyasint,omitempty"`
	Fields Fields `cbor:"5,keyasint,omitempty"`
}

// Set returns an operation that replaces tag with a copy of fields.
func Set(tag string, fields Fields) AttributeOp {
	return AttributeOp{Kind: OpSet, Tag: tag, Fields: fields.Clone()}
}

// Remove returns an operation that deletes tag.
func Remove(tag string) AttributeOp {
	return AttributeOp{Kind: OpRemove, Tag: tag}
}

// MergeField returns an operation that sets tag.field to value.
func MergeField(tag, field, value string) AttributeOp {
	return AttributeOp{Kind: OpMergeField, Tag: tag, Field: field, Value: value}
}

// Ensure returns an operation that creates tag without changing its fields.
func Ensure(tag string) AttributeOp {
	return AttributeOp{Kind: OpEnsure, Tag: tag}
}

// validate checks the operation's shape.
func (op AttributeOp) validate() error {
	if op.Tag == "" {
		return fmt.Errorf("%s operation has an empty tag name", op.Kind)
	}
	switch op.Kind {
	case OpSet, OpRemove, OpEnsure:
		return nil
	case OpMergeField:
		if op.Field == "" {
			return fmt.Errorf("merge operation on tag %q has an empty field name", op.Tag)
		}
		return nil
	default:
		return fmt.Errorf("unknown operation kind %d on tag %q", uint8(op.Kind), op.Tag)
	}
}

// RawTemplate is one unresolved definition as produced by a loader.
//
// Invariant: Name is unique within a forest. Parent is empty only for the root.
type RawTemplate struct {
	Name   string        `cbor:"1,keyasint"`
	Parent string        `cbor:"2,keyasint,omitempty"`
	Ops    []AttributeOp `cbor:"3,keyasint,omitempty"`
}

package blueprint

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/cory-johannsen/qudex/internal/game/dice"
)

var errNotBoolean = errors.New("not a boolean")

// HasTag reports whether the resolved object carries tag.
func (o *Object) HasTag(tag string) bool {
	_, ok := o.attrs[tag]
	return ok
}

// Tag returns a copy of the resolved fields of tag.
func (o *Object) Tag(tag string) (Fields, bool) {
	fields, ok := o.attrs[tag]
	if !ok {
		return nil, false
	}
	return fields.Clone(), true
}

// Field returns the raw value of one field.
func (o *Object) Field(tag, field string) (string, bool) {
	v, ok := o.attrs[tag][field]
	return v, ok
}

// FieldOr returns the raw value of one field, or def when absent.
func (o *Object) FieldOr(tag, field, def string) string {
	if v, ok := o.Field(tag, field); ok {
		return v
	}
	return def
}

// Stat interprets a field as a number: a plain integer, a base+modifier sum,
// or a dice expression resolved by its average.
//
// Postcondition: Returns def when the field is absent, the resolved value
// when it parses, or a *MalformedValueError.
func (o *Object) Stat(tag, field string, def int) (int, error) {
	raw, ok := o.Field(tag, field)
	if !ok {
		return def, nil
	}
	n, err := dice.Resolve(raw)
	if err != nil {
		return 0, o.malformed(tag, field, raw, err)
	}
	return n, nil
}

// Flag interprets a field as a boolean. Absent fields are false.
//
// Postcondition: Returns the flag value, or a *MalformedValueError for values
// other than true/yes/1 and false/no/0.
func (o *Object) Flag(tag, field string) (bool, error) {
	raw, ok := o.Field(tag, field)
	if !ok {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, o.malformed(tag, field, raw, errNotBoolean)
	}
}

// InheritedTag finds the nearest object, starting with o and walking up the
// parent chain, whose own template declares tag. It returns that object's
// resolved fields for the tag and the object itself.
//
// Postcondition: Returns (fields, owner, nil), or an error matching ErrNotFound
// when no object up to the root declares tag.
func (o *Object) InheritedTag(tag string) (Fields, *Object, error) {
	for cur, ok := o, true; ok; cur, ok = cur.Parent() {
		if _, declared := cur.declared[tag]; declared {
			return cur.attrs[tag].Clone(), cur, nil
		}
	}
	return nil, nil, fmt.Errorf("blueprint %q: tag %q: %w", o.name, tag, ErrNotFound)
}

// IsSpecified reports whether the object's own template touches tag, and
// field within it when field is non-empty. Inherited values do not count.
func (o *Object) IsSpecified(tag, field string) bool {
	fields, ok := o.declared[tag]
	if !ok {
		return false
	}
	if field == "" {
		return true
	}
	return fields[field]
}

// Attributes returns a deep copy of every resolved tag.
func (o *Object) Attributes() Attributes {
	return o.attrs.Clone()
}

// Tags returns the resolved tag names in sorted order.
func (o *Object) Tags() []string {
	tags := make([]string, 0, len(o.attrs))
	for tag := range o.attrs {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

func (o *Object) malformed(tag, field, value string, err error) *MalformedValueError {
	return &MalformedValueError{Object: o.name, Tag: tag, Field: field, Value: value, Err: err}
}

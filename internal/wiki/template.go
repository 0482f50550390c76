// Package wiki renders resolved blueprint objects as Caves of Qud wiki
// infobox templates and parses existing templates back for comparison.
package wiki

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

const (
	qudTextOpen  = "{{Qud text|"
	qudTextClose = "}}"
	corpseIntro  = "{{!}}-\n"
)

// Template types.
const (
	TypeItem      = "Item"
	TypeCharacter = "Character"
	TypeFood      = "Food"
	TypeCorpse    = "Corpse"
)

// ErrNotTemplate reports text that is not a wiki template.
var ErrNotTemplate = errors.New("wiki: not a template")

// Field is one "| name = value" line of a template.
type Field struct {
	Name  string
	Value string
}

// Template is a wiki infobox: a type and its fields in output order.
type Template struct {
	Type   string
	Fields []Field
}

// Get returns the value of the named field.
func (t Template) Get(name string) (string, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Equal reports whether t and other have the same type and the same field
// values, regardless of field order.
func (t Template) Equal(other Template) bool {
	return t.Type == other.Type && maps.Equal(t.fieldMap(), other.fieldMap())
}

func (t Template) fieldMap() map[string]string {
	m := make(map[string]string, len(t.Fields))
	for _, f := range t.Fields {
		m[f.Name] = f.Value
	}
	return m
}

// String renders the template as wiki text. The title is wrapped in
// {{Qud text|...}} except on Corpse templates, which are rendered as a table
// row.
func (t Template) String() string {
	var b strings.Builder
	title, _ := t.Get("title")
	if t.Type == TypeCorpse {
		b.WriteString(corpseIntro)
		fmt.Fprintf(&b, "{{%s\n| title = %s\n", t.Type, title)
	} else {
		fmt.Fprintf(&b, "{{%s\n| title = %s%s%s\n", t.Type, qudTextOpen, title, qudTextClose)
	}
	for _, f := range t.Fields {
		if f.Name == "title" {
			continue
		}
		fmt.Fprintf(&b, "| %s = %s\n", f.Name, f.Value)
	}
	b.WriteString("}}\n")
	return b.String()
}

// Parse reads the first template in text, such as the source of an existing
// wiki page. Each field starts a line with "|"; following lines that do not
// start with "|" continue the previous value. The {{Qud text|...}} wrapper
// is removed from the title.
//
// Postcondition: Returns the parsed template, or an error matching
// ErrNotTemplate.
func Parse(text string) (Template, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, corpseIntro)
	if !strings.HasPrefix(text, "{{") {
		return Template{}, fmt.Errorf("%w: does not start with {{", ErrNotTemplate)
	}
	lines := strings.Split(text, "\n")
	t := Template{Type: strings.TrimSpace(strings.TrimPrefix(lines[0], "{{"))}
	if t.Type == "" {
		return Template{}, fmt.Errorf("%w: missing template type", ErrNotTemplate)
	}

	for i, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "|"):
			name, value, ok := strings.Cut(line[1:], "=")
			if !ok {
				return Template{}, fmt.Errorf("%w: line %d has no '='", ErrNotTemplate, i+2)
			}
			t.Fields = append(t.Fields, Field{Name: strings.TrimSpace(name), Value: value})
		case strings.HasPrefix(line, "}}"):
			return t.finish()
		case len(t.Fields) > 0:
			last := &t.Fields[len(t.Fields)-1]
			last.Value += "\n" + line
		}
	}
	return t.finish()
}

func (t Template) finish() (Template, error) {
	if len(t.Fields) == 0 {
		return Template{}, fmt.Errorf("%w: no fields", ErrNotTemplate)
	}
	for i := range t.Fields {
		f := &t.Fields[i]
		f.Value = strings.TrimSpace(f.Value)
		if f.Name == "title" && strings.HasPrefix(f.Value, qudTextOpen) && strings.HasSuffix(f.Value, qudTextClose) {
			f.Value = strings.TrimSuffix(strings.TrimPrefix(f.Value, qudTextOpen), qudTextClose)
		}
	}
	return t, nil
}

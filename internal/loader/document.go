package loader

import (
	"fmt"
	"io"
	"slices"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/qudex/internal/blueprint"
)

var (
	_ Source = YAMLSource{}
	_ Source = JSONCSource{}
)

// Document is the YAML/JSONC definition form:
//
//	blueprints:
//	  - name: Dagger
//	    inherits: BaseDagger
//	    tags:
//	      part_Render: {DisplayName: dagger}
//	      part_Metal: {}
//	    ops:
//	      - {op: remove, tag: part_Physics}
//
// The tags shorthand merges each field in sorted tag and field order, and an
// empty field map ensures the tag exists. Explicit ops follow the shorthand.
type Document struct {
	Blueprints []TemplateSpec `yaml:"blueprints"`
}

// TemplateSpec is one template in a Document.
type TemplateSpec struct {
	Name     string                       `yaml:"name"`
	Inherits string                       `yaml:"inherits,omitempty"`
	Tags     map[string]map[string]string `yaml:"tags,omitempty"`
	Ops      []OpSpec                     `yaml:"ops,omitempty"`
}

// OpSpec is one explicit attribute operation. Op is one of set, remove,
// merge, or ensure.
type OpSpec struct {
	Op     string            `yaml:"op"`
	Tag    string            `yaml:"tag"`
	Field  string            `yaml:"field,omitempty"`
	Value  string            `yaml:"value,omitempty"`
	Fields map[string]string `yaml:"fields,omitempty"`
}

// Templates converts the document into raw templates.
//
// Postcondition: Returns one template per entry in document order, or an
// error naming the first entry with an unknown operation.
func (d Document) Templates() ([]blueprint.RawTemplate, error) {
	out := make([]blueprint.RawTemplate, 0, len(d.Blueprints))
	for i, bp := range d.Blueprints {
		t := blueprint.RawTemplate{Name: bp.Name, Parent: bp.Inherits}

		tags := make([]string, 0, len(bp.Tags))
		for tag := range bp.Tags {
			tags = append(tags, tag)
		}
		slices.Sort(tags)
		for _, tag := range tags {
			fields := bp.Tags[tag]
			if len(fields) == 0 {
				t.Ops = append(t.Ops, blueprint.Ensure(tag))
				continue
			}
			names := make([]string, 0, len(fields))
			for f := range fields {
				names = append(names, f)
			}
			slices.Sort(names)
			for _, f := range names {
				t.Ops = append(t.Ops, blueprint.MergeField(tag, f, fields[f]))
			}
		}

		for j, op := range bp.Ops {
			kind, err := blueprint.ParseOpKind(op.Op)
			if err != nil {
				return nil, fmt.Errorf("blueprint #%d (%q) op #%d: %w", i, bp.Name, j, err)
			}
			t.Ops = append(t.Ops, blueprint.AttributeOp{
				Kind:   kind,
				Tag:    op.Tag,
				Field:  op.Field,
				Value:  op.Value,
				Fields: blueprint.Fields(op.Fields),
			})
		}
		out = append(out, t)
	}
	return out, nil
}

// DocumentFor renders templates in the explicit ops form, which reproduces
// them exactly.
func DocumentFor(templates []blueprint.RawTemplate) Document {
	d := Document{Blueprints: make([]TemplateSpec, 0, len(templates))}
	for _, t := range templates {
		bp := TemplateSpec{Name: t.Name, Inherits: t.Parent}
		for _, op := range t.Ops {
			bp.Ops = append(bp.Ops, OpSpec{
				Op:     op.Kind.String(),
				Tag:    op.Tag,
				Field:  op.Field,
				Value:  op.Value,
				Fields: op.Fields,
			})
		}
		d.Blueprints = append(d.Blueprints, bp)
	}
	return d
}

// WriteYAML encodes templates as a YAML Document.
func WriteYAML(w io.Writer, templates []blueprint.RawTemplate) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(DocumentFor(templates)); err != nil {
		return fmt.Errorf("encoding blueprint document: %w", err)
	}
	return enc.Close()
}

// YAMLSource parses a YAML Document.
type YAMLSource struct{}

// Parse implements Source.
func (YAMLSource) Parse(data []byte) ([]blueprint.RawTemplate, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return doc.Templates()
}

// JSONCSource parses a Document written as JSON with comments and trailing
// commas.
type JSONCSource struct{}

// Parse implements Source. The comment-stripped JSON is decoded with the YAML
// decoder, which accepts JSON and honours the same field tags.
func (JSONCSource) Parse(data []byte) ([]blueprint.RawTemplate, error) {
	var doc Document
	if err := yaml.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("jsonc: %w", err)
	}
	return doc.Templates()
}

package wiki

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cory-johannsen/qudex/internal/blueprint"
	"github.com/cory-johannsen/qudex/internal/config"
	"github.com/cory-johannsen/qudex/internal/props"
)

// CharacterRoots are the blueprints whose descendants use the Character
// template.
var CharacterRoots = []string{"Creature", "BasePlant", "BaseFungus", "Baetyl", "Wall"}

// CorpseRoots are the blueprints whose descendants use the Corpse template.
var CorpseRoots = []string{"RobotLimb", "Corpse"}

// NotCorpses descend from a corpse root but are documented as items.
var NotCorpses = []string{
	"Albino Ape Pelt",
	"Crystal of Eve",
	"Black Puma Haunch",
	"Arsplice Seed",
	"Albino Ape Heart",
	"Ogre Ape Heart",
}

// AlwaysEligible objects get a page even though their display names contain
// markup.
var AlwaysEligible = []string{"Argyve's Data Disk Encoded"}

// corpseOmitted fields are left out of Corpse templates.
var corpseOmitted = []string{"colorstr", "renderstr", "tile"}

// TypeOf returns the template type used for obj.
func TypeOf(obj *blueprint.Object) string {
	switch {
	case inheritsAny(obj, CharacterRoots):
		return TypeCharacter
	case obj.InheritsFrom("Food"):
		return TypeFood
	case inheritsAny(obj, CorpseRoots) && !slices.Contains(NotCorpses, obj.Name()):
		return TypeCorpse
	default:
		return TypeItem
	}
}

func inheritsAny(obj *blueprint.Object, roots []string) bool {
	return slices.ContainsFunc(roots, obj.InheritsFrom)
}

// getter derives one template field. props.ErrNotApplicable omits the field.
type getter func(*blueprint.Object) (string, error)

func intField(fn func(*blueprint.Object) (int, error)) getter {
	return func(obj *blueprint.Object) (string, error) {
		v, err := fn(obj)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(v), nil
	}
}

func attributeField(name string) getter {
	return intField(func(obj *blueprint.Object) (int, error) {
		if !props.IsCreature(obj) {
			return 0, props.ErrNotApplicable
		}
		return props.Attribute(obj, name)
	})
}

func renderField(field string) getter {
	return func(obj *blueprint.Object) (string, error) {
		v, ok := obj.Field("part_Render", field)
		if !ok || v == "" {
			return "", props.ErrNotApplicable
		}
		return v, nil
	}
}

var getters = map[string]getter{
	"title": func(obj *blueprint.Object) (string, error) { return props.DisplayName(obj), nil },
	"id":    func(obj *blueprint.Object) (string, error) { return obj.Name(), nil },
	"inherits": func(obj *blueprint.Object) (string, error) {
		if obj.IsRoot() {
			return "", props.ErrNotApplicable
		}
		return obj.ParentName(), nil
	},
	"level":        intField(props.Level),
	"hp":           props.HitPoints,
	"av":           intField(props.AV),
	"dv":           intField(props.DV),
	"strength":     attributeField("Strength"),
	"agility":      attributeField("Agility"),
	"toughness":    attributeField("Toughness"),
	"intelligence": attributeField("Intelligence"),
	"willpower":    attributeField("Willpower"),
	"ego":          attributeField("Ego"),
	"pv":           intField(props.PV),
	"damage":       props.Damage,
	"weight":       intField(props.Weight),
	"value": func(obj *blueprint.Object) (string, error) {
		v, err := props.Value(obj)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	},
	"tier": intField(props.Tier),
	"bits": props.Bits,
	"desc": props.Description,
	"renderstr": func(obj *blueprint.Object) (string, error) {
		v, err := renderField("RenderString")(obj)
		return strings.ReplaceAll(v, "}", "&#125;"), err
	},
	"colorstr": renderField("ColorString"),
	"tile": func(obj *blueprint.Object) (string, error) {
		tile, err := props.TileFor(obj)
		if err != nil {
			return "", err
		}
		return tile.File, nil
	},
}

// FieldNames returns the field names a Renderer can be configured with.
func FieldNames() []string {
	names := make([]string, 0, len(getters))
	for name := range getters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Renderer builds wiki templates for objects.
type Renderer struct {
	fields      []string
	categories  []config.WikiCategory
	eligibility []string
}

// NewRenderer returns a Renderer for cfg.
//
// Postcondition: Returns a Renderer, or an error naming every field that has
// no getter.
func NewRenderer(cfg config.WikiConfig) (*Renderer, error) {
	var unknown []string
	fields := make([]string, 0, len(cfg.Fields))
	for _, name := range cfg.Fields {
		if _, ok := getters[name]; !ok {
			unknown = append(unknown, name)
			continue
		}
		if name != "title" && !slices.Contains(fields, name) {
			fields = append(fields, name)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown wiki fields %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(FieldNames(), ", "))
	}
	return &Renderer{
		fields:      fields,
		categories:  slices.Clone(cfg.Categories),
		eligibility: slices.Clone(cfg.Eligibility),
	}, nil
}

// Template builds the wiki template for obj: the title, every configured
// field that applies, and the category when one matches.
//
// Postcondition: Returns the template, or the first error other than
// props.ErrNotApplicable raised by a field.
func (r *Renderer) Template(obj *blueprint.Object) (Template, error) {
	t := Template{
		Type:   TypeOf(obj),
		Fields: []Field{{Name: "title", Value: props.DisplayName(obj)}},
	}
	for _, name := range r.fields {
		if t.Type == TypeCorpse && slices.Contains(corpseOmitted, name) {
			continue
		}
		v, err := getters[name](obj)
		switch {
		case errors.Is(err, props.ErrNotApplicable):
			continue
		case err != nil:
			return Template{}, fmt.Errorf("wiki field %s: %w", name, err)
		case v == "":
			continue
		}
		t.Fields = append(t.Fields, Field{Name: name, Value: v})
	}
	if category, ok := r.Category(obj); ok {
		t.Fields = append(t.Fields, Field{Name: "categories", Value: category})
	}
	return t, nil
}

// Category returns the last configured category obj inherits from.
func (r *Renderer) Category(obj *blueprint.Object) (string, bool) {
	var category string
	for _, c := range r.categories {
		if inheritsAny(obj, c.Inherits) {
			category = c.Name
		}
	}
	return category, category != ""
}

// Eligible reports whether obj should have its own wiki page. Abstract
// objects and objects whose display names are empty or contain markup are
// never eligible; the configured rules decide the rest, later rules
// overriding earlier ones.
func (r *Renderer) Eligible(obj *blueprint.Object) bool {
	if slices.Contains(AlwaysEligible, obj.Name()) {
		return true
	}
	if obj.IsSpecified("tag_BaseObject", "") {
		return false
	}
	name := props.DisplayName(obj)
	if name == "" || strings.Contains(name, "[") {
		return false
	}
	eligible := true
	for _, rule := range r.eligibility {
		if len(rule) < 2 {
			continue
		}
		target := rule[1:]
		switch rule[0] {
		case '*':
			if obj.InheritsFrom(target) {
				eligible = true
			}
		case '/':
			if obj.InheritsFrom(target) {
				eligible = false
			}
		case '+':
			if obj.Name() == target {
				eligible = true
			}
		case '-':
			if obj.Name() == target {
				eligible = false
			}
		}
	}
	return eligible
}

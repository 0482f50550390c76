package loader

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cory-johannsen/qudex/internal/blueprint"
)

var _ Source = XMLSource{}

// XMLSource parses the game's object definition XML:
//
//	<objects>
//	  <object Name="Dagger" Inherits="BaseDagger">
//	    <part Name="Render" DisplayName="dagger" />
//	    <tag Name="Mods" Value="MeleeWeaponMods" />
//	    <inventoryobject Blueprint="Torch" Number="1" />
//	    <xtagGrammar Proper="true" />
//	    <removepart Name="Physics" />
//	  </object>
//	</objects>
//
// Each child element becomes a tag named <element>_<Name>. Every other
// attribute merges into that tag one field at a time, so children override
// single inherited fields; an element with no other attributes only ensures
// the tag exists. inventoryobject elements are keyed by Blueprint, xtag
// elements by the suffix after "xtag", and remove<element> elements delete
// the tag. Elements that fit none of these shapes are ignored.
type XMLSource struct{}

// invalidCharRefs are character references the game files contain but XML
// 1.0 forbids.
var invalidCharRefs = [][]byte{[]byte("&#15;"), []byte("&#11;")}

// Parse implements Source.
func (XMLSource) Parse(data []byte) ([]blueprint.RawTemplate, error) {
	for _, ref := range invalidCharRefs {
		data = bytes.ReplaceAll(data, ref, nil)
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	var templates []blueprint.RawTemplate
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "object" {
			continue
		}
		t, err := parseObject(dec, start)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}

// parseObject consumes one <object> element.
func parseObject(dec *xml.Decoder, start xml.StartElement) (blueprint.RawTemplate, error) {
	t := blueprint.RawTemplate{
		Name:   attr(start, "Name"),
		Parent: attr(start, "Inherits"),
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return t, fmt.Errorf("xml: object %q: %w", t.Name, err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			t.Ops = append(t.Ops, elementOps(el)...)
			// Definition elements carry no meaningful children.
			if err := dec.Skip(); err != nil {
				return t, fmt.Errorf("xml: object %q: %w", t.Name, err)
			}
		case xml.EndElement:
			return t, nil
		}
	}
}

// elementOps maps one definition element onto attribute operations.
func elementOps(el xml.StartElement) []blueprint.AttributeOp {
	local := el.Name.Local
	key := "Name"
	var tag string
	switch {
	case strings.HasPrefix(local, "remove") && len(local) > len("remove"):
		name := attr(el, "Name")
		if name == "" {
			return nil
		}
		return []blueprint.AttributeOp{blueprint.Remove(blueprint.TagName(local[len("remove"):], name))}
	case strings.HasPrefix(local, "xtag") && len(local) > len("xtag") && attr(el, "Name") == "":
		tag = blueprint.TagName("xtag", local[len("xtag"):])
		key = ""
	case local == "inventoryobject":
		name := attr(el, "Blueprint")
		if name == "" {
			return nil
		}
		tag = blueprint.TagName(local, name)
		key = "Blueprint"
	default:
		name := attr(el, "Name")
		if name == "" {
			return nil
		}
		tag = blueprint.TagName(local, name)
	}

	var ops []blueprint.AttributeOp
	for _, a := range el.Attr {
		if a.Name.Local == key && a.Name.Space == "" {
			continue
		}
		ops = append(ops, blueprint.MergeField(tag, a.Name.Local, a.Value))
	}
	if len(ops) == 0 {
		ops = append(ops, blueprint.Ensure(tag))
	}
	return ops
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value
		}
	}
	return ""
}

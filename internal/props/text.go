package props

import (
	"regexp"
	"strings"

	"github.com/cory-johannsen/qudex/internal/blueprint"
)

// oldStyleColor matches foreground (&X) and background (^X) color codes.
var oldStyleColor = regexp.MustCompile(`[&^][a-zA-Z]`)

// ColorRun is a span of text drawn with one shader. Shader is empty for
// uncolored text.
type ColorRun struct {
	Text   string
	Shader string
}

// ParseColors splits markup such as "{{K|{{crysteel|crysteel}} mace}}" into
// runs. Nested runs take the innermost shader.
func ParseColors(text string) []ColorRun {
	var (
		runs    []ColorRun
		shaders []string
		buf     strings.Builder
	)
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		shader := ""
		if len(shaders) > 0 {
			shader = shaders[len(shaders)-1]
		}
		runs = append(runs, ColorRun{Text: buf.String(), Shader: shader})
		buf.Reset()
	}

	for i := 0; i < len(text); {
		switch {
		case strings.HasPrefix(text[i:], "{{"):
			bar := strings.IndexByte(text[i+2:], '|')
			if bar < 0 {
				buf.WriteString(text[i:])
				i = len(text)
				continue
			}
			flush()
			shaders = append(shaders, text[i+2:i+2+bar])
			i += 2 + bar + 1
		case strings.HasPrefix(text[i:], "}}") && len(shaders) > 0:
			flush()
			shaders = shaders[:len(shaders)-1]
			i += 2
		default:
			buf.WriteByte(text[i])
			i++
		}
	}
	flush()
	return runs
}

// StripColorCodes removes both old-style (&y, ^k) and markup ({{y|...}})
// color codes.
func StripColorCodes(text string) string {
	text = oldStyleColor.ReplaceAllString(text, "")
	var b strings.Builder
	for _, run := range ParseColors(text) {
		b.WriteString(run.Text)
	}
	return b.String()
}

// DisplayName returns part_Render.DisplayName without color codes, or "".
func DisplayName(obj *blueprint.Object) string {
	name, _ := obj.Field("part_Render", "DisplayName")
	return StripColorCodes(name)
}

const defaultDescription = "A hideous specimen."

// Description returns the short description with any mark and bonus postfix
// appended. Objects that keep the placeholder description have none.
func Description(obj *blueprint.Object) (string, error) {
	var desc string
	short, _ := field(obj, "part_Description", "Short")
	switch {
	case short == defaultDescription:
		return "", ErrNotApplicable
	case obj.HasTag("intproperty_GenotypeBasedDescription"):
		trueKin, _ := obj.Field("property_TrueManDescription", "Value")
		mutant, _ := obj.Field("property_MutantDescription", "Value")
		desc = "[True kin]\n" + trueKin + "\n\n[Mutant]\n" + mutant
	case short != "":
		desc = short
		if mark, ok := field(obj, "part_Description", "Mark"); ok {
			desc += "\n\n" + mark
		}
	default:
		return "", ErrNotApplicable
	}
	if obj.HasTag("part_BonusPostfix") {
		postfix, _ := obj.Field("part_BonusPostfix", "Postfix")
		desc += "\n\n" + postfix
	}
	return strings.ReplaceAll(desc, "\r\n", "\n"), nil
}

// bitNames maps the bit codes stored in definitions to the ones the game
// displays.
var bitNames = strings.NewReplacer("G", "B", "R", "A", "C", "D", "B", "C")

// Bits returns the tinkering bits an item disassembles into, e.g. "0034".
func Bits(obj *blueprint.Object) (string, error) {
	if !obj.HasTag("part_TinkerItem") {
		return "", ErrNotApplicable
	}
	disassemble, _ := obj.Field("part_TinkerItem", "CanDisassemble")
	build, _ := obj.Field("part_TinkerItem", "CanBuild")
	if disassemble == "false" && build == "false" {
		return "", ErrNotApplicable
	}
	bits, ok := field(obj, "part_TinkerItem", "Bits")
	if !ok {
		return "", ErrNotApplicable
	}
	return bitNames.Replace(bits), nil
}

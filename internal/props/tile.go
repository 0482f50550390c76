package props

import (
	"strings"

	"github.com/cory-johannsen/qudex/internal/blueprint"
)

// Tile describes how an object's tile is colored. Colors are single-letter
// palette codes; palette lookup and image rendering happen elsewhere.
type Tile struct {
	File        string
	Foreground  string
	Background  string
	TileColor   string
	DetailColor string
}

const (
	defaultForeground = "y"
	transparent       = "transparent"
)

var hologramParts = []string{
	"part_HologramMaterial",
	"part_HologramWallMaterial",
	"part_HologramMaterialPrimary",
}

// TileFor builds the tile descriptor for obj from part_Render, or from the
// first entry of part_RandomTile. Abstract objects tagged BaseObject and
// objects without a tile file have no tile.
func TileFor(obj *blueprint.Object) (Tile, error) {
	if obj.HasTag("tag_BaseObject") {
		return Tile{}, ErrNotApplicable
	}
	file, _ := field(obj, "part_Render", "Tile")
	if tiles, ok := field(obj, "part_RandomTile", "Tiles"); ok {
		file, _, _ = strings.Cut(tiles, ",")
	}
	file = strings.TrimSpace(file)
	if file == "" {
		return Tile{}, ErrNotApplicable
	}

	var colorString, tileColor, detail string
	background := transparent
	switch {
	case isHologram(obj):
		colorString, tileColor, detail = "&B", "&B", "b"
	case obj.IsSpecified("part_AnimatedMaterialStasisfield", ""):
		colorString, tileColor, detail, background = "&C^M", "&C^M", "M", "M"
	case hasGasColor(obj):
		colorString, _ = obj.Field("part_Gas", "ColorString")
		tileColor = colorString
	default:
		colorString, _ = obj.Field("part_Render", "ColorString")
		tileColor, _ = obj.Field("part_Render", "TileColor")
		detail, _ = obj.Field("part_Render", "DetailColor")
	}

	fg, bg := splitColor(colorString)
	if fg == "" {
		fg = defaultForeground
	}
	if bg != "" {
		background = bg
	}
	tc, _ := splitColor(tileColor)
	if tc == "" {
		tc = fg
	}
	return Tile{
		File:        file,
		Foreground:  fg,
		Background:  background,
		TileColor:   tc,
		DetailColor: strings.TrimPrefix(detail, "&"),
	}, nil
}

func isHologram(obj *blueprint.Object) bool {
	for _, part := range hologramParts {
		if obj.IsSpecified(part, "") {
			return true
		}
	}
	return obj.Name() == "Wraith-Knight Templar"
}

func hasGasColor(obj *blueprint.Object) bool {
	if !obj.IsSpecified("part_Gas", "") {
		return false
	}
	_, ok := field(obj, "part_Gas", "ColorString")
	return ok
}

// splitColor parses a color string such as "&Y^k" into its foreground and
// background codes.
func splitColor(s string) (fg, bg string) {
	fg, bg, _ = strings.Cut(s, "^")
	return strings.TrimPrefix(fg, "&"), bg
}

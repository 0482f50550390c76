// Package props derives game-level properties from resolved blueprint
// objects: creature and item stats, display text, and tile descriptors.
//
// Every function is a read-only projection of a *blueprint.Object. A property
// that does not apply to an object (armor class of a torch, weight of a
// creature) reports ErrNotApplicable; a value that exists but cannot be
// interpreted reports the blueprint package's *MalformedValueError.
package props

import (
	"errors"
	"strings"

	"github.com/cory-johannsen/qudex/internal/blueprint"
)

// ErrNotApplicable reports a property that the object does not have.
var ErrNotApplicable = errors.New("props: property does not apply")

// ActiveCharacters are the roots of creatures with attributes and behaviour.
var ActiveCharacters = []string{"Creature", "ActivePlant"}

// InactiveCharacters are immobile combat targets without attributes.
var InactiveCharacters = []string{"BaseFungus", "Baetyl", "Wall", "Furniture"}

// IsCreature reports whether obj descends from an active character root.
func IsCreature(obj *blueprint.Object) bool {
	return inheritsAny(obj, ActiveCharacters)
}

// IsCharacter reports whether obj is an active or inactive character.
func IsCharacter(obj *blueprint.Object) bool {
	return IsCreature(obj) || inheritsAny(obj, InactiveCharacters)
}

// IsItem reports whether obj descends from Item.
func IsItem(obj *blueprint.Object) bool {
	return obj.InheritsFrom("Item")
}

func inheritsAny(obj *blueprint.Object, roots []string) bool {
	for _, r := range roots {
		if obj.InheritsFrom(r) {
			return true
		}
	}
	return false
}

// field returns a non-empty field value.
func field(obj *blueprint.Object, tag, name string) (string, bool) {
	v, ok := obj.Field(tag, name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Inventory returns the blueprint names of obj's starting inventory in tag
// order. Placeholder entries such as "*Junk 1" are skipped.
func Inventory(obj *blueprint.Object) []string {
	const prefix = "inventoryobject_"
	var names []string
	for _, tag := range obj.Tags() {
		name, ok := strings.CutPrefix(tag, prefix)
		if !ok || name == "" || strings.ContainsAny(name[:1], "*#@") {
			continue
		}
		names = append(names, name)
	}
	return names
}

// inventoryObjects resolves Inventory against obj's tree, skipping names the
// tree does not define and carried characters.
func inventoryObjects(obj *blueprint.Object) []*blueprint.Object {
	var out []*blueprint.Object
	for _, name := range Inventory(obj) {
		if item, ok := obj.Tree().Lookup(name); ok && !IsCharacter(item) {
			out = append(out, item)
		}
	}
	return out
}

var projectileFields = []string{
	"part_BioAmmoLoader",
	"part_AmmoArrow",
	"part_MagazineAmmoLoader",
	"part_EnergyAmmoLoader",
	"part_LiquidAmmoLoader",
}

// Projectile returns the object a missile weapon or arrow fires.
func Projectile(obj *blueprint.Object) (*blueprint.Object, bool) {
	if !obj.HasTag("part_MissileWeapon") && !obj.IsSpecified("part_AmmoArrow", "") {
		return nil, false
	}
	for _, tag := range projectileFields {
		name, ok := field(obj, tag, "ProjectileObject")
		if !ok {
			continue
		}
		if p, ok := obj.Tree().Lookup(name); ok {
			return p, true
		}
	}
	return nil, false
}

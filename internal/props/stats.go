package props

import (
	"errors"
	"strconv"
	"strings"

	"github.com/cory-johannsen/qudex/internal/blueprint"
	"github.com/cory-johannsen/qudex/internal/game/dice"
)

// Level returns the object's level from stat_Level. Ranged levels such as
// "18-29" report their lower bound.
func Level(obj *blueprint.Object) (int, error) {
	raw, ok := field(obj, "stat_Level", "sValue")
	name := "sValue"
	if !ok {
		raw, ok = field(obj, "stat_Level", "Value")
		name = "Value"
	}
	if !ok {
		return 0, ErrNotApplicable
	}
	lower, _, _ := strings.Cut(raw, "-")
	n, err := strconv.Atoi(strings.TrimSpace(lower))
	if err != nil {
		return 0, malformed(obj, "stat_Level", name, raw, err)
	}
	return n, nil
}

// HitPoints returns a character's raw hitpoint expression.
func HitPoints(obj *blueprint.Object) (string, error) {
	if !IsCharacter(obj) {
		return "", ErrNotApplicable
	}
	if v, ok := field(obj, "stat_Hitpoints", "sValue"); ok {
		return v, nil
	}
	if v, ok := field(obj, "stat_Hitpoints", "Value"); ok {
		return v, nil
	}
	return "", ErrNotApplicable
}

// AttributeExpr returns the unevaluated expression for a creature attribute
// such as "Strength", or the armor bonus to it for armor.
func AttributeExpr(obj *blueprint.Object, name string) (string, error) {
	tag := "stat_" + name
	switch {
	case IsCreature(obj):
		var expr string
		if sv, ok := field(obj, tag, "sValue"); ok {
			level, err := Level(obj)
			if err != nil {
				return "", err
			}
			n, err := dice.SValue(sv, level)
			if err != nil {
				return "", malformed(obj, tag, "sValue", sv, err)
			}
			expr = strconv.Itoa(n)
		} else if v, ok := field(obj, tag, "Value"); ok {
			expr = v
		} else {
			return "", ErrNotApplicable
		}
		if boost, ok := field(obj, tag, "Boost"); ok {
			expr += "+" + boost
		}
		return expr, nil
	case obj.InheritsFrom("Armor"):
		if v, ok := field(obj, "part_Armor", name); ok {
			return v, nil
		}
	}
	return "", ErrNotApplicable
}

// Attribute returns the average value of a creature attribute. Minions have
// every attribute reduced by a fifth.
func Attribute(obj *blueprint.Object, name string) (int, error) {
	expr, err := AttributeExpr(obj, name)
	if err != nil {
		return 0, err
	}
	e, err := dice.Parse(expr)
	if err != nil {
		return 0, malformed(obj, "stat_"+name, "Value", expr, err)
	}
	avg := e.Average()
	if role, _ := field(obj, "property_Role", "Value"); role == "Minion" {
		avg = avg * 4 / 5
	}
	return avg, nil
}

// AttributeModifier returns the roll modifier of an attribute: one point per
// two above or below 16, rounded down.
func AttributeModifier(obj *blueprint.Object, name string) (int, error) {
	v, err := Attribute(obj, name)
	if err != nil {
		return 0, err
	}
	return floorDiv(v-16, 2), nil
}

// AV returns the armor value an item grants or a character has. A
// character's AV includes the AV of its starting inventory.
func AV(obj *blueprint.Object) (int, error) {
	if IsCharacter(obj) {
		av, err := obj.Stat("stat_AV", "Value", 0)
		if err != nil {
			return 0, err
		}
		for _, item := range inventoryObjects(obj) {
			n, err := AV(item)
			if errors.Is(err, ErrNotApplicable) {
				continue
			}
			if err != nil {
				return 0, err
			}
			av += n
		}
		return av, nil
	}

	tag := ""
	for _, t := range []string{"part_Armor", "part_Shield"} {
		if _, ok := field(obj, t, "AV"); ok {
			tag = t
		}
	}
	if tag == "" {
		return 0, ErrNotApplicable
	}
	return obj.Stat(tag, "AV", 0)
}

// DV returns the dodge value modifier of armor and shields, or the dodge value
// of a character: a base of 6 plus bonuses from stats, skills, agility,
// inventory, and mutations. Immobile characters have a DV of -10.
func DV(obj *blueprint.Object) (int, error) {
	switch {
	case obj.InheritsFrom("Shield"):
		if _, ok := field(obj, "part_Shield", "DV"); ok {
			return obj.Stat("part_Shield", "DV", 0)
		}
		return 0, ErrNotApplicable
	case obj.InheritsFrom("Armor"):
		if _, ok := field(obj, "part_Armor", "DV"); ok {
			return obj.Stat("part_Armor", "DV", 0)
		}
		return 0, ErrNotApplicable
	case !IsCharacter(obj):
		return 0, ErrNotApplicable
	case !IsCreature(obj):
		return -10, nil
	}

	if obj.IsSpecified("part_Brain", "Mobile") {
		if mobile, err := obj.Flag("part_Brain", "Mobile"); err == nil && !mobile {
			return -10, nil
		}
	}

	dv, err := obj.Stat("stat_DV", "Value", 0)
	if err != nil {
		return 0, err
	}
	dv += 6
	if obj.HasTag("skill_Acrobatics_Dodge") {
		dv += 2
	}
	if obj.HasTag("skill_Acrobatics_Tumble") {
		dv += 1
	}
	mod, err := AttributeModifier(obj, "Agility")
	switch {
	case err == nil:
		dv += mod
	case !errors.Is(err, ErrNotApplicable):
		return 0, err
	}
	for _, item := range inventoryObjects(obj) {
		n, err := DV(item)
		if errors.Is(err, ErrNotApplicable) {
			continue
		}
		if err != nil {
			return 0, err
		}
		dv += n
	}
	if obj.HasTag("mutation_Carapace") {
		lvl, err := obj.Stat("mutation_Carapace", "Level", 0)
		if err != nil {
			return 0, err
		}
		dv -= 7 - (lvl+1)/2
	}
	return dv, nil
}

// PV returns a weapon's penetration value: 4 plus any penetration bonus.
// Missile weapons use their projectile's base penetration.
func PV(obj *blueprint.Object) (int, error) {
	if p, ok := Projectile(obj); ok {
		if _, has := field(p, "part_Projectile", "BasePenetration"); has {
			pv, err := p.Stat("part_Projectile", "BasePenetration", 0)
			if err != nil {
				return 0, err
			}
			return pv + 4, nil
		}
	}
	if !obj.InheritsFrom("MeleeWeapon") && !obj.IsSpecified("part_MeleeWeapon", "") {
		return 0, ErrNotApplicable
	}
	tag, name := "part_MeleeWeapon", "PenBonus"
	if _, ok := field(obj, "part_Gaslight", "ChargedPenetrationBonus"); ok {
		tag, name = "part_Gaslight", "ChargedPenetrationBonus"
	}
	bonus, err := obj.Stat(tag, name, 0)
	if err != nil {
		return 0, err
	}
	return 4 + bonus, nil
}

// Damage returns the damage expression a weapon deals, usually dice.
func Damage(obj *blueprint.Object) (string, error) {
	var val string
	if obj.InheritsFrom("MeleeWeapon") || obj.IsSpecified("part_MeleeWeapon", "") {
		val, _ = field(obj, "part_MeleeWeapon", "BaseDamage")
	}
	if obj.HasTag("part_Gaslight") {
		val, _ = field(obj, "part_Gaslight", "ChargedDamage")
	}
	if obj.IsSpecified("part_ThrownWeapon", "") {
		if obj.IsSpecified("part_GeomagneticDisk", "") {
			val, _ = field(obj, "part_GeomagneticDisk", "Damage")
		} else {
			val, _ = field(obj, "part_ThrownWeapon", "Damage")
		}
	}
	if p, ok := Projectile(obj); ok {
		if d, ok := field(p, "part_Projectile", "BaseDamage"); ok {
			val = d
		}
	}
	if val == "" {
		return "", ErrNotApplicable
	}
	return val, nil
}

// Weight returns the physical weight of a non-creature.
func Weight(obj *blueprint.Object) (int, error) {
	if obj.InheritsFrom("Creature") {
		return 0, ErrNotApplicable
	}
	if _, ok := field(obj, "part_Physics", "Weight"); !ok {
		return 0, ErrNotApplicable
	}
	return obj.Stat("part_Physics", "Weight", 0)
}

// Value returns the trade value of an item.
func Value(obj *blueprint.Object) (float64, error) {
	if !IsItem(obj) && !obj.InheritsFrom("BaseThrownWeapon") {
		return 0, ErrNotApplicable
	}
	raw, ok := field(obj, "part_Commerce", "Value")
	if !ok {
		return 0, ErrNotApplicable
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, malformed(obj, "part_Commerce", "Value", raw, err)
	}
	return v, nil
}

// Tier returns the object's tech tier: an explicit tag_Tier, else the
// highest tinker bit, else a fifth of its level.
func Tier(obj *blueprint.Object) (int, error) {
	if !obj.IsSpecified("tag_Tier", "Value") {
		if bits, ok := obj.Field("part_TinkerItem", "Bits"); ok && obj.IsSpecified("part_TinkerItem", "Bits") {
			if n := len(bits); n > 0 && bits[n-1] >= '0' && bits[n-1] <= '9' {
				return int(bits[n-1] - '0'), nil
			}
			return 0, nil
		}
		if level, err := Level(obj); err == nil {
			return level / 5, nil
		} else if !errors.Is(err, ErrNotApplicable) {
			return 0, err
		}
	}
	if _, ok := field(obj, "tag_Tier", "Value"); !ok {
		return 0, ErrNotApplicable
	}
	return obj.Stat("tag_Tier", "Value", 0)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func malformed(obj *blueprint.Object, tag, field, value string, err error) error {
	return &blueprint.MalformedValueError{
		Object: obj.Name(),
		Tag:    tag,
		Field:  field,
		Value:  value,
		Err:    err,
	}
}

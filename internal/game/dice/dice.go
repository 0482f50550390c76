// Package dice interprets the numeric expressions found in blueprint fields:
// plain integers ("17"), base+modifier sums ("10+5"), and dice strings such as
// "1d4", "2d6+3", or "3d6+1-2d2".
package dice

import (
	"fmt"
	"strings"
)

// Segment is one signed term of an expression. A flat bonus is stored as a
// one-sided die, so "+3" is Segment{Count: 3, Sides: 1}.
//
// Invariant: Sides >= 1. Count carries the sign of the term.
type Segment struct {
	Count int
	Sides int
}

// Expression is a parsed sum of segments.
type Expression struct {
	Raw      string // original input string
	Segments []Segment
}

// Average returns the mean value of the expression truncated toward zero.
//
// Postcondition: for a constant expression, Average() == Minimum() == Maximum().
func (e Expression) Average() int {
	total := 0.0
	for _, s := range e.Segments {
		total += float64(s.Count) * (1.0 + float64(s.Sides)) / 2.0
	}
	return int(total)
}

// Minimum returns the lowest value the expression can produce.
func (e Expression) Minimum() int {
	total := 0
	for _, s := range e.Segments {
		if s.Count >= 0 {
			total += s.Count
		} else {
			total += s.Count * s.Sides
		}
	}
	return total
}

// Maximum returns the highest value the expression can produce.
func (e Expression) Maximum() int {
	total := 0
	for _, s := range e.Segments {
		if s.Count >= 0 {
			total += s.Count * s.Sides
		} else {
			total += s.Count
		}
	}
	return total
}

// IsConstant reports whether the expression contains no real dice.
func (e Expression) IsConstant() bool {
	for _, s := range e.Segments {
		if s.Sides > 1 && s.Count != 0 {
			return false
		}
	}
	return true
}

// Range renders the expression's value range, e.g. "3-18", or a single
// number when the expression is constant.
func (e Expression) Range() string {
	lo, hi := e.Minimum(), e.Maximum()
	if lo == hi {
		return fmt.Sprintf("%d", lo)
	}
	return fmt.Sprintf("%d-%d", lo, hi)
}

// String returns the canonical form of the expression, e.g. "2d6+3".
func (e Expression) String() string {
	var b strings.Builder
	for i, s := range e.Segments {
		count := s.Count
		switch {
		case count < 0:
			b.WriteByte('-')
			count = -count
		case i > 0:
			b.WriteByte('+')
		}
		if s.Sides == 1 {
			fmt.Fprintf(&b, "%d", count)
		} else {
			fmt.Fprintf(&b, "%dd%d", count, s.Sides)
		}
	}
	return b.String()
}

// Resolve parses expr and returns its single resolved value: exact for
// constants and base+modifier sums, the truncated average for dice.
//
// Postcondition: Returns the value or a parse error naming expr.
func Resolve(expr string) (int, error) {
	e, err := Parse(expr)
	if err != nil {
		return 0, err
	}
	return e.Average(), nil
}

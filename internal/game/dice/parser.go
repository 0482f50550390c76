package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Bounds on a single term. Within them no sum of a realistic expression can
// overflow an int.
const (
	MaxConstant = 1_000_000_000
	MaxCount    = 1_000_000
	MaxSides    = 1_000_000
)

// Parse parses an expression string into an Expression.
// Supported forms: "17", "-2", "+3", "10+5", "d20", "2d6", "2d6+3", "3d6+1-2d2".
// Whitespace is ignored.
//
// Precondition: expr must be a non-empty string.
// Postcondition: Returns an Expression with at least one segment or a descriptive error.
func Parse(expr string) (Expression, error) {
	raw := expr
	s := strings.ToLower(strings.Join(strings.Fields(expr), ""))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != 'd' && r != '+' && r != '-' {
			return Expression{}, fmt.Errorf("dice: invalid character %q in %q", r, raw)
		}
	}

	var segments []Segment
	start := 0
	for i := 1; i <= len(s); i++ {
		if i < len(s) && s[i] != '+' && s[i] != '-' {
			continue
		}
		seg, err := parseSegment(s[start:i])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: %w in %q", err, raw)
		}
		segments = append(segments, seg)
		start = i
	}

	return Expression{Raw: raw, Segments: segments}, nil
}

// parseSegment parses one signed term: "+3", "-1d2", "2d6", "d20".
func parseSegment(term string) (Segment, error) {
	sign := 1
	body := term
	switch {
	case strings.HasPrefix(body, "+"):
		body = body[1:]
	case strings.HasPrefix(body, "-"):
		sign = -1
		body = body[1:]
	}
	if body == "" {
		return Segment{}, fmt.Errorf("dangling sign")
	}

	dIdx := strings.IndexByte(body, 'd')
	if dIdx < 0 {
		n, err := strconv.Atoi(body)
		if err != nil {
			return Segment{}, fmt.Errorf("invalid number %q", body)
		}
		if n > MaxConstant {
			return Segment{}, fmt.Errorf("number %d exceeds %d", n, MaxConstant)
		}
		return Segment{Count: sign * n, Sides: 1}, nil
	}

	// Count defaults to 1 when omitted ("d20").
	count := 1
	if countStr := body[:dIdx]; countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil {
			return Segment{}, fmt.Errorf("invalid die count %q", countStr)
		}
		if n > MaxCount {
			return Segment{}, fmt.Errorf("die count %d exceeds %d", n, MaxCount)
		}
		count = n
	}
	sides, err := strconv.Atoi(body[dIdx+1:])
	if err != nil {
		return Segment{}, fmt.Errorf("invalid die sides %q", body[dIdx+1:])
	}
	if sides < 1 {
		return Segment{}, fmt.Errorf("die sides must be >= 1, got %d", sides)
	}
	if sides > MaxSides {
		return Segment{}, fmt.Errorf("die sides %d exceeds %d", sides, MaxSides)
	}
	return Segment{Count: sign * count, Sides: sides}, nil
}

// MustParse parses expr and panics on error. Useful for package-level constants.
//
// Precondition: expr must be a valid expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

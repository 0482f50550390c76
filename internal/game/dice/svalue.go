package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// tierTerm matches the level-tier placeholder in sValue parts: "(t)", "(t-1)", "(t+2)".
var tierTerm = regexp.MustCompile(`\(t([+-]\d+)?\)`)

// Tier returns the sValue tier for a creature level: level/5 + 1.
func Tier(level int) int {
	return level/5 + 1
}

// SValue resolves a comma-separated sValue such as "16,1d3,(t-1)d2" for a
// creature of the given level. Each part is resolved by Resolve and the parts
// are summed. Tier placeholders that evaluate below zero count as zero dice.
//
// Postcondition: Returns the summed value or an error naming the bad part.
func SValue(expr string, level int) (int, error) {
	if strings.TrimSpace(expr) == "" {
		return 0, fmt.Errorf("dice: empty sValue")
	}
	t := Tier(level)
	total := 0
	for _, part := range strings.Split(expr, ",") {
		var subErr error
		part = tierTerm.ReplaceAllStringFunc(part, func(m string) string {
			n := t
			if sub := tierTerm.FindStringSubmatch(m); sub[1] != "" {
				delta, err := strconv.Atoi(sub[1])
				if err != nil {
					subErr = err
					return m
				}
				n += delta
			}
			if n < 0 {
				n = 0
			}
			return strconv.Itoa(n)
		})
		if subErr != nil {
			return 0, fmt.Errorf("dice: sValue %q: %w", expr, subErr)
		}
		v, err := Resolve(part)
		if err != nil {
			return 0, fmt.Errorf("dice: sValue %q: %w", expr, err)
		}
		total += v
	}
	return total, nil
}

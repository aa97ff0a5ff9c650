package document

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseVersion splits a dotted version token into its numeric components.
func ParseVersion(v string) ([]int, error) {
	if v == "" {
		return nil, fmt.Errorf("empty version")
	}
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || strings.HasPrefix(p, "+") {
			return nil, fmt.Errorf("version %q: component %q is not numeric", v, p)
		}
		out[i] = n
	}
	return out, nil
}

// CompareVersions orders two version tokens component by component, missing
// trailing components counting as zero ("9.6" == "9.6.0").
//
// When either token has a non-numeric component the comparison falls back to
// plain string ordering, which is what the legacy generator always did, and
// numeric is false so callers can surface the ambiguity.
func CompareVersions(a, b string) (cmp int, numeric bool) {
	va, errA := ParseVersion(a)
	vb, errB := ParseVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b), false
	}
	for i := 0; i < len(va) || i < len(vb); i++ {
		var x, y int
		if i < len(va) {
			x = va[i]
		}
		if i < len(vb) {
			y = vb[i]
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
	}
	return 0, true
}

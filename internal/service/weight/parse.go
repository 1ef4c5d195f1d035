package weight

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// numericPrefix matches the longest leading decimal number, so "65.3kg" reads as 65.3.
var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ParseWeight reads a weight from free-form chat text. Full-width digits are accepted.
func ParseWeight(text string) (float64, bool) {
	s := strings.TrimLeftFunc(width.Narrow.String(text), unicode.IsSpace)

	m := numericPrefix.FindString(s)
	if m == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

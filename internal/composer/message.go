// Package composer builds the status line posted after each weigh-in.
package composer

import (
	"math"
	"math/big"
	"strconv"
)

// Hashtag is appended to every composed message.
const Hashtag = "#kuritterweight"

// Compose renders current weight and the change since previous, e.g. "71.5kg(+1.5) #kuritterweight".
// An unknown previous weight is passed as 0.
func Compose(previous, current float64) string {
	delta := current - previous

	var diff string
	switch {
	case delta > 0:
		diff = "+" + oneDecimal(delta)
	case delta < 0:
		diff = "-" + oneDecimal(-delta)
	default:
		diff = "±0"
	}

	return strconv.FormatFloat(current, 'f', -1, 64) + "kg(" + diff + ") " + Hashtag
}

// oneDecimal formats a non-negative v to one decimal place. Rounding works on
// the exact binary value of v and an exact tie goes up, so 0.25 gives "0.3".
func oneDecimal(v float64) string {
	x := new(big.Float).SetPrec(128).SetFloat64(math.Abs(v))
	x.Mul(x, big.NewFloat(10))

	n, _ := x.Int(nil)
	frac := new(big.Float).SetPrec(128).Sub(x, new(big.Float).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	s := n.String()
	if len(s) < 2 {
		s = "0" + s
	}
	return s[:len(s)-1] + "." + s[len(s)-1:]
}

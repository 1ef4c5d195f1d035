package composer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompose(t *testing.T) {
	cases := []struct {
		name     string
		previous float64
		current  float64
		want     string
	}{
		{"unchanged", 70.0, 70.0, "70kg(±0) #kuritterweight"},
		{"gain", 70.0, 71.5, "71.5kg(+1.5) #kuritterweight"},
		{"loss", 70.0, 68.2, "68.2kg(-1.8) #kuritterweight"},
		{"first weigh-in", 0, 65.3, "65.3kg(+65.3) #kuritterweight"},
		{"rounds to one decimal", 60.0, 60.26, "60.26kg(+0.3) #kuritterweight"},
		{"tiny loss keeps sign", 60.04, 60.0, "60kg(-0.0) #kuritterweight"},
		{"gain tie rounds up", 70.0, 70.25, "70.25kg(+0.3) #kuritterweight"},
		{"larger gain tie rounds up", 70.0, 71.25, "71.25kg(+1.3) #kuritterweight"},
		{"loss tie rounds away from zero", 70.25, 70.0, "70kg(-0.3) #kuritterweight"},
		{"just below tie rounds down", 0, 1.45, "1.45kg(+1.4) #kuritterweight"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compose(tc.previous, tc.current))
		})
	}
}

func TestComposeDeltaToken(t *testing.T) {
	pairs := [][2]float64{{50, 51}, {51, 50}, {80.5, 80.5}, {0, 0}, {99.9, 100.1}, {100.1, 99.9}}

	for _, p := range pairs {
		previous, current := p[0], p[1]
		out := Compose(previous, current)

		open := strings.Index(out, "(")
		closing := strings.Index(out, ")")
		if !assert.True(t, open > 0 && closing > open, out) {
			continue
		}
		token := out[open+1 : closing]

		assert.True(t, strings.HasSuffix(out[:open], "kg"), out)
		switch {
		case current > previous:
			assert.True(t, strings.HasPrefix(token, "+"), out)
		case current < previous:
			assert.True(t, strings.HasPrefix(token, "-"), out)
		default:
			assert.Equal(t, "±0", token)
		}
		assert.True(t, strings.HasSuffix(out, " "+Hashtag), out)
	}
}

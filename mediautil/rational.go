package mediautil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rational is an EXIF-style rational value.
type Rational struct {
	Num int64
	Den int64
}

// String renders the rational as "num/den".
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ParseRational converts typical photographic metadata notations into a
// rational: "1/125", "f/2.8", "50mm", bare integers and floats. Floats are
// approximated with a denominator capped at 10000. Unparseable input yields
// 0/1.
func ParseRational(value string) Rational {
	s := strings.ToLower(strings.TrimSpace(value))

	if num, den, ok := strings.Cut(s, "/"); ok && num != "f" {
		n, errN := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		d, errD := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if errN == nil && errD == nil && d != 0 {
			return Rational{Num: n, Den: d}
		}
	}

	s = strings.TrimPrefix(s, "f/")
	s = strings.TrimSuffix(s, "mm")
	s = strings.TrimSpace(s)

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Rational{Num: n, Den: 1}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FloatRational(f)
	}
	return Rational{Num: 0, Den: 1}
}

// FloatRational approximates f as a rational with denominator at most 10000,
// using continued fractions.
func FloatRational(f float64) Rational {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Rational{Num: 0, Den: 1}
	}

	neg := f < 0
	if neg {
		f = -f
	}

	const maxDen = 10000

	// Continued-fraction convergents until the denominator bound is hit.
	var (
		h0, h1 int64 = 1, int64(math.Floor(f))
		k0, k1 int64 = 0, 1
		x            = f
	)
	for i := 0; i < 64; i++ {
		frac := x - math.Floor(x)
		if frac < 1e-12 {
			break
		}
		x = 1 / frac
		a := int64(math.Floor(x))
		h2 := a*h1 + h0
		k2 := a*k1 + k0
		if k2 > maxDen {
			break
		}
		h0, h1 = h1, h2
		k0, k1 = k1, k2
	}

	if neg {
		h1 = -h1
	}
	if k1 == 0 {
		k1 = 1
	}
	return Rational{Num: h1, Den: k1}
}

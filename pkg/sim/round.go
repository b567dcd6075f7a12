package sim

import (
	"math"
	"strconv"
	"strings"
)

// shift moves the decimal point of x by places digits by rewriting its
// shortest decimal representation, so 1.005 shifted by 2 is exactly 100.5
// rather than 100.49999999999999.
func shift(x float64, places int) float64 {
	s := strconv.FormatFloat(x, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	e, err := strconv.Atoi(exp)
	if err != nil {
		return x * math.Pow10(places)
	}
	v, err := strconv.ParseFloat(mant+"e"+strconv.Itoa(e+places), 64)
	if err != nil {
		return x * math.Pow10(places)
	}
	return v
}

// RoundHalfAwayFromZero rounds x to the given number of decimal places
// using the decimal digits of x as written, not its binary expansion.
func RoundHalfAwayFromZero(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return shift(math.Round(shift(x, places)), -places)
}

// RoundAndFloor rounds x and then clamps the result at zero.
func RoundAndFloor(x float64, places int) float64 {
	return math.Max(RoundHalfAwayFromZero(x, places), 0)
}

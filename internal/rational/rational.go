// Package rational implements exact fractions over signed 64-bit
// numerator/denominator pairs, the backing representation of the
// language's Number value.
package rational

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rational is an exact fraction. Denom is always > 0 and Num/Denom is
// always stored in lowest terms. The zero value is 0/1.
type Rational struct {
	Num   int64
	Denom int64
}

// Overflow is returned by operations whose exact result cannot be
// represented in 64-bit numerator/denominator form. This implementation
// fails rather than silently saturating (the policy must be
// documented, not hidden).
type Overflow struct {
	Op string
}

func (e *Overflow) Error() string {
	return fmt.Sprintf("rational: %s overflows int64", e.Op)
}

// New returns a reduced Rational equal to num/denom.
func New(num, denom int64) (Rational, error) {
	if denom == 0 {
		return Rational{}, fmt.Errorf("rational: zero denominator")
	}
	if denom < 0 {
		if num == math.MinInt64 || denom == math.MinInt64 {
			return Rational{}, &Overflow{Op: "sign normalization"}
		}
		num, denom = -num, -denom
	}
	g := gcd(abs64(num), denom)
	if g > 1 {
		num /= g
		denom /= g
	}
	return Rational{Num: num, Denom: denom}, nil
}

// FromInt returns the integer n as a Rational.
func FromInt(n int64) Rational {
	return Rational{Num: n, Denom: 1}
}

// FromFloat64 parses the shortest exact decimal representation of f,
// the way the parser turns source literals like "1.2" or "2e20" into
// numerator/denominator pairs.
func FromFloat64(f float64) (Rational, error) {
	return FromDecimalString(strconv.FormatFloat(f, 'g', -1, 64))
}

// FromDecimalString parses a decimal literal (optional sign, digits,
// optional fractional part, optional scientific exponent) into an exact
// Rational, matching the formula grammar.
func FromDecimalString(s string) (Rational, error) {
	orig := s
	neg := false
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	} else if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	mantissa := s
	exp := 0
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa = s[:i]
		e, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return Rational{}, fmt.Errorf("rational: invalid exponent in %q", orig)
		}
		exp = e
	}

	intPart := mantissa
	fracPart := ""
	if i := strings.IndexByte(mantissa, '.'); i >= 0 {
		intPart = mantissa[:i]
		fracPart = mantissa[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return Rational{}, fmt.Errorf("rational: invalid number %q", orig)
	}
	if intPart == "" {
		intPart = "0"
	}

	digits := intPart + fracPart
	if digits == "" {
		digits = "0"
	}
	num, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("rational: %q out of int64 range: %w", orig, err)
	}

	denomExp := len(fracPart) - exp
	var denom int64 = 1
	for i := 0; i < denomExp; i++ {
		nd := denom * 10
		if nd/10 != denom {
			return Rational{}, &Overflow{Op: "literal denominator"}
		}
		denom = nd
	}
	for i := 0; i < -denomExp; i++ {
		nn := num * 10
		if num != 0 && nn/10 != num {
			return Rational{}, &Overflow{Op: "literal numerator"}
		}
		num = nn
	}

	if neg {
		num = -num
	}
	return New(num, denom)
}

// IsInt reports whether r represents an integer value.
func (r Rational) IsInt() bool {
	return r.Denom == 1
}

// Sign returns -1, 0, or 1.
func (r Rational) Sign() int {
	switch {
	case r.Num < 0:
		return -1
	case r.Num > 0:
		return 1
	default:
		return 0
	}
}

// Float64 returns the nearest float64 projection, used only for display
// of non-integer results.
func (r Rational) Float64() float64 {
	return float64(r.Num) / float64(r.Denom)
}

// Add returns r+o.
func (r Rational) Add(o Rational) (Rational, error) {
	num1, ok1 := mulOverflow(r.Num, o.Denom)
	num2, ok2 := mulOverflow(o.Num, r.Denom)
	denom, ok3 := mulOverflow(r.Denom, o.Denom)
	if !ok1 || !ok2 || !ok3 {
		return Rational{}, &Overflow{Op: "add"}
	}
	num, ok := addOverflow(num1, num2)
	if !ok {
		return Rational{}, &Overflow{Op: "add"}
	}
	return New(num, denom)
}

// Sub returns r-o.
func (r Rational) Sub(o Rational) (Rational, error) {
	neg, err := o.Negate()
	if err != nil {
		return Rational{}, err
	}
	return r.Add(neg)
}

// Mul returns r*o.
func (r Rational) Mul(o Rational) (Rational, error) {
	num, ok1 := mulOverflow(r.Num, o.Num)
	denom, ok2 := mulOverflow(r.Denom, o.Denom)
	if !ok1 || !ok2 {
		return Rational{}, &Overflow{Op: "multiply"}
	}
	return New(num, denom)
}

// Div returns r/o.
func (r Rational) Div(o Rational) (Rational, error) {
	if o.Num == 0 {
		return Rational{}, fmt.Errorf("rational: divide by zero")
	}
	num, ok1 := mulOverflow(r.Num, o.Denom)
	denom, ok2 := mulOverflow(r.Denom, o.Num)
	if !ok1 || !ok2 {
		return Rational{}, &Overflow{Op: "divide"}
	}
	return New(num, denom)
}

// Mod returns the rational remainder of r/o, matching the sign of r:
// "a - trunc(a/b)*b", with the quotient truncated toward zero.
func (r Rational) Mod(o Rational) (Rational, error) {
	if o.Num == 0 {
		return Rational{}, fmt.Errorf("rational: modulo by zero")
	}
	q, err := r.Div(o)
	if err != nil {
		return Rational{}, err
	}
	qi := q.Num / q.Denom // truncate toward zero
	whole, err := o.Mul(FromInt(qi))
	if err != nil {
		return Rational{}, err
	}
	return r.Sub(whole)
}

// Negate returns -r.
func (r Rational) Negate() (Rational, error) {
	if r.Num == math.MinInt64 {
		return Rational{}, &Overflow{Op: "negate"}
	}
	return Rational{Num: -r.Num, Denom: r.Denom}, nil
}

// Pow raises r to an integer power n. Non-integer exponents are a
// compile/runtime error handled by the caller; this only does integer
// powers, positive or negative.
func (r Rational) Pow(n int64) (Rational, error) {
	if n == 0 {
		return FromInt(1), nil
	}
	base := r
	neg := n < 0
	if neg {
		n = -n
	}
	result := FromInt(1)
	for n > 0 {
		if n&1 == 1 {
			var err error
			result, err = result.Mul(base)
			if err != nil {
				return Rational{}, err
			}
		}
		n >>= 1
		if n > 0 {
			var err error
			base, err = base.Mul(base)
			if err != nil {
				return Rational{}, err
			}
		}
	}
	if neg {
		return FromInt(1).Div(result)
	}
	return result, nil
}

// Factorial computes r! exactly for a non-negative integer r, failing on
// overflow rather than saturating.
func Factorial(r Rational) (Rational, error) {
	if !r.IsInt() {
		return Rational{}, fmt.Errorf("rational: factorial requires an integer")
	}
	if r.Num < 0 {
		return Rational{}, fmt.Errorf("rational: factorial requires a non-negative value")
	}
	result := int64(1)
	for i := int64(2); i <= r.Num; i++ {
		nr, ok := mulOverflow(result, i)
		if !ok {
			return Rational{}, &Overflow{Op: "factorial"}
		}
		result = nr
	}
	return FromInt(result), nil
}

// Compare returns -1, 0, or 1 comparing r to o. Fails rather than
// silently wrapping if either cross-multiplication overflows int64.
func (r Rational) Compare(o Rational) (int, error) {
	lhs, ok := mulOverflow(r.Num, o.Denom)
	if !ok {
		return 0, &Overflow{Op: "compare"}
	}
	rhs, ok := mulOverflow(o.Num, r.Denom)
	if !ok {
		return 0, &Overflow{Op: "compare"}
	}
	switch {
	case lhs < rhs:
		return -1, nil
	case lhs > rhs:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equal reports whether r == o once both are in lowest terms.
func (r Rational) Equal(o Rational) bool {
	return r.Num == o.Num && r.Denom == o.Denom
}

// String renders an integer rational as a decimal integer and a
// non-integer rational as its shortest float64 decimal projection,
// matching the display rules.
func (r Rational) String() string {
	if r.IsInt() {
		return strconv.FormatInt(r.Num, 10)
	}
	return strconv.FormatFloat(r.Float64(), 'g', -1, 64)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func mulOverflow(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

func addOverflow(a, b int64) (int64, bool) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, false
	}
	return r, true
}

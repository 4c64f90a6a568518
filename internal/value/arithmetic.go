package value

import (
	"strconv"

	"formulang/internal/ferrors"
	"formulang/internal/rational"
)

// Add implements the '+' dispatch table: Number+Number,
// String+String (concat), Number/String cross-concat (stringify the
// number), and DateTime shifted by a Duration in either operand order.
func Add(a, b Value) (Value, error) {
	switch {
	case a.Kind == KindNumber && b.Kind == KindNumber:
		r, err := a.numVal.Add(b.numVal)
		if err != nil {
			return Value{}, ferrors.New(ferrors.NumberConversionError, "%s", err)
		}
		return Number(r), nil
	case a.Kind == KindString && b.Kind == KindString:
		return String(a.strVal + b.strVal), nil
	case a.Kind == KindString && b.Kind == KindNumber:
		return String(a.strVal + Display(b)), nil
	case a.Kind == KindNumber && b.Kind == KindString:
		return String(Display(a) + b.strVal), nil
	case a.Kind == KindDateTime && b.Kind == KindDuration:
		return shiftDateTime(a.dtVal, b.durVal)
	case a.Kind == KindDuration && b.Kind == KindDateTime:
		return shiftDateTime(b.dtVal, a.durVal)
	case a.Kind == KindDuration && b.Kind == KindDuration:
		return Duration(a.durVal + b.durVal), nil
	default:
		return Value{}, mismatch("+", a, b)
	}
}

// Sub implements '-': Number-Number, DateTime-Duration (not the reverse),
// and Duration-Duration.
func Sub(a, b Value) (Value, error) {
	switch {
	case a.Kind == KindNumber && b.Kind == KindNumber:
		r, err := a.numVal.Sub(b.numVal)
		if err != nil {
			return Value{}, ferrors.New(ferrors.NumberConversionError, "%s", err)
		}
		return Number(r), nil
	case a.Kind == KindDateTime && b.Kind == KindDuration:
		return shiftDateTime(a.dtVal, -b.durVal)
	case a.Kind == KindDuration && b.Kind == KindDuration:
		return Duration(a.durVal - b.durVal), nil
	default:
		return Value{}, mismatch("-", a, b)
	}
}

// Mul implements '*': Number*Number, and Duration*Number (floor-scaled).
func Mul(a, b Value) (Value, error) {
	switch {
	case a.Kind == KindNumber && b.Kind == KindNumber:
		r, err := a.numVal.Mul(b.numVal)
		if err != nil {
			return Value{}, ferrors.New(ferrors.NumberConversionError, "%s", err)
		}
		return Number(r), nil
	case a.Kind == KindDuration && b.Kind == KindNumber:
		return Duration(floorScale(a.durVal, b.numVal)), nil
	case a.Kind == KindNumber && b.Kind == KindDuration:
		return Duration(floorScale(b.durVal, a.numVal)), nil
	default:
		return Value{}, mismatch("*", a, b)
	}
}

// Div implements '/': Number/Number (fails on zero rhs), and
// Duration/Number (floor-scaled, fails on zero rhs).
func Div(a, b Value) (Value, error) {
	switch {
	case a.Kind == KindNumber && b.Kind == KindNumber:
		if b.numVal.Sign() == 0 {
			return Value{}, ferrors.New(ferrors.DivideByZero, "division by zero")
		}
		r, err := a.numVal.Div(b.numVal)
		if err != nil {
			return Value{}, ferrors.New(ferrors.NumberConversionError, "%s", err)
		}
		return Number(r), nil
	case a.Kind == KindDuration && b.Kind == KindNumber:
		if b.numVal.Sign() == 0 {
			return Value{}, ferrors.New(ferrors.DivideByZero, "division by zero")
		}
		inv, err := rational.FromInt(1).Div(b.numVal)
		if err != nil {
			return Value{}, ferrors.New(ferrors.NumberConversionError, "%s", err)
		}
		return Duration(floorScale(a.durVal, inv)), nil
	default:
		return Value{}, mismatch("/", a, b)
	}
}

// Mod implements '%': Number%Number only.
func Mod(a, b Value) (Value, error) {
	if a.Kind == KindNumber && b.Kind == KindNumber {
		if b.numVal.Sign() == 0 {
			return Value{}, ferrors.New(ferrors.DivideByZero, "modulo by zero")
		}
		r, err := a.numVal.Mod(b.numVal)
		if err != nil {
			return Value{}, ferrors.New(ferrors.NumberConversionError, "%s", err)
		}
		return Number(r), nil
	}
	return Value{}, mismatch("%", a, b)
}

// Pow implements '^': Number^Number, integer exponents only.
func Pow(a, b Value) (Value, error) {
	if a.Kind != KindNumber || b.Kind != KindNumber {
		return Value{}, mismatch("^", a, b)
	}
	if !b.numVal.IsInt() {
		return Value{}, ferrors.New(ferrors.PowNotRational, "exponent %s is not an integer", Display(b))
	}
	r, err := a.numVal.Pow(b.numVal.Num)
	if err != nil {
		return Value{}, ferrors.New(ferrors.NumberConversionError, "%s", err)
	}
	return Number(r), nil
}

// Factorial implements postfix '!': non-negative integers only, computed
// exactly via repeated multiplication.
func Factorial(a Value) (Value, error) {
	if a.Kind != KindNumber {
		return Value{}, ferrors.New(ferrors.OperatorMismatch, "! requires a Number, got %s", a.Kind)
	}
	if !a.numVal.IsInt() {
		return Value{}, ferrors.New(ferrors.FactorialNotInteger, "factorial requires an integer")
	}
	if a.numVal.Sign() < 0 {
		return Value{}, ferrors.New(ferrors.FactorialNotNegative, "factorial requires a non-negative value")
	}
	r, err := rational.Factorial(a.numVal)
	if err != nil {
		return Value{}, ferrors.New(ferrors.NumberConversionError, "%s", err)
	}
	return Number(r), nil
}

// Compare implements the FilterExpression-only comparison semantics:
// Number×Number and String×String only.
func Compare(a, b Value) (int, error) {
	switch {
	case a.Kind == KindNumber && b.Kind == KindNumber:
		cmp, err := a.numVal.Compare(b.numVal)
		if err != nil {
			return 0, ferrors.New(ferrors.NumberConversionError, "%s", err)
		}
		return cmp, nil
	case a.Kind == KindString && b.Kind == KindString:
		return stringsCompare(a.strVal, b.strVal), nil
	default:
		return 0, mismatch("compare", a, b)
	}
}

func mismatch(op string, a, b Value) error {
	return ferrors.New(ferrors.OperatorMismatch, "operator %q not defined for %s and %s", op, a.Kind, b.Kind)
}

func shiftDateTime(ms uint64, delta int64) (Value, error) {
	shifted := int64(ms) + delta
	if shifted < 0 {
		return Value{}, ferrors.New(ferrors.NumberConversionError, "DateTime result %d is negative", shifted)
	}
	return DateTime(uint64(shifted)), nil
}

func floorScale(ms int64, factor rational.Rational) int64 {
	scaled := float64(ms) * factor.Float64()
	return int64(floorFloat(scaled))
}

func floorFloat(f float64) float64 {
	i := int64(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return float64(i)
}

func stringsCompare(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// ParseFilterLiteral implements the "literal parsed as integer if
// possible, else string" rule.
func ParseFilterLiteral(text string) Value {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Int(n)
	}
	return String(text)
}

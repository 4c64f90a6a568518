package value

import (
	"testing"

	"formulang/internal/rational"
)

func num(n int64) Value { return Number(rational.FromInt(n)) }

func TestAddNumberNumber(t *testing.T) {
	got, err := Add(num(2), num(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmp, err := got.AsNumber().Compare(rational.FromInt(5))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp != 0 {
		t.Errorf("2+3 = %s, want 5", Display(got))
	}
}

func TestAddStringConcat(t *testing.T) {
	got, err := Add(String("a"), String("b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AsString() != "ab" {
		t.Errorf(`"a"+"b" = %q, want "ab"`, got.AsString())
	}
}

func TestAddStringNumberCrossConcat(t *testing.T) {
	got, err := Add(String("total: "), num(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AsString() != "total: 5" {
		t.Errorf("got %q", got.AsString())
	}
}

func TestAddDateTimeDuration(t *testing.T) {
	got, err := Add(DateTime(1000), Duration(500))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != KindDateTime || got.AsDateTime() != 1500 {
		t.Errorf("got %#v, want DateTime(1500)", got)
	}
}

func TestSubDateTimeDurationNotReversed(t *testing.T) {
	if _, err := Sub(Duration(500), DateTime(1000)); err == nil {
		t.Error("Duration - DateTime should be an operator mismatch")
	}
}

func TestDivByZero(t *testing.T) {
	if _, err := Div(num(1), num(0)); err == nil {
		t.Error("expected divide-by-zero error")
	}
}

func TestPowNonIntegerExponent(t *testing.T) {
	half := Number(rational.Rational{Num: 1, Denom: 2})
	if _, err := Pow(num(2), half); err == nil {
		t.Error("expected PowNotRational error for non-integer exponent")
	}
}

func TestFactorialRequiresNonNegativeInteger(t *testing.T) {
	if _, err := Factorial(num(-1)); err == nil {
		t.Error("expected error for factorial of negative number")
	}
	half := Number(rational.Rational{Num: 1, Denom: 2})
	if _, err := Factorial(half); err == nil {
		t.Error("expected error for factorial of non-integer")
	}
}

func TestCompareNumbers(t *testing.T) {
	cmp, err := Compare(num(1), num(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp >= 0 {
		t.Errorf("Compare(1,2) = %d, want < 0", cmp)
	}
}

func TestCompareMixedKindsMismatch(t *testing.T) {
	if _, err := Compare(num(1), String("1")); err == nil {
		t.Error("expected operator mismatch comparing Number to String")
	}
}

func TestDisplayArray(t *testing.T) {
	arr := Array([]Value{num(1), num(2), num(3)})
	if got := Display(arr); got != "[1, 2, 3]" {
		t.Errorf("got %q", got)
	}
}

func TestDisplayNullIsEmpty(t *testing.T) {
	if got := Display(Null()); got != "" {
		t.Errorf("Display(Null()) = %q, want empty string", got)
	}
}

func TestObjectFieldLookup(t *testing.T) {
	obj := NewObject().Set("status", num(2)).Build()
	v, ok := obj.Field("status")
	if !ok {
		t.Fatal("expected field 'status' to be present")
	}
	cmp, err := v.AsNumber().Compare(rational.FromInt(2))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp != 0 {
		t.Errorf("got %s", Display(v))
	}
	if _, ok := obj.Field("missing"); ok {
		t.Error("expected 'missing' field to be absent")
	}
}

func TestParseFilterLiteral(t *testing.T) {
	if got := ParseFilterLiteral("2"); got.Kind != KindNumber {
		t.Errorf("ParseFilterLiteral(\"2\") kind = %s, want Number", got.Kind)
	}
	if got := ParseFilterLiteral("CHILD"); got.Kind != KindString || got.AsString() != "CHILD" {
		t.Errorf("ParseFilterLiteral(\"CHILD\") = %#v, want String(CHILD)", got)
	}
}

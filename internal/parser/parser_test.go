package parser

import (
	"testing"

	"formulang/internal/lexer"
)

func parseString(input string) (*FormulaBody, error) {
	tokens, err := lexer.NewScanner(input).ScanTokens()
	if err != nil {
		return nil, err
	}
	return New(tokens, input).Parse()
}

func TestParsePrecedence(t *testing.T) {
	body, err := parseString("1 + 2 * 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin, ok := body.Statements[0].(*BinaryExpr)
	if !ok {
		t.Fatalf("top-level node is %T, want *BinaryExpr", body.Statements[0])
	}
	if bin.Operator != "+" {
		t.Fatalf("top operator = %q, want +", bin.Operator)
	}
	rhs, ok := bin.Right.(*BinaryExpr)
	if !ok || rhs.Operator != "*" {
		t.Errorf("right side should be the '*' subexpression, got %#v", bin.Right)
	}
}

func TestParsePowerRightAssociative(t *testing.T) {
	body, err := parseString("2 ^ 3 ^ 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	top, ok := body.Statements[0].(*BinaryExpr)
	if !ok || top.Operator != "^" {
		t.Fatalf("top-level node is %#v, want '^' BinaryExpr", body.Statements[0])
	}
	if _, ok := top.Right.(*BinaryExpr); !ok {
		t.Error("2^3^2 should parse as 2^(3^2): right side must itself be a '^' node")
	}
	if _, ok := top.Left.(*NumberLiteral); !ok {
		t.Error("2^3^2 left side should be the literal 2")
	}
}

func TestParsePrefixNegation(t *testing.T) {
	body, err := parseString("-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, ok := body.Statements[0].(*UnaryExpr)
	if !ok || u.Postfix || u.Operator != "-" {
		t.Fatalf("got %#v, want prefix '-'", body.Statements[0])
	}
}

func TestParsePostfixFactorial(t *testing.T) {
	body, err := parseString("5!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, ok := body.Statements[0].(*UnaryExpr)
	if !ok || !u.Postfix || u.Operator != "!" {
		t.Fatalf("got %#v, want postfix '!'", body.Statements[0])
	}
}

func TestParsePropertyAccessChain(t *testing.T) {
	body, err := parseString("a.b.c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outer, ok := body.Statements[0].(*PropertyAccessExpression)
	if !ok || outer.Property != "c" {
		t.Fatalf("outer node = %#v, want PropertyAccess(.c)", body.Statements[0])
	}
	inner, ok := outer.Object.(*PropertyAccessExpression)
	if !ok || inner.Property != "b" {
		t.Fatalf("inner node = %#v, want PropertyAccess(.b)", outer.Object)
	}
	if _, ok := inner.Object.(*Identifier); !ok {
		t.Errorf("root of a.b.c should be Identifier, got %#v", inner.Object)
	}
}

func TestParseCallWithFilterClause(t *testing.T) {
	body, err := parseString("SUM(subtask.estimatePoint; status == 2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call, ok := body.Statements[0].(*CallExpression)
	if !ok {
		t.Fatalf("got %T, want *CallExpression", body.Statements[0])
	}
	if len(call.Args) != 2 {
		t.Fatalf("got %d args, want 2", len(call.Args))
	}
	if call.Args[0].Kind != ArgOrdinary {
		t.Errorf("arg 0 kind = %v, want ArgOrdinary", call.Args[0].Kind)
	}
	if call.Args[1].Kind != ArgFilter {
		t.Errorf("arg 1 kind = %v, want ArgFilter", call.Args[1].Kind)
	}
}

func TestParseBareComparisonParses(t *testing.T) {
	// Parsing itself never rejects a bare comparison; the compiler does
	// (open-question resolution).
	body, err := parseString("status == 2")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if _, ok := body.Statements[0].(*BinaryExpr); !ok {
		t.Errorf("got %T, want *BinaryExpr", body.Statements[0])
	}
}

func TestParseUnexpectedTokenError(t *testing.T) {
	if _, err := parseString("1 +"); err == nil {
		t.Error("expected parse error for incomplete expression")
	}
}

func TestParseMismatchedParen(t *testing.T) {
	if _, err := parseString("(1 + 2"); err == nil {
		t.Error("expected parse error for unclosed paren")
	}
}

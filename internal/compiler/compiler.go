// Package compiler lowers the formula AST to a flat bytecode.Chunk
// using a visitor-per-node-type shape.
package compiler

import (
	"formulang/internal/bytecode"
	"formulang/internal/ferrors"
	"formulang/internal/parser"
	"formulang/internal/rational"
)

var comparisonOps = map[string]bytecode.FilterOp{
	"==": bytecode.FilterEq,
	"=":  bytecode.FilterEq,
	"!=": bytecode.FilterNotEq,
	"<>": bytecode.FilterNotEq,
	"<":  bytecode.FilterLT,
	"<=": bytecode.FilterLE,
	">":  bytecode.FilterGT,
	">=": bytecode.FilterGE,
}

// Compile lowers a parsed formula body to bytecode. Only the first
// statement's value is meaningful; later statements are
// parsed but not compiled.
func Compile(body *parser.FormulaBody) (*bytecode.Chunk, error) {
	if len(body.Statements) == 0 {
		return nil, ferrors.New(ferrors.ParseError, "empty formula")
	}
	chunk := bytecode.NewChunk()
	if err := compileExpr(chunk, body.Statements[0]); err != nil {
		return nil, err
	}
	return chunk, nil
}

func compileExpr(c *bytecode.Chunk, expr parser.Expr) error {
	switch e := expr.(type) {
	case *parser.NumberLiteral:
		return compileNumberLiteral(c, e)
	case *parser.StringLiteral:
		idx := c.AddStringConstant(e.Value)
		c.WriteOp(bytecode.OpPushString)
		c.WriteUint16(idx)
		return nil
	case *parser.Identifier:
		idx := c.AddStringConstant(e.Name)
		c.WriteOp(bytecode.OpLoadIdentifier)
		c.WriteUint16(idx)
		return nil
	case *parser.UnaryExpr:
		return compileUnary(c, e)
	case *parser.BinaryExpr:
		return compileBinary(c, e)
	case *parser.PropertyAccessExpression:
		return compilePropertyAccess(c, e)
	case *parser.CallExpression:
		return compileCall(c, e)
	default:
		return ferrors.New(ferrors.ParseError, "unsupported expression node %T", expr)
	}
}

func compileNumberLiteral(c *bytecode.Chunk, lit *parser.NumberLiteral) error {
	r, err := rational.FromDecimalString(lit.Text)
	if err != nil {
		return ferrors.New(ferrors.NumberConversionError, "%s", err)
	}
	idx := c.AddNumberConstant(r)
	c.WriteOp(bytecode.OpPushNumber)
	c.WriteUint16(idx)
	return nil
}

func compileUnary(c *bytecode.Chunk, u *parser.UnaryExpr) error {
	switch {
	case u.Postfix && u.Operator == "!":
		if err := compileExpr(c, u.Operand); err != nil {
			return err
		}
		c.WriteOp(bytecode.OpFactorial)
		return nil
	case !u.Postfix && u.Operator == "-":
		// Desugar -x to Binary(0, "-", x).
		zero := rational.FromInt(0)
		idx := c.AddNumberConstant(zero)
		c.WriteOp(bytecode.OpPushNumber)
		c.WriteUint16(idx)
		if err := compileExpr(c, u.Operand); err != nil {
			return err
		}
		c.WriteOp(bytecode.OpSub)
		return nil
	default:
		return ferrors.New(ferrors.ParseError, "unsupported unary operator %q", u.Operator)
	}
}

func compileBinary(c *bytecode.Chunk, b *parser.BinaryExpr) error {
	if _, isComparison := comparisonOps[b.Operator]; isComparison {
		return ferrors.New(ferrors.BareComparison,
			"comparison %q is only valid inside a call's filter clause (';')", b.Operator)
	}
	if err := compileExpr(c, b.Left); err != nil {
		return err
	}
	if err := compileExpr(c, b.Right); err != nil {
		return err
	}
	switch b.Operator {
	case "+":
		c.WriteOp(bytecode.OpAdd)
	case "-":
		c.WriteOp(bytecode.OpSub)
	case "*":
		c.WriteOp(bytecode.OpMul)
	case "/":
		c.WriteOp(bytecode.OpDiv)
	case "%":
		c.WriteOp(bytecode.OpMod)
	case "^":
		c.WriteOp(bytecode.OpPow)
	default:
		return ferrors.New(ferrors.ParseError, "unsupported binary operator %q", b.Operator)
	}
	return nil
}

func compilePropertyAccess(c *bytecode.Chunk, p *parser.PropertyAccessExpression) error {
	if err := compileExpr(c, p.Object); err != nil {
		return err
	}
	idx := c.AddStringConstant(p.Property)
	c.WriteOp(bytecode.OpLoadPropertyAccess)
	c.WriteUint16(idx)
	return nil
}

// compileCall implements the call-argument reorder: when
// the argument list carries a filter clause (';'), the leading
// identifier-or-property-access argument is compiled as the bare array
// source, the filter(s) apply to it in place, and any property-access
// field projection is applied only after filtering — the VM never sees
// the unfiltered projected array.
func compileCall(c *bytecode.Chunk, call *parser.CallExpression) error {
	callee, ok := call.Callee.(*parser.Identifier)
	if !ok {
		return ferrors.New(ferrors.NotAFunction, "call target must be a function name")
	}
	calleeIdx := c.AddStringConstant(callee.Name)
	c.WriteOp(bytecode.OpLoadIdentifier)
	c.WriteUint16(calleeIdx)

	var ordinary []parser.Expr
	var filters []*parser.BinaryExpr
	for _, a := range call.Args {
		switch a.Kind {
		case parser.ArgFilter:
			be, ok := a.Expr.(*parser.BinaryExpr)
			if !ok {
				return ferrors.New(ferrors.InvalidFilterClause, "filter clause must be a comparison")
			}
			filters = append(filters, be)
		default:
			ordinary = append(ordinary, a.Expr)
		}
	}

	argc := 0
	if len(filters) == 0 {
		for _, a := range ordinary {
			if err := compileExpr(c, a); err != nil {
				return err
			}
			argc++
		}
	} else {
		if len(ordinary) == 0 {
			return ferrors.New(ferrors.InvalidFilterClause, "filter clause has no preceding array argument")
		}
		root, fields, err := resolveFilterSource(ordinary[0])
		if err != nil {
			return err
		}
		rootIdx := c.AddStringConstant(root.Name)
		c.WriteOp(bytecode.OpLoadIdentifier)
		c.WriteUint16(rootIdx)

		for _, f := range filters {
			if err := compileFilterExpression(c, f); err != nil {
				return err
			}
		}
		for _, field := range fields {
			idx := c.AddStringConstant(field)
			c.WriteOp(bytecode.OpLoadPropertyAccess)
			c.WriteUint16(idx)
		}
		argc++

		for _, a := range ordinary[1:] {
			if err := compileExpr(c, a); err != nil {
				return err
			}
			argc++
		}
	}

	c.WriteOp(bytecode.OpCall)
	c.WriteByte(byte(argc))
	return nil
}

// resolveFilterSource walks a call's leading argument — either a bare
// identifier or a (possibly chained) property access — down to its root
// identifier and the ordered field chain to project after filtering.
func resolveFilterSource(expr parser.Expr) (*parser.Identifier, []string, error) {
	switch e := expr.(type) {
	case *parser.Identifier:
		return e, nil, nil
	case *parser.PropertyAccessExpression:
		var fields []string
		var cur parser.Expr = e
		for {
			pa, ok := cur.(*parser.PropertyAccessExpression)
			if !ok {
				break
			}
			fields = append([]string{pa.Property}, fields...)
			cur = pa.Object
		}
		root, ok := cur.(*parser.Identifier)
		if !ok {
			return nil, nil, ferrors.New(ferrors.InvalidFilterClause, "property access root must be an identifier")
		}
		return root, fields, nil
	default:
		return nil, nil, ferrors.New(ferrors.InvalidFilterClause, "filter clause requires an identifier or property-access source argument")
	}
}

func compileFilterExpression(c *bytecode.Chunk, be *parser.BinaryExpr) error {
	fieldIdent, ok := be.Left.(*parser.Identifier)
	if !ok {
		return ferrors.New(ferrors.InvalidFilterClause, "filter clause field must be a bare identifier")
	}
	op, ok := comparisonOps[be.Operator]
	if !ok {
		return ferrors.New(ferrors.InvalidFilterClause, "unsupported filter operator %q", be.Operator)
	}
	literal, err := filterLiteralText(be.Right)
	if err != nil {
		return err
	}

	fieldIdx := c.AddStringConstant(fieldIdent.Name)
	literalIdx := c.AddStringConstant(literal)
	c.WriteOp(bytecode.OpFilterExpression)
	c.WriteUint16(fieldIdx)
	c.WriteByte(byte(op))
	c.WriteUint16(literalIdx)
	return nil
}

// filterLiteralText extracts the raw textual literal a filter compares
// against. A bare identifier on the right-hand side is a symbolic
// literal (e.g. "relationship = CHILD"), not a variable reference.
func filterLiteralText(expr parser.Expr) (string, error) {
	switch e := expr.(type) {
	case *parser.NumberLiteral:
		return e.Text, nil
	case *parser.StringLiteral:
		return e.Value, nil
	case *parser.Identifier:
		return e.Name, nil
	case *parser.UnaryExpr:
		if !e.Postfix && e.Operator == "-" {
			if num, ok := e.Operand.(*parser.NumberLiteral); ok {
				return "-" + num.Text, nil
			}
		}
	}
	return "", ferrors.New(ferrors.InvalidFilterClause, "filter clause literal must be a number, string, or bare name")
}

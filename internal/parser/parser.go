package parser

import (
	"formulang/internal/ferrors"
	"formulang/internal/lexer"
)

// precedence maps each comparison/arithmetic operator token to its
// binding power (low to high): comparison < additive <
// multiplicative < modulo < power. All levels are left-associative
// except power, handled separately as right-associative.
var precedence = map[lexer.TokenType]int{
	lexer.TokenEq:       1,
	lexer.TokenEqSingle: 1,
	lexer.TokenNotEq:    1,
	lexer.TokenDiamond:  1,
	lexer.TokenGE:       1,
	lexer.TokenLE:       1,
	lexer.TokenGT:       1,
	lexer.TokenLT:       1,
	lexer.TokenPlus:     2,
	lexer.TokenMinus:    2,
	lexer.TokenStar:     3,
	lexer.TokenSlash:    3,
	lexer.TokenPercent:  4,
}

// Parser is a precedence-climbing expression parser over a flat token
// slice, with tokens+current index and match/check/consume/advance
// helpers.
type Parser struct {
	tokens []lexer.Token
	current int
	source  string
}

func New(tokens []lexer.Token, source string) *Parser {
	return &Parser{tokens: tokens, source: source}
}

// Parse parses a full formula: semicolon-separated top-level statements.
// Only the first statement's value is meaningful at evaluation time (the
// compiler lowers only that one); the rest are still parsed, so that
// malformed trailing statements are still rejected.
func (p *Parser) Parse() (*FormulaBody, error) {
	var stmts []Expr
	for !p.isAtEnd() {
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, expr)
		if p.match(lexer.TokenSemi) {
			continue
		}
		break
	}
	if !p.isAtEnd() {
		tok := p.peek()
		return nil, p.errorAt(tok, "unexpected token %q", tok.Lexeme)
	}
	return &FormulaBody{Statements: stmts}, nil
}

func (p *Parser) expression() (Expr, error) {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		prec, ok := precedence[tok.Type]
		if !ok || prec < minPrec {
			break
		}
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{
			Left:     left,
			Operator: string(tok.Type),
			Right:    right,
			Range:    Range{Start: left.Span().Start, End: right.Span().End},
		}
	}
	return left, nil
}

// parsePower handles '^', right-associative and binding tighter than
// every comparison/arithmetic level, but looser than postfix unary.
func (p *Parser) parsePower() (Expr, error) {
	left, err := p.parsePrefixUnary()
	if err != nil {
		return nil, err
	}
	if p.check(lexer.TokenCaret) {
		p.advance()
		right, err := p.parsePower() // right-associative: recurse at same level
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Left: left, Operator: "^", Right: right, Range: Range{Start: left.Span().Start, End: right.Span().End}}, nil
	}
	return left, nil
}

// parsePrefixUnary handles prefix '-' (negation); the compiler desugars
// it to Binary(0, "-", x).
func (p *Parser) parsePrefixUnary() (Expr, error) {
	if p.check(lexer.TokenMinus) {
		tok := p.advance()
		operand, err := p.parsePrefixUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Operator: "-", Postfix: false, Operand: operand, Range: Range{Start: tok.Offset, End: operand.Span().End}}, nil
	}
	return p.parsePostfixUnary()
}

// parsePostfixUnary applies '!' (factorial) and '.field' (property
// access) left-to-right after a primary; '.' builds left-recursively so
// "a.b.c" becomes PropertyAccess(PropertyAccess(a,b),c).
func (p *Parser) parsePostfixUnary() (Expr, error) {
	expr, err := p.parseCallOrPrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.check(lexer.TokenBang):
			tok := p.advance()
			expr = &UnaryExpr{Operator: "!", Postfix: true, Operand: expr, Range: Range{Start: expr.Span().Start, End: tok.Offset + 1}}
		case p.check(lexer.TokenDot):
			p.advance()
			nameTok, err := p.consume(lexer.TokenIdent, "expected field name after '.'")
			if err != nil {
				return nil, err
			}
			expr = &PropertyAccessExpression{Object: expr, Property: nameTok.Lexeme, Range: Range{Start: expr.Span().Start, End: nameTok.Offset + len(nameTok.Lexeme)}}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseCallOrPrimary() (Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	if _, ok := expr.(*Identifier); ok && p.check(lexer.TokenLParen) {
		return p.finishCall(expr)
	}
	return expr, nil
}

// finishCall parses a call's comma/semicolon-separated argument list.
// A ',' always introduces an ordinary argument; a ';' introduces a
// filter-clause argument, preserved as a tagged BinaryExpr rather than
// an ordinary expression.
func (p *Parser) finishCall(callee Expr) (Expr, error) {
	lparen := p.advance() // consume '('
	var args []CallArg
	nextKind := ArgOrdinary
	if !p.check(lexer.TokenRParen) {
		for {
			e, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, CallArg{Kind: nextKind, Expr: e})
			switch {
			case p.match(lexer.TokenComma):
				nextKind = ArgOrdinary
				continue
			case p.match(lexer.TokenSemi):
				nextKind = ArgFilter
				continue
			}
			break
		}
	}
	rparen, err := p.consume(lexer.TokenRParen, "expected ')' after arguments")
	if err != nil {
		return nil, err
	}
	return &CallExpression{Callee: callee, Args: args, Range: Range{Start: lparen.Offset, End: rparen.Offset + 1}}, nil
}

func (p *Parser) primary() (Expr, error) {
	tok := p.advance()
	switch tok.Type {
	case lexer.TokenNumber:
		return &NumberLiteral{Text: tok.Lexeme, Range: tokRange(tok)}, nil
	case lexer.TokenString:
		return &StringLiteral{Value: tok.Lexeme, Range: tokRange(tok)}, nil
	case lexer.TokenIdent:
		return &Identifier{Name: tok.Lexeme, Range: tokRange(tok)}, nil
	case lexer.TokenLParen:
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		rparen, err := p.consume(lexer.TokenRParen, "expected ')' after expression")
		if err != nil {
			return nil, err
		}
		if be, ok := expr.(*BinaryExpr); ok {
			be.Range = Range{Start: tok.Offset, End: rparen.Offset + 1}
		}
		return expr, nil
	default:
		return nil, p.errorAt(tok, "unexpected token in expression: %q", tok.Lexeme)
	}
}

func tokRange(tok lexer.Token) Range {
	return Range{Start: tok.Offset, End: tok.Offset + len(tok.Lexeme)}
}

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) check(t lexer.TokenType) bool {
	return !p.isAtEnd() && p.peek().Type == t
}

func (p *Parser) consume(t lexer.TokenType, msg string) (lexer.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	tok := p.peek()
	return lexer.Token{}, p.errorAt(tok, "%s (got %q)", msg, tok.Lexeme)
}

func (p *Parser) advance() lexer.Token {
	tok := p.tokens[p.current]
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TokenEOF
}

func (p *Parser) errorAt(tok lexer.Token, format string, args ...interface{}) error {
	err := ferrors.NewParseError(sprintf(format, args...), tok.Offset, tok.Line, tok.Column)
	if p.source != "" {
		if line := sourceLine(p.source, tok.Line); line != "" {
			err = err.WithSource(line)
		}
	}
	return err
}

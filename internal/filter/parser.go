package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse turns a predicate string into an expression tree. Grammar, loosest
// binding first:
//
//	expr := or
//	or   := and ( "or" and )*
//	and  := not ( "and" not )*
//	not  := "not" not | cmp
//	cmp  := "(" expr ")"
//	     | operand ( cmpOp operand | "contains" operand | "is" ["not"] "null" )?
//
// Operands are column references (bare or backtick-quoted identifiers) and
// literals (quoted strings, integers, decimals, true/false/null). Keywords
// are case-insensitive. The pandas-style spelling col.contains('x') is
// accepted as an alias for col contains 'x'.
func Parse(predicate string) (Expr, error) {
	p := &parser{predicate: predicate, lex: newLexer(predicate)}
	p.advance()
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.typ != tokEOF {
		return nil, p.errorf("unexpected %q", p.cur.lit)
	}
	return expr, nil
}

type parser struct {
	predicate string
	lex       *lexer
	cur       token
}

func (p *parser) advance() {
	p.cur = p.lex.next()
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Predicate: p.predicate, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: tokOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: tokAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.cur.typ == tokNot {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	if p.cur.typ == tokLParen {
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokRParen {
			return nil, p.errorf("missing closing parenthesis")
		}
		p.advance()
		return inner, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	// col.contains('x') method-call spelling.
	if ref, ok := left.(*ColumnRef); ok && p.cur.typ == tokLParen && strings.HasSuffix(ref.Name, ".contains") {
		p.advance()
		needle, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokRParen {
			return nil, p.errorf("missing closing parenthesis after contains argument")
		}
		p.advance()
		col := strings.TrimSuffix(ref.Name, ".contains")
		return &Contains{Haystack: &ColumnRef{Name: col}, Needle: needle}, nil
	}

	switch p.cur.typ {
	case tokEq, tokNeq, tokGt, tokGte, tokLt, tokLte:
		op := p.cur.typ
		p.advance()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &Compare{Op: op, Left: left, Right: right}, nil
	case tokContains:
		p.advance()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return &Contains{Haystack: left, Needle: right}, nil
	case tokIs:
		p.advance()
		negate := false
		if p.cur.typ == tokNot {
			negate = true
			p.advance()
		}
		if p.cur.typ != tokNull {
			return nil, p.errorf("expected null after is")
		}
		p.advance()
		return &NullCheck{Operand: left, Negate: negate}, nil
	}

	// Bare operand: a boolean column (or literal) used directly, as in
	// "active and age >= 30".
	return left, nil
}

func (p *parser) parseOperand() (Expr, error) {
	switch p.cur.typ {
	case tokIdent:
		ref := &ColumnRef{Name: p.cur.lit}
		p.advance()
		return ref, nil
	case tokString:
		lit := &Literal{Val: p.cur.lit}
		p.advance()
		return lit, nil
	case tokNumber:
		lit, err := p.numberLiteral(p.cur.lit, false)
		if err != nil {
			return nil, err
		}
		p.advance()
		return lit, nil
	case tokMinus:
		p.advance()
		if p.cur.typ != tokNumber {
			return nil, p.errorf("expected a number after -")
		}
		lit, err := p.numberLiteral(p.cur.lit, true)
		if err != nil {
			return nil, err
		}
		p.advance()
		return lit, nil
	case tokTrue:
		p.advance()
		return &Literal{Val: true}, nil
	case tokFalse:
		p.advance()
		return &Literal{Val: false}, nil
	case tokNull:
		p.advance()
		return &Literal{Val: nil}, nil
	case tokEOF:
		return nil, p.errorf("unexpected end of predicate")
	case tokIllegal:
		return nil, p.errorf("unexpected character %q", p.cur.lit)
	default:
		return nil, p.errorf("unexpected %q", p.cur.lit)
	}
}

func (p *parser) numberLiteral(lit string, negate bool) (*Literal, error) {
	if !strings.Contains(lit, ".") {
		i, err := strconv.ParseInt(lit, 10, 64)
		if err == nil {
			if negate {
				i = -i
			}
			return &Literal{Val: i}, nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, p.errorf("bad number literal %q", lit)
	}
	if negate {
		f = -f
	}
	return &Literal{Val: f}, nil
}

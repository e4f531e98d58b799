package filter

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenType int

const (
	tokIllegal tokenType = iota
	tokEOF

	tokIdent  // age, department.name
	tokString // 'Sales', "渋谷"
	tokNumber // 30, 1.5

	// Keywords
	tokAnd
	tokOr
	tokNot
	tokTrue
	tokFalse
	tokNull
	tokContains
	tokIs

	// Operators & punctuation
	tokEq  // ==
	tokNeq // !=
	tokGt  // >
	tokGte // >=
	tokLt  // <
	tokLte // <=
	tokLParen
	tokRParen
	tokMinus
)

var keywords = map[string]tokenType{
	"and":      tokAnd,
	"or":       tokOr,
	"not":      tokNot,
	"true":     tokTrue,
	"false":    tokFalse,
	"null":     tokNull,
	"contains": tokContains,
	"is":       tokIs,
}

type token struct {
	typ tokenType
	lit string
	pos int
}

func (t token) String() string {
	return fmt.Sprintf("token(%d, %q)", t.typ, t.lit)
}

// lexer scans a predicate string into tokens. It works on runes so that
// non-ASCII column names and string values (Japanese field labels) lex as
// identifiers and literals.
type lexer struct {
	input []rune
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: []rune(input)}
}

func (l *lexer) ch() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *lexer) peek() rune {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *lexer) next() token {
	for unicode.IsSpace(l.ch()) {
		l.pos++
	}
	start := l.pos

	switch c := l.ch(); c {
	case 0:
		return token{typ: tokEOF, pos: start}
	case '(':
		l.pos++
		return token{typ: tokLParen, lit: "(", pos: start}
	case ')':
		l.pos++
		return token{typ: tokRParen, lit: ")", pos: start}
	case '-':
		l.pos++
		return token{typ: tokMinus, lit: "-", pos: start}
	case '=':
		if l.peek() == '=' {
			l.pos += 2
			return token{typ: tokEq, lit: "==", pos: start}
		}
		l.pos++
		return token{typ: tokIllegal, lit: "=", pos: start}
	case '!':
		if l.peek() == '=' {
			l.pos += 2
			return token{typ: tokNeq, lit: "!=", pos: start}
		}
		l.pos++
		return token{typ: tokIllegal, lit: "!", pos: start}
	case '>':
		if l.peek() == '=' {
			l.pos += 2
			return token{typ: tokGte, lit: ">=", pos: start}
		}
		l.pos++
		return token{typ: tokGt, lit: ">", pos: start}
	case '<':
		if l.peek() == '=' {
			l.pos += 2
			return token{typ: tokLte, lit: "<=", pos: start}
		}
		l.pos++
		return token{typ: tokLt, lit: "<", pos: start}
	case '\'', '"':
		return l.readString(c)
	case '`':
		return l.readQuotedIdent()
	}

	if isDigit(l.ch()) {
		return l.readNumber()
	}
	if isIdentStart(l.ch()) {
		return l.readIdent()
	}

	lit := string(l.ch())
	l.pos++
	return token{typ: tokIllegal, lit: lit, pos: start}
}

func (l *lexer) readString(quote rune) token {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for {
		c := l.ch()
		if c == 0 {
			return token{typ: tokIllegal, lit: "unterminated string", pos: start}
		}
		if c == quote {
			l.pos++
			return token{typ: tokString, lit: sb.String(), pos: start}
		}
		sb.WriteRune(c)
		l.pos++
	}
}

// readQuotedIdent reads a backtick-quoted column name, used for names
// containing spaces or symbols.
func (l *lexer) readQuotedIdent() token {
	start := l.pos
	l.pos++ // opening backtick
	var sb strings.Builder
	for {
		c := l.ch()
		if c == 0 {
			return token{typ: tokIllegal, lit: "unterminated quoted identifier", pos: start}
		}
		if c == '`' {
			l.pos++
			return token{typ: tokIdent, lit: sb.String(), pos: start}
		}
		sb.WriteRune(c)
		l.pos++
	}
}

func (l *lexer) readNumber() token {
	start := l.pos
	for isDigit(l.ch()) {
		l.pos++
	}
	if l.ch() == '.' && isDigit(l.peek()) {
		l.pos++
		for isDigit(l.ch()) {
			l.pos++
		}
	}
	return token{typ: tokNumber, lit: string(l.input[start:l.pos]), pos: start}
}

func (l *lexer) readIdent() token {
	start := l.pos
	for isIdentPart(l.ch()) {
		l.pos++
	}
	lit := string(l.input[start:l.pos])
	if typ, ok := keywords[strings.ToLower(lit)]; ok {
		return token{typ: typ, lit: lit, pos: start}
	}
	return token{typ: tokIdent, lit: lit, pos: start}
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isIdentStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}

// isIdentPart admits dots so flattened column names (department.name)
// reference as bare identifiers.
func isIdentPart(c rune) bool {
	return c == '_' || c == '.' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

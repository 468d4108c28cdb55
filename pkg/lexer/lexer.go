// Package lexer implements the scanner (lexical analyzer) for crux.
//
// The scanner converts source characters into a lazy stream of tokens. It
// never allocates for the common case: a Token's lexeme is a slice of the
// original source string, not a copy. Callers pull tokens one at a time
// with Next; there is no Tokenize-everything-up-front API because the
// compiler consumes the stream incrementally while it emits bytecode.
package lexer

import (
	"github.com/kristofer/crux/pkg/token"
)

// Lexer holds scanning position over a single source string.
type Lexer struct {
	source  string
	start   int // start of the lexeme currently being scanned
	current int // next character to be read
	line    int
}

// New creates a scanner positioned at the start of source.
func New(source string) *Lexer {
	return &Lexer{source: source, line: 1}
}

// Next scans and returns the next token from the source.
func (l *Lexer) Next() token.Token {
	l.skipWhitespace()
	l.start = l.current

	if l.atEnd() {
		return l.make(token.EOF)
	}

	c := l.advance()
	if isAlpha(c) {
		return l.identifier()
	}
	if isDigit(c) {
		return l.number()
	}

	switch c {
	case '(':
		return l.make(token.LeftParen)
	case ')':
		return l.make(token.RightParen)
	case '{':
		return l.make(token.LeftBrace)
	case '}':
		return l.make(token.RightBrace)
	case ';':
		return l.make(token.Semicolon)
	case ',':
		return l.make(token.Comma)
	case '.':
		return l.make(token.Dot)
	case '-':
		return l.make(token.Minus)
	case '+':
		return l.make(token.Plus)
	case '/':
		return l.make(token.Slash)
	case '*':
		return l.make(token.Star)
	case '!':
		return l.make(l.twoChar('=', token.BangEqual, token.Bang))
	case '=':
		return l.make(l.twoChar('=', token.EqualEqual, token.Equal))
	case '<':
		return l.make(l.twoChar('=', token.LessEqual, token.Less))
	case '>':
		return l.make(l.twoChar('=', token.GreaterEqual, token.Greater))
	case '"':
		return l.string()
	}

	return l.errorToken("Unexpected character.")
}

func (l *Lexer) twoChar(expect byte, matched, unmatched token.Kind) token.Kind {
	if l.match(expect) {
		return matched
	}
	return unmatched
}

func (l *Lexer) atEnd() bool {
	return l.current >= len(l.source)
}

func (l *Lexer) advance() byte {
	c := l.source[l.current]
	l.current++
	return c
}

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.source[l.current]
}

func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.source) {
		return 0
	}
	return l.source[l.current+1]
}

func (l *Lexer) match(expect byte) bool {
	if l.atEnd() || l.source[l.current] != expect {
		return false
	}
	l.current++
	return true
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.peek() {
		case ' ', '\r', '\t':
			l.advance()
		case '\n':
			l.line++
			l.advance()
		case '/':
			if l.peekNext() == '/' {
				for l.peek() != '\n' && !l.atEnd() {
					l.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) string() token.Token {
	for l.peek() != '"' && !l.atEnd() {
		if l.peek() == '\n' {
			l.line++
		}
		l.advance()
	}
	if l.atEnd() {
		return l.errorToken("Unterminated string.")
	}
	l.advance() // closing quote
	return l.make(token.String)
}

func (l *Lexer) number() token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance() // consume the '.'
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	return l.make(token.Number)
}

func (l *Lexer) identifier() token.Token {
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	lexeme := l.source[l.start:l.current]
	return l.make(token.Lookup(lexeme))
}

func (l *Lexer) make(kind token.Kind) token.Token {
	return token.Token{
		Kind:   kind,
		Lexeme: l.source[l.start:l.current],
		Line:   l.line,
	}
}

func (l *Lexer) errorToken(message string) token.Token {
	return token.Token{
		Kind:    token.Error,
		Line:    l.line,
		Message: message,
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

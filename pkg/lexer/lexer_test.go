package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/crux/pkg/token"
)

func TestNextTokenBasicPunctuation(t *testing.T) {
	input := `(){};,.-+/*`

	tests := []struct {
		kind   token.Kind
		lexeme string
	}{
		{token.LeftParen, "("},
		{token.RightParen, ")"},
		{token.LeftBrace, "{"},
		{token.RightBrace, "}"},
		{token.Semicolon, ";"},
		{token.Comma, ","},
		{token.Dot, "."},
		{token.Minus, "-"},
		{token.Plus, "+"},
		{token.Slash, "/"},
		{token.Star, "*"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.Next()
		require.Equalf(t, tt.kind, tok.Kind, "tests[%d]: kind", i)
		require.Equalf(t, tt.lexeme, tok.Lexeme, "tests[%d]: lexeme", i)
	}
}

func TestNextTokenOperators(t *testing.T) {
	input := `! != = == < <= > >=`

	tests := []struct {
		kind   token.Kind
		lexeme string
	}{
		{token.Bang, "!"},
		{token.BangEqual, "!="},
		{token.Equal, "="},
		{token.EqualEqual, "=="},
		{token.Less, "<"},
		{token.LessEqual, "<="},
		{token.Greater, ">"},
		{token.GreaterEqual, ">="},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.Next()
		require.Equalf(t, tt.kind, tok.Kind, "tests[%d]: kind", i)
		require.Equalf(t, tt.lexeme, tok.Lexeme, "tests[%d]: lexeme", i)
	}
}

func TestNextTokenKeywordsAndIdentifiers(t *testing.T) {
	input := `and class else false for fun if nil or print return super this true var while foobar _x1`

	expected := []token.Kind{
		token.And, token.Class, token.Else, token.False, token.For, token.Fun,
		token.If, token.Nil, token.Or, token.Print, token.Return, token.Super,
		token.This, token.True, token.Var, token.While,
		token.Identifier, token.Identifier,
	}

	l := New(input)
	for i, kind := range expected {
		tok := l.Next()
		require.Equalf(t, kind, tok.Kind, "tests[%d]", i)
	}
}

func TestNextTokenNumbers(t *testing.T) {
	l := New(`123 3.14`)

	tok := l.Next()
	require.Equal(t, token.Number, tok.Kind)
	require.Equal(t, "123", tok.Lexeme)

	tok = l.Next()
	require.Equal(t, token.Number, tok.Kind)
	require.Equal(t, "3.14", tok.Lexeme)
}

func TestNextTokenStringLiteral(t *testing.T) {
	l := New(`"hello, world"`)

	tok := l.Next()
	require.Equal(t, token.String, tok.Kind)
	require.Equal(t, `"hello, world"`, tok.Lexeme)
}

func TestNextTokenUnterminatedString(t *testing.T) {
	l := New(`"hello`)

	tok := l.Next()
	require.Equal(t, token.Error, tok.Kind)
	require.Equal(t, "Unterminated string.", tok.Message)
}

func TestNextTokenStringSpansMultipleLines(t *testing.T) {
	l := New("\"line one\nline two\"\nafter")

	tok := l.Next()
	require.Equal(t, token.String, tok.Kind)

	tok = l.Next()
	require.Equal(t, token.Identifier, tok.Kind)
	require.Equal(t, 2, tok.Line)
}

func TestNextTokenSkipsLineComments(t *testing.T) {
	l := New("// a comment\n42")

	tok := l.Next()
	require.Equal(t, token.Number, tok.Kind)
	require.Equal(t, "42", tok.Lexeme)
}

func TestNextTokenUnexpectedCharacter(t *testing.T) {
	l := New(`@`)

	tok := l.Next()
	require.Equal(t, token.Error, tok.Kind)
}

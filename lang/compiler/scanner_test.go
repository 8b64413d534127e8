package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberlang/ember/lang/token"
)

func scanAll(source string) []token.Token {
	s := newScanner(source)
	var toks []token.Token
	for {
		tok := s.next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll("(){};,.+-*/ ! != = == < <= > >=")
	kinds := make([]token.Kind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	require.Equal(t, []token.Kind{
		token.LEFT_PAREN, token.RIGHT_PAREN, token.LEFT_BRACE, token.RIGHT_BRACE,
		token.SEMICOLON, token.COMMA, token.DOT, token.PLUS, token.MINUS,
		token.STAR, token.SLASH,
		token.BANG, token.BANG_EQUAL, token.EQUAL, token.EQUAL_EQUAL,
		token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL,
		token.EOF,
	}, kinds)
}

func TestScanStringLiteral(t *testing.T) {
	toks := scanAll(`"hello world"`)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, `"hello world"`, toks[0].Lexeme)
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(`"hello`)
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
	require.Equal(t, "Unterminated string.", toks[0].Lexeme)
}

func TestScanNumberLiterals(t *testing.T) {
	toks := scanAll("123 45.67")
	require.Equal(t, token.NUMBER, toks[0].Kind)
	require.Equal(t, "123", toks[0].Lexeme)
	require.Equal(t, token.NUMBER, toks[1].Kind)
	require.Equal(t, "45.67", toks[1].Lexeme)
}

func TestScanIdentifiersAndKeywords(t *testing.T) {
	toks := scanAll("foo and class")
	require.Equal(t, token.IDENTIFIER, toks[0].Kind)
	require.Equal(t, token.AND, toks[1].Kind)
	require.Equal(t, token.CLASS, toks[2].Kind)
}

func TestScanSkipsLineCommentsAndTracksLines(t *testing.T) {
	toks := scanAll("var x = 1; // a comment\nprint x;")
	var printLine int
	for _, tok := range toks {
		if tok.Kind == token.PRINT {
			printLine = tok.Line
		}
	}
	require.Equal(t, 2, printLine)
}

func TestScanUnexpectedCharacterIsError(t *testing.T) {
	toks := scanAll("@")
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
	require.Equal(t, "Unexpected character.", toks[0].Lexeme)
}

package token_test

import (
	"testing"

	"github.com/emberlang/ember/lang/token"
	"github.com/stretchr/testify/require"
)

func TestLookupIdent(t *testing.T) {
	cases := []struct {
		lexeme string
		want   token.Kind
	}{
		{"and", token.AND},
		{"class", token.CLASS},
		{"else", token.ELSE},
		{"false", token.FALSE},
		{"for", token.FOR},
		{"fun", token.FUN},
		{"if", token.IF},
		{"nil", token.NIL},
		{"or", token.OR},
		{"print", token.PRINT},
		{"return", token.RETURN},
		{"super", token.SUPER},
		{"this", token.THIS},
		{"true", token.TRUE},
		{"var", token.VAR},
		{"while", token.WHILE},
		{"", token.IDENTIFIER},
		{"foobar", token.IDENTIFIER},
		{"f", token.IDENTIFIER},
		{"printer", token.IDENTIFIER},
		{"classy", token.IDENTIFIER},
	}
	for _, c := range cases {
		t.Run(c.lexeme, func(t *testing.T) {
			require.Equal(t, c.want, token.LookupIdent(c.lexeme))
		})
	}
}

func TestKindString(t *testing.T) {
	require.Equal(t, "and", token.AND.String())
	require.Equal(t, "end of file", token.EOF.String())
}

package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"indigo/token"
)

func TestKeywordsCoverReservedWords(t *testing.T) {
	for _, word := range []string{"fun", "let", "if", "else", "while", "return", "print", "and", "or", "true", "false", "nil"} {
		_, ok := token.Keywords[word]
		assert.True(t, ok, "expected %q to be a reserved keyword", word)
	}
}

func TestNewLiteralCarriesPosition(t *testing.T) {
	tok := token.NewLiteral(token.NUMBER, "42", float64(42), 3, 7)
	assert.Equal(t, token.NUMBER, tok.Type)
	assert.Equal(t, 3, tok.Line)
	assert.Equal(t, 7, tok.Column)
	assert.Equal(t, float64(42), tok.Literal)
}

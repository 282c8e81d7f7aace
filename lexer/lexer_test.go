package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indigo/lexer"
	"indigo/token"
)

func tokenTypes(t *testing.T, source string) []token.TokenType {
	t.Helper()
	tokens, errs := lexer.New(source).Scan()
	require.Empty(t, errs)
	types := make([]token.TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestIndentationProducesSyntheticTokens(t *testing.T) {
	source := "if 1 < 2\n    print 1\nprint 2\n"
	types := tokenTypes(t, source)
	assert.Equal(t, []token.TokenType{
		token.IF, token.NUMBER, token.LESS, token.NUMBER, token.NEWLINE,
		token.INDENT, token.PRINT, token.NUMBER, token.NEWLINE,
		token.DEDENT, token.PRINT, token.NUMBER, token.NEWLINE,
		token.EOF,
	}, types)
}

func TestCompoundAssignOperators(t *testing.T) {
	types := tokenTypes(t, "x += 1\n")
	assert.Equal(t, []token.TokenType{token.IDENTIFIER, token.PLUS_EQUAL, token.NUMBER, token.NEWLINE, token.EOF}, types)
}

func TestCommentsAreDiscarded(t *testing.T) {
	types := tokenTypes(t, "# a comment\nprint 1 # trailing\n")
	assert.Equal(t, []token.TokenType{token.PRINT, token.NUMBER, token.NEWLINE, token.EOF}, types)
}

func TestStringEscapes(t *testing.T) {
	tokens, errs := lexer.New(`print "a\nb"` + "\n").Scan()
	require.Empty(t, errs)
	require.Len(t, tokens, 4)
	assert.Equal(t, "a\nb", tokens[1].Literal)
}

func TestUnterminatedStringIsAnError(t *testing.T) {
	_, errs := lexer.New(`print "unterminated` + "\n").Scan()
	require.NotEmpty(t, errs)
}

func TestTabsInIndentationAreRejected(t *testing.T) {
	_, errs := lexer.New("if 1 < 2\n\tprint 1\n").Scan()
	require.NotEmpty(t, errs)
}

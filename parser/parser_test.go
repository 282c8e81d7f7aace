package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indigo/ast"
	"indigo/lexer"
	"indigo/parser"
)

func parseSource(t *testing.T, source string) []ast.Stmt {
	t.Helper()
	tokens, lexErrs := lexer.New(source).Scan()
	require.Empty(t, lexErrs)
	stmts, parseErrs := parser.New(tokens).Parse()
	require.Empty(t, parseErrs)
	return stmts
}

func TestLetStatement(t *testing.T) {
	stmts := parseSource(t, "let x = 1 + 2\n")
	require.Len(t, stmts, 1)
	let, ok := stmts[0].(ast.Let)
	require.True(t, ok)
	assert.Equal(t, "x", let.Name.Lexeme)
	_, ok = let.Initializer.(ast.Binary)
	assert.True(t, ok)
}

func TestIfElseStatement(t *testing.T) {
	stmts := parseSource(t, "if a\n    print 1\nelse\n    print 2\n")
	require.Len(t, stmts, 1)
	ifStmt, ok := stmts[0].(ast.If)
	require.True(t, ok)
	assert.NotNil(t, ifStmt.Else)
}

func TestFunctionDeclarationParameters(t *testing.T) {
	stmts := parseSource(t, "fun add(a, b)\n    return a + b\n")
	require.Len(t, stmts, 1)
	fn, ok := stmts[0].(ast.FunStmt)
	require.True(t, ok)
	require.Len(t, fn.Parameters, 2)
	assert.Equal(t, "a", fn.Parameters[0].Lexeme)
	assert.Equal(t, "b", fn.Parameters[1].Lexeme)
}

func TestCompoundAssignmentExpression(t *testing.T) {
	stmts := parseSource(t, "x += 1\n")
	require.Len(t, stmts, 1)
	exprStmt, ok := stmts[0].(ast.ExprStmt)
	require.True(t, ok)
	_, ok = exprStmt.Expression.(ast.CompoundAssign)
	assert.True(t, ok)
}

func TestCallExpressionRejectsNonNameCallee(t *testing.T) {
	tokens, lexErrs := lexer.New("(1)(2)\n").Scan()
	require.Empty(t, lexErrs)
	_, parseErrs := parser.New(tokens).Parse()
	require.NotEmpty(t, parseErrs)
}

func TestTooManyArgumentsIsAParseError(t *testing.T) {
	var src string
	src = "fun f(a)\n    return a\nf("
	for i := 0; i < 256; i++ {
		if i > 0 {
			src += ", "
		}
		src += "1"
	}
	src += ")\n"

	tokens, lexErrs := lexer.New(src).Scan()
	require.Empty(t, lexErrs)
	_, parseErrs := parser.New(tokens).Parse()
	require.NotEmpty(t, parseErrs)
}

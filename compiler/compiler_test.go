package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indigo/compiler"
	"indigo/lexer"
	"indigo/parser"
)

func compileSource(t *testing.T, source string) (*compiler.Program, []error) {
	t.Helper()
	tokens, lexErrs := lexer.New(source).Scan()
	require.Empty(t, lexErrs)
	stmts, parseErrs := parser.New(tokens).Parse()
	require.Empty(t, parseErrs)
	return compiler.New(compiler.DefaultNatives()).Compile(stmts)
}

func TestTopLevelChunkEndsInReturn(t *testing.T) {
	program, errs := compileSource(t, "print 1\n")
	require.Empty(t, errs)
	code := program.Functions[0].Chunk.Code
	require.GreaterOrEqual(t, len(code), 2)
	assert.Equal(t, byte(compiler.OP_RETURN), code[len(code)-1])
	assert.Equal(t, byte(compiler.OP_NIL), code[len(code)-2])
}

func TestChunkCodeAndLinesStayInLockstep(t *testing.T) {
	program, errs := compileSource(t, "let a = 1\nif a\n    print a\n")
	require.Empty(t, errs)
	for _, fn := range program.Functions {
		assert.Equal(t, len(fn.Chunk.Code), len(fn.Chunk.Lines))
	}
}

func TestStringInterningIsIdempotent(t *testing.T) {
	program, errs := compileSource(t, "print \"same\"\nprint \"same\"\n")
	require.Empty(t, errs)
	code := program.Functions[0].Chunk.Code

	var operands []byte
	for i := 0; i < len(code); i++ {
		if compiler.Opcode(code[i]) == compiler.OP_STRING {
			operands = append(operands, code[i+1])
			i++
		}
	}
	require.Len(t, operands, 2)
	assert.Equal(t, operands[0], operands[1])
}

func TestConstantPoolHasNoDuplicates(t *testing.T) {
	program, errs := compileSource(t, "print 1.5\nprint 1.5\nprint 2.5\n")
	require.Empty(t, errs)
	seen := make(map[compiler.Value]bool)
	for _, c := range program.Constants {
		require.False(t, seen[c], "duplicate constant %v", c)
		seen[c] = true
	}
}

// TestBareFunctionReferenceIsNotAddedToLocalsShadow guards the fix for the
// shadow/real-stack divergence spec.md §9 warns about: reading a function
// by name as a plain value is an expression temporary, not a declared
// local, so it must not shift the stack offset the compiler assigns to a
// variable declared right after it.
func TestBareFunctionReferenceIsNotAddedToLocalsShadow(t *testing.T) {
	program, errs := compileSource(t, "print clock\nlet x = 5\nprint x\n")
	require.Empty(t, errs)
	code := program.Functions[0].Chunk.Code

	var getLocalOffset byte
	found := false
	for i := 0; i < len(code); i++ {
		if compiler.Opcode(code[i]) == compiler.OP_GET_LOCAL {
			getLocalOffset = code[i+1]
			found = true
			i++
		}
	}
	require.True(t, found, "expected a GET_LOCAL for the trailing \"print x\"")
	assert.Equal(t, byte(0), getLocalOffset)
}

// TestLetBoundFunctionIsUsableAsCallee exercises resolveCallee's locals
// fallback (spec.md §4.2): a function assigned to a local must compile as
// a valid call target, not an "undeclared function" error.
func TestLetBoundFunctionIsUsableAsCallee(t *testing.T) {
	_, errs := compileSource(t, "fun add(a, b)\n    return a + b\nlet f = add\nprint f(1, 2)\n")
	require.Empty(t, errs)
}

func TestUndeclaredVariableIsCompileError(t *testing.T) {
	_, errs := compileSource(t, "print undeclared\n")
	require.NotEmpty(t, errs)
}

func TestReadInOwnInitializerIsCompileError(t *testing.T) {
	_, errs := compileSource(t, "let x = x\n")
	require.NotEmpty(t, errs)
}

func TestDuplicateVariableInScopeIsCompileError(t *testing.T) {
	_, errs := compileSource(t, "let x = 1\nlet x = 2\n")
	require.NotEmpty(t, errs)
}

func TestArityMismatchIsCompileError(t *testing.T) {
	_, errs := compileSource(t, "fun f(a)\n    return a\nprint f(1, 2)\n")
	require.NotEmpty(t, errs)
}

func TestBlockEndPopsLocalsOutOfScope(t *testing.T) {
	program, errs := compileSource(t, "if true\n    let a = 1\n    let b = 2\nprint 1\n")
	require.Empty(t, errs)
	code := program.Functions[0].Chunk.Code

	found := false
	for i := 0; i < len(code); i++ {
		if compiler.Opcode(code[i]) == compiler.OP_POP_N {
			assert.Equal(t, byte(2), code[i+1])
			found = true
			i++
		}
	}
	assert.True(t, found, "expected a POP_N 2 closing the if-block's scope")
}

func TestCompoundAssignStatementEmitsTrailingPop(t *testing.T) {
	program, errs := compileSource(t, "let x = 1\nx += 1\n")
	require.Empty(t, errs)
	code := program.Functions[0].Chunk.Code

	assignIdx := -1
	for i, b := range code {
		if compiler.Opcode(b) == compiler.OP_ADD_ASSIGN {
			assignIdx = i
			break
		}
	}
	require.NotEqual(t, -1, assignIdx)
	// OP_ADD_ASSIGN off is two bytes; the statement lowering must emit a
	// POP right after to discard the RHS the opcode deliberately leaves
	// on the stack (spec.md §4.2/§9).
	require.Less(t, assignIdx+2, len(code))
	assert.Equal(t, byte(compiler.OP_POP), code[assignIdx+2])
}

func TestTooManyConstantsIsCompileError(t *testing.T) {
	src := ""
	for i := 0; i < 300; i++ {
		src += "print " + itoaFloat(i) + ".25\n"
	}
	_, errs := compileSource(t, src)
	require.NotEmpty(t, errs)
}

func itoaFloat(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return string(b)
}

package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indigo/compiler"
	"indigo/lexer"
	"indigo/parser"
	"indigo/vm"
)

// run compiles and executes source, returning the lines written by PRINT
// in order, or the first compile or runtime error. Lexing and parsing
// errors fail the test outright instead of being returned.
func run(t *testing.T, source string) ([]string, error) {
	t.Helper()

	lex := lexer.New(source)
	tokens, lexErrs := lex.Scan()
	require.Empty(t, lexErrs, "lexing %q", source)

	p := parser.New(tokens)
	stmts, parseErrs := p.Parse()
	require.Empty(t, parseErrs, "parsing %q", source)

	c := compiler.New(compiler.DefaultNatives())
	program, compileErrs := c.Compile(stmts)
	if len(compileErrs) > 0 {
		return nil, compileErrs[0]
	}

	var lines []string
	machine := vm.New(program, func(s string) { lines = append(lines, s) })
	err := machine.Run()
	return lines, err
}

func TestEndToEndScenarios(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{
			name:   "arithmetic precedence",
			source: "print 1 + 2 * 3\n",
			want:   []string{"7"},
		},
		{
			name: "string concatenation",
			source: "let a = \"hi\"\n" +
				"let b = \" there\"\n" +
				"print a + b\n",
			want: []string{"hi there"},
		},
		{
			name: "while loop with compound assign",
			source: "let n = 0\n" +
				"while n < 3\n" +
				"    print n\n" +
				"    n += 1\n",
			want: []string{"0", "1", "2"},
		},
		{
			name: "user function call",
			source: "fun add(a, b)\n" +
				"    return a + b\n" +
				"print add(2, 40)\n",
			want: []string{"42"},
		},
		{
			name: "if/else",
			source: "if 1 < 2\n" +
				"    print \"yes\"\n" +
				"else\n" +
				"    print \"no\"\n",
			want: []string{"yes"},
		},
		{
			name:   "native clock",
			source: "print clock() >= 0\n",
			want:   []string{"true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := run(t, tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.want, lines)
		})
	}
}

func TestRuntimeErrorOnMixedAdd(t *testing.T) {
	_, err := run(t, "print 1 + \"x\"\n")
	require.Error(t, err)
	var runtimeErr vm.RuntimeError
	require.ErrorAs(t, err, &runtimeErr)
}

func TestCompileErrorOnSelfReferentialInitializer(t *testing.T) {
	_, err := run(t, "let x = x\n")
	require.Error(t, err)
	var compileErr compiler.CompileError
	require.ErrorAs(t, err, &compileErr)
}

func TestStraightLineProgramLeavesStackEmpty(t *testing.T) {
	lex := lexer.New("let a = 1\nlet b = 2\nprint a + b\n")
	tokens, lexErrs := lex.Scan()
	require.Empty(t, lexErrs)
	p := parser.New(tokens)
	stmts, parseErrs := p.Parse()
	require.Empty(t, parseErrs)

	c := compiler.New(compiler.DefaultNatives())
	program, compileErrs := c.Compile(stmts)
	require.Empty(t, compileErrs)

	var lines []string
	machine := vm.New(program, func(s string) { lines = append(lines, s) })
	require.NoError(t, machine.Run())
	assert.Equal(t, []string{"3"}, lines)
}

func TestCompoundAssignEquivalence(t *testing.T) {
	lines, err := run(t, "let x = 10\nx -= 4\nprint x\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"6"}, lines)
}

func TestModuloTruncatesToInt64(t *testing.T) {
	lines, err := run(t, "print 7.5 % 3\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, lines)
}

func TestLogicalShortCircuit(t *testing.T) {
	lines, err := run(t, "fun boom()\n    print \"boom\"\n    return true\nprint false and boom()\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"false"}, lines)
}

// TestBareFunctionReferenceDoesNotLeakStackSlot guards against the shadow/
// real-stack divergence spec.md §9 warns about: reading a native or user
// function by name as a plain value (not calling it) must not leave a
// lingering entry in the compiler's locals shadow once the statement that
// read it is done, or every local declared afterward resolves to the wrong
// stack offset.
func TestBareFunctionReferenceDoesNotLeakStackSlot(t *testing.T) {
	lines, err := run(t, "print clock\nlet x = 5\nprint x\n")
	require.NoError(t, err)
	assert.Equal(t, 2, len(lines))
	assert.Equal(t, "5", lines[1])
}

// TestLocalHoldingFunctionIsCallable exercises spec.md §4.2's locals
// fallback for callee resolution: a function assigned to a local (rather
// than called directly by name) must still be callable.
func TestLocalHoldingFunctionIsCallable(t *testing.T) {
	lines, err := run(t, "fun add(a, b)\n    return a + b\nlet f = add\nprint f(2, 40)\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, lines)
}

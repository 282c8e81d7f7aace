package compiler_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indigo/compiler"
	"indigo/lexer"
	"indigo/parser"
)

func TestWriteReadProgramRoundTrip(t *testing.T) {
	source := "let a = 1\n" +
		"fun add(x, y)\n" +
		"    return x + y\n" +
		"print add(a, 2) + \"!\"\n"

	tokens, lexErrs := lexer.New(source).Scan()
	require.Empty(t, lexErrs)
	stmts, parseErrs := parser.New(tokens).Parse()
	require.Empty(t, parseErrs)

	natives := compiler.DefaultNatives()
	original, compileErrs := compiler.New(natives).Compile(stmts)
	require.Empty(t, compileErrs)

	encoded := compiler.WriteProgram(original)
	decoded, err := compiler.ReadProgram(bytes.NewReader(encoded), natives)
	require.NoError(t, err)

	require.Len(t, decoded.Functions, len(original.Functions))
	for i := range original.Functions {
		assert.Equal(t, original.Functions[i].Name, decoded.Functions[i].Name)
		assert.Equal(t, original.Functions[i].Arity, decoded.Functions[i].Arity)
		assert.Equal(t, original.Functions[i].Chunk.Code, decoded.Functions[i].Chunk.Code)
		assert.Equal(t, original.Functions[i].Chunk.Lines, decoded.Functions[i].Chunk.Lines)
	}

	assert.Equal(t, original.Constants, decoded.Constants)
	assert.Equal(t, original.Strings, decoded.Strings)
}

func TestWriteProgramIsLittleEndian(t *testing.T) {
	program := &compiler.Program{
		Functions: []compiler.UserFunction{{Name: "", Arity: 0}},
	}
	encoded := compiler.WriteProgram(program)
	require.GreaterOrEqual(t, len(encoded), 4)
	// function count == 1, encoded little-endian: 0x01 0x00 0x00 0x00.
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, encoded[:4])
}

func TestReadProgramRejectsTruncatedInput(t *testing.T) {
	_, err := compiler.ReadProgram(bytes.NewReader([]byte{0x01, 0x00}), nil)
	assert.Error(t, err)
}

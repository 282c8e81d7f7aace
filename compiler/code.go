package compiler

import (
	"encoding/binary"
	"fmt"
)

// Opcode is a single-byte instruction tag (spec.md §4.1).
type Opcode byte

const (
	OP_CONSTANT Opcode = iota
	OP_STRING
	OP_NIL
	OP_TRUE
	OP_FALSE

	OP_POP
	OP_POP_N

	OP_GET_LOCAL
	OP_SET_LOCAL

	OP_EQUAL
	OP_NOT_EQUAL
	OP_LESS
	OP_LESS_EQUAL
	OP_GREATER
	OP_GREATER_EQUAL

	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_MODULO

	OP_ADD_ASSIGN
	OP_SUBTRACT_ASSIGN
	OP_MULTIPLY_ASSIGN
	OP_DIVIDE_ASSIGN
	OP_MODULO_ASSIGN

	OP_NOT
	OP_NEGATE

	OP_PRINT

	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_LOOP

	OP_CALL
	OP_CALL_NATIVE

	OP_RETURN
)

// OpCodeDefinition names an opcode and the byte width of each of its
// operands, in encoding order. A disassembler uses this to know how many
// bytes to consume after the opcode byte.
type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*OpCodeDefinition{
	OP_CONSTANT: {"OP_CONSTANT", []int{1}},
	OP_STRING:   {"OP_STRING", []int{1}},
	OP_NIL:      {"OP_NIL", nil},
	OP_TRUE:     {"OP_TRUE", nil},
	OP_FALSE:    {"OP_FALSE", nil},

	OP_POP:   {"OP_POP", nil},
	OP_POP_N: {"OP_POP_N", []int{1}},

	OP_GET_LOCAL: {"OP_GET_LOCAL", []int{1}},
	OP_SET_LOCAL: {"OP_SET_LOCAL", []int{1}},

	OP_EQUAL:         {"OP_EQUAL", nil},
	OP_NOT_EQUAL:     {"OP_NOT_EQUAL", nil},
	OP_LESS:          {"OP_LESS", nil},
	OP_LESS_EQUAL:    {"OP_LESS_EQUAL", nil},
	OP_GREATER:       {"OP_GREATER", nil},
	OP_GREATER_EQUAL: {"OP_GREATER_EQUAL", nil},

	OP_ADD:      {"OP_ADD", nil},
	OP_SUBTRACT: {"OP_SUBTRACT", nil},
	OP_MULTIPLY: {"OP_MULTIPLY", nil},
	OP_DIVIDE:   {"OP_DIVIDE", nil},
	OP_MODULO:   {"OP_MODULO", nil},

	OP_ADD_ASSIGN:      {"OP_ADD_ASSIGN", []int{1}},
	OP_SUBTRACT_ASSIGN: {"OP_SUBTRACT_ASSIGN", []int{1}},
	OP_MULTIPLY_ASSIGN: {"OP_MULTIPLY_ASSIGN", []int{1}},
	OP_DIVIDE_ASSIGN:   {"OP_DIVIDE_ASSIGN", []int{1}},
	OP_MODULO_ASSIGN:   {"OP_MODULO_ASSIGN", []int{1}},

	OP_NOT:    {"OP_NOT", nil},
	OP_NEGATE: {"OP_NEGATE", nil},

	OP_PRINT: {"OP_PRINT", nil},

	OP_JUMP:          {"OP_JUMP", []int{2}},
	OP_JUMP_IF_FALSE: {"OP_JUMP_IF_FALSE", []int{2}},
	OP_LOOP:          {"OP_LOOP", []int{2}},

	OP_CALL:        {"OP_CALL", []int{1}},
	OP_CALL_NATIVE: {"OP_CALL_NATIVE", []int{1}},

	OP_RETURN: {"OP_RETURN", nil},
}

func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode: %d undefined", op)
	}
	return def, nil
}

// MakeInstruction assembles an opcode and its operands into their encoded
// byte form. Multi-byte operands are big-endian, matching the original's
// jump-offset encoding; the one 2-byte operand carried through from the
// original stays big-endian here for consistency even though the rest of
// this package favors little-endian for the persisted file format (§9).
func MakeInstruction(op Opcode, operands ...int) []byte {
	def, err := Get(op)
	if err != nil {
		return []byte{}
	}

	length := 1
	for _, w := range def.OperandWidths {
		length += w
	}

	instruction := make([]byte, length)
	instruction[0] = byte(op)

	offset := 1
	for i, operand := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 1:
			instruction[offset] = byte(operand)
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(operand))
		}
		offset += width
	}
	return instruction
}

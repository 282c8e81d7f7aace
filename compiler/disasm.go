package compiler

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// DisassembleProgram renders every function's chunk as a human-readable
// instruction listing, grounded in the teacher's DiassembleBytecode but
// restructured around this package's byte-for-byte opcode table instead
// of reading the teacher's constants pool format. Used by cmd/indigo-tools
// (spec.md §2.6's disassembler hooks); never consulted by the VM itself.
func DisassembleProgram(p *Program) string {
	var b strings.Builder
	for i, fn := range p.Functions {
		name := fn.Name
		if name == "" {
			name = "<script>"
		}
		fmt.Fprintf(&b, "== function %d: %s (arity %d) ==\n", i, name, fn.Arity)
		b.WriteString(DisassembleChunk(&fn.Chunk))
	}
	return b.String()
}

// DisassembleChunk renders one chunk's instruction stream, one line per
// instruction, prefixed by its byte offset and source line.
func DisassembleChunk(c *Chunk) string {
	var b strings.Builder
	offset := 0
	for offset < len(c.Code) {
		line, next := disassembleInstruction(c, offset)
		fmt.Fprintf(&b, "%04d %4d  %s\n", offset, c.Lines[offset], line)
		offset = next
	}
	return b.String()
}

func disassembleInstruction(c *Chunk, offset int) (string, int) {
	op := Opcode(c.Code[offset])
	def, err := Get(op)
	if err != nil {
		return fmt.Sprintf("unknown opcode %d", op), offset + 1
	}

	switch len(def.OperandWidths) {
	case 0:
		return def.Name, offset + 1
	case 1:
		operand := int(c.Code[offset+1])
		return fmt.Sprintf("%-18s %4d", def.Name, operand), offset + 1 + def.OperandWidths[0]
	case 2:
		jump := binary.BigEndian.Uint16(c.Code[offset+1 : offset+3])
		target := offset + 3
		if op == OP_LOOP {
			target -= int(jump)
		} else {
			target += int(jump)
		}
		return fmt.Sprintf("%-18s %4d -> %d", def.Name, jump, target), offset + 3
	default:
		return def.Name, offset + 1
	}
}

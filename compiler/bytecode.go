package compiler

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Binary bytecode file format (spec.md §6.2, adapted per §9's design
// note): every length-prefixed section uses an explicit little-endian
// uint32, and every Value is written as a fixed-width 19-byte record.
// The original dumps its in-memory structs (size_t, int) directly to
// disk; Go has no equivalent portable raw-memory write, so this format
// spells out every field's width instead of relying on host layout.
const valueRecordSize = 1 + 1 + 8 + 4 + 4 + 1

// WriteProgram serializes a compiled Program to the bytecode file format.
func WriteProgram(p *Program) []byte {
	var buf bytes.Buffer

	writeUint32(&buf, uint32(len(p.Functions)))
	for _, fn := range p.Functions {
		writeString(&buf, fn.Name)
		writeUint32(&buf, uint32(fn.Arity))

		writeUint32(&buf, uint32(len(fn.Chunk.Code)))
		buf.Write(fn.Chunk.Code)

		writeUint32(&buf, uint32(len(fn.Chunk.Lines)))
		for _, line := range fn.Chunk.Lines {
			writeUint32(&buf, uint32(line))
		}
	}

	writeUint32(&buf, uint32(len(p.Constants)))
	for _, v := range p.Constants {
		writeValue(&buf, v)
	}

	writeUint32(&buf, uint32(len(p.Strings)))
	buf.Write(p.Strings)

	return buf.Bytes()
}

// ReadProgram deserializes a bytecode file written by WriteProgram. The
// native table is supplied by the caller (the VM's CALL_NATIVE opcode
// resolves by index against whatever table it's run with) rather than
// persisted, since natives carry Go closures that can't be serialized.
func ReadProgram(r io.Reader, natives []NativeFunction) (*Program, error) {
	p := &Program{Natives: natives}

	functionCount, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("reading function count: %w", err)
	}
	p.Functions = make([]UserFunction, functionCount)
	for i := range p.Functions {
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("reading function %d name: %w", i, err)
		}
		arity, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("reading function %d arity: %w", i, err)
		}

		codeLen, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("reading function %d code length: %w", i, err)
		}
		code := make([]byte, codeLen)
		if _, err := io.ReadFull(r, code); err != nil {
			return nil, fmt.Errorf("reading function %d code: %w", i, err)
		}

		lineCount, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("reading function %d line count: %w", i, err)
		}
		lines := make([]int, lineCount)
		for j := range lines {
			line, err := readUint32(r)
			if err != nil {
				return nil, fmt.Errorf("reading function %d line %d: %w", i, j, err)
			}
			lines[j] = int(line)
		}

		p.Functions[i] = UserFunction{
			Name:  name,
			Arity: int(arity),
			Chunk: Chunk{Code: code, Lines: lines},
		}
	}

	constantCount, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("reading constant count: %w", err)
	}
	p.Constants = make([]Value, constantCount)
	for i := range p.Constants {
		v, err := readValue(r)
		if err != nil {
			return nil, fmt.Errorf("reading constant %d: %w", i, err)
		}
		p.Constants[i] = v
	}

	stringsLen, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("reading string pool length: %w", err)
	}
	p.Strings = make([]byte, stringsLen)
	if _, err := io.ReadFull(r, p.Strings); err != nil {
		return nil, fmt.Errorf("reading string pool: %w", err)
	}

	return p, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeValue(buf *bytes.Buffer, v Value) {
	record := make([]byte, valueRecordSize)
	record[0] = byte(v.Kind)
	if v.Bool {
		record[1] = 1
	}
	binary.LittleEndian.PutUint64(record[2:10], math.Float64bits(v.Number))
	binary.LittleEndian.PutUint32(record[10:14], uint32(v.StrIndex))
	binary.LittleEndian.PutUint32(record[14:18], uint32(v.FnIndex))
	record[18] = byte(v.FnKind)
	buf.Write(record)
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readString(r io.Reader) (string, error) {
	length, err := readUint32(r)
	if err != nil {
		return "", err
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", err
	}
	return string(data), nil
}

func readValue(r io.Reader) (Value, error) {
	record := make([]byte, valueRecordSize)
	if _, err := io.ReadFull(r, record); err != nil {
		return Value{}, err
	}
	return Value{
		Kind:     ValueKind(record[0]),
		Bool:     record[1] != 0,
		Number:   math.Float64frombits(binary.LittleEndian.Uint64(record[2:10])),
		StrIndex: int(int32(binary.LittleEndian.Uint32(record[10:14]))),
		FnIndex:  int(int32(binary.LittleEndian.Uint32(record[14:18]))),
		FnKind:   FunctionKind(record[18]),
	}, nil
}

// Package vm implements the stack-based virtual machine that interprets
// compiled indigo bytecode (spec.md §4.3). It restores the function table,
// constant pool, and string pool a compiler.Program carries, then steps
// through the current frame's chunk one instruction at a time over a real
// operand stack, using a stack of call frames for frame-relative
// addressing. Single-threaded and fully synchronous, per spec.md §5.
package vm

import (
	"bytes"
	"fmt"
	"math"

	"indigo/compiler"
)

// VM holds all runtime state for one program execution. A VM is meant to
// run exactly one Program; create a fresh one per execution rather than
// reusing it, mirroring the teacher's vm.New() per-run construction.
type VM struct {
	program *compiler.Program

	stack  []compiler.Value
	frames []CallFrame

	strings     []byte
	stringIndex map[string]int

	out func(string)
}

// New creates a VM ready to run program. out receives one line per PRINT
// statement, without a trailing newline; pass nil to write each line plus
// a newline to os.Stdout (the CLI's default).
func New(program *compiler.Program, out func(string)) *VM {
	v := &VM{
		program:     program,
		stack:       make([]compiler.Value, 0, 256),
		frames:      []CallFrame{{FunctionIndex: 0, IP: 0, Base: 0}},
		strings:     append([]byte(nil), program.Strings...),
		stringIndex: make(map[string]int),
		out:         out,
	}
	v.internExistingStrings()
	return v
}

// internExistingStrings pre-populates the runtime interning map from the
// persisted string pool. Every segment the compiler wrote is already
// unique by content (compiler.go's emitString dedups at compile time), so
// scanning once at startup is equivalent to the original's lazier
// per-OP_STRING intern check (vm.cpp's VM::string) but doesn't depend on
// which branches actually execute first.
func (v *VM) internExistingStrings() {
	offset := 0
	for offset < len(v.strings) {
		end := bytes.IndexByte(v.strings[offset:], 0)
		if end < 0 {
			break
		}
		segment := string(v.strings[offset : offset+end])
		if _, exists := v.stringIndex[segment]; !exists {
			v.stringIndex[segment] = offset
		}
		offset += end + 1
	}
}

// Run executes the program to completion. It returns nil on RUNTIME_OK and
// a RuntimeError on RUNTIME_ERROR (spec.md §4.3's contract); there is no
// partial/recoverable result.
func (v *VM) Run() error {
	for {
		frame := &v.frames[len(v.frames)-1]
		chunk := &v.program.Functions[frame.FunctionIndex].Chunk

		if frame.IP >= len(chunk.Code) {
			return v.runtimeErr(0, "instruction pointer ran off the end of the chunk")
		}
		line := chunk.Lines[frame.IP]
		op := compiler.Opcode(chunk.Code[frame.IP])
		frame.IP++

		halt, err := v.step(op, frame, chunk, line)
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
	}
}

func (v *VM) step(op compiler.Opcode, frame *CallFrame, chunk *compiler.Chunk, line int) (halt bool, err error) {
	switch op {
	case compiler.OP_CONSTANT:
		idx := v.readByte(frame, chunk)
		v.push(v.program.Constants[idx])

	case compiler.OP_STRING:
		idx := v.readByte(frame, chunk)
		v.push(compiler.StringIndex(int(idx)))

	case compiler.OP_NIL:
		v.push(compiler.Nil())
	case compiler.OP_TRUE:
		v.push(compiler.Bool(true))
	case compiler.OP_FALSE:
		v.push(compiler.Bool(false))

	case compiler.OP_POP:
		v.pop()
	case compiler.OP_POP_N:
		n := int(v.readByte(frame, chunk))
		v.stack = v.stack[:len(v.stack)-n]

	case compiler.OP_GET_LOCAL:
		off := int(v.readByte(frame, chunk))
		v.push(v.stack[frame.Base+off])
	case compiler.OP_SET_LOCAL:
		off := int(v.readByte(frame, chunk))
		v.stack[frame.Base+off] = v.peek(0)

	case compiler.OP_EQUAL:
		b, a := v.pop(), v.pop()
		v.push(compiler.Bool(valuesEqual(a, b)))
	case compiler.OP_NOT_EQUAL:
		b, a := v.pop(), v.pop()
		v.push(compiler.Bool(!valuesEqual(a, b)))

	case compiler.OP_LESS, compiler.OP_LESS_EQUAL, compiler.OP_GREATER, compiler.OP_GREATER_EQUAL:
		err = v.compareOp(op, line)

	case compiler.OP_ADD:
		err = v.addOp(line)
	case compiler.OP_SUBTRACT, compiler.OP_MULTIPLY, compiler.OP_DIVIDE:
		err = v.arithOp(op, line)
	case compiler.OP_MODULO:
		err = v.moduloOp(line)

	case compiler.OP_ADD_ASSIGN, compiler.OP_SUBTRACT_ASSIGN, compiler.OP_MULTIPLY_ASSIGN, compiler.OP_DIVIDE_ASSIGN:
		off := int(v.readByte(frame, chunk))
		err = v.compoundArithOp(op, frame.Base+off, line)
	case compiler.OP_MODULO_ASSIGN:
		off := int(v.readByte(frame, chunk))
		err = v.compoundModuloOp(frame.Base+off, line)

	case compiler.OP_NOT:
		a := v.pop()
		v.push(compiler.Bool(isFalsey(a)))
	case compiler.OP_NEGATE:
		a := v.pop()
		if a.Kind != compiler.ValueNumber {
			return false, v.runtimeErr(line, fmt.Sprintf("operand must be a number, got %s", a.KindName()))
		}
		v.push(compiler.Number(-a.Number))

	case compiler.OP_PRINT:
		v.print(v.pop())

	case compiler.OP_JUMP:
		offset := v.readShort(frame, chunk)
		frame.IP += int(offset)
	case compiler.OP_JUMP_IF_FALSE:
		offset := v.readShort(frame, chunk)
		if isFalsey(v.peek(0)) {
			frame.IP += int(offset)
		}
	case compiler.OP_LOOP:
		offset := v.readShort(frame, chunk)
		frame.IP -= int(offset)

	case compiler.OP_CALL:
		fnIndex := int(v.readByte(frame, chunk))
		arity := v.program.Functions[fnIndex].Arity
		v.frames = append(v.frames, CallFrame{
			FunctionIndex: fnIndex,
			IP:            0,
			Base:          len(v.stack) - arity,
		})
	case compiler.OP_CALL_NATIVE:
		nativeIndex := int(v.readByte(frame, chunk))
		native := v.program.Natives[nativeIndex]
		argCount := native.Arity
		args := append([]compiler.Value(nil), v.stack[len(v.stack)-argCount:]...)
		v.stack = v.stack[:len(v.stack)-argCount]
		v.push(native.Call(args))

	case compiler.OP_RETURN:
		return v.returnOp()

	default:
		return false, v.runtimeErr(line, fmt.Sprintf("unknown opcode %d", op))
	}
	return false, err
}

// returnOp implements spec.md §4.3's Returns paragraph, grounded on
// vm.cpp's OP_RETURN case. The original calls pop() a second time after
// the frame stack empties (discarding what it assumes is the top-level
// script's terminating NIL) but that NIL was already consumed by the
// first pop; on an empty std::vector that second pop_back is undefined
// behavior that happens to be harmless because the program halts right
// after. This reimplementation keeps the documented "pop one more value"
// step but guards it so an already-empty stack is a no-op instead of a
// slice-bounds panic.
func (v *VM) returnOp() (halt bool, err error) {
	result := v.pop()
	base := v.frames[len(v.frames)-1].Base
	v.frames = v.frames[:len(v.frames)-1]

	if len(v.frames) == 0 {
		if len(v.stack) > 0 {
			v.pop()
		}
		return true, nil
	}

	v.stack = v.stack[:base]
	v.push(result)
	return false, nil
}

// --- arithmetic & comparison ---

func (v *VM) compareOp(op compiler.Opcode, line int) error {
	b, a := v.pop(), v.pop()
	if a.Kind != compiler.ValueNumber || b.Kind != compiler.ValueNumber {
		return v.runtimeErr(line, fmt.Sprintf("operands must be numbers, got %s and %s", a.KindName(), b.KindName()))
	}
	var result bool
	switch op {
	case compiler.OP_LESS:
		result = a.Number < b.Number
	case compiler.OP_LESS_EQUAL:
		result = a.Number <= b.Number
	case compiler.OP_GREATER:
		result = a.Number > b.Number
	case compiler.OP_GREATER_EQUAL:
		result = a.Number >= b.Number
	}
	v.push(compiler.Bool(result))
	return nil
}

func (v *VM) addOp(line int) error {
	b, a := v.pop(), v.pop()
	result, err := v.add(a, b, line)
	if err != nil {
		return err
	}
	v.push(result)
	return nil
}

// add implements OP_ADD's two valid shapes (spec.md §4.1/§4.3): number+number
// or string+string via pool concatenation. Any other combination, including
// a mix of the two, is a runtime error.
func (v *VM) add(a, b compiler.Value, line int) (compiler.Value, error) {
	switch {
	case a.Kind == compiler.ValueNumber && b.Kind == compiler.ValueNumber:
		return compiler.Number(a.Number + b.Number), nil
	case a.Kind == compiler.ValueString && b.Kind == compiler.ValueString:
		return v.concatenate(a.StrIndex, b.StrIndex), nil
	default:
		return compiler.Value{}, v.runtimeErr(line, fmt.Sprintf("operands must be two numbers or two strings, got %s and %s", a.KindName(), b.KindName()))
	}
}

func (v *VM) concatenate(aOffset, bOffset int) compiler.Value {
	combined := v.readString(aOffset) + v.readString(bOffset)
	if idx, ok := v.stringIndex[combined]; ok {
		return compiler.StringIndex(idx)
	}
	idx := len(v.strings)
	v.strings = append(v.strings, []byte(combined)...)
	v.strings = append(v.strings, 0)
	v.stringIndex[combined] = idx
	return compiler.StringIndex(idx)
}

func (v *VM) arithOp(op compiler.Opcode, line int) error {
	b, a := v.pop(), v.pop()
	if a.Kind != compiler.ValueNumber || b.Kind != compiler.ValueNumber {
		return v.runtimeErr(line, fmt.Sprintf("operands must be numbers, got %s and %s", a.KindName(), b.KindName()))
	}
	var result float64
	switch op {
	case compiler.OP_SUBTRACT:
		result = a.Number - b.Number
	case compiler.OP_MULTIPLY:
		result = a.Number * b.Number
	case compiler.OP_DIVIDE:
		result = a.Number / b.Number
	}
	v.push(compiler.Number(result))
	return nil
}

// moduloOp truncates both operands toward zero to 64-bit signed integers
// before applying Go's %, per spec.md §9's resolution of the OP_MODULO
// Open Question (grounded on vm.cpp's "long" cast). NaN/±Inf operands and
// modulo-by-zero are rejected rather than truncated or left to panic.
func (v *VM) moduloOp(line int) error {
	b, a := v.pop(), v.pop()
	if a.Kind != compiler.ValueNumber || b.Kind != compiler.ValueNumber {
		return v.runtimeErr(line, fmt.Sprintf("operands must be numbers, got %s and %s", a.KindName(), b.KindName()))
	}
	result, err := truncatingModulo(a.Number, b.Number, line)
	if err != nil {
		return err
	}
	v.push(compiler.Number(result))
	return nil
}

func truncatingModulo(a, b float64, line int) (float64, error) {
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return 0, RuntimeError{Message: "modulo operands must be finite", Line: line}
	}
	bi := int64(b)
	if bi == 0 {
		return 0, RuntimeError{Message: "modulo by zero", Line: line}
	}
	return float64(int64(a) % bi), nil
}

// compoundArithOp implements *_ASSIGN (spec.md §4.1): it mutates
// stack[slot] in place using peek(0) as the RHS and leaves the RHS on top
// of the stack uncollapsed — statement-level compiler lowering is
// responsible for the follow-up POP (spec.md §4.2, §9).
func (v *VM) compoundArithOp(op compiler.Opcode, slot int, line int) error {
	current := v.stack[slot]
	rhs := v.peek(0)
	if current.Kind != compiler.ValueNumber && !(op == compiler.OP_ADD_ASSIGN && current.Kind == compiler.ValueString) {
		return v.runtimeErr(line, fmt.Sprintf("operand must be a number, got %s", current.KindName()))
	}
	if current.Kind == compiler.ValueString {
		if rhs.Kind != compiler.ValueString {
			return v.runtimeErr(line, fmt.Sprintf("operands must be two numbers or two strings, got %s and %s", current.KindName(), rhs.KindName()))
		}
		v.stack[slot] = v.concatenate(current.StrIndex, rhs.StrIndex)
		return nil
	}
	if rhs.Kind != compiler.ValueNumber {
		return v.runtimeErr(line, fmt.Sprintf("operands must be numbers, got %s and %s", current.KindName(), rhs.KindName()))
	}
	var result float64
	switch op {
	case compiler.OP_ADD_ASSIGN:
		result = current.Number + rhs.Number
	case compiler.OP_SUBTRACT_ASSIGN:
		result = current.Number - rhs.Number
	case compiler.OP_MULTIPLY_ASSIGN:
		result = current.Number * rhs.Number
	case compiler.OP_DIVIDE_ASSIGN:
		result = current.Number / rhs.Number
	}
	v.stack[slot] = compiler.Number(result)
	return nil
}

func (v *VM) compoundModuloOp(slot int, line int) error {
	current := v.stack[slot]
	rhs := v.peek(0)
	if current.Kind != compiler.ValueNumber || rhs.Kind != compiler.ValueNumber {
		return v.runtimeErr(line, fmt.Sprintf("operands must be numbers, got %s and %s", current.KindName(), rhs.KindName()))
	}
	result, err := truncatingModulo(current.Number, rhs.Number, line)
	if err != nil {
		return err
	}
	v.stack[slot] = compiler.Number(result)
	return nil
}

func valuesEqual(a, b compiler.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case compiler.ValueNil:
		return true
	case compiler.ValueBool:
		return a.Bool == b.Bool
	case compiler.ValueNumber:
		return a.Number == b.Number
	case compiler.ValueString:
		return a.StrIndex == b.StrIndex
	case compiler.ValueFunction:
		return a.FnKind == b.FnKind && a.FnIndex == b.FnIndex
	default:
		return false
	}
}

func isFalsey(v compiler.Value) bool {
	return v.Kind == compiler.ValueNil || (v.Kind == compiler.ValueBool && !v.Bool)
}

// --- stack & frame plumbing ---

func (v *VM) push(value compiler.Value) { v.stack = append(v.stack, value) }

func (v *VM) pop() compiler.Value {
	value := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return value
}

func (v *VM) peek(distance int) compiler.Value {
	return v.stack[len(v.stack)-1-distance]
}

func (v *VM) readByte(frame *CallFrame, chunk *compiler.Chunk) byte {
	b := chunk.Code[frame.IP]
	frame.IP++
	return b
}

// readShort decodes a big-endian 16-bit jump offset (spec.md §4.1: jump
// offsets are big-endian, unlike the little-endian persisted file format).
func (v *VM) readShort(frame *CallFrame, chunk *compiler.Chunk) uint16 {
	hi := v.readByte(frame, chunk)
	lo := v.readByte(frame, chunk)
	return uint16(hi)<<8 | uint16(lo)
}

func (v *VM) readString(offset int) string {
	end := offset
	for end < len(v.strings) && v.strings[end] != 0 {
		end++
	}
	return string(v.strings[offset:end])
}

func (v *VM) print(value compiler.Value) {
	line := v.format(value)
	if v.out != nil {
		v.out(line)
		return
	}
	fmt.Println(line)
}

func (v *VM) format(value compiler.Value) string {
	switch value.Kind {
	case compiler.ValueNil:
		return "nil"
	case compiler.ValueBool:
		if value.Bool {
			return "true"
		}
		return "false"
	case compiler.ValueNumber:
		return formatNumber(value.Number)
	case compiler.ValueString:
		return v.readString(value.StrIndex)
	case compiler.ValueFunction:
		if value.FnKind == compiler.FunctionUser {
			return fmt.Sprintf("<fn %s>", v.program.Functions[value.FnIndex].Name)
		}
		return fmt.Sprintf("<native fn %s>", v.program.Natives[value.FnIndex].Name)
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && !math.IsInf(n, 0) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

func (v *VM) runtimeErr(line int, message string) error {
	return RuntimeError{Message: message, Line: line}
}

package compiler

import "fmt"

// ValueKind tags the variant held by a Value.
type ValueKind byte

const (
	ValueNil ValueKind = iota
	ValueBool
	ValueNumber
	ValueString
	ValueFunction
)

// FunctionKind distinguishes a user-defined function from a native one
// inside a FunctionIndex value, since the two live in separate tables.
type FunctionKind byte

const (
	FunctionUser FunctionKind = iota
	FunctionNative
)

// Value is the tagged union every constant, local, and stack slot holds
// at runtime. It mirrors the original's variant (bool/double/FunctionIndex
// /Nil/StringIndex) field for field: a string is never stored inline, only
// as an offset into the VM's string pool, and a function is never stored
// inline, only as an index plus a kind tag into the user/native tables.
type Value struct {
	Kind ValueKind

	Bool     bool
	Number   float64
	StrIndex int

	FnIndex int
	FnKind  FunctionKind
}

func Nil() Value                 { return Value{Kind: ValueNil} }
func Bool(b bool) Value          { return Value{Kind: ValueBool, Bool: b} }
func Number(n float64) Value     { return Value{Kind: ValueNumber, Number: n} }
func StringIndex(i int) Value    { return Value{Kind: ValueString, StrIndex: i} }
func UserFunctionIndex(i int) Value   { return Value{Kind: ValueFunction, FnIndex: i, FnKind: FunctionUser} }
func NativeFunctionIndex(i int) Value { return Value{Kind: ValueFunction, FnIndex: i, FnKind: FunctionNative} }

func (v Value) IsNil() bool  { return v.Kind == ValueNil }
func (v Value) IsTruthy() bool {
	switch v.Kind {
	case ValueNil:
		return false
	case ValueBool:
		return v.Bool
	default:
		return true
	}
}

// KindName returns the human-readable name used in runtime error messages.
func (v Value) KindName() string {
	switch v.Kind {
	case ValueNil:
		return "nil"
	case ValueBool:
		return "bool"
	case ValueNumber:
		return "number"
	case ValueString:
		return "string"
	case ValueFunction:
		return "function"
	default:
		return "unknown"
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueNil:
		return "nil"
	case ValueBool:
		return fmt.Sprintf("%t", v.Bool)
	case ValueNumber:
		return formatNumber(v.Number)
	case ValueString:
		return fmt.Sprintf("<string @%d>", v.StrIndex)
	case ValueFunction:
		return fmt.Sprintf("<function #%d>", v.FnIndex)
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

package compiler

import "time"

// DefaultNatives returns the fixed native function table every indigo
// program links against. The compiler resolves calls against this table
// by name at compile time (spec.md §4.2); the VM only ever sees an index.
func DefaultNatives() []NativeFunction {
	return []NativeFunction{
		{
			Name:  "clock",
			Arity: 0,
			Call: func(args []Value) Value {
				return Number(float64(time.Now().UnixNano()) / float64(time.Second))
			},
		},
	}
}

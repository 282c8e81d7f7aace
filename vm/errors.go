package vm

import "fmt"

// RuntimeError is a failure surfaced while interpreting bytecode: a type
// mismatch in an arithmetic/compare/negate operation, a mixed-kind ADD, or
// a malformed opcode (spec.md §7.4). It terminates the run; there is no
// catch mechanism (spec.md §1's Non-goals).
type RuntimeError struct {
	Message string
	Line    int
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("💥 RuntimeError [line %d]: %s", e.Line, e.Message)
}

package compiler

import "fmt"

// CompileError is a semantic error: a well-formed parse tree that the
// compiler cannot lower, e.g. an undeclared variable or an arity
// mismatch (spec.md §7.3).
type CompileError struct {
	Message string
	Line    int
}

func (e CompileError) Error() string {
	return fmt.Sprintf("💥 CompileError [line %d]: %s", e.Line, e.Message)
}

// DeveloperError marks an invariant violation in the compiler itself
// rather than a fault in the source program, mirroring the teacher's
// distinction between user-facing and internal errors.
type DeveloperError struct {
	Message string
}

func (e DeveloperError) Error() string {
	return fmt.Sprintf("🤖 DeveloperError: %s", e.Message)
}

package compiler

// LocalKind distinguishes what a Local slot actually holds, so the
// compiler can tell a plain variable apart from a resolved function
// reference when compiling a call. The original resolves a function by
// mutating the last declared local's slot in place (compiler.cpp,
// resolve_variable); this compiler instead never records a bare function
// reference in the locals list at all (it is an expression temporary), and
// only a let binding whose initializer is a function carries the function
// kind and index on its own Local, so a plain variable local is never
// mutated out from under a program that merely shadows it.
type LocalKind byte

const (
	LocalUninitialized LocalKind = iota
	LocalVariable
	LocalUserFunction
	LocalNativeFunction
)

// Local is the compile-time mirror of one slot on the VM's operand stack.
// It must stay in exact lockstep with the real stack: every push the
// compiler emits that should be addressable by name gets a matching Local,
// and every pop removes the matching entry.
type Local struct {
	Name        string
	ScopeDepth  int
	StackOffset int
	Kind        LocalKind
	FnIndex     int // valid when Kind is LocalUserFunction or LocalNativeFunction
}

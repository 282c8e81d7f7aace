package vm

// CallFrame is a single activation of a user function: which function's
// chunk is executing, where within it, and where its locals begin in the
// VM's value stack (spec.md §3's runtime Call frame). Frame 0 always
// belongs to the implicit top-level script function, base 0.
type CallFrame struct {
	FunctionIndex int
	IP            int
	Base          int
}

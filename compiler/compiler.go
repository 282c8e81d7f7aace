// Package compiler lowers an AST (package ast) to bytecode: a Program of
// Chunks, a constant pool, and an interned string pool (spec.md §4.2).
// Compiler implements ast.ExpressionVisitor and ast.StmtVisitor; walking
// the tree has the side effect of appending instructions to whichever
// function's Chunk is currently selected. Accept's return value is never
// used by this visitor - it exists purely for the recursive descent into
// child nodes.
package compiler

import (
	"fmt"
	"indigo/ast"
	"indigo/token"
)

const maxConstants = 256
const maxLocals = 256

// Compiler walks an AST and produces a Program. It keeps a virtual mirror
// of the VM's operand stack (localsStack, one frame per function) so that
// GET_LOCAL/SET_LOCAL offsets resolved at compile time line up exactly
// with where the VM will find values at runtime.
type Compiler struct {
	functions []UserFunction
	natives   []NativeFunction
	currentFn int

	localsStack [][]Local
	scopeDepth  int

	constants     []Value
	constantIndex map[Value]int
	strings       []byte
	stringIndex   map[string]int

	line   int
	errors []error
}

// New creates a Compiler linked against the given native function table.
// The table is fixed for the lifetime of the Compiler, matching the
// original's FFI being assembled once before any source is compiled.
func New(natives []NativeFunction) *Compiler {
	return &Compiler{
		functions:     []UserFunction{{Name: "", Arity: 0}},
		natives:       natives,
		localsStack:   [][]Local{nil},
		constantIndex: make(map[Value]int),
		stringIndex:   make(map[string]int),
	}
}

// Compile lowers a parsed program's top-level statements into a Program.
// It does not stop at the first semantic error: each top-level statement
// is compiled independently, and failures are collected so the caller can
// report every error from one run.
func (c *Compiler) Compile(stmts []ast.Stmt) (*Program, []error) {
	for _, stmt := range stmts {
		c.compileTopLevel(stmt)
	}
	c.emitReturn()

	if len(c.errors) > 0 {
		return nil, c.errors
	}
	return &Program{
		Functions: c.functions,
		Natives:   c.natives,
		Constants: c.constants,
		Strings:   c.strings,
	}, nil
}

func (c *Compiler) compileTopLevel(stmt ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(CompileError); ok {
				c.errors = append(c.errors, ce)
				return
			}
			panic(r)
		}
	}()
	stmt.Accept(c)
}

// --- statements ---

func (c *Compiler) VisitLet(stmt ast.Let) any {
	c.line = stmt.Name.Line
	c.declareLocal(stmt.Name)
	kind, fnIndex := c.compileLetInitializer(stmt.Initializer)
	c.markInitialized(kind, fnIndex)
	return nil
}

// compileLetInitializer compiles a let binding's initializer and reports
// whether the pushed value is a function (either a bare reference to a
// user/native function, or a read of a local already carrying one), so the
// newly declared local can be given that function's kind and index too.
// That's what lets the variable itself serve as a callee later (spec.md
// §4.2's locals fallback) without re-deriving anything at runtime.
func (c *Compiler) compileLetInitializer(expr ast.Expression) (LocalKind, int) {
	if v, ok := expr.(ast.Variable); ok {
		offset, isLocal, fnKind, fnIndex := c.resolveVariable(v.Name)
		if isLocal {
			c.emitOperand(OP_GET_LOCAL, offset)
		}
		if fnKind == LocalUserFunction || fnKind == LocalNativeFunction {
			return fnKind, fnIndex
		}
		return LocalVariable, 0
	}
	expr.Accept(c)
	return LocalVariable, 0
}

func (c *Compiler) VisitFunStmt(stmt ast.FunStmt) any {
	c.line = stmt.Name.Line
	for _, fn := range c.functions {
		if fn.Name == stmt.Name.Lexeme {
			c.fail(stmt.Name.Line, fmt.Sprintf("function %q already declared", stmt.Name.Lexeme))
		}
	}

	index := len(c.functions)
	c.functions = append(c.functions, UserFunction{Name: stmt.Name.Lexeme, Arity: len(stmt.Parameters)})

	previousFn := c.currentFn
	c.currentFn = index
	c.pushLocals()

	for _, param := range stmt.Parameters {
		c.declareLocal(param)
		c.markInitialized(LocalVariable, 0)
	}

	body, ok := stmt.Body.(ast.Block)
	if !ok {
		panic(DeveloperError{"function body is not a block"})
	}
	for _, s := range body.Statements {
		s.Accept(c)
	}

	c.popLocals()
	c.emitReturn()
	c.currentFn = previousFn
	return nil
}

func (c *Compiler) VisitBlock(stmt ast.Block) any {
	c.beginScope()
	for _, s := range stmt.Statements {
		s.Accept(c)
	}
	c.endScope()
	return nil
}

func (c *Compiler) VisitExprStmt(stmt ast.ExprStmt) any {
	stmt.Expression.Accept(c)
	c.emitOp(OP_POP)
	return nil
}

func (c *Compiler) VisitIf(stmt ast.If) any {
	stmt.Condition.Accept(c)

	thenJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	stmt.Then.Accept(c)

	elseJump := c.emitJump(OP_JUMP)
	c.patchJump(thenJump)
	c.emitOp(OP_POP)

	if stmt.Else != nil {
		stmt.Else.Accept(c)
	}
	c.patchJump(elseJump)
	return nil
}

func (c *Compiler) VisitWhile(stmt ast.While) any {
	loopStart := len(c.chunk().Code)
	stmt.Condition.Accept(c)

	exitJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.emitOp(OP_POP)
	stmt.Body.Accept(c)
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(OP_POP)
	return nil
}

func (c *Compiler) VisitPrint(stmt ast.Print) any {
	stmt.Value.Accept(c)
	c.emitOp(OP_PRINT)
	return nil
}

func (c *Compiler) VisitReturn(stmt ast.Return) any {
	if stmt.Value != nil {
		stmt.Value.Accept(c)
	} else {
		c.emitOp(OP_NIL)
	}
	c.emitOp(OP_RETURN)
	return nil
}

// --- expressions ---

func (c *Compiler) VisitBinary(expr ast.Binary) any {
	expr.Left.Accept(c)
	expr.Right.Accept(c)
	c.line = expr.Operator.Line

	switch expr.Operator.Type {
	case token.PLUS:
		c.emitOp(OP_ADD)
	case token.MINUS:
		c.emitOp(OP_SUBTRACT)
	case token.STAR:
		c.emitOp(OP_MULTIPLY)
	case token.SLASH:
		c.emitOp(OP_DIVIDE)
	case token.PERCENT:
		c.emitOp(OP_MODULO)
	case token.EQUAL_EQUAL:
		c.emitOp(OP_EQUAL)
	case token.BANG_EQUAL:
		c.emitOp(OP_NOT_EQUAL)
	case token.LESS:
		c.emitOp(OP_LESS)
	case token.LESS_EQUAL:
		c.emitOp(OP_LESS_EQUAL)
	case token.GREATER:
		c.emitOp(OP_GREATER)
	case token.GREATER_EQUAL:
		c.emitOp(OP_GREATER_EQUAL)
	default:
		panic(DeveloperError{fmt.Sprintf("invalid binary operator %q", expr.Operator.Lexeme)})
	}
	return nil
}

func (c *Compiler) VisitUnary(expr ast.Unary) any {
	expr.Right.Accept(c)
	c.line = expr.Operator.Line

	switch expr.Operator.Type {
	case token.MINUS:
		c.emitOp(OP_NEGATE)
	case token.BANG:
		c.emitOp(OP_NOT)
	default:
		panic(DeveloperError{fmt.Sprintf("invalid unary operator %q", expr.Operator.Lexeme)})
	}
	return nil
}

func (c *Compiler) VisitLiteral(expr ast.Literal) any {
	switch v := expr.Value.(type) {
	case nil:
		c.emitOp(OP_NIL)
	case bool:
		if v {
			c.emitOp(OP_TRUE)
		} else {
			c.emitOp(OP_FALSE)
		}
	case float64:
		c.emitConstant(Number(v))
	case string:
		c.emitString(v)
	default:
		panic(DeveloperError{fmt.Sprintf("unrepresentable literal value %#v", v)})
	}
	return nil
}

func (c *Compiler) VisitVariable(expr ast.Variable) any {
	offset, isLocal, _, _ := c.resolveVariable(expr.Name)
	if isLocal {
		c.emitOperand(OP_GET_LOCAL, offset)
	}
	return nil
}

func (c *Compiler) VisitAssign(expr ast.Assign) any {
	offset := c.resolveAssignTarget(expr.Name)
	expr.Value.Accept(c)
	c.line = expr.Name.Line
	c.emitOperand(OP_SET_LOCAL, offset)
	return nil
}

func (c *Compiler) VisitCompoundAssign(expr ast.CompoundAssign) any {
	offset := c.resolveAssignTarget(expr.Name)
	expr.Value.Accept(c)
	c.line = expr.Operator.Line

	var op Opcode
	switch expr.Operator.Type {
	case token.PLUS_EQUAL:
		op = OP_ADD_ASSIGN
	case token.MINUS_EQUAL:
		op = OP_SUBTRACT_ASSIGN
	case token.STAR_EQUAL:
		op = OP_MULTIPLY_ASSIGN
	case token.SLASH_EQUAL:
		op = OP_DIVIDE_ASSIGN
	case token.PERCENT_EQUAL:
		op = OP_MODULO_ASSIGN
	default:
		panic(DeveloperError{fmt.Sprintf("invalid compound assignment operator %q", expr.Operator.Lexeme)})
	}
	c.emitOperand(op, offset)
	return nil
}

func (c *Compiler) VisitLogical(expr ast.Logical) any {
	expr.Left.Accept(c)
	c.line = expr.Operator.Line

	switch expr.Operator.Type {
	case token.OR:
		elseJump := c.emitJump(OP_JUMP_IF_FALSE)
		endJump := c.emitJump(OP_JUMP)
		c.patchJump(elseJump)
		c.emitOp(OP_POP)
		expr.Right.Accept(c)
		c.patchJump(endJump)
	case token.AND:
		endJump := c.emitJump(OP_JUMP_IF_FALSE)
		c.emitOp(OP_POP)
		expr.Right.Accept(c)
		c.patchJump(endJump)
	default:
		panic(DeveloperError{fmt.Sprintf("invalid logical operator %q", expr.Operator.Lexeme)})
	}
	return nil
}

func (c *Compiler) VisitCall(expr ast.Call) any {
	kind, fnIndex := c.resolveCallee(expr.Callee, len(expr.Arguments))
	for _, arg := range expr.Arguments {
		arg.Accept(c)
	}
	c.line = expr.Callee.Line

	switch kind {
	case LocalUserFunction:
		c.emitOperand(OP_CALL, byte(fnIndex))
	case LocalNativeFunction:
		c.emitOperand(OP_CALL_NATIVE, byte(fnIndex))
	}
	return nil
}

// --- name resolution ---

// resolveVariable resolves a read of a bare identifier for a value-producing
// use (spec.md §4.2). A plain local returns isLocal=true with its stack
// offset, so the caller emits GET_LOCAL; fnKind/fnIndex mirror that local's
// own Kind/FnIndex, in case the caller wants to propagate them (e.g. a let
// binding aliasing a local that already holds a function). A name that
// instead matches a user or native function emits the CONSTANT that pushes
// its value directly, as a pure expression temporary: it is never recorded
// in the locals shadow, since nothing declares a lasting stack slot for it,
// and doing so would leave the shadow permanently one entry ahead of the
// real stack (spec.md §9's "virtual stack mirror" warning). A caller that
// wants this temporary to persist (a let binding) must declare its own
// Local and copy fnKind/fnIndex onto it.
func (c *Compiler) resolveVariable(name token.Token) (offset byte, isLocal bool, fnKind LocalKind, fnIndex int) {
	locals := c.localsTop()
	for i := len(*locals) - 1; i >= 0; i-- {
		local := &(*locals)[i]
		if local.Name != name.Lexeme {
			continue
		}
		if local.ScopeDepth == -1 {
			c.fail(name.Line, fmt.Sprintf("cannot read local variable %q in its own initializer", name.Lexeme))
		}
		if local.Kind == LocalUninitialized {
			local.Kind = LocalVariable
		}
		return byte(local.StackOffset), true, local.Kind, local.FnIndex
	}

	for i := len(c.functions) - 1; i >= 0; i-- {
		if c.functions[i].Name == name.Lexeme {
			c.emitConstant(UserFunctionIndex(i))
			return 0, false, LocalUserFunction, i
		}
	}
	for i := len(c.natives) - 1; i >= 0; i-- {
		if c.natives[i].Name == name.Lexeme {
			c.emitConstant(NativeFunctionIndex(i))
			return 0, false, LocalNativeFunction, i
		}
	}

	c.fail(name.Line, fmt.Sprintf("undeclared variable %q", name.Lexeme))
	panic("unreachable")
}

// resolveAssignTarget resolves the left-hand side of "=" and the
// compound-assign operators. Unlike resolveVariable, it never falls back
// to a function lookup: assigning to a function name is not meaningful.
func (c *Compiler) resolveAssignTarget(name token.Token) byte {
	locals := c.localsTop()
	for i := len(*locals) - 1; i >= 0; i-- {
		local := (*locals)[i]
		if local.Name == name.Lexeme {
			return byte(local.StackOffset)
		}
	}
	c.fail(name.Line, fmt.Sprintf("undeclared variable %q", name.Lexeme))
	panic("unreachable")
}

// resolveCallee resolves the callee of a CALL/CALL_NATIVE (spec.md §4.2):
// the user-function table, then the native registry, then — as a fallback —
// a local holding a function value (e.g. "let f = add" followed by
// "f(1, 2)"), grounded on the original's resolve_function (compiler.cpp)
// falling back to locals in that same order.
func (c *Compiler) resolveCallee(name token.Token, argCount int) (LocalKind, int) {
	for i := len(c.functions) - 1; i >= 0; i-- {
		if c.functions[i].Name == name.Lexeme {
			if c.functions[i].Arity != argCount {
				c.fail(name.Line, fmt.Sprintf("function %q expects %d argument(s), got %d", name.Lexeme, c.functions[i].Arity, argCount))
			}
			return LocalUserFunction, i
		}
	}
	for i := len(c.natives) - 1; i >= 0; i-- {
		if c.natives[i].Name == name.Lexeme {
			if c.natives[i].Arity != argCount {
				c.fail(name.Line, fmt.Sprintf("native function %q expects %d argument(s), got %d", name.Lexeme, c.natives[i].Arity, argCount))
			}
			return LocalNativeFunction, i
		}
	}

	locals := c.localsTop()
	for i := len(*locals) - 1; i >= 0; i-- {
		local := (*locals)[i]
		if local.Name != name.Lexeme {
			continue
		}
		switch local.Kind {
		case LocalUserFunction:
			if c.functions[local.FnIndex].Arity != argCount {
				c.fail(name.Line, fmt.Sprintf("function %q expects %d argument(s), got %d", name.Lexeme, c.functions[local.FnIndex].Arity, argCount))
			}
			return LocalUserFunction, local.FnIndex
		case LocalNativeFunction:
			if c.natives[local.FnIndex].Arity != argCount {
				c.fail(name.Line, fmt.Sprintf("native function %q expects %d argument(s), got %d", name.Lexeme, c.natives[local.FnIndex].Arity, argCount))
			}
			return LocalNativeFunction, local.FnIndex
		}
		c.fail(name.Line, fmt.Sprintf("%q is not callable", name.Lexeme))
	}

	c.fail(name.Line, fmt.Sprintf("undeclared function %q", name.Lexeme))
	panic("unreachable")
}

// --- scope & locals ---

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	locals := c.localsTop()
	popCount := 0
	for len(*locals) > 0 && (*locals)[len(*locals)-1].ScopeDepth > c.scopeDepth {
		*locals = (*locals)[:len(*locals)-1]
		popCount++
	}
	if popCount > 0 {
		c.emitOperand(OP_POP_N, byte(popCount))
	}
}

func (c *Compiler) declareLocal(name token.Token) {
	locals := c.localsTop()
	for i := len(*locals) - 1; i >= 0; i-- {
		local := (*locals)[i]
		if local.ScopeDepth != -1 && local.ScopeDepth < c.scopeDepth {
			break
		}
		if local.Name == name.Lexeme {
			c.fail(name.Line, fmt.Sprintf("variable %q already declared in this scope", name.Lexeme))
		}
	}
	if len(*locals) >= maxLocals {
		c.fail(name.Line, "too many local variables in function")
	}
	*locals = append(*locals, Local{
		Name:        name.Lexeme,
		ScopeDepth:  -1,
		StackOffset: len(*locals),
		Kind:        LocalUninitialized,
	})
}

// markInitialized marks the most recently declared local as in-scope and
// readable. kind/fnIndex let a let binding whose initializer turned out to
// be a function reference carry that function's identity onto the local
// itself, so it can later serve as a callee via resolveCallee's locals
// fallback; plain variables pass LocalVariable, 0.
func (c *Compiler) markInitialized(kind LocalKind, fnIndex int) {
	locals := c.localsTop()
	local := &(*locals)[len(*locals)-1]
	local.ScopeDepth = c.scopeDepth
	if kind == LocalUserFunction || kind == LocalNativeFunction {
		local.Kind = kind
		local.FnIndex = fnIndex
	}
}

func (c *Compiler) localsTop() *[]Local {
	return &c.localsStack[len(c.localsStack)-1]
}

func (c *Compiler) pushLocals() {
	c.localsStack = append(c.localsStack, nil)
}

func (c *Compiler) popLocals() {
	c.localsStack = c.localsStack[:len(c.localsStack)-1]
}

// --- emit helpers ---

func (c *Compiler) chunk() *Chunk {
	return &c.functions[c.currentFn].Chunk
}

func (c *Compiler) emitByte(b byte) int {
	return c.chunk().write(b, c.line)
}

func (c *Compiler) emitOp(op Opcode) int {
	return c.emitByte(byte(op))
}

func (c *Compiler) emitOperand(op Opcode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitReturn() {
	c.emitOp(OP_NIL)
	c.emitOp(OP_RETURN)
}

func (c *Compiler) emitJump(op Opcode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > 0xffff {
		c.fail(c.line, "jump target too large")
	}
	code := c.chunk().Code
	code[offset] = byte(jump >> 8)
	code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(OP_LOOP)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.fail(c.line, "loop body too large")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

func (c *Compiler) emitConstant(v Value) {
	if v.Kind == ValueBool {
		if v.Bool {
			c.emitOp(OP_TRUE)
		} else {
			c.emitOp(OP_FALSE)
		}
		return
	}
	c.emitOperand(OP_CONSTANT, byte(c.makeConstant(v)))
}

func (c *Compiler) makeConstant(v Value) int {
	if idx, ok := c.constantIndex[v]; ok {
		return idx
	}
	if len(c.constants) >= maxConstants {
		c.fail(c.line, "too many constants in one program")
	}
	c.constants = append(c.constants, v)
	idx := len(c.constants) - 1
	c.constantIndex[v] = idx
	return idx
}

// emitString interns s in the string pool and emits STRING with its byte
// offset as a single-byte operand. spec.md §9's Open Question calls this
// out as a latent bug in the original (pool offsets routinely exceed 255
// while the operand that addresses them does not) and directs
// implementers to treat it as a hard limit: once the next distinct
// string's starting offset would not fit in a byte, compilation fails
// instead of silently wrapping or truncating.
func (c *Compiler) emitString(s string) {
	if idx, ok := c.stringIndex[s]; ok {
		c.emitOperand(OP_STRING, byte(idx))
		return
	}
	idx := len(c.strings)
	if idx > 0xff {
		c.fail(c.line, "string pool exceeds the 256-byte addressable range")
	}
	c.strings = append(c.strings, []byte(s)...)
	c.strings = append(c.strings, 0)
	c.stringIndex[s] = idx

	c.emitOperand(OP_STRING, byte(idx))
}

func (c *Compiler) fail(line int, message string) {
	panic(CompileError{Message: message, Line: line})
}

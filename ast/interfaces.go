// Package ast defines the statement and expression node shapes the parser
// produces and the compiler consumes (spec.md §6.1). Nodes follow the
// visitor pattern: each concrete type implements Accept, dispatching to the
// matching method on whichever Visitor is walking the tree. Per spec.md
// §9's design note, this is a sum type with unique top-down ownership —
// children are plain values, never shared references, so no cycles can
// arise.
package ast

// ExpressionVisitor operates on every Expression node kind.
type ExpressionVisitor interface {
	VisitBinary(expr Binary) any
	VisitUnary(expr Unary) any
	VisitLiteral(expr Literal) any
	VisitVariable(expr Variable) any
	VisitAssign(expr Assign) any
	VisitCompoundAssign(expr CompoundAssign) any
	VisitLogical(expr Logical) any
	VisitCall(expr Call) any
}

// StmtVisitor operates on every Stmt node kind.
type StmtVisitor interface {
	VisitLet(stmt Let) any
	VisitFunStmt(stmt FunStmt) any
	VisitBlock(stmt Block) any
	VisitExprStmt(stmt ExprStmt) any
	VisitIf(stmt If) any
	VisitWhile(stmt While) any
	VisitPrint(stmt Print) any
	VisitReturn(stmt Return) any
}

// Stmt is the base interface every statement node implements.
type Stmt interface {
	Accept(v StmtVisitor) any
}

// Expression is the base interface every expression node implements.
type Expression interface {
	Accept(v ExpressionVisitor) any
}

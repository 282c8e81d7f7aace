// Package parser implements a recursive-descent parser with precedence
// climbing for expressions (the teacher's Pratt-style parsing, flattened
// into explicit per-precedence methods). It turns the lexer's token stream
// into the ordered []ast.Stmt sequence the compiler consumes (spec.md
// §6.1). The grammar is documented in SPEC_FULL.md.
package parser

import (
	"indigo/ast"
	"indigo/token"
)

const maxParams = 255

// Parser consumes a token slice and produces statement nodes.
type Parser struct {
	tokens []token.Token
	pos    int
}

// New creates a Parser over a complete token stream (as produced by
// lexer.Scan, always ending in an EOF token).
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses every statement in the token stream. It does not abort on
// the first syntax error: each top-level statement is parsed in isolation,
// and a failure resynchronizes after the next NEWLINE or DEDENT so later errors in the
// same file are still reported.
func (p *Parser) Parse() ([]ast.Stmt, []error) {
	var stmts []ast.Stmt
	var errs []error

	for !p.isAtEnd() {
		stmt, err := p.parseDeclaration()
		if err != nil {
			errs = append(errs, err)
			p.synchronize()
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts, errs
}

func (p *Parser) parseDeclaration() (stmt ast.Stmt, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	return p.statement(), nil
}

func (p *Parser) statement() ast.Stmt {
	switch {
	case p.match(token.FUN):
		return p.funStmt()
	case p.match(token.LET):
		return p.letStmt()
	case p.match(token.IF):
		return p.ifStmt()
	case p.match(token.WHILE):
		return p.whileStmt()
	case p.match(token.PRINT):
		return p.printStmt()
	case p.match(token.RETURN):
		return p.returnStmt()
	case p.check(token.INDENT):
		return p.block()
	default:
		return p.exprStmt()
	}
}

func (p *Parser) funStmt() ast.Stmt {
	name := p.consume(token.IDENTIFIER, "expected function name")
	p.consume(token.LPAREN, "expected '(' after function name")

	var params []token.Token
	if !p.check(token.RPAREN) {
		for {
			if len(params) >= maxParams {
				p.errorAt(p.peek(), "too many parameters (max 255)")
			}
			params = append(params, p.consume(token.IDENTIFIER, "expected parameter name"))
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expected ')' after parameters")
	p.consume(token.NEWLINE, "expected newline after function signature")
	body := p.block()
	return ast.FunStmt{Name: name, Parameters: params, Body: body}
}

func (p *Parser) letStmt() ast.Stmt {
	name := p.consume(token.IDENTIFIER, "expected variable name")
	p.consume(token.EQUAL, "expected '=' after variable name")
	value := p.expression()
	p.consume(token.NEWLINE, "expected newline after variable declaration")
	return ast.Let{Name: name, Initializer: value}
}

func (p *Parser) ifStmt() ast.Stmt {
	condition := p.expression()
	p.consume(token.NEWLINE, "expected newline after if condition")
	thenBranch := p.block()

	var elseBranch ast.Stmt
	if p.match(token.ELSE) {
		p.consume(token.NEWLINE, "expected newline after 'else'")
		elseBranch = p.block()
	}
	return ast.If{Condition: condition, Then: thenBranch, Else: elseBranch}
}

func (p *Parser) whileStmt() ast.Stmt {
	condition := p.expression()
	p.consume(token.NEWLINE, "expected newline after while condition")
	body := p.block()
	return ast.While{Condition: condition, Body: body}
}

func (p *Parser) printStmt() ast.Stmt {
	value := p.expression()
	p.consume(token.NEWLINE, "expected newline after print statement")
	return ast.Print{Value: value}
}

func (p *Parser) returnStmt() ast.Stmt {
	var value ast.Expression
	if !p.check(token.NEWLINE) {
		value = p.expression()
	}
	p.consume(token.NEWLINE, "expected newline after return statement")
	return ast.Return{Value: value}
}

func (p *Parser) block() ast.Stmt {
	p.consume(token.INDENT, "expected an indented block")
	var stmts []ast.Stmt
	for !p.check(token.DEDENT) && !p.isAtEnd() {
		stmt, err := p.parseDeclaration()
		if err != nil {
			panic(err)
		}
		stmts = append(stmts, stmt)
	}
	p.consume(token.DEDENT, "expected end of indented block")
	return ast.Block{Statements: stmts}
}

func (p *Parser) exprStmt() ast.Stmt {
	expr := p.expression()
	p.consume(token.NEWLINE, "expected newline after expression")
	return ast.ExprStmt{Expression: expr}
}

// --- expressions, precedence climbing lowest to highest ---

func (p *Parser) expression() ast.Expression {
	return p.assignment()
}

func (p *Parser) assignment() ast.Expression {
	expr := p.logicOr()

	if p.match(token.EQUAL, token.PLUS_EQUAL, token.MINUS_EQUAL, token.STAR_EQUAL, token.SLASH_EQUAL, token.PERCENT_EQUAL) {
		op := p.previous()
		variable, ok := expr.(ast.Variable)
		if !ok {
			p.errorAt(op, "invalid assignment target")
		}
		value := p.assignment()
		if op.Type == token.EQUAL {
			return ast.Assign{Name: variable.Name, Value: value}
		}
		return ast.CompoundAssign{Name: variable.Name, Operator: op, Value: value}
	}
	return expr
}

func (p *Parser) logicOr() ast.Expression {
	expr := p.logicAnd()
	for p.match(token.OR) {
		op := p.previous()
		right := p.logicAnd()
		expr = ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) logicAnd() ast.Expression {
	expr := p.equality()
	for p.match(token.AND) {
		op := p.previous()
		right := p.equality()
		expr = ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) equality() ast.Expression {
	expr := p.comparison()
	for p.match(token.EQUAL_EQUAL, token.BANG_EQUAL) {
		op := p.previous()
		right := p.comparison()
		expr = ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) comparison() ast.Expression {
	expr := p.term()
	for p.match(token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL) {
		op := p.previous()
		right := p.term()
		expr = ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) term() ast.Expression {
	expr := p.factor()
	for p.match(token.PLUS, token.MINUS) {
		op := p.previous()
		right := p.factor()
		expr = ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) factor() ast.Expression {
	expr := p.unary()
	for p.match(token.STAR, token.SLASH, token.PERCENT) {
		op := p.previous()
		right := p.unary()
		expr = ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) unary() ast.Expression {
	if p.match(token.BANG, token.MINUS) {
		op := p.previous()
		right := p.unary()
		return ast.Unary{Operator: op, Right: right}
	}
	return p.call()
}

func (p *Parser) call() ast.Expression {
	expr := p.primary()
	for p.match(token.LPAREN) {
		variable, ok := expr.(ast.Variable)
		if !ok {
			p.errorAt(p.previous(), "can only call a named function")
		}
		var args []ast.Expression
		if !p.check(token.RPAREN) {
			for {
				if len(args) >= maxParams {
					p.errorAt(p.peek(), "too many arguments (max 255)")
				}
				args = append(args, p.logicOr())
				if !p.match(token.COMMA) {
					break
				}
			}
		}
		p.consume(token.RPAREN, "expected ')' after arguments")
		expr = ast.Call{Callee: variable.Name, Arguments: args}
	}
	return expr
}

func (p *Parser) primary() ast.Expression {
	switch {
	case p.match(token.NUMBER):
		return ast.Literal{Value: p.previous().Literal}
	case p.match(token.STRING):
		return ast.Literal{Value: p.previous().Literal}
	case p.match(token.TRUE):
		return ast.Literal{Value: true}
	case p.match(token.FALSE):
		return ast.Literal{Value: false}
	case p.match(token.NIL):
		return ast.Literal{Value: nil}
	case p.match(token.IDENTIFIER):
		return ast.Variable{Name: p.previous()}
	case p.match(token.LPAREN):
		expr := p.expression()
		p.consume(token.RPAREN, "expected ')' after expression")
		return expr
	}
	p.errorAt(p.peek(), "expected expression")
	panic("unreachable")
}

// --- token stream primitives ---

func (p *Parser) match(types ...token.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) check(t token.TokenType) bool {
	if p.isAtEnd() {
		return t == token.EOF
	}
	return p.peek().Type == t
}

func (p *Parser) advance() token.Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == token.EOF
}

func (p *Parser) peek() token.Token {
	return p.tokens[p.pos]
}

func (p *Parser) previous() token.Token {
	return p.tokens[p.pos-1]
}

func (p *Parser) consume(t token.TokenType, message string) token.Token {
	if p.check(t) {
		return p.advance()
	}
	p.errorAt(p.peek(), message)
	panic("unreachable")
}

func (p *Parser) errorAt(tok token.Token, message string) {
	panic(ParseError{Message: message + ", got " + string(tok.Type), Line: tok.Line})
}

// synchronize discards tokens up to and including the next NEWLINE or
// DEDENT (or up to EOF) so parsing
// can resume with the following statement after a syntax error. spec.md §7
// notes panic-mode resynchronization is optional; it's included here purely
// to let `Parse` surface more than one error per run.
func (p *Parser) synchronize() {
	for !p.isAtEnd() {
		if p.peek().Type == token.NEWLINE || p.peek().Type == token.DEDENT {
			p.advance()
			return
		}
		p.advance()
	}
}

package nupy

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrSyntax is returned by Parse after a syntax diagnostic has been
// emitted. The diagnostic carries the detail; the error value only signals
// that nothing is executable.
var ErrSyntax = errors.New("nupy: syntax error")

// Parser validates a token stream against the nuPython grammar using
// recursive descent. It stops at the first syntax error: one diagnostic
// line is emitted and failure propagates up the rule chain with no
// resynchronization.
type Parser struct {
	diag io.Writer
}

// NewParser creates a parser writing diagnostics to diag (nil means
// stdout, matching the interactive front end).
func NewParser(diag io.Writer) *Parser {
	if diag == nil {
		diag = os.Stdout
	}
	return &Parser{diag: diag}
}

// Parse tokenizes the entire input, validates it against the grammar and,
// on success, returns a queue spanning the whole program including its
// trailing EOS token; ownership transfers to the caller for execution.
// On failure exactly one diagnostic has been emitted and ErrSyntax is
// returned; no partial result is usable.
//
// Internally the full token stream is materialized first, then duplicated:
// the grammar drains the original destructively and the untouched
// duplicate is what the caller receives.
func (p *Parser) Parse(r io.Reader) (*TokenQueue, error) {
	sc := NewScanner(r, p.diag)
	sc.Init()

	tokens := NewTokenQueue()
	for {
		tok, value := sc.NextToken()
		tokens.Enqueue(tok, value)
		if tok.Type == TOKEN_EOS {
			break
		}
	}

	duplicate := tokens.Duplicate()

	ok := p.program(tokens)
	tokens.Destroy()

	if !ok {
		duplicate.Destroy()
		return nil, ErrSyntax
	}
	return duplicate, nil
}

// errorMsg emits the single syntax diagnostic for a failed rule.
func (p *Parser) errorMsg(expecting, found string, tok Token) {
	fmt.Fprintf(p.diag, "**SYNTAX ERROR @ (%d,%d): expecting %s, found '%s'\n",
		tok.Line, tok.Col, expecting, found)
}

// match consumes the head token if its type equals expected and returns
// true. Otherwise it emits "expecting <label>, found ..." and returns
// false without consuming.
func (p *Parser) match(tokens *TokenQueue, expected TokenType, label string) bool {
	tok, value := tokens.PeekFirst()
	if tok.Type != expected {
		p.errorMsg(label, value, tok)
		return false
	}
	tokens.Dequeue()
	return true
}

// stmtKind tags the statement selected by the head of the queue. It is the
// single source of truth consumed by both the start-of-statement predicate
// and the statement dispatcher, so the two cannot disagree.
type stmtKind int

const (
	stmtNone stmtKind = iota // head does not start a statement
	stmtAssignment
	stmtCall
	stmtIfThenElse
	stmtWhileLoop
	stmtPass
	stmtEmpty
)

// classifyStmt decides which statement the next tokens start, using one
// token of lookahead for the kind plus a second to split assignment
// (IDENT '=' / '*' IDENT) from call (IDENT '(').
func classifyStmt(tokens *TokenQueue) stmtKind {
	first, _ := tokens.PeekFirst()
	second, _ := tokens.PeekSecond()

	switch first.Type {
	case TOKEN_IDENTIFIER:
		if second.Type == TOKEN_LEFT_PAREN {
			return stmtCall
		}
		// anything else is taken as an assignment so the '=' match can
		// report the precise expectation
		return stmtAssignment
	case TOKEN_ASTERISK:
		if second.Type == TOKEN_IDENTIFIER {
			return stmtAssignment
		}
		return stmtNone
	case TOKEN_KEYW_IF:
		return stmtIfThenElse
	case TOKEN_KEYW_WHILE:
		return stmtWhileLoop
	case TOKEN_KEYW_PASS:
		return stmtPass
	case TOKEN_EOLN:
		return stmtEmpty
	default:
		return stmtNone
	}
}

// <program> ::= <stmts> EOS
func (p *Parser) program(tokens *TokenQueue) bool {
	if !p.stmts(tokens) {
		return false
	}
	return p.match(tokens, TOKEN_EOS, "$")
}

// <stmts> ::= <stmt> [<stmts>]
func (p *Parser) stmts(tokens *TokenQueue) bool {
	if !p.stmt(tokens) {
		return false
	}
	if classifyStmt(tokens) != stmtNone {
		return p.stmts(tokens)
	}
	return true
}

// <stmt> ::= <assignment> | <if_then_else> | <while_loop>
//          | <call_stmt> | <pass_stmt> | <empty_stmt>
func (p *Parser) stmt(tokens *TokenQueue) bool {
	kind := classifyStmt(tokens)
	if kind == stmtNone {
		tok, value := tokens.PeekFirst()
		p.errorMsg("start of a statement", value, tok)
		return false
	}

	switch kind {
	case stmtAssignment:
		return p.assignment(tokens)
	case stmtCall:
		return p.callStmt(tokens)
	case stmtIfThenElse:
		return p.ifThenElse(tokens)
	case stmtWhileLoop:
		return p.whileLoop(tokens)
	case stmtPass:
		return p.passStmt(tokens)
	case stmtEmpty:
		return p.emptyStmt(tokens)
	default:
		// classifyStmt accepted something the dispatcher does not know:
		// a grammar-implementation bug, not bad input
		fmt.Fprintln(p.diag, "**INTERNAL ERROR: unknown stmt (stmt)")
		return false
	}
}

// <assignment> ::= ['*'] IDENT '=' <value> EOLN
func (p *Parser) assignment(tokens *TokenQueue) bool {
	if tok, _ := tokens.PeekFirst(); tok.Type == TOKEN_ASTERISK {
		tokens.Dequeue()
	}
	if !p.match(tokens, TOKEN_IDENTIFIER, "identifier") {
		return false
	}
	if !p.match(tokens, TOKEN_ASSIGN, "=") {
		return false
	}
	if !p.value(tokens) {
		return false
	}
	return p.match(tokens, TOKEN_EOLN, "EOLN")
}

// <call_stmt> ::= <function_call> EOLN
func (p *Parser) callStmt(tokens *TokenQueue) bool {
	if !p.functionCall(tokens) {
		return false
	}
	return p.match(tokens, TOKEN_EOLN, "EOLN")
}

// <function_call> ::= IDENT '(' [<element>] ')'
func (p *Parser) functionCall(tokens *TokenQueue) bool {
	if !p.match(tokens, TOKEN_IDENTIFIER, "identifier") {
		return false
	}
	if !p.match(tokens, TOKEN_LEFT_PAREN, "(") {
		return false
	}
	if tok, _ := tokens.PeekFirst(); isElementStart(tok.Type) {
		if !p.element(tokens) {
			return false
		}
	}
	return p.match(tokens, TOKEN_RIGHT_PAREN, ")")
}

// <if_then_else> ::= if <expr> ':' EOLN <body> [<else>]
func (p *Parser) ifThenElse(tokens *TokenQueue) bool {
	if !p.match(tokens, TOKEN_KEYW_IF, "if") {
		return false
	}
	if !p.expr(tokens) {
		return false
	}
	if !p.match(tokens, TOKEN_COLON, ":") {
		return false
	}
	if !p.match(tokens, TOKEN_EOLN, "EOLN") {
		return false
	}
	if !p.body(tokens) {
		return false
	}
	// the <else> chain is optional
	if tok, _ := tokens.PeekFirst(); tok.Type == TOKEN_KEYW_ELIF || tok.Type == TOKEN_KEYW_ELSE {
		return p.elseChain(tokens)
	}
	return true
}

// <else> ::= elif <expr> ':' EOLN <body> [<else>]
//          | else ':' EOLN <body>
func (p *Parser) elseChain(tokens *TokenQueue) bool {
	if tok, _ := tokens.PeekFirst(); tok.Type == TOKEN_KEYW_ELIF {
		tokens.Dequeue()
		if !p.expr(tokens) {
			return false
		}
		if !p.match(tokens, TOKEN_COLON, ":") {
			return false
		}
		if !p.match(tokens, TOKEN_EOLN, "EOLN") {
			return false
		}
		if !p.body(tokens) {
			return false
		}
		if next, _ := tokens.PeekFirst(); next.Type == TOKEN_KEYW_ELIF || next.Type == TOKEN_KEYW_ELSE {
			return p.elseChain(tokens)
		}
		return true
	}

	if !p.match(tokens, TOKEN_KEYW_ELSE, "else") {
		return false
	}
	if !p.match(tokens, TOKEN_COLON, ":") {
		return false
	}
	if !p.match(tokens, TOKEN_EOLN, "EOLN") {
		return false
	}
	return p.body(tokens)
}

// <while_loop> ::= while <expr> ':' EOLN <body>
func (p *Parser) whileLoop(tokens *TokenQueue) bool {
	if !p.match(tokens, TOKEN_KEYW_WHILE, "while") {
		return false
	}
	if !p.expr(tokens) {
		return false
	}
	if !p.match(tokens, TOKEN_COLON, ":") {
		return false
	}
	if !p.match(tokens, TOKEN_EOLN, "EOLN") {
		return false
	}
	return p.body(tokens)
}

// <body> ::= '{' EOLN <stmts> '}' EOLN
func (p *Parser) body(tokens *TokenQueue) bool {
	if !p.match(tokens, TOKEN_LEFT_BRACE, "{") {
		return false
	}
	if !p.match(tokens, TOKEN_EOLN, "EOLN") {
		return false
	}
	if !p.stmts(tokens) {
		return false
	}
	if !p.match(tokens, TOKEN_RIGHT_BRACE, "}") {
		return false
	}
	return p.match(tokens, TOKEN_EOLN, "EOLN")
}

// <pass_stmt> ::= pass EOLN
func (p *Parser) passStmt(tokens *TokenQueue) bool {
	if !p.match(tokens, TOKEN_KEYW_PASS, "pass") {
		return false
	}
	return p.match(tokens, TOKEN_EOLN, "EOLN")
}

// <empty_stmt> ::= EOLN
func (p *Parser) emptyStmt(tokens *TokenQueue) bool {
	return p.match(tokens, TOKEN_EOLN, "EOLN")
}

// <value> ::= <function_call> | <expr>
func (p *Parser) value(tokens *TokenQueue) bool {
	first, _ := tokens.PeekFirst()
	second, _ := tokens.PeekSecond()
	if first.Type == TOKEN_IDENTIFIER && second.Type == TOKEN_LEFT_PAREN {
		return p.functionCall(tokens)
	}
	return p.expr(tokens)
}

// <expr> ::= <unary_expr> [<op> <unary_expr>]
//
// The expression grammar is flat: at most one binary operator, no
// precedence, no parenthesized sub-expressions.
func (p *Parser) expr(tokens *TokenQueue) bool {
	if !p.unaryExpr(tokens) {
		return false
	}
	if tok, _ := tokens.PeekFirst(); isBinaryOp(tok.Type) {
		tokens.Dequeue()
		return p.unaryExpr(tokens)
	}
	return true
}

// <unary_expr> ::= '*' IDENT | '&' IDENT
//                | ('+'|'-') (IDENT | INT_LITERAL | REAL_LITERAL)
//                | <element>
//
// A sign directly followed by a digit never reaches the PLUS/MINUS case:
// the scanner has already absorbed it into a signed literal.
func (p *Parser) unaryExpr(tokens *TokenQueue) bool {
	tok, _ := tokens.PeekFirst()
	switch tok.Type {
	case TOKEN_ASTERISK, TOKEN_AMPERSAND:
		tokens.Dequeue()
		return p.match(tokens, TOKEN_IDENTIFIER, "identifier")
	case TOKEN_PLUS, TOKEN_MINUS:
		tokens.Dequeue()
		next, value := tokens.PeekFirst()
		switch next.Type {
		case TOKEN_IDENTIFIER, TOKEN_INT_LITERAL, TOKEN_REAL_LITERAL:
			tokens.Dequeue()
			return true
		}
		p.errorMsg("identifier or numeric literal", value, next)
		return false
	default:
		return p.element(tokens)
	}
}

// <element> ::= IDENT | INT_LITERAL | REAL_LITERAL | STR_LITERAL
//             | True | False | None
func (p *Parser) element(tokens *TokenQueue) bool {
	tok, value := tokens.PeekFirst()
	if !isElementStart(tok.Type) {
		p.errorMsg("element", value, tok)
		return false
	}
	tokens.Dequeue()
	return true
}

func isElementStart(t TokenType) bool {
	switch t {
	case TOKEN_IDENTIFIER, TOKEN_INT_LITERAL, TOKEN_REAL_LITERAL,
		TOKEN_STR_LITERAL, TOKEN_KEYW_TRUE, TOKEN_KEYW_FALSE, TOKEN_KEYW_NONE:
		return true
	}
	return false
}

func isBinaryOp(t TokenType) bool {
	switch t {
	case TOKEN_PLUS, TOKEN_MINUS, TOKEN_ASTERISK, TOKEN_POWER,
		TOKEN_PERCENT, TOKEN_SLASH, TOKEN_EQUAL, TOKEN_NOT_EQUAL,
		TOKEN_LT, TOKEN_LTE, TOKEN_GT, TOKEN_GTE,
		TOKEN_KEYW_IS, TOKEN_KEYW_IN:
		return true
	}
	return false
}

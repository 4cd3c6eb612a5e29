// Package parser implements a recursive descent parser for dryfart
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/raymyers/dryfart/pkg/ast"
	"github.com/raymyers/dryfart/pkg/lexer"
	"github.com/raymyers/dryfart/pkg/value"
)

// ErrSyntax wraps the collected parse errors returned by Parse.
var ErrSyntax = errors.New("syntax error")

// Parser parses dryfart source code into an AST
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses src and returns ErrSyntax with every diagnostic on failure.
func Parse(src string) (*ast.Program, error) {
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrSyntax, strings.Join(errs, "; "))
	}
	return prog, nil
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s",
		p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.unexpected(fmt.Sprintf("expected %s", t))
	return false
}

func (p *Parser) unexpected(what string) {
	if p.curTokenIs(lexer.TokenIllegal) {
		p.addError(fmt.Sprintf("%s, got illegal token %q", what, p.curToken.Literal))
		return
	}
	p.addError(fmt.Sprintf("%s, got %s", what, p.curToken.Type))
}

// synchronize skips to just past the next statement terminator.
func (p *Parser) synchronize() {
	for !p.curTokenIs(lexer.TokenDot) && !p.curTokenIs(lexer.TokenEOF) {
		p.nextToken()
	}
	if p.curTokenIs(lexer.TokenDot) {
		p.nextToken()
	}
}

// ParseProgram parses statements up to EOF
func (p *Parser) ParseProgram() *ast.Program {
	body := p.parseStatements(func() bool { return false })
	if !p.curTokenIs(lexer.TokenEOF) {
		p.unexpected("expected end of input")
	}
	return &ast.Program{Body: body}
}

// parseStatements parses until EOF or until stop reports true.
func (p *Parser) parseStatements(stop func() bool) []ast.Stmt {
	var stmts []ast.Stmt
	for !p.curTokenIs(lexer.TokenEOF) && !stop() {
		before := len(p.errors)
		stmt := p.parseStatement()
		if len(p.errors) > before {
			p.synchronize()
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.curToken.Type {
	case lexer.TokenLBracket:
		return p.parseIf()
	case lexer.TokenAt:
		return p.parseLoop()
	case lexer.TokenBreak:
		return p.parseBreak()
	case lexer.TokenReturn:
		p.nextToken()
		expr := p.parseExpression()
		if expr == nil || !p.expect(lexer.TokenDot) {
			return nil
		}
		return ast.Return{Value: expr}
	case lexer.TokenExit:
		p.nextToken()
		if !p.expect(lexer.TokenDot) {
			return nil
		}
		return ast.Exit{}
	case lexer.TokenIdent, lexer.TokenHash:
		return p.parseSimpleStatement()
	default:
		p.unexpected("expected statement")
		return nil
	}
}

// parseSimpleStatement parses assignments and procedure calls.
func (p *Parser) parseSimpleStatement() ast.Stmt {
	target := p.parsePostfix()
	if target == nil {
		return nil
	}

	switch {
	case p.curTokenIs(lexer.TokenAssign):
		if !isAssignable(target) {
			p.addError("invalid assignment target")
			return nil
		}
		p.nextToken()
		val := p.parseExpression()
		if val == nil || !p.expect(lexer.TokenDot) {
			return nil
		}
		return ast.Assign{Target: target, Value: val}

	case isCompoundAssign(p.curToken.Type):
		if !isAssignable(target) {
			p.addError("invalid assignment target")
			return nil
		}
		op := compoundOps[p.curToken.Type]
		p.nextToken()
		val := p.parseExpression()
		if val == nil || !p.expect(lexer.TokenDot) {
			return nil
		}
		return ast.OpAssign{Target: target, Op: op, Value: val}
	}

	switch target.(type) {
	case ast.Call, ast.MethodCall:
		if !p.expect(lexer.TokenDot) {
			return nil
		}
		return ast.ProcCall{Call: target}
	}
	p.unexpected("expected assignment or call")
	return nil
}

func isAssignable(e ast.Expr) bool {
	switch e := e.(type) {
	case ast.Ident, ast.Field:
		return true
	case ast.Binary:
		return e.Op == ast.OpIndex
	}
	return false
}

var compoundOps = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokenPlusAssign:    ast.OpAdd,
	lexer.TokenMinusAssign:   ast.OpSub,
	lexer.TokenStarAssign:    ast.OpMul,
	lexer.TokenSlashAssign:   ast.OpDiv,
	lexer.TokenPercentAssign: ast.OpMod,
	lexer.TokenAndAssign:     ast.OpAnd,
	lexer.TokenOrAssign:      ast.OpOr,
	lexer.TokenXorAssign:     ast.OpXor,
}

func isCompoundAssign(t lexer.TokenType) bool {
	_, ok := compoundOps[t]
	return ok
}

type ifArm struct {
	cond ast.Expr // nil for the else arm
	body []ast.Stmt
}

// parseIf parses [ c1 => s | c2 => s | => s ]. into nested ifs.
func (p *Parser) parseIf() ast.Stmt {
	p.nextToken() // consume '['

	var arms []ifArm
	armEnd := func() bool {
		return p.curTokenIs(lexer.TokenPipe) || p.curTokenIs(lexer.TokenRBracket)
	}
	for {
		if len(arms) > 0 && arms[len(arms)-1].cond == nil {
			p.addError("else arm must be last")
			return nil
		}
		var cond ast.Expr
		if !p.curTokenIs(lexer.TokenArrow) {
			cond = p.parseExpression()
			if cond == nil {
				return nil
			}
		} else if len(arms) == 0 {
			p.addError("first arm needs a condition")
			return nil
		}
		if !p.expect(lexer.TokenArrow) {
			return nil
		}
		before := len(p.errors)
		body := p.parseStatements(armEnd)
		if len(p.errors) > before {
			return nil
		}
		arms = append(arms, ifArm{cond: cond, body: body})

		if p.curTokenIs(lexer.TokenPipe) {
			p.nextToken()
			continue
		}
		if !p.expect(lexer.TokenRBracket) {
			return nil
		}
		break
	}
	if !p.expect(lexer.TokenDot) {
		return nil
	}

	var stmt ast.If
	var rest []ast.Stmt
	for i := len(arms) - 1; i >= 0; i-- {
		arm := arms[i]
		if arm.cond == nil {
			rest = arm.body
			if rest == nil {
				rest = []ast.Stmt{}
			}
			continue
		}
		stmt = ast.If{Cond: arm.cond, Then: arm.body, Else: rest}
		rest = []ast.Stmt{stmt}
	}
	return stmt
}

// parseLoop parses "@ body ." and "@ pre (cond) post .".
func (p *Parser) parseLoop() ast.Stmt {
	p.nextToken() // consume '@'

	before := len(p.errors)
	pre := p.parseStatements(func() bool {
		return p.curTokenIs(lexer.TokenLParen) || p.curTokenIs(lexer.TokenDot)
	})
	if len(p.errors) > before {
		return nil
	}
	loop := ast.Loop{Pre: pre}
	if p.curTokenIs(lexer.TokenLParen) {
		p.nextToken()
		loop.Cond = p.parseExpression()
		if loop.Cond == nil || !p.expect(lexer.TokenRParen) {
			return nil
		}
		loop.Post = p.parseStatements(func() bool { return p.curTokenIs(lexer.TokenDot) })
		if len(p.errors) > before {
			return nil
		}
	}
	if !p.expect(lexer.TokenDot) {
		return nil
	}
	return loop
}

func (p *Parser) parseBreak() ast.Stmt {
	p.nextToken() // consume 'break'
	level := 1
	if p.curTokenIs(lexer.TokenInt) {
		n, err := strconv.Atoi(p.curToken.Literal)
		if err != nil || n < 1 {
			p.addError(fmt.Sprintf("invalid break level %s", p.curToken.Literal))
			return nil
		}
		level = n
		p.nextToken()
	}
	if !p.expect(lexer.TokenDot) {
		return nil
	}
	return ast.Break{Level: level}
}

func (p *Parser) parseExpression() ast.Expr {
	return p.parseCondOr()
}

func (p *Parser) parseCondOr() ast.Expr {
	left := p.parseCondAnd()
	for left != nil && p.curTokenIs(lexer.TokenOr) {
		p.nextToken()
		right := p.parseCondAnd()
		if right == nil {
			return nil
		}
		left = ast.Binary{Op: ast.OpCondOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseCondAnd() ast.Expr {
	left := p.parseComparison()
	for left != nil && p.curTokenIs(lexer.TokenAnd) {
		p.nextToken()
		right := p.parseComparison()
		if right == nil {
			return nil
		}
		left = ast.Binary{Op: ast.OpCondAnd, Left: left, Right: right}
	}
	return left
}

var cmpOps = map[lexer.TokenType]ast.CmpOp{
	lexer.TokenEq: ast.CmpEq,
	lexer.TokenNe: ast.CmpNe,
	lexer.TokenLt: ast.CmpLt,
	lexer.TokenLe: ast.CmpLe,
	lexer.TokenGt: ast.CmpGt,
	lexer.TokenGe: ast.CmpGe,
}

// parseComparison parses a comparison chain a op b op c ...
func (p *Parser) parseComparison() ast.Expr {
	head := p.parseBitOr()
	if head == nil {
		return nil
	}
	var rest []ast.CmpTerm
	for {
		op, ok := cmpOps[p.curToken.Type]
		if !ok {
			break
		}
		p.nextToken()
		term := p.parseBitOr()
		if term == nil {
			return nil
		}
		rest = append(rest, ast.CmpTerm{Op: op, Expr: term})
	}
	if len(rest) == 0 {
		return head
	}
	return ast.CmpChain{Head: head, Rest: rest}
}

func (p *Parser) parseBitOr() ast.Expr {
	left := p.parseBitAnd()
	for left != nil && (p.curTokenIs(lexer.TokenPipe) || p.curTokenIs(lexer.TokenCaret)) {
		op := ast.OpOr
		if p.curTokenIs(lexer.TokenCaret) {
			op = ast.OpXor
		}
		p.nextToken()
		right := p.parseBitAnd()
		if right == nil {
			return nil
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitAnd() ast.Expr {
	left := p.parseAdditive()
	for left != nil && p.curTokenIs(lexer.TokenAmp) {
		p.nextToken()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = ast.Binary{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for left != nil && (p.curTokenIs(lexer.TokenPlus) || p.curTokenIs(lexer.TokenMinus)) {
		op := ast.OpAdd
		if p.curTokenIs(lexer.TokenMinus) {
			op = ast.OpSub
		}
		p.nextToken()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for left != nil {
		var op ast.BinaryOp
		switch p.curToken.Type {
		case lexer.TokenStar:
			op = ast.OpMul
		case lexer.TokenSlash:
			op = ast.OpDiv
		case lexer.TokenPercent:
			op = ast.OpMod
		default:
			return left
		}
		p.nextToken()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	var op ast.UnaryOp
	switch p.curToken.Type {
	case lexer.TokenMinus:
		// A minus directly before a numeric literal is part of the literal.
		switch p.peekToken.Type {
		case lexer.TokenInt, lexer.TokenReal:
			p.nextToken()
			return p.parseNumber(true)
		}
		op = ast.OpNeg
	case lexer.TokenBang:
		op = ast.OpNot
	case lexer.TokenTilde:
		op = ast.OpInv
	default:
		return p.parsePostfix()
	}
	p.nextToken()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return ast.Unary{Op: op, Expr: operand}
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for expr != nil {
		switch p.curToken.Type {
		case lexer.TokenLParen:
			args, ok := p.parseArgs()
			if !ok {
				return nil
			}
			expr = ast.Call{Callee: expr, Args: args}
		case lexer.TokenLBracket:
			p.nextToken()
			idx := p.parseExpression()
			if idx == nil || !p.expect(lexer.TokenRBracket) {
				return nil
			}
			expr = ast.Binary{Op: ast.OpIndex, Left: expr, Right: idx}
		case lexer.TokenDollar:
			p.nextToken()
			if !p.curTokenIs(lexer.TokenIdent) {
				p.unexpected("expected field name")
				return nil
			}
			expr = ast.Field{Table: expr, Name: p.curToken.Literal}
			p.nextToken()
		case lexer.TokenColon:
			p.nextToken()
			if !p.curTokenIs(lexer.TokenIdent) {
				p.unexpected("expected method name")
				return nil
			}
			name := p.curToken.Literal
			p.nextToken()
			if !p.curTokenIs(lexer.TokenLParen) {
				p.unexpected("expected '(' after method name")
				return nil
			}
			args, ok := p.parseArgs()
			if !ok {
				return nil
			}
			expr = ast.MethodCall{Recv: expr, Name: name, Args: args}
		default:
			return expr
		}
	}
	return nil
}

// parseArgs parses a parenthesised, comma separated expression list.
func (p *Parser) parseArgs() ([]ast.Expr, bool) {
	p.nextToken() // consume '('
	args := []ast.Expr{}
	for !p.curTokenIs(lexer.TokenRParen) {
		arg := p.parseExpression()
		if arg == nil {
			return nil, false
		}
		args = append(args, arg)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	if !p.expect(lexer.TokenRParen) {
		return nil, false
	}
	return args, true
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.curToken
	switch tok.Type {
	case lexer.TokenInt, lexer.TokenReal:
		return p.parseNumber(false)
	case lexer.TokenNat:
		n, err := strconv.ParseUint(tok.Literal, 10, 32)
		if err != nil {
			p.addError(fmt.Sprintf("nat literal %sU out of range", tok.Literal))
			return nil
		}
		p.nextToken()
		return ast.Const{Value: value.Nat(n)}
	case lexer.TokenChar:
		p.nextToken()
		return ast.Const{Value: value.Char(tok.Literal[0])}
	case lexer.TokenString:
		p.nextToken()
		return ast.Const{Value: value.NewText(tok.Literal)}
	case lexer.TokenTrue, lexer.TokenFalse:
		p.nextToken()
		return ast.Const{Value: value.Bool(tok.Type == lexer.TokenTrue)}
	case lexer.TokenVoid:
		p.nextToken()
		return ast.Const{Value: value.Void{}}
	case lexer.TokenIdent:
		p.nextToken()
		return ast.Ident{Name: tok.Literal}
	case lexer.TokenHash:
		p.nextToken()
		return ast.SelfRef{}
	case lexer.TokenRecordRef:
		n, err := strconv.Atoi(tok.Literal)
		if err != nil {
			p.addError(fmt.Sprintf("invalid record reference $@%s", tok.Literal))
			return nil
		}
		p.nextToken()
		return ast.RecordRef{Depth: n}
	case lexer.TokenLParen:
		p.nextToken()
		expr := p.parseExpression()
		if expr == nil || !p.expect(lexer.TokenRParen) {
			return nil
		}
		return expr
	case lexer.TokenLBracket:
		return p.parseArrayLit()
	case lexer.TokenLBrace:
		return p.parseTableLit()
	case lexer.TokenNatTy, lexer.TokenIntTy, lexer.TokenRealTy:
		return p.parseCast()
	case lexer.TokenFunc, lexer.TokenProc:
		return p.parseSubr()
	}
	p.unexpected("expected expression")
	return nil
}

// parseNumber parses the Int or Real at curToken, negated when neg is set.
func (p *Parser) parseNumber(neg bool) ast.Expr {
	tok := p.curToken
	sign := ""
	if neg {
		sign = "-"
	}
	switch tok.Type {
	case lexer.TokenInt:
		n, err := strconv.ParseInt(sign+tok.Literal, 10, 32)
		if err != nil {
			p.addError(fmt.Sprintf("int literal %s%s out of range", sign, tok.Literal))
			return nil
		}
		p.nextToken()
		return ast.Const{Value: value.Int(n)}
	case lexer.TokenReal:
		f, err := strconv.ParseFloat(sign+tok.Literal, 32)
		if err != nil {
			p.addError(fmt.Sprintf("real literal %s%s out of range", sign, tok.Literal))
			return nil
		}
		p.nextToken()
		return ast.Const{Value: value.Real(f)}
	}
	p.unexpected("expected number")
	return nil
}

func (p *Parser) parseCast() ast.Expr {
	var to value.Type
	switch p.curToken.Type {
	case lexer.TokenNatTy:
		to = value.TNat
	case lexer.TokenIntTy:
		to = value.TInt
	default:
		to = value.TReal
	}
	p.nextToken()
	if !p.expect(lexer.TokenLParen) {
		return nil
	}
	expr := p.parseExpression()
	if expr == nil || !p.expect(lexer.TokenRParen) {
		return nil
	}
	return ast.Cast{To: to, Expr: expr}
}

func (p *Parser) parseArrayLit() ast.Expr {
	p.nextToken() // consume '['
	elems := []ast.Expr{}
	for !p.curTokenIs(lexer.TokenRBracket) {
		e := p.parseExpression()
		if e == nil {
			return nil
		}
		elems = append(elems, e)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	if !p.expect(lexer.TokenRBracket) {
		return nil
	}
	return ast.ArrayLit{Elems: elems}
}

// parseTableLit parses { f = e, g = e. } with ',' or '.' separators.
func (p *Parser) parseTableLit() ast.Expr {
	p.nextToken() // consume '{'
	fields := []ast.FieldInit{}
	for !p.curTokenIs(lexer.TokenRBrace) {
		if !p.curTokenIs(lexer.TokenIdent) {
			p.unexpected("expected field name")
			return nil
		}
		name := p.curToken.Literal
		p.nextToken()
		if !p.expect(lexer.TokenAssign) {
			return nil
		}
		val := p.parseExpression()
		if val == nil {
			return nil
		}
		fields = append(fields, ast.FieldInit{Name: name, Value: val})
		if !p.curTokenIs(lexer.TokenComma) && !p.curTokenIs(lexer.TokenDot) {
			break
		}
		p.nextToken()
	}
	if !p.expect(lexer.TokenRBrace) {
		return nil
	}
	return ast.TableLit{Fields: fields}
}

// parseSubr parses func(params; upvals) { body } and the proc form.
func (p *Parser) parseSubr() ast.Expr {
	subr := &ast.Subr{Line: p.curToken.Line, Proc: p.curTokenIs(lexer.TokenProc)}
	p.nextToken()
	if !p.expect(lexer.TokenLParen) {
		return nil
	}
	var ok bool
	if subr.Params, ok = p.parseNames(); !ok {
		return nil
	}
	if p.curTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
		if subr.Upvals, ok = p.parseNames(); !ok {
			return nil
		}
	}
	if !p.expect(lexer.TokenRParen) || !p.expect(lexer.TokenLBrace) {
		return nil
	}
	before := len(p.errors)
	subr.Body = p.parseStatements(func() bool { return p.curTokenIs(lexer.TokenRBrace) })
	if len(p.errors) > before || !p.expect(lexer.TokenRBrace) {
		return nil
	}
	if dup := firstDuplicate(append(append([]string{}, subr.Params...), subr.Upvals...)); dup != "" {
		p.addError(fmt.Sprintf("duplicate name %s in subroutine header", dup))
		return nil
	}
	return ast.SubrLit{Subr: subr}
}

func (p *Parser) parseNames() ([]string, bool) {
	var names []string
	for p.curTokenIs(lexer.TokenIdent) {
		names = append(names, p.curToken.Literal)
		p.nextToken()
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
		if !p.curTokenIs(lexer.TokenIdent) {
			p.unexpected("expected name")
			return nil, false
		}
	}
	return names, true
}

func firstDuplicate(names []string) string {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return n
		}
		seen[n] = true
	}
	return ""
}

// ParseExpression parses a single expression, for the REPL.
func (p *Parser) ParseExpression() ast.Expr {
	return p.parseExpression()
}

// AtEOF reports whether all input has been consumed.
func (p *Parser) AtEOF() bool {
	return p.curTokenIs(lexer.TokenEOF)
}

// Package parser implements the syntactic analyzer for the Quill
// programming language.
//
// The parser takes a stream of tokens from the lexer and constructs an
// Abstract Syntax Tree (AST) that represents the structure of the
// program. It implements a recursive-descent parser with Pratt parsing
// (precedence climbing) for expressions.
//
// Key features:
//   - Top-down parsing of statements and expressions
//   - Precedence-based expression parsing
//   - Error reporting for syntax errors
//   - Support for all language constructs (statements, expressions, literals, etc.)
//
// The main entry point is [New], which creates a new [Parser] instance,
// and [Parser.ParseProgram], which parses a complete Quill program and
// returns its AST.
package parser

import (
	"fmt"
	"strconv"

	"github.com/dr8co/quill/ast"
	"github.com/dr8co/quill/lexer"
	"github.com/dr8co/quill/token"
)

const (
	_ int = iota

	// Lowest is the lowest possible precedence for parsing expressions.
	Lowest

	// Assign is the precedence of `=`.
	Assign

	// LogicalOr is the precedence of `||`.
	LogicalOr

	// LogicalAnd is the precedence of `&&`.
	LogicalAnd

	// BitOr is the precedence of `|`.
	BitOr

	// BitAnd is the precedence of `&`.
	BitAnd

	// Equals is the precedence of `==`/`!=`.
	Equals

	// LessGreater is the precedence of `<`, `<=`, `>`, `>=`.
	LessGreater

	// Sum is the precedence of `+`/`-`.
	Sum

	// Product is the precedence of `*`, `/`, `%`.
	Product

	// Prefix is the precedence of unary `-x`, `!x`, `++x`, `--x`.
	Prefix

	// Call is the precedence of function calls.
	Call // myFunc(x)

	// Index is the precedence of array/hash indexing and postfix `++`/`--`.
	Index // array[index]
)

// precedences maps token types to their respective precedence levels.
var precedences = map[token.Type]int{
	token.Assign:   Assign,
	token.Or:       LogicalOr,
	token.And:      LogicalAnd,
	token.BitOr:    BitOr,
	token.BitAnd:   BitAnd,
	token.Eq:       Equals,
	token.NotEq:    Equals,
	token.Lt:       LessGreater,
	token.Lte:      LessGreater,
	token.Gt:       LessGreater,
	token.Gte:      LessGreater,
	token.Plus:     Sum,
	token.Minus:    Sum,
	token.Slash:    Product,
	token.Asterisk: Product,
	token.Percent:  Product,
	token.Lparen:   Call,
	token.Lbracket: Index,
	token.Incr:     Index,
	token.Decr:     Index,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser parses a token stream into a Quill [ast.Program].
type Parser struct {
	l      *lexer.Lexer
	errors []string

	currentToken token.Token
	peekToken    token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a new [Parser] with the given [lexer.Lexer].
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []string{},
	}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.Ident, p.parseIdentifier)
	p.registerPrefix(token.Int, p.parseIntLiteral)
	p.registerPrefix(token.Float, p.parseFloatLiteral)
	p.registerPrefix(token.Char, p.parseCharLiteral)
	p.registerPrefix(token.String, p.parseStrLiteral)
	p.registerPrefix(token.Shell, p.parseShellLiteral)
	p.registerPrefix(token.Raw, p.parseRawShellLiteral)
	p.registerPrefix(token.Bang, p.parsePrefixExpression)
	p.registerPrefix(token.Minus, p.parsePrefixExpression)
	p.registerPrefix(token.Incr, p.parsePrefixExpression)
	p.registerPrefix(token.Decr, p.parsePrefixExpression)
	p.registerPrefix(token.True, p.parseBoolLiteral)
	p.registerPrefix(token.False, p.parseBoolLiteral)
	p.registerPrefix(token.Noval, p.parseNovalLiteral)
	p.registerPrefix(token.Lparen, p.parseGroupedExpression)
	p.registerPrefix(token.Lambda, p.parseLambdaExpression)
	p.registerPrefix(token.Lbracket, p.parseArrayLiteral)
	p.registerPrefix(token.Lbrace, p.parseHashLiteral)
	p.registerPrefix(token.Thread, p.parseThreadOrAsyncCall)
	p.registerPrefix(token.Async, p.parseThreadOrAsyncCall)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	p.registerInfix(token.Plus, p.parseInfixExpression)
	p.registerInfix(token.Minus, p.parseInfixExpression)
	p.registerInfix(token.Slash, p.parseInfixExpression)
	p.registerInfix(token.Asterisk, p.parseInfixExpression)
	p.registerInfix(token.Percent, p.parseInfixExpression)
	p.registerInfix(token.BitOr, p.parseInfixExpression)
	p.registerInfix(token.BitAnd, p.parseInfixExpression)
	p.registerInfix(token.Or, p.parseInfixExpression)
	p.registerInfix(token.And, p.parseInfixExpression)
	p.registerInfix(token.Eq, p.parseInfixExpression)
	p.registerInfix(token.NotEq, p.parseInfixExpression)
	p.registerInfix(token.Lt, p.parseInfixExpression)
	p.registerInfix(token.Lte, p.parseInfixExpression)
	p.registerInfix(token.Gt, p.parseInfixExpression)
	p.registerInfix(token.Gte, p.parseInfixExpression)
	p.registerInfix(token.Lparen, p.parseCallExpression)
	p.registerInfix(token.Lbracket, p.parseIndexExpression)
	p.registerInfix(token.Assign, p.parseAssignExpression)
	p.registerInfix(token.Incr, p.parseSuffixExpression)
	p.registerInfix(token.Decr, p.parseSuffixExpression)

	// Read two tokens, so currentToken and peekToken are both set.
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

// Errors returns the list of errors encountered during parsing.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) peekError(t token.Type) {
	msg := fmt.Sprintf("line %d: expected next token to be %s, got %s instead",
		p.peekToken.Line, t, p.peekToken.Type)
	p.errors = append(p.errors, msg)
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return Lowest
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.currentToken.Type]; ok {
		return pr
	}
	return Lowest
}

func (p *Parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// ParseProgram parses a complete Quill program and returns its AST.
//
// Check [Parser.Errors] after calling this method to see if any parsing
// errors occurred.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for !p.currentTokenIs(token.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}
	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.currentToken.Type {
	case token.Semicolon:
		return &ast.EmptyStatement{Token: p.currentToken}
	case token.Break:
		return p.parseBreakStatement()
	case token.Continue:
		return p.parseContinueStatement()
	case token.Let:
		return p.parseVarStatement()
	case token.Const:
		return p.parseConstStatement()
	case token.Return:
		return p.parseReturnStatement()
	case token.Throw:
		return p.parseThrowStatement()
	case token.Try:
		return p.parseTryCatchStatement()
	case token.Function:
		return p.parseFunctionStatement()
	case token.For:
		return p.parseForOrForEachStatement()
	case token.While:
		return p.parseWhileStatement()
	case token.Assert:
		return p.parseAssertStatement()
	case token.If:
		return p.parseIfStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) currentTokenIs(t token.Type) bool { return p.currentToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool    { return p.peekToken.Type == t }

func (p *Parser) parseBreakStatement() *ast.BreakStatement {
	stmt := &ast.BreakStatement{Token: p.currentToken}
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseContinueStatement() *ast.ContinueStatement {
	stmt := &ast.ContinueStatement{Token: p.currentToken}
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseVarStatement() *ast.VarStatement {
	stmt := &ast.VarStatement{Token: p.currentToken}

	if !p.expectPeek(token.Ident) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}

	if !p.peekTokenIs(token.Assign) {
		if p.peekTokenIs(token.Semicolon) {
			p.nextToken()
		}
		return stmt
	}
	p.nextToken()
	p.nextToken()

	stmt.Value = p.parseExpression(Lowest)

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseConstStatement() *ast.ConstStatement {
	stmt := &ast.ConstStatement{Token: p.currentToken}

	if !p.expectPeek(token.Ident) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}

	if !p.expectPeek(token.Assign) {
		return nil
	}
	p.nextToken()

	stmt.Value = p.parseExpression(Lowest)

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseReturnStatement() *ast.ReturnStatement {
	stmt := &ast.ReturnStatement{Token: p.currentToken}

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
		return stmt
	}
	p.nextToken()
	stmt.ReturnValue = p.parseExpression(Lowest)

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseThrowStatement() *ast.ThrowStatement {
	stmt := &ast.ThrowStatement{Token: p.currentToken}
	p.nextToken()
	stmt.Expression = p.parseExpression(Lowest)

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseTryCatchStatement() *ast.TryCatchStatement {
	stmt := &ast.TryCatchStatement{Token: p.currentToken}

	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	stmt.TryBlock = p.parseBlockStatement()

	if !p.expectPeek(token.Catch) {
		return nil
	}
	if !p.expectPeek(token.Lparen) {
		return nil
	}
	if !p.expectPeek(token.Ident) {
		return nil
	}
	stmt.ExceptionIdent = &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}
	if !p.expectPeek(token.Rparen) {
		return nil
	}
	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	stmt.CatchBlock = p.parseBlockStatement()

	if p.peekTokenIs(token.Finally) {
		p.nextToken()
		if !p.expectPeek(token.Lbrace) {
			return nil
		}
		stmt.FinalBlock = p.parseBlockStatement()
	}
	return stmt
}

func (p *Parser) parseFunctionStatement() *ast.FunctionStatement {
	stmt := &ast.FunctionStatement{Token: p.currentToken}

	if !p.expectPeek(token.Ident) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}

	if !p.expectPeek(token.Lparen) {
		return nil
	}
	stmt.Parameters = p.parseFunctionParameters()

	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseFunctionParameters() []*ast.Identifier {
	var identifiers []*ast.Identifier

	if p.peekTokenIs(token.Rparen) {
		p.nextToken()
		return identifiers
	}
	p.nextToken()
	identifiers = append(identifiers, &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal})

	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		identifiers = append(identifiers, &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal})
	}

	if !p.expectPeek(token.Rparen) {
		return nil
	}
	return identifiers
}

// parseForOrForEachStatement disambiguates "for target in iter {}" from
// "for index, element in iter {}" by checking for a comma after the
// first identifier.
func (p *Parser) parseForOrForEachStatement() ast.Statement {
	tok := p.currentToken

	if !p.expectPeek(token.Ident) {
		return nil
	}
	first := &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}

	if p.peekTokenIs(token.Comma) {
		p.nextToken()
		if !p.expectPeek(token.Ident) {
			return nil
		}
		element := &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}

		if !p.expectPeek(token.In) {
			return nil
		}
		p.nextToken()
		iter := p.parseExpression(Lowest)

		if !p.expectPeek(token.Lbrace) {
			return nil
		}
		block := p.parseBlockStatement()

		return &ast.ForEachStatement{Token: tok, Index: first, Element: element, IterExpr: iter, Block: block}
	}

	if !p.expectPeek(token.In) {
		return nil
	}
	p.nextToken()
	iter := p.parseExpression(Lowest)

	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	block := p.parseBlockStatement()

	return &ast.ForStatement{Token: tok, Target: first, Iter: iter, Block: block}
}

func (p *Parser) parseWhileStatement() *ast.WhileStatement {
	stmt := &ast.WhileStatement{Token: p.currentToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(Lowest)

	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	stmt.Block = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseAssertStatement() *ast.AssertStatement {
	stmt := &ast.AssertStatement{Token: p.currentToken}

	p.nextToken()
	stmt.Target = p.parseExpression(Lowest)

	if !p.expectPeek(token.Comma) {
		return nil
	}
	p.nextToken()
	stmt.Fail = p.parseExpression(Lowest)

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseIfStatement() *ast.IfStatement {
	stmt := &ast.IfStatement{Token: p.currentToken}

	if !p.expectPeek(token.Lparen) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(Lowest)

	if !p.expectPeek(token.Rparen) {
		return nil
	}
	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	stmt.MainBlock = p.parseBlockStatement()

	if p.peekTokenIs(token.Else) {
		p.nextToken()
		if p.peekTokenIs(token.If) {
			p.nextToken()
			nested := p.parseIfStatement()
			stmt.ElseBlock = &ast.BlockStatement{Token: nested.Token, Statements: []ast.Statement{nested}}
			return stmt
		}
		if !p.expectPeek(token.Lbrace) {
			return nil
		}
		stmt.ElseBlock = p.parseBlockStatement()
	}
	return stmt
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.currentToken}
	block.Statements = []ast.Statement{}

	p.nextToken()
	for !p.currentTokenIs(token.Rbrace) && !p.currentTokenIs(token.EOF) {
		if stmt := p.parseStatement(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

func (p *Parser) parseExpressionStatement() *ast.ExpressionStatement {
	stmt := &ast.ExpressionStatement{Token: p.currentToken}
	stmt.Expression = p.parseExpression(Lowest)

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.currentToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.currentToken.Type)
		return nil
	}
	leftExp := prefix()

	for !p.peekTokenIs(token.Semicolon) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}
	return leftExp
}

func (p *Parser) noPrefixParseFnError(t token.Type) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: no prefix parse function for %s found", p.currentToken.Line, t))
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	lit := &ast.IntLiteral{Token: p.currentToken}
	value, err := strconv.ParseInt(p.currentToken.Literal, 0, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("line %d: could not parse %q as integer", p.currentToken.Line, p.currentToken.Literal))
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.currentToken}
	value, err := strconv.ParseFloat(p.currentToken.Literal, 64)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("line %d: could not parse %q as float", p.currentToken.Line, p.currentToken.Literal))
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseCharLiteral() ast.Expression {
	runes := []rune(p.currentToken.Literal)
	if len(runes) != 1 {
		p.errors = append(p.errors, fmt.Sprintf("line %d: invalid char literal %q", p.currentToken.Line, p.currentToken.Literal))
		return nil
	}
	return &ast.CharLiteral{Token: p.currentToken, Value: runes[0]}
}

func (p *Parser) parseStrLiteral() ast.Expression {
	return &ast.StrLiteral{Token: p.currentToken, Value: p.currentToken.Literal}
}

func (p *Parser) parseShellLiteral() ast.Expression {
	return &ast.ShellExpression{Token: p.currentToken, Shell: p.currentToken.Literal}
}

func (p *Parser) parseRawShellLiteral() ast.Expression {
	tok := p.currentToken
	if !p.expectPeek(token.Shell) {
		return nil
	}
	return &ast.ShellExpression{Token: tok, Shell: p.currentToken.Literal, IsRaw: true}
}

func (p *Parser) parseBoolLiteral() ast.Expression {
	return &ast.BoolLiteral{Token: p.currentToken, Value: p.currentTokenIs(token.True)}
}

func (p *Parser) parseNovalLiteral() ast.Expression {
	return &ast.NovalLiteral{Token: p.currentToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{Token: p.currentToken, Operator: p.currentToken.Literal}
	p.nextToken()
	expression.Right = p.parseExpression(Prefix)
	return expression
}

func (p *Parser) parseSuffixExpression(left ast.Expression) ast.Expression {
	return &ast.SuffixExpression{Token: p.currentToken, Left: left, Operator: p.currentToken.Literal}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{Token: p.currentToken, Operator: p.currentToken.Literal, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	return expression
}

func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	switch left.(type) {
	case *ast.Identifier, *ast.IndexExpression:
	default:
		p.errors = append(p.errors, fmt.Sprintf("line %d: invalid assignment target %s", p.currentToken.Line, left.String()))
		return nil
	}
	expr := &ast.AssignExpression{Token: p.currentToken, Name: left}
	p.nextToken()
	expr.Value = p.parseExpression(Assign - 1)
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(Lowest)
	if !p.expectPeek(token.Rparen) {
		return nil
	}
	return exp
}

func (p *Parser) parseLambdaExpression() ast.Expression {
	lit := &ast.LambdaExpression{Token: p.currentToken}

	if !p.expectPeek(token.Lparen) {
		return nil
	}
	lit.Parameters = p.parseFunctionParameters()

	if !p.expectPeek(token.Arrow) {
		return nil
	}
	p.nextToken()
	lit.Expression = p.parseExpression(Lowest)
	return lit
}

func (p *Parser) parseThreadOrAsyncCall() ast.Expression {
	isThread := p.currentTokenIs(token.Thread)
	p.nextToken()

	expr := p.parseExpression(Prefix)
	call, ok := expr.(*ast.CallExpression)
	if !ok {
		p.errors = append(p.errors, fmt.Sprintf("line %d: `thread`/`async` must modify a call expression", p.currentToken.Line))
		return expr
	}
	if isThread {
		call.IsThread = true
	} else {
		call.IsAsync = true
	}
	return call
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	exp := &ast.CallExpression{Token: p.currentToken, Function: function}
	exp.Arguments = p.parseExpressionList(token.Rparen)
	return exp
}

func (p *Parser) parseExpressionList(end token.Type) []ast.Expression {
	var list []ast.Expression

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(Lowest))

	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(Lowest))
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	array := &ast.ArrayLiteral{Token: p.currentToken}
	array.Elements = p.parseExpressionList(token.Rbracket)
	return array
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.currentToken, Left: left}
	p.nextToken()
	exp.Index = p.parseExpression(Lowest)

	if !p.expectPeek(token.Rbracket) {
		return nil
	}
	return exp
}

func (p *Parser) parseHashLiteral() ast.Expression {
	hash := &ast.HashLiteral{Token: p.currentToken}
	hash.Pairs = make(map[ast.Expression]ast.Expression)

	for !p.peekTokenIs(token.Rbrace) {
		p.nextToken()
		key := p.parseExpression(Lowest)

		if !p.expectPeek(token.Colon) {
			return nil
		}
		p.nextToken()
		value := p.parseExpression(Lowest)

		hash.Pairs[key] = value
		hash.Keys = append(hash.Keys, key)

		if !p.peekTokenIs(token.Rbrace) && !p.expectPeek(token.Comma) {
			return nil
		}
	}

	if !p.expectPeek(token.Rbrace) {
		return nil
	}
	return hash
}

package ast

import (
	"testing"

	"github.com/dr8co/quill/token"
)

func TestString(t *testing.T) {
	program := &Program{
		Statements: []Statement{
			&VarStatement{
				Token: token.Token{Type: token.Let, Literal: "let"},
				Name: &Identifier{
					Token: token.Token{Type: token.Ident, Literal: "myVar"},
					Value: "myVar",
				},
				Value: &Identifier{
					Token: token.Token{Type: token.Ident, Literal: "anotherVar"},
					Value: "anotherVar",
				},
			},
			&ReturnStatement{
				Token: token.Token{Type: token.Return, Literal: "return"},
				ReturnValue: &Identifier{
					Token: token.Token{Type: token.Ident, Literal: "myVar"},
					Value: "myVar",
				},
			},
		},
	}

	varStmt, ok := program.Statements[0].(*VarStatement)
	if !ok {
		t.Fatalf("program.Statements[0] not VarStatement. got=%T", program.Statements[0])
	}
	if varStmt.Name.Value != "myVar" {
		t.Errorf("varStmt.Name.Value wrong. got=%q", varStmt.Name.Value)
	}

	returnStmt, ok := program.Statements[1].(*ReturnStatement)
	if !ok {
		t.Fatalf("program.Statements[1] not ReturnStatement. got=%T", program.Statements[1])
	}
	if returnStmt.ReturnValue.String() != "myVar" {
		t.Errorf("returnStmt.ReturnValue wrong. got=%q", returnStmt.ReturnValue.String())
	}

	want := "let myVar = anotherVar;return myVar;"
	if program.String() != want {
		t.Errorf("program.String() wrong. got=%q, want=%q", program.String(), want)
	}
}

func TestReturnStatementWithNoValue(t *testing.T) {
	rs := &ReturnStatement{Token: token.Token{Type: token.Return, Literal: "return"}}
	if got := rs.String(); got != "return;" {
		t.Errorf("bare return String() wrong. got=%q", got)
	}
}

func TestConstStatementString(t *testing.T) {
	cs := &ConstStatement{
		Token: token.Token{Type: token.Const, Literal: "const"},
		Name:  &Identifier{Token: token.Token{Type: token.Ident, Literal: "pi"}, Value: "pi"},
		Value: &IntLiteral{Token: token.Token{Type: token.Int, Literal: "3"}, Value: 3},
	}
	want := "const pi = 3;"
	if got := cs.String(); got != want {
		t.Errorf("ConstStatement.String() wrong. got=%q, want=%q", got, want)
	}
}

func TestIfStatementString(t *testing.T) {
	is := &IfStatement{
		Token:     token.Token{Type: token.If, Literal: "if"},
		Condition: &BoolLiteral{Token: token.Token{Type: token.True, Literal: "true"}, Value: true},
		MainBlock: &BlockStatement{
			Statements: []Statement{
				&ExpressionStatement{Expression: &IntLiteral{Token: token.Token{Type: token.Int, Literal: "1"}, Value: 1}},
			},
		},
	}
	got := is.String()
	if got == "" {
		t.Errorf("IfStatement.String() returned an empty string")
	}
}

func TestInfixExpressionString(t *testing.T) {
	ie := &InfixExpression{
		Token:    token.Token{Type: token.Plus, Literal: "+"},
		Left:     &IntLiteral{Token: token.Token{Type: token.Int, Literal: "1"}, Value: 1},
		Operator: "+",
		Right:    &IntLiteral{Token: token.Token{Type: token.Int, Literal: "2"}, Value: 2},
	}
	want := "(1 + 2)"
	if got := ie.String(); got != want {
		t.Errorf("InfixExpression.String() wrong. got=%q, want=%q", got, want)
	}
}

func TestLambdaExpressionString(t *testing.T) {
	le := &LambdaExpression{
		Token: token.Token{Type: token.Lambda, Literal: "lambda"},
		Parameters: []*Identifier{
			{Token: token.Token{Type: token.Ident, Literal: "a"}, Value: "a"},
			{Token: token.Token{Type: token.Ident, Literal: "b"}, Value: "b"},
		},
		Expression: &InfixExpression{
			Token:    token.Token{Type: token.Plus, Literal: "+"},
			Left:     &Identifier{Token: token.Token{Type: token.Ident, Literal: "a"}, Value: "a"},
			Operator: "+",
			Right:    &Identifier{Token: token.Token{Type: token.Ident, Literal: "b"}, Value: "b"},
		},
	}
	got := le.String()
	if got == "" {
		t.Errorf("LambdaExpression.String() returned an empty string")
	}
}

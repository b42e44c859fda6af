package alu

import (
	"math"
	"testing"

	"github.com/dr8co/quill/object"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		left, right object.Object
		want        object.Object
	}{
		{&object.Int{Value: 2}, &object.Int{Value: 3}, &object.Int{Value: 5}},
		{&object.Int{Value: 2}, &object.Float{Value: 1.5}, &object.Float{Value: 3.5}},
		{&object.Float{Value: 1.5}, &object.Int{Value: 2}, &object.Float{Value: 3.5}},
		{&object.Str{Value: "foo"}, &object.Str{Value: "bar"}, &object.Str{Value: "foobar"}},
	}

	for _, tt := range tests {
		got, err := Add(tt.left, tt.right)
		if err != nil {
			t.Fatalf("Add(%v, %v) returned error: %s", tt.left, tt.right, err)
		}
		if !object.Equal(got, tt.want) {
			t.Errorf("Add(%v, %v) = %v, want %v", tt.left, tt.right, got, tt.want)
		}
	}
}

func TestAddOverflow(t *testing.T) {
	left := &object.Int{Value: math.MaxInt64}
	right := &object.Int{Value: 1}

	_, err := Add(left, right)
	if err == nil {
		t.Fatal("expected an overflow error, got none")
	}
	aluErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *alu.Error, got %T", err)
	}
	if aluErr.Kind != Overflow {
		t.Errorf("expected Kind=Overflow, got %v", aluErr.Kind)
	}
}

func TestMulOverflow(t *testing.T) {
	left := &object.Int{Value: math.MaxInt64}
	right := &object.Int{Value: 2}

	_, err := Mul(left, right)
	if err == nil {
		t.Fatal("expected an overflow error, got none")
	}
	if err.(*Error).Kind != Overflow {
		t.Errorf("expected Kind=Overflow, got %v", err.(*Error).Kind)
	}
}

func TestDivIntIntPromotesToFloat(t *testing.T) {
	got, err := Div(&object.Int{Value: 7}, &object.Int{Value: 2})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	f, ok := got.(*object.Float)
	if !ok {
		t.Fatalf("expected *object.Float, got %T", got)
	}
	if f.Value != 3.5 {
		t.Errorf("expected 3.5, got %v", f.Value)
	}
}

func TestModIntIntStaysInt(t *testing.T) {
	got, err := Mod(&object.Int{Value: 7}, &object.Int{Value: 2})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	i, ok := got.(*object.Int)
	if !ok {
		t.Fatalf("expected *object.Int, got %T", got)
	}
	if i.Value != 1 {
		t.Errorf("expected 1, got %v", i.Value)
	}
}

func TestDivideByZero(t *testing.T) {
	tests := []func() (object.Object, error){
		func() (object.Object, error) { return Div(&object.Int{Value: 1}, &object.Int{Value: 0}) },
		func() (object.Object, error) { return Mod(&object.Int{Value: 1}, &object.Int{Value: 0}) },
	}

	for _, fn := range tests {
		_, err := fn()
		if err == nil {
			t.Fatal("expected a divide-by-zero error, got none")
		}
		if err.(*Error).Kind != DivideByZero {
			t.Errorf("expected Kind=DivideByZero, got %v", err.(*Error).Kind)
		}
	}
}

func TestTypeMismatch(t *testing.T) {
	_, err := Add(&object.Int{Value: 1}, &object.Bool{Value: true})
	if err == nil {
		t.Fatal("expected a type-mismatch error, got none")
	}
	if err.(*Error).Kind != TypeMismatch {
		t.Errorf("expected Kind=TypeMismatch, got %v", err.(*Error).Kind)
	}
}

func TestOrderedComparisons(t *testing.T) {
	tests := []struct {
		fn          func(left, right object.Object) (object.Object, error)
		left, right object.Object
		want        bool
	}{
		{Gt, &object.Int{Value: 5}, &object.Int{Value: 3}, true},
		{Lt, &object.Int{Value: 5}, &object.Int{Value: 3}, false},
		{Gte, &object.Float{Value: 3}, &object.Int{Value: 3}, true},
		{Lte, &object.Char{Value: 'a'}, &object.Char{Value: 'b'}, true},
	}

	for _, tt := range tests {
		got, err := tt.fn(tt.left, tt.right)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		b, ok := got.(*object.Bool)
		if !ok {
			t.Fatalf("expected *object.Bool, got %T", got)
		}
		if b.Value != tt.want {
			t.Errorf("expected %v, got %v", tt.want, b.Value)
		}
	}
}

func TestOrderedTypeMismatch(t *testing.T) {
	_, err := Gt(&object.Char{Value: 'a'}, &object.Int{Value: 1})
	if err == nil {
		t.Fatal("expected a type-mismatch error comparing Char to Int, got none")
	}
}

func TestBitwise(t *testing.T) {
	got, err := BitAnd(&object.Int{Value: 0b1100}, &object.Int{Value: 0b1010})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got.(*object.Int).Value != 0b1000 {
		t.Errorf("expected 0b1000, got %b", got.(*object.Int).Value)
	}

	got, err = BitOr(&object.Int{Value: 0b1100}, &object.Int{Value: 0b1010})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got.(*object.Int).Value != 0b1110 {
		t.Errorf("expected 0b1110, got %b", got.(*object.Int).Value)
	}
}

func TestNeg(t *testing.T) {
	got, err := Neg(&object.Int{Value: 0})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got.(*object.Int).Value != -1 {
		t.Errorf("expected -1, got %v", got.(*object.Int).Value)
	}
}

func TestLogicalAndOr(t *testing.T) {
	if !LogicalAnd(&object.Bool{Value: true}, &object.Bool{Value: true}).(*object.Bool).Value {
		t.Errorf("expected true && true to be true")
	}
	if LogicalAnd(&object.Bool{Value: true}, &object.Bool{Value: false}).(*object.Bool).Value {
		t.Errorf("expected true && false to be false")
	}
	if !LogicalOr(&object.Bool{Value: false}, &object.Bool{Value: true}).(*object.Bool).Value {
		t.Errorf("expected false || true to be true")
	}
}

func TestLogicalNot(t *testing.T) {
	got := LogicalNot(&object.Bool{Value: false})
	if !got.(*object.Bool).Value {
		t.Errorf("expected !false to be true")
	}
}

// Package alu implements the typed arithmetic, bitwise, comparison, and
// logical kernels the VM dispatches arithmetic and comparison opcodes to.
//
// Each kernel is specified over a small (left_type, right_type) table:
// Int⊕Int stays Int with overflow checking, Int⊕Float and Float⊕Float
// promote to Float, Str+Str concatenates, and anything else is a type
// error. Keeping this table-driven logic in its own package (rather than
// folded into the VM's opcode switch) mirrors the instruction set's own
// separation between "what an opcode does" and "how two operands
// combine."
package alu

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/dr8co/quill/object"
)

// Error is a typed ALU failure, distinguishing overflow/divide-by-zero
// from general type mismatches so the VM can map it to the right
// VMErrorKind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Kind classifies an ALU failure.
type Kind int

const (
	TypeMismatch Kind = iota
	Overflow
	DivideByZero
)

func typeErr(op string, left, right object.Object) *Error {
	return &Error{
		Kind:    TypeMismatch,
		Message: fmt.Sprintf("operation %s is not applicable between %s and %s", op, left.Type(), right.Type()),
	}
}

func overflowErr(op string, left, right object.Object) *Error {
	return &Error{
		Kind: Overflow,
		Message: fmt.Sprintf("operation %s between %s and %s results in arithmetic overflow",
			op, left.Describe(), right.Describe()),
	}
}

func divideByZeroErr(left, right object.Object) *Error {
	return &Error{
		Kind:    DivideByZero,
		Message: fmt.Sprintf("divide by zero: %s / %s", left.Describe(), right.Describe()),
	}
}

// Add computes left + right. Int+Int is overflow-checked; Int/Float
// mixes promote to Float; Str+Str concatenates.
func Add(left, right object.Object) (object.Object, error) {
	switch l := left.(type) {
	case *object.Int:
		switch r := right.(type) {
		case *object.Int:
			sum, carry := bits.Add64(uint64(l.Value), uint64(r.Value), 0)
			_ = carry
			if (l.Value > 0 && r.Value > 0 && int64(sum) < 0) ||
				(l.Value < 0 && r.Value < 0 && int64(sum) >= 0) {
				return nil, overflowErr("add", left, right)
			}
			return &object.Int{Value: int64(sum)}, nil
		case *object.Float:
			return &object.Float{Value: float64(l.Value) + r.Value}, nil
		}
	case *object.Float:
		switch r := right.(type) {
		case *object.Float:
			return &object.Float{Value: l.Value + r.Value}, nil
		case *object.Int:
			return &object.Float{Value: l.Value + float64(r.Value)}, nil
		}
	case *object.Str:
		if r, ok := right.(*object.Str); ok {
			return &object.Str{Value: l.Value + r.Value}, nil
		}
	}
	return nil, typeErr("add", left, right)
}

// Sub computes left - right, overflow-checked for Int-Int.
func Sub(left, right object.Object) (object.Object, error) {
	switch l := left.(type) {
	case *object.Int:
		switch r := right.(type) {
		case *object.Int:
			diff := l.Value - r.Value
			if (r.Value < 0 && diff < l.Value) || (r.Value > 0 && diff > l.Value) {
				return nil, overflowErr("sub", left, right)
			}
			return &object.Int{Value: diff}, nil
		case *object.Float:
			return &object.Float{Value: float64(l.Value) - r.Value}, nil
		}
	case *object.Float:
		switch r := right.(type) {
		case *object.Float:
			return &object.Float{Value: l.Value - r.Value}, nil
		case *object.Int:
			return &object.Float{Value: l.Value - float64(r.Value)}, nil
		}
	}
	return nil, typeErr("sub", left, right)
}

// Mul computes left * right, overflow-checked for Int*Int.
func Mul(left, right object.Object) (object.Object, error) {
	switch l := left.(type) {
	case *object.Int:
		switch r := right.(type) {
		case *object.Int:
			if l.Value == 0 || r.Value == 0 {
				return &object.Int{Value: 0}, nil
			}
			hi, lo := bits.Mul64(uint64(abs64(l.Value)), uint64(abs64(r.Value)))
			if hi != 0 || lo > math.MaxInt64 {
				return nil, overflowErr("mul", left, right)
			}
			result := int64(lo)
			if (l.Value < 0) != (r.Value < 0) {
				result = -result
			}
			return &object.Int{Value: result}, nil
		case *object.Float:
			return &object.Float{Value: float64(l.Value) * r.Value}, nil
		}
	case *object.Float:
		switch r := right.(type) {
		case *object.Float:
			return &object.Float{Value: l.Value * r.Value}, nil
		case *object.Int:
			return &object.Float{Value: l.Value * float64(r.Value)}, nil
		}
	}
	return nil, typeErr("mul", left, right)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Div computes left / right. Int/Int always promotes to Float, per the
// object model's "Int/Int yields Float" division rule — unlike Mod,
// which keeps Int/Int in Int (see [Mod]).
func Div(left, right object.Object) (object.Object, error) {
	switch l := left.(type) {
	case *object.Int:
		switch r := right.(type) {
		case *object.Int:
			if r.Value == 0 {
				return nil, divideByZeroErr(left, right)
			}
			return &object.Float{Value: float64(l.Value) / float64(r.Value)}, nil
		case *object.Float:
			if r.Value == 0 {
				return nil, divideByZeroErr(left, right)
			}
			return &object.Float{Value: float64(l.Value) / r.Value}, nil
		}
	case *object.Float:
		switch r := right.(type) {
		case *object.Float:
			if r.Value == 0 {
				return nil, divideByZeroErr(left, right)
			}
			return &object.Float{Value: l.Value / r.Value}, nil
		case *object.Int:
			if r.Value == 0 {
				return nil, divideByZeroErr(left, right)
			}
			return &object.Float{Value: l.Value / float64(r.Value)}, nil
		}
	}
	return nil, typeErr("div", left, right)
}

// Mod computes left % right. Int%Int stays Int (the original kernel this
// is grounded on keeps modulus of two integers an integer, unlike
// division); any Float operand promotes the result to Float via
// math.Mod.
func Mod(left, right object.Object) (object.Object, error) {
	switch l := left.(type) {
	case *object.Int:
		switch r := right.(type) {
		case *object.Int:
			if r.Value == 0 {
				return nil, divideByZeroErr(left, right)
			}
			return &object.Int{Value: l.Value % r.Value}, nil
		case *object.Float:
			if r.Value == 0 {
				return nil, divideByZeroErr(left, right)
			}
			return &object.Float{Value: math.Mod(float64(l.Value), r.Value)}, nil
		}
	case *object.Float:
		switch r := right.(type) {
		case *object.Float:
			if r.Value == 0 {
				return nil, divideByZeroErr(left, right)
			}
			return &object.Float{Value: math.Mod(l.Value, r.Value)}, nil
		case *object.Int:
			if r.Value == 0 {
				return nil, divideByZeroErr(left, right)
			}
			return &object.Float{Value: math.Mod(l.Value, float64(r.Value))}, nil
		}
	}
	return nil, typeErr("mod", left, right)
}

// BitAnd computes left & right. Bitwise operations are Int-only.
func BitAnd(left, right object.Object) (object.Object, error) {
	l, lok := left.(*object.Int)
	r, rok := right.(*object.Int)
	if !lok || !rok {
		return nil, typeErr("and", left, right)
	}
	return &object.Int{Value: l.Value & r.Value}, nil
}

// BitOr computes left | right. Bitwise operations are Int-only.
func BitOr(left, right object.Object) (object.Object, error) {
	l, lok := left.(*object.Int)
	r, rok := right.(*object.Int)
	if !lok || !rok {
		return nil, typeErr("or", left, right)
	}
	return &object.Int{Value: l.Value | r.Value}, nil
}

// Neg computes the bitwise complement of an Int.
func Neg(obj object.Object) (object.Object, error) {
	i, ok := obj.(*object.Int)
	if !ok {
		return nil, &Error{Kind: TypeMismatch, Message: fmt.Sprintf("operation negate is not applicable for %s", obj.Type())}
	}
	return &object.Int{Value: ^i.Value}, nil
}

// LogicalNot evaluates truthiness on any object and negates it.
func LogicalNot(obj object.Object) object.Object {
	return &object.Bool{Value: !object.IsTruthy(obj)}
}

// LogicalAnd and LogicalOr are specified in terms of truthiness, not
// type, so both operands are always evaluated by the compiler (no
// structural short-circuiting, per spec's Open Question (i)) and this
// kernel only combines the two already-evaluated results.
func LogicalAnd(left, right object.Object) object.Object {
	return &object.Bool{Value: object.IsTruthy(left) && object.IsTruthy(right)}
}

func LogicalOr(left, right object.Object) object.Object {
	return &object.Bool{Value: object.IsTruthy(left) || object.IsTruthy(right)}
}

// comparable pairs: Char/Char, Int/Int, Float/Float, and the Int/Float
// mixes. Anything else is a type error, matching §4.4's comparison rule.
func numeric(obj object.Object) (float64, bool) {
	switch o := obj.(type) {
	case *object.Int:
		return float64(o.Value), true
	case *object.Float:
		return o.Value, true
	}
	return 0, false
}

// Gt, Gte, Lt, Lte compare Char/Char, Int/Int, Float/Float, and mixed
// Int/Float pairs; Str supports only equality (handled by [object.Equal],
// not here).
func Gt(left, right object.Object) (object.Object, error) { return ordered("gt", left, right) }
func Gte(left, right object.Object) (object.Object, error) { return ordered("gte", left, right) }
func Lt(left, right object.Object) (object.Object, error) { return ordered("lt", left, right) }
func Lte(left, right object.Object) (object.Object, error) { return ordered("lte", left, right) }

func ordered(op string, left, right object.Object) (object.Object, error) {
	if lc, ok := left.(*object.Char); ok {
		if rc, ok := right.(*object.Char); ok {
			return &object.Bool{Value: compareOp(op, float64(lc.Value), float64(rc.Value))}, nil
		}
		return nil, typeErr(op, left, right)
	}
	lv, lok := numeric(left)
	rv, rok := numeric(right)
	if !lok || !rok {
		return nil, typeErr(op, left, right)
	}
	return &object.Bool{Value: compareOp(op, lv, rv)}, nil
}

func compareOp(op string, l, r float64) bool {
	switch op {
	case "gt":
		return l > r
	case "gte":
		return l >= r
	case "lt":
		return l < r
	case "lte":
		return l <= r
	}
	return false
}

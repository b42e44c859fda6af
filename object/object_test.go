package object

import "testing"

func TestStringHashKey(t *testing.T) {
	hello1 := &Str{Value: "Hello World"}
	hello2 := &Str{Value: "Hello World"}
	diff1 := &Str{Value: "My name is johnny"}
	diff2 := &Str{Value: "My name is johnny"}

	if hello1.HashKey() != hello2.HashKey() {
		t.Errorf("strings with same content have different hash keys")
	}
	if diff1.HashKey() != diff2.HashKey() {
		t.Errorf("strings with same content have different hash keys")
	}
	if hello1.HashKey() == diff1.HashKey() {
		t.Errorf("strings with different content have same hash keys")
	}
}

func TestIntHashKey(t *testing.T) {
	one1 := &Int{Value: 1}
	one2 := &Int{Value: 1}
	two := &Int{Value: 2}

	if one1.HashKey() != one2.HashKey() {
		t.Errorf("integers with same value have different hash keys")
	}
	if one1.HashKey() == two.HashKey() {
		t.Errorf("integers with different value have same hash keys")
	}
}

func TestArrayHashKeyIsIdentityBased(t *testing.T) {
	a := &Array{Name: "a", Elements: []Object{&Int{Value: 1}}}
	b := &Array{Name: "b", Elements: []Object{&Int{Value: 1}}}
	c := &Array{Name: "a", Elements: []Object{&Int{Value: 2}}}

	if a.HashKey() == b.HashKey() {
		t.Errorf("arrays with different names should hash differently even with identical contents")
	}
	if a.HashKey() != c.HashKey() {
		t.Errorf("arrays with the same name should hash the same regardless of contents")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		left, right Object
		want        bool
	}{
		{&Int{Value: 1}, &Int{Value: 1}, true},
		{&Int{Value: 1}, &Int{Value: 2}, false},
		{&Int{Value: 2}, &Float{Value: 2}, true},
		{&Float{Value: 2}, &Int{Value: 2}, true},
		{&Str{Value: "a"}, &Str{Value: "a"}, true},
		{&Str{Value: "a"}, &Str{Value: "b"}, false},
		{&Bool{Value: true}, &Bool{Value: true}, true},
		{&Noval{}, &Noval{}, true},
		{&Int{Value: 1}, &Str{Value: "1"}, false},
	}

	for _, tt := range tests {
		if got := Equal(tt.left, tt.right); got != tt.want {
			t.Errorf("Equal(%v, %v) = %v, want %v", tt.left, tt.right, got, tt.want)
		}
	}
}

func TestArrayAndHashEqualByIdentity(t *testing.T) {
	a := &Array{Name: "x"}
	b := &Array{Name: "x"}

	if Equal(a, b) {
		t.Errorf("distinct Array objects with the same name should not be Equal")
	}
	if !Equal(a, a) {
		t.Errorf("an Array object should be Equal to itself")
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		obj  Object
		want bool
	}{
		{&Bool{Value: true}, true},
		{&Bool{Value: false}, false},
		{&Noval{}, false},
		{&Int{Value: 0}, false},
		{&Int{Value: 1}, true},
		{&Char{Value: 0}, false},
		{&Char{Value: 'a'}, true},
		{&Str{Value: ""}, false},
		{&Str{Value: "x"}, true},
		{&Array{Elements: []Object{}}, false},
		{&Array{Elements: []Object{&Noval{}}}, true},
		{&Float{Value: 0}, true},
	}

	for _, tt := range tests {
		if got := IsTruthy(tt.obj); got != tt.want {
			t.Errorf("IsTruthy(%v) = %v, want %v", tt.obj, got, tt.want)
		}
	}
}

func TestNewIteratorOverArray(t *testing.T) {
	arr := &Array{Elements: []Object{&Int{Value: 1}, &Int{Value: 2}}}
	it := NewIterator(arr)
	if it == nil {
		t.Fatalf("expected a non-nil iterator over an Array")
	}

	first, ok := it.Next()
	if !ok || !Equal(first, &Int{Value: 1}) {
		t.Errorf("expected first element 1, got %v (ok=%v)", first, ok)
	}
	second, ok := it.Next()
	if !ok || !Equal(second, &Int{Value: 2}) {
		t.Errorf("expected second element 2, got %v (ok=%v)", second, ok)
	}
	if _, ok := it.Next(); ok {
		t.Errorf("expected iterator to be exhausted")
	}
}

func TestNewIteratorOverString(t *testing.T) {
	it := NewIterator(&Str{Value: "ab"})
	if it == nil {
		t.Fatalf("expected a non-nil iterator over a Str")
	}

	first, _ := it.Next()
	c, ok := first.(*Char)
	if !ok || c.Value != 'a' {
		t.Errorf("expected first char 'a', got %v", first)
	}
}

func TestNewIteratorRejectsUnsupportedTypes(t *testing.T) {
	if it := NewIterator(&Bool{Value: true}); it != nil {
		t.Errorf("expected nil iterator over a Bool")
	}
}

func TestCloneBuiltinsAndRebind(t *testing.T) {
	clones := CloneBuiltins()
	if len(clones) != len(Builtins) {
		t.Fatalf("expected %d builtins, got %d", len(Builtins), len(clones))
	}

	called := false
	Rebind(clones, "puts", func(args ...Object) (Object, error) {
		called = true
		return &Noval{}, nil
	})

	for _, b := range clones {
		if b.Name == "puts" {
			if _, err := b.Fn(); err != nil {
				t.Fatalf("rebound puts returned error: %s", err)
			}
		}
	}
	if !called {
		t.Errorf("expected the rebound puts implementation to run")
	}

	for _, b := range Builtins {
		if b.Name == "puts" {
			if _, err := b.Builtin.Fn(); err == nil {
				t.Errorf("expected the package-level puts to remain unbound after rebinding the clone")
			}
		}
	}
}

func TestTypeName(t *testing.T) {
	if TypeName(&Int{Value: 1}) != string(IntType) {
		t.Errorf("expected TypeName to report %q", IntType)
	}
}

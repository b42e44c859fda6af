// Package object defines the runtime value representation for the Quill
// virtual machine.
//
// Every value a compiled program can produce or consume is an [Object]: a
// closed, tagged sum type rather than an open class hierarchy, matching how
// the language itself has no user-defined types. The package also carries
// the hashing, equality, and truthiness rules the VM and ALU rely on.
package object

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/dr8co/quill/code"
)

// Type identifies the runtime variant of an [Object].
type Type string

// All runtime object type names, returned by [Object.Type].
const (
	NovalType           Type = "NOVAL"
	IntType             Type = "INT"
	FloatType           Type = "FLOAT"
	BoolType            Type = "BOOL"
	CharType            Type = "CHAR"
	StrType             Type = "STR"
	ArrayType           Type = "ARRAY"
	HashType            Type = "HASH"
	SubroutineType      Type = "SUBROUTINE"
	ClosureType         Type = "CLOSURE"
	BuiltinType         Type = "BUILTIN"
	ByteBufferType      Type = "BYTE_BUFFER"
	NativeModuleRefType Type = "NATIVE_MODULE_REF"
	IteratorType        Type = "ITERATOR"
)

// Object is the interface implemented by every runtime value.
type Object interface {
	// Type reports the object's runtime variant.
	Type() Type

	// Describe renders a human-readable form of the value, used by the
	// `describe` builtin, REPL result printing, and error messages.
	Describe() string
}

// Hashable is implemented by objects usable as Hash keys.
type Hashable interface {
	HashKey() HashKey
}

// HashKey is the comparable key a [Hashable] object reduces to.
type HashKey struct {
	Type  Type
	Value uint64
}

// Noval is the unit/absence value, produced by statements and calls that
// return nothing.
type Noval struct{}

func (n *Noval) Type() Type       { return NovalType }
func (n *Noval) Describe() string { return "noval" }

// Int is a 64-bit signed integer.
type Int struct {
	Value int64
}

func (i *Int) Type() Type       { return IntType }
func (i *Int) Describe() string { return strconv.FormatInt(i.Value, 10) }

//nolint:gosec
func (i *Int) HashKey() HashKey { return HashKey{Type: i.Type(), Value: uint64(i.Value)} }

// Float is a 64-bit IEEE-754 floating point number.
type Float struct {
	Value float64
}

func (f *Float) Type() Type       { return FloatType }
func (f *Float) Describe() string { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

// HashKey hashes a Float by its shortest round-tripping decimal string,
// per the object model's invariant that floats hash by numeric string
// rather than by bit pattern, so 1.0 and 1.00 collide as expected.
func (f *Float) HashKey() HashKey {
	h := fnv.New64a()
	_, _ = h.Write([]byte(f.Describe()))
	return HashKey{Type: f.Type(), Value: h.Sum64()}
}

// Bool is a boolean value.
type Bool struct {
	Value bool
}

func (b *Bool) Type() Type       { return BoolType }
func (b *Bool) Describe() string { return strconv.FormatBool(b.Value) }
func (b *Bool) HashKey() HashKey {
	var v uint64
	if b.Value {
		v = 1
	}
	return HashKey{Type: b.Type(), Value: v}
}

// Char is a single Unicode scalar value.
type Char struct {
	Value rune
}

func (c *Char) Type() Type       { return CharType }
func (c *Char) Describe() string { return string(c.Value) }

//nolint:gosec
func (c *Char) HashKey() HashKey { return HashKey{Type: c.Type(), Value: uint64(c.Value)} }

// Str is an immutable UTF-8 string.
type Str struct {
	Value string

	hashKey *HashKey
}

func (s *Str) Type() Type       { return StrType }
func (s *Str) Describe() string { return s.Value }
func (s *Str) HashKey() HashKey {
	if s.hashKey != nil {
		return *s.hashKey
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(s.Value))
	key := HashKey{Type: s.Type(), Value: h.Sum64()}
	s.hashKey = &key
	return key
}

// Array is a shared, heap-allocated, ordered sequence of Objects. Pointer
// identity gives it reference semantics: two Array values that alias the
// same backing struct observe each other's in-place mutations via
// ISetIndex, per the object model's sharing invariant.
type Array struct {
	Name     string
	Elements []Object
}

func (a *Array) Type() Type { return ArrayType }
func (a *Array) Describe() string {
	elems := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		elems[i] = e.Describe()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// HashKey hashes an Array by its identity name rather than its contents,
// per the object model: Array/Hash/Subroutine/Closure hash by
// identity-name, not structurally.
func (a *Array) HashKey() HashKey {
	h := fnv.New64a()
	_, _ = h.Write([]byte(a.Name))
	return HashKey{Type: a.Type(), Value: h.Sum64()}
}

// HashPair is one key/value entry of a [Hash].
type HashPair struct {
	Key   Object
	Value Object
}

// Hash is a shared, heap-allocated map from hashable Objects to Objects.
type Hash struct {
	Name  string
	Pairs map[HashKey]HashPair
}

func (h *Hash) Type() Type { return HashType }
func (h *Hash) Describe() string {
	pairs := make([]string, 0, len(h.Pairs))
	for _, pair := range h.Pairs {
		pairs = append(pairs, fmt.Sprintf("%s: %s", pair.Key.Describe(), pair.Value.Describe()))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ", ") + "}"
}

func (h *Hash) HashKey() HashKey {
	hh := fnv.New64a()
	_, _ = hh.Write([]byte(h.Name))
	return HashKey{Type: h.Type(), Value: hh.Sum64()}
}

// Subroutine is a compiled function body plus metadata. Immutable once
// inserted into the constant pool.
type Subroutine struct {
	Name          string
	Instructions  code.Instructions
	NumLocals     int
	NumParameters int
}

func (s *Subroutine) Type() Type       { return SubroutineType }
func (s *Subroutine) Describe() string { return fmt.Sprintf("subroutine(%s)", s.Name) }

// HashKey hashes a Subroutine by name, matching the object model's
// identity-name hashing and the "Subroutine equality is by name" invariant.
func (s *Subroutine) HashKey() HashKey {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s.Name))
	return HashKey{Type: s.Type(), Value: h.Sum64()}
}

// Closure pairs a Subroutine with the free values captured at creation.
// Named Closure, matching the spec's ClosureContext.
type Closure struct {
	Subroutine *Subroutine
	Free       []Object
}

func (c *Closure) Type() Type       { return ClosureType }
func (c *Closure) Describe() string { return fmt.Sprintf("closure(%s)", c.Subroutine.Name) }

// HashKey hashes a Closure by its underlying subroutine's name.
func (c *Closure) HashKey() HashKey { return c.Subroutine.HashKey() }

// BuiltinFunction is the signature every host builtin implements.
type BuiltinFunction func(args ...Object) (Object, error)

// Builtin wraps a named host function reachable from script code via
// ILoadBuiltin.
type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() Type       { return BuiltinType }
func (b *Builtin) Describe() string { return fmt.Sprintf("builtin(%s)", b.Name) }

// ByteBuffer is a mutable byte vector with a fixed endianness flag, used
// by IShellRaw and native-module results that must bypass UTF-8
// validation.
type ByteBuffer struct {
	Bytes     []byte
	BigEndian bool
}

func (b *ByteBuffer) Type() Type       { return ByteBufferType }
func (b *ByteBuffer) Describe() string { return fmt.Sprintf("bytebuffer(%d bytes)", len(b.Bytes)) }

// NativeModuleRef is an integer handle into the FFI loader's module table.
type NativeModuleRef struct {
	Handle int64
	Path   string
}

func (n *NativeModuleRef) Type() Type { return NativeModuleRefType }
func (n *NativeModuleRef) Describe() string {
	return fmt.Sprintf("native_module(%s#%d)", n.Path, n.Handle)
}

// Iterator is a one-shot, non-restartable cursor over a snapshot of
// elements, created by IIter over an Array, Hash (keys), or Str
// (characters).
type Iterator struct {
	Elements []Object
	Position int
}

func (it *Iterator) Type() Type { return IteratorType }
func (it *Iterator) Describe() string {
	return fmt.Sprintf("iterator(%d/%d)", it.Position, len(it.Elements))
}

// Next returns the next element and advances the cursor, reporting
// whether the iterator had an element left.
func (it *Iterator) Next() (Object, bool) {
	if it.Position >= len(it.Elements) {
		return nil, false
	}
	v := it.Elements[it.Position]
	it.Position++
	return v, true
}

// NewIterator builds an [Iterator] over the elements of an Array, the
// keys of a Hash, or the characters of a Str. Returns nil for any other
// object type; the caller raises the VM's IterationError in that case.
func NewIterator(obj Object) *Iterator {
	switch o := obj.(type) {
	case *Array:
		elems := make([]Object, len(o.Elements))
		copy(elems, o.Elements)
		return &Iterator{Elements: elems}
	case *Hash:
		keys := make([]Object, 0, len(o.Pairs))
		for _, pair := range o.Pairs {
			keys = append(keys, pair.Key)
		}
		return &Iterator{Elements: keys}
	case *Str:
		runes := []rune(o.Value)
		elems := make([]Object, len(runes))
		for i, r := range runes {
			elems[i] = &Char{Value: r}
		}
		return &Iterator{Elements: elems}
	default:
		return nil
	}
}

// IsTruthy implements the truthiness coercion used by jump and logical
// opcodes: Bool is itself; Noval is always false; Str/Array/Hash are true
// iff non-empty; Int is true iff non-zero; Char is true iff non-NUL; every
// other object (Float, Subroutine, Closure, Builtin, ByteBuffer,
// NativeModuleRef, Iterator) is true.
func IsTruthy(obj Object) bool {
	switch o := obj.(type) {
	case *Bool:
		return o.Value
	case *Noval:
		return false
	case *Str:
		return len(o.Value) > 0
	case *Int:
		return o.Value != 0
	case *Char:
		return o.Value != 0
	case *Array:
		return len(o.Elements) > 0
	case *Hash:
		return len(o.Pairs) > 0
	default:
		return true
	}
}

// Equal reports whether two objects compare equal. Int and Float compare
// by numeric value across the two types; Str, Bool, and Char compare by
// value; Array, Hash, Subroutine, Closure, Builtin, ByteBuffer, and
// NativeModuleRef compare by reference/name identity, matching the object
// model's shared-heap-container semantics.
func Equal(left, right Object) bool {
	switch l := left.(type) {
	case *Noval:
		_, ok := right.(*Noval)
		return ok
	case *Int:
		switch r := right.(type) {
		case *Int:
			return l.Value == r.Value
		case *Float:
			return float64(l.Value) == r.Value
		}
		return false
	case *Float:
		switch r := right.(type) {
		case *Float:
			return l.Value == r.Value
		case *Int:
			return l.Value == float64(r.Value)
		}
		return false
	case *Bool:
		r, ok := right.(*Bool)
		return ok && l.Value == r.Value
	case *Char:
		r, ok := right.(*Char)
		return ok && l.Value == r.Value
	case *Str:
		r, ok := right.(*Str)
		return ok && l.Value == r.Value
	case *Array:
		r, ok := right.(*Array)
		return ok && l == r
	case *Hash:
		r, ok := right.(*Hash)
		return ok && l == r
	case *Subroutine:
		r, ok := right.(*Subroutine)
		return ok && l.Name == r.Name
	case *Closure:
		r, ok := right.(*Closure)
		return ok && l == r
	case *Builtin:
		r, ok := right.(*Builtin)
		return ok && l.Name == r.Name
	case *ByteBuffer:
		r, ok := right.(*ByteBuffer)
		return ok && l == r
	case *NativeModuleRef:
		r, ok := right.(*NativeModuleRef)
		return ok && l.Handle == r.Handle
	default:
		return false
	}
}

// TypeName is the value the `describe`/`type_of`-style reflection
// builtins surface for an object, per §9's "Reflection is limited to
// builtins() listing and type_of via describe" note.
func TypeName(obj Object) string { return string(obj.Type()) }

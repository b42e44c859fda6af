package object

import (
	"fmt"
	"sort"
)

// Builtins is the stable, ordered list of built-in names every
// SymbolTable registers at root construction (§4.2's insert_builtins).
// The order fixes each builtin's compile-time slot, so ILoadBuiltin(slot)
// and this list must never be reordered — only appended to.
//
// Entries that depend on the injected Platform, the FFI table, or the
// thread table (puts, print, exec, get_args, get_env, get_envs, get_unix_time,
// get_platform_info, sleep, thread_join, native_load) carry a stub Fn
// here so the package has no import-time dependency on those
// collaborators; package vm rebinds them to real implementations when it
// constructs a VM, via [Rebind].
var Builtins = []struct {
	Name    string
	Builtin *Builtin
}{
	{"len", &Builtin{Name: "len", Fn: builtinLen}},
	{"first", &Builtin{Name: "first", Fn: builtinFirst}},
	{"last", &Builtin{Name: "last", Fn: builtinLast}},
	{"rest", &Builtin{Name: "rest", Fn: builtinRest}},
	{"push", &Builtin{Name: "push", Fn: builtinPush}},
	{"puts", &Builtin{Name: "puts", Fn: unbound("puts")}},
	{"describe", &Builtin{Name: "describe", Fn: builtinDescribe}},
	{"builtins", &Builtin{Name: "builtins"}},
	{"print", &Builtin{Name: "print", Fn: unbound("print")}},
	{"exec", &Builtin{Name: "exec", Fn: unbound("exec")}},
	{"get_args", &Builtin{Name: "get_args", Fn: unbound("get_args")}},
	{"get_env", &Builtin{Name: "get_env", Fn: unbound("get_env")}},
	{"get_envs", &Builtin{Name: "get_envs", Fn: unbound("get_envs")}},
	{"get_unix_time", &Builtin{Name: "get_unix_time", Fn: unbound("get_unix_time")}},
	{"get_platform_info", &Builtin{Name: "get_platform_info", Fn: unbound("get_platform_info")}},
	{"sleep", &Builtin{Name: "sleep", Fn: unbound("sleep")}},
	{"thread_join", &Builtin{Name: "thread_join", Fn: unbound("thread_join")}},
	{"native_load", &Builtin{Name: "native_load", Fn: unbound("native_load")}},
}

// builtinBuiltins reads Builtins, so it is attached here rather than in
// the table literal, where it would form an initialization cycle.
func init() {
	GetBuiltinByName("builtins").Fn = builtinBuiltins
}

// unbound is the placeholder Fn for a builtin that requires a host
// collaborator (Platform, FFI table, thread table) not available at
// package-load time.
func unbound(name string) BuiltinFunction {
	return func(_ ...Object) (Object, error) {
		return nil, fmt.Errorf("builtin %q is not bound to a host collaborator", name)
	}
}

// CloneBuiltins returns a fresh copy of [Builtins], same names and order,
// safe for a VM instance to rebind without mutating the package-level
// table shared by every other VM.
func CloneBuiltins() []*Builtin {
	out := make([]*Builtin, len(Builtins))
	for i, def := range Builtins {
		b := *def.Builtin
		out[i] = &b
	}
	return out
}

// Rebind replaces the Fn of the named builtin in a VM's own builtins
// slice (as produced by [CloneBuiltins]). It is a no-op if the name is
// not present, which should not happen for names drawn from [Builtins].
func Rebind(builtins []*Builtin, name string, fn BuiltinFunction) {
	for _, b := range builtins {
		if b.Name == name {
			b.Fn = fn
			return
		}
	}
}

func builtinLen(args ...Object) (Object, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("wrong number of arguments to `len`: got=%d, want=1", len(args))
	}
	switch arg := args[0].(type) {
	case *Str:
		return &Int{Value: int64(len([]rune(arg.Value)))}, nil
	case *Array:
		return &Int{Value: int64(len(arg.Elements))}, nil
	case *Hash:
		return &Int{Value: int64(len(arg.Pairs))}, nil
	default:
		return nil, fmt.Errorf("argument to `len` not supported, got %s", args[0].Type())
	}
}

func builtinFirst(args ...Object) (Object, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("wrong number of arguments to `first`: got=%d, want=1", len(args))
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return nil, fmt.Errorf("argument to `first` not supported, got %s", args[0].Type())
	}
	if len(arr.Elements) == 0 {
		return &Noval{}, nil
	}
	return arr.Elements[0], nil
}

func builtinLast(args ...Object) (Object, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("wrong number of arguments to `last`: got=%d, want=1", len(args))
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return nil, fmt.Errorf("argument to `last` not supported, got %s", args[0].Type())
	}
	if len(arr.Elements) == 0 {
		return &Noval{}, nil
	}
	return arr.Elements[len(arr.Elements)-1], nil
}

func builtinRest(args ...Object) (Object, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("wrong number of arguments to `rest`: got=%d, want=1", len(args))
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return nil, fmt.Errorf("argument to `rest` not supported, got %s", args[0].Type())
	}
	length := len(arr.Elements)
	if length == 0 {
		return &Noval{}, nil
	}
	newElements := make([]Object, length-1)
	copy(newElements, arr.Elements[1:length])
	return &Array{Elements: newElements}, nil
}

func builtinPush(args ...Object) (Object, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("wrong number of arguments to `push`: got=%d, want=2", len(args))
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return nil, fmt.Errorf("argument to `push` not supported, got %s", args[0].Type())
	}
	length := len(arr.Elements)
	newElements := make([]Object, length+1)
	copy(newElements, arr.Elements)
	newElements[length] = args[1]
	return &Array{Elements: newElements}, nil
}

func builtinDescribe(args ...Object) (Object, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("wrong number of arguments to `describe`: got=%d, want=1", len(args))
	}
	return &Str{Value: fmt.Sprintf("%s: %s", TypeName(args[0]), args[0].Describe())}, nil
}

func builtinBuiltins(args ...Object) (Object, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("wrong number of arguments to `builtins`: got=%d, want=0", len(args))
	}
	names := make([]string, 0, len(Builtins))
	for _, def := range Builtins {
		names = append(names, def.Name)
	}
	sort.Strings(names)
	elems := make([]Object, len(names))
	for i, n := range names {
		elems[i] = &Str{Value: n}
	}
	return &Array{Name: "builtins()", Elements: elems}, nil
}

// GetBuiltinByName retrieves a built-in function definition by its name
// from the predefined [Builtins] collection.
func GetBuiltinByName(name string) *Builtin {
	for _, def := range Builtins {
		if def.Name == name {
			return def.Builtin
		}
	}
	return nil
}

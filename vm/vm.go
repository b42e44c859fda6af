// Package vm implements the fetch-decode-execute loop that runs compiled
// bytecode.
//
// A VM owns a data stack (doubling as the operand stack and, per frame,
// local-variable storage addressed relative to a base pointer), a call
// stack of [Frame] values, a global pool, and the collaborators that let
// bytecode reach outside the interpreter: a [platform.Platform], an
// [ffi.Table] for native modules, and a [ThreadTable] for ICallThread.
package vm

import (
	"fmt"

	"github.com/dr8co/quill/code"
	"github.com/dr8co/quill/compiler"
	"github.com/dr8co/quill/ffi"
	"github.com/dr8co/quill/internal/config"
	"github.com/dr8co/quill/object"
	"github.com/dr8co/quill/platform"
)

// defaultConfig is the source of truth for the package-level size
// tunables below. No constructor takes a config.Config; every VM reads
// these variables.
var defaultConfig = config.Default()

var (
	// StackSize bounds the data stack; exceeding it raises DataStackOverflow.
	StackSize = defaultConfig.StackSize

	// GlobalsSize is the upper bound on global bindings — operands for
	// OpGetGlobal/OpSetGlobal are 16 bits wide, so this can never exceed
	// 65536.
	GlobalsSize = defaultConfig.GlobalsSize

	// MaxFrames bounds call depth; exceeding it raises CallStackOverflow.
	MaxFrames = defaultConfig.MaxFrames
)

var (
	trueObj  = &object.Bool{Value: true}
	falseObj = &object.Bool{Value: false}
	novalObj = &object.Noval{}
)

// VM executes the instructions and constants produced by package compiler.
type VM struct {
	constants []object.Object

	stack []object.Object
	sp    int

	globals []object.Object

	frames      []*Frame
	framesIndex int

	platform *platform.Platform
	ffi      *ffi.Table
	threads  *ThreadTable

	builtins []*object.Builtin
}

// New constructs a VM to run bytecode from a fresh global pool, wiring the
// builtin slots that depend on a host collaborator (print, exec,
// get_args, ...) to p.
func New(bytecode *compiler.Bytecode, p *platform.Platform) *VM {
	return NewWithGlobalStore(bytecode, make([]object.Object, GlobalsSize), p)
}

// NewWithGlobalStore constructs a VM reusing an existing global pool —
// used by the REPL to carry bindings across successive evaluations.
func NewWithGlobalStore(bytecode *compiler.Bytecode, globals []object.Object, p *platform.Platform) *VM {
	mainFn := &object.Subroutine{Instructions: bytecode.Instructions}
	mainClosure := &object.Closure{Subroutine: mainFn}
	mainFrame := NewFrame(mainClosure, 0)

	frames := make([]*Frame, MaxFrames)
	frames[0] = mainFrame

	v := &VM{
		constants:   bytecode.Constants,
		stack:       make([]object.Object, StackSize),
		globals:     globals,
		frames:      frames,
		framesIndex: 1,
		platform:    p,
		ffi:         ffi.NewTable(),
		threads:     NewThreadTable(),
	}
	v.bindBuiltins()
	return v
}

func (v *VM) bindBuiltins() {
	// vm keeps one builtins slice per VM instance so two VMs (e.g. a
	// parent and a thread spawned from it) never share Platform/FFI/
	// thread-table closures that capture instance-specific state.
	v.builtins = object.CloneBuiltins()

	object.Rebind(v.builtins, "puts", func(args ...object.Object) (object.Object, error) {
		for _, arg := range args {
			v.platform.Print(arg.Describe() + "\n")
		}
		return &object.Noval{}, nil
	})

	object.Rebind(v.builtins, "print", func(args ...object.Object) (object.Object, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("wrong number of arguments to `print`: got=%d, want=1", len(args))
		}
		v.platform.Print(args[0].Describe())
		return &object.Noval{}, nil
	})

	object.Rebind(v.builtins, "exec", func(args ...object.Object) (object.Object, error) {
		cmdArgs := make([]string, len(args))
		for i, a := range args {
			s, ok := a.(*object.Str)
			if !ok {
				return nil, fmt.Errorf("exec: argument %d is not a string", i)
			}
			cmdArgs[i] = s.Value
		}
		code, out, err := v.platform.Exec(cmdArgs)
		if err != nil {
			return nil, err
		}
		return &object.Array{Elements: []object.Object{
			&object.Int{Value: int64(code)},
			&object.Str{Value: string(out)},
		}}, nil
	})

	object.Rebind(v.builtins, "get_args", func(args ...object.Object) (object.Object, error) {
		raw := v.platform.GetArgs()
		elems := make([]object.Object, len(raw))
		for i, a := range raw {
			elems[i] = &object.Str{Value: a}
		}
		return &object.Array{Elements: elems}, nil
	})

	object.Rebind(v.builtins, "get_env", func(args ...object.Object) (object.Object, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("wrong number of arguments to `get_env`: got=%d, want=1", len(args))
		}
		name, ok := args[0].(*object.Str)
		if !ok {
			return nil, fmt.Errorf("get_env: argument must be a string")
		}
		val, ok := v.platform.GetEnv(name.Value)
		if !ok {
			return nil, fmt.Errorf("get_env: %s is not set", name.Value)
		}
		return &object.Str{Value: val}, nil
	})

	object.Rebind(v.builtins, "get_envs", func(args ...object.Object) (object.Object, error) {
		envs := v.platform.GetEnvs()
		elems := make([]object.Object, 0, len(envs))
		for k, val := range envs {
			elems = append(elems, &object.Str{Value: k + "=" + val})
		}
		return &object.Array{Elements: elems}, nil
	})

	object.Rebind(v.builtins, "get_unix_time", func(args ...object.Object) (object.Object, error) {
		return &object.Float{Value: v.platform.GetUnixTime()}, nil
	})

	object.Rebind(v.builtins, "get_platform_info", func(args ...object.Object) (object.Object, error) {
		info := v.platform.GetPlatformInfo()
		elems := make([]object.Object, len(info))
		for i, s := range info {
			elems[i] = &object.Str{Value: s}
		}
		return &object.Array{Elements: elems}, nil
	})

	object.Rebind(v.builtins, "sleep", func(args ...object.Object) (object.Object, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("wrong number of arguments to `sleep`: got=%d, want=1", len(args))
		}
		ms, ok := numeric(args[0])
		if !ok {
			return nil, fmt.Errorf("sleep: argument must be numeric")
		}
		v.platform.Sleep(ms)
		return &object.Noval{}, nil
	})

	object.Rebind(v.builtins, "thread_join", func(args ...object.Object) (object.Object, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("wrong number of arguments to `thread_join`: got=%d, want=1", len(args))
		}
		h, ok := args[0].(*object.Int)
		if !ok {
			return nil, fmt.Errorf("thread_join: argument must be an int handle")
		}
		res, ok := v.threads.Join(uint64(h.Value))
		if !ok {
			return nil, fmt.Errorf("thread_join: no thread with handle %d", h.Value)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Value, nil
	})

	object.Rebind(v.builtins, "native_load", func(args ...object.Object) (object.Object, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("wrong number of arguments to `native_load`: got=%d, want=1", len(args))
		}
		path, ok := args[0].(*object.Str)
		if !ok {
			return nil, fmt.Errorf("native_load: argument must be a string path")
		}
		handle, err := v.ffi.LoadPlugin(path.Value)
		if err != nil {
			return nil, err
		}
		return &object.NativeModuleRef{Handle: handle, Path: path.Value}, nil
	})
}

func numeric(obj object.Object) (float64, bool) {
	switch o := obj.(type) {
	case *object.Int:
		return float64(o.Value), true
	case *object.Float:
		return o.Value, true
	default:
		return 0, false
	}
}

func (v *VM) currentFrame() *Frame {
	return v.frames[v.framesIndex-1]
}

func (v *VM) pushFrame(f *Frame) error {
	if v.framesIndex >= MaxFrames {
		return newError(CallStackOverflow, code.OpCall, 0, "call stack exceeds %d frames", MaxFrames)
	}
	v.frames[v.framesIndex] = f
	v.framesIndex++
	return nil
}

func (v *VM) popFrame() *Frame {
	v.framesIndex--
	return v.frames[v.framesIndex]
}

func (v *VM) push(obj object.Object) error {
	if v.sp >= StackSize {
		return newError(DataStackOverflow, code.OpIllegal, v.currentFrame().ip, "data stack exceeds %d slots", StackSize)
	}
	v.stack[v.sp] = obj
	v.sp++
	return nil
}

func (v *VM) pop() object.Object {
	obj := v.stack[v.sp-1]
	v.sp--
	return obj
}

// LastPoppedStackElem returns the value last popped off the stack — the
// REPL uses this to print a statement's discarded result.
func (v *VM) LastPoppedStackElem() object.Object {
	return v.stack[v.sp]
}

// StackTrace renders the live data stack, bottom to top, one entry per
// line — used by the CLI's error reporter.
func (v *VM) StackTrace() string {
	var out string
	for i := 0; i < v.sp; i++ {
		if v.stack[i] == nil {
			out += fmt.Sprintf("%08x <unset>\n", i)
			continue
		}
		out += fmt.Sprintf("%08x %s\n", i, v.stack[i].Describe())
	}
	return out
}

// GlobalsDump renders every non-Noval global, one per line — used by the
// CLI's error reporter.
func (v *VM) GlobalsDump() string {
	var out string
	for i, obj := range v.globals {
		if obj == nil {
			continue
		}
		if _, ok := obj.(*object.Noval); ok {
			continue
		}
		out += fmt.Sprintf("%08x %s\n", i, obj.Describe())
	}
	return out
}

// Run drives the fetch-decode-execute loop to completion or the first
// unrecovered error.
func (v *VM) Run() error {
	for v.currentFrame().ip < len(v.currentFrame().Instructions())-1 {
		v.currentFrame().ip++

		ip := v.currentFrame().ip
		ins := v.currentFrame().Instructions()
		op := code.Opcode(ins[ip])

		switch op {
		case code.OpNoOp, code.OpBlockStart, code.OpBlockEnd:
			// advance only

		case code.OpIllegal:
			return newError(IllegalOperation, op, ip, "encountered an illegal instruction")

		case code.OpConstant:
			constIndex := code.ReadUint16(ins[ip+1:])
			v.currentFrame().ip += 2
			if err := v.push(v.constants[constIndex]); err != nil {
				return err
			}

		case code.OpTrue:
			if err := v.push(trueObj); err != nil {
				return err
			}
		case code.OpFalse:
			if err := v.push(falseObj); err != nil {
				return err
			}
		case code.OpNoval:
			if err := v.push(novalObj); err != nil {
				return err
			}

		case code.OpPop:
			v.pop()

		case code.OpAdd, code.OpSub, code.OpMul, code.OpDiv, code.OpMod,
			code.OpBitAnd, code.OpBitOr, code.OpLogicalAnd, code.OpLogicalOr,
			code.OpEqual, code.OpNotEqual, code.OpLessThan, code.OpLessEq,
			code.OpGreaterThan, code.OpGreaterEq:
			if err := v.executeBinaryOp(op); err != nil {
				return err
			}

		case code.OpNeg, code.OpLogicalNot:
			if err := v.executeUnaryOp(op); err != nil {
				return err
			}

		case code.OpPreIncr, code.OpPreDecr, code.OpPostIncr, code.OpPostDecr:
			if err := v.executeIncrDecr(op); err != nil {
				return err
			}

		case code.OpJump:
			pos := int(code.ReadUint16(ins[ip+1:]))
			v.currentFrame().ip = pos - 1

		case code.OpJumpNotTruthy:
			pos := int(code.ReadUint16(ins[ip+1:]))
			v.currentFrame().ip += 2
			condition := v.pop()
			if !object.IsTruthy(condition) {
				v.currentFrame().ip = pos - 1
			}

		case code.OpSetGlobal:
			idx := code.ReadUint16(ins[ip+1:])
			v.currentFrame().ip += 2
			if int(idx) >= len(v.globals) {
				return newError(GlobalPoolSizeExceeded, op, ip, "global index %d exceeds pool size %d", idx, len(v.globals))
			}
			v.globals[idx] = v.pop()

		case code.OpGetGlobal:
			idx := code.ReadUint16(ins[ip+1:])
			v.currentFrame().ip += 2
			if int(idx) >= len(v.globals) {
				return newError(GlobalPoolSizeExceeded, op, ip, "global index %d exceeds pool size %d", idx, len(v.globals))
			}
			obj := v.globals[idx]
			if obj == nil {
				obj = novalObj
			}
			if err := v.push(obj); err != nil {
				return err
			}

		case code.OpSetLocal:
			localIndex := int(ins[ip+1])
			v.currentFrame().ip++
			frame := v.currentFrame()
			v.stack[frame.basePointer+localIndex] = v.pop()

		case code.OpGetLocal:
			localIndex := int(ins[ip+1])
			v.currentFrame().ip++
			frame := v.currentFrame()
			if err := v.push(v.stack[frame.basePointer+localIndex]); err != nil {
				return err
			}

		case code.OpGetFree:
			freeIndex := int(code.ReadUint16(ins[ip+1:]))
			v.currentFrame().ip += 2
			cl := v.currentFrame().cl
			if freeIndex >= len(cl.Free) {
				return newError(UnknownFreeVariable, op, ip, "free variable index %d out of range", freeIndex)
			}
			if err := v.push(cl.Free[freeIndex]); err != nil {
				return err
			}

		case code.OpGetBuiltin:
			builtinIndex := int(code.ReadUint16(ins[ip+1:]))
			v.currentFrame().ip += 2
			if builtinIndex >= len(v.builtins) {
				return newError(UnresolvedBuiltinFunction, op, ip, "unresolved builtin index %d", builtinIndex)
			}
			if err := v.push(v.builtins[builtinIndex]); err != nil {
				return err
			}

		case code.OpCurrentClosure:
			cl := v.currentFrame().cl
			if err := v.push(cl); err != nil {
				return err
			}

		case code.OpArray:
			numElements := int(code.ReadUint16(ins[ip+1:]))
			v.currentFrame().ip += 2
			arr := v.buildArray(v.sp-numElements, v.sp)
			v.sp -= numElements
			if err := v.push(arr); err != nil {
				return err
			}

		case code.OpHash:
			numElements := int(code.ReadUint16(ins[ip+1:]))
			v.currentFrame().ip += 2
			h, err := v.buildHash(v.sp-numElements, v.sp)
			if err != nil {
				return err
			}
			v.sp -= numElements
			if err := v.push(h); err != nil {
				return err
			}

		case code.OpIndex:
			index := v.pop()
			left := v.pop()
			result, err := v.executeIndex(left, index)
			if err != nil {
				return err
			}
			if err := v.push(result); err != nil {
				return err
			}

		case code.OpSetIndex:
			value := v.pop()
			index := v.pop()
			container := v.pop()
			if err := v.executeSetIndex(container, index, value); err != nil {
				return err
			}
			if err := v.push(container); err != nil {
				return err
			}

		case code.OpClosure:
			constIndex := int(code.ReadUint16(ins[ip+1:]))
			numFree := int(code.ReadUint16(ins[ip+3:]))
			v.currentFrame().ip += 4
			if err := v.pushClosure(constIndex, numFree); err != nil {
				return err
			}

		case code.OpCall:
			numArgs := int(code.ReadUint16(ins[ip+1:]))
			v.currentFrame().ip += 2
			if err := v.executeCall(numArgs); err != nil {
				return err
			}

		case code.OpCallThread:
			numArgs := int(code.ReadUint16(ins[ip+1:]))
			v.currentFrame().ip += 2
			if err := v.executeCallThread(numArgs); err != nil {
				return err
			}

		case code.OpReturnValue:
			returnValue := v.pop()
			frame := v.popFrame()
			v.sp = frame.basePointer - 1
			if err := v.push(returnValue); err != nil {
				return err
			}

		case code.OpReturn:
			frame := v.popFrame()
			v.sp = frame.basePointer - 1
			if err := v.push(novalObj); err != nil {
				return err
			}

		case code.OpIter:
			collection := v.pop()
			it := object.NewIterator(collection)
			if it == nil {
				return newError(IterationError, op, ip, "cannot iterate over %s", collection.Type())
			}
			if err := v.push(it); err != nil {
				return err
			}

		case code.OpIterNext:
			endPos := int(code.ReadUint16(ins[ip+1:]))
			v.currentFrame().ip += 2
			it, ok := v.stack[v.sp-1].(*object.Iterator)
			if !ok {
				return newError(IterationError, op, ip, "OpIterNext expects an iterator on top of the stack")
			}
			next, hasNext := it.Next()
			if !hasNext {
				v.pop()
				v.currentFrame().ip = endPos - 1
			} else if err := v.push(next); err != nil {
				return err
			}

		case code.OpAssertFail:
			failVal := v.pop()
			return newError(AssertionError, op, ip, "%s", failVal.Describe())

		case code.OpShell, code.OpShellRaw:
			shellStr := v.pop()
			s, ok := shellStr.(*object.Str)
			if !ok {
				return newError(TypeError, op, ip, "shell operand must be a string")
			}
			result, err := v.executeShell(s.Value, op == code.OpShellRaw)
			if err != nil {
				return err
			}
			if err := v.push(result); err != nil {
				return err
			}

		default:
			return newError(InstructionNotImplemented, op, ip, "opcode not implemented")
		}
	}

	return nil
}

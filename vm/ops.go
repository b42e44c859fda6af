package vm

import (
	"github.com/dr8co/quill/alu"
	"github.com/dr8co/quill/code"
	"github.com/dr8co/quill/object"
)

func boolObj(b bool) *object.Bool {
	if b {
		return trueObj
	}
	return falseObj
}

func (v *VM) executeBinaryOp(op code.Opcode) error {
	right := v.pop()
	left := v.pop()

	var result object.Object
	var err error

	switch op {
	case code.OpAdd:
		result, err = alu.Add(left, right)
	case code.OpSub:
		result, err = alu.Sub(left, right)
	case code.OpMul:
		result, err = alu.Mul(left, right)
	case code.OpDiv:
		result, err = alu.Div(left, right)
	case code.OpMod:
		result, err = alu.Mod(left, right)
	case code.OpBitAnd:
		result, err = alu.BitAnd(left, right)
	case code.OpBitOr:
		result, err = alu.BitOr(left, right)
	case code.OpLogicalAnd:
		result = alu.LogicalAnd(left, right)
	case code.OpLogicalOr:
		result = alu.LogicalOr(left, right)
	case code.OpEqual:
		result = boolObj(object.Equal(left, right))
	case code.OpNotEqual:
		result = boolObj(!object.Equal(left, right))
	case code.OpLessThan:
		result, err = alu.Lt(left, right)
	case code.OpLessEq:
		result, err = alu.Lte(left, right)
	case code.OpGreaterThan:
		result, err = alu.Gt(left, right)
	case code.OpGreaterEq:
		result, err = alu.Gte(left, right)
	default:
		return newError(IllegalOperation, op, v.currentFrame().ip, "unknown binary operator")
	}

	if err != nil {
		return v.wrapALUError(op, err)
	}
	return v.push(result)
}

func (v *VM) executeUnaryOp(op code.Opcode) error {
	operand := v.pop()

	var result object.Object
	var err error

	switch op {
	case code.OpNeg:
		result, err = alu.Neg(operand)
	case code.OpLogicalNot:
		result = alu.LogicalNot(operand)
	default:
		return newError(IllegalOperation, op, v.currentFrame().ip, "unknown unary operator")
	}

	if err != nil {
		return v.wrapALUError(op, err)
	}
	return v.push(result)
}

func (v *VM) wrapALUError(op code.Opcode, err error) error {
	ip := v.currentFrame().ip
	if aluErr, ok := err.(*alu.Error); ok {
		switch aluErr.Kind {
		case alu.Overflow:
			return newError(OverflowError, op, ip, "%s", aluErr.Message)
		case alu.DivideByZero:
			return newError(DivideByZeroError, op, ip, "%s", aluErr.Message)
		default:
			return newError(InvalidOperandTypes, op, ip, "%s", aluErr.Message)
		}
	}
	return newError(InvalidOperandTypes, op, ip, "%s", err.Error())
}

// executeIncrDecr handles the four pre/post increment/decrement opcodes.
// Each expects the target's current value already pushed by the
// compiler immediately beforehand, and pushes two values: the
// expression's result, the new value (pre-) or the old value (post-),
// and above it the new value for the OpSetLocal/OpSetGlobal the
// compiler emits right after to store back into the variable's slot.
func (v *VM) executeIncrDecr(op code.Opcode) error {
	operand := v.pop()
	isPrefix := op == code.OpPreIncr || op == code.OpPreDecr
	isDecr := op == code.OpPreDecr || op == code.OpPostDecr

	var oldVal, newVal object.Object
	switch o := operand.(type) {
	case *object.Int:
		delta := int64(1)
		if isDecr {
			delta = -1
		}
		oldVal = o
		newVal = &object.Int{Value: o.Value + delta}
	case *object.Float:
		delta := 1.0
		if isDecr {
			delta = -1.0
		}
		oldVal = o
		newVal = &object.Float{Value: o.Value + delta}
	default:
		return newError(TypeError, op, v.currentFrame().ip, "++/-- operand must be numeric, got %s", operand.Type())
	}

	// result (beneath) then store-value (on top), per the compiler's
	// contract: emitStore pops only the store-value, leaving the
	// expression's result on the stack.
	result := oldVal
	if isPrefix {
		result = newVal
	}
	if err := v.push(result); err != nil {
		return err
	}
	return v.push(newVal)
}

func (v *VM) buildArray(startIndex, endIndex int) object.Object {
	elements := make([]object.Object, endIndex-startIndex)
	copy(elements, v.stack[startIndex:endIndex])
	return &object.Array{Elements: elements}
}

func (v *VM) buildHash(startIndex, endIndex int) (object.Object, error) {
	pairs := make(map[object.HashKey]object.HashPair)

	for i := startIndex; i < endIndex; i += 2 {
		key := v.stack[i]
		value := v.stack[i+1]

		hashable, ok := key.(object.Hashable)
		if !ok {
			return nil, newError(TypeError, code.OpHash, v.currentFrame().ip, "unusable as hash key: %s", key.Type())
		}
		pairs[hashable.HashKey()] = object.HashPair{Key: key, Value: value}
	}

	return &object.Hash{Pairs: pairs}, nil
}

func (v *VM) executeIndex(left, index object.Object) (object.Object, error) {
	switch {
	case left.Type() == object.ArrayType && index.Type() == object.IntType:
		return v.executeArrayIndex(left, index)
	case left.Type() == object.HashType:
		return v.executeHashIndex(left, index)
	case left.Type() == object.StrType && index.Type() == object.IntType:
		return v.executeStrIndex(left, index)
	default:
		return nil, newError(IndexError, code.OpIndex, v.currentFrame().ip, "index operator not supported: %s", left.Type())
	}
}

func (v *VM) executeArrayIndex(array, index object.Object) (object.Object, error) {
	arr := array.(*object.Array)
	i := index.(*object.Int).Value
	max := int64(len(arr.Elements) - 1)
	if i < 0 || i > max {
		return nil, newError(IndexError, code.OpIndex, v.currentFrame().ip, "array index %d out of range", i)
	}
	return arr.Elements[i], nil
}

func (v *VM) executeStrIndex(str, index object.Object) (object.Object, error) {
	s := str.(*object.Str)
	runes := []rune(s.Value)
	i := index.(*object.Int).Value
	max := int64(len(runes) - 1)
	if i < 0 || i > max {
		return nil, newError(IndexError, code.OpIndex, v.currentFrame().ip, "string index %d out of range", i)
	}
	return &object.Char{Value: runes[i]}, nil
}

func (v *VM) executeHashIndex(hash, index object.Object) (object.Object, error) {
	h := hash.(*object.Hash)

	key, ok := index.(object.Hashable)
	if !ok {
		return nil, newError(IndexError, code.OpIndex, v.currentFrame().ip, "unusable as hash key: %s", index.Type())
	}

	pair, ok := h.Pairs[key.HashKey()]
	if !ok {
		return nil, newError(IndexError, code.OpIndex, v.currentFrame().ip, "key not found: %s", index.Describe())
	}
	return pair.Value, nil
}

func (v *VM) executeSetIndex(container, index, value object.Object) error {
	switch c := container.(type) {
	case *object.Array:
		i, ok := index.(*object.Int)
		if !ok {
			return newError(IndexError, code.OpSetIndex, v.currentFrame().ip, "array index must be an int")
		}
		if i.Value < 0 || i.Value > int64(len(c.Elements)-1) {
			return newError(IndexError, code.OpSetIndex, v.currentFrame().ip, "array index %d out of range", i.Value)
		}
		c.Elements[i.Value] = value
		return nil
	case *object.Hash:
		key, ok := index.(object.Hashable)
		if !ok {
			return newError(IndexError, code.OpSetIndex, v.currentFrame().ip, "unusable as hash key: %s", index.Type())
		}
		c.Pairs[key.HashKey()] = object.HashPair{Key: index, Value: value}
		return nil
	default:
		return newError(IndexError, code.OpSetIndex, v.currentFrame().ip, "index assignment not supported: %s", container.Type())
	}
}

func (v *VM) pushClosure(constIndex, numFree int) error {
	constant := v.constants[constIndex]
	subroutine, ok := constant.(*object.Subroutine)
	if !ok {
		return newError(TypeError, code.OpClosure, v.currentFrame().ip, "not a subroutine: %+v", constant)
	}

	free := make([]object.Object, numFree)
	for i := 0; i < numFree; i++ {
		free[i] = v.stack[v.sp-numFree+i]
	}
	v.sp -= numFree

	closure := &object.Closure{Subroutine: subroutine, Free: free}
	return v.push(closure)
}

func (v *VM) executeCall(numArgs int) error {
	callee := v.stack[v.sp-1-numArgs]

	switch callee := callee.(type) {
	case *object.Closure:
		return v.callClosure(callee, numArgs)
	case *object.Builtin:
		return v.callBuiltin(callee, numArgs)
	case *object.NativeModuleRef:
		return v.callNativeModule(callee, numArgs)
	default:
		return newError(TypeError, code.OpCall, v.currentFrame().ip, "calling non-function and non-built-in: %s", callee.Type())
	}
}

func (v *VM) callClosure(cl *object.Closure, numArgs int) error {
	if numArgs != cl.Subroutine.NumParameters {
		return newError(FunctionArgumentsError, code.OpCall, v.currentFrame().ip,
			"wrong number of arguments: want=%d, got=%d", cl.Subroutine.NumParameters, numArgs)
	}

	frame := NewFrame(cl, v.sp-numArgs)
	if err := v.pushFrame(frame); err != nil {
		return err
	}

	v.sp = frame.basePointer + cl.Subroutine.NumLocals
	return nil
}

func (v *VM) callBuiltin(builtin *object.Builtin, numArgs int) error {
	args := v.stack[v.sp-numArgs : v.sp]

	result, err := builtin.Fn(args...)
	v.sp = v.sp - numArgs - 1

	if err != nil {
		return newError(BuiltinFunctionError, code.OpCall, v.currentFrame().ip, "%s", err.Error())
	}
	if result == nil {
		result = &object.Noval{}
	}
	return v.push(result)
}

func (v *VM) callNativeModule(ref *object.NativeModuleRef, numArgs int) error {
	if numArgs < 1 {
		return newError(FunctionArgumentsError, code.OpCall, v.currentFrame().ip, "native module call requires a method name argument")
	}
	args := v.stack[v.sp-numArgs : v.sp]
	methodObj, ok := args[0].(*object.Str)
	if !ok {
		return newError(TypeError, code.OpCall, v.currentFrame().ip, "native module method name must be a string")
	}

	result, err := v.ffi.Exec(ref.Handle, methodObj.Value, args[1:])
	v.sp = v.sp - numArgs - 1

	if err != nil {
		return newError(BuiltinFunctionError, code.OpCall, v.currentFrame().ip, "%s", err.Error())
	}
	if result == nil {
		result = &object.Noval{}
	}
	return v.push(result)
}

// executeCallThread implements ICallThread: it snapshots the callee and
// arguments, spawns a goroutine running a VM clone with its own stacks
// and a copy of the global pool's slots (the objects in them are shared,
// not copied) but sharing the constant pool,
// and immediately pushes the handle so the calling frame can keep going
// without blocking.
func (v *VM) executeCallThread(numArgs int) error {
	callee := v.stack[v.sp-1-numArgs]
	args := make([]object.Object, numArgs)
	copy(args, v.stack[v.sp-numArgs:v.sp])
	v.sp = v.sp - numArgs - 1

	cl, ok := callee.(*object.Closure)
	if !ok {
		return newError(TypeError, code.OpCallThread, v.currentFrame().ip, "thread callee must be a subroutine, got %s", callee.Type())
	}
	if len(args) != cl.Subroutine.NumParameters {
		return newError(FunctionArgumentsError, code.OpCallThread, v.currentFrame().ip,
			"wrong number of arguments: want=%d, got=%d", cl.Subroutine.NumParameters, len(args))
	}

	globalsCopy := make([]object.Object, len(v.globals))
	copy(globalsCopy, v.globals)

	child := &VM{
		constants:   v.constants,
		stack:       make([]object.Object, StackSize),
		globals:     globalsCopy,
		frames:      make([]*Frame, MaxFrames),
		framesIndex: 0,
		platform:    v.platform,
		ffi:         v.ffi,
		threads:     v.threads,
	}
	child.bindBuiltins()

	handle, ch := v.threads.Spawn()

	go func() {
		// Wrap the thread entry point the same way NewWithGlobalStore wraps
		// the top-level program, so the body's closing OpReturn/OpReturnValue
		// pops back to a surviving frame instead of underflowing frames[-1].
		mainFn := &object.Subroutine{}
		mainClosure := &object.Closure{Subroutine: mainFn}
		mainFrame := NewFrame(mainClosure, 0)
		child.frames[0] = mainFrame
		child.framesIndex = 1
		child.sp = 0

		var err error
		if err = child.push(cl); err == nil {
			for _, a := range args {
				if err = child.push(a); err != nil {
					break
				}
			}
		}
		if err == nil {
			err = child.executeCall(len(args))
		}
		if err == nil {
			err = child.Run()
		}

		result := object.Object(&object.Noval{})
		if err == nil && child.sp > 0 {
			result = child.stack[child.sp-1]
		}
		ch <- ThreadResult{Value: result, Err: err}
	}()

	return v.push(&object.Int{Value: int64(handle)})
}

func (v *VM) executeShell(command string, raw bool) (object.Object, error) {
	exitCode, out, err := v.platform.Exec([]string{"sh", "-c", command})
	if err != nil {
		return nil, newError(BuiltinFunctionError, code.OpShell, v.currentFrame().ip, "%s", err.Error())
	}

	var output object.Object
	if raw {
		output = &object.ByteBuffer{Bytes: out, BigEndian: true}
	} else {
		output = &object.Str{Value: string(out)}
	}

	return &object.Array{Elements: []object.Object{
		&object.Int{Value: int64(exitCode)},
		output,
	}}, nil
}

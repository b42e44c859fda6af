// Package code provides bytecode instruction definitions and utilities for the compiler and virtual machine.
//
// This package defines the bytecode instruction set used by the compiler to generate executable code
// and by the virtual machine to execute programs.
//
// It includes opcode definitions, instruction encoding
// and decoding functions, and utilities for working with bytecode instructions.
package code

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Instructions is a slice of bytes representing a sequence of instructions.
type Instructions []byte

// Opcode represents a single bytecode instruction used by the compiler and virtual machine.
type Opcode byte

// Bytecode instruction opcodes.
//
// Each opcode represents a specific operation that the virtual machine can execute.
// Instructions may have zero or more operands encoded after the opcode byte.
const (
	// OpConstant pushes a constant from the constant pool onto the stack.
	//
	// Operands: [constant_index:2]
	OpConstant Opcode = iota

	// OpPop removes the top value from the stack and discards it.
	OpPop

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	// Bitwise
	OpBitOr
	OpBitAnd
	OpNeg // bitwise complement, unary

	// Comparison
	OpEqual
	OpNotEqual
	OpLessThan
	OpLessEq
	OpGreaterThan
	OpGreaterEq

	// Logical
	OpLogicalAnd
	OpLogicalOr
	OpLogicalNot

	// Pre/post increment and decrement. Each pops the loaded value and pushes
	// two values: the value to store (top) and the expression's result value
	// (underneath), so the compiler can follow with a Store instruction and
	// still leave the correct result on the stack.
	OpPreIncr
	OpPreDecr
	OpPostIncr
	OpPostDecr

	// Singleton value pushes
	OpTrue
	OpFalse
	OpNoval

	// Control flow
	OpJumpNotTruthy // Operands: [jump_position:2]
	OpJump          // Operands: [jump_position:2]

	// Globals
	OpGetGlobal // Operands: [global_index:2]
	OpSetGlobal // Operands: [global_index:2]

	// Locals
	OpGetLocal // Operands: [local_index:1]
	OpSetLocal // Operands: [local_index:1]

	// Free variables
	OpGetFree // Operands: [free_index:2]

	// Builtins
	OpGetBuiltin // Operands: [builtin_index:2]

	// Data structures
	OpArray // Operands: [element_count:2]
	OpHash  // Operands: [pair_count*2:2]

	// Indexing
	OpIndex    // Stack: [collection, index] -> [collection[index]]
	OpSetIndex // Stack: [collection, index, value] -> [collection]

	// Calls
	OpCall       // Operands: [num_args:2]
	OpCallThread // Operands: [num_args:2]

	// Returns
	OpReturnValue
	OpReturn

	// Closures
	OpClosure        // Operands: [constant_index:2, num_free:2]
	OpCurrentClosure // pushes the currently executing closure, for recursion

	// Iteration
	OpIter     // Stack: [collection] -> [iterator]
	OpIterNext // Operands: [end_position:2]; peeks the iterator, pushes next or jumps

	// Assertions
	OpAssertFail

	// Block markers, no-ops reserved for future scoping optimizations
	OpBlockStart
	OpBlockEnd

	// Shell-out
	OpShell
	OpShellRaw

	// OpNoOp advances the instruction pointer without effect.
	OpNoOp

	// OpIllegal marks an invalid/unreachable instruction.
	OpIllegal
)

// Definition represents an instruction definition with its name and operand widths.
type Definition struct {
	// The name of the instruction.
	Name string

	// OperandWidths specifies the number of bytes each operand of an instruction occupies.
	OperandWidths []int
}

// definitions is a map of opcodes to their definitions.
var definitions = map[Opcode]*Definition{
	OpConstant: {"OpConstant", []int{2}},
	OpPop:      {"OpPop", []int{}},

	OpAdd: {"OpAdd", []int{}},
	OpSub: {"OpSub", []int{}},
	OpMul: {"OpMul", []int{}},
	OpDiv: {"OpDiv", []int{}},
	OpMod: {"OpMod", []int{}},

	OpBitOr: {"OpBitOr", []int{}},
	OpBitAnd: {"OpBitAnd", []int{}},
	OpNeg:   {"OpNeg", []int{}},

	OpEqual:       {"OpEqual", []int{}},
	OpNotEqual:    {"OpNotEqual", []int{}},
	OpLessThan:    {"OpLessThan", []int{}},
	OpLessEq:      {"OpLessEq", []int{}},
	OpGreaterThan: {"OpGreaterThan", []int{}},
	OpGreaterEq:   {"OpGreaterEq", []int{}},

	OpLogicalAnd: {"OpLogicalAnd", []int{}},
	OpLogicalOr:  {"OpLogicalOr", []int{}},
	OpLogicalNot: {"OpLogicalNot", []int{}},

	OpPreIncr:   {"OpPreIncr", []int{}},
	OpPreDecr:   {"OpPreDecr", []int{}},
	OpPostIncr:  {"OpPostIncr", []int{}},
	OpPostDecr:  {"OpPostDecr", []int{}},

	OpTrue:  {"OpTrue", []int{}},
	OpFalse: {"OpFalse", []int{}},
	OpNoval: {"OpNoval", []int{}},

	OpJumpNotTruthy: {"OpJumpNotTruthy", []int{2}},
	OpJump:          {"OpJump", []int{2}},

	OpGetGlobal: {"OpGetGlobal", []int{2}},
	OpSetGlobal: {"OpSetGlobal", []int{2}},

	OpGetLocal: {"OpGetLocal", []int{1}},
	OpSetLocal: {"OpSetLocal", []int{1}},

	OpGetFree: {"OpGetFree", []int{2}},

	OpGetBuiltin: {"OpGetBuiltin", []int{2}},

	OpArray: {"OpArray", []int{2}},
	OpHash:  {"OpHash", []int{2}},

	OpIndex:    {"OpIndex", []int{}},
	OpSetIndex: {"OpSetIndex", []int{}},

	OpCall:       {"OpCall", []int{2}},
	OpCallThread: {"OpCallThread", []int{2}},

	OpReturnValue: {"OpReturnValue", []int{}},
	OpReturn:      {"OpReturn", []int{}},

	OpClosure:        {"OpClosure", []int{2, 2}},
	OpCurrentClosure: {"OpCurrentClosure", []int{}},

	OpIter:     {"OpIter", []int{}},
	OpIterNext: {"OpIterNext", []int{2}},

	OpAssertFail: {"OpAssertFail", []int{}},

	OpBlockStart: {"OpBlockStart", []int{}},
	OpBlockEnd:   {"OpBlockEnd", []int{}},

	OpShell:    {"OpShell", []int{}},
	OpShellRaw: {"OpShellRaw", []int{}},

	OpNoOp:    {"OpNoOp", []int{}},
	OpIllegal: {"OpIllegal", []int{}},
}

// Lookup returns the [Definition] for the given [Opcode].
func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Make creates a byte slice representing an instruction using the provided opcode and operands.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}
	instructionLen := 1
	for _, w := range def.OperandWidths {
		instructionLen += w
	}
	instruction := make([]byte, instructionLen)
	instruction[0] = byte(op)
	offset := 1
	for i, operand := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 1:
			instruction[offset] = byte(operand)
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(operand))
		}
		offset += width
	}
	return instruction
}

// String provides a human-readable string representation of the [Instructions], formatted with opcodes and operands.
func (ins Instructions) String() string {
	var out strings.Builder

	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			_, _ = fmt.Fprintf(&out, "ERROR: %s\n", err)
			i++
			continue
		}
		operands, read := ReadOperands(def, ins[i+1:])
		_, _ = fmt.Fprintf(&out, "%04d %s\n", i, ins.fmtInstruction(def, operands))
		i += read + 1
	}

	return out.String()
}

// fmtInstruction formats an instruction with its operands into a human-readable string representation.
func (ins Instructions) fmtInstruction(def *Definition, operands []int) string {
	operandCount := len(def.OperandWidths)

	if len(operands) != operandCount {
		return fmt.Sprintf("ERROR: operand len %d does not match defined %d\n", len(operands), operandCount)
	}

	switch operandCount {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	}
	return fmt.Sprintf("ERROR: unhandled operandCount for %s\n", def.Name)
}

// ReadOperands decodes operands from the specified instructions based
// on the definition and returns them with the total bytes read.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 1:
			operands[i] = int(ReadUint8(ins[offset:]))
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		}
		offset += width
	}
	return operands, offset
}

// ReadUint16 decodes the first two bytes of the provided [Instructions] as uint16 in big-endian format.
func ReadUint16(ins Instructions) uint16 {
	return binary.BigEndian.Uint16(ins)
}

// ReadUint8 extracts the first byte from the provided [Instructions] slice and returns it as uint8.
func ReadUint8(ins Instructions) uint8 { return ins[0] }

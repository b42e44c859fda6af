package vm

import (
	"fmt"

	"github.com/dr8co/quill/code"
)

// ErrorKind classifies a runtime failure raised by the dispatch loop.
type ErrorKind int

const (
	IPOutOfBounds ErrorKind = iota
	CallStackOverflow
	CallStackUnderflow
	DataStackOverflow
	DataStackUnderflow
	InvalidGlobalIndex
	GlobalPoolSizeExceeded
	StackCorruption
	IllegalOperation
	InvalidOperandTypes
	InstructionNotImplemented
	DivideByZeroError
	UnresolvedBuiltinFunction
	BuiltinFunctionError
	TypeError
	UnknownFreeVariable
	FunctionArgumentsError
	AssertionError
	IndexError
	OverflowError
	IterationError
)

func (k ErrorKind) String() string {
	switch k {
	case IPOutOfBounds:
		return "IPOutOfBounds"
	case CallStackOverflow:
		return "CallStackOverflow"
	case CallStackUnderflow:
		return "CallStackUnderflow"
	case DataStackOverflow:
		return "DataStackOverflow"
	case DataStackUnderflow:
		return "DataStackUnderflow"
	case InvalidGlobalIndex:
		return "InvalidGlobalIndex"
	case GlobalPoolSizeExceeded:
		return "GlobalPoolSizeExceeded"
	case StackCorruption:
		return "StackCorruption"
	case IllegalOperation:
		return "IllegalOperation"
	case InvalidOperandTypes:
		return "InvalidOperandTypes"
	case InstructionNotImplemented:
		return "InstructionNotImplemented"
	case DivideByZeroError:
		return "DivideByZeroError"
	case UnresolvedBuiltinFunction:
		return "UnresolvedBuiltinFunction"
	case BuiltinFunctionError:
		return "BuiltinFunctionError"
	case TypeError:
		return "TypeError"
	case UnknownFreeVariable:
		return "UnknownFreeVariable"
	case FunctionArgumentsError:
		return "FunctionArgumentsError"
	case AssertionError:
		return "AssertionError"
	case IndexError:
		return "IndexError"
	case OverflowError:
		return "OverflowError"
	case IterationError:
		return "IterationError"
	default:
		return "Unknown"
	}
}

// Error is a typed runtime failure, carrying the instruction pointer and
// offending opcode so the CLI can report a useful trace.
type Error struct {
	Kind    ErrorKind
	Message string
	Opcode  code.Opcode
	Pos     int
}

func (e *Error) Error() string {
	name := "?"
	if def, err := code.Lookup(byte(e.Opcode)); err == nil {
		name = def.Name
	}
	return fmt.Sprintf("%s: %s (at %d, op=%s)", e.Kind, e.Message, e.Pos, name)
}

func newError(kind ErrorKind, op code.Opcode, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Opcode: op, Pos: pos}
}

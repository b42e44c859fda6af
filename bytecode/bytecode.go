// Package bytecode persists a compiler.Bytecode to a binary file and
// reads it back.
//
// Layout: 4-byte magic "QLBC", 1-byte format version, 2-byte big-endian
// constant count, then one encoded constant per entry, then a 4-byte
// big-endian instruction-block length followed by the raw instruction
// bytes. Every multi-byte integer is big-endian, matching package
// code's own instruction encoding.
package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dr8co/quill/code"
	"github.com/dr8co/quill/compiler"
	"github.com/dr8co/quill/object"
)

var magic = [4]byte{'Q', 'L', 'B', 'C'}

const version byte = 1

// Type tags for the constant pool, one byte each.
const (
	tagNone byte = iota
	tagInt
	tagFloat
	tagBool
	tagChar
	tagStr
	tagByteBuffer
	tagSubroutine
)

// Encode serializes bc into the persisted file format.
func Encode(bc *compiler.Bytecode) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(version)

	if len(bc.Constants) > 0xFFFF {
		return nil, fmt.Errorf("bytecode: constant pool of %d entries exceeds format limit", len(bc.Constants))
	}
	var countBuf [2]byte
	binary.BigEndian.PutUint16(countBuf[:], uint16(len(bc.Constants)))
	buf.Write(countBuf[:])

	for i, c := range bc.Constants {
		if err := encodeConstant(&buf, c); err != nil {
			return nil, fmt.Errorf("bytecode: constant %d: %w", i, err)
		}
	}

	if err := writeInstructionBlock(&buf, bc.Instructions); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func encodeConstant(buf *bytes.Buffer, c object.Object) error {
	switch v := c.(type) {
	case *object.Noval:
		buf.WriteByte(tagNone)
	case *object.Int:
		buf.WriteByte(tagInt)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.Value))
		buf.Write(b[:])
	case *object.Float:
		buf.WriteByte(tagFloat)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v.Value))
		buf.Write(b[:])
	case *object.Bool:
		buf.WriteByte(tagBool)
		if v.Value {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case *object.Char:
		buf.WriteByte(tagChar)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v.Value))
		buf.Write(b[:])
	case *object.Str:
		buf.WriteByte(tagStr)
		writeLengthPrefixed(buf, []byte(v.Value))
	case *object.ByteBuffer:
		buf.WriteByte(tagByteBuffer)
		writeLengthPrefixed(buf, v.Bytes)
	case *object.Subroutine:
		buf.WriteByte(tagSubroutine)
		writeLengthPrefixed(buf, []byte(v.Name))
		var locals [2]byte
		binary.BigEndian.PutUint16(locals[:], uint16(v.NumLocals))
		buf.Write(locals[:])
		if v.NumParameters > 0xFF {
			return fmt.Errorf("subroutine %s: %d parameters exceeds format limit", v.Name, v.NumParameters)
		}
		buf.WriteByte(byte(v.NumParameters))
		return writeInstructionBlock(buf, v.Instructions)
	default:
		return fmt.Errorf("unsupported constant type for persisted bytecode: %s", c.Type())
	}
	return nil
}

func writeLengthPrefixed(buf *bytes.Buffer, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf.Write(lenBuf[:])
	buf.Write(data)
}

func writeInstructionBlock(buf *bytes.Buffer, ins code.Instructions) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(ins)))
	buf.Write(lenBuf[:])
	buf.Write(ins)
	return nil
}

// Decode parses the persisted file format back into a compiler.Bytecode.
func Decode(data []byte) (*compiler.Bytecode, error) {
	r := bytes.NewReader(data)

	var gotMagic [4]byte
	if _, err := r.Read(gotMagic[:]); err != nil {
		return nil, fmt.Errorf("bytecode: reading magic: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("bytecode: bad magic %q, expected %q", gotMagic, magic)
	}

	ver, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading version: %w", err)
	}
	if ver != version {
		return nil, fmt.Errorf("bytecode: unsupported format version %d", ver)
	}

	var countBuf [2]byte
	if _, err := r.Read(countBuf[:]); err != nil {
		return nil, fmt.Errorf("bytecode: reading constant count: %w", err)
	}
	count := binary.BigEndian.Uint16(countBuf[:])

	constants := make([]object.Object, count)
	for i := 0; i < int(count); i++ {
		c, err := decodeConstant(r)
		if err != nil {
			return nil, fmt.Errorf("bytecode: constant %d: %w", i, err)
		}
		constants[i] = c
	}

	instructions, err := readInstructionBlock(r)
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading instruction block: %w", err)
	}

	return &compiler.Bytecode{Instructions: instructions, Constants: constants}, nil
}

func decodeConstant(r *bytes.Reader) (object.Object, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagNone:
		return &object.Noval{}, nil
	case tagInt:
		var b [8]byte
		if _, err := r.Read(b[:]); err != nil {
			return nil, err
		}
		return &object.Int{Value: int64(binary.BigEndian.Uint64(b[:]))}, nil
	case tagFloat:
		var b [8]byte
		if _, err := r.Read(b[:]); err != nil {
			return nil, err
		}
		return &object.Float{Value: math.Float64frombits(binary.BigEndian.Uint64(b[:]))}, nil
	case tagBool:
		v, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return &object.Bool{Value: v != 0}, nil
	case tagChar:
		var b [4]byte
		if _, err := r.Read(b[:]); err != nil {
			return nil, err
		}
		return &object.Char{Value: rune(binary.BigEndian.Uint32(b[:]))}, nil
	case tagStr:
		data, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		return &object.Str{Value: string(data)}, nil
	case tagByteBuffer:
		data, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		return &object.ByteBuffer{Bytes: data, BigEndian: true}, nil
	case tagSubroutine:
		nameBytes, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		var locals [2]byte
		if _, err := r.Read(locals[:]); err != nil {
			return nil, err
		}
		numParams, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		instructions, err := readInstructionBlock(r)
		if err != nil {
			return nil, err
		}
		return &object.Subroutine{
			Name:          string(nameBytes),
			NumLocals:     int(binary.BigEndian.Uint16(locals[:])),
			NumParameters: int(numParams),
			Instructions:  instructions,
		}, nil
	default:
		return nil, fmt.Errorf("unknown constant type tag %d", tag)
	}
}

func readLengthPrefixed(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := r.Read(lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	data := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func readInstructionBlock(r *bytes.Reader) (code.Instructions, error) {
	data, err := readLengthPrefixed(r)
	if err != nil {
		return nil, err
	}
	return code.Instructions(data), nil
}

package bytecode

import (
	"testing"

	"github.com/dr8co/quill/code"
	"github.com/dr8co/quill/compiler"
	"github.com/dr8co/quill/object"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	bc := &compiler.Bytecode{
		Instructions: append(
			code.Make(code.OpConstant, 0),
			code.Make(code.OpPop)...,
		),
		Constants: []object.Object{
			&object.Noval{},
			&object.Int{Value: -42},
			&object.Float{Value: 3.5},
			&object.Bool{Value: true},
			&object.Char{Value: 'q'},
			&object.Str{Value: "quill"},
			&object.ByteBuffer{Bytes: []byte{0x01, 0x02, 0x03}, BigEndian: true},
			&object.Subroutine{
				Name:          "add",
				NumLocals:     2,
				NumParameters: 2,
				Instructions: append(
					code.Make(code.OpGetLocal, 0),
					append(code.Make(code.OpGetLocal, 1), code.Make(code.OpAdd)...)...,
				),
			},
		},
	}

	data, err := Encode(bc)
	if err != nil {
		t.Fatalf("Encode returned error: %s", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode returned error: %s", err)
	}

	if len(got.Instructions) != len(bc.Instructions) {
		t.Fatalf("instructions length mismatch: got=%d, want=%d", len(got.Instructions), len(bc.Instructions))
	}
	for i := range bc.Instructions {
		if got.Instructions[i] != bc.Instructions[i] {
			t.Fatalf("instruction byte %d mismatch: got=%d, want=%d", i, got.Instructions[i], bc.Instructions[i])
		}
	}

	if len(got.Constants) != len(bc.Constants) {
		t.Fatalf("constants length mismatch: got=%d, want=%d", len(got.Constants), len(bc.Constants))
	}

	for i, want := range bc.Constants {
		gotConst := got.Constants[i]
		switch w := want.(type) {
		case *object.Subroutine:
			g, ok := gotConst.(*object.Subroutine)
			if !ok {
				t.Fatalf("constant %d: expected Subroutine, got %T", i, gotConst)
			}
			if g.Name != w.Name || g.NumLocals != w.NumLocals || g.NumParameters != w.NumParameters {
				t.Errorf("constant %d: subroutine metadata mismatch: got=%+v, want=%+v", i, g, w)
			}
			if len(g.Instructions) != len(w.Instructions) {
				t.Fatalf("constant %d: subroutine instructions length mismatch", i)
			}
			for j := range w.Instructions {
				if g.Instructions[j] != w.Instructions[j] {
					t.Errorf("constant %d: subroutine instruction byte %d mismatch", i, j)
				}
			}
		case *object.ByteBuffer:
			g, ok := gotConst.(*object.ByteBuffer)
			if !ok {
				t.Fatalf("constant %d: expected ByteBuffer, got %T", i, gotConst)
			}
			if string(g.Bytes) != string(w.Bytes) {
				t.Errorf("constant %d: byte buffer mismatch: got=%v, want=%v", i, g.Bytes, w.Bytes)
			}
		default:
			if !object.Equal(gotConst, want) {
				t.Errorf("constant %d mismatch: got=%v, want=%v", i, gotConst, want)
			}
		}
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	data := []byte{'X', 'X', 'X', 'X', version, 0, 0, 0, 0, 0, 0}

	_, err := Decode(data)
	if err == nil {
		t.Fatalf("expected an error decoding data with a bad magic header")
	}
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	data := append([]byte{}, magic[:]...)
	data = append(data, version+1)
	data = append(data, 0, 0)
	data = append(data, 0, 0, 0, 0)

	_, err := Decode(data)
	if err == nil {
		t.Fatalf("expected an error decoding data with an unsupported format version")
	}
}

func TestEncodeEmptyBytecode(t *testing.T) {
	bc := &compiler.Bytecode{Instructions: code.Instructions{}, Constants: []object.Object{}}

	data, err := Encode(bc)
	if err != nil {
		t.Fatalf("Encode returned error: %s", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode returned error: %s", err)
	}
	if len(got.Constants) != 0 || len(got.Instructions) != 0 {
		t.Errorf("expected an empty round trip, got %d constants and %d instruction bytes", len(got.Constants), len(got.Instructions))
	}
}

package ffi

import (
	"fmt"
	"testing"

	"github.com/dr8co/quill/object"
)

// fakeModule is a hand-built Module used in place of a plugin.Open'd .so,
// which can't be built or loaded from a test without running the Go
// toolchain.
type fakeModule struct {
	closed bool
}

func (m *fakeModule) Open(arg object.Object) (object.Object, error) {
	return &object.Str{Value: "opened"}, nil
}

func (m *fakeModule) Close(arg object.Object) (object.Object, error) {
	m.closed = true
	return &object.Noval{}, nil
}

func (m *fakeModule) Read(arg object.Object) (object.Object, error) {
	return &object.Str{Value: "data"}, nil
}

func (m *fakeModule) Write(arg object.Object) (object.Object, error) {
	return &object.Int{Value: int64(len(arg.Describe()))}, nil
}

func (m *fakeModule) Exec(method string, args []object.Object) (object.Object, error) {
	switch method {
	case "echo":
		if len(args) != 1 {
			return nil, fmt.Errorf("echo: expected 1 argument, got %d", len(args))
		}
		return args[0], nil
	case "fail":
		return nil, fmt.Errorf("boom")
	default:
		return nil, fmt.Errorf("unknown method %s", method)
	}
}

func TestRegisterAndExec(t *testing.T) {
	table := NewTable()
	handle := table.Register(&fakeModule{})

	result, err := table.Exec(handle, "echo", []object.Object{&object.Int{Value: 7}})
	if err != nil {
		t.Fatalf("Exec returned error: %s", err)
	}
	i, ok := result.(*object.Int)
	if !ok || i.Value != 7 {
		t.Errorf("expected echoed Int{7}, got %v", result)
	}
}

func TestExecPropagatesModuleError(t *testing.T) {
	table := NewTable()
	handle := table.Register(&fakeModule{})

	if _, err := table.Exec(handle, "fail", nil); err == nil {
		t.Errorf("expected Exec to propagate the module's error")
	}
}

func TestExecUnknownHandle(t *testing.T) {
	table := NewTable()

	if _, err := table.Exec(99, "echo", nil); err == nil {
		t.Errorf("expected an error for an unregistered handle")
	}
}

func TestHandlesAreMonotonicAndNeverReused(t *testing.T) {
	table := NewTable()
	h1 := table.Register(&fakeModule{})
	h2 := table.Register(&fakeModule{})

	if h2 <= h1 {
		t.Errorf("expected monotonically increasing handles, got %d then %d", h1, h2)
	}

	if err := table.Unload(h1); err != nil {
		t.Fatalf("Unload returned error: %s", err)
	}

	h3 := table.Register(&fakeModule{})
	if h3 == h1 {
		t.Errorf("expected a freed handle to never be reused, got %d again", h3)
	}
}

func TestUnloadUnknownHandle(t *testing.T) {
	table := NewTable()

	if err := table.Unload(123); err == nil {
		t.Errorf("expected an error unloading a handle that was never registered")
	}
}

func TestExecAfterUnloadFails(t *testing.T) {
	table := NewTable()
	handle := table.Register(&fakeModule{})

	if err := table.Unload(handle); err != nil {
		t.Fatalf("Unload returned error: %s", err)
	}

	if _, err := table.Exec(handle, "echo", nil); err == nil {
		t.Errorf("expected Exec to fail after Unload")
	}
}

func TestModuleOpenCloseReadWrite(t *testing.T) {
	mod := &fakeModule{}

	if _, err := mod.Open(&object.Noval{}); err != nil {
		t.Fatalf("Open returned error: %s", err)
	}
	if _, err := mod.Read(&object.Noval{}); err != nil {
		t.Fatalf("Read returned error: %s", err)
	}
	if _, err := mod.Write(&object.Str{Value: "abc"}); err != nil {
		t.Fatalf("Write returned error: %s", err)
	}
	if _, err := mod.Close(&object.Noval{}); err != nil {
		t.Fatalf("Close returned error: %s", err)
	}
	if !mod.closed {
		t.Errorf("expected Close to mark the module closed")
	}
}

// Package ffi loads native modules and dispatches calls into them.
//
// A native module is a Go plugin (built with `go build -buildmode=plugin`)
// exporting five top-level functions matching the [Module] ABI. The
// loader never reuses a handle once issued, even after Unload, matching
// the monotonic-id contract the host language's own FFI table uses.
package ffi

import (
	"fmt"
	"plugin"
	"sync"

	"github.com/dr8co/quill/object"
)

// Module is the ABI every native module must implement. Exec is the
// general-purpose entry point reached from script code via a
// NativeModuleRef call; Open/Close/Read/Write exist for modules that
// model a resource (a file, a socket, a handle of their own).
type Module interface {
	Open(arg object.Object) (object.Object, error)
	Close(arg object.Object) (object.Object, error)
	Read(arg object.Object) (object.Object, error)
	Write(arg object.Object) (object.Object, error)
	Exec(method string, args []object.Object) (object.Object, error)
}

// Table is the process-wide handle table mapping monotonically issued
// ids to loaded modules. Safe for concurrent use by multiple VM threads.
type Table struct {
	mu      sync.Mutex
	modules map[int64]Module
	next    int64
}

// NewTable returns an empty FFI table.
func NewTable() *Table {
	return &Table{modules: make(map[int64]Module)}
}

// LoadPlugin opens a Go plugin at path and binds it to a fresh handle.
// The plugin must export the five symbols Open, Close, Read, Write, Exec
// with signatures matching [Module], adapted through [pluginModule].
func (t *Table) LoadPlugin(path string) (int64, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return 0, fmt.Errorf("ffi: opening plugin %s: %w", path, err)
	}

	mod, err := bindPluginModule(p)
	if err != nil {
		return 0, fmt.Errorf("ffi: binding plugin %s: %w", path, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	handle := t.next
	t.next++
	t.modules[handle] = mod
	return handle, nil
}

// Register binds an already-constructed Module (used by tests and by
// modules embedded in the host binary rather than loaded dynamically) to
// a fresh handle.
func (t *Table) Register(mod Module) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	handle := t.next
	t.next++
	t.modules[handle] = mod
	return handle
}

// Exec dispatches a method call to the module at handle.
func (t *Table) Exec(handle int64, method string, args []object.Object) (object.Object, error) {
	t.mu.Lock()
	mod, ok := t.modules[handle]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("ffi: no module loaded at handle %d", handle)
	}
	return mod.Exec(method, args)
}

// Unload removes the entry for handle. The id is never reused.
func (t *Table) Unload(handle int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.modules[handle]; !ok {
		return fmt.Errorf("ffi: no module loaded at handle %d", handle)
	}
	delete(t.modules, handle)
	return nil
}

// pluginModule adapts the five symbols a loaded plugin exports to the
// Module interface.
type pluginModule struct {
	open  func(object.Object) (object.Object, error)
	close func(object.Object) (object.Object, error)
	read  func(object.Object) (object.Object, error)
	write func(object.Object) (object.Object, error)
	exec  func(string, []object.Object) (object.Object, error)
}

func (m *pluginModule) Open(arg object.Object) (object.Object, error)  { return m.open(arg) }
func (m *pluginModule) Close(arg object.Object) (object.Object, error) { return m.close(arg) }
func (m *pluginModule) Read(arg object.Object) (object.Object, error)  { return m.read(arg) }
func (m *pluginModule) Write(arg object.Object) (object.Object, error) { return m.write(arg) }
func (m *pluginModule) Exec(method string, args []object.Object) (object.Object, error) {
	return m.exec(method, args)
}

func bindPluginModule(p *plugin.Plugin) (Module, error) {
	mod := &pluginModule{}

	lookups := []struct {
		name string
		dst  *func(object.Object) (object.Object, error)
	}{
		{"Open", &mod.open},
		{"Close", &mod.close},
		{"Read", &mod.read},
		{"Write", &mod.write},
	}
	for _, l := range lookups {
		sym, err := p.Lookup(l.name)
		if err != nil {
			return nil, fmt.Errorf("missing symbol %s: %w", l.name, err)
		}
		fn, ok := sym.(func(object.Object) (object.Object, error))
		if !ok {
			return nil, fmt.Errorf("symbol %s has the wrong signature", l.name)
		}
		*l.dst = fn
	}

	execSym, err := p.Lookup("Exec")
	if err != nil {
		return nil, fmt.Errorf("missing symbol Exec: %w", err)
	}
	execFn, ok := execSym.(func(string, []object.Object) (object.Object, error))
	if !ok {
		return nil, fmt.Errorf("symbol Exec has the wrong signature")
	}
	mod.exec = execFn

	return mod, nil
}

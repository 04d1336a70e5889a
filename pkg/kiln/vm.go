// Package kiln is the high-level embedding API: a runtime wrapper that
// marshals Go values across the boundary and turns on annotation
// checking without touching internal packages.
package kiln

import (
	"fmt"

	"github.com/kilnvm/kiln/internal/object"
	"github.com/kilnvm/kiln/internal/typecheck"
	"github.com/kilnvm/kiln/internal/vm"
)

// VM wraps a runtime and one interpreter state behind a Go-friendly
// surface.
type VM struct {
	rt         *vm.Runtime
	in         *vm.Interp
	hook       *typecheck.Hook
	marshaller *Marshaller
}

// New creates a fresh VM with one interpreter state and checking off.
func New() *VM {
	rt := vm.NewRuntime()
	return &VM{
		rt:         rt,
		in:         rt.NewInterp(),
		marshaller: NewMarshaller(),
	}
}

// Runtime exposes the underlying runtime for embedders that need the
// lower-level API, typically to build code objects.
func (v *VM) Runtime() *vm.Runtime { return v.rt }

// Interp exposes the wrapped interpreter state.
func (v *VM) Interp() *vm.Interp { return v.in }

// EnableChecking installs the type-checking hook on every interpreter
// state of this VM. Like the hook itself it is one-way: there is no
// disable.
func (v *VM) EnableChecking(opts ...typecheck.Option) error {
	if v.hook != nil {
		return fmt.Errorf("kiln: checking already enabled")
	}
	h, err := typecheck.Enable(v.rt, opts...)
	if err != nil {
		return err
	}
	v.hook = h
	return nil
}

// Stats returns the hook's counters. The second result is false until
// EnableChecking has run.
func (v *VM) Stats() (typecheck.Snapshot, bool) {
	if v.hook == nil {
		return typecheck.Snapshot{}, false
	}
	return v.hook.Stats(), true
}

// Define binds a code object to a named global function. Annotations
// map parameter names to expected types; nil means unchecked.
func (v *VM) Define(name string, code *vm.CodeObject, annotations map[string]object.Object) *vm.FunctionObject {
	return v.in.DefineFunction(name, code, annotations)
}

// Bind publishes a Go value as a global.
func (v *VM) Bind(name string, val interface{}) error {
	obj, err := v.marshaller.ToValue(val)
	if err != nil {
		return fmt.Errorf("binding %s: %w", name, err)
	}
	v.in.SetGlobal(name, obj)
	return nil
}

// Get reads a global back as a Go value.
func (v *VM) Get(name string) (interface{}, error) {
	obj, ok := v.in.Global(name)
	if !ok {
		return nil, fmt.Errorf("global %s not defined", name)
	}
	return v.marshaller.FromValue(obj, nil)
}

// Call invokes a named global function with Go arguments and returns
// the result as a Go value. Type-check violations surface as the
// *vm.TypeError the hook raised.
func (v *VM) Call(name string, args ...interface{}) (interface{}, error) {
	obj, ok := v.in.Global(name)
	if !ok {
		return nil, fmt.Errorf("function %s not defined", name)
	}
	fn, ok := obj.(*vm.FunctionObject)
	if !ok {
		return nil, fmt.Errorf("global %s is not a function, got %s", name, obj.Type())
	}

	callArgs := make([]object.Object, len(args))
	for i, arg := range args {
		converted, err := v.marshaller.ToValue(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d conversion failed: %w", i, err)
		}
		callArgs[i] = converted
	}

	result, err := v.in.CallFunction(fn, callArgs...)
	if err != nil {
		return nil, err
	}
	return v.marshaller.FromValue(result, nil)
}

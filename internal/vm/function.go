package vm

import (
	"fmt"
	"sync/atomic"

	"github.com/kilnvm/kiln/internal/object"
)

// FunctionObject is the runtime-visible callable bound to exactly one
// code object, plus its annotation metadata. The runtime itself never
// reads Annotations; enforcement is entirely the hook's business.
type FunctionObject struct {
	Name string

	// Code is the compiled body. The function owns one logical
	// reference to it for its whole lifetime.
	Code *CodeObject

	// Annotations maps parameter names to annotation values. Nil when
	// the function is unannotated; keys are unique and must be a subset
	// of Code.Varnames. Insertion order is irrelevant.
	Annotations map[string]object.Object

	in   *Interp
	refs atomic.Int32
}

func (f *FunctionObject) Type() *object.Type { return object.FunctionType }
func (f *FunctionObject) Inspect() string    { return fmt.Sprintf("<fn %s>", f.Name) }

// Refs returns the current logical reference count.
func (f *FunctionObject) Refs() int32 { return f.refs.Load() }

// IncRef takes a logical reference to the function.
func (f *FunctionObject) IncRef() { f.refs.Add(1) }

// DecRef drops a logical reference. When the count reaches zero the
// function leaves the heap's referrer index and releases its reference
// to the code object.
func (f *FunctionObject) DecRef() {
	if f.refs.Add(-1) != 0 {
		return
	}
	if f.in != nil {
		f.in.rt.heap.removeFunction(f)
	}
	f.Code.DecRef()
}

package vm

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/kilnvm/kiln/internal/object"
)

// EvalFrameFunc is the frame-evaluation entry point invoked for every
// call executed by an interpreter state. Swapping it is the runtime's
// sole instrumentation point.
type EvalFrameFunc func(in *Interp, f *Frame) (object.Object, error)

// Runtime is the process-wide state shared by all interpreter states it
// creates: the object heap and the extra-slot index registry.
type Runtime struct {
	heap   *Heap
	extras *extraRegistry

	mu     sync.RWMutex
	states []*Interp
}

// NewRuntime creates an empty runtime.
func NewRuntime() *Runtime {
	return &Runtime{
		heap:   newHeap(),
		extras: &extraRegistry{},
	}
}

// Heap returns the runtime's object heap.
func (rt *Runtime) Heap() *Heap { return rt.heap }

// RegisterExtraIndex allocates a per-code auxiliary-slot index with an
// associated release callback. Returns ErrExtraIndicesExhausted when
// the registry is full.
func (rt *Runtime) RegisterExtraIndex(free func(any)) (int, error) {
	return rt.extras.register(free)
}

// States snapshots the currently-known interpreter states.
func (rt *Runtime) States() []*Interp {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return append([]*Interp(nil), rt.states...)
}

// NewInterp creates an interpreter state and registers it with the
// runtime.
func (rt *Runtime) NewInterp() *Interp {
	in := &Interp{
		id:      uuid.NewString(),
		rt:      rt,
		globals: make(map[string]object.Object),
		out:     os.Stdout,
	}
	rt.mu.Lock()
	rt.states = append(rt.states, in)
	rt.mu.Unlock()
	return in
}

// Interp is a single interpreter state. Execution within one state is
// single-threaded; the frame-evaluation hook runs inline with call
// dispatch and never blocks.
type Interp struct {
	id      string
	rt      *Runtime
	globals map[string]object.Object
	out     io.Writer

	hookMu sync.Mutex
	hook   EvalFrameFunc // nil means EvalFrameDefault
}

// ID returns the state's unique identifier.
func (in *Interp) ID() string { return in.id }

// Runtime returns the owning runtime.
func (in *Interp) Runtime() *Runtime { return in.rt }

// SetOutput redirects OP_PRINT output (defaults to os.Stdout).
func (in *Interp) SetOutput(w io.Writer) { in.out = w }

// InstallEvalFrame swaps the state's frame-evaluation entry point. It
// fails if a hook is already installed: the prior entry point must be
// the runtime default, which guards against double installation and
// conflicting instrumentation.
func (in *Interp) InstallEvalFrame(fn EvalFrameFunc) error {
	in.hookMu.Lock()
	defer in.hookMu.Unlock()

	if in.hook != nil {
		return fmt.Errorf("vm: interpreter %s already has a frame-evaluation hook", in.id)
	}
	in.hook = fn
	return nil
}

// HookInstalled reports whether a non-default frame evaluator is
// installed.
func (in *Interp) HookInstalled() bool {
	in.hookMu.Lock()
	defer in.hookMu.Unlock()
	return in.hook != nil
}

// EvalFrame returns the active frame-evaluation entry point.
func (in *Interp) EvalFrame() EvalFrameFunc {
	in.hookMu.Lock()
	defer in.hookMu.Unlock()
	if in.hook != nil {
		return in.hook
	}
	return EvalFrameDefault
}

// DefineFunction binds a code object to a new function, registers it
// with the heap's referrer index, and publishes it as a global. The
// annotations map may be nil; checking is opt-in per function.
func (in *Interp) DefineFunction(name string, code *CodeObject, annotations map[string]object.Object) *FunctionObject {
	code.IncRef()
	fn := &FunctionObject{
		Name:        name,
		Code:        code,
		Annotations: annotations,
		in:          in,
	}
	fn.refs.Store(1)
	in.rt.heap.addFunction(fn)
	in.globals[name] = fn
	return fn
}

// Global looks up a global by name.
func (in *Interp) Global(name string) (object.Object, bool) {
	v, ok := in.globals[name]
	return v, ok
}

// SetGlobal binds a global by name.
func (in *Interp) SetGlobal(name string, v object.Object) {
	in.globals[name] = v
}

// RunCode executes a bare code object through the active frame
// evaluator without binding it to a function, the way module-level or
// REPL code runs. Such code has no owning function to resolve.
func (in *Interp) RunCode(code *CodeObject, args ...object.Object) (object.Object, error) {
	if len(args) > code.LocalCount() {
		return nil, fmt.Errorf("%s: too many arguments: %d for %d slots", code.Name, len(args), code.LocalCount())
	}
	f := newFrame(in, code, args)
	return in.EvalFrame()(in, f)
}

// CallFunction invokes a function with the given arguments through the
// state's active frame evaluator, exactly as OP_CALL does.
func (in *Interp) CallFunction(fn *FunctionObject, args ...object.Object) (object.Object, error) {
	if len(args) != fn.Code.Arity {
		return nil, fmt.Errorf("%s: expected %d arguments but got %d", fn.Name, fn.Code.Arity, len(args))
	}
	f := newFrame(in, fn.Code, args)
	return in.EvalFrame()(in, f)
}

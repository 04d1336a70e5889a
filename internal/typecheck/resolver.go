// Package typecheck installs a frame-evaluation hook that checks the
// runtime types of annotated function parameters on every call, with no
// change to the executed code. Checking is opt-in per function: only
// functions carrying an annotation map are ever inspected, and code
// objects with no resolvable owning function are never checked.
package typecheck

import (
	"sync/atomic"

	"github.com/kilnvm/kiln/internal/vm"
)

// Resolver recovers the function object owning a code object. The
// evaluator's calling convention hands the hook only the code and the
// frame, so ownership is recovered through the heap's reverse-reference
// query. Correctness relies on at most one live function referencing a
// given code object; code rebound to several functions by hand resolves
// to whichever referrer the heap yields first.
type Resolver struct {
	heap  *vm.Heap
	calls atomic.Int64
}

// NewResolver creates a resolver backed by the given heap.
func NewResolver(heap *vm.Heap) *Resolver {
	return &Resolver{heap: heap}
}

// Resolve returns the first live function referencing code, with a
// strong reference added, or nil when the query yields nothing. A nil
// result is never escalated; callers cache it as a permanent outcome.
func (r *Resolver) Resolve(code *vm.CodeObject) *vm.FunctionObject {
	r.calls.Add(1)

	for _, ref := range r.heap.Referrers(code) {
		fn, ok := ref.(*vm.FunctionObject)
		if !ok {
			continue
		}
		fn.IncRef()
		return fn
	}
	return nil
}

// Calls returns how many times Resolve has run. With the cache in
// front of it, this is at most one per code object lifetime.
func (r *Resolver) Calls() int64 {
	return r.calls.Load()
}

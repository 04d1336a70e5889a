package vm

import (
	"sync"

	"github.com/kilnvm/kiln/internal/object"
)

// Heap tracks the live code and function objects of a runtime and
// answers the reverse-reference query the function resolver depends on.
// Functions are indexed by their code object eagerly at definition
// time, so Referrers is a lookup rather than a scan over every live
// object.
type Heap struct {
	mu          sync.RWMutex
	codes       map[*CodeObject]struct{}
	funcsByCode map[*CodeObject][]*FunctionObject
}

func newHeap() *Heap {
	return &Heap{
		codes:       make(map[*CodeObject]struct{}),
		funcsByCode: make(map[*CodeObject][]*FunctionObject),
	}
}

// Referrers returns the live objects holding a direct reference to the
// given code object, in no particular order. Nil when the code object
// is unknown to this heap.
func (h *Heap) Referrers(code *CodeObject) []object.Object {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.codes[code]; !ok {
		return nil
	}
	funcs := h.funcsByCode[code]
	refs := make([]object.Object, len(funcs))
	for i, fn := range funcs {
		refs[i] = fn
	}
	return refs
}

// LiveCodeCount returns the number of live code objects.
func (h *Heap) LiveCodeCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.codes)
}

// LiveFunctionCount returns the number of live function objects.
func (h *Heap) LiveFunctionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, funcs := range h.funcsByCode {
		n += len(funcs)
	}
	return n
}

func (h *Heap) addCode(c *CodeObject) {
	h.mu.Lock()
	h.codes[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Heap) addFunction(fn *FunctionObject) {
	h.mu.Lock()
	h.funcsByCode[fn.Code] = append(h.funcsByCode[fn.Code], fn)
	h.mu.Unlock()
}

func (h *Heap) removeFunction(fn *FunctionObject) {
	h.mu.Lock()
	defer h.mu.Unlock()

	funcs := h.funcsByCode[fn.Code]
	for i, f := range funcs {
		if f == fn {
			h.funcsByCode[fn.Code] = append(funcs[:i], funcs[i+1:]...)
			break
		}
	}
	if len(h.funcsByCode[fn.Code]) == 0 {
		delete(h.funcsByCode, fn.Code)
	}
}

func (h *Heap) destroyCode(c *CodeObject) {
	h.mu.Lock()
	delete(h.codes, c)
	delete(h.funcsByCode, c)
	h.mu.Unlock()
}

package vm

import (
	"errors"
	"sync"
)

// MaxExtraIndices caps the number of extra-slot indices a runtime hands
// out over its lifetime. Indices are never recycled.
const MaxExtraIndices = 32

// ErrExtraIndicesExhausted is returned by RegisterExtraIndex when the
// registry is full.
var ErrExtraIndicesExhausted = errors.New("vm: extra-slot indices exhausted")

// extraRegistry hands out per-code auxiliary-slot indices, each with a
// release callback invoked against the slot's value when the owning
// code object is destroyed.
type extraRegistry struct {
	mu    sync.RWMutex
	frees []func(any)
}

func (r *extraRegistry) register(free func(any)) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.frees) >= MaxExtraIndices {
		return -1, ErrExtraIndicesExhausted
	}
	r.frees = append(r.frees, free)
	return len(r.frees) - 1, nil
}

func (r *extraRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frees)
}

func (r *extraRegistry) release(idx int, v any) {
	r.mu.RLock()
	var free func(any)
	if idx >= 0 && idx < len(r.frees) {
		free = r.frees[idx]
	}
	r.mu.RUnlock()

	if free != nil {
		free(v)
	}
}

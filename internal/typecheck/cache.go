package typecheck

import "github.com/kilnvm/kiln/internal/vm"

// unresolvedSentinel is the distinguished non-nil marker stored in a
// code object's extra slot when no owning function could be found.
// Once written it is never replaced: resolution is attempted at most
// once per code object lifetime.
type unresolvedSentinel struct{}

var unresolvedMarker = &unresolvedSentinel{}

// cache memoizes function resolution per code object in the registered
// extra slot. Slot values are tri-state: nil (unpopulated), a resolved
// *vm.FunctionObject (owned strong reference), or unresolvedMarker.
type cache struct {
	idx      int
	resolver *Resolver
	stats    *Stats
}

// getOrResolve returns the function owning code, resolving and caching
// on first use. Nil means "do not check this call": either the slot
// mechanism is unavailable (fail open) or the code has no owning
// function.
func (c *cache) getOrResolve(code *vm.CodeObject) *vm.FunctionObject {
	v, err := code.GetExtra(c.idx)
	if err != nil {
		c.stats.failOpens.Add(1)
		return nil
	}

	switch entry := v.(type) {
	case nil:
		c.stats.resolutions.Add(1)
		fn := c.resolver.Resolve(code)
		if fn == nil {
			// Permanent: later referrer changes do not reopen the entry
			if err := code.SetExtra(c.idx, unresolvedMarker); err != nil {
				c.stats.failOpens.Add(1)
			}
			return nil
		}
		if err := code.SetExtra(c.idx, fn); err != nil {
			// Could not take ownership of the reference; fail open.
			fn.DecRef()
			c.stats.failOpens.Add(1)
			return nil
		}
		return fn

	case *vm.FunctionObject:
		c.stats.cacheHits.Add(1)
		return entry

	default:
		c.stats.unresolved.Add(1)
		return nil
	}
}

// releaseEntry is the extra-slot release callback, invoked by the
// runtime when a code object is destroyed. It releases the cache's
// strong reference for genuine function entries and is a no-op for the
// unresolved marker.
func releaseEntry(v any) {
	if fn, ok := v.(*vm.FunctionObject); ok {
		fn.DecRef()
	}
}

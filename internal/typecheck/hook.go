package typecheck

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/kilnvm/kiln/internal/audit"
	"github.com/kilnvm/kiln/internal/object"
	"github.com/kilnvm/kiln/internal/vm"
)

// Hook is the installed frame-evaluation interceptor. Its lifecycle is
// one-way: once enabled on a runtime it stays for the runtime's
// lifetime; there is no disable path.
type Hook struct {
	cache    *cache
	checker  *Checker
	resolver *Resolver
	stats    *Stats
	store    *audit.Store
	extraIdx int
}

// Option configures Enable.
type Option func(*Hook)

// WithMissingParamPolicy overrides the abort-on-inconsistent-metadata
// default.
func WithMissingParamPolicy(p MissingParamPolicy) Option {
	return func(h *Hook) { h.checker.missing = p }
}

// WithAuditStore persists every violation to the given store. Storage
// failures are logged, never surfaced into the checked call.
func WithAuditStore(s *audit.Store) Option {
	return func(h *Hook) { h.store = s }
}

// Enable registers an extra-slot index for the resolution cache and
// installs the interceptor on every interpreter state known to the
// runtime. It fails without side effects when any state already carries
// a non-default frame evaluator, and with an error when the extra-slot
// registry is exhausted.
func Enable(rt *vm.Runtime, opts ...Option) (*Hook, error) {
	h := &Hook{
		checker:  &Checker{},
		resolver: NewResolver(rt.Heap()),
		stats:    &Stats{},
	}
	for _, opt := range opts {
		opt(h)
	}

	states := rt.States()
	for _, in := range states {
		if in.HookInstalled() {
			return nil, fmt.Errorf("typecheck: interpreter %s already instrumented", in.ID())
		}
	}

	idx, err := rt.RegisterExtraIndex(releaseEntry)
	if err != nil {
		return nil, fmt.Errorf("typecheck: %w", err)
	}
	h.extraIdx = idx
	h.cache = &cache{idx: idx, resolver: h.resolver, stats: h.stats}

	for _, in := range states {
		if err := in.InstallEvalFrame(h.evalFrame); err != nil {
			return nil, err
		}
	}

	log.Debug("runtime type checking enabled", "states", len(states), "extraIndex", idx)
	return h, nil
}

// evalFrame runs once per frame execution. Unresolvable code objects
// (module-level code, code built outside DefineFunction) fall through
// to default evaluation unchecked; everything else is checked before
// its body runs.
func (h *Hook) evalFrame(in *vm.Interp, f *vm.Frame) (object.Object, error) {
	h.stats.frames.Add(1)

	fn := h.cache.getOrResolve(f.Code)
	if fn == nil {
		return vm.EvalFrameDefault(in, f)
	}

	if violation := h.checker.Check(fn, f.Code, f); violation != nil {
		h.stats.violations.Add(1)
		h.report(violation)
		return nil, violation
	}

	return vm.EvalFrameDefault(in, f)
}

func (h *Hook) report(v *vm.TypeError) {
	log.Warn("type check failed",
		"func", v.Func, "param", v.Param, "expected", v.Expected, "actual", v.Actual)

	if h.store == nil {
		return
	}
	err := h.store.Record(audit.Violation{
		Func:     v.Func,
		Param:    v.Param,
		Expected: v.Expected,
		Actual:   v.Actual,
	})
	if err != nil {
		log.Error("recording violation", "err", err)
	}
}

// Stats returns a snapshot of the hook's counters.
func (h *Hook) Stats() Snapshot {
	return h.stats.Snapshot()
}

// ExtraIndex returns the registered extra-slot index the cache uses.
func (h *Hook) ExtraIndex() int {
	return h.extraIdx
}

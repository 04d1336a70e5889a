package typecheck

import "sync/atomic"

// Stats counts what the hook observes. All fields are atomics: the hook
// itself runs inline with call dispatch, but the introspection service
// reads snapshots from other goroutines.
type Stats struct {
	frames      atomic.Uint64
	cacheHits   atomic.Uint64
	resolutions atomic.Uint64
	unresolved  atomic.Uint64
	failOpens   atomic.Uint64
	violations  atomic.Uint64
}

// Snapshot is a point-in-time copy of the hook's counters.
type Snapshot struct {
	// Frames is the number of frame executions intercepted
	Frames uint64

	// CacheHits counts extra-slot reads that found a resolved function
	CacheHits uint64

	// Resolutions counts resolver invocations (cache misses)
	Resolutions uint64

	// Unresolved counts calls short-circuited by the no-function marker
	Unresolved uint64

	// FailOpens counts calls skipped because the slot mechanism was
	// unavailable
	FailOpens uint64

	// Violations counts rejected calls
	Violations uint64
}

// Snapshot returns a consistent-enough copy of the counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Frames:      s.frames.Load(),
		CacheHits:   s.cacheHits.Load(),
		Resolutions: s.resolutions.Load(),
		Unresolved:  s.unresolved.Load(),
		FailOpens:   s.failOpens.Load(),
		Violations:  s.violations.Load(),
	}
}

package state

import "sync/atomic"

// Stats are diagnostic counters that may be updated from any goroutine.
type Stats struct {
	Accepted        atomic.Uint64
	Stale           atomic.Uint64
	Duplicate       atomic.Uint64
	Malformed       atomic.Uint64
	UnknownSource   atomic.Uint64
	NoRoute         atomic.Uint64
	HopLimitDropped atomic.Uint64
	Sent            atomic.Uint64
	Forwarded       atomic.Uint64
	Delivered       atomic.Uint64
	Rebroadcasts    atomic.Uint64
	Recomputations  atomic.Uint64
}

func (s *Stats) Count(res ApplyResult) {
	switch res {
	case Accepted:
		s.Accepted.Add(1)
	case Stale:
		s.Stale.Add(1)
	case Duplicate:
		s.Duplicate.Add(1)
	}
}

func (s *Stats) Snapshot() []Pair[string, uint64] {
	return []Pair[string, uint64]{
		{"accepted", s.Accepted.Load()},
		{"stale", s.Stale.Load()},
		{"duplicate", s.Duplicate.Load()},
		{"malformed", s.Malformed.Load()},
		{"unknown_source", s.UnknownSource.Load()},
		{"no_route", s.NoRoute.Load()},
		{"hop_limit_dropped", s.HopLimitDropped.Load()},
		{"sent", s.Sent.Load()},
		{"forwarded", s.Forwarded.Load()},
		{"delivered", s.Delivered.Load()},
		{"rebroadcasts", s.Rebroadcasts.Load()},
		{"recomputations", s.Recomputations.Load()},
	}
}

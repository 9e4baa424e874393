package state

import (
	"maps"
	"slices"
	"time"
)

type ApplyResult int

const (
	Accepted ApplyResult = iota
	Stale
	Duplicate
)

func (r ApplyResult) String() string {
	switch r {
	case Accepted:
		return "Accepted"
	case Stale:
		return "Stale"
	case Duplicate:
		return "Duplicate"
	}
	return "Unknown"
}

type TopologyEntry struct {
	Adv       Advertisement
	ArrivedAt time.Time
}

// TopologyDB holds the latest accepted advertisement of every remote origin.
type TopologyDB struct {
	Id      NodeId
	entries map[NodeId]TopologyEntry
}

func NewTopologyDB(self NodeId) *TopologyDB {
	return &TopologyDB{
		Id:      self,
		entries: make(map[NodeId]TopologyEntry),
	}
}

// Apply stores adv if it is strictly newer than what is known for its origin.
// Advertisements of the local node are never stored and are reported as Stale.
func (db *TopologyDB) Apply(adv Advertisement, now time.Time) ApplyResult {
	if adv.Origin == db.Id {
		return Stale
	}
	old, ok := db.entries[adv.Origin]
	if ok {
		if old.Adv.Seqno == adv.Seqno {
			return Duplicate
		}
		if SeqnoLt(adv.Seqno, old.Adv.Seqno) {
			return Stale
		}
	}
	db.entries[adv.Origin] = TopologyEntry{
		Adv:       adv.Clone(),
		ArrivedAt: now,
	}
	return Accepted
}

// Sweep removes every entry that has not been refreshed within window and returns the removed origins.
func (db *TopologyDB) Sweep(now time.Time, window time.Duration) []NodeId {
	removed := make([]NodeId, 0)
	for origin, e := range db.entries {
		if now.Sub(e.ArrivedAt) > window {
			delete(db.entries, origin)
			removed = append(removed, origin)
		}
	}
	slices.Sort(removed)
	return removed
}

func (db *TopologyDB) Get(origin NodeId) (TopologyEntry, bool) {
	e, ok := db.entries[origin]
	return e, ok
}

func (db *TopologyDB) Len() int {
	return len(db.entries)
}

// Entries returns the stored entries ordered by origin.
func (db *TopologyDB) Entries() []TopologyEntry {
	out := make([]TopologyEntry, 0, len(db.entries))
	for _, origin := range slices.Sorted(maps.Keys(db.entries)) {
		out = append(out, db.entries[origin])
	}
	return out
}

// Links returns every stored link record ordered by (src, dst).
func (db *TopologyDB) Links() []LinkRecord {
	out := make([]LinkRecord, 0)
	for _, e := range db.entries {
		out = append(out, e.Adv.Links...)
	}
	slices.SortFunc(out, CompareLinks)
	return out
}

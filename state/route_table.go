package state

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

type RouteEntry struct {
	Dest    NodeId
	NextHop NodeId
	Cost    uint32
}

func (e RouteEntry) String() string {
	return fmt.Sprintf("%s via %s (cost: %d)", e.Dest, e.NextHop, e.Cost)
}

// RouteTable is an immutable snapshot of the routing table. It is never modified after construction,
// so it can be shared between goroutines once published.
type RouteTable struct {
	Generation uint64
	entries    []RouteEntry
}

func NewRouteTable(generation uint64, entries []RouteEntry) *RouteTable {
	e := slices.Clone(entries)
	slices.SortFunc(e, func(a, b RouteEntry) int {
		return cmp.Compare(a.Dest, b.Dest)
	})
	return &RouteTable{
		Generation: generation,
		entries:    e,
	}
}

func (t *RouteTable) Lookup(dest NodeId) (RouteEntry, bool) {
	if t == nil {
		return RouteEntry{}, false
	}
	idx, ok := slices.BinarySearchFunc(t.entries, dest, func(e RouteEntry, d NodeId) int {
		return cmp.Compare(e.Dest, d)
	})
	if !ok {
		return RouteEntry{}, false
	}
	return t.entries[idx], true
}

func (t *RouteTable) NextHop(dest NodeId) (NodeId, bool) {
	e, ok := t.Lookup(dest)
	return e.NextHop, ok
}

func (t *RouteTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func (t *RouteTable) Entries() []RouteEntry {
	if t == nil {
		return nil
	}
	return slices.Clone(t.entries)
}

// String renders the entries only, so two tables computed from the same topology render identically.
func (t *RouteTable) String() string {
	if t.Len() == 0 {
		return "(empty)"
	}
	lines := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		lines = append(lines, e.String())
	}
	return strings.Join(lines, "\n")
}

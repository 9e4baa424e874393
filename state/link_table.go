package state

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

type Neighbour struct {
	Id        NodeId
	Cost      uint16
	LastHeard time.Time
}

// LinkTable tracks the direct neighbours of the local node and owns its advertisement sequence number.
type LinkTable struct {
	Id         NodeId
	max        int
	seqno      uint16
	neighbours map[NodeId]*Neighbour
}

func NewLinkTable(id NodeId, maxNeighbours int) *LinkTable {
	return &LinkTable{
		Id:         id,
		max:        maxNeighbours,
		neighbours: make(map[NodeId]*Neighbour),
	}
}

func (t *LinkTable) Seqno() uint16 {
	return t.seqno
}

func (t *LinkTable) Len() int {
	return len(t.neighbours)
}

// RecordNeighbour inserts or refreshes a neighbour. It reports whether the advertised link set changed,
// in which case the sequence number has already been incremented.
func (t *LinkTable) RecordNeighbour(id NodeId, cost uint16, now time.Time) (bool, error) {
	if id == t.Id || id == BroadcastId {
		return false, fmt.Errorf("%w: %s", ErrInvalidNeighbour, id)
	}
	if cost == 0 {
		return false, fmt.Errorf("%w: %s has zero cost", ErrInvalidNeighbour, id)
	}
	n, ok := t.neighbours[id]
	if !ok {
		if len(t.neighbours) >= t.max {
			return false, fmt.Errorf("%w: cannot track %s, limit is %d", ErrLinkTableFull, id, t.max)
		}
		t.neighbours[id] = &Neighbour{Id: id, Cost: cost, LastHeard: now}
		t.seqno++
		return true, nil
	}
	n.LastHeard = now
	if n.Cost != cost {
		n.Cost = cost
		t.seqno++
		return true, nil
	}
	return false, nil
}

// ExpireNeighbour removes a neighbour, returning true if it was present.
func (t *LinkTable) ExpireNeighbour(id NodeId) bool {
	if _, ok := t.neighbours[id]; !ok {
		return false
	}
	delete(t.neighbours, id)
	t.seqno++
	return true
}

// Expired lists neighbours that have not been heard from within deadAfter, in ascending order.
func (t *LinkTable) Expired(now time.Time, deadAfter time.Duration) []NodeId {
	out := make([]NodeId, 0)
	for id, n := range t.neighbours {
		if now.Sub(n.LastHeard) > deadAfter {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Refresh increments the sequence number without changing the link set.
func (t *LinkTable) Refresh() uint16 {
	t.seqno++
	return t.seqno
}

// AdvanceSeqno moves the local counter past seen when seen is newer than it.
// This happens when an advertisement from a previous incarnation of this node is still circulating.
func (t *LinkTable) AdvanceSeqno(seen uint16) bool {
	if SeqnoLe(seen, t.seqno) {
		return false
	}
	t.seqno = seen + 1
	return true
}

func (t *LinkTable) Get(id NodeId) (Neighbour, bool) {
	n, ok := t.neighbours[id]
	if !ok {
		return Neighbour{}, false
	}
	return *n, true
}

func (t *LinkTable) Neighbours() []Neighbour {
	out := make([]Neighbour, 0, len(t.neighbours))
	for _, id := range slices.Sorted(maps.Keys(t.neighbours)) {
		out = append(out, *t.neighbours[id])
	}
	return out
}

// Advertisement produces the current advertisement of the local node.
func (t *LinkTable) Advertisement() Advertisement {
	links := make([]LinkRecord, 0, len(t.neighbours))
	for _, n := range t.Neighbours() {
		links = append(links, LinkRecord{Src: t.Id, Dst: n.Id, Cost: n.Cost})
	}
	return Advertisement{
		Origin: t.Id,
		Seqno:  t.seqno,
		Links:  links,
	}
}

package core

import (
	"cmp"
	"container/heap"
	"slices"

	"github.com/encodeous/moss/state"
)

type spfItem struct {
	node state.NodeId
	nh   state.NodeId
	cost uint32
}

func (a spfItem) less(b spfItem) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if a.nh != b.nh {
		return a.nh < b.nh
	}
	return a.node < b.node
}

type spfQueue []spfItem

func (q spfQueue) Len() int           { return len(q) }
func (q spfQueue) Less(i, j int) bool { return q[i].less(q[j]) }
func (q spfQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *spfQueue) Push(x any)        { *q = append(*q, x.(spfItem)) }
func (q *spfQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// ComputeRoutes runs Dijkstra from self over the directed graph formed by links.
// Among equal-cost paths, the one through the lower-numbered next hop wins. Links with a cost of 0 are ignored,
// and unreachable destinations are omitted. The result is ordered by destination.
func ComputeRoutes(self state.NodeId, links []state.LinkRecord) []state.RouteEntry {
	adj := make(map[state.NodeId][]state.LinkRecord)
	for _, l := range links {
		if l.Cost == 0 || l.Src == l.Dst {
			continue
		}
		adj[l.Src] = append(adj[l.Src], l)
	}

	best := make(map[state.NodeId]spfItem)
	done := map[state.NodeId]bool{self: true}
	pq := &spfQueue{}

	relax := func(it spfItem) {
		if done[it.node] {
			return
		}
		if cur, ok := best[it.node]; ok && !it.less(cur) {
			return
		}
		best[it.node] = it
		heap.Push(pq, it)
	}

	for _, l := range adj[self] {
		relax(spfItem{node: l.Dst, nh: l.Dst, cost: uint32(l.Cost)})
	}

	routes := make([]state.RouteEntry, 0)
	for pq.Len() > 0 {
		it := heap.Pop(pq).(spfItem)
		if done[it.node] {
			continue
		}
		done[it.node] = true
		routes = append(routes, state.RouteEntry{
			Dest:    it.node,
			NextHop: it.nh,
			Cost:    it.cost,
		})
		for _, l := range adj[it.node] {
			relax(spfItem{node: l.Dst, nh: it.nh, cost: AddCost(it.cost, l.Cost)})
		}
	}

	slices.SortFunc(routes, func(a, b state.RouteEntry) int {
		return cmp.Compare(a.Dest, b.Dest)
	})
	return routes
}

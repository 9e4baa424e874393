package state

import (
	"github.com/jellydator/ttlcache/v3"
)

// RouterState is the link-state database of the local node. It is owned by the main loop.
type RouterState struct {
	Id       NodeId
	Links    *LinkTable
	Topology *TopologyDB
	// Seen is the flooding dedup window, keyed by (origin, seqno) and holding the neighbour it first arrived from.
	Seen *ttlcache.Cache[FloodKey, NodeId]
}

func NewRouterState(id NodeId, maxNeighbours int) *RouterState {
	return &RouterState{
		Id:       id,
		Links:    NewLinkTable(id, maxNeighbours),
		Topology: NewTopologyDB(id),
		Seen: ttlcache.New[FloodKey, NodeId](
			ttlcache.WithTTL[FloodKey, NodeId](FloodWindowTTL),
			ttlcache.WithCapacity[FloodKey, NodeId](FloodWindowCapacity),
			ttlcache.WithDisableTouchOnHit[FloodKey, NodeId](),
		),
	}
}

// AllLinks returns the local links followed by every link in the topology database.
func (rs *RouterState) AllLinks() []LinkRecord {
	links := rs.Links.Advertisement().Links
	return append(links, rs.Topology.Links()...)
}

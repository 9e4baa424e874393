package core

import (
	"time"

	"github.com/encodeous/moss/state"
	"github.com/jellydator/ttlcache/v3"
)

type RouterEvent int

// trace events

const (
	AdvertisementAccepted RouterEvent = iota
	AdvertisementStale
	AdvertisementDuplicate
	AdvertisementOriginated
	SelfSeqnoAdvanced
	NeighbourUp
	NeighbourChanged
	NeighbourExpired
	OriginExpired
	TablePublished
)

// warn events

const (
	NeighbourRejected RouterEvent = iota + 1000
	EncodeFailed
	SendFailed
)

func (e RouterEvent) String() string {
	switch e {
	case AdvertisementAccepted:
		return "ADV_ACCEPTED"
	case AdvertisementStale:
		return "ADV_STALE"
	case AdvertisementDuplicate:
		return "ADV_DUPLICATE"
	case AdvertisementOriginated:
		return "ADV_ORIGINATED"
	case SelfSeqnoAdvanced:
		return "SELF_SEQNO_ADVANCED"
	case NeighbourUp:
		return "NEIGH_UP"
	case NeighbourChanged:
		return "NEIGH_CHANGED"
	case NeighbourExpired:
		return "NEIGH_EXPIRED"
	case OriginExpired:
		return "ORIGIN_EXPIRED"
	case TablePublished:
		return "TABLE_PUBLISHED"
	case NeighbourRejected:
		return "NEIGH_REJECTED"
	case EncodeFailed:
		return "ENCODE_FAILED"
	case SendFailed:
		return "SEND_FAILED"
	}
	return "UNKNOWN"
}

// Router is an interface that defines the side effects of the link-state algorithm
type Router interface {
	// SendAdvertisement unicasts adv to a single neighbour.
	SendAdvertisement(neigh state.NodeId, adv state.Advertisement)
	// BroadcastAdvertisement sends adv to every neighbour in the link table except the given one.
	BroadcastAdvertisement(adv state.Advertisement, except state.NodeId)
	// RecomputeRoutes runs the path computer and publishes a new routing table.
	RecomputeRoutes()
	Log(event RouterEvent, desc string, args ...any)
}

// HandleAdvertisement runs an advertisement received from neighbour `from` through the flooding state machine.
//
// An accepted advertisement is rebroadcast to every neighbour except `from` and triggers a recomputation.
// Stale and duplicate advertisements are dropped. A stale advertisement that comes straight from its origin
// means the origin has restarted with a lower counter, so it is answered with the newer copy we hold.
func HandleAdvertisement(rs *state.RouterState, r Router, from state.NodeId, adv state.Advertisement, now time.Time) state.ApplyResult {
	if adv.Origin == rs.Id {
		return handleOwnAdvertisement(rs, r, adv)
	}
	key := adv.Key()
	if rs.Seen.Has(key) {
		r.Log(AdvertisementDuplicate, "already flooded", "from", from, "adv", adv)
		correctOrigin(rs, r, from, adv)
		return state.Duplicate
	}

	res := rs.Topology.Apply(adv, now)
	switch res {
	case state.Accepted:
		rs.Seen.Set(key, from, ttlcache.DefaultTTL)
		r.Log(AdvertisementAccepted, "", "from", from, "adv", adv)
		r.BroadcastAdvertisement(adv, from)
		r.RecomputeRoutes()
	case state.Stale:
		r.Log(AdvertisementStale, "", "from", from, "adv", adv)
		correctOrigin(rs, r, from, adv)
	case state.Duplicate:
		rs.Seen.Set(key, from, ttlcache.DefaultTTL)
		r.Log(AdvertisementDuplicate, "", "from", from, "adv", adv)
	}
	return res
}

// correctOrigin answers an origin that sent an older copy of its own advertisement than the one we hold.
// A restarted node counts from zero again, and older sequence numbers may still sit in the dedup window.
func correctOrigin(rs *state.RouterState, r Router, from state.NodeId, adv state.Advertisement) {
	if from != adv.Origin {
		return
	}
	if cur, ok := rs.Topology.Get(adv.Origin); ok && state.SeqnoGt(cur.Adv.Seqno, adv.Seqno) {
		r.SendAdvertisement(from, cur.Adv)
	}
}

// handleOwnAdvertisement drops our own advertisement when it is flooded back to us.
// If it is newer than our counter, a previous incarnation of this node sent it and we jump past it.
func handleOwnAdvertisement(rs *state.RouterState, r Router, adv state.Advertisement) state.ApplyResult {
	if adv.Seqno == rs.Links.Seqno() {
		return state.Duplicate
	}
	if rs.Links.AdvanceSeqno(adv.Seqno) {
		r.Log(SelfSeqnoAdvanced, "", "seen", adv.Seqno, "seqno", rs.Links.Seqno())
		OriginateAdvertisement(rs, r)
	}
	return state.Stale
}

// OriginateAdvertisement floods the current advertisement of the local node to all neighbours.
func OriginateAdvertisement(rs *state.RouterState, r Router) {
	adv := rs.Links.Advertisement()
	rs.Seen.Set(adv.Key(), rs.Id, ttlcache.DefaultTTL)
	r.Log(AdvertisementOriginated, "", "adv", adv)
	r.BroadcastAdvertisement(adv, rs.Id)
}

// HandleHello records a discovery beacon from a direct neighbour.
func HandleHello(rs *state.RouterState, r Router, from state.NodeId, cost uint16, now time.Time) {
	_, known := rs.Links.Get(from)
	changed, err := rs.Links.RecordNeighbour(from, cost, now)
	if err != nil {
		r.Log(NeighbourRejected, err.Error(), "neigh", from)
		return
	}
	if !changed {
		return
	}
	if known {
		r.Log(NeighbourChanged, "", "neigh", from, "cost", cost)
	} else {
		r.Log(NeighbourUp, "", "neigh", from, "cost", cost)
		SyncNeighbour(rs, r, from)
	}
	OriginateAdvertisement(rs, r)
	r.RecomputeRoutes()
}

// SyncNeighbour hands a newly discovered neighbour every advertisement we hold, so it does not have to wait
// for the next periodic refresh of each origin.
func SyncNeighbour(rs *state.RouterState, r Router, neigh state.NodeId) {
	for _, e := range rs.Topology.Entries() {
		if e.Adv.Origin == neigh {
			continue
		}
		r.SendAdvertisement(neigh, e.Adv)
	}
}

// ExpireNeighbours removes neighbours that have been silent for longer than deadAfter.
func ExpireNeighbours(rs *state.RouterState, r Router, now time.Time, deadAfter time.Duration) {
	expired := rs.Links.Expired(now, deadAfter)
	if len(expired) == 0 {
		return
	}
	for _, id := range expired {
		rs.Links.ExpireNeighbour(id)
		r.Log(NeighbourExpired, "", "neigh", id)
	}
	OriginateAdvertisement(rs, r)
	r.RecomputeRoutes()
}

// SweepTopology ages out origins whose advertisements have not been refreshed within window.
func SweepTopology(rs *state.RouterState, r Router, now time.Time, window time.Duration) {
	removed := rs.Topology.Sweep(now, window)
	if len(removed) == 0 {
		return
	}
	for _, id := range removed {
		r.Log(OriginExpired, "", "origin", id)
	}
	r.RecomputeRoutes()
}

// RefreshAdvertisement re-originates the local advertisement with a new sequence number.
func RefreshAdvertisement(rs *state.RouterState, r Router) {
	rs.Links.Refresh()
	OriginateAdvertisement(rs, r)
}

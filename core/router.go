package core

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/encodeous/moss/perf"
	"github.com/encodeous/moss/protocol"
	"github.com/encodeous/moss/state"
)

// MossRouter wires the link-state algorithm to the transport and publishes the routing table.
type MossRouter struct {
	*state.State
	env        *state.Env
	table      atomic.Pointer[state.RouteTable]
	generation uint64
	Trace      *TableTrace
}

func (r *MossRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	r.env = s.Env
	s.RouterState = state.NewRouterState(s.NodeCfg.Id, s.MaxNeighbours)
	r.Trace = NewTableTrace()
	r.table.Store(state.NewRouteTable(0, nil))

	s.Log.Debug("schedule router tasks")
	s.Env.RepeatTask(r.sendHello, s.Discovery())
	s.Env.RepeatTask(func(s *state.State) error {
		ExpireNeighbours(s.RouterState, r, time.Now(), s.NeighbourDeadAfter())
		return nil
	}, s.Discovery())
	s.Env.RepeatTask(func(s *state.State) error {
		RefreshAdvertisement(s.RouterState, r)
		return nil
	}, s.AdvertiseEvery())
	s.Env.RepeatTask(r.gcRouter, s.SweepEvery())
	return nil
}

func (r *MossRouter) Cleanup(s *state.State) error {
	r.Trace.Close()
	s.Seen.DeleteAll()
	r.State = nil
	return nil
}

func (r *MossRouter) gcRouter(s *state.State) error {
	SweepTopology(s.RouterState, r, time.Now(), s.Staleness())
	s.Seen.DeleteExpired()
	return nil
}

func (r *MossRouter) sendHello(s *state.State) error {
	if state.DBG_log_hello {
		r.env.Log.Debug("sending hello")
	}
	r.transmit(state.BroadcastId, protocol.EncodeHello(protocol.Hello{Src: r.env.NodeCfg.Id}))
	return nil
}

func (r *MossRouter) Log(event RouterEvent, desc string, args ...any) {
	level := slog.LevelDebug
	if event >= NeighbourRejected {
		level = slog.LevelWarn
	} else if !state.DBG_log_flood && event <= AdvertisementOriginated {
		return
	}
	r.env.Log.Log(r.env.Context, level, strings.TrimSpace(fmt.Sprintf("%s %s", event.String(), desc)), args...)
}

func (r *MossRouter) SendAdvertisement(neigh state.NodeId, adv state.Advertisement) {
	b, err := protocol.EncodeAdvertisement(adv)
	if err != nil {
		r.Log(EncodeFailed, err.Error(), "adv", adv)
		return
	}
	r.transmit(neigh, b)
}

func (r *MossRouter) BroadcastAdvertisement(adv state.Advertisement, except state.NodeId) {
	b, err := protocol.EncodeAdvertisement(adv)
	if err != nil {
		r.Log(EncodeFailed, err.Error(), "adv", adv)
		return
	}
	for _, n := range r.Links.Neighbours() {
		if n.Id == except {
			continue
		}
		if adv.Origin != r.env.NodeCfg.Id {
			r.env.Stats.Rebroadcasts.Add(1)
		}
		r.transmit(n.Id, b)
	}
}

func (r *MossRouter) transmit(dest state.NodeId, pkt []byte) {
	err := r.env.Transport.Send(state.SendEnvelope{
		Packet: pkt,
		Src:    r.env.NodeCfg.Id,
		Dest:   dest,
	})
	if err != nil {
		r.Log(SendFailed, err.Error(), "dest", dest)
		return
	}
	perf.SentPacketPerSecond.Add(1)
	perf.SentBytesPerSecond.Add(float64(len(pkt)))
}

// RecomputeRoutes must be called on the main loop. The new table replaces the old one in a single pointer store.
func (r *MossRouter) RecomputeRoutes() {
	start := time.Now()
	entries := ComputeRoutes(r.env.NodeCfg.Id, r.RouterState.AllLinks())
	r.generation++
	tbl := state.NewRouteTable(r.generation, entries)
	old := r.table.Swap(tbl)
	perf.RecomputeLatency.Add(float64(time.Since(start).Microseconds()))
	r.env.Stats.Recomputations.Add(1)

	if state.DBG_log_route_changes {
		for _, line := range diffTables(old, tbl) {
			r.env.Log.Info("route changed", "change", line)
		}
	}
	if state.DBG_log_route_table {
		r.env.Log.Info("route table", "generation", tbl.Generation, "table", "\n"+tbl.String())
	}
	r.Trace.Publish(tbl)
}

// Table returns the most recently published routing table. It is safe to call from any goroutine.
func (r *MossRouter) Table() *state.RouteTable {
	return r.table.Load()
}

// Receive classifies an inbound envelope. Data packets are forwarded on the calling goroutine;
// control packets are handed to the main loop.
func (r *MossRouter) Receive(env state.SendEnvelope) {
	self := r.env.NodeCfg.Id
	if env.Src == self || (env.Dest != self && env.Dest != state.BroadcastId) {
		return
	}
	perf.RecvPacketPerSecond.Add(1)
	perf.RecvBytesPerSecond.Add(float64(len(env.Packet)))

	pkt, err := protocol.Decode(env.Packet)
	if err == nil {
		if h, ok := pkt.(protocol.Hello); ok && h.Src != env.Src {
			err = fmt.Errorf("%w: hello from %s carried in a frame from %s", state.ErrMalformedPacket, h.Src, env.Src)
		}
	}
	if err != nil {
		r.CountMalformed(env.Src, err)
		return
	}

	switch p := pkt.(type) {
	case protocol.Data:
		if err := r.Forward(p); err != nil && state.DBG_log_data {
			r.env.Log.Debug("dropped data packet", "from", env.Src, "err", err)
		}
	case protocol.Hello:
		if state.DBG_log_hello {
			r.env.Log.Debug("received hello", "from", p.Src)
		}
		r.env.Dispatch(func(s *state.State) error {
			HandleHello(s.RouterState, r, p.Src, s.PeerCost(p.Src), time.Now())
			return nil
		})
	case protocol.Advert:
		from := env.Src
		r.env.Dispatch(func(s *state.State) error {
			res := HandleAdvertisement(s.RouterState, r, from, p.Advertisement, time.Now())
			s.Stats.Count(res)
			if res == state.Accepted {
				perf.FloodAcceptedPerSecond.Add(1)
			} else {
				perf.FloodDroppedPerSecond.Add(1)
			}
			return nil
		})
	}
}

// CountMalformed records a packet that could not be decoded.
func (r *MossRouter) CountMalformed(from state.NodeId, err error) {
	r.env.Stats.Malformed.Add(1)
	perf.MalformedPerSecond.Add(1)
	r.env.Log.Debug("dropped malformed packet", "from", from, "err", err)
}

func diffTables(old, cur *state.RouteTable) []string {
	out := make([]string, 0)
	for _, e := range cur.Entries() {
		prev, ok := old.Lookup(e.Dest)
		if !ok {
			out = append(out, fmt.Sprintf("+ %s", e))
		} else if prev != e {
			out = append(out, fmt.Sprintf("~ %s (was %s)", e, prev))
		}
	}
	for _, e := range old.Entries() {
		if _, ok := cur.Lookup(e.Dest); !ok {
			out = append(out, fmt.Sprintf("- %s", e))
		}
	}
	return out
}

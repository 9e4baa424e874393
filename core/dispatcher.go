package core

import (
	"bytes"
	"fmt"

	"github.com/encodeous/moss/perf"
	"github.com/encodeous/moss/protocol"
	"github.com/encodeous/moss/state"
)

// Send routes payload towards dest using the currently published routing table.
// It returns state.ErrNoRoute if dest is unknown. Send is safe to call from any goroutine.
func (r *MossRouter) Send(payload []byte, dest state.NodeId) error {
	err := r.dispatch(protocol.Data{
		Src:      r.env.NodeCfg.Id,
		Dst:      dest,
		HopLimit: state.DefaultHopLimit,
		Payload:  payload,
	})
	if err == nil {
		r.env.Stats.Sent.Add(1)
	}
	return err
}

// Forward handles a data packet received from a neighbour. Packets addressed to this node are delivered
// to the application, everything else goes through the same lookup as Send.
func (r *MossRouter) Forward(pkt protocol.Data) error {
	if pkt.Dst == r.env.NodeCfg.Id {
		r.deliver(pkt.Src, pkt.Payload)
		return nil
	}
	if pkt.HopLimit <= 1 {
		r.env.Stats.HopLimitDropped.Add(1)
		return fmt.Errorf("%w: %s -> %s", state.ErrHopLimitExceeded, pkt.Src, pkt.Dst)
	}
	pkt.HopLimit--
	err := r.dispatch(pkt)
	if err == nil {
		r.env.Stats.Forwarded.Add(1)
	}
	return err
}

func (r *MossRouter) dispatch(pkt protocol.Data) error {
	if pkt.Dst == r.env.NodeCfg.Id {
		r.deliver(pkt.Src, pkt.Payload)
		return nil
	}
	nh, ok := r.table.Load().NextHop(pkt.Dst)
	if !ok {
		r.env.Stats.NoRoute.Add(1)
		perf.NoRoutePerSecond.Add(1)
		return fmt.Errorf("%w: %s", state.ErrNoRoute, pkt.Dst)
	}
	b := protocol.EncodeData(pkt)
	if len(b) > state.SafeMTU {
		return fmt.Errorf("%w: %d bytes", state.ErrPacketTooLarge, len(b))
	}
	err := r.env.Transport.Send(state.SendEnvelope{
		Packet: b,
		Src:    r.env.NodeCfg.Id,
		Dest:   nh,
	})
	if err != nil {
		return err
	}
	perf.SentPacketPerSecond.Add(1)
	perf.SentBytesPerSecond.Add(float64(len(b)))
	return nil
}

func (r *MossRouter) deliver(src state.NodeId, payload []byte) {
	r.env.Stats.Delivered.Add(1)
	if r.env.App != nil {
		r.env.App.Deliver(src, bytes.Clone(payload))
	}
}

// Package link provides transports that move moss packets between neighbours.
package link

import (
	"bytes"
	"context"
	"math/rand/v2"
	"sync"

	"github.com/encodeous/moss/state"
)

// VirtualLink is a directed radio link between two ports of a Medium.
type VirtualLink struct {
	PacketLoss float64
}

func (v *VirtualLink) WithPacketLoss(loss float64) *VirtualLink {
	v.PacketLoss = loss
	return v
}

// Medium is an in-memory broadcast medium. A frame sent by a node reaches every node it has a link to,
// and each receiver filters on the link-level destination itself.
type Medium struct {
	mu    sync.RWMutex
	ports map[state.NodeId]*MemoryPort
	links map[state.Pair[state.NodeId, state.NodeId]]*VirtualLink
}

func NewMedium() *Medium {
	return &Medium{
		ports: make(map[state.NodeId]*MemoryPort),
		links: make(map[state.Pair[state.NodeId, state.NodeId]]*VirtualLink),
	}
}

// Attach creates the port of node id, replacing any previous one.
func (m *Medium) Attach(id state.NodeId) *MemoryPort {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &MemoryPort{
		id:     id,
		medium: m,
		inbox:  make(chan state.SendEnvelope, state.SendBufferSize),
	}
	m.ports[id] = p
	return p
}

// AddLink makes frames from `from` audible at `to`.
func (m *Medium) AddLink(from, to state.NodeId) *VirtualLink {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &VirtualLink{}
	m.links[state.Pair[state.NodeId, state.NodeId]{V1: from, V2: to}] = l
	return l
}

// Connect adds links in both directions.
func (m *Medium) Connect(a, b state.NodeId) {
	m.AddLink(a, b)
	m.AddLink(b, a)
}

func (m *Medium) RemoveLink(from, to state.NodeId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, state.Pair[state.NodeId, state.NodeId]{V1: from, V2: to})
}

// Disconnect removes links in both directions.
func (m *Medium) Disconnect(a, b state.NodeId) {
	m.RemoveLink(a, b)
	m.RemoveLink(b, a)
}

// Isolate removes every link to and from id.
func (m *Medium) Isolate(id state.NodeId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.links {
		if k.V1 == id || k.V2 == id {
			delete(m.links, k)
		}
	}
}

func (m *Medium) transmit(env state.SendEnvelope) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, l := range m.links {
		if k.V1 != env.Src {
			continue
		}
		if env.Dest != state.BroadcastId && env.Dest != k.V2 {
			continue
		}
		if l.PacketLoss > 0 && rand.Float64() < l.PacketLoss {
			continue
		}
		to, ok := m.ports[k.V2]
		if !ok {
			continue
		}
		cp := env
		cp.Packet = bytes.Clone(env.Packet)
		select {
		case to.inbox <- cp:
		default:
			// receiver is backed up, the frame is lost like on a congested channel
		}
	}
}

// MemoryPort is the state.Transport of one node on a Medium.
type MemoryPort struct {
	id     state.NodeId
	medium *Medium
	inbox  chan state.SendEnvelope
}

func (p *MemoryPort) Send(env state.SendEnvelope) error {
	env.Src = p.id
	p.medium.transmit(env)
	return nil
}

func (p *MemoryPort) Run(ctx context.Context, recv func(env state.SendEnvelope)) error {
	for {
		select {
		case env := <-p.inbox:
			recv(env)
		case <-ctx.Done():
			return nil
		}
	}
}

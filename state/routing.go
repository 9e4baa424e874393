package state

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// NodeId is the 16-bit address of a node in the mesh.
type NodeId uint16

func (n NodeId) String() string {
	if n == BroadcastId {
		return "*"
	}
	return strconv.Itoa(int(n))
}

// LinkRecord describes a directed link. A cost of 0 means "no link" and is never used as an edge.
type LinkRecord struct {
	Src  NodeId
	Dst  NodeId
	Cost uint16
}

func (l LinkRecord) String() string {
	return fmt.Sprintf("%s->%s (cost: %d)", l.Src, l.Dst, l.Cost)
}

func CompareLinks(a, b LinkRecord) int {
	if c := cmp.Compare(a.Src, b.Src); c != 0 {
		return c
	}
	return cmp.Compare(a.Dst, b.Dst)
}

// Advertisement is the set of links an origin reports about itself at a given sequence number.
type Advertisement struct {
	Origin NodeId
	Seqno  uint16
	Links  []LinkRecord
}

func (a Advertisement) Key() FloodKey {
	return FloodKey{Origin: a.Origin, Seqno: a.Seqno}
}

func (a Advertisement) String() string {
	links := make([]string, 0, len(a.Links))
	for _, l := range a.Links {
		links = append(links, fmt.Sprintf("%s:%d", l.Dst, l.Cost))
	}
	return fmt.Sprintf("(origin: %s, seqno: %d, links: [%s])", a.Origin, a.Seqno, strings.Join(links, " "))
}

// Clone returns a copy that does not share the link slice.
func (a Advertisement) Clone() Advertisement {
	a.Links = slices.Clone(a.Links)
	return a
}

type FloodKey struct {
	Origin NodeId
	Seqno  uint16
}

// SendEnvelope pairs a packet with the link-level sender and receiver. Dest is a neighbour or BroadcastId.
type SendEnvelope struct {
	Packet []byte
	Src    NodeId
	Dest   NodeId
}

// Transport moves envelopes between neighbours. Send must not retain Packet after returning.
type Transport interface {
	Send(env SendEnvelope) error
	// Run delivers inbound envelopes to recv until ctx is cancelled.
	Run(ctx context.Context, recv func(env SendEnvelope)) error
}

// Application receives payloads addressed to this node.
type Application interface {
	Deliver(src NodeId, payload []byte)
}

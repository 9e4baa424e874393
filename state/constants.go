package state

import "time"

const (
	// BroadcastId is the link-level destination that every neighbour in range accepts.
	BroadcastId = NodeId(0xFFFF)
	// MaxNeighboursLimit bounds max_neighbours so an advertisement's link count fits in one byte.
	MaxNeighboursLimit = 255
)

var (
	DefaultDiscoveryInterval = time.Second
	DefaultAdvertiseInterval = time.Second * 5
	DefaultStalenessWindow   = time.Second * 15
	DefaultMaxNeighbours     = 16
	DefaultLinkCost          = uint16(1)
	DefaultPort              = 57300

	// NeighbourDeadIntervals is how many discovery intervals may pass without a hello before a neighbour expires.
	NeighbourDeadIntervals = 3
	// SweepDivisor controls how often the topology is swept relative to the staleness window.
	SweepDivisor = 4

	FloodWindowTTL      = time.Second * 10
	FloodWindowCapacity = uint64(1024)

	DefaultHopLimit = uint8(64)
	SafeMTU         = 1200
	SendBufferSize  = 128
	DispatchBacklog = 128
)

const (
	INF = ^(uint32)(0)
	// INFM is the largest path cost a reachable destination can have.
	INFM = INF - 1
)

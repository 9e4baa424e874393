package state

import (
	"net/netip"
	"slices"
	"time"
)

var NodeConfigPath = "node.yaml"

type PeerCfg struct {
	Id   NodeId         `yaml:"id" validate:"ne=65535"`
	Addr netip.AddrPort `yaml:"addr,omitempty"`
	Cost uint16         `yaml:"cost,omitempty"` // link cost to this peer, DefaultLinkCost if zero
}

// NodeCfg represents local node-level configuration
type NodeCfg struct {
	Id                NodeId         `yaml:"id" validate:"ne=65535"`
	DiscoveryInterval int64          `yaml:"discovery_interval_ms" validate:"gt=0"`
	AdvertiseInterval int64          `yaml:"advertise_interval_ms" validate:"gt=0"`
	StalenessWindow   int64          `yaml:"staleness_window_ms" validate:"gt=0"`
	MaxNeighbours     int            `yaml:"max_neighbours" validate:"gte=1,lte=255"`
	Bind              netip.AddrPort `yaml:"bind,omitempty"`
	Peers             []PeerCfg      `yaml:"peers,omitempty" validate:"dive"`
	LogPath           string         `yaml:"log_path,omitempty"` // if not empty, moss will also write logs to this file
	IPCPath           string         `yaml:"ipc_path,omitempty"` // unix socket used by moss inspect
}

// DefaultNodeCfg returns a configuration with every interval filled in.
func DefaultNodeCfg(id NodeId) NodeCfg {
	return NodeCfg{
		Id:                id,
		DiscoveryInterval: DefaultDiscoveryInterval.Milliseconds(),
		AdvertiseInterval: DefaultAdvertiseInterval.Milliseconds(),
		StalenessWindow:   DefaultStalenessWindow.Milliseconds(),
		MaxNeighbours:     DefaultMaxNeighbours,
	}
}

// ExpandNodeConfig fills unset fields with defaults.
func ExpandNodeConfig(cfg *NodeCfg) {
	def := DefaultNodeCfg(cfg.Id)
	if cfg.DiscoveryInterval == 0 {
		cfg.DiscoveryInterval = def.DiscoveryInterval
	}
	if cfg.AdvertiseInterval == 0 {
		cfg.AdvertiseInterval = def.AdvertiseInterval
	}
	if cfg.StalenessWindow == 0 {
		cfg.StalenessWindow = def.StalenessWindow
	}
	if cfg.MaxNeighbours == 0 {
		cfg.MaxNeighbours = def.MaxNeighbours
	}
	for i := range cfg.Peers {
		if cfg.Peers[i].Cost == 0 {
			cfg.Peers[i].Cost = DefaultLinkCost
		}
	}
}

func (c *NodeCfg) Discovery() time.Duration {
	return time.Duration(c.DiscoveryInterval) * time.Millisecond
}

func (c *NodeCfg) AdvertiseEvery() time.Duration {
	return time.Duration(c.AdvertiseInterval) * time.Millisecond
}

func (c *NodeCfg) Staleness() time.Duration {
	return time.Duration(c.StalenessWindow) * time.Millisecond
}

// NeighbourDeadAfter is how long a neighbour may stay silent before it is expired.
func (c *NodeCfg) NeighbourDeadAfter() time.Duration {
	return time.Duration(NeighbourDeadIntervals) * c.Discovery()
}

func (c *NodeCfg) SweepEvery() time.Duration {
	return c.Staleness() / time.Duration(SweepDivisor)
}

// PeerCost returns the configured cost of the link to id.
func (c *NodeCfg) PeerCost(id NodeId) uint16 {
	idx := slices.IndexFunc(c.Peers, func(p PeerCfg) bool {
		return p.Id == id
	})
	if idx == -1 || c.Peers[idx].Cost == 0 {
		return DefaultLinkCost
	}
	return c.Peers[idx].Cost
}

func (c *NodeCfg) PeerAddrs() map[NodeId]netip.AddrPort {
	out := make(map[NodeId]netip.AddrPort)
	for _, p := range c.Peers {
		if p.Addr.IsValid() {
			out[p.Id] = p.Addr
		}
	}
	return out
}

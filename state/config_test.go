package state

import (
	"net/netip"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNodeConfig(t *testing.T) {
	raw := `
id: 3
discovery_interval_ms: 500
advertise_interval_ms: 2000
staleness_window_ms: 6000
max_neighbours: 8
bind: 127.0.0.1:57300
peers:
  - id: 2
    addr: 127.0.0.1:57200
    cost: 4
  - id: 7
    addr: 127.0.0.1:57700
`
	var cfg NodeCfg
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))
	ExpandNodeConfig(&cfg)
	require.NoError(t, NodeConfigValidator(&cfg))

	assert.Equal(t, NodeId(3), cfg.Id)
	assert.Equal(t, netip.MustParseAddrPort("127.0.0.1:57300"), cfg.Bind)
	assert.Equal(t, 500*time.Millisecond, cfg.Discovery())
	assert.Equal(t, 1500*time.Millisecond, cfg.NeighbourDeadAfter())
	assert.Equal(t, 1500*time.Millisecond, cfg.SweepEvery())
	assert.Equal(t, uint16(4), cfg.PeerCost(2))
	assert.Equal(t, DefaultLinkCost, cfg.PeerCost(7))
	assert.Equal(t, DefaultLinkCost, cfg.PeerCost(99))
	assert.Len(t, cfg.PeerAddrs(), 2)
}

func TestExpandNodeConfigDefaults(t *testing.T) {
	cfg := NodeCfg{Id: 1}
	ExpandNodeConfig(&cfg)
	assert.Equal(t, DefaultNodeCfg(1), cfg)
	assert.NoError(t, NodeConfigValidator(&cfg))
}

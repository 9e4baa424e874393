//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/encodeous/moss/core"
	"github.com/encodeous/moss/link"
	"github.com/encodeous/moss/state"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) Wait() {
	<-s
}

type Delivery struct {
	Src     state.NodeId
	Payload string
}

// InboxApp collects every payload delivered to a node.
type InboxApp struct {
	mu  sync.Mutex
	got []Delivery
	ch  chan Delivery
}

func NewInboxApp() *InboxApp {
	return &InboxApp{ch: make(chan Delivery, 128)}
}

func (a *InboxApp) Deliver(src state.NodeId, payload []byte) {
	a.mu.Lock()
	a.got = append(a.got, Delivery{src, string(payload)})
	a.mu.Unlock()
	select {
	case a.ch <- Delivery{src, string(payload)}:
	default:
	}
}

func (a *InboxApp) Wait(ctx context.Context) (Delivery, error) {
	select {
	case d := <-a.ch:
		return d, nil
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}

type runningNode struct {
	s    *state.State
	app  *InboxApp
	done chan error
}

// VirtualHarness runs several nodes on an in-memory radio medium.
type VirtualHarness struct {
	Medium *link.Medium
	Cfgs   map[state.NodeId]*state.NodeCfg
	edges  map[state.Pair[state.NodeId, state.NodeId]]struct{}
	nodes  map[state.NodeId]*runningNode
	Level  slog.Level
}

func NewVirtualHarness() *VirtualHarness {
	return &VirtualHarness{
		Medium: link.NewMedium(),
		Cfgs:   make(map[state.NodeId]*state.NodeCfg),
		edges:  make(map[state.Pair[state.NodeId, state.NodeId]]struct{}),
		nodes:  make(map[state.NodeId]*runningNode),
		Level:  slog.LevelWarn,
	}
}

// NewNode registers a node with short protocol timers.
func (v *VirtualHarness) NewNode(id state.NodeId) *state.NodeCfg {
	cfg := state.DefaultNodeCfg(id)
	cfg.DiscoveryInterval = 20
	cfg.AdvertiseInterval = 100
	cfg.StalenessWindow = 400
	v.Cfgs[id] = &cfg
	return &cfg
}

// AddLink connects a and b in both directions; each side uses cost for its link to the other.
func (v *VirtualHarness) AddLink(a, b state.NodeId, cost uint16) {
	for _, p := range [][2]state.NodeId{{a, b}, {b, a}} {
		cfg := v.Cfgs[p[0]]
		cfg.Peers = slices.DeleteFunc(cfg.Peers, func(peer state.PeerCfg) bool {
			return peer.Id == p[1]
		})
		cfg.Peers = append(cfg.Peers, state.PeerCfg{Id: p[1], Cost: cost})
		v.edges[state.Pair[state.NodeId, state.NodeId]{V1: p[0], V2: p[1]}] = struct{}{}
	}
	v.Medium.Connect(a, b)
}

// RemoveLink takes the radio link down. The nodes find out through missing hellos.
func (v *VirtualHarness) RemoveLink(a, b state.NodeId) {
	delete(v.edges, state.Pair[state.NodeId, state.NodeId]{V1: a, V2: b})
	delete(v.edges, state.Pair[state.NodeId, state.NodeId]{V1: b, V2: a})
	v.Medium.Disconnect(a, b)
}

// Isolate removes every link of id.
func (v *VirtualHarness) Isolate(id state.NodeId) {
	for k := range v.edges {
		if k.V1 == id || k.V2 == id {
			delete(v.edges, k)
		}
	}
	v.Medium.Isolate(id)
}

func (v *VirtualHarness) Start(t *testing.T) {
	t.Helper()
	ids := make([]state.NodeId, 0, len(v.Cfgs))
	for id := range v.Cfgs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		v.StartNode(t, id)
	}
}

func (v *VirtualHarness) StartNode(t *testing.T, id state.NodeId) {
	t.Helper()
	cfg := *v.Cfgs[id]
	state.ExpandNodeConfig(&cfg)
	if err := state.NodeConfigValidator(&cfg); err != nil {
		t.Fatalf("node %s: %v", id, err)
	}
	app := NewInboxApp()
	s, err := core.New(cfg, v.Medium.Attach(id), app, v.Level)
	if err != nil {
		t.Fatalf("node %s: %v", id, err)
	}
	n := &runningNode{s: s, app: app, done: make(chan error, 1)}
	v.nodes[id] = n
	go func() {
		n.done <- core.Run(s)
	}()
}

func (v *VirtualHarness) StopNode(t *testing.T, id state.NodeId) {
	t.Helper()
	n, ok := v.nodes[id]
	if !ok {
		return
	}
	delete(v.nodes, id)
	n.s.Cancel(errors.New("node stopped by test"))
	select {
	case err := <-n.done:
		if err != nil {
			t.Errorf("node %s stopped with error: %v", id, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("node %s did not stop", id)
	}
}

func (v *VirtualHarness) Stop(t *testing.T) {
	t.Helper()
	for id := range v.nodes {
		v.StopNode(t, id)
	}
}

func (v *VirtualHarness) Router(id state.NodeId) *core.MossRouter {
	return core.Get[*core.MossRouter](v.nodes[id].s)
}

func (v *VirtualHarness) App(id state.NodeId) *InboxApp {
	return v.nodes[id].app
}

func (v *VirtualHarness) Stats(id state.NodeId) *state.Stats {
	return v.nodes[id].s.Stats
}

// Expected is the routing table id should converge to on the current graph.
func (v *VirtualHarness) Expected(id state.NodeId) *state.RouteTable {
	links := make([]state.LinkRecord, 0)
	for e := range v.edges {
		if _, ok := v.nodes[e.V1]; !ok {
			continue
		}
		if _, ok := v.nodes[e.V2]; !ok {
			continue
		}
		links = append(links, state.LinkRecord{Src: e.V1, Dst: e.V2, Cost: v.Cfgs[e.V1].PeerCost(e.V2)})
	}
	return state.NewRouteTable(0, core.ComputeRoutes(id, links))
}

// WaitConverged waits until every running node publishes the routing table implied by the current graph.
func (v *VirtualHarness) WaitConverged(ctx context.Context) error {
	for id := range v.nodes {
		want := v.Expected(id).String()
		tbl, err := v.Router(id).WaitForTable(ctx, func(tbl *state.RouteTable) bool {
			return tbl.String() == want
		})
		if err != nil {
			return fmt.Errorf("node %s did not converge, want:\n%s\ngot:\n%s", id, want, tbl)
		}
	}
	return nil
}

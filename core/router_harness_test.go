package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/encodeous/moss/state"
	"github.com/google/go-cmp/cmp"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness records the side effects requested by the link-state algorithm.
type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) SendAdvertisement(neigh state.NodeId, adv state.Advertisement) {
	h.actions = append(h.actions, MakeEvent("SEND_ADV", neigh, adv.Origin, adv.Seqno))
}

func (h *RouterHarness) BroadcastAdvertisement(adv state.Advertisement, except state.NodeId) {
	h.actions = append(h.actions, MakeEvent("BROADCAST_ADV", adv.Origin, adv.Seqno, except))
}

func (h *RouterHarness) RecomputeRoutes() {
	h.actions = append(h.actions, MakeEvent("RECOMPUTE"))
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetActions returns and clears every recorded event except logs.
func (h *RouterHarness) GetActions() HarnessEvents {
	x := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message != "LOG" {
			x = append(x, action)
		}
	}

	h.actions = make([]HarnessEvent, 0)
	return x
}

// GetLogs returns and clears the recorded log events.
func (h *RouterHarness) GetLogs() HarnessEvents {
	x := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message == "LOG" {
			x = append(x, action)
		}
	}
	h.actions = make([]HarnessEvent, 0)
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg {
			if len(event.Args) >= len(args) {
				match := true
				for i, arg := range args {
					if !cmp.Equal(event.Args[i], arg) {
						match = false
						break
					}
				}
				if match {
					return true
				}
			}
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

// MakeRouterState builds a router state for id whose direct neighbours are given as (id, cost) pairs.
func MakeRouterState(id state.NodeId, neighs ...state.Pair[state.NodeId, uint16]) *state.RouterState {
	rs := state.NewRouterState(id, 16)
	now := time.Now()
	for _, n := range neighs {
		_, err := rs.Links.RecordNeighbour(n.V1, n.V2, now)
		if err != nil {
			panic(err)
		}
	}
	return rs
}

func N(id state.NodeId, cost uint16) state.Pair[state.NodeId, uint16] {
	return state.Pair[state.NodeId, uint16]{V1: id, V2: cost}
}

func MakeAdv(origin state.NodeId, seqno uint16, links ...state.Pair[state.NodeId, uint16]) state.Advertisement {
	adv := state.Advertisement{
		Origin: origin,
		Seqno:  seqno,
		Links:  make([]state.LinkRecord, 0, len(links)),
	}
	for _, l := range links {
		adv.Links = append(adv.Links, state.LinkRecord{Src: origin, Dst: l.V1, Cost: l.V2})
	}
	return adv
}

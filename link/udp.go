package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/encodeous/moss/perf"
	"github.com/encodeous/moss/protocol"
	"github.com/encodeous/moss/state"
	"golang.org/x/net/ipv4"
)

const batchSize = 16

// UDPTransport emulates a radio over UDP. Every peer has a fixed address, and a broadcast frame
// is sent to each of them.
type UDPTransport struct {
	Id          state.NodeId
	OnMalformed func(err error)
	// OnUnknownSource is called for frames from addresses that are not configured peers.
	OnUnknownSource func(addr netip.AddrPort)
	conn            *net.UDPConn
	pc              *ipv4.PacketConn
	peers           map[state.NodeId]netip.AddrPort
	addrs           map[netip.AddrPort]state.NodeId
}

func ListenUDP(bind netip.AddrPort, id state.NodeId, peers map[state.NodeId]netip.AddrPort) (*UDPTransport, error) {
	if !bind.Addr().Unmap().Is4() {
		return nil, fmt.Errorf("bind address %s is not ipv4", bind)
	}
	conn, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(bind))
	if err != nil {
		return nil, err
	}
	t := &UDPTransport{
		Id:    id,
		conn:  conn,
		pc:    ipv4.NewPacketConn(conn),
		peers: make(map[state.NodeId]netip.AddrPort),
		addrs: make(map[netip.AddrPort]state.NodeId),
	}
	for pid, addr := range peers {
		addr = netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
		t.peers[pid] = addr
		t.addrs[addr] = pid
	}
	return t, nil
}

func (t *UDPTransport) LocalAddr() netip.AddrPort {
	return t.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

func (t *UDPTransport) Send(env state.SendEnvelope) error {
	env.Src = t.Id
	frame := protocol.EncodeFrame(env)
	if env.Dest == state.BroadcastId {
		var errs []error
		for _, addr := range t.peers {
			_, err := t.conn.WriteToUDPAddrPort(frame, addr)
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}
	addr, ok := t.peers[env.Dest]
	if !ok {
		return fmt.Errorf("%w: %s", state.ErrUnknownPeer, env.Dest)
	}
	_, err := t.conn.WriteToUDPAddrPort(frame, addr)
	return err
}

// Run reads frames in batches until ctx is cancelled, then closes the socket.
func (t *UDPTransport) Run(ctx context.Context, recv func(env state.SendEnvelope)) error {
	go func() {
		<-ctx.Done()
		_ = t.conn.Close()
	}()
	msgs := make([]ipv4.Message, batchSize)
	for i := range msgs {
		msgs[i].Buffers = [][]byte{make([]byte, state.SafeMTU+64)}
	}
	for {
		n, err := t.pc.ReadBatch(msgs, 0)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		perf.RecvBatchSize.Add(float64(n))
		for _, msg := range msgs[:n] {
			t.handle(msg, recv)
		}
	}
}

func (t *UDPTransport) handle(msg ipv4.Message, recv func(env state.SendEnvelope)) {
	udpAddr, ok := msg.Addr.(*net.UDPAddr)
	if !ok {
		return
	}
	ap := udpAddr.AddrPort()
	ap = netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	pid, known := t.addrs[ap]
	if !known {
		perf.UnknownSourcePerSecond.Add(1)
		if t.OnUnknownSource != nil {
			t.OnUnknownSource(ap)
		}
		return
	}
	env, err := protocol.DecodeFrame(msg.Buffers[0][:msg.N])
	if err == nil && env.Src != pid {
		err = fmt.Errorf("%w: frame claims source %s but came from %s", state.ErrMalformedPacket, env.Src, pid)
	}
	if err != nil {
		if t.OnMalformed != nil {
			t.OnMalformed(err)
		}
		return
	}
	recv(env)
}

// Close releases the socket. It is only needed when Run was never started.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}

package link

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/encodeous/moss/protocol"
	"github.com/encodeous/moss/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUDPTransport(t *testing.T) {
	bind := netip.MustParseAddrPort("127.0.0.1:0")
	a, err := ListenUDP(bind, 1, nil)
	require.NoError(t, err)
	b, err := ListenUDP(bind, 2, nil)
	require.NoError(t, err)

	// peers are only known once both sockets are bound
	a.peers[2] = b.LocalAddr()
	a.addrs[b.LocalAddr()] = 2
	b.peers[1] = a.LocalAddr()
	b.addrs[a.LocalAddr()] = 1

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan state.SendEnvelope, 4)
	malformed := make(chan error, 4)
	b.OnMalformed = func(err error) {
		malformed <- err
	}
	done := make(chan error, 2)
	go func() {
		done <- b.Run(ctx, func(env state.SendEnvelope) {
			env.Packet = append([]byte(nil), env.Packet...)
			got <- env
		})
	}()
	go func() {
		done <- a.Run(ctx, func(env state.SendEnvelope) {})
	}()

	hello := protocol.EncodeHello(protocol.Hello{Src: 1})
	require.NoError(t, a.Send(state.SendEnvelope{Packet: hello, Dest: state.BroadcastId}))
	select {
	case env := <-got:
		assert.Equal(t, state.SendEnvelope{Packet: hello, Src: 1, Dest: state.BroadcastId}, env)
	case <-time.After(2 * time.Second):
		t.Fatal("frame was not received")
	}

	assert.ErrorIs(t, a.Send(state.SendEnvelope{Packet: hello, Dest: 7}), state.ErrUnknownPeer)

	// a frame whose header lies about its sender is malformed
	_, err = a.conn.WriteToUDPAddrPort(protocol.EncodeFrame(state.SendEnvelope{Packet: hello, Src: 5, Dest: 2}), b.LocalAddr())
	require.NoError(t, err)
	select {
	case err := <-malformed:
		assert.ErrorIs(t, err, state.ErrMalformedPacket)
	case <-time.After(2 * time.Second):
		t.Fatal("malformed frame was not reported")
	}

	cancel()
	assert.NoError(t, <-done)
	assert.NoError(t, <-done)
}

func TestUDPTransportUnknownSource(t *testing.T) {
	bind := netip.MustParseAddrPort("127.0.0.1:0")
	a, err := ListenUDP(bind, 1, nil)
	require.NoError(t, err)
	stranger, err := ListenUDP(bind, 9, nil)
	require.NoError(t, err)
	defer stranger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	unknown := make(chan netip.AddrPort, 1)
	a.OnUnknownSource = func(addr netip.AddrPort) {
		unknown <- addr
	}
	received := make(chan state.SendEnvelope, 1)
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx, func(env state.SendEnvelope) {
			received <- env
		})
	}()

	hello := protocol.EncodeHello(protocol.Hello{Src: 9})
	_, err = stranger.conn.WriteToUDPAddrPort(protocol.EncodeFrame(state.SendEnvelope{Packet: hello, Src: 9, Dest: 1}), a.LocalAddr())
	require.NoError(t, err)
	select {
	case addr := <-unknown:
		assert.Equal(t, stranger.LocalAddr().Addr().Unmap(), addr.Addr())
		assert.Equal(t, stranger.LocalAddr().Port(), addr.Port())
	case <-time.After(2 * time.Second):
		t.Fatal("frame from unknown address was not reported")
	}
	assert.Empty(t, received)

	cancel()
	assert.NoError(t, <-done)
}

func TestListenUDPRejectsIPv6(t *testing.T) {
	_, err := ListenUDP(netip.MustParseAddrPort("[::1]:0"), 1, nil)
	assert.Error(t, err)
}

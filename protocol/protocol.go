// Package protocol implements the on-air encoding of moss packets.
//
// All integers are big endian. Every packet starts with a one byte type:
//
//	Hello:         type=1 | src(2)
//	Advertisement: type=2 | origin(2) | seqno(2) | count(1) | count x {dest(2) cost(2)}
//	Data:          type=3 | src(2) | dest(2) | hop limit(1) | payload
//
// On transports without their own addressing, packets are wrapped in a link frame: src(2) | dest(2) | packet.
package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/encodeous/moss/state"
)

type PacketType uint8

const (
	TypeHello         PacketType = 1
	TypeAdvertisement PacketType = 2
	TypeData          PacketType = 3
)

const (
	helloLen       = 3
	advHeaderLen   = 6
	advLinkLen     = 4
	dataHeaderLen  = 6
	frameHeaderLen = 4
)

// Packet is one of Hello, Advert or Data.
type Packet interface {
	Type() PacketType
}

// Hello is the discovery beacon broadcast every discovery interval.
type Hello struct {
	Src state.NodeId
}

type Advert struct {
	state.Advertisement
}

type Data struct {
	Src      state.NodeId
	Dst      state.NodeId
	HopLimit uint8
	Payload  []byte
}

func (Hello) Type() PacketType  { return TypeHello }
func (Advert) Type() PacketType { return TypeAdvertisement }
func (Data) Type() PacketType   { return TypeData }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", state.ErrMalformedPacket, fmt.Sprintf(format, args...))
}

func EncodeHello(h Hello) []byte {
	b := make([]byte, 0, helloLen)
	b = append(b, byte(TypeHello))
	return binary.BigEndian.AppendUint16(b, uint16(h.Src))
}

// EncodeAdvertisement fails if the advertisement has more than 255 links or carries a link that does not start at its origin.
func EncodeAdvertisement(adv state.Advertisement) ([]byte, error) {
	if len(adv.Links) > state.MaxNeighboursLimit {
		return nil, fmt.Errorf("%w: %d", state.ErrTooManyLinks, len(adv.Links))
	}
	b := make([]byte, 0, advHeaderLen+advLinkLen*len(adv.Links))
	b = append(b, byte(TypeAdvertisement))
	b = binary.BigEndian.AppendUint16(b, uint16(adv.Origin))
	b = binary.BigEndian.AppendUint16(b, adv.Seqno)
	b = append(b, uint8(len(adv.Links)))
	for _, l := range adv.Links {
		if l.Src != adv.Origin {
			return nil, fmt.Errorf("%w: %s in advertisement of %s", state.ErrForeignLinkRecord, l, adv.Origin)
		}
		b = binary.BigEndian.AppendUint16(b, uint16(l.Dst))
		b = binary.BigEndian.AppendUint16(b, l.Cost)
	}
	return b, nil
}

func EncodeData(d Data) []byte {
	b := make([]byte, 0, dataHeaderLen+len(d.Payload))
	b = append(b, byte(TypeData))
	b = binary.BigEndian.AppendUint16(b, uint16(d.Src))
	b = binary.BigEndian.AppendUint16(b, uint16(d.Dst))
	b = append(b, d.HopLimit)
	return append(b, d.Payload...)
}

// Encode serializes any Packet.
func Encode(p Packet) ([]byte, error) {
	switch pkt := p.(type) {
	case Hello:
		return EncodeHello(pkt), nil
	case Advert:
		return EncodeAdvertisement(pkt.Advertisement)
	case Data:
		return EncodeData(pkt), nil
	}
	return nil, fmt.Errorf("unknown packet %T", p)
}

// Decode parses a packet. Every failure wraps state.ErrMalformedPacket.
// The returned Data payload aliases b.
func Decode(b []byte) (Packet, error) {
	if len(b) == 0 {
		return nil, malformed("empty packet")
	}
	switch PacketType(b[0]) {
	case TypeHello:
		if len(b) != helloLen {
			return nil, malformed("hello has length %d", len(b))
		}
		return Hello{Src: state.NodeId(binary.BigEndian.Uint16(b[1:]))}, nil
	case TypeAdvertisement:
		return decodeAdvertisement(b)
	case TypeData:
		if len(b) < dataHeaderLen {
			return nil, malformed("data header truncated at %d bytes", len(b))
		}
		return Data{
			Src:      state.NodeId(binary.BigEndian.Uint16(b[1:])),
			Dst:      state.NodeId(binary.BigEndian.Uint16(b[3:])),
			HopLimit: b[5],
			Payload:  b[dataHeaderLen:],
		}, nil
	}
	return nil, malformed("unknown packet type %d", b[0])
}

func decodeAdvertisement(b []byte) (Packet, error) {
	if len(b) < advHeaderLen {
		return nil, malformed("advertisement header truncated at %d bytes", len(b))
	}
	origin := state.NodeId(binary.BigEndian.Uint16(b[1:]))
	count := int(b[5])
	if len(b) != advHeaderLen+count*advLinkLen {
		return nil, malformed("advertisement declares %d links but has %d bytes", count, len(b))
	}
	if origin == state.BroadcastId {
		return nil, malformed("advertisement from broadcast id")
	}
	adv := state.Advertisement{
		Origin: origin,
		Seqno:  binary.BigEndian.Uint16(b[3:]),
		Links:  make([]state.LinkRecord, 0, count),
	}
	for i := range count {
		off := advHeaderLen + i*advLinkLen
		dst := state.NodeId(binary.BigEndian.Uint16(b[off:]))
		if dst == state.BroadcastId {
			return nil, malformed("advertisement of %s has a link to the broadcast id", origin)
		}
		adv.Links = append(adv.Links, state.LinkRecord{
			Src:  origin,
			Dst:  dst,
			Cost: binary.BigEndian.Uint16(b[off+2:]),
		})
	}
	return Advert{adv}, nil
}

// EncodeFrame wraps a packet with its link-level addresses.
func EncodeFrame(env state.SendEnvelope) []byte {
	b := make([]byte, 0, frameHeaderLen+len(env.Packet))
	b = binary.BigEndian.AppendUint16(b, uint16(env.Src))
	b = binary.BigEndian.AppendUint16(b, uint16(env.Dest))
	return append(b, env.Packet...)
}

// DecodeFrame is the inverse of EncodeFrame. The returned packet aliases b.
func DecodeFrame(b []byte) (state.SendEnvelope, error) {
	if len(b) <= frameHeaderLen {
		return state.SendEnvelope{}, malformed("frame truncated at %d bytes", len(b))
	}
	return state.SendEnvelope{
		Src:    state.NodeId(binary.BigEndian.Uint16(b)),
		Dest:   state.NodeId(binary.BigEndian.Uint16(b[2:])),
		Packet: b[frameHeaderLen:],
	}, nil
}

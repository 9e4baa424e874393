package state

import "errors"

var (
	// ErrNoRoute is returned to a sender when the destination is absent from the current routing table.
	ErrNoRoute = errors.New("no route to destination")
	// ErrMalformedPacket marks an inbound frame that could not be decoded. It is counted, never fatal.
	ErrMalformedPacket   = errors.New("malformed packet")
	ErrLinkTableFull     = errors.New("link table is full")
	ErrInvalidNeighbour  = errors.New("invalid neighbour")
	ErrHopLimitExceeded  = errors.New("hop limit exceeded")
	ErrPacketTooLarge    = errors.New("packet exceeds safe mtu")
	ErrUnknownPeer       = errors.New("unknown peer")
	ErrTooManyLinks      = errors.New("too many links in advertisement")
	ErrForeignLinkRecord = errors.New("link record does not originate from the advertising node")
	ErrRouterStopped     = errors.New("router stopped")
)

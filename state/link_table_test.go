package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkTableRecordNeighbour(t *testing.T) {
	now := time.Now()
	lt := NewLinkTable(1, 4)
	assert.Equal(t, uint16(0), lt.Seqno())

	changed, err := lt.RecordNeighbour(2, 3, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, uint16(1), lt.Seqno())

	// same cost only refreshes
	changed, err = lt.RecordNeighbour(2, 3, now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, uint16(1), lt.Seqno())
	n, ok := lt.Get(2)
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Second), n.LastHeard)

	changed, err = lt.RecordNeighbour(2, 5, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, uint16(2), lt.Seqno())
}

func TestLinkTableRejectsInvalidNeighbours(t *testing.T) {
	lt := NewLinkTable(1, 4)
	_, err := lt.RecordNeighbour(1, 1, time.Now())
	assert.ErrorIs(t, err, ErrInvalidNeighbour)
	_, err = lt.RecordNeighbour(BroadcastId, 1, time.Now())
	assert.ErrorIs(t, err, ErrInvalidNeighbour)
	_, err = lt.RecordNeighbour(2, 0, time.Now())
	assert.ErrorIs(t, err, ErrInvalidNeighbour)
	assert.Equal(t, uint16(0), lt.Seqno())
}

func TestLinkTableFull(t *testing.T) {
	lt := NewLinkTable(1, 2)
	now := time.Now()
	_, err := lt.RecordNeighbour(2, 1, now)
	require.NoError(t, err)
	_, err = lt.RecordNeighbour(3, 1, now)
	require.NoError(t, err)
	_, err = lt.RecordNeighbour(4, 1, now)
	assert.ErrorIs(t, err, ErrLinkTableFull)
	assert.Equal(t, 2, lt.Len())

	// existing neighbours can still be refreshed
	_, err = lt.RecordNeighbour(3, 2, now)
	assert.NoError(t, err)
}

func TestLinkTableExpiry(t *testing.T) {
	lt := NewLinkTable(1, 8)
	start := time.Now()
	_, _ = lt.RecordNeighbour(3, 1, start)
	_, _ = lt.RecordNeighbour(2, 1, start)
	_, _ = lt.RecordNeighbour(4, 1, start.Add(2*time.Second))

	expired := lt.Expired(start.Add(3*time.Second), 2*time.Second)
	assert.Equal(t, []NodeId{2, 3}, expired)

	seq := lt.Seqno()
	assert.True(t, lt.ExpireNeighbour(2))
	assert.False(t, lt.ExpireNeighbour(2))
	assert.Equal(t, seq+1, lt.Seqno())
}

func TestLinkTableAdvertisement(t *testing.T) {
	lt := NewLinkTable(5, 8)
	now := time.Now()
	_, _ = lt.RecordNeighbour(9, 4, now)
	_, _ = lt.RecordNeighbour(2, 1, now)

	adv := lt.Advertisement()
	assert.Equal(t, Advertisement{
		Origin: 5,
		Seqno:  2,
		Links: []LinkRecord{
			{Src: 5, Dst: 2, Cost: 1},
			{Src: 5, Dst: 9, Cost: 4},
		},
	}, adv)

	assert.Equal(t, uint16(3), lt.Refresh())
	assert.Equal(t, adv.Links, lt.Advertisement().Links)
}

func TestLinkTableAdvanceSeqno(t *testing.T) {
	lt := NewLinkTable(1, 8)
	lt.Refresh()
	lt.Refresh()
	assert.False(t, lt.AdvanceSeqno(1))
	assert.False(t, lt.AdvanceSeqno(2))
	assert.True(t, lt.AdvanceSeqno(40))
	assert.Equal(t, uint16(41), lt.Seqno())
}

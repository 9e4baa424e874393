package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func adv(origin NodeId, seqno uint16, links ...LinkRecord) Advertisement {
	return Advertisement{Origin: origin, Seqno: seqno, Links: links}
}

func TestTopologyApplyOrdering(t *testing.T) {
	db := NewTopologyDB(1)
	now := time.Now()

	assert.Equal(t, Accepted, db.Apply(adv(4, 5, LinkRecord{4, 1, 1}), now))
	assert.Equal(t, Stale, db.Apply(adv(4, 3), now))
	assert.Equal(t, Duplicate, db.Apply(adv(4, 5), now))

	e, ok := db.Get(4)
	assert.True(t, ok)
	assert.Equal(t, uint16(5), e.Adv.Seqno)
	assert.Equal(t, []LinkRecord{{4, 1, 1}}, e.Adv.Links)

	assert.Equal(t, Accepted, db.Apply(adv(4, 6), now))
	assert.Empty(t, db.Links())
}

func TestTopologyReplayIsNoop(t *testing.T) {
	db := NewTopologyDB(1)
	now := time.Now()
	a := adv(2, 7, LinkRecord{2, 3, 1})
	assert.Equal(t, Accepted, db.Apply(a, now))
	before := db.Entries()

	for range 5 {
		assert.Equal(t, Duplicate, db.Apply(a, now.Add(time.Minute)))
	}
	// a replay must not refresh the arrival time either
	assert.Equal(t, before, db.Entries())
}

func TestTopologySeqnoWrap(t *testing.T) {
	db := NewTopologyDB(1)
	now := time.Now()
	assert.Equal(t, Accepted, db.Apply(adv(2, 65535), now))
	assert.Equal(t, Accepted, db.Apply(adv(2, 0), now))
	assert.Equal(t, Stale, db.Apply(adv(2, 65534), now))
}

func TestTopologyIgnoresSelf(t *testing.T) {
	db := NewTopologyDB(1)
	assert.Equal(t, Stale, db.Apply(adv(1, 1), time.Now()))
	assert.Equal(t, 0, db.Len())
}

func TestTopologyDoesNotAliasLinks(t *testing.T) {
	db := NewTopologyDB(1)
	links := []LinkRecord{{2, 3, 1}}
	db.Apply(adv(2, 1, links...), time.Now())
	links[0].Cost = 9
	assert.Equal(t, []LinkRecord{{2, 3, 1}}, db.Links())
}

func TestTopologySweep(t *testing.T) {
	db := NewTopologyDB(1)
	start := time.Now()
	db.Apply(adv(5, 1, LinkRecord{5, 1, 1}), start)
	db.Apply(adv(3, 1, LinkRecord{3, 1, 1}), start)
	db.Apply(adv(2, 1, LinkRecord{2, 1, 1}), start.Add(10*time.Second))

	assert.Empty(t, db.Sweep(start.Add(5*time.Second), 10*time.Second))
	assert.Equal(t, []NodeId{3, 5}, db.Sweep(start.Add(11*time.Second), 10*time.Second))
	assert.Equal(t, []LinkRecord{{2, 1, 1}}, db.Links())
}

func TestTopologyLinksSorted(t *testing.T) {
	db := NewTopologyDB(1)
	now := time.Now()
	db.Apply(adv(3, 1, LinkRecord{3, 2, 1}, LinkRecord{3, 1, 1}), now)
	db.Apply(adv(2, 1, LinkRecord{2, 3, 1}), now)
	assert.Equal(t, []LinkRecord{{2, 3, 1}, {3, 1, 1}, {3, 2, 1}}, db.Links())
}

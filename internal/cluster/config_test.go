package cluster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kavih/zabcore/internal/cluster"
	"github.com/kavih/zabcore/internal/zxid"
)

func TestQuorumSize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n    int
		want int
	}{
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{5, 3},
	}

	for _, tc := range cases {
		members := make([]cluster.ServerID, tc.n)
		for i := range members {
			members[i] = cluster.ServerID(string(rune('a' + i)))
		}

		cfg := cluster.New(zxid.New(0, 0), members...)
		assert.Equal(t, tc.want, cfg.QuorumSize(), "n=%d", tc.n)
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	cfg := cluster.New(zxid.New(0, 0), "p1", "p2")
	assert.True(t, cfg.Contains("p1"))
	assert.False(t, cfg.Contains("p3"))
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	original := cluster.New(zxid.New(0, 0), "p1")
	clone := original.Clone()

	withExtra := clone.AddPeer("p2", zxid.New(0, 1))

	assert.False(t, original.Contains("p2"))
	assert.False(t, clone.Contains("p2"))
	assert.True(t, withExtra.Contains("p2"))
}

func TestAddPeerSetsVersion(t *testing.T) {
	t.Parallel()

	cfg := cluster.New(zxid.New(1, 5), "p1")
	next := cfg.AddPeer("p2", zxid.New(1, 7))

	assert.Equal(t, zxid.New(1, 7), next.Version())
	assert.Equal(t, zxid.New(1, 5), cfg.Version(), "AddPeer must not mutate the receiver")
	assert.Equal(t, 2, next.Size())
	assert.Equal(t, 1, cfg.Size())
}

func TestRemovePeerSetsVersion(t *testing.T) {
	t.Parallel()

	cfg := cluster.New(zxid.New(1, 5), "p1", "p2")
	next := cfg.RemovePeer("p2", zxid.New(1, 8))

	assert.False(t, next.Contains("p2"))
	assert.True(t, cfg.Contains("p2"), "RemovePeer must not mutate the receiver")
	assert.Equal(t, zxid.New(1, 8), next.Version())
}

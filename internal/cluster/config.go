// Package cluster implements ClusterConfiguration: a membership
// snapshot versioned by the zxid of the transaction that installs it.
package cluster

import (
	"maps"

	"github.com/kavih/zabcore/internal/zxid"
)

// ServerID identifies a peer in the replicated group.
type ServerID string

// Configuration is a membership snapshot. Version is the zxid of the
// transaction that will install (or installed) this configuration.
// The zero value is an empty configuration whose version is the zero
// Zxid (0:0), not zxid.NotExist; use New to build a populated one.
type Configuration struct {
	members map[ServerID]struct{}
	version zxid.Zxid
}

// New builds a Configuration from the given members at the given
// version.
func New(version zxid.Zxid, members ...ServerID) Configuration {
	set := make(map[ServerID]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}

	return Configuration{members: set, version: version}
}

// Version returns the zxid that installs this configuration.
func (c Configuration) Version() zxid.Zxid {
	return c.version
}

// Contains reports whether id is a member of this configuration.
func (c Configuration) Contains(id ServerID) bool {
	_, ok := c.members[id]
	return ok
}

// Size returns the number of members in this configuration.
func (c Configuration) Size() int {
	return len(c.members)
}

// QuorumSize returns floor(|members| / 2) + 1.
func (c Configuration) QuorumSize() int {
	return c.Size()/2 + 1
}

// Members returns a copy of the membership set, safe for the caller to
// range over without aliasing the configuration's internal map.
func (c Configuration) Members() []ServerID {
	out := make([]ServerID, 0, len(c.members))
	for m := range c.members {
		out = append(out, m)
	}

	return out
}

// Clone returns a deep copy of c so mutating the copy (via AddPeer or
// RemovePeer) never affects the original.
func (c Configuration) Clone() Configuration {
	return Configuration{members: maps.Clone(c.members), version: c.version}
}

// AddPeer returns a new Configuration with id added to the membership
// and version set to at, leaving c unchanged.
func (c Configuration) AddPeer(id ServerID, at zxid.Zxid) Configuration {
	next := c.Clone()
	if next.members == nil {
		next.members = make(map[ServerID]struct{}, 1)
	}

	next.members[id] = struct{}{}
	next.version = at

	return next
}

// RemovePeer returns a new Configuration with id removed from the
// membership and version set to at, leaving c unchanged.
func (c Configuration) RemovePeer(id ServerID, at zxid.Zxid) Configuration {
	next := c.Clone()
	delete(next.members, id)
	next.version = at

	return next
}

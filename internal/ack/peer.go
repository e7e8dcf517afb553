package ack

import (
	"github.com/kavih/zabcore/internal/cluster"
	"github.com/kavih/zabcore/internal/zxid"
)

// PeerHandler is the external collaborator owned by the network
// transport layer. The processor never owns a peer's lifecycle; it
// only reads last_acked_zxid and enqueues outbound messages.
type PeerHandler interface {
	// ServerID returns the peer's identifier.
	ServerID() cluster.ServerID

	// LastAckedZxid returns the peer's most recently acknowledged
	// zxid, and false if the peer has not yet sent any ACK.
	LastAckedZxid() (z zxid.Zxid, ok bool)

	// SetLastAckedZxid records a newly observed ACK.
	SetLastAckedZxid(z zxid.Zxid)

	// QueueMessage hands a message to the peer's outbound path. This
	// may block; the processor treats it as potentially blocking and
	// does not retry on failure, per the peer handler's own I/O
	// semantics.
	QueueMessage(msg CommitMessage) error
}

// PeerSource is the external, concurrency-safe mapping from ServerID to
// PeerHandler ("quorum_set_original" in the spec). It is populated by
// an orchestrator outside this package; the processor only reads it.
type PeerSource interface {
	Load(id cluster.ServerID) (PeerHandler, bool)
}

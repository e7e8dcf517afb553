package ack

import (
	"github.com/kavih/zabcore/internal/cluster"
	"github.com/kavih/zabcore/internal/zxid"
)

// Kind identifies the recognized AckProcessor event types. Decoding the
// wire envelope into a Kind plus its payload is external to this
// package; the core only inspects the result.
type Kind int

const (
	// KindUnknown covers any envelope type the core does not
	// recognize. The processor logs and ignores these.
	KindUnknown Kind = iota
	// KindAck carries a peer's latest acknowledged zxid.
	KindAck
	// KindJoin proposes adding a new peer at a given zxid.
	KindJoin
	// KindAckEpoch reports a peer completing epoch negotiation.
	KindAckEpoch
	// KindDisconnected reports a peer dropping out of the working set.
	KindDisconnected
	// KindRemove proposes removing a peer at a given zxid.
	KindRemove
)

// String renders a Kind for logging.
func (k Kind) String() string {
	switch k {
	case KindAck:
		return "ACK"
	case KindJoin:
		return "JOIN"
	case KindAckEpoch:
		return "ACK_EPOCH"
	case KindDisconnected:
		return "DISCONNECTED"
	case KindRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// Message is the tagged envelope the processor inspects. Kind selects
// which fields are meaningful; wire decoding populates this struct
// before handing it to the processor.
type Message struct {
	Kind Kind
	// Zxid carries the ack/join/remove zxid; zero value for kinds that
	// don't need one (ACK_EPOCH, DISCONNECTED).
	Zxid zxid.Zxid
}

// MessageTuple is one event dequeued by the AckProcessor's event loop.
type MessageTuple struct {
	ServerID cluster.ServerID
	Message  Message
}

// CommitMessage is broadcast to every current member of the working
// set when the commit point advances.
type CommitMessage struct {
	Zxid zxid.Zxid
}

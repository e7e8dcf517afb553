package ack

import "errors"

// ErrConcurrentReconfig is fatal: a JOIN or REMOVE arrived while a
// reconfiguration was already pending. It terminates the processor's
// event loop; the owner observes it through Shutdown's return value.
var ErrConcurrentReconfig = errors.New("concurrent reconfiguration")

// ErrShutdown marks a normal termination via the sentinel message,
// distinguishing it from a fatal error in logs and tests that only
// care whether the loop ended on request.
var ErrShutdown = errors.New("shutdown requested")

// ErrUnknownPeer reports a JOIN or ACK_EPOCH event naming a peer
// absent from the external PeerSource: the orchestrator has not
// registered a handler for it yet.
var ErrUnknownPeer = errors.New("unknown peer")

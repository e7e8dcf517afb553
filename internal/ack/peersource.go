package ack

import (
	"sync"

	"github.com/kavih/zabcore/internal/cluster"
)

// SharedPeerSource is a concurrency-safe PeerSource backed by
// sync.Map: an external orchestrator calls Store/Delete as peers
// connect and disconnect, while the AckProcessor only ever calls Load.
type SharedPeerSource struct {
	peers sync.Map // cluster.ServerID -> PeerHandler
}

// NewSharedPeerSource returns an empty SharedPeerSource.
func NewSharedPeerSource() *SharedPeerSource {
	return &SharedPeerSource{}
}

// Store registers or replaces the handler for id. Called by the
// orchestrator, never by the processor.
func (s *SharedPeerSource) Store(id cluster.ServerID, handler PeerHandler) {
	s.peers.Store(id, handler)
}

// Delete removes the handler for id. Called by the orchestrator, never
// by the processor.
func (s *SharedPeerSource) Delete(id cluster.ServerID) {
	s.peers.Delete(id)
}

// Load implements PeerSource.
func (s *SharedPeerSource) Load(id cluster.ServerID) (PeerHandler, bool) {
	v, ok := s.peers.Load(id)
	if !ok {
		return nil, false
	}

	handler, ok := v.(PeerHandler)

	return handler, ok
}

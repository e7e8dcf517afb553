// Package ack implements the leader's commit-decision loop: a
// single-consumer event processor that tracks peer acknowledgments,
// computes safe commit points under the current and any pending
// cluster configuration, and drives single-step reconfiguration.
package ack

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kavih/zabcore/internal/cluster"
	"github.com/kavih/zabcore/internal/zxid"
)

// event is what flows through the processor's inbox: either a real
// MessageTuple or the sentinel "request of death" that terminates the
// loop, modeled as a boolean flag on the same queue element rather
// than a second channel so ordering against in-flight events is exact.
type event struct {
	tuple   MessageTuple
	poison  bool
	barrier chan struct{}
}

// Processor is the leader's single-threaded ACK event loop. All of its
// state is touched by exactly one goroutine: the one running Run.
// Producers call ProcessRequest (and, once, Shutdown) from any
// goroutine; those only ever enqueue.
type Processor struct {
	original PeerSource

	inbox chan event
	done  chan error

	diagnostics io.Writer

	// State below is owned exclusively by the goroutine running Run.
	working       map[cluster.ServerID]PeerHandler
	clusterConfig cluster.Configuration
	pendingConfig *cluster.Configuration
	lastCommitted zxid.Zxid

	startOnce sync.Once
}

// Option configures a Processor at construction time.
type Option func(*Processor)

// WithDiagnostics routes "unknown message type" and other non-fatal
// diagnostics to w instead of io.Discard.
func WithDiagnostics(w io.Writer) Option {
	return func(p *Processor) {
		p.diagnostics = w
	}
}

// New builds a Processor seeded with the initial committed
// configuration and the external peer source it lifts peers from on
// JOIN/ACK_EPOCH.
func New(original PeerSource, initial cluster.Configuration, opts ...Option) *Processor {
	p := &Processor{
		original:      original,
		inbox:         make(chan event, 64),
		done:          make(chan error, 1),
		diagnostics:   io.Discard,
		working:       make(map[cluster.ServerID]PeerHandler),
		clusterConfig: initial,
		lastCommitted: zxid.NotExist,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProcessRequest enqueues one inbound event. Safe to call from any
// goroutine.
func (p *Processor) ProcessRequest(tuple MessageTuple) {
	p.inbox <- event{tuple: tuple}
}

// Start launches the event loop on a dedicated goroutine. Start is
// idempotent: calling it more than once has no additional effect.
func (p *Processor) Start() {
	p.startOnce.Do(func() {
		go p.run()
	})
}

// Sync blocks until every event enqueued before this call has been
// processed. It exists for tests and for callers that need a
// synchronous checkpoint; it is not part of the spec's external
// surface.
func (p *Processor) Sync() {
	ch := make(chan struct{})
	p.inbox <- event{barrier: ch}
	<-ch
}

// Shutdown enqueues the sentinel and blocks until the worker exits,
// returning the error the loop terminated with: ErrShutdown for a
// normal stop, or the fatal error (wrapping ErrConcurrentReconfig or
// ErrUnknownPeer) that ended the loop early. Shutdown must follow
// Start: with no running loop nothing receives the sentinel, and
// Shutdown blocks.
func (p *Processor) Shutdown() error {
	p.inbox <- event{poison: true}
	return <-p.done
}

// run is the single-consumer loop. It must execute on exactly one
// goroutine for the lifetime of the Processor.
func (p *Processor) run() {
	for e := range p.inbox {
		if e.poison {
			p.done <- ErrShutdown
			return
		}

		if e.barrier != nil {
			close(e.barrier)
			continue
		}

		err := p.handle(e.tuple)
		if err != nil {
			p.done <- err
			return
		}
	}
}

// handle dispatches one MessageTuple to the appropriate event handler.
func (p *Processor) handle(tuple MessageTuple) error {
	switch tuple.Message.Kind {
	case KindAck:
		return p.onAck(tuple.ServerID, tuple.Message.Zxid)
	case KindJoin:
		return p.onJoin(tuple.ServerID, tuple.Message.Zxid)
	case KindAckEpoch:
		return p.onAckEpoch(tuple.ServerID)
	case KindDisconnected:
		p.onDisconnected(tuple.ServerID)
		return nil
	case KindRemove:
		return p.onRemove(tuple.ServerID, tuple.Message.Zxid)
	default:
		fmt.Fprintf(p.diagnostics, "ack: ignoring message of unknown kind from %s\n", tuple.ServerID)
		return nil
	}
}

// onAck records the peer's ack and recomputes the commit point.
func (p *Processor) onAck(source cluster.ServerID, z zxid.Zxid) error {
	peer, ok := p.working[source]
	if !ok {
		return nil // stale ack from a peer no longer in the working set.
	}

	peer.SetLastAckedZxid(z)

	candidate := p.computeCommitCandidate()
	if zxid.Less(p.lastCommitted, candidate) {
		p.broadcastCommit(candidate)
		p.lastCommitted = candidate
	}

	return nil
}

// computeCommitCandidate implements the two-stage commit-point
// selection from the spec: try the pending configuration first (it may
// have just reached quorum and be ready to install), then fall back to
// the current configuration, capped at one below any still-pending
// reconfiguration's version (the change-of-peers safety barrier).
func (p *Processor) computeCommitCandidate() zxid.Zxid {
	if p.pendingConfig != nil {
		z := p.committedZxid(*p.pendingConfig)
		if zxid.LessOrEqual(p.pendingConfig.Version(), z) {
			p.clusterConfig = *p.pendingConfig
			p.pendingConfig = nil

			return z
		}
	}

	z := p.committedZxid(p.clusterConfig)

	if p.pendingConfig != nil && zxid.LessOrEqual(p.pendingConfig.Version(), z) {
		z = zxid.Prev(p.pendingConfig.Version())
	}

	return z
}

// committedZxid returns the largest zxid a quorum of cfg has
// acknowledged: the quorum_size-th largest last-acked value among
// working-set members that are in cfg and have acked at least once. If
// fewer than quorum_size such values exist, it returns the last
// committed zxid (no progress possible).
func (p *Processor) committedZxid(cfg cluster.Configuration) zxid.Zxid {
	acked := make([]zxid.Zxid, 0, len(p.working))

	for id, peer := range p.working {
		if !cfg.Contains(id) {
			continue
		}

		z, ok := peer.LastAckedZxid()
		if !ok {
			continue
		}

		acked = append(acked, z)
	}

	quorum := cfg.QuorumSize()
	if len(acked) < quorum {
		return p.lastCommitted
	}

	sort.Slice(acked, func(i, j int) bool { return zxid.Less(acked[i], acked[j]) })

	return acked[len(acked)-quorum]
}

// broadcastCommit sends COMMIT(z) to every current member of the
// working set. Failures from individual peers are the peer handler's
// own responsibility and are not recovered here.
func (p *Processor) broadcastCommit(z zxid.Zxid) {
	for _, peer := range p.working {
		_ = peer.QueueMessage(CommitMessage{Zxid: z})
	}
}

// onJoin lifts the new peer into the working set and proposes adding
// it to the cluster configuration at the given zxid. Fatal if a
// reconfiguration is already pending.
func (p *Processor) onJoin(id cluster.ServerID, at zxid.Zxid) error {
	if p.pendingConfig != nil {
		return p.fatalConcurrentReconfig("JOIN", id)
	}

	handler, ok := p.original.Load(id)
	if !ok {
		return fmt.Errorf("join %s: %w", id, ErrUnknownPeer)
	}

	p.working[id] = handler

	next := p.clusterConfig.AddPeer(id, at)
	p.pendingConfig = &next

	return nil
}

// onAckEpoch lifts the peer into the working set with no configuration
// change.
func (p *Processor) onAckEpoch(id cluster.ServerID) error {
	handler, ok := p.original.Load(id)
	if !ok {
		return fmt.Errorf("ack_epoch %s: %w", id, ErrUnknownPeer)
	}

	p.working[id] = handler

	return nil
}

// onDisconnected removes the peer from the working set. It never
// touches cluster_config or pending_config: the peer simply stops
// contributing to future commit-point computations.
func (p *Processor) onDisconnected(id cluster.ServerID) {
	delete(p.working, id)
}

// onRemove proposes removing the peer from the cluster configuration
// at the given zxid. Fatal if a reconfiguration is already pending.
func (p *Processor) onRemove(id cluster.ServerID, at zxid.Zxid) error {
	if p.pendingConfig != nil {
		return p.fatalConcurrentReconfig("REMOVE", id)
	}

	next := p.clusterConfig.RemovePeer(id, at)
	p.pendingConfig = &next

	return nil
}

// fatalConcurrentReconfig builds the ConcurrentReconfig error for a
// JOIN/REMOVE that arrived while a reconfiguration was already
// pending, tagging it with an incident ID so a leader log entry and
// the peers' own logs can be correlated without relying on wall-clock
// timestamps.
func (p *Processor) fatalConcurrentReconfig(op string, id cluster.ServerID) error {
	incident := uuid.New()
	return fmt.Errorf("%s from %s while reconfiguration pending [incident %s]: %w",
		op, id, incident, ErrConcurrentReconfig)
}

// ClusterConfig returns the currently committed configuration. Safe to
// call only after Shutdown has returned, or after Sync has returned
// while no further events are being enqueued.
func (p *Processor) ClusterConfig() cluster.Configuration {
	return p.clusterConfig
}

// LastCommittedZxid returns the greatest zxid for which COMMIT has
// been broadcast.
func (p *Processor) LastCommittedZxid() zxid.Zxid {
	return p.lastCommitted
}

// PendingConfig returns the in-flight reconfiguration, if any, and
// whether one exists.
func (p *Processor) PendingConfig() (cluster.Configuration, bool) {
	if p.pendingConfig == nil {
		return cluster.Configuration{}, false
	}

	return *p.pendingConfig, true
}

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/kavih/zabcore/internal/ack"
	"github.com/kavih/zabcore/internal/cluster"
	"github.com/kavih/zabcore/internal/zxid"
)

// demoPeer is a PeerHandler that prints every COMMIT it receives
// instead of sending it over a wire connection. It stands in for the
// network transport layer this module's non-goals exclude.
type demoPeer struct {
	id  cluster.ServerID
	out io.Writer

	mu        sync.Mutex
	lastAcked *zxid.Zxid
}

func newDemoPeer(id cluster.ServerID, out io.Writer) *demoPeer {
	return &demoPeer{id: id, out: out}
}

func (p *demoPeer) ServerID() cluster.ServerID { return p.id }

func (p *demoPeer) LastAckedZxid() (zxid.Zxid, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastAcked == nil {
		return zxid.Zxid{}, false
	}

	return *p.lastAcked, true
}

func (p *demoPeer) SetLastAckedZxid(z zxid.Zxid) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastAcked = &z
}

func (p *demoPeer) QueueMessage(msg ack.CommitMessage) error {
	_, err := fmt.Fprintf(p.out, "-> COMMIT %s to %s\n", msg.Zxid, p.id)
	return err
}

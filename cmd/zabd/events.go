package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kavih/zabcore/internal/ack"
	"github.com/kavih/zabcore/internal/cluster"
	"github.com/kavih/zabcore/internal/zxid"
)

// scriptedEvent is one line of a script file: a single inbound event
// the demo feeds to the ack.Processor in place of a real wire
// transport, which this module's non-goals explicitly exclude.
type scriptedEvent struct {
	Kind     string `json:"kind"`
	ServerID string `json:"server_id"`
	Epoch    int64  `json:"epoch"`
	Xid      int64  `json:"xid"`
}

var errUnknownEventKind = fmt.Errorf("zabd: unknown event kind")

func parseKind(s string) (ack.Kind, error) {
	switch strings.ToLower(s) {
	case "ack":
		return ack.KindAck, nil
	case "join":
		return ack.KindJoin, nil
	case "ack_epoch", "ackepoch":
		return ack.KindAckEpoch, nil
	case "disconnected":
		return ack.KindDisconnected, nil
	case "remove":
		return ack.KindRemove, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownEventKind, s)
	}
}

// readScript decodes one scriptedEvent per non-blank line.
func readScript(r io.Reader) ([]scriptedEvent, error) {
	var events []scriptedEvent

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var e scriptedEvent

		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("zabd: parse script line %q: %w", line, err)
		}

		events = append(events, e)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("zabd: read script: %w", err)
	}

	return events, nil
}

// applyScript replays every event onto proc in order, registering each
// referenced peer with source the first time it's mentioned.
func applyScript(proc *ack.Processor, source *ack.SharedPeerSource, out io.Writer, events []scriptedEvent) error {
	for _, e := range events {
		kind, err := parseKind(e.Kind)
		if err != nil {
			return err
		}

		id := cluster.ServerID(e.ServerID)

		if _, ok := source.Load(id); !ok {
			source.Store(id, newDemoPeer(id, out))
		}

		proc.ProcessRequest(ack.MessageTuple{
			ServerID: id,
			Message:  ack.Message{Kind: kind, Zxid: zxid.New(e.Epoch, e.Xid)},
		})
	}

	return nil
}

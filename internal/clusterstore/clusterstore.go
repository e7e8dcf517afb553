// Package clusterstore persists the leader's committed cluster
// configuration and accepted epoch to disk between restarts. It is the
// bootstrap/recovery counterpart to the in-memory internal/cluster and
// internal/ack packages: on startup an orchestrator loads a
// Configuration here, feeds it to ack.New, and on every committed
// reconfiguration writes the new snapshot back.
//
// Persistence uses the same pattern the rest of this module's teacher
// lineage uses for its own state files: a human-editable HuJSON
// document on disk, written atomically so a crash never leaves a
// torn/partial file behind.
package clusterstore

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/kavih/zabcore/internal/cluster"
	"github.com/kavih/zabcore/internal/zxid"
)

// Snapshot is the on-disk representation of a committed cluster
// configuration plus the leader's accepted epoch marker.
type Snapshot struct {
	Members       []string `json:"members"`
	Version       zxidDoc  `json:"version"`
	AcceptedEpoch int64    `json:"accepted_epoch"`
}

// zxidDoc is Zxid's on-disk shape: broken into named fields rather than
// the "epoch:xid" string form so a hand-edited bootstrap file doesn't
// need to know the String method's formatting.
type zxidDoc struct {
	Epoch int64 `json:"epoch"`
	Xid   int64 `json:"xid"`
}

// Load reads and parses the snapshot at path, tolerating JSON-with-
// comments (HuJSON) so an operator can annotate a hand-maintained
// bootstrap file. A missing file is not an error: it returns the zero
// Configuration and accepted epoch 0, the state of a cluster that has
// never committed a configuration.
func Load(path string) (cluster.Configuration, int64, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		if os.IsNotExist(err) {
			return cluster.Configuration{}, 0, nil
		}

		return cluster.Configuration{}, 0, fmt.Errorf("clusterstore: reading %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return cluster.Configuration{}, 0, fmt.Errorf("clusterstore: %s is not valid HuJSON: %w", path, err)
	}

	var snap Snapshot

	if err := json.Unmarshal(standardized, &snap); err != nil {
		return cluster.Configuration{}, 0, fmt.Errorf("clusterstore: %s: %w", path, err)
	}

	members := make([]cluster.ServerID, 0, len(snap.Members))
	for _, m := range snap.Members {
		members = append(members, cluster.ServerID(m))
	}

	version := zxid.New(snap.Version.Epoch, snap.Version.Xid)
	cfg := cluster.New(version, members...)

	return cfg, snap.AcceptedEpoch, nil
}

// Save writes cfg and acceptedEpoch to path atomically: readers either
// see the previous snapshot in full or the new one, never a partial
// write. Members are sorted in Snapshot via the caller's Configuration,
// which returns them in map order; Save stabilizes that into a
// deterministic diff-friendly ordering.
func Save(path string, cfg cluster.Configuration, acceptedEpoch int64) error {
	members := cfg.Members()
	names := make([]string, 0, len(members))

	for _, m := range members {
		names = append(names, string(m))
	}

	sort.Strings(names)

	snap := Snapshot{
		Members: names,
		Version: zxidDoc{
			Epoch: cfg.Version().Epoch,
			Xid:   cfg.Version().Xid,
		},
		AcceptedEpoch: acceptedEpoch,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("clusterstore: encoding snapshot: %w", err)
	}

	if err := atomic.WriteFile(path, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("clusterstore: writing %s: %w", path, err)
	}

	return nil
}


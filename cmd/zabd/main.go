// Command zabd is a demonstration leader process: it wires a
// TransactionLog, a ClusterConfiguration loaded via clusterstore, and
// an ack.Processor together and drives the processor from a scripted
// event file in place of a real peer transport. It exists to exercise
// the commit core end to end; it is not a production ZAB leader.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kavih/zabcore/internal/ack"
	"github.com/kavih/zabcore/internal/cli"
	"github.com/kavih/zabcore/internal/clusterstore"
	"github.com/kavih/zabcore/internal/fsx"
	"github.com/kavih/zabcore/internal/txn"
	"github.com/kavih/zabcore/internal/txnlog"
	"github.com/kavih/zabcore/internal/zxid"
)

func main() {
	commands := []*cli.Command{runCmd(), statusCmd()}
	os.Exit(cli.Dispatch(context.Background(), "zabd", commands, os.Stdout, os.Stderr, os.Args[1:]))
}

func runCmd() *cli.Command {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	clusterPath := fs.String("cluster", "", "path to the cluster snapshot (hujson)")
	logPath := fs.String("log", "", "path to the transaction log file")
	scriptPath := fs.String("script", "", "path to a scripted event file")

	return &cli.Command{
		Flags: fs,
		Usage: "run --cluster <path> --log <path> --script <path>",
		Short: "replay a scripted event file through the commit core",
		Long: "run loads the last committed cluster configuration, opens the " +
			"transaction log, feeds every event in the script file to the ack " +
			"processor in order, and persists the resulting configuration back " +
			"to --cluster once the script is exhausted.",
		Exec: func(_ context.Context, o *cli.IO, _ []string) error {
			if *clusterPath == "" || *logPath == "" || *scriptPath == "" {
				return fmt.Errorf("run: --cluster, --log, and --script are all required")
			}

			return runDaemon(o, *clusterPath, *logPath, *scriptPath)
		},
	}
}

func statusCmd() *cli.Command {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	clusterPath := fs.String("cluster", "", "path to the cluster snapshot (hujson)")

	return &cli.Command{
		Flags: fs,
		Usage: "status --cluster <path>",
		Short: "print the last committed cluster configuration",
		Exec: func(_ context.Context, o *cli.IO, _ []string) error {
			if *clusterPath == "" {
				return fmt.Errorf("status: --cluster is required")
			}

			cfg, epoch, err := clusterstore.Load(*clusterPath)
			if err != nil {
				return err
			}

			o.Printf("accepted_epoch: %d\n", epoch)
			o.Printf("version: %s\n", cfg.Version())
			o.Printf("members: %v\n", cfg.Members())

			return nil
		},
	}
}

func runDaemon(o *cli.IO, clusterPath, logPath, scriptPath string) error {
	initial, acceptedEpoch, err := clusterstore.Load(clusterPath)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fsys := fsx.NewReal()

	log, err := txnlog.Open(fsys, logPath, nil)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer func() { _ = log.Close() }()

	scriptFile, err := os.Open(scriptPath) //nolint:gosec // path is operator-supplied
	if err != nil {
		return fmt.Errorf("run: open script: %w", err)
	}
	defer func() { _ = scriptFile.Close() }()

	events, err := readScript(scriptFile)
	if err != nil {
		return err
	}

	source := ack.NewSharedPeerSource()
	proc := ack.New(source, initial, ack.WithDiagnostics(os.Stderr))
	proc.Start()

	if err := applyScript(proc, source, os.Stdout, events); err != nil {
		_ = proc.Shutdown()
		return err
	}

	proc.Sync()

	if err := logCommitMarker(log, proc.LastCommittedZxid()); err != nil {
		o.Warn(fmt.Sprintf("could not append commit marker to log: %v", err))
	}

	if err := proc.Shutdown(); err != nil && !errors.Is(err, ack.ErrShutdown) {
		return fmt.Errorf("run: %w", err)
	}

	final := proc.ClusterConfig()

	if err := clusterstore.Save(clusterPath, final, acceptedEpoch); err != nil {
		return fmt.Errorf("run: persist cluster snapshot: %w", err)
	}

	o.Printf("committed up to %s, cluster now has %d members\n", proc.LastCommittedZxid(), final.Size())

	return nil
}

// commitMarkerType tags the synthetic transaction logCommitMarker
// appends; it carries no body, only the zxid the run committed up to.
const commitMarkerType = 0

// logCommitMarker appends a synthetic transaction recording the demo
// run's final commit point, so the log and the cluster snapshot agree
// on where the run left off. A no-op if nothing was ever committed.
func logCommitMarker(log *txnlog.TransactionLog, committed zxid.Zxid) error {
	if committed.IsNotExist() {
		return nil
	}

	t, err := txn.New(committed, commitMarkerType, nil)
	if err != nil {
		return err
	}

	if err := log.Append(t); err != nil {
		if errors.Is(err, txnlog.ErrOutOfOrder) {
			return nil // the log already recorded this commit point.
		}

		return err
	}

	return log.Sync()
}

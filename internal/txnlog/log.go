package txnlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/kavih/zabcore/internal/fsx"
	"github.com/kavih/zabcore/internal/txn"
	"github.com/kavih/zabcore/internal/zxid"
)

// TransactionLog is a single-writer, append-only journal of
// totally-ordered transactions. Concurrent Append from multiple
// goroutines is not supported; callers must serialize writes.
type TransactionLog struct {
	fsys fsx.FS
	path string

	out    fsx.File
	writer *bufio.Writer

	lastSeenZxid zxid.Zxid
	closed       bool
}

// Open opens the log file at path in append mode, preserving any
// existing contents. If lastSeenZxid is nil, Open scans the file once
// to its end to recover it; if the file is empty, the recovered value
// is zxid.NotExist. A partial trailing record found during recovery
// fails with ErrCorrupt — Open does not silently truncate; callers
// decide whether to repair via Truncate.
func Open(fsys fsx.FS, path string, lastSeenZxid *zxid.Zxid) (*TransactionLog, error) {
	out, err := fsys.OpenAppend(path)
	if err != nil {
		return nil, fmt.Errorf("open log %q: %w", path, err)
	}

	l := &TransactionLog{
		fsys:   fsys,
		path:   path,
		out:    out,
		writer: bufio.NewWriter(out),
	}

	if lastSeenZxid != nil {
		l.lastSeenZxid = *lastSeenZxid
		return l, nil
	}

	recovered, err := scanToEnd(fsys, path)
	if err != nil {
		_ = out.Close()

		return nil, fmt.Errorf("recover log %q: %w", path, err)
	}

	l.lastSeenZxid = recovered

	return l, nil
}

// scanToEnd reads every record from the start of the file to recover
// the last-seen zxid. A record boundary is checked against the file's
// size before each decode, so a clean end of file stops the scan
// normally; any Decode failure encountered before that boundary is a
// partial trailing record and fails recovery with ErrCorrupt.
func scanToEnd(fsys fsx.FS, path string) (zxid.Zxid, error) {
	f, err := fsys.OpenReadWrite(path)
	if err != nil {
		return zxid.Zxid{}, fmt.Errorf("open for scan: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return zxid.Zxid{}, fmt.Errorf("stat for scan: %w", err)
	}

	size := info.Size()
	last := zxid.NotExist

	var pos int64

	for pos < size {
		t, n, err := Decode(f)
		if err != nil {
			return zxid.Zxid{}, fmt.Errorf("scan %q at offset %d: %w: %w", path, pos, ErrCorrupt, err)
		}

		last = t.Zxid
		pos += n
	}

	return last, nil
}

// Append encodes txn and writes it to the buffered output. It requires
// txn.Zxid to strictly exceed the log's last-seen zxid, otherwise it
// fails with ErrOutOfOrder and leaves the log unchanged. Append does
// not itself fsync; see Sync. On I/O failure mid-record the log is
// considered corrupt at the suffix: the writer is closed and the error
// is surfaced, never swallowed.
func (l *TransactionLog) Append(t txn.Transaction) error {
	if l.closed {
		return fmt.Errorf("append to %q: %w", l.path, ErrClosed)
	}

	if !zxid.Less(l.lastSeenZxid, t.Zxid) {
		return fmt.Errorf("append %s after %s: %w", t.Zxid, l.lastSeenZxid, ErrOutOfOrder)
	}

	err := Encode(l.writer, t)
	if err != nil {
		l.closeAfterFailure()

		return fmt.Errorf("append %s: %w", t.Zxid, err)
	}

	l.lastSeenZxid = t.Zxid

	return nil
}

// closeAfterFailure closes the output handle after a write failure so
// no further writes land against a broken stream. Any close error is
// deliberately discarded: the original failure is what callers need to
// see, and the handle is unusable either way.
func (l *TransactionLog) closeAfterFailure() {
	l.closed = true
	_ = l.out.Close()
}

// Sync flushes buffered writes and issues a data-sync to the device.
// After Sync returns successfully, every record appended before it is
// durable.
func (l *TransactionLog) Sync() error {
	if l.closed {
		return fmt.Errorf("sync %q: %w", l.path, ErrClosed)
	}

	err := l.writer.Flush()
	if err != nil {
		l.closeAfterFailure()

		return fmt.Errorf("flush %q: %w", l.path, err)
	}

	err = l.out.DataSync()
	if err != nil {
		l.closeAfterFailure()

		return fmt.Errorf("sync %q: %w", l.path, err)
	}

	return nil
}

// GetLatestZxid returns the cached last-seen zxid.
func (l *TransactionLog) GetLatestZxid() zxid.Zxid {
	return l.lastSeenZxid
}

// Length returns the current size of the log file, including any bytes
// buffered but not yet flushed to the handle Stat reads.
func (l *TransactionLog) Length() (int64, error) {
	err := l.writer.Flush()
	if err != nil {
		return 0, fmt.Errorf("flush for length %q: %w", l.path, err)
	}

	info, err := l.out.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %q: %w", l.path, err)
	}

	return info.Size(), nil
}

// Name returns the log's file path.
func (l *TransactionLog) Name() string {
	return l.path
}

// GetIterator returns an Iterator positioned so that its next record
// has zxid >= z, scanning from the start of the file. If no such
// record exists, the iterator starts at EOF. The iterator reads
// through a separate file handle opened at call time and does not
// observe appends made after it is created (snapshot-at-open).
func (l *TransactionLog) GetIterator(z zxid.Zxid) (*Iterator, error) {
	err := l.flushForRead()
	if err != nil {
		return nil, err
	}

	return newIterator(l.fsys, l.path, z)
}

// Truncate removes every record whose zxid exceeds z: it scans from
// the start, keeps the first record with zxid == z (if present) and
// everything before it, and drops everything after. If z is not
// present but a strictly-greater record is, every record with zxid < z
// is kept and the rest dropped. Not required to be crash-atomic;
// callers use it only as an offline/recovery operation.
func (l *TransactionLog) Truncate(z zxid.Zxid) error {
	err := l.flushForRead()
	if err != nil {
		return err
	}

	f, err := l.fsys.OpenReadWrite(l.path)
	if err != nil {
		return fmt.Errorf("truncate %q: open: %w", l.path, err)
	}
	defer func() { _ = f.Close() }()

	var (
		pos  int64
		last = zxid.NotExist
	)

	for {
		t, n, err := Decode(f)
		if err != nil {
			if errors.Is(err, ErrUnexpectedEOF) {
				break
			}

			return fmt.Errorf("truncate %q: scan: %w", l.path, err)
		}

		if zxid.Compare(t.Zxid, z) > 0 {
			break
		}

		pos += n
		last = t.Zxid

		if t.Zxid == z {
			break
		}
	}

	err = f.Truncate(pos)
	if err != nil {
		return fmt.Errorf("truncate %q to %d bytes: %w", l.path, pos, err)
	}

	err = f.DataSync()
	if err != nil {
		return fmt.Errorf("sync after truncate %q: %w", l.path, err)
	}

	l.lastSeenZxid = last

	return repositionAppendHandle(l, pos)
}

// repositionAppendHandle re-seeks the log's append handle after an
// external truncate shrank the file out from under it, so the next
// buffered write lands at the new end of file rather than wherever the
// OS-level append cursor last pointed.
func repositionAppendHandle(l *TransactionLog, pos int64) error {
	_, err := l.out.Seek(pos, io.SeekStart)
	if err != nil {
		return fmt.Errorf("reposition append handle for %q: %w", l.path, err)
	}

	return nil
}

// Trim is reserved for a future log-compaction design and is always
// unsupported.
func (l *TransactionLog) Trim(zxid.Zxid) error {
	return fmt.Errorf("trim %q: %w", l.path, ErrUnsupported)
}

// Close releases the log's output handle. Close flushes no data:
// callers must Sync first if durability matters.
func (l *TransactionLog) Close() error {
	if l.closed {
		return nil
	}

	l.closed = true

	err := l.out.Close()
	if err != nil {
		return fmt.Errorf("close %q: %w", l.path, err)
	}

	return nil
}

// flushForRead ensures buffered writes are visible to a fresh read
// handle opened against the same path before an iterator or truncate
// scan begins.
func (l *TransactionLog) flushForRead() error {
	if l.closed {
		return fmt.Errorf("use %q: %w", l.path, ErrClosed)
	}

	err := l.writer.Flush()
	if err != nil {
		l.closeAfterFailure()

		return fmt.Errorf("flush %q: %w", l.path, err)
	}

	return nil
}

package txnlog

import (
	"errors"
	"fmt"
	"io"

	"github.com/kavih/zabcore/internal/fsx"
	"github.com/kavih/zabcore/internal/txn"
	"github.com/kavih/zabcore/internal/zxid"
)

// Iterator reads transactions from a TransactionLog's file through a
// handle separate from the log's own append handle. It reflects the
// file's contents at the moment it was opened (snapshot-at-open): it
// does not see records appended through the log after that point.
type Iterator struct {
	f        fsx.File
	fileSize int64

	position         int64
	lastRecordLength int64
	steppedBack      bool
}

// newIterator opens a fresh read handle on path and positions it so
// the next record produced has zxid >= target: it scans from the
// start, and when it observes a record with zxid >= target it steps
// back one record before returning. If no such record exists, the
// iterator is left at EOF.
func newIterator(fsys fsx.FS, path string, target zxid.Zxid) (*Iterator, error) {
	f, err := fsys.OpenReadWrite(path)
	if err != nil {
		return nil, fmt.Errorf("open iterator on %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("stat iterator on %q: %w", path, err)
	}

	it := &Iterator{f: f, fileSize: info.Size()}

	var pos int64

	for pos < it.fileSize {
		t, n, err := Decode(f)
		if err != nil {
			_ = f.Close()

			return nil, fmt.Errorf("position iterator on %q at offset %d: %w", path, pos, err)
		}

		if zxid.Compare(t.Zxid, target) >= 0 {
			it.position = pos
			it.lastRecordLength = n
			it.steppedBack = true

			_, seekErr := f.Seek(pos, io.SeekStart)
			if seekErr != nil {
				_ = f.Close()

				return nil, fmt.Errorf("reposition iterator on %q: %w", path, seekErr)
			}

			return it, nil
		}

		pos += n
	}

	it.position = pos

	return it, nil
}

// HasNext reports whether another record is available, based on the
// file length observed at iterator-open time.
func (it *Iterator) HasNext() bool {
	return it.position < it.fileSize
}

// Next decodes one record, advances the cursor by its on-disk length,
// and records that length so Backward can undo exactly this step.
func (it *Iterator) Next() (txn.Transaction, error) {
	if !it.HasNext() {
		return txn.Transaction{}, fmt.Errorf("next: %w", io.EOF)
	}

	t, n, err := Decode(it.f)
	if err != nil {
		return txn.Transaction{}, fmt.Errorf("iterator next: %w", err)
	}

	it.position += n
	it.lastRecordLength = n
	it.steppedBack = false

	return t, nil
}

// Backward rewinds the iterator by the length of the most recent
// record returned by Next, so the next call to Next returns that same
// record again. Only one step back is supported: Backward returns an
// error when no record has been read yet, when called again without an
// intervening Next, or right after GetIterator positioned the iterator
// on a record (that positioning already stepped back once).
func (it *Iterator) Backward() error {
	if it.lastRecordLength == 0 {
		return errors.New("backward: no prior record to step back over")
	}

	if it.steppedBack {
		return errors.New("backward: already stepped back past the last record")
	}

	it.position -= it.lastRecordLength

	_, err := it.f.Seek(it.position, io.SeekStart)
	if err != nil {
		return fmt.Errorf("backward seek: %w", err)
	}

	it.steppedBack = true

	return nil
}

// Close releases the iterator's read handle.
func (it *Iterator) Close() error {
	err := it.f.Close()
	if err != nil {
		return fmt.Errorf("close iterator: %w", err)
	}

	return nil
}

package fsx

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Real implements FS using the real filesystem.
type Real struct{}

// NewReal returns a Real filesystem.
func NewReal() *Real {
	return &Real{}
}

// OpenAppend opens path for append-only writing, creating it if absent
// and preserving any existing contents.
func (r *Real) OpenAppend(path string) (File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}

	return &realFile{f}, nil
}

// OpenReadWrite opens path for random-access reading and writing
// (used by the iterator and by truncate), creating it if absent.
func (r *Real) OpenReadWrite(path string) (File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o640)
	if err != nil {
		return nil, err
	}

	return &realFile{f}, nil
}

// Stat is a passthrough wrapper for os.Stat.
func (r *Real) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// realFile adapts *os.File to File, providing a data-sync primitive
// via golang.org/x/sys/unix.Fdatasync instead of the full metadata
// fsync that (*os.File).Sync performs.
type realFile struct {
	*os.File
}

// DataSync flushes file content to the underlying device without
// forcing a metadata sync, matching the "data-sync" durability
// contract TransactionLog.sync() requires.
func (f *realFile) DataSync() error {
	err := unix.Fdatasync(int(f.File.Fd()))
	if err != nil {
		return fmt.Errorf("fdatasync: %w", err)
	}

	return nil
}

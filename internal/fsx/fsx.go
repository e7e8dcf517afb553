// Package fsx provides the narrow filesystem seam the transaction log
// needs: an os.File-shaped interface plus a real implementation that
// uses golang.org/x/sys/unix for data-sync (truncate goes through
// (*os.File).Truncate), so tests can
// substitute a fault-injecting File without touching package txnlog.
package fsx

import (
	"io"
	"os"
)

// File is the subset of *os.File the transaction log depends on.
// Implementations must behave like *os.File: Fd must return a valid
// descriptor usable with syscalls until the file is closed.
type File interface {
	io.ReadWriteCloser
	io.Seeker

	Fd() uintptr
	Stat() (os.FileInfo, error)
	Truncate(size int64) error
	DataSync() error
}

// FS opens files for the transaction log. Real is the production
// implementation; tests substitute a fake to exercise I/O failure and
// corruption paths without touching the real disk.
type FS interface {
	OpenAppend(path string) (File, error)
	OpenReadWrite(path string) (File, error)
	Stat(path string) (os.FileInfo, error)
}

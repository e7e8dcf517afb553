package txnlog_test

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/kavih/zabcore/internal/fsx"
)

// memFS is an in-memory fsx.FS holding any number of files keyed by path, used to
// exercise TransactionLog without touching a real disk. All handles
// opened against the same path share the same backing buffer, mirroring
// how multiple *os.File descriptors on one path share the same inode.
type memFS struct {
	files map[string]*memBacking
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string]*memBacking)}
}

type memBacking struct {
	data          []byte
	failNextSync  bool
	failNextWrite bool
}

func (m *memFS) backing(path string) *memBacking {
	b, ok := m.files[path]
	if !ok {
		b = &memBacking{}
		m.files[path] = b
	}

	return b
}

func (m *memFS) OpenAppend(path string) (fsx.File, error) {
	b := m.backing(path)
	return &memFile{backing: b, pos: int64(len(b.data)), appendMode: true}, nil
}

func (m *memFS) OpenReadWrite(path string) (fsx.File, error) {
	b := m.backing(path)
	return &memFile{backing: b}, nil
}

func (m *memFS) Stat(path string) (os.FileInfo, error) {
	b, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}

	return memFileInfo{size: int64(len(b.data))}, nil
}

type memFileInfo struct {
	size int64
}

func (i memFileInfo) Name() string       { return "mem" }
func (i memFileInfo) Size() int64        { return i.size }
func (i memFileInfo) Mode() os.FileMode  { return 0o640 }
func (i memFileInfo) ModTime() time.Time { return time.Time{} }
func (i memFileInfo) IsDir() bool        { return false }
func (i memFileInfo) Sys() any           { return nil }

// memFile is a File over a memBacking's byte slice.
type memFile struct {
	backing    *memBacking
	pos        int64
	appendMode bool
	closed     bool
}

func (f *memFile) Read(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}

	if f.pos >= int64(len(f.backing.data)) {
		return 0, io.EOF
	}

	n := copy(p, f.backing.data[f.pos:])
	f.pos += int64(n)

	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}

	if f.backing.failNextWrite {
		f.backing.failNextWrite = false
		return 0, errors.New("injected write failure")
	}

	if f.appendMode {
		f.pos = int64(len(f.backing.data))
	}

	if f.pos > int64(len(f.backing.data)) {
		grown := make([]byte, f.pos)
		copy(grown, f.backing.data)
		f.backing.data = grown
	}

	end := f.pos + int64(len(p))
	if end > int64(len(f.backing.data)) {
		grown := make([]byte, end)
		copy(grown, f.backing.data)
		f.backing.data = grown
	}

	copy(f.backing.data[f.pos:end], p)
	f.pos = end

	return len(p), nil
}

func (f *memFile) Close() error {
	f.closed = true
	return nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64

	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		base = int64(len(f.backing.data))
	}

	f.pos = base + offset

	return f.pos, nil
}

func (f *memFile) Fd() uintptr {
	return 0
}

func (f *memFile) Stat() (os.FileInfo, error) {
	return memFileInfo{size: int64(len(f.backing.data))}, nil
}

func (f *memFile) Truncate(size int64) error {
	if size <= int64(len(f.backing.data)) {
		f.backing.data = f.backing.data[:size]
		return nil
	}

	grown := make([]byte, size)
	copy(grown, f.backing.data)
	f.backing.data = grown

	return nil
}

func (f *memFile) DataSync() error {
	if f.backing.failNextSync {
		f.backing.failNextSync = false
		return errors.New("injected sync failure")
	}

	return nil
}

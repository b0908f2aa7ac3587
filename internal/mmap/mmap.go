// Package mmap provides read-only memory mapped files.
//
// On unix platforms the file is mapped with mmap(2); elsewhere it is read into memory, so
// callers always see a plain byte slice.
package mmap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

var (
	// ErrClosed is returned when accessing a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidOffset is returned by ReadAt for a negative or out of range offset.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)

// File is a read-only view of a file's contents.
type File struct {
	data   []byte
	unmap  func([]byte) error
	closed atomic.Bool
}

// Open maps the named file read-only.
//
// An empty file yields a File with no data; mapping zero bytes is not portable.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	if size == 0 {
		return &File{}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("mmap: %s is too large to map (%d bytes)", path, size)
	}

	data, unmap, err := mapFile(f, int(size))
	if err != nil {
		return nil, fmt.Errorf("mmap: map %s: %w", path, err)
	}

	return &File{data: data, unmap: unmap}, nil
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (m *File) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}

	return m.data
}

// Len returns the mapped length in bytes.
func (m *File) Len() int {
	if m.closed.Load() {
		return 0
	}

	return len(m.data)
}

// ReadAt implements io.ReaderAt.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 || off > int64(len(m.data)) {
		return 0, ErrInvalidOffset
	}

	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// Close releases the mapping. Calling Close more than once is a no-op.
func (m *File) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	data := m.data
	m.data = nil
	if m.unmap == nil || len(data) == 0 {
		return nil
	}

	return m.unmap(data)
}

// Package source provides the byte-range sources a COPC reader pulls from: a
// local file or an HTTP server that honors Range requests. Anything
// implementing io.ReaderAt works as a source.
package source

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// ReadRange reads exactly n bytes at off. A short or failed read is an error;
// callers rely on never seeing a partial buffer.
func ReadRange(r io.ReaderAt, off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := r.ReadAt(buf, off); err != nil {
		return nil, errors.Wrapf(err, "reading %d bytes at offset %d", n, off)
	}
	return buf, nil
}

// File is a local file source.
type File struct {
	f *os.File
}

// Open opens a local file for range reads.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", path)
	}
	return &File{f: f}, nil
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.f.ReadAt(p, off)
}

// Size returns the file size in bytes.
func (f *File) Size() (int64, error) {
	fi, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

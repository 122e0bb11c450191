package copc

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

// seekBuffer is an in-memory io.WriteSeeker for writer tests.
type seekBuffer struct {
	buf []byte
	pos int64
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.buf)) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative seek position")
	}
	b.pos = abs
	return abs, nil
}

func (b *seekBuffer) Bytes() []byte {
	return b.buf
}

// readRange is the byte range of one ReadAt call.
type readRange struct {
	off int64
	len int
}

// countingSource records every ReadAt issued against the wrapped source.
type countingSource struct {
	src io.ReaderAt

	mu    sync.Mutex
	reads []readRange
}

func (c *countingSource) ReadAt(p []byte, off int64) (int, error) {
	c.mu.Lock()
	c.reads = append(c.reads, readRange{off: off, len: len(p)})
	c.mu.Unlock()
	return c.src.ReadAt(p, off)
}

func (c *countingSource) readsOverlapping(off int64, length int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for _, r := range c.reads {
		if r.off < off+int64(length) && off < r.off+int64(r.len) {
			n++
		}
	}
	return n
}

func (c *countingSource) reset() {
	c.mu.Lock()
	c.reads = nil
	c.mu.Unlock()
}

// poisonSource fails any read overlapping the poisoned byte range.
type poisonSource struct {
	src io.ReaderAt
	off int64
	len int
}

func (p *poisonSource) ReadAt(buf []byte, off int64) (int, error) {
	if off < p.off+int64(p.len) && p.off < off+int64(len(buf)) {
		return 0, errors.New("poisoned range")
	}
	return p.src.ReadAt(buf, off)
}

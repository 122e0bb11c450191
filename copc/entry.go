package copc

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// EntrySize is the fixed on-disk size of a hierarchy entry.
const EntrySize = 32

// Entry is one hierarchy page record: the location of a node's point chunk,
// or a pointer to the page describing the node's subtree.
type Entry struct {
	Key VoxelKey

	// Offset is the absolute file offset of the point chunk when
	// PointCount > 0, of a child hierarchy page when PointCount == -1, and
	// zero when PointCount == 0.
	Offset uint64

	// ByteSize is the chunk or child page size in bytes.
	ByteSize int32

	// PointCount is the number of points in the chunk, 0 for a known-empty
	// cell, or -1 when the entry forwards to a child hierarchy page.
	PointCount int32
}

// IsPageRef reports whether the entry forwards to another hierarchy page.
func (e Entry) IsPageRef() bool {
	return e.PointCount == -1
}

// HasPoints reports whether the entry addresses a point chunk.
func (e Entry) HasPoints() bool {
	return e.PointCount > 0
}

func (e Entry) marshalTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:], uint32(e.Key.Level))
	binary.LittleEndian.PutUint32(buf[4:], uint32(e.Key.X))
	binary.LittleEndian.PutUint32(buf[8:], uint32(e.Key.Y))
	binary.LittleEndian.PutUint32(buf[12:], uint32(e.Key.Z))
	binary.LittleEndian.PutUint64(buf[16:], e.Offset)
	binary.LittleEndian.PutUint32(buf[24:], uint32(e.ByteSize))
	binary.LittleEndian.PutUint32(buf[28:], uint32(e.PointCount))
}

func parseEntry(buf []byte) Entry {
	return Entry{
		Key: VoxelKey{
			Level: int32(binary.LittleEndian.Uint32(buf[0:])),
			X:     int32(binary.LittleEndian.Uint32(buf[4:])),
			Y:     int32(binary.LittleEndian.Uint32(buf[8:])),
			Z:     int32(binary.LittleEndian.Uint32(buf[12:])),
		},
		Offset:     binary.LittleEndian.Uint64(buf[16:]),
		ByteSize:   int32(binary.LittleEndian.Uint32(buf[24:])),
		PointCount: int32(binary.LittleEndian.Uint32(buf[28:])),
	}
}

// parsePage decodes a hierarchy page payload into its entries.
func parsePage(data []byte) ([]Entry, error) {
	if len(data)%EntrySize != 0 {
		return nil, errors.Errorf("hierarchy page of %d bytes is not a multiple of %d", len(data), EntrySize)
	}
	entries := make([]Entry, 0, len(data)/EntrySize)
	for off := 0; off < len(data); off += EntrySize {
		e := parseEntry(data[off : off+EntrySize])
		if !e.Key.Valid() {
			return nil, errors.Errorf("hierarchy page contains invalid key %s", e.Key)
		}
		if e.ByteSize < 0 {
			return nil, errors.Errorf("entry %s has negative byte size %d", e.Key, e.ByteSize)
		}
		if e.PointCount < -1 {
			return nil, errors.Errorf("entry %s has invalid point count %d", e.Key, e.PointCount)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// marshalPage encodes entries as a hierarchy page payload.
func marshalPage(entries []Entry) []byte {
	data := make([]byte, len(entries)*EntrySize)
	for i, e := range entries {
		e.marshalTo(data[i*EntrySize:])
	}
	return data
}

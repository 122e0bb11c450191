// Package las implements the LAS 1.4 surface a COPC file is built on: the
// 375 byte file header, variable length records, and the point record
// formats 6 and 7 with their scale/offset transforms.
package las

import "github.com/pkg/errors"

// PointFormat is a LAS point data record format. COPC only permits the
// LAS 1.4 formats 6-8; this package supports 6 and 7.
type PointFormat uint8

const (
	// PointFormat6 is the 30 byte record without color.
	PointFormat6 PointFormat = 6
	// PointFormat7 is the 36 byte record with RGB color.
	PointFormat7 PointFormat = 7
)

// compressedMask marks the point format byte of files whose chunks went
// through a compressing codec.
const compressedMask = 0x80

// Valid reports whether the format is one this package can encode and decode.
func (f PointFormat) Valid() bool {
	return f == PointFormat6 || f == PointFormat7
}

// HasColor reports whether records of this format carry RGB data.
func (f PointFormat) HasColor() bool {
	return f == PointFormat7
}

// RecordLength returns the on-disk size of one point record in bytes.
func (f PointFormat) RecordLength() int {
	switch f {
	case PointFormat6:
		return 30
	case PointFormat7:
		return 36
	default:
		return 0
	}
}

func formatFromByte(b byte) (PointFormat, bool, error) {
	compressed := b&compressedMask != 0
	f := PointFormat(b &^ compressedMask)
	if !f.Valid() {
		return 0, false, errors.Errorf("unsupported point data record format %d", f)
	}
	return f, compressed, nil
}

func formatToByte(f PointFormat, compressed bool) byte {
	b := byte(f)
	if compressed {
		b |= compressedMask
	}
	return b
}

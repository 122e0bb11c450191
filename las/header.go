package las

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// HeaderSize is the size of a LAS 1.4 file header.
const HeaderSize = 375

var signature = [4]byte{'L', 'A', 'S', 'F'}

// Header is a LAS 1.4 file header. Only version 1.4 is supported since COPC
// requires it.
type Header struct {
	FileSourceID   uint16
	GlobalEncoding uint16
	GUID           [16]byte

	SystemIdentifier   string
	GeneratingSoftware string
	FileCreationDay    uint16
	FileCreationYear   uint16

	OffsetToPointData uint32
	VlrCount          uint32

	PointFormat       PointFormat
	Compressed        bool
	PointRecordLength uint16

	Transforms Transforms
	Min, Max   r3.Vector

	StartOfFirstEvlr uint64
	EvlrCount        uint32

	PointCount     uint64
	PointsByReturn [15]uint64
}

// Bounds returns the min/max corners recorded in the header.
func (h *Header) Bounds() (r3.Vector, r3.Vector) {
	return h.Min, h.Max
}

// ReadHeader parses a LAS 1.4 header.
func ReadHeader(r io.Reader) (*Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, errors.Wrap(err, "reading las header")
	}
	if [4]byte(buf[0:4]) != signature {
		return nil, errors.New("missing LASF signature")
	}
	if buf[24] != 1 || buf[25] != 4 {
		return nil, errors.Errorf("unsupported las version %d.%d", buf[24], buf[25])
	}
	if size := binary.LittleEndian.Uint16(buf[94:]); size < HeaderSize {
		return nil, errors.Errorf("header size %d below las 1.4 minimum", size)
	}

	h := &Header{
		FileSourceID:       binary.LittleEndian.Uint16(buf[4:]),
		GlobalEncoding:     binary.LittleEndian.Uint16(buf[6:]),
		GUID:               [16]byte(buf[8:24]),
		SystemIdentifier:   trimNul(buf[26:58]),
		GeneratingSoftware: trimNul(buf[58:90]),
		FileCreationDay:    binary.LittleEndian.Uint16(buf[90:]),
		FileCreationYear:   binary.LittleEndian.Uint16(buf[92:]),
		OffsetToPointData:  binary.LittleEndian.Uint32(buf[96:]),
		VlrCount:           binary.LittleEndian.Uint32(buf[100:]),
		PointRecordLength:  binary.LittleEndian.Uint16(buf[105:]),
		StartOfFirstEvlr:   binary.LittleEndian.Uint64(buf[235:]),
		EvlrCount:          binary.LittleEndian.Uint32(buf[243:]),
		PointCount:         binary.LittleEndian.Uint64(buf[247:]),
	}

	var err error
	if h.PointFormat, h.Compressed, err = formatFromByte(buf[104]); err != nil {
		return nil, err
	}

	h.Transforms = Transforms{
		X: Transform{Scale: f64At(buf[:], 131), Offset: f64At(buf[:], 155)},
		Y: Transform{Scale: f64At(buf[:], 139), Offset: f64At(buf[:], 163)},
		Z: Transform{Scale: f64At(buf[:], 147), Offset: f64At(buf[:], 171)},
	}
	h.Max = r3.Vector{X: f64At(buf[:], 179), Y: f64At(buf[:], 195), Z: f64At(buf[:], 211)}
	h.Min = r3.Vector{X: f64At(buf[:], 187), Y: f64At(buf[:], 203), Z: f64At(buf[:], 219)}

	for i := 0; i < 15; i++ {
		h.PointsByReturn[i] = binary.LittleEndian.Uint64(buf[255+8*i:])
	}
	return h, nil
}

// Write serializes the header. The legacy 32 bit point counts are left zero
// as the LAS 1.4 spec requires for formats 6 and up.
func (h *Header) Write(w io.Writer) error {
	var buf [HeaderSize]byte
	copy(buf[0:4], signature[:])
	binary.LittleEndian.PutUint16(buf[4:], h.FileSourceID)
	binary.LittleEndian.PutUint16(buf[6:], h.GlobalEncoding)
	copy(buf[8:24], h.GUID[:])
	buf[24], buf[25] = 1, 4
	copy(buf[26:58], h.SystemIdentifier)
	copy(buf[58:90], h.GeneratingSoftware)
	binary.LittleEndian.PutUint16(buf[90:], h.FileCreationDay)
	binary.LittleEndian.PutUint16(buf[92:], h.FileCreationYear)
	binary.LittleEndian.PutUint16(buf[94:], HeaderSize)
	binary.LittleEndian.PutUint32(buf[96:], h.OffsetToPointData)
	binary.LittleEndian.PutUint32(buf[100:], h.VlrCount)
	buf[104] = formatToByte(h.PointFormat, h.Compressed)
	binary.LittleEndian.PutUint16(buf[105:], h.PointRecordLength)

	putF64(buf[:], 131, h.Transforms.X.Scale)
	putF64(buf[:], 139, h.Transforms.Y.Scale)
	putF64(buf[:], 147, h.Transforms.Z.Scale)
	putF64(buf[:], 155, h.Transforms.X.Offset)
	putF64(buf[:], 163, h.Transforms.Y.Offset)
	putF64(buf[:], 171, h.Transforms.Z.Offset)

	putF64(buf[:], 179, h.Max.X)
	putF64(buf[:], 187, h.Min.X)
	putF64(buf[:], 195, h.Max.Y)
	putF64(buf[:], 203, h.Min.Y)
	putF64(buf[:], 211, h.Max.Z)
	putF64(buf[:], 219, h.Min.Z)

	binary.LittleEndian.PutUint64(buf[235:], h.StartOfFirstEvlr)
	binary.LittleEndian.PutUint32(buf[243:], h.EvlrCount)
	binary.LittleEndian.PutUint64(buf[247:], h.PointCount)
	for i := 0; i < 15; i++ {
		binary.LittleEndian.PutUint64(buf[255+8*i:], h.PointsByReturn[i])
	}

	_, err := w.Write(buf[:])
	return errors.Wrap(err, "writing las header")
}

func f64At(buf []byte, off int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[off:]))
}

func putF64(buf []byte, off int, v float64) {
	binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
}

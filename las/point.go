package las

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Transform is the scale/offset applied to one axis of the stored integer
// coordinates. actual = raw*Scale + Offset.
type Transform struct {
	Scale  float64
	Offset float64
}

// Apply converts a raw integer coordinate to an actual coordinate.
func (t Transform) Apply(raw int32) float64 {
	return float64(raw)*t.Scale + t.Offset
}

// Inverse converts an actual coordinate back to the nearest raw integer
// coordinate. Values that do not fit an i32 are rejected.
func (t Transform) Inverse(v float64) (int32, error) {
	if t.Scale == 0 {
		return 0, errors.New("transform has zero scale")
	}
	raw := math.Round((v - t.Offset) / t.Scale)
	if raw < math.MinInt32 || raw > math.MaxInt32 {
		return 0, errors.Errorf("coordinate %f out of i32 range after transform", v)
	}
	return int32(raw), nil
}

// Transforms holds the per-axis transforms of a LAS header.
type Transforms struct {
	X, Y, Z Transform
}

// DefaultTransforms returns millimeter precision transforms with no offset.
func DefaultTransforms() Transforms {
	return Transforms{
		X: Transform{Scale: 0.001},
		Y: Transform{Scale: 0.001},
		Z: Transform{Scale: 0.001},
	}
}

// Point is one decoded LAS point record with actual (scaled) coordinates.
type Point struct {
	X, Y, Z float64

	Intensity uint16

	ReturnNumber    uint8
	NumberOfReturns uint8

	ClassificationFlags uint8
	ScannerChannel      uint8
	ScanDirection       bool
	EdgeOfFlightLine    bool

	Classification uint8
	UserData       uint8
	ScanAngle      int16
	PointSourceID  uint16
	GpsTime        float64

	Red, Green, Blue uint16
}

// Position returns the point position as a vector.
func (p Point) Position() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// HasColor reports whether any color channel is set.
func (p Point) HasColor() bool {
	return p.Red != 0 || p.Green != 0 || p.Blue != 0
}

// Matches reports whether the point can be stored in the given format
// without losing data.
func (p Point) Matches(f PointFormat) bool {
	if !f.Valid() {
		return false
	}
	if !f.HasColor() && p.HasColor() {
		return false
	}
	return true
}

// EncodePoint writes one raw point record at the start of buf, which must
// hold at least f.RecordLength() bytes.
func EncodePoint(buf []byte, p Point, f PointFormat, t Transforms) error {
	n := f.RecordLength()
	if n == 0 {
		return errors.Errorf("cannot encode point format %d", f)
	}
	if len(buf) < n {
		return errors.Errorf("buffer of %d bytes too small for %d byte record", len(buf), n)
	}

	x, err := t.X.Inverse(p.X)
	if err != nil {
		return err
	}
	y, err := t.Y.Inverse(p.Y)
	if err != nil {
		return err
	}
	z, err := t.Z.Inverse(p.Z)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(buf[0:], uint32(x))
	binary.LittleEndian.PutUint32(buf[4:], uint32(y))
	binary.LittleEndian.PutUint32(buf[8:], uint32(z))
	binary.LittleEndian.PutUint16(buf[12:], p.Intensity)

	buf[14] = (p.ReturnNumber & 0x0f) | ((p.NumberOfReturns & 0x0f) << 4)
	var flags uint8
	flags = (p.ClassificationFlags & 0x0f) | ((p.ScannerChannel & 0x03) << 4)
	if p.ScanDirection {
		flags |= 1 << 6
	}
	if p.EdgeOfFlightLine {
		flags |= 1 << 7
	}
	buf[15] = flags
	buf[16] = p.Classification
	buf[17] = p.UserData
	binary.LittleEndian.PutUint16(buf[18:], uint16(p.ScanAngle))
	binary.LittleEndian.PutUint16(buf[20:], p.PointSourceID)
	binary.LittleEndian.PutUint64(buf[22:], math.Float64bits(p.GpsTime))

	if f.HasColor() {
		binary.LittleEndian.PutUint16(buf[30:], p.Red)
		binary.LittleEndian.PutUint16(buf[32:], p.Green)
		binary.LittleEndian.PutUint16(buf[34:], p.Blue)
	}
	return nil
}

// DecodePoint reads one raw point record from the start of buf.
func DecodePoint(buf []byte, f PointFormat, t Transforms) (Point, error) {
	n := f.RecordLength()
	if n == 0 {
		return Point{}, errors.Errorf("cannot decode point format %d", f)
	}
	if len(buf) < n {
		return Point{}, errors.Errorf("record truncated: %d of %d bytes", len(buf), n)
	}

	var p Point
	p.X = t.X.Apply(int32(binary.LittleEndian.Uint32(buf[0:])))
	p.Y = t.Y.Apply(int32(binary.LittleEndian.Uint32(buf[4:])))
	p.Z = t.Z.Apply(int32(binary.LittleEndian.Uint32(buf[8:])))
	p.Intensity = binary.LittleEndian.Uint16(buf[12:])

	p.ReturnNumber = buf[14] & 0x0f
	p.NumberOfReturns = (buf[14] >> 4) & 0x0f
	p.ClassificationFlags = buf[15] & 0x0f
	p.ScannerChannel = (buf[15] >> 4) & 0x03
	p.ScanDirection = buf[15]&(1<<6) != 0
	p.EdgeOfFlightLine = buf[15]&(1<<7) != 0

	p.Classification = buf[16]
	p.UserData = buf[17]
	p.ScanAngle = int16(binary.LittleEndian.Uint16(buf[18:]))
	p.PointSourceID = binary.LittleEndian.Uint16(buf[20:])
	p.GpsTime = math.Float64frombits(binary.LittleEndian.Uint64(buf[22:]))

	if f.HasColor() {
		p.Red = binary.LittleEndian.Uint16(buf[30:])
		p.Green = binary.LittleEndian.Uint16(buf[32:])
		p.Blue = binary.LittleEndian.Uint16(buf[34:])
	}
	return p, nil
}

package las

import (
	"testing"

	"go.viam.com/test"
)

func TestTransform(t *testing.T) {
	tr := Transform{Scale: 0.001, Offset: 100}

	raw, err := tr.Inverse(100.123)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, raw, test.ShouldEqual, 123)
	test.That(t, tr.Apply(raw), test.ShouldAlmostEqual, 100.123, 1e-9)

	t.Run("zero scale", func(t *testing.T) {
		_, err := Transform{}.Inverse(1)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("i32 overflow", func(t *testing.T) {
		_, err := Transform{Scale: 1e-9}.Inverse(1e6)
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestPointRoundTrip(t *testing.T) {
	tr := DefaultTransforms()
	p := Point{
		X: 12.345, Y: -6.789, Z: 0.001,
		Intensity:           4000,
		ReturnNumber:        2,
		NumberOfReturns:     5,
		ClassificationFlags: 0x3,
		ScannerChannel:      1,
		ScanDirection:       true,
		EdgeOfFlightLine:    true,
		Classification:      6,
		UserData:            42,
		ScanAngle:           -1500,
		PointSourceID:       9,
		GpsTime:             123456.789,
	}

	t.Run("format 6", func(t *testing.T) {
		buf := make([]byte, PointFormat6.RecordLength())
		test.That(t, EncodePoint(buf, p, PointFormat6, tr), test.ShouldBeNil)

		got, err := DecodePoint(buf, PointFormat6, tr)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.X, test.ShouldAlmostEqual, p.X, 1e-9)
		test.That(t, got.Y, test.ShouldAlmostEqual, p.Y, 1e-9)
		test.That(t, got.Z, test.ShouldAlmostEqual, p.Z, 1e-9)
		got.X, got.Y, got.Z = p.X, p.Y, p.Z
		test.That(t, got, test.ShouldResemble, p)
	})

	t.Run("format 7 color", func(t *testing.T) {
		colored := p
		colored.Red, colored.Green, colored.Blue = 1000, 2000, 3000
		buf := make([]byte, PointFormat7.RecordLength())
		test.That(t, EncodePoint(buf, colored, PointFormat7, tr), test.ShouldBeNil)

		got, err := DecodePoint(buf, PointFormat7, tr)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.Red, test.ShouldEqual, colored.Red)
		test.That(t, got.Green, test.ShouldEqual, colored.Green)
		test.That(t, got.Blue, test.ShouldEqual, colored.Blue)
	})

	t.Run("short buffer", func(t *testing.T) {
		err := EncodePoint(make([]byte, 10), p, PointFormat6, tr)
		test.That(t, err, test.ShouldNotBeNil)
		_, err = DecodePoint(make([]byte, 10), PointFormat6, tr)
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestPointMatches(t *testing.T) {
	var p Point
	test.That(t, p.Matches(PointFormat6), test.ShouldBeTrue)
	test.That(t, p.Matches(PointFormat7), test.ShouldBeTrue)

	p.Red = 1
	test.That(t, p.Matches(PointFormat6), test.ShouldBeFalse)
	test.That(t, p.Matches(PointFormat7), test.ShouldBeTrue)

	test.That(t, p.Matches(PointFormat(3)), test.ShouldBeFalse)
}

package copc

import (
	"testing"

	"go.viam.com/test"
)

func TestEntryRoundTrip(t *testing.T) {
	entries := []Entry{
		{Key: RootKey(), Offset: 5000, ByteSize: 1024, PointCount: 100},
		{Key: VoxelKey{Level: 1, X: 1, Y: 0, Z: 1}, Offset: 6024, ByteSize: 2048, PointCount: -1},
		{Key: VoxelKey{Level: 1, X: 0, Y: 1, Z: 0}, PointCount: 0},
	}
	data := marshalPage(entries)
	test.That(t, len(data), test.ShouldEqual, EntrySize*len(entries))

	got, err := parsePage(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, entries)

	test.That(t, got[0].HasPoints(), test.ShouldBeTrue)
	test.That(t, got[0].IsPageRef(), test.ShouldBeFalse)
	test.That(t, got[1].IsPageRef(), test.ShouldBeTrue)
	test.That(t, got[1].HasPoints(), test.ShouldBeFalse)
	test.That(t, got[2].HasPoints(), test.ShouldBeFalse)
	test.That(t, got[2].IsPageRef(), test.ShouldBeFalse)
}

func TestParsePageRejects(t *testing.T) {
	// length not a multiple of the entry size
	_, err := parsePage(make([]byte, EntrySize+1))
	test.That(t, err, test.ShouldNotBeNil)

	// an entry with an out-of-range key
	bad := Entry{Key: VoxelKey{Level: 1, X: 5, Y: 0, Z: 0}, PointCount: 10}
	_, err = parsePage(marshalPage([]Entry{bad}))
	test.That(t, err, test.ShouldNotBeNil)

	// a negative byte size must never reach a source read
	bad = Entry{Key: RootKey(), Offset: 1000, ByteSize: -1, PointCount: 10}
	_, err = parsePage(marshalPage([]Entry{bad}))
	test.That(t, err, test.ShouldNotBeNil)

	// point counts below -1 have no meaning
	bad = Entry{Key: RootKey(), Offset: 1000, ByteSize: 64, PointCount: -2}
	_, err = parsePage(marshalPage([]Entry{bad}))
	test.That(t, err, test.ShouldNotBeNil)
}

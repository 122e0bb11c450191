package copc

import (
	"bytes"
	"errors"
	"testing"

	"go.viam.com/test"
)

// buildPagedHierarchy lays out a two-page hierarchy in a flat buffer:
// the root page holds the root chunk entry, a forward pointer for the
// 1-0-0-0 subtree and a known-empty sibling; the child page resolves
// 1-0-0-0 to a chunk.
func buildPagedHierarchy() (data []byte, rootRef, childRef pageRef) {
	childKey := VoxelKey{Level: 1, X: 0, Y: 0, Z: 0}
	emptyKey := VoxelKey{Level: 1, X: 1, Y: 0, Z: 0}

	childPage := marshalPage([]Entry{
		{Key: childKey, Offset: 9000, ByteSize: 512, PointCount: 40},
	})
	childRef = pageRef{offset: 4096, size: uint64(len(childPage))}

	rootPage := marshalPage([]Entry{
		{Key: RootKey(), Offset: 8000, ByteSize: 1024, PointCount: 100},
		{Key: childKey, Offset: childRef.offset, ByteSize: int32(childRef.size), PointCount: -1},
		{Key: emptyKey, PointCount: 0},
	})
	rootRef = pageRef{offset: 1024, size: uint64(len(rootPage))}

	data = make([]byte, childRef.offset+childRef.size)
	copy(data[rootRef.offset:], rootPage)
	copy(data[childRef.offset:], childPage)
	return data, rootRef, childRef
}

func TestHierarchyStoreLazyPages(t *testing.T) {
	data, rootRef, childRef := buildPagedHierarchy()
	src := &countingSource{src: bytes.NewReader(data)}
	store := newHierarchyStore(src)

	test.That(t, store.load(rootRef), test.ShouldBeNil)
	test.That(t, src.readsOverlapping(int64(childRef.offset), int(childRef.size)), test.ShouldEqual, 0)

	// a root-page entry resolves without touching the child page
	e, ok, err := store.entry(RootKey())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, e.PointCount, test.ShouldEqual, int32(100))
	test.That(t, src.readsOverlapping(int64(childRef.offset), int(childRef.size)), test.ShouldEqual, 0)

	// following the forward pointer fetches the child page exactly once
	childKey := VoxelKey{Level: 1, X: 0, Y: 0, Z: 0}
	e, ok, err = store.entry(childKey)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, e.PointCount, test.ShouldEqual, int32(40))
	test.That(t, e.Offset, test.ShouldEqual, uint64(9000))

	e, ok, err = store.entry(childKey)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, src.readsOverlapping(int64(childRef.offset), int(childRef.size)), test.ShouldEqual, 1)
}

func TestHierarchyStoreUnknownAndEmpty(t *testing.T) {
	data, rootRef, _ := buildPagedHierarchy()
	store := newHierarchyStore(bytes.NewReader(data))
	test.That(t, store.load(rootRef), test.ShouldBeNil)

	_, ok, err := store.entry(VoxelKey{Level: 1, X: 1, Y: 1, Z: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)

	e, ok, err := store.entry(VoxelKey{Level: 1, X: 1, Y: 0, Z: 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, e.HasPoints(), test.ShouldBeFalse)
	test.That(t, e.IsPageRef(), test.ShouldBeFalse)
}

func TestHierarchyStoreBranchScopedFailure(t *testing.T) {
	data, rootRef, childRef := buildPagedHierarchy()
	poisoned := &poisonSource{
		src: bytes.NewReader(data),
		off: int64(childRef.offset),
		len: int(childRef.size),
	}
	store := newHierarchyStore(poisoned)
	test.That(t, store.load(rootRef), test.ShouldBeNil)

	// the broken subtree reports an io error...
	_, ok, err := store.entry(VoxelKey{Level: 1, X: 0, Y: 0, Z: 0})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, err, test.ShouldNotBeNil)
	var ioErr *IoError
	test.That(t, errors.As(err, &ioErr), test.ShouldBeTrue)
	test.That(t, ioErr.Offset, test.ShouldEqual, childRef.offset)

	// ...while siblings from the root page stay readable
	e, ok, err := store.entry(RootKey())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, e.PointCount, test.ShouldEqual, int32(100))
}

func TestHierarchyStoreBadForwardedPage(t *testing.T) {
	childKey := VoxelKey{Level: 1, X: 0, Y: 0, Z: 0}
	// the forwarded page resolves a different key, not the one asked for
	childPage := marshalPage([]Entry{
		{Key: VoxelKey{Level: 1, X: 1, Y: 1, Z: 0}, Offset: 9000, ByteSize: 64, PointCount: 5},
	})
	rootPage := marshalPage([]Entry{
		{Key: childKey, Offset: 512, ByteSize: int32(len(childPage)), PointCount: -1},
	})
	data := make([]byte, 512+len(childPage))
	copy(data[64:], rootPage)
	copy(data[512:], childPage)

	store := newHierarchyStore(bytes.NewReader(data))
	test.That(t, store.load(pageRef{offset: 64, size: uint64(len(rootPage))}), test.ShouldBeNil)

	_, ok, err := store.entry(childKey)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, err, test.ShouldNotBeNil)
	var formatErr *FormatError
	test.That(t, errors.As(err, &formatErr), test.ShouldBeTrue)
}

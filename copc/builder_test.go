package copc

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestOctantOf(t *testing.T) {
	center := r3.Vector{X: 0, Y: 0, Z: 0}
	test.That(t, octantOf(r3.Vector{X: -1, Y: -1, Z: -1}, center), test.ShouldEqual, 0)
	test.That(t, octantOf(r3.Vector{X: 1, Y: -1, Z: -1}, center), test.ShouldEqual, 1)
	test.That(t, octantOf(r3.Vector{X: -1, Y: 1, Z: -1}, center), test.ShouldEqual, 2)
	test.That(t, octantOf(r3.Vector{X: -1, Y: -1, Z: 1}, center), test.ShouldEqual, 4)
	test.That(t, octantOf(r3.Vector{X: 1, Y: 1, Z: 1}, center), test.ShouldEqual, 7)
	// the center itself belongs to the upper octant on every axis
	test.That(t, octantOf(center, center), test.ShouldEqual, 7)
}

func TestBuilderReservoirOverflow(t *testing.T) {
	const maxPoints = 4
	b := newOctreeBuilder(testRootBounds(), maxPoints, 2)
	record := []byte{0xab, 0xcd}

	// the first maxPoints arrivals fill the root
	pos := r3.Vector{X: -50, Y: -50, Z: -50}
	for i := 1; i < maxPoints; i++ {
		node, full := b.insert(pos, record)
		test.That(t, node.key, test.ShouldResemble, RootKey())
		test.That(t, full, test.ShouldBeFalse)
	}
	node, full := b.insert(pos, record)
	test.That(t, node.key, test.ShouldResemble, RootKey())
	test.That(t, full, test.ShouldBeTrue)
	test.That(t, b.rootCount(), test.ShouldEqual, int32(maxPoints))
	test.That(t, len(node.buf), test.ShouldEqual, maxPoints*2)

	// overflow lands one level deeper, in the octant of its position
	node, full = b.insert(pos, record)
	test.That(t, full, test.ShouldBeFalse)
	test.That(t, node.key, test.ShouldResemble, RootKey().Child(0))

	node, _ = b.insert(r3.Vector{X: 50, Y: 50, Z: 50}, record)
	test.That(t, node.key, test.ShouldResemble, RootKey().Child(7))

	// the root's count never grows past capacity
	test.That(t, b.rootCount(), test.ShouldEqual, int32(maxPoints))
}

func TestBuilderPushesPastFlushedNodes(t *testing.T) {
	const maxPoints = 2
	b := newOctreeBuilder(testRootBounds(), maxPoints, 1)
	pos := r3.Vector{X: -50, Y: -50, Z: -50}

	b.insert(pos, []byte{1})
	node, full := b.insert(pos, []byte{2})
	test.That(t, full, test.ShouldBeTrue)
	node.buf = nil
	node.flushed = true

	// a flushed node accepts nothing further even below capacity
	node, _ = b.insert(pos, []byte{3})
	test.That(t, node.key, test.ShouldResemble, RootKey().Child(0))
}

func TestBuilderCoincidentPointsStopAtMaxDepth(t *testing.T) {
	b := newOctreeBuilder(testRootBounds(), 1, 1)
	pos := r3.Vector{X: 10, Y: 10, Z: 10}

	// far more coincident points than there are levels to push them into
	for i := 0; i < 40; i++ {
		node, _ := b.insert(pos, []byte{byte(i)})
		test.That(t, node.key.Valid(), test.ShouldBeTrue)
		test.That(t, node.key.Level, test.ShouldBeLessThanOrEqualTo, int32(maxTreeDepth))
	}

	// the terminal cell absorbed the overflow past its capacity
	var deepest *workingNode
	b.walk(func(n *workingNode) {
		if deepest == nil || n.key.Level > deepest.key.Level {
			deepest = n
		}
	})
	test.That(t, deepest.key.Level, test.ShouldEqual, int32(maxTreeDepth))
	test.That(t, deepest.count, test.ShouldEqual, int32(40-maxTreeDepth))
}

func TestBuilderWalkOrder(t *testing.T) {
	b := newOctreeBuilder(testRootBounds(), 1, 1)
	b.insert(r3.Vector{X: -50, Y: -50, Z: -50}, []byte{0}) // root
	b.insert(r3.Vector{X: 50, Y: 50, Z: 50}, []byte{1})    // octant 7
	b.insert(r3.Vector{X: -50, Y: -50, Z: -50}, []byte{2}) // octant 0
	b.insert(r3.Vector{X: -60, Y: -60, Z: -60}, []byte{3}) // octant 0's child 0

	var keys []VoxelKey
	b.walk(func(n *workingNode) { keys = append(keys, n.key) })
	test.That(t, keys, test.ShouldResemble, []VoxelKey{
		RootKey(),
		RootKey().Child(0),
		RootKey().Child(0).Child(0),
		RootKey().Child(7),
	})
}

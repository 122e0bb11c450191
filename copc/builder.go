package copc

import (
	"github.com/golang/geo/r3"
)

// workingNode buffers the raw point records assigned to one octree cell
// until the cell flushes into a compressed chunk. Nodes exist only during a
// write session.
type workingNode struct {
	key    VoxelKey
	bounds Bounds

	count   int32
	buf     []byte
	flushed bool

	children [8]*workingNode
}

// maxTreeDepth is the deepest level a point can be pushed to. Level 31 is
// the last one whose cell coordinates fit in an int32 key.
const maxTreeDepth = 31

// octreeBuilder assigns an incoming point stream to octree nodes. The
// decimation policy keeps each node as an arrival-order reservoir of at most
// maxPoints records: once a cell is full, later points falling into it are
// pushed one level deeper by recomputing the child cell from their position.
// Cells at maxTreeDepth accept overflow past capacity, so coincident or
// near-coincident point runs terminate there instead of splitting forever.
// Every point lands in exactly one node, and coarser levels hold a bounded
// sample of the stream so cumulative level queries stay representative.
// Single goroutine only.
type octreeBuilder struct {
	root      *workingNode
	maxPoints int32
	recordLen int
	liveNodes int
}

func newOctreeBuilder(rootBounds Bounds, maxPoints int32, recordLen int) *octreeBuilder {
	return &octreeBuilder{
		root:      &workingNode{key: RootKey(), bounds: rootBounds},
		maxPoints: maxPoints,
		recordLen: recordLen,
		liveNodes: 1,
	}
}

// insert buffers one raw record at the point's position and returns the node
// it landed in, along with whether that node just reached capacity and
// should be flushed. Nodes at maxTreeDepth never report full; they keep
// buffering until finalize so a point always has a destination.
func (b *octreeBuilder) insert(pos r3.Vector, record []byte) (*workingNode, bool) {
	node := b.root
	for {
		terminal := node.key.Level >= maxTreeDepth
		if !node.flushed && (terminal || node.count < b.maxPoints) {
			if node.buf == nil {
				node.buf = make([]byte, 0, int(b.maxPoints)*b.recordLen)
			}
			node.buf = append(node.buf, record...)
			node.count++
			return node, !terminal && node.count == b.maxPoints
		}
		node = b.childFor(node, pos)
	}
}

// childFor returns the child cell containing pos, creating it on first use.
func (b *octreeBuilder) childFor(node *workingNode, pos r3.Vector) *workingNode {
	octant := octantOf(pos, node.bounds.Center())
	child := node.children[octant]
	if child == nil {
		key := node.key.Child(octant)
		child = &workingNode{key: key, bounds: key.Bounds(b.root.bounds)}
		node.children[octant] = child
		b.liveNodes++
	}
	return child
}

// walk visits every node depth first in octant order.
func (b *octreeBuilder) walk(fn func(*workingNode)) {
	var visit func(*workingNode)
	visit = func(n *workingNode) {
		fn(n)
		for _, c := range n.children {
			if c != nil {
				visit(c)
			}
		}
	}
	visit(b.root)
}

// rootCount returns the number of points sampled into the root cell.
func (b *octreeBuilder) rootCount() int32 {
	return b.root.count
}

func octantOf(pos, center r3.Vector) int {
	octant := 0
	if pos.X >= center.X {
		octant |= 1
	}
	if pos.Y >= center.Y {
		octant |= 2
	}
	if pos.Z >= center.Z {
		octant |= 4
	}
	return octant
}

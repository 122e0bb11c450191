package copc

import (
	"github.com/pkg/errors"

	"github.com/geolidar/gocopc/las"
	"github.com/geolidar/gocopc/source"
)

// PointIterator streams the points of a query one at a time. It is forward
// only and single pass: call Next until it returns false, then check Err.
// A non-nil *NodeError from Err marks one unreadable node; SkipNode drops
// that node and lets iteration resume with the next one. Restarting requires
// a new call to Reader.Points.
type PointIterator struct {
	r     *Reader
	nodes []plannedNode

	queryBox Bounds
	hasBox   bool

	records   []byte
	recordLen int
	recIdx    int
	recCount  int
	curKey    VoxelKey

	point las.Point
	err   error
}

func newPointIterator(r *Reader, nodes []plannedNode, bounds BoundsSelection) *PointIterator {
	it := &PointIterator{
		r:         r,
		nodes:     nodes,
		recordLen: r.header.PointFormat.RecordLength(),
	}
	it.queryBox, it.hasBox = bounds.Box()
	return it
}

// Next advances to the next point in the stream. It returns false at the end
// of the stream or when a node fails; the two cases are told apart by Err.
func (it *PointIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		for it.recIdx < it.recCount {
			off := it.recIdx * it.recordLen
			it.recIdx++
			p, err := las.DecodePoint(it.records[off:], it.r.header.PointFormat, it.r.header.Transforms)
			if err != nil {
				it.err = &NodeError{
					Entry: Entry{Key: it.curKey},
					Err:   &DecodeError{Key: it.curKey, Err: err},
				}
				return false
			}
			// the node cube only coarsely overlaps the query box, so every
			// point still gets the exact test
			if it.hasBox && !it.queryBox.Contains(p.Position()) {
				continue
			}
			it.point = p
			return true
		}

		it.records = nil
		if len(it.nodes) == 0 {
			return false
		}
		node := it.nodes[0]
		it.nodes = it.nodes[1:]
		if node.err != nil {
			it.err = &NodeError{Entry: node.entry, Err: node.err}
			return false
		}
		if !it.loadChunk(node.entry) {
			return false
		}
	}
}

func (it *PointIterator) loadChunk(entry Entry) bool {
	data, err := source.ReadRange(it.r.src, int64(entry.Offset), int(entry.ByteSize))
	if err != nil {
		it.err = &NodeError{
			Entry: entry,
			Err:   &IoError{Offset: entry.Offset, Length: uint64(entry.ByteSize), Err: err},
		}
		return false
	}
	records, err := it.r.chunkCodec.Decode(data, int(entry.PointCount), it.recordLen)
	if err != nil {
		it.err = &NodeError{Entry: entry, Err: &DecodeError{Key: entry.Key, Err: err}}
		return false
	}
	if len(records) != int(entry.PointCount)*it.recordLen {
		it.err = &NodeError{
			Entry: entry,
			Err: &DecodeError{Key: entry.Key, Err: errors.Errorf(
				"codec returned %d bytes for %d records", len(records), entry.PointCount)},
		}
		return false
	}
	it.records = records
	it.recCount = int(entry.PointCount)
	it.recIdx = 0
	it.curKey = entry.Key
	return true
}

// Point returns the point Next advanced to. Only valid after Next returned
// true.
func (it *PointIterator) Point() las.Point {
	return it.point
}

// Err returns the error that stopped iteration, or nil after a clean end of
// stream. Node failures are *NodeError values.
func (it *PointIterator) Err() error {
	return it.err
}

// SkipNode discards the node whose failure stopped iteration so Next can
// resume with the following node. It reports whether there was a node
// failure to skip.
func (it *PointIterator) SkipNode() bool {
	var nodeErr *NodeError
	if !errors.As(it.err, &nodeErr) {
		return false
	}
	it.err = nil
	it.records = nil
	it.recIdx = 0
	it.recCount = 0
	return true
}

package copc

import (
	"bytes"
	"io"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/geolidar/gocopc/codec"
	"github.com/geolidar/gocopc/las"
	"github.com/geolidar/gocopc/source"
)

// Reader reads a COPC file from any byte-range source. A reader owns its own
// hierarchy cache; multiple readers over the same source may run
// concurrently, a single reader may not be shared across goroutines.
type Reader struct {
	src    io.ReaderAt
	logger golog.Logger

	header     *las.Header
	info       Info
	chunkCodec codec.Codec
	projection *las.Vlr

	store *hierarchyStore
}

// Open parses the LAS header and COPC metadata and eagerly loads the root
// hierarchy page. Any failure here is fatal for the session.
func Open(src io.ReaderAt, logger golog.Logger) (*Reader, error) {
	headerBytes, err := source.ReadRange(src, 0, las.HeaderSize)
	if err != nil {
		return nil, &IoError{Offset: 0, Length: las.HeaderSize, Err: err}
	}
	header, err := las.ReadHeader(bytes.NewReader(headerBytes))
	if err != nil {
		return nil, &FormatError{Err: err}
	}
	if int(header.PointRecordLength) != header.PointFormat.RecordLength() {
		return nil, &FormatError{Err: errors.Errorf(
			"record length %d does not match point format %d", header.PointRecordLength, header.PointFormat)}
	}
	if header.OffsetToPointData < las.HeaderSize {
		return nil, &FormatError{Err: errors.Errorf("point data offset %d inside header", header.OffsetToPointData)}
	}

	r := &Reader{src: src, logger: logger, header: header}
	if err := r.readVlrs(); err != nil {
		return nil, err
	}

	r.store = newHierarchyStore(src)
	rootRef := pageRef{offset: r.info.RootHierOffset, size: r.info.RootHierSize}
	if rootRef.size == 0 || rootRef.size%EntrySize != 0 {
		return nil, &FormatError{Err: errors.Errorf("root hierarchy page size %d is invalid", rootRef.size)}
	}
	if err := r.store.load(rootRef); err != nil {
		return nil, errors.Wrap(err, "loading root hierarchy page")
	}
	return r, nil
}

// readVlrs parses the VLR region between header and point data. The COPC
// spec requires the info VLR to come first.
func (r *Reader) readVlrs() error {
	if r.header.VlrCount == 0 {
		return &FormatError{Err: errors.New("no vlrs; copc requires the info vlr")}
	}
	length := int(r.header.OffsetToPointData) - las.HeaderSize
	data, err := source.ReadRange(r.src, las.HeaderSize, length)
	if err != nil {
		return &IoError{Offset: las.HeaderSize, Length: uint64(length), Err: err}
	}
	br := bytes.NewReader(data)

	for i := uint32(0); i < r.header.VlrCount; i++ {
		vlr, err := las.ReadVlr(br)
		if err != nil {
			return &FormatError{Err: err}
		}
		switch {
		case i == 0:
			if vlr.UserID != copcUserID || vlr.RecordID != infoRecordID {
				return &FormatError{Err: errors.Errorf(
					"first vlr is %s/%d, expected the copc info vlr", vlr.UserID, vlr.RecordID)}
			}
			if r.info, err = parseInfo(vlr.Data); err != nil {
				return &FormatError{Err: err}
			}
		case vlr.RecordID == codecRecordID:
			c, ok := codec.Lookup(vlr.UserID)
			if !ok {
				return &FormatError{Err: errors.Errorf("unknown chunk codec %q", vlr.UserID)}
			}
			r.chunkCodec = c
		case vlr.UserID == projUserID && vlr.RecordID == projRecordID:
			proj := vlr
			r.projection = &proj
		default:
			r.logger.Debugf("ignoring vlr %s/%d", vlr.UserID, vlr.RecordID)
		}
	}

	if r.chunkCodec == nil {
		if r.header.Compressed {
			return &FormatError{Err: errors.New("compressed point format but no codec vlr")}
		}
		r.chunkCodec = codec.Raw
	}
	return nil
}

// Header returns the LAS header. Read-only after open.
func (r *Reader) Header() *las.Header {
	return r.header
}

// Info returns the COPC info VLR content. Read-only after open.
func (r *Reader) Info() Info {
	return r.info
}

// Projection returns the projection VLR if the file carries one. The content
// is passed through uninterpreted.
func (r *Reader) Projection() *las.Vlr {
	return r.projection
}

// Points plans the query and returns a pull iterator over the matching
// points. Planning resolves any hierarchy pages the traversal needs; chunk
// reads and decoding happen lazily as the iterator advances, so abandoning
// it early costs nothing for unread nodes.
func (r *Reader) Points(lod LodSelection, bounds BoundsSelection) (*PointIterator, error) {
	minLevel, maxLevel, err := lod.levelWindow(r.info.Spacing)
	if err != nil {
		return nil, err
	}
	p := &planner{
		store:      r.store,
		rootBounds: r.info.RootBounds(),
		minLevel:   minLevel,
		maxLevel:   maxLevel,
	}
	p.queryBox, p.hasBox = bounds.Box()

	return newPointIterator(r, p.plan(), bounds), nil
}

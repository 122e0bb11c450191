package copc

import (
	"io"
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/geolidar/gocopc/codec"
	"github.com/geolidar/gocopc/las"
)

// DefaultMaxPointsPerNode is the node capacity used when WriterOptions does
// not set one.
const DefaultMaxPointsPerNode = 4096

var (
	// ErrClosedWriter is returned when writing to or closing an already
	// closed writer.
	ErrClosedWriter = errors.New("copc writer is closed")
	// ErrPointOutOfBounds is returned for points outside the octree cube.
	// The point is dropped; the writer stays usable.
	ErrPointOutOfBounds = errors.New("point outside the octree bounds")
	// ErrPointFormatMismatch is returned for points carrying data the file's
	// point format cannot store. The point is dropped; the writer stays
	// usable.
	ErrPointFormatMismatch = errors.New("point does not match the file's point format")
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	// PointFormat is the LAS point record format, 6 or 7.
	PointFormat las.PointFormat
	// Transforms are the coordinate scale/offsets. The zero value uses
	// millimeter precision with no offset.
	Transforms las.Transforms
	// Bounds is the expected extent of the data. The octree root cube is the
	// smallest cube centered on these bounds that contains them; points
	// outside it are rejected.
	Bounds Bounds
	// MaxPointsPerNode caps the reservoir of each octree node. Values < 1
	// use DefaultMaxPointsPerNode.
	MaxPointsPerNode int32
	// Codec compresses point chunks. Nil uses the LZF codec.
	Codec codec.Codec
	// Projection, when set, is forwarded verbatim as the file's projection
	// VLR. The content is not interpreted.
	Projection *las.Vlr
	// GeneratingSoftware overrides the header's software field.
	GeneratingSoftware string
}

// Writer builds a COPC file incrementally. Points buffer in octree nodes and
// flush as compressed chunks when a node fills; Close writes the hierarchy
// and patches the header. Nothing written before a successful Close is a
// valid COPC file. Single goroutine only.
type Writer struct {
	w      io.WriteSeeker
	logger golog.Logger

	opts       WriterOptions
	chunkCodec codec.Codec
	header     *las.Header
	info       Info
	builder    *octreeBuilder

	entries []Entry
	actual  Bounds
	record  []byte
	pos     uint64
	closed  bool
}

// NewWriter writes a provisional header and prepares the octree. The sink
// must support seeking back so Close can patch the header region.
func NewWriter(w io.WriteSeeker, opts WriterOptions, logger golog.Logger) (*Writer, error) {
	if !opts.PointFormat.Valid() {
		return nil, errors.Errorf("unsupported point format %d", opts.PointFormat)
	}
	if opts.Bounds.IsEmpty() {
		return nil, errors.New("writer needs non-empty bounds")
	}
	if opts.MaxPointsPerNode < 1 {
		opts.MaxPointsPerNode = DefaultMaxPointsPerNode
	}
	if opts.Codec == nil {
		opts.Codec = codec.Lzf
	}
	if opts.Transforms == (las.Transforms{}) {
		opts.Transforms = las.DefaultTransforms()
	}
	if opts.GeneratingSoftware == "" {
		opts.GeneratingSoftware = "gocopc"
	}

	center := opts.Bounds.Center()
	halfsize := math.Max(center.X-opts.Bounds.Min.X,
		math.Max(center.Y-opts.Bounds.Min.Y, center.Z-opts.Bounds.Min.Z))
	if halfsize <= 0 || math.IsInf(halfsize, 0) || math.IsNaN(halfsize) {
		return nil, errors.Errorf("degenerate octree halfsize %f", halfsize)
	}

	wr := &Writer{
		w:          w,
		logger:     logger,
		opts:       opts,
		chunkCodec: opts.Codec,
		record:     make([]byte, opts.PointFormat.RecordLength()),
		actual:     EmptyBounds(),
		info: Info{
			Center:     center,
			Halfsize:   halfsize,
			GpsTimeMin: math.Inf(1),
			GpsTimeMax: math.Inf(-1),
		},
	}
	wr.builder = newOctreeBuilder(wr.info.RootBounds(), opts.MaxPointsPerNode, len(wr.record))
	wr.header = wr.buildHeader()

	if err := wr.writeHeaderRegion(); err != nil {
		return nil, err
	}
	wr.pos = uint64(wr.header.OffsetToPointData)
	return wr, nil
}

func (wr *Writer) buildHeader() *las.Header {
	vlrSize := las.VlrHeaderSize + infoPayloadLen // copc info
	vlrSize += las.VlrHeaderSize                  // codec, empty payload
	vlrCount := uint32(2)
	if wr.opts.Projection != nil {
		vlrSize += wr.opts.Projection.TotalSize()
		vlrCount++
	}
	return &las.Header{
		GeneratingSoftware: wr.opts.GeneratingSoftware,
		OffsetToPointData:  uint32(las.HeaderSize + vlrSize),
		VlrCount:           vlrCount,
		PointFormat:        wr.opts.PointFormat,
		Compressed:         wr.chunkCodec.Name() != codec.Raw.Name(),
		PointRecordLength:  uint16(wr.opts.PointFormat.RecordLength()),
		Transforms:         wr.opts.Transforms,
	}
}

// writeHeaderRegion writes the header and all VLRs at offset zero. It runs
// once with provisional values and again from Close with the final ones.
func (wr *Writer) writeHeaderRegion() error {
	if _, err := wr.w.Seek(0, io.SeekStart); err != nil {
		return &WriteError{Err: err}
	}
	if err := wr.header.Write(wr.w); err != nil {
		return &WriteError{Err: err}
	}
	if err := wr.info.vlr().Write(wr.w); err != nil {
		return &WriteError{Err: err}
	}
	codecVlr := las.Vlr{UserID: wr.chunkCodec.Name(), RecordID: codecRecordID, Description: "chunk codec"}
	if err := codecVlr.Write(wr.w); err != nil {
		return &WriteError{Err: err}
	}
	if wr.opts.Projection != nil {
		if err := wr.opts.Projection.Write(wr.w); err != nil {
			return &WriteError{Err: err}
		}
	}
	return nil
}

// Write adds one point. Points that do not match the point format or fall
// outside the octree cube are dropped with ErrPointFormatMismatch or
// ErrPointOutOfBounds; the writer stays usable and later points are still
// accepted.
func (wr *Writer) Write(p las.Point) error {
	if wr.closed {
		return ErrClosedWriter
	}
	if !p.Matches(wr.opts.PointFormat) {
		return ErrPointFormatMismatch
	}
	pos := p.Position()
	if !wr.builder.root.bounds.Contains(pos) {
		return ErrPointOutOfBounds
	}
	if err := las.EncodePoint(wr.record, p, wr.opts.PointFormat, wr.opts.Transforms); err != nil {
		return err
	}

	node, full := wr.builder.insert(pos, wr.record)

	wr.header.PointCount++
	if rn := p.ReturnNumber; rn >= 1 && rn <= 15 {
		wr.header.PointsByReturn[rn-1]++
	}
	wr.actual.Extend(pos)
	wr.info.GpsTimeMin = math.Min(wr.info.GpsTimeMin, p.GpsTime)
	wr.info.GpsTimeMax = math.Max(wr.info.GpsTimeMax, p.GpsTime)

	if full {
		return wr.flushChunk(node)
	}
	return nil
}

// flushChunk compresses a node's reservoir, appends it to the point data
// region and records its hierarchy entry. The node's buffer is released;
// ownership of the bytes passes to the hierarchy.
func (wr *Writer) flushChunk(node *workingNode) error {
	data, err := wr.chunkCodec.Encode(node.buf)
	if err != nil {
		return &WriteError{Err: errors.Wrapf(err, "compressing chunk for node %s", node.key)}
	}
	if _, err := wr.w.Write(data); err != nil {
		return &WriteError{Err: errors.Wrapf(err, "writing chunk for node %s", node.key)}
	}
	wr.entries = append(wr.entries, Entry{
		Key:        node.key,
		Offset:     wr.pos,
		ByteSize:   int32(len(data)),
		PointCount: node.count,
	})
	wr.pos += uint64(len(data))
	node.buf = nil
	node.flushed = true
	return nil
}

// Close flushes the remaining nodes, writes the hierarchy page and patches
// the header and info VLR. It is the single commit point: a failure here or
// earlier leaves no valid COPC file.
func (wr *Writer) Close() error {
	if wr.closed {
		return ErrClosedWriter
	}
	if wr.header.PointCount == 0 {
		return &WriteError{Err: errors.New("no points were written")}
	}

	var flushErr error
	wr.builder.walk(func(node *workingNode) {
		if flushErr != nil {
			return
		}
		switch {
		case !node.flushed && node.count > 0:
			flushErr = wr.flushChunk(node)
		case node.count == 0 && node.hasDescendants():
			// known-empty cell on the path to populated descendants
			wr.entries = append(wr.entries, Entry{Key: node.key})
		}
	})
	if flushErr != nil {
		return flushErr
	}

	evlrStart := wr.pos
	page := las.Evlr{
		UserID:      copcUserID,
		RecordID:    hierRecordID,
		Description: "EPT Hierarchy",
		Data:        marshalPage(wr.entries),
	}
	if err := page.Write(wr.w); err != nil {
		return &WriteError{Err: errors.Wrap(err, "writing hierarchy page")}
	}

	wr.header.StartOfFirstEvlr = evlrStart
	wr.header.EvlrCount = 1
	wr.header.Min = wr.actual.Min
	wr.header.Max = wr.actual.Max

	wr.info.RootHierOffset = evlrStart + las.EvlrHeaderSize
	wr.info.RootHierSize = uint64(len(wr.entries) * EntrySize)
	wr.info.Spacing = wr.rootSpacing()

	if err := wr.writeHeaderRegion(); err != nil {
		return err
	}
	wr.closed = true
	wr.logger.Debugw("copc file finalized",
		"points", wr.header.PointCount, "nodes", len(wr.entries), "codec", wr.chunkCodec.Name())
	return nil
}

// rootSpacing estimates the point spacing of the root reservoir: the root
// cube side divided by the cube root of the points sampled into it.
func (wr *Writer) rootSpacing() float64 {
	n := float64(wr.builder.rootCount())
	if n < 1 {
		n = 1
	}
	return 2 * wr.info.Halfsize / math.Cbrt(n)
}

// Header returns the header as it will be written. Counts and bounds are
// only final after Close.
func (wr *Writer) Header() *las.Header {
	return wr.header
}

// Closed reports whether Close completed.
func (wr *Writer) Closed() bool {
	return wr.closed
}

func (n *workingNode) hasDescendants() bool {
	for _, c := range n.children {
		if c != nil {
			return true
		}
	}
	return false
}

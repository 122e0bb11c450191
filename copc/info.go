package copc

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/geolidar/gocopc/las"
)

// VLR identities fixed by the COPC and LAS specs.
const (
	copcUserID     = "copc"
	infoRecordID   = 1
	hierRecordID   = 1000
	codecRecordID  = 22204
	projUserID     = "LASF_Projection"
	projRecordID   = 2112
	infoPayloadLen = 160
)

// Info is the COPC info VLR: the octree root geometry and the pointer to the
// root hierarchy page. It is read once at open and written once at finalize.
type Info struct {
	// Center is the center of the octree cube in actual coordinates.
	Center r3.Vector
	// Halfsize is the distance from the center to any face of the root cube.
	Halfsize float64
	// Spacing is the point spacing at the root; each level halves it.
	Spacing float64

	RootHierOffset uint64
	RootHierSize   uint64

	GpsTimeMin float64
	GpsTimeMax float64
}

// RootBounds returns the root cube.
func (i Info) RootBounds() Bounds {
	h := r3.Vector{X: i.Halfsize, Y: i.Halfsize, Z: i.Halfsize}
	return Bounds{Min: i.Center.Sub(h), Max: i.Center.Add(h)}
}

func parseInfo(data []byte) (Info, error) {
	if len(data) < infoPayloadLen {
		return Info{}, errors.Errorf("copc info vlr has %d bytes, want %d", len(data), infoPayloadLen)
	}
	f := func(off int) float64 {
		return math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
	}
	return Info{
		Center:         r3.Vector{X: f(0), Y: f(8), Z: f(16)},
		Halfsize:       f(24),
		Spacing:        f(32),
		RootHierOffset: binary.LittleEndian.Uint64(data[40:]),
		RootHierSize:   binary.LittleEndian.Uint64(data[48:]),
		GpsTimeMin:     f(56),
		GpsTimeMax:     f(64),
	}, nil
}

func (i Info) marshal() []byte {
	data := make([]byte, infoPayloadLen)
	put := func(off int, v float64) {
		binary.LittleEndian.PutUint64(data[off:], math.Float64bits(v))
	}
	put(0, i.Center.X)
	put(8, i.Center.Y)
	put(16, i.Center.Z)
	put(24, i.Halfsize)
	put(32, i.Spacing)
	binary.LittleEndian.PutUint64(data[40:], i.RootHierOffset)
	binary.LittleEndian.PutUint64(data[48:], i.RootHierSize)
	put(56, i.GpsTimeMin)
	put(64, i.GpsTimeMax)
	// remaining 88 bytes are reserved zeros
	return data
}

func (i Info) vlr() las.Vlr {
	return las.Vlr{
		UserID:      copcUserID,
		RecordID:    infoRecordID,
		Description: "COPC info VLR",
		Data:        i.marshal(),
	}
}

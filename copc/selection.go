package copc

import (
	"math"

	"github.com/pkg/errors"
)

type lodKind uint8

const (
	lodAll lodKind = iota
	lodLevel
	lodLevels
	lodResolution
)

// LodSelection picks which octree levels a query returns. Construct with
// LodAll, LodLevel, LodLevels or LodResolution.
type LodSelection struct {
	kind       lodKind
	min, max   int32
	resolution float64
}

// LodAll selects every level.
func LodAll() LodSelection {
	return LodSelection{kind: lodAll}
}

// LodLevel selects levels 0 through n inclusive. Each level adds detail on
// top of the coarser ones, so a single level on its own is not a usable
// point cloud; queries therefore return the cumulative set.
func LodLevel(n int32) LodSelection {
	return LodSelection{kind: lodLevel, max: n}
}

// LodLevels selects levels min through max inclusive, descending through but
// not emitting levels below min.
func LodLevels(min, max int32) LodSelection {
	return LodSelection{kind: lodLevels, min: min, max: max}
}

// LodResolution selects the coarsest set of levels whose point spacing is at
// least r, in the units of the data.
func LodResolution(r float64) LodSelection {
	return LodSelection{kind: lodResolution, resolution: r}
}

// levelWindow resolves the selection to an inclusive [min, max] level range
// given the root spacing.
func (s LodSelection) levelWindow(rootSpacing float64) (int32, int32, error) {
	switch s.kind {
	case lodAll:
		return 0, math.MaxInt32, nil
	case lodLevel:
		if s.max < 0 {
			return 0, 0, errors.Errorf("negative level %d", s.max)
		}
		return 0, s.max, nil
	case lodLevels:
		if s.min < 0 || s.max < s.min {
			return 0, 0, errors.Errorf("invalid level range [%d, %d]", s.min, s.max)
		}
		return s.min, s.max, nil
	case lodResolution:
		if s.resolution <= 0 || math.IsNaN(s.resolution) || math.IsInf(s.resolution, 0) {
			return 0, 0, errors.Errorf("invalid resolution %f", s.resolution)
		}
		// deepest level whose spacing still meets the requested resolution,
		// or the root if even it is too fine
		max := int32(0)
		for max < 63 && rootSpacing/float64(uint64(1)<<uint(max+1)) >= s.resolution {
			max++
		}
		return 0, max, nil
	default:
		return 0, 0, errors.Errorf("unknown lod selection kind %d", s.kind)
	}
}

// BoundsSelection restricts a query to a spatial region. The zero value (or
// BoundsAll) applies no restriction.
type BoundsSelection struct {
	within bool
	box    Bounds
}

// BoundsAll applies no spatial filter.
func BoundsAll() BoundsSelection {
	return BoundsSelection{}
}

// BoundsWithin keeps only points inside box, boundaries included.
func BoundsWithin(box Bounds) BoundsSelection {
	return BoundsSelection{within: true, box: box}
}

// Box returns the filter box and whether one is set.
func (s BoundsSelection) Box() (Bounds, bool) {
	return s.box, s.within
}

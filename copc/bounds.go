package copc

import (
	"math"

	"github.com/golang/geo/r3"
)

// Bounds is an axis-aligned box.
type Bounds struct {
	Min, Max r3.Vector
}

// NewBounds returns the box spanning the two corners.
func NewBounds(min, max r3.Vector) Bounds {
	return Bounds{Min: min, Max: max}
}

// EmptyBounds returns the inverted box that any Extend call will replace.
func EmptyBounds() Bounds {
	return Bounds{
		Min: r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
}

// IsEmpty reports whether the box contains no volume at all.
func (b Bounds) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to include p.
func (b *Bounds) Extend(p r3.Vector) {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
}

// Intersects reports whether the boxes share any volume, boundaries included.
func (b Bounds) Intersects(o Bounds) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Contains reports whether p lies inside the box, boundaries included.
func (b Bounds) Contains(p r3.Vector) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Center returns the box center.
func (b Bounds) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Package copc reads and writes Cloud Optimized Point Cloud files: LAS 1.4
// point data arranged as an octree of codec-compressed chunks with an EPT
// hierarchy index, so that level-of-detail and region queries touch only the
// byte ranges they need.
package copc

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// VoxelKey identifies one octree cell. Level 0 is the root covering the
// whole indexed cube; each level down halves the cell side. Valid keys have
// 0 <= X,Y,Z < 2^Level. A negative level marks an invalid key, which is also
// the on-disk default.
type VoxelKey struct {
	Level, X, Y, Z int32
}

// RootKey returns the level 0 key.
func RootKey() VoxelKey {
	return VoxelKey{}
}

// InvalidKey returns the sentinel key used for unset entries.
func InvalidKey() VoxelKey {
	return VoxelKey{Level: -1}
}

// Valid reports whether the key identifies a real cell. The limit is
// computed in 64 bits so deep levels do not overflow the comparison.
func (k VoxelKey) Valid() bool {
	if k.Level < 0 {
		return false
	}
	limit := int64(1) << uint(k.Level)
	return k.X >= 0 && int64(k.X) < limit &&
		k.Y >= 0 && int64(k.Y) < limit &&
		k.Z >= 0 && int64(k.Z) < limit
}

// Child returns the child cell for octant index 0..7, where bit 0 selects
// the upper x half, bit 1 the upper y half and bit 2 the upper z half.
func (k VoxelKey) Child(octant int) VoxelKey {
	return VoxelKey{
		Level: k.Level + 1,
		X:     k.X<<1 | int32(octant)&1,
		Y:     k.Y<<1 | int32(octant)>>1&1,
		Z:     k.Z<<1 | int32(octant)>>2&1,
	}
}

// Children returns all eight children in octant order. Their cubes tile the
// parent cube exactly.
func (k VoxelKey) Children() [8]VoxelKey {
	var children [8]VoxelKey
	for i := range children {
		children[i] = k.Child(i)
	}
	return children
}

// Parent returns the containing cell one level up. The root is its own
// parent.
func (k VoxelKey) Parent() VoxelKey {
	if k.Level <= 0 {
		return RootKey()
	}
	return VoxelKey{Level: k.Level - 1, X: k.X >> 1, Y: k.Y >> 1, Z: k.Z >> 1}
}

// Bounds returns the cell's cube given the root cube.
func (k VoxelKey) Bounds(root Bounds) Bounds {
	side := (root.Max.X - root.Min.X) / float64(uint64(1)<<uint(k.Level))
	min := r3.Vector{
		X: root.Min.X + float64(k.X)*side,
		Y: root.Min.Y + float64(k.Y)*side,
		Z: root.Min.Z + float64(k.Z)*side,
	}
	return Bounds{
		Min: min,
		Max: r3.Vector{X: min.X + side, Y: min.Y + side, Z: min.Z + side},
	}
}

// Spacing returns the point spacing of the cell's level given the root
// spacing. Each level down halves the spacing.
func (k VoxelKey) Spacing(base float64) float64 {
	return base / float64(uint64(1)<<uint(k.Level))
}

// String formats the key as level-x-y-z, the convention EPT tooling uses.
func (k VoxelKey) String() string {
	return fmt.Sprintf("%d-%d-%d-%d", k.Level, k.X, k.Y, k.Z)
}

package pack

import (
	"fmt"
	"math/bits"

	"github.com/meteotest/quadkeys/pkg/coord"
)

// ToU32Var packs the coordinate into a u32 as a marker bit at position 2*z
// followed by the tile's quad key bits, so the zoom can be recovered from the
// value alone. The max coordinate zoom that can be handled is 15.
//
// Packed values sort the same way as the tile's quad key within one zoom.
func ToU32Var(c coord.Coord) (uint32, error) {
	if c.Z > 15 {
		return 0, fmt.Errorf("cannot pack coordinate into u32, z=%d > 15", c.Z)
	}
	if !c.Valid() {
		return 0, fmt.Errorf("cannot pack coordinate %s, x or y out of range", c)
	}
	return uint32(1)<<(2*c.Z) | uint32(c.Quadint()), nil
}

// FromU32Var unpacks the u32 back into a coordinate. It's expected that the
// coordinate was originally packed with the ToU32Var function.
func FromU32Var(val uint32) (coord.Coord, error) {
	zeros := bits.LeadingZeros32(val)
	if zeros&1 == 0 {
		return coord.Coord{}, fmt.Errorf("tile value %d has %d leading zeros, which isn't valid", val, zeros)
	}
	z := uint((31 - zeros) >> 1)
	return coord.FromQuadint(uint64(val), z), nil
}

// ToU64Var is ToU32Var for zooms up to 31.
func ToU64Var(c coord.Coord) (uint64, error) {
	if c.Z > 31 {
		return 0, fmt.Errorf("cannot pack coordinate into u64, z=%d > 31", c.Z)
	}
	if !c.Valid() {
		return 0, fmt.Errorf("cannot pack coordinate %s, x or y out of range", c)
	}
	return uint64(1)<<(2*c.Z) | c.Quadint(), nil
}

// FromU64Var unpacks a value made by ToU64Var.
func FromU64Var(val uint64) (coord.Coord, error) {
	zeros := bits.LeadingZeros64(val)
	if zeros&1 == 0 {
		return coord.Coord{}, fmt.Errorf("tile value %d has %d leading zeros, which isn't valid", val, zeros)
	}
	z := uint((63 - zeros) >> 1)
	return coord.FromQuadint(val, z), nil
}

package coord

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom a Coord can address. X and Y are treated as
// 32-bit values, so a zoom 32 tile interleaves into exactly 64 bits.
const MaxZoom = 32

// Coord contains the Z, X, Y coordinate for a particular tile.
type Coord struct {
	Z, X, Y uint
}

// Valid reports whether X and Y are both in [0, 2^Z) and Z is at most MaxZoom.
func (c Coord) Valid() bool {
	if c.Z > MaxZoom {
		return false
	}
	return uint64(c.X)>>c.Z == 0 && uint64(c.Y)>>c.Z == 0
}

// ZoomTo returns a new coordinate with the new zoom.
func (c Coord) ZoomTo(z uint) Coord {
	var result Coord
	if c.Z == z {
		result = c
	} else if c.Z < z {
		delta := z - c.Z
		result = Coord{z, c.X << delta, c.Y << delta}
	} else {
		delta := c.Z - z
		result = Coord{z, c.X >> delta, c.Y >> delta}
	}
	return result
}

// Parent returns the tile one zoom level up which contains c.
// The root tile has no parent, in which case ok is false.
func (c Coord) Parent() (parent Coord, ok bool) {
	if c.Z == 0 {
		return Coord{}, false
	}
	return c.ZoomTo(c.Z - 1), true
}

// Children returns the four tiles one zoom level down, ordered by their
// quad key digit: top left, top right, bottom left, bottom right.
func (c Coord) Children() [4]Coord {
	var result [4]Coord
	for d := uint(0); d < 4; d++ {
		result[d] = Coord{
			Z: c.Z + 1,
			X: c.X<<1 | d&1,
			Y: c.Y<<1 | d>>1,
		}
	}
	return result
}

// Quadint interleaves the bits of Y and X, Y first, into a single integer.
// It is the numeric value of the tile's base-4 quad key.
func (c Coord) Quadint() uint64 {
	var v uint64
	for i := uint(0); i < c.Z; i++ {
		v |= uint64((c.X>>i)&1) << (2 * i)
		v |= uint64((c.Y>>i)&1) << (2*i + 1)
	}
	return v
}

// FromQuadint is the inverse of Quadint. Bits above position 2*z are ignored.
func FromQuadint(v uint64, z uint) Coord {
	c := Coord{Z: z}
	for i := uint(0); i < z; i++ {
		c.X |= uint((v>>(2*i))&1) << i
		c.Y |= uint((v>>(2*i+1))&1) << i
	}
	return c
}

// MapTile converts the coordinate into an orb maptile.
func (c Coord) MapTile() maptile.Tile {
	return maptile.New(uint32(c.X), uint32(c.Y), maptile.Zoom(c.Z))
}

// FromMapTile converts an orb maptile into a coordinate.
func FromMapTile(t maptile.Tile) Coord {
	return Coord{Z: uint(t.Z), X: uint(t.X), Y: uint(t.Y)}
}

// String is the Coord Stringer implementation.
// It returns the coordinate in z/x/y.
func (c Coord) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

// LessZYX returns true if the coordinate is "less than" the argument.
// First z is considered, then y, and finally x.
func (c Coord) LessZYX(o Coord) bool {
	if c.Z < o.Z {
		return true
	} else if c.Z == o.Z {
		if c.Y < o.Y {
			return true
		} else if c.Y == o.Y {
			if c.X < o.X {
				return true
			}
		}
	}
	return false
}

// LessQuadKey orders coordinates the way their quad keys sort as strings:
// depth first, with every tile ahead of its descendants.
func (c Coord) LessQuadKey(o Coord) bool {
	common := c.Z
	if o.Z < common {
		common = o.Z
	}
	cp := c.Quadint() >> (2 * (c.Z - common))
	op := o.Quadint() >> (2 * (o.Z - common))
	if cp != op {
		return cp < op
	}
	return c.Z < o.Z
}

// ByZYX is a wrapper type used for sorting.
type ByZYX []Coord

func (a ByZYX) Len() int      { return len(a) }
func (a ByZYX) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a ByZYX) Less(i, j int) bool {
	x := a[i]
	y := a[j]
	return x.LessZYX(y)
}

// ByQuadKey sorts coordinates in quad key order.
type ByQuadKey []Coord

func (a ByQuadKey) Len() int           { return len(a) }
func (a ByQuadKey) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ByQuadKey) Less(i, j int) bool { return a[i].LessQuadKey(a[j]) }

// Decode parses a coordinate from a string.
// It expects the string to be in the form z/x/y.
func Decode(coordSpec string) (*Coord, error) {
	fields := strings.Split(coordSpec, "/")
	if len(fields) != 3 {
		return nil, errors.New("Invalid number of fields")
	}
	z, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("Invalid z: %#v %s", fields[0], err)
	}
	x, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("Invalid x: %#v %s", fields[1], err)
	}
	y, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("Invalid y: %#v %s", fields[2], err)
	}
	return &Coord{uint(z), uint(x), uint(y)}, nil
}

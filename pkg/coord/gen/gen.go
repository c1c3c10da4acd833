package gen

import (
	"github.com/meteotest/quadkeys/pkg/coord"
)

// Generator provides an interface for yielding successive coordinates.
type Generator interface {
	Next() *coord.Coord
}

func dimRange(zoom uint) uint64 {
	return uint64(1) << zoom
}

type zoomRangeState struct {
	next         coord.Coord
	end          uint
	curZoomRange uint64
}

// NewZoomRange returns a Generator that yields all coordinates from begin zoom
// to end zoom, row by row within each zoom. The end zoom is inclusive.
func NewZoomRange(zoomBegin uint, zoomEndInclusive uint) Generator {
	return &zoomRangeState{
		next:         coord.Coord{Z: zoomBegin, X: 0, Y: 0},
		end:          zoomEndInclusive,
		curZoomRange: dimRange(zoomBegin),
	}
}

func (g *zoomRangeState) Next() *coord.Coord {
	if g.next.Z > g.end {
		return nil
	}
	result := g.next
	nextCoord := &g.next
	nextCoord.X++
	if uint64(nextCoord.X) == g.curZoomRange {
		nextCoord.X = 0
		nextCoord.Y++
		if uint64(nextCoord.Y) == g.curZoomRange {
			nextCoord.Y = 0
			nextCoord.Z++
			g.curZoomRange = dimRange(nextCoord.Z)
		}
	}
	return &result
}

type descendantsState struct {
	zoom  uint
	base  uint64
	next  uint64
	count uint64
}

// NewDescendants returns a Generator that yields every tile at zoom which
// lies inside root, in quad key order. It yields nothing when zoom is less
// than root.Z, and root itself when they are equal. zoom - root.Z must be
// less than 32.
func NewDescendants(root coord.Coord, zoom uint) Generator {
	if zoom < root.Z {
		return &descendantsState{}
	}
	depth := zoom - root.Z
	return &descendantsState{
		zoom:  zoom,
		base:  root.Quadint() << (2 * depth),
		count: uint64(1) << (2 * depth),
	}
}

func (g *descendantsState) Next() *coord.Coord {
	if g.next >= g.count {
		return nil
	}
	c := coord.FromQuadint(g.base|g.next, g.zoom)
	g.next++
	return &c
}

type sliceState struct {
	idx    uint
	coords []coord.Coord
}

// NewSlice returns a Generator that yields all coordinates in the slice.
func NewSlice(coords []coord.Coord) Generator {
	return &sliceState{0, coords}
}

func (g *sliceState) Next() *coord.Coord {
	if g.idx >= uint(len(g.coords)) {
		return nil
	}
	result := g.coords[g.idx]
	g.idx++
	return &result
}

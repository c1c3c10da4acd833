package cmp

import (
	"github.com/meteotest/quadkeys/pkg/coord"
	"github.com/meteotest/quadkeys/pkg/coord/gen"
)

// EachMissingTile compares two coordinate generators to find the missing tiles.
// It assumes that the first generator is the exhaustive list of what's
// expected, and calls fn with every coordinate that is missing from the second
// generator, as soon as it is known to be missing. Both generators must yield
// tiles in quad key order, and the actual tiles may include extras which are
// skipped. The first error from fn stops the comparison and is returned.
func EachMissingTile(exp gen.Generator, act gen.Generator, fn func(coord.Coord) error) error {
	expC := exp.Next()
	actC := act.Next()
	for expC != nil {
		switch {
		case actC == nil || expC.LessQuadKey(*actC):
			if err := fn(*expC); err != nil {
				return err
			}
			expC = exp.Next()
		case actC.LessQuadKey(*expC):
			actC = act.Next()
		default:
			expC = exp.Next()
			actC = act.Next()
		}
	}
	return nil
}

// FindMissingTiles is EachMissingTile collecting the missing tiles into a
// slice. Only use it when the expected range is small.
func FindMissingTiles(exp gen.Generator, act gen.Generator) []coord.Coord {
	var result []coord.Coord
	_ = EachMissingTile(exp, act, func(c coord.Coord) error {
		result = append(result, c)
		return nil
	})
	return result
}

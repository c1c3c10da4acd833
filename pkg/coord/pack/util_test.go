package pack

import (
	"fmt"
	"math/rand"
	"reflect"

	"github.com/meteotest/quadkeys/pkg/coord"
)

// This contains test utility functions for testing in the pack package

func newValidCoordGenerator(maxZoomInclusive uint) func([]reflect.Value, *rand.Rand) {
	return func(values []reflect.Value, rand *rand.Rand) {
		if len(values) != 1 {
			panic(fmt.Errorf("unexpected number of values to gen: %d", len(values)))
		}
		zoom := uint(rand.Intn(int(maxZoomInclusive) + 1))
		dim := uint64(1) << zoom
		c := coord.Coord{
			Z: zoom,
			X: uint(rand.Uint64() % dim),
			Y: uint(rand.Uint64() % dim),
		}
		values[0] = reflect.ValueOf(&c)
	}
}

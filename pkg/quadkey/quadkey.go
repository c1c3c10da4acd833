// Package quadkey converts between z/x/y tile coordinates and quad keys.
//
// A quad key names a tile at zoom z with z characters from {0,1,2,3}. Each
// character picks one quadrant of the tile named by the characters before
// it, so dropping the last character gives the enclosing tile one zoom up:
//
//	zoom 1     zoom 2
//	+---+---+  +----+----+----+----+
//	| 0 | 1 |  | 00 | 01 | 10 | 11 |
//	+---+---+  +----+----+----+----+
//	| 2 | 3 |  | 02 | 03 | 12 | 13 |
//	+---+---+  +----+----+----+----+
//	           | 20 | 21 | 30 | 31 |
//	           +----+----+----+----+
//	           | 22 | 23 | 32 | 33 |
//	           +----+----+----+----+
//
// The key for (x=3, y=5) at zoom 3 takes both coordinates as 3-digit binary
// numbers, x=011 and y=101, interleaves them starting with y to get 100111,
// and reads that as base 4: 213.
package quadkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/meteotest/quadkeys/pkg/coord"
)

// MaxZoom is the longest quad key supported.
const MaxZoom = coord.MaxZoom

var (
	// ErrInvalidCoordinate is returned when x or y do not fit in 2^z, or z is
	// past MaxZoom.
	ErrInvalidCoordinate = errors.New("invalid tile coordinate")
	// ErrMalformedQuadKey is returned for keys with characters other than 0-3,
	// or keys longer than MaxZoom.
	ErrMalformedQuadKey = errors.New("malformed quad key")
	// ErrNoParent is returned when asking for the parent of the root tile.
	ErrNoParent = errors.New("root tile has no parent")
)

// FromTile returns the quad key of tile x/y at zoom z. The key is always
// exactly z characters long, and empty for z == 0.
func FromTile(x, y, z uint) (string, error) {
	c := coord.Coord{Z: z, X: x, Y: y}
	if !c.Valid() {
		return "", fmt.Errorf("%w: %s does not fit zoom %d", ErrInvalidCoordinate, c, z)
	}
	if z == 0 {
		return "", nil
	}

	n := int(z)
	xBin := zfill(strconv.FormatUint(uint64(x), 2), n)
	yBin := zfill(strconv.FormatUint(uint64(y), 2), n)

	// rows come first
	interleaved := make([]byte, 0, 2*n)
	for i := 0; i < n; i++ {
		interleaved = append(interleaved, yBin[i], xBin[i])
	}

	key, err := convertBase(string(interleaved), 2, 4)
	if err != nil {
		return "", err
	}
	return zfill(key, n), nil
}

// FromCoord is FromTile for a coord.Coord.
func FromCoord(c coord.Coord) (string, error) {
	return FromTile(c.X, c.Y, c.Z)
}

// ToTile is the inverse of FromTile. The zoom of the result is len(key).
func ToTile(key string) (coord.Coord, error) {
	if err := Validate(key); err != nil {
		return coord.Coord{}, err
	}
	n := len(key)
	if n == 0 {
		return coord.Coord{}, nil
	}

	bin, err := convertBase(key, 4, 2)
	if err != nil {
		return coord.Coord{}, err
	}
	// leading zero digits must come back as "00" pairs or the bits misalign
	bin = zfill(bin, 2*n)

	xBin := make([]byte, 0, n)
	yBin := make([]byte, 0, n)
	for i := 0; i < len(bin); i += 2 {
		yBin = append(yBin, bin[i])
		xBin = append(xBin, bin[i+1])
	}

	x, err := strconv.ParseUint(string(xBin), 2, 64)
	if err != nil {
		return coord.Coord{}, err
	}
	y, err := strconv.ParseUint(string(yBin), 2, 64)
	if err != nil {
		return coord.Coord{}, err
	}
	return coord.Coord{Z: uint(n), X: uint(x), Y: uint(y)}, nil
}

// Validate checks that key only uses the digits 0-3 and is at most MaxZoom
// characters long.
func Validate(key string) error {
	if len(key) > MaxZoom {
		return fmt.Errorf("%w: %q is longer than %d", ErrMalformedQuadKey, key, MaxZoom)
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '3' {
			return fmt.Errorf("%w: %q has %q at offset %d", ErrMalformedQuadKey, key, key[i], i)
		}
	}
	return nil
}

// Parent returns the key of the tile one zoom level up that contains key.
func Parent(key string) (string, error) {
	if err := Validate(key); err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrNoParent
	}
	return key[:len(key)-1], nil
}

// Children returns the keys of the four tiles one zoom level down, in
// digit order.
func Children(key string) ([4]string, error) {
	var result [4]string
	if err := Validate(key); err != nil {
		return result, err
	}
	if len(key) == MaxZoom {
		return result, fmt.Errorf("%w: children of %q would exceed zoom %d", ErrInvalidCoordinate, key, MaxZoom)
	}
	for d := 0; d < 4; d++ {
		result[d] = key + strconv.Itoa(d)
	}
	return result, nil
}

// Contains reports whether the tile named by ancestor covers the tile named
// by key. Every tile contains itself, and the root contains every tile.
func Contains(ancestor, key string) (bool, error) {
	if err := Validate(ancestor); err != nil {
		return false, err
	}
	if err := Validate(key); err != nil {
		return false, err
	}
	return strings.HasPrefix(key, ancestor), nil
}

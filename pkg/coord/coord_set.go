package coord

import "math/bits"

// MaxSetZoom is the deepest zoom a CoordSet can hold. A full zoom 16 level is
// 4^16 bits, 512MiB, which is already more than a set should be asked for.
const MaxSetZoom = 16

const bitsPerWord = 64

type bitset struct {
	words []uint64
}

func newBitset(zoom uint) *bitset {
	if zoom > MaxSetZoom {
		panic("Zoom levels > 16 are not currently supported by coord.CoordSet")
	}
	numBits := uint64(1) << (2 * zoom)
	numWords := (numBits + bitsPerWord - 1) / bitsPerWord
	return &bitset{make([]uint64, numWords)}
}

func (b *bitset) Get(idx uint64) bool {
	return (b.words[idx/bitsPerWord]>>(idx%bitsPerWord))&1 == 1
}

func (b *bitset) Set(idx uint64, val bool) {
	mask := uint64(1) << (idx % bitsPerWord)
	if val {
		b.words[idx/bitsPerWord] |= mask
	} else {
		b.words[idx/bitsPerWord] &^= mask
	}
}

func (b *bitset) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// CoordSet is a set of coordinates backed by one bitset per zoom level.
// Bits are laid out by quad key, so the descendants of a tile are contiguous.
type CoordSet struct {
	zooms map[uint]*bitset
}

func NewCoordSet() *CoordSet {
	return &CoordSet{make(map[uint]*bitset)}
}

func (s *CoordSet) Get(c Coord) bool {
	b, ok := s.zooms[c.Z]
	if !ok {
		return false
	}
	return b.Get(c.Quadint())
}

func (s *CoordSet) Set(c Coord, val bool) {
	b, ok := s.zooms[c.Z]
	if !ok {
		if !val {
			return
		}
		b = newBitset(c.Z)
		s.zooms[c.Z] = b
	}
	b.Set(c.Quadint(), val)
}

// Len returns the number of coordinates in the set, over all zooms.
func (s *CoordSet) Len() int {
	n := 0
	for _, b := range s.zooms {
		n += b.Count()
	}
	return n
}

package s3

import (
	"crypto/md5"
	"errors"
	"fmt"
	"strings"

	tzc "github.com/meteotest/quadkeys/pkg/coord"
	"github.com/meteotest/quadkeys/pkg/quadkey"
)

// specific logic around s3 object keys: tiles are either stored under
// z/x/y.ext or under <quadkey>.ext, behind a hash prefix.

// ParseCoordFromKey parses a coordinate from an s3 path. It understands both
// .../z/x/y.ext and .../<quadkey>.ext keys. The root tile has an empty quad
// key, so its object is named ".ext".
//
// When the key starts with a hash prefix, the reading whose hashed name
// matches that prefix wins. Otherwise z/x/y is tried before the quad key.
func ParseCoordFromKey(key string) (*tzc.Coord, error) {
	// assume that we have an extension that we're trimming off
	extIdx := strings.LastIndexByte(key, '.')
	if extIdx < 0 {
		return nil, errors.New("Missing extension")
	}
	base, ext := key[:extIdx], key[extIdx+1:]
	if strings.IndexByte(ext, '/') >= 0 {
		return nil, errors.New("Missing extension")
	}
	name := base[strings.LastIndexByte(base, '/')+1:]

	slash := strings.IndexByte(base, '/')
	if slash >= 0 && isHashPrefix(base[:slash]) {
		return parseHashed(base, base[:slash], name, ext)
	}

	if c, err := parseZXY(base); err == nil {
		return c, nil
	}
	c, err := quadkey.ToTile(name)
	if err != nil {
		return nil, fmt.Errorf("neither z/x/y nor a quad key: %w", err)
	}
	return &c, nil
}

func isHashPrefix(s string) bool {
	if len(s) != hashLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !(s[i] >= '0' && s[i] <= '9') && !(s[i] >= 'a' && s[i] <= 'f') {
			return false
		}
	}
	return true
}

// parseHashed picks the reading of a <hash>/... key whose object name hashes
// to the prefix. A digits-only hash and prefix can otherwise pass for z/x.
func parseHashed(base, hash, name, ext string) (*tzc.Coord, error) {
	if c, err := parseZXY(base); err == nil {
		if HashString(fmt.Sprintf("%d/%d/%d.%s", c.Z, c.X, c.Y, ext)) == hash {
			return c, nil
		}
	}
	c, err := quadkey.ToTile(name)
	if err != nil {
		return nil, fmt.Errorf("neither z/x/y nor a quad key: %w", err)
	}
	if HashString(QuadKeyPath(name, ext)) != hash {
		return nil, fmt.Errorf("Hash prefix %s does not match %s", hash, QuadKeyPath(name, ext))
	}
	return &c, nil
}

func parseZXY(base string) (*tzc.Coord, error) {
	var slashCount uint
	var idx int
	for idx = len(base) - 1; idx >= 0; idx-- {
		if base[idx] == '/' {
			slashCount++
			if slashCount == 3 {
				break
			}
		}
	}
	if slashCount == 3 || (slashCount == 2 && idx == -1) {
		c, err := tzc.Decode(base[idx+1:])
		if err != nil {
			return nil, err
		}
		if !c.Valid() {
			return nil, fmt.Errorf("Out of range: %s", c)
		}
		return c, nil
	}
	return nil, errors.New("Missing fields")
}

const hashLen = 5

// HashString returns the first 5 characters of the md5 hash.
// This is what gets used as s3 path prefixes.
func HashString(s string) string {
	md5Hash := md5.Sum([]byte(s))
	hex := fmt.Sprintf("%x", md5Hash)
	return hex[:hashLen]
}

// QuadKeyPath returns the unhashed object name for a quad key.
func QuadKeyPath(key, ext string) string {
	return fmt.Sprintf("%s.%s", key, ext)
}

// QuadKeyHashPath returns the hashed s3 path, <hash>/<prefix>/<quadkey>.<ext>,
// where the hash is taken over <quadkey>.<ext>.
func QuadKeyHashPath(prefix, key, ext string) (string, error) {
	if err := quadkey.Validate(key); err != nil {
		return "", err
	}
	pathToHash := QuadKeyPath(key, ext)
	return fmt.Sprintf("%s/%s/%s", HashString(pathToHash), prefix, pathToHash), nil
}

// QuadKeyHashPathForCoord is QuadKeyHashPath for a tile coordinate.
func QuadKeyHashPathForCoord(prefix string, c tzc.Coord, ext string) (string, error) {
	key, err := quadkey.FromCoord(c)
	if err != nil {
		return "", err
	}
	return QuadKeyHashPath(prefix, key, ext)
}

// ZXYHashPathForCoord returns the hashed s3 path for z/x/y keyed tiles.
func ZXYHashPathForCoord(prefix string, c tzc.Coord, ext string) string {
	pathToHash := fmt.Sprintf("%d/%d/%d.%s", c.Z, c.X, c.Y, ext)
	return fmt.Sprintf("%s/%s/%s", HashString(pathToHash), prefix, pathToHash)
}

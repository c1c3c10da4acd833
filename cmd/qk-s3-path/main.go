package main

import (
	"flag"
	"fmt"

	"github.com/meteotest/quadkeys/pkg/cmd"
	"github.com/meteotest/quadkeys/pkg/coord"
	"github.com/meteotest/quadkeys/pkg/quadkey"
	"github.com/meteotest/quadkeys/pkg/s3"
)

// objectPath resolves exactly one of tileStr and key to a hashed object path.
func objectPath(prefix, tileStr, key, ext string, zxy bool) (string, error) {
	var c coord.Coord
	switch {
	case tileStr != "":
		p, err := coord.Decode(tileStr)
		if err != nil {
			return "", fmt.Errorf("Invalid tile %s: %w", tileStr, err)
		}
		if !p.Valid() {
			return "", fmt.Errorf("%w: %s", quadkey.ErrInvalidCoordinate, p)
		}
		c = *p
	default:
		var err error
		if c, err = quadkey.ToTile(key); err != nil {
			return "", err
		}
	}
	if zxy {
		return s3.ZXYHashPathForCoord(prefix, c, ext), nil
	}
	return s3.QuadKeyHashPathForCoord(prefix, c, ext)
}

func main() {
	var bucket, prefix, tileStr, key, ext string
	var zxy, root bool

	flag.StringVar(&bucket, "bucket", "", "s3 bucket")
	flag.StringVar(&prefix, "prefix", "", "s3 bucket prefix")
	flag.StringVar(&tileStr, "tile", "", "tile coordinate as z/x/y")
	flag.StringVar(&key, "quadkey", "", "tile quad key")
	flag.BoolVar(&root, "root", false, "use the root tile, whose quad key is empty")
	flag.StringVar(&ext, "ext", "png", "object extension")
	flag.BoolVar(&zxy, "zxy", false, "generate a z/x/y path instead of a quad key path")

	flag.Parse()

	given := 0
	for _, set := range []bool{tileStr != "", key != "", root} {
		if set {
			given++
		}
	}
	if prefix == "" || given != 1 {
		cmd.DieWithUsage("Exactly one of -tile, -quadkey and -root is required, as is -prefix")
	}

	path, err := objectPath(prefix, tileStr, key, ext, zxy)
	if err != nil {
		cmd.DieWithUsage("%s", err)
	}

	if bucket != "" {
		fmt.Printf("s3://%s/%s\n", bucket, path)
	} else {
		fmt.Printf("%s\n", path)
	}
}

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/meteotest/quadkeys/pkg/cmd"
	"github.com/meteotest/quadkeys/pkg/coord"
	"github.com/meteotest/quadkeys/pkg/logger"
	"github.com/meteotest/quadkeys/pkg/quadkey"
)

// zooms at or below this are deduplicated through a bitset (2MiB at zoom 12),
// deeper ones through a map
const dedupeSetZoom = 12

const (
	toAuto = "auto"
	toKey  = "key"
	toTile = "tile"
	// <z>/<integer quad key>, as maptile.Tile.Quadkey computes it
	toQuadint = "quadint"
)

type options struct {
	to      string
	zoomMax int
	dedupe  bool
}

type stats struct {
	read, written, skipped int
}

type dedupe struct {
	set  *coord.CoordSet
	deep map[coord.Coord]struct{}
}

func newDedupe() *dedupe {
	return &dedupe{set: coord.NewCoordSet(), deep: make(map[coord.Coord]struct{})}
}

// seen marks c and reports whether it was already marked.
func (d *dedupe) seen(c coord.Coord) bool {
	if c.Z <= dedupeSetZoom {
		if d.set.Get(c) {
			return true
		}
		d.set.Set(c, true)
		return false
	}
	if _, ok := d.deep[c]; ok {
		return true
	}
	d.deep[c] = struct{}{}
	return false
}

// parseLine decodes one input line. isTile reports whether it was a z/x/y
// coordinate, in which case the output is a quad key.
func parseLine(line, to string) (c coord.Coord, isTile bool, err error) {
	isTile = to == toKey || ((to == toAuto || to == toQuadint) && strings.Contains(line, "/"))
	if !isTile {
		c, err = quadkey.ToTile(line)
		return c, false, err
	}
	p, err := coord.Decode(line)
	if err != nil {
		return c, true, fmt.Errorf("%w: %s", quadkey.ErrInvalidCoordinate, err)
	}
	if !p.Valid() {
		return c, true, fmt.Errorf("%w: %s is out of range", quadkey.ErrInvalidCoordinate, p)
	}
	return *p, true, nil
}

func convert(r io.Reader, w io.Writer, opts options, log zerolog.Logger) (stats, error) {
	var st stats
	var seen *dedupe
	if opts.dedupe {
		seen = newDedupe()
	}

	bw := bufio.NewWriter(w)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// a blank line is only the root quad key when keys are expected
		if line == "" && opts.to != toTile {
			continue
		}
		st.read++

		c, isTile, err := parseLine(line, opts.to)
		if err != nil {
			log.Warn().Err(err).Str("line", line).Msg("skipping line")
			st.skipped++
			continue
		}
		if opts.zoomMax >= 0 && c.Z > uint(opts.zoomMax) {
			c = c.ZoomTo(uint(opts.zoomMax))
		}
		if seen != nil && seen.seen(c) {
			continue
		}

		out := c.String()
		if opts.to == toQuadint {
			out = fmt.Sprintf("%d/%d", c.Z, c.MapTile().Quadkey())
		} else if isTile {
			if out, err = quadkey.FromCoord(c); err != nil {
				log.Warn().Err(err).Str("line", line).Msg("skipping line")
				st.skipped++
				continue
			}
		}
		bw.WriteString(out)
		bw.WriteByte('\n')
		st.written++
	}
	if err := scanner.Err(); err != nil {
		return st, err
	}
	return st, bw.Flush()
}

func main() {
	var inPath, to, logLevel string
	var zoomMax int
	var isCompressed, unique, strict, logConsole bool

	flag.StringVar(&inPath, "in", "-", "path to read tiles or quad keys from, - for stdin")
	flag.BoolVar(&isCompressed, "compressed", false, "input is a gzip compressed file")
	flag.StringVar(&to, "to", toAuto, "output representation: key, tile, quadint, or auto to convert each line to the other one")
	flag.IntVar(&zoomMax, "zoom-max", -1, "tiles are clamped to this zoom, negative to disable")
	flag.BoolVar(&unique, "dedupe", false, "only write unique tiles")
	flag.BoolVar(&strict, "strict", false, "exit non-zero if any line was skipped")
	flag.StringVar(&logLevel, "log-level", "info", "log level")
	flag.BoolVar(&logConsole, "log-console", false, "human readable logs")

	flag.Parse()

	if to != toAuto && to != toKey && to != toTile && to != toQuadint {
		cmd.DieWithUsage("Invalid -to %#v", to)
	}
	if zoomMax > coord.MaxZoom {
		cmd.DieWithUsage("-zoom-max must be at most %d", coord.MaxZoom)
	}

	log := logger.Build(logger.Config{Level: logLevel, Console: logConsole, Component: "qk-convert"}, nil)

	in, err := cmd.OpenInput(inPath, isCompressed)
	if err != nil {
		log.Fatal().Err(err).Str("path", inPath).Msg("open input")
	}
	defer in.Close()

	st, err := convert(in, os.Stdout, options{to: to, zoomMax: zoomMax, dedupe: unique}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("convert")
	}
	log.Info().Int("read", st.read).Int("written", st.written).Int("skipped", st.skipped).Msg("done")
	if strict && st.skipped > 0 {
		os.Exit(1)
	}
}

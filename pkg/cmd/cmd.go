package cmd

import (
	"bufio"
	"compress/gzip"
	"flag"
	"fmt"
	"io"
	"os"
)

// DieWithUsage is a utility that assumes usage of the flag library. It prints
// the reason if there is one, a usage line, the flag arguments, and then exits.
func DieWithUsage(format string, args ...any) {
	if format != "" {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
	fmt.Fprintf(os.Stderr, "Usage: %s\n", os.Args[0])
	flag.PrintDefaults()
	os.Exit(1)
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var err error
	for _, c := range r.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// OpenInput opens path for line reading, or stdin for "" and "-". With
// compressed set the stream is gunzipped.
func OpenInput(path string, compressed bool) (io.ReadCloser, error) {
	var f io.ReadCloser = io.NopCloser(os.Stdin)
	if path != "" && path != "-" {
		var err error
		if f, err = os.Open(path); err != nil {
			return nil, err
		}
	}
	if !compressed {
		return f, nil
	}
	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	// gzip first so its checksum error surfaces before the file close
	return &readCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
}

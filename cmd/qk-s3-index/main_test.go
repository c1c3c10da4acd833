package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteotest/quadkeys/pkg/coord"
	tzs3 "github.com/meteotest/quadkeys/pkg/s3"
)

// bucket serves one page of keys per prefix. Listing the fail prefix, when set, errors.
type bucket struct {
	s3iface.S3API
	keys map[string][]string
	fail string
}

func (b *bucket) ListObjectsPagesWithContext(ctx aws.Context, input *s3.ListObjectsInput, fn func(*s3.ListObjectsOutput, bool) bool, _ ...request.Option) error {
	prefix := aws.StringValue(input.Prefix)
	if b.fail != "" && prefix == b.fail {
		return errors.New("access denied")
	}
	out := &s3.ListObjectsOutput{}
	for _, k := range b.keys[prefix] {
		out.Contents = append(out.Contents, &s3.Object{Key: aws.String(k)})
	}
	fn(out, true)
	return nil
}

func mustPath(t *testing.T, key string) string {
	t.Helper()
	path, err := tzs3.QuadKeyHashPath("20240101", key, "png")
	require.NoError(t, err)
	return path
}

func TestIsValidHexPrefix(t *testing.T) {
	assert.True(t, isValidHexPrefix("0af"))
	assert.False(t, isValidHexPrefix("0AF"))
	assert.False(t, isValidHexPrefix("0a"))
	assert.False(t, isValidHexPrefix("0ag"))
}

func TestListingPrefixes(t *testing.T) {
	assert.Equal(t, []string{"20240101"}, listingPrefixes("", "20240101"))

	prefixes := listingPrefixes("abc", "20240101")
	require.Len(t, prefixes, 256)
	assert.Equal(t, "abc00/20240101/", prefixes[0])
	assert.Equal(t, "abcff/20240101/", prefixes[255])
}

func TestListObjects(t *testing.T) {
	svc := &bucket{keys: map[string][]string{
		"a/": {"a/213.png", "a/README.md", "a/0.png"},
		"b/": {"b/2/1/2.png", "b/.png"},
		"c/": nil,
	}}
	objects, err := listObjects(context.Background(), tzs3.NewLister(svc, "tiles"), []string{"a/", "b/", "c/"}, 2)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeIndex(&out, objects))
	assert.Equal(t, " b/.png\n0 a/0.png\n21 b/2/1/2.png\n213 a/213.png\n", out.String())

	// 3 sorts after 213 by quad key, but its zoom comes first
	objects = append(objects, tzs3.Object{Key: "c/3.png", Coord: coord.Coord{Z: 1, X: 1, Y: 1}})
	sortZYX(objects)
	out.Reset()
	require.NoError(t, writeIndex(&out, objects))
	assert.Equal(t, " b/.png\n0 a/0.png\n3 c/3.png\n21 b/2/1/2.png\n213 a/213.png\n", out.String())
}

func TestListObjectsReportsFailure(t *testing.T) {
	svc := &bucket{fail: "b/"}
	_, err := listObjects(context.Background(), tzs3.NewLister(svc, "tiles"), []string{"a/", "b/", "c/"}, 3)
	assert.ErrorContains(t, err, "listing b/: access denied")
}

func TestListObjectsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := listObjects(ctx, tzs3.NewLister(&bucket{}, "tiles"), []string{"a/"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindMissing(t *testing.T) {
	present := []string{"20", "22", "23", "3", "230"}
	keys := make([]string, len(present))
	for i, k := range present {
		keys[i] = mustPath(t, k)
	}
	svc := &bucket{keys: map[string][]string{"": keys}}
	objects, err := listObjects(context.Background(), tzs3.NewLister(svc, "tiles"), []string{""}, 1)
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := writeMissing(&out, objects, coord.Coord{Z: 1, X: 0, Y: 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "21\n", out.String())

	out.Reset()
	n, err = writeMissing(&out, objects, coord.Coord{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "0\n1\n2\n", out.String())
}

// lineCounter counts newlines without keeping what was written.
type lineCounter struct {
	lines int
}

func (l *lineCounter) Write(p []byte) (int, error) {
	l.lines += bytes.Count(p, []byte{'\n'})
	return len(p), nil
}

func TestWriteMissingLargeRange(t *testing.T) {
	present := []tzs3.Object{{Key: "x", Coord: coord.Coord{Z: 10, X: 0, Y: 0}}}
	var out lineCounter
	n, err := writeMissing(&out, present, coord.Coord{}, 10)
	require.NoError(t, err)
	assert.Equal(t, 1<<20-1, n)
	assert.Equal(t, n, out.lines)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteMissingStopsOnWriteError(t *testing.T) {
	_, err := writeMissing(failingWriter{}, nil, coord.Coord{}, 12)
	assert.ErrorContains(t, err, "disk full")
}

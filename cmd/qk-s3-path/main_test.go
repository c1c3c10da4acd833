package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meteotest/quadkeys/pkg/quadkey"
	"github.com/meteotest/quadkeys/pkg/s3"
)

func TestObjectPath(t *testing.T) {
	exp, err := s3.QuadKeyHashPath("20240101", "213", "png")
	require.NoError(t, err)

	fromTile, err := objectPath("20240101", "3/3/5", "", "png", false)
	require.NoError(t, err)
	assert.Equal(t, exp, fromTile)

	fromKey, err := objectPath("20240101", "", "213", "png", false)
	require.NoError(t, err)
	assert.Equal(t, exp, fromKey)

	root, err := objectPath("20240101", "", "", "png", false)
	require.NoError(t, err)
	assert.Equal(t, s3.HashString(".png")+"/20240101/.png", root)
}

func TestObjectPathZXY(t *testing.T) {
	path, err := objectPath("20171212", "", "", "zip", true)
	require.NoError(t, err)
	assert.Equal(t, s3.HashString("0/0/0.zip")+"/20171212/0/0/0.zip", path)

	path, err = objectPath("20171212", "10/941/1011", "", "zip", true)
	require.NoError(t, err)
	assert.Equal(t, "00018/20171212/10/941/1011.zip", path)
}

func TestObjectPathErrors(t *testing.T) {
	_, err := objectPath("p", "3/8/0", "", "png", false)
	assert.ErrorIs(t, err, quadkey.ErrInvalidCoordinate)

	_, err = objectPath("p", "3/x/0", "", "png", false)
	assert.Error(t, err)

	_, err = objectPath("p", "", "0124", "png", false)
	assert.ErrorIs(t, err, quadkey.ErrMalformedQuadKey)
}

package quadkey

import (
	"fmt"
	"strconv"
	"strings"
)

// convertBase rewrites the numeral digits from base `from` into base `to`.
// The value must fit in 64 bits, which a MaxZoom key does exactly.
func convertBase(digits string, from, to int) (string, error) {
	v, err := strconv.ParseUint(digits, from, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformedQuadKey, err)
	}
	return strconv.FormatUint(v, to), nil
}

// zfill left pads s with '0' up to width. Longer strings are returned as is.
func zfill(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

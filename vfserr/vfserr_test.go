package vfserr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestLookupCodeFindsWrappedSentinel(t *testing.T) {
	wrapped := Wrap(NotFound, "open", "/missing")
	code, ok := LookupCode(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeNotFound, code)
}

func TestLookupCodeUnrecognizedError(t *testing.T) {
	_, ok := LookupCode(errors.New("boom"))
	assert.False(t, ok)
}

func TestLookupCodeNil(t *testing.T) {
	_, ok := LookupCode(nil)
	assert.False(t, ok)
}

func TestWrapNilPassesThrough(t *testing.T) {
	assert.NoError(t, Wrap(nil, "op", "path"))
}

func TestSentinelsHaveDistinctCodes(t *testing.T) {
	seen := map[Code]string{}
	for name, s := range map[string]error{
		"NotFound": NotFound, "NotDir": NotDir, "IsDir": IsDir, "Exists": Exists,
		"Invalid": Invalid, "NotCapable": NotCapable, "CrossDevice": CrossDevice,
		"Loop": Loop, "BufTooSmall": BufTooSmall, "Unsupported": Unsupported,
	} {
		code, ok := LookupCode(s)
		assert.True(t, ok, name)
		if prev, exists := seen[code]; exists {
			t.Fatalf("%s and %s share code %d", name, prev, code)
		}
		seen[code] = name
	}
}

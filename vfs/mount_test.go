package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMountRejectsDuplicatePrefix(t *testing.T) {
	var mt MountTable
	require.NoError(t, mt.AddMount("/", 1, false))
	err := mt.AddMount("/", 2, false)
	assert.Error(t, err)
}

func TestAddMountNormalizesTrailingSlash(t *testing.T) {
	var mt MountTable
	require.NoError(t, mt.AddMount("/mnt/data/", 1, false))
	assert.Equal(t, "/mnt/data", mt.Mounts()[0].Prefix)
}

func TestResolveMountLongestPrefix(t *testing.T) {
	var mt MountTable
	require.NoError(t, mt.AddMount("/", 1, false))
	require.NoError(t, mt.AddMount("/mnt/data", 2, false))

	m, remainder, ok := mt.ResolveMount("/mnt/data/file.txt")
	require.True(t, ok)
	assert.Equal(t, "/mnt/data", m.Prefix)
	assert.Equal(t, "/file.txt", remainder)
}

func TestResolveMountRespectsComponentBoundary(t *testing.T) {
	var mt MountTable
	require.NoError(t, mt.AddMount("/mnt", 1, false))

	_, _, ok := mt.ResolveMount("/mntx/file.txt")
	assert.False(t, ok, "\"/mnt\" must not match \"/mntx\" as a prefix")
}

func TestResolveMountNoMatch(t *testing.T) {
	var mt MountTable
	require.NoError(t, mt.AddMount("/mnt", 1, false))

	_, _, ok := mt.ResolveMount("/other")
	assert.False(t, ok)
}

func TestResolveMountExactPrefixGivesRootRemainder(t *testing.T) {
	var mt MountTable
	require.NoError(t, mt.AddMount("/mnt", 1, false))

	_, remainder, ok := mt.ResolveMount("/mnt")
	require.True(t, ok)
	assert.Equal(t, "/", remainder)
}

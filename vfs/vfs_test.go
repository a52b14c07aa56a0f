package vfs

import (
	"testing"

	"github.com/kateinoigakukun/wasi-vfs-go/vfserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ ns uint64 }

func (c testClock) Now(clockID uint32) (uint64, error) { return c.ns, nil }

func TestVFSMountAndOpenAt(t *testing.T) {
	v := New(3, testClock{})
	root, err := v.Mount("/", false)
	require.NoError(t, err)

	link, err := v.Graph.NewFile(root, "f.txt", []byte("data"))
	require.NoError(t, err)

	fd := v.OpenAt(Mount{Prefix: "/", Root: root}, link, RightsAll, RightsAll, 0)
	desc := v.FDs.Get(fd)
	require.NotNil(t, desc)
	assert.True(t, desc.IsVFS())
	assert.Equal(t, v.Graph.L(link).Node, desc.Open.Node)
}

func TestVFSCloseUnpinsNode(t *testing.T) {
	v := New(0, testClock{})
	root, err := v.Mount("/", false)
	require.NoError(t, err)
	link, err := v.Graph.NewFile(root, "f.txt", []byte("data"))
	require.NoError(t, err)
	node := v.Graph.L(link).Node

	fd := v.OpenAt(v.mountOf(root), link, RightsAll, RightsAll, 0)
	require.NoError(t, v.Unlink(root, "f.txt"))
	assert.Equal(t, []byte("data"), v.Graph.N(node).Bytes, "still open, bytes survive unlink")

	require.NoError(t, v.Close(fd))
	assert.Equal(t, Node{}, *v.Graph.N(node), "node frees once the fd closes after unlink")
}

func TestVFSUnlinkRejectsDirectory(t *testing.T) {
	v := New(0, testClock{})
	root, err := v.Mount("/", false)
	require.NoError(t, err)
	_, err = v.Graph.NewDir(root, "d")
	require.NoError(t, err)

	err = v.Unlink(root, "d")
	assert.ErrorIs(t, err, vfserr.IsDir)
}

func TestVFSRmdirRejectsNonEmpty(t *testing.T) {
	v := New(0, testClock{})
	root, err := v.Mount("/", false)
	require.NoError(t, err)
	dir, err := v.Graph.NewDir(root, "d")
	require.NoError(t, err)
	_, err = v.Graph.NewFile(dir, "f", nil)
	require.NoError(t, err)

	err = v.Rmdir(root, "d")
	assert.ErrorIs(t, err, vfserr.Invalid)
}

func TestVFSRenameMovesEntry(t *testing.T) {
	v := New(0, testClock{})
	root, err := v.Mount("/", false)
	require.NoError(t, err)
	dir, err := v.Graph.NewDir(root, "d")
	require.NoError(t, err)
	_, err = v.Graph.NewFile(root, "old.txt", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, v.Rename(root, "old.txt", dir, "new.txt"))

	_, ok := v.Graph.LookupDirent(root, "old.txt")
	assert.False(t, ok)
	lid, ok := v.Graph.LookupDirent(dir, "new.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("x"), v.Graph.N(v.Graph.L(lid).Node).Bytes)
}

func TestVFSLinkCreatesHardLink(t *testing.T) {
	v := New(0, testClock{})
	root, err := v.Mount("/", false)
	require.NoError(t, err)
	src, err := v.Graph.NewFile(root, "src.txt", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, v.Link(src, root, "dst.txt"))

	lid, ok := v.Graph.LookupDirent(root, "dst.txt")
	require.True(t, ok)
	assert.Equal(t, v.Graph.L(src).Node, v.Graph.L(lid).Node)
}

func TestVFSResolvePathAbsolute(t *testing.T) {
	v := New(0, testClock{})
	root, err := v.Mount("/", false)
	require.NoError(t, err)
	_, err = v.Graph.NewFile(root, "f.txt", []byte("x"))
	require.NoError(t, err)

	mnt, lid, err := v.ResolvePath(invalidLink, "/f.txt", true)
	require.NoError(t, err)
	assert.Equal(t, "/", mnt.Prefix)
	_, ok := v.Graph.LookupDirent(root, "f.txt")
	require.True(t, ok)
	assert.NotEqual(t, invalidLink, lid)
}

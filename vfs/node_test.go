package vfs

import (
	"testing"

	"github.com/kateinoigakukun/wasi-vfs-go/vfserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirRejectsReservedNames(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()

	for _, name := range []string{".", "..", "a/b", ""} {
		_, err := g.NewDir(root, name)
		assert.ErrorIs(t, err, vfserr.Invalid, "name %q should be rejected", name)
	}
}

func TestNewDirRejectsDuplicateName(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()

	_, err := g.NewDir(root, "a")
	require.NoError(t, err)

	_, err = g.NewDir(root, "a")
	assert.ErrorIs(t, err, vfserr.Exists)
}

func TestRemoveDirentFreesNodeWhenUnpinned(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()

	link, err := g.NewFile(root, "f", []byte("x"))
	require.NoError(t, err)
	node := g.L(link).Node

	_, err = g.RemoveDirent(root, "f")
	require.NoError(t, err)

	assert.Equal(t, Node{}, *g.N(node), "node should be zeroed once its last reference is gone")
}

func TestRemoveDirentKeepsNodeAlivePinned(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()

	link, err := g.NewFile(root, "f", []byte("x"))
	require.NoError(t, err)
	node := g.L(link).Node
	g.PinNode(node)

	_, err = g.RemoveDirent(root, "f")
	require.NoError(t, err)

	assert.Equal(t, []byte("x"), g.N(node).Bytes, "a still-open file's bytes must survive unlink")

	g.UnpinNode(node)
	assert.Equal(t, Node{}, *g.N(node), "node should be freed once the last pin drops after unlink")
}

func TestInsertDirentHardLinkDistinctParents(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()

	dirA, err := g.NewDir(root, "a")
	require.NoError(t, err)
	dirB, err := g.NewDir(root, "b")
	require.NoError(t, err)

	fileLink, err := g.NewFile(dirA, "shared", []byte("data"))
	require.NoError(t, err)
	node := g.L(fileLink).Node

	link2, err := g.InsertDirent(dirB, "shared2", node)
	require.NoError(t, err)

	assert.Equal(t, dirB, g.L(link2).Parent, "the new link's parent must be dirB, not dirA")
	assert.Equal(t, node, g.L(link2).Node)
	assert.Equal(t, 2, g.N(node).refs)
}

func TestRemoveDirentNotFound(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()
	_, err := g.RemoveDirent(root, "missing")
	assert.ErrorIs(t, err, vfserr.NotFound)
}

package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotIsSortedByName(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()
	mustMkfile(t, g, root, "charlie.txt", "c")
	mustMkfile(t, g, root, "alpha.txt", "a")
	mustMkfile(t, g, root, "bravo.txt", "b")

	entries := g.Snapshot(g.L(root).Node)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"alpha.txt", "bravo.txt", "charlie.txt"},
		[]string{entries[0].Name, entries[1].Name, entries[2].Name})
}

func TestReadDirCachesSnapshotAcrossMutation(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()
	mustMkfile(t, g, root, "a.txt", "a")
	o := &OpenFile{Link: root, Node: g.L(root).Node}

	first := o.ReadDir(g)
	require.Len(t, first, 1)

	mustMkfile(t, g, root, "b.txt", "b")
	second := o.ReadDir(g)
	assert.Len(t, second, 1, "a paginated readdir must not see entries added mid-walk")
}

func TestReadDirEmptyDirectoryIsNotRebuiltEveryCall(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()
	dirLink, err := g.NewDir(root, "empty")
	require.NoError(t, err)
	o := &OpenFile{Link: dirLink, Node: g.L(dirLink).Node}

	entries := o.ReadDir(g)
	assert.Empty(t, entries)
	assert.True(t, o.dirSnapshotBuilt)

	mustMkfile(t, g, dirLink, "late.txt", "x")
	entries = o.ReadDir(g)
	assert.Empty(t, entries, "cached empty snapshot must stay empty across the handle's lifetime")
}

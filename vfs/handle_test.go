package vfs

import (
	"testing"

	"github.com/kateinoigakukun/wasi-vfs-go/vfserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenFile(t *testing.T, g *Graph, parent LinkID, name, data string) *OpenFile {
	t.Helper()
	link, err := g.NewFile(parent, name, []byte(data))
	require.NoError(t, err)
	return &OpenFile{Link: link, Node: g.L(link).Node, RightsBase: RightsAll}
}

func TestOpenFileReadWriteCursor(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()
	o := newOpenFile(t, g, root, "f", "hello world")

	buf := make([]byte, 5)
	n, err := o.Read(g, buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))
	assert.Equal(t, uint64(5), o.Cursor)

	n, err = o.Read(g, buf)
	require.NoError(t, err)
	assert.Equal(t, " worl", string(buf[:n]))
}

func TestOpenFileReadPastEOFReturnsZero(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()
	o := newOpenFile(t, g, root, "f", "hi")
	o.Cursor = 100

	buf := make([]byte, 4)
	n, err := o.Read(g, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpenFileWriteZeroPadsGap(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()
	o := newOpenFile(t, g, root, "f", "")
	o.Cursor = 4

	n, err := o.Write(g, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []byte{0, 0, 0, 0, 'x'}, g.N(o.Node).Bytes)
}

func TestOpenFileWriteAppendIgnoresCursor(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()
	o := newOpenFile(t, g, root, "f", "abc")
	o.Flags = FDFlagAppend
	o.Cursor = 0

	_, err := o.Write(g, []byte("d"))
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(g.N(o.Node).Bytes))
	assert.Equal(t, uint64(4), o.Cursor)
}

func TestOpenFileSeek(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()
	o := newOpenFile(t, g, root, "f", "0123456789")

	pos, err := o.Seek(g, 3, SeekSet)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), pos)

	pos, err = o.Seek(g, 2, SeekCur)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), pos)

	pos, err = o.Seek(g, 0, SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), pos)

	_, err = o.Seek(g, -100, SeekSet)
	assert.ErrorIs(t, err, vfserr.Invalid)
}

func TestOpenFileSetSizeTruncatesAndGrows(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()
	o := newOpenFile(t, g, root, "f", "0123456789")

	require.NoError(t, o.SetSize(g, 4))
	assert.Equal(t, "0123", string(g.N(o.Node).Bytes))

	require.NoError(t, o.SetSize(g, 6))
	assert.Equal(t, []byte{'0', '1', '2', '3', 0, 0}, g.N(o.Node).Bytes)
}

func TestOpenFileRequireRights(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()
	o := newOpenFile(t, g, root, "f", "")
	o.RightsBase = RightFDRead

	assert.NoError(t, o.RequireRights(RightFDRead))
	assert.ErrorIs(t, o.RequireRights(RightFDWrite), vfserr.NotCapable)
}

func TestOpenFileReadWriteOnDirectoryFails(t *testing.T) {
	g := NewGraph()
	root := g.NewPreopenDir()
	dirLink, err := g.NewDir(root, "d")
	require.NoError(t, err)
	o := &OpenFile{Link: dirLink, Node: g.L(dirLink).Node}

	_, err = o.Read(g, make([]byte, 1))
	assert.ErrorIs(t, err, vfserr.IsDir)
	_, err = o.Write(g, []byte("x"))
	assert.ErrorIs(t, err, vfserr.IsDir)
}

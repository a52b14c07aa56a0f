package vfs

import (
	"github.com/kateinoigakukun/wasi-vfs-go/vfserr"
)

// OpenFile is the open-file state for a VFS-backed file description: a
// cursor, the flags/rights negotiated at open time, and a directory-stream
// cookie used only when Node is a directory.
type OpenFile struct {
	Link  LinkID
	Node  NodeID
	Mount Mount

	Cursor uint64
	Flags  FDFlags

	RightsBase       Rights
	RightsInheriting Rights

	// DirCookie is the last cookie fd_readdir returned for this handle's
	// stream, or 0 before the first call.
	DirCookie uint64

	// dirSnapshot caches the directory listing across a paginated
	// fd_readdir walk; see ReadDir in dir.go. dirSnapshotBuilt
	// distinguishes "not yet built" from "built, directory was empty".
	dirSnapshot      []DirEntry
	dirSnapshotBuilt bool
}

// RequireRights fails NOTCAPABLE if want is not a subset of the handle's
// base rights.
func (o *OpenFile) RequireRights(want Rights) error {
	if !o.RightsBase.Has(want) {
		return vfserr.NotCapable
	}
	return nil
}

// Seek implements fd_seek's cursor arithmetic. whence is one of
// SeekSet/SeekCur/SeekEnd. A resulting negative offset fails INVAL;
// seeking past EOF is permitted (reads then return 0 bytes, writes
// zero-extend).
func (o *OpenFile) Seek(g *Graph, offset int64, whence int) (uint64, error) {
	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = int64(o.Cursor)
	case SeekEnd:
		base = int64(len(g.N(o.Node).Bytes))
	default:
		return 0, vfserr.Invalid
	}
	result := base + offset
	if result < 0 {
		return 0, vfserr.Invalid
	}
	o.Cursor = uint64(result)
	return o.Cursor, nil
}

// Whence values for Seek, matching the host ABI's whence enum order.
const (
	SeekSet = iota
	SeekCur
	SeekEnd
)

// Read copies up to len(buf) bytes starting at the cursor, advancing it.
// Reading at or past EOF returns 0 bytes, not an error.
func (o *OpenFile) Read(g *Graph, buf []byte) (int, error) {
	n := g.N(o.Node)
	if n.Kind == KindDir {
		return 0, vfserr.IsDir
	}
	if o.Cursor >= uint64(len(n.Bytes)) {
		return 0, nil
	}
	nRead := copy(buf, n.Bytes[o.Cursor:])
	o.Cursor += uint64(nRead)
	return nRead, nil
}

// Pread is Read without advancing the persistent cursor (fd_pread).
func (o *OpenFile) Pread(g *Graph, buf []byte, offset uint64) (int, error) {
	n := g.N(o.Node)
	if n.Kind == KindDir {
		return 0, vfserr.IsDir
	}
	if offset >= uint64(len(n.Bytes)) {
		return 0, nil
	}
	return copy(buf, n.Bytes[offset:]), nil
}

// Write copies data into the file starting at the cursor, zero-padding any
// gap if the cursor is past the current end, and advances the cursor.
// FDFlagAppend forces the write to the current end regardless of cursor.
func (o *OpenFile) Write(g *Graph, data []byte) (int, error) {
	n := g.N(o.Node)
	if n.Kind == KindDir {
		return 0, vfserr.IsDir
	}
	at := o.Cursor
	if o.Flags&FDFlagAppend != 0 {
		at = uint64(len(n.Bytes))
	}
	nWritten := writeAt(n, at, data)
	o.Cursor = at + uint64(nWritten)
	n.Mtim = timeNow()
	return nWritten, nil
}

// Pwrite is Write at an explicit offset without touching the persistent
// cursor (fd_pwrite).
func (o *OpenFile) Pwrite(g *Graph, data []byte, offset uint64) (int, error) {
	n := g.N(o.Node)
	if n.Kind == KindDir {
		return 0, vfserr.IsDir
	}
	nWritten := writeAt(n, offset, data)
	n.Mtim = timeNow()
	return nWritten, nil
}

func writeAt(n *Node, at uint64, data []byte) int {
	end := at + uint64(len(data))
	if end > uint64(len(n.Bytes)) {
		grown := make([]byte, end)
		copy(grown, n.Bytes)
		n.Bytes = grown
	}
	copy(n.Bytes[at:end], data)
	return len(data)
}

// Allocate ensures the file is at least offset+length bytes, zero-extending
// if needed; a no-op if already large enough (fd_allocate).
func (o *OpenFile) Allocate(g *Graph, offset, length uint64) error {
	n := g.N(o.Node)
	if n.Kind == KindDir {
		return vfserr.IsDir
	}
	need := offset + length
	if need > uint64(len(n.Bytes)) {
		grown := make([]byte, need)
		copy(grown, n.Bytes)
		n.Bytes = grown
	}
	return nil
}

// SetSize truncates or zero-extends the file to exactly size bytes
// (fd_filestat_set_size / path equivalent).
func (o *OpenFile) SetSize(g *Graph, size uint64) error {
	n := g.N(o.Node)
	if n.Kind == KindDir {
		return vfserr.IsDir
	}
	if size <= uint64(len(n.Bytes)) {
		n.Bytes = n.Bytes[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, n.Bytes)
		n.Bytes = grown
	}
	n.Mtim = timeNow()
	return nil
}

package vfs

import (
	"encoding/binary"
	"time"
)

// Filetype mirrors the host ABI's filetype enum values relevant to this
// VFS (regular file, directory, symbolic link); wasip1 translates to the
// full host enum (which also names types the VFS never produces, like
// sockets or character devices).
type Filetype uint8

const (
	FiletypeUnknown Filetype = iota
	FiletypeDirectory
	FiletypeRegularFile
	FiletypeSymbolicLink
)

// Filestat is the subset of a host-ABI filestat this VFS can populate.
type Filestat struct {
	Inode uint64
	Type  Filetype
	Size  uint64
	Atim  time.Time
	Mtim  time.Time
	Ctim  time.Time
	Nlink uint64
}

// Inode derives a generation-scoped inode number for id: the low 32 bits
// are the NodeID, the high 32 bits come from the current image
// generation's UUID, so two files from different wasi_vfs_pack_fs
// generations never collide even if the underlying NodeID slot was reused.
func (g *Graph) Inode(id NodeID) uint64 {
	gen := g.generation
	high := binary.BigEndian.Uint32(gen[:4])
	return uint64(high)<<32 | uint64(id)
}

// Stat builds a Filestat for node. nlink is supplied by the caller, which
// counts directory entries pointing at the node (the graph itself tracks
// no live link count beyond Node.refs; open-descriptor pins are counted
// separately in Node.pins).
func (g *Graph) Stat(node NodeID, nlink uint64) Filestat {
	n := g.N(node)
	ft := FiletypeRegularFile
	switch {
	case n.Kind == KindDir:
		ft = FiletypeDirectory
	case n.IsSymlink:
		ft = FiletypeSymbolicLink
	}
	return Filestat{
		Inode: g.Inode(node),
		Type:  ft,
		Size:  uint64(len(n.Bytes)),
		Atim:  n.Atim,
		Mtim:  n.Mtim,
		Ctim:  n.Ctim,
		Nlink: nlink,
	}
}

// LinkCount counts the directory entries across the whole graph that
// reference node. It is O(total entries); acceptable for an in-memory VFS
// of this scale — not a general-purpose filesystem.
func (g *Graph) LinkCount(node NodeID) uint64 {
	var n uint64
	for i := 1; i < len(g.links); i++ {
		if g.links[i].Node == node && !g.isFreeLink(LinkID(i)) {
			n++
		}
	}
	return n
}

func (g *Graph) isFreeLink(id LinkID) bool {
	for _, f := range g.freeLinks {
		if f == id {
			return true
		}
	}
	return false
}

// SetTimeFlags select which of atim/mtim to update and whether to use the
// supplied value or "now" (fd_filestat_set_times / path_filestat_set_times).
type SetTimeFlags uint16

const (
	SetATim SetTimeFlags = 1 << iota
	SetATimNow
	SetMTim
	SetMTimNow
)

// SetTimes applies flags to node's atim/mtim.
func (g *Graph) SetTimes(node NodeID, atim, mtim time.Time, flags SetTimeFlags) {
	n := g.N(node)
	now := timeNow()
	switch {
	case flags&SetATimNow != 0:
		n.Atim = now
	case flags&SetATim != 0:
		n.Atim = atim
	}
	switch {
	case flags&SetMTimNow != 0:
		n.Mtim = now
	case flags&SetMTim != 0:
		n.Mtim = mtim
	}
}

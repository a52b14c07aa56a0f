package wasip1

import (
	"encoding/binary"

	"github.com/kateinoigakukun/wasi-vfs-go/vfs"
)

// Fd is a guest-facing descriptor number.
type Fd uint32

// Oflags are path_open's open flags (host ABI oflags_u16).
type Oflags uint16

const (
	OflagsCreat Oflags = 1 << iota
	OflagsDirectory
	OflagsExcl
	OflagsTrunc
)

// Fdflags mirrors vfs.FDFlags at the ABI boundary; the bit layout is
// identical so no translation table is needed, only a type conversion.
type Fdflags = vfs.FDFlags

const (
	FdflagAppend   = vfs.FDFlagAppend
	FdflagDsync    = vfs.FDFlagDsync
	FdflagNonblock = vfs.FDFlagNonblock
	FdflagRsync    = vfs.FDFlagRsync
	FdflagSync     = vfs.FDFlagSync
)

// Rights mirrors vfs.Rights at the ABI boundary for the same reason.
type Rights = vfs.Rights

// Lookupflags controls whether path_* calls follow a final symlink.
type Lookupflags uint32

const (
	LookupSymlinkFollow Lookupflags = 1 << iota
)

// Filetype is the host ABI's filetype enum; all eight values are named.
// The VFS graph only produces unknown/directory/regular_file/symbolic_link;
// the others (block/character device, socket) come only from
// HostPassthrough descriptors.
type Filetype uint8

const (
	FiletypeUnknown Filetype = iota
	FiletypeBlockDevice
	FiletypeCharacterDevice
	FiletypeDirectory
	FiletypeRegularFile
	FiletypeSocketDgram
	FiletypeSocketStream
	FiletypeSymbolicLink
)

func filetypeOf(t vfs.Filetype) Filetype {
	switch t {
	case vfs.FiletypeDirectory:
		return FiletypeDirectory
	case vfs.FiletypeRegularFile:
		return FiletypeRegularFile
	case vfs.FiletypeSymbolicLink:
		return FiletypeSymbolicLink
	default:
		return FiletypeUnknown
	}
}

// Fdstat is fd_fdstat_get's result record: filetype, fdflags and the two
// rights masks, 24 bytes little-endian (host ABI layout).
type Fdstat struct {
	FsFiletype         Filetype
	FsFlags            Fdflags
	FsRightsBase       Rights
	FsRightsInheriting Rights
}

// Marshal writes s in the host ABI's 24-byte little-endian fdstat layout.
func (s *Fdstat) Marshal() (b [24]byte) {
	b[0] = byte(s.FsFiletype)
	binary.LittleEndian.PutUint16(b[2:], uint16(s.FsFlags))
	binary.LittleEndian.PutUint64(b[8:], uint64(s.FsRightsBase))
	binary.LittleEndian.PutUint64(b[16:], uint64(s.FsRightsInheriting))
	return b
}

// Filestat is filestat_get's result record, 64 bytes little-endian.
type Filestat struct {
	Dev      uint64
	Ino      uint64
	Filetype Filetype
	Nlink    uint64
	Size     uint64
	Atim     uint64 // nanoseconds
	Mtim     uint64
	Ctim     uint64
}

// Marshal writes s in the host ABI's 64-byte little-endian filestat layout.
func (s *Filestat) Marshal() (b [64]byte) {
	binary.LittleEndian.PutUint64(b[0:], s.Dev)
	binary.LittleEndian.PutUint64(b[8:], s.Ino)
	b[16] = byte(s.Filetype)
	binary.LittleEndian.PutUint64(b[24:], s.Nlink)
	binary.LittleEndian.PutUint64(b[32:], s.Size)
	binary.LittleEndian.PutUint64(b[40:], s.Atim)
	binary.LittleEndian.PutUint64(b[48:], s.Mtim)
	binary.LittleEndian.PutUint64(b[56:], s.Ctim)
	return b
}

func filestatFromVFS(fs vfs.Filestat) Filestat {
	return Filestat{
		Ino:      fs.Inode,
		Filetype: filetypeOf(fs.Type),
		Nlink:    fs.Nlink,
		Size:     fs.Size,
		Atim:     uint64(fs.Atim.UnixNano()),
		Mtim:     uint64(fs.Mtim.UnixNano()),
		Ctim:     uint64(fs.Ctim.UnixNano()),
	}
}

// Prestat is prestat_get's result: a dir prestat naming the preopen's name
// length, so the guest can size its prestat_dir_name buffer.
type Prestat struct {
	PrNameLen uint32
}

// Dirent is one fd_readdir record: a fixed 24-byte header (next cookie,
// inode, name length, filetype) immediately followed by the name bytes,
// matching the host ABI's dirent layout (grounded on the retrieved wazero
// wasi_snapshot_preview1 Dirent.Marshal).
type Dirent struct {
	Next    uint64
	Ino     uint64
	Namelen uint32
	Type    Filetype
}

// Size returns the total byte length of d once its name is appended.
func (d *Dirent) Size() uint32 { return 24 + d.Namelen }

// Marshal writes d's fixed header in the host ABI's 24-byte little-endian
// layout; the name bytes are appended by the caller separately so a
// truncated copy (buffer too small) can still copy a valid header prefix.
func (d *Dirent) Marshal() (b [24]byte) {
	binary.LittleEndian.PutUint64(b[0:], d.Next)
	binary.LittleEndian.PutUint64(b[8:], d.Ino)
	binary.LittleEndian.PutUint32(b[16:], d.Namelen)
	b[20] = byte(d.Type)
	return b
}

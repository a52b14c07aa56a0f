// Package pack implements the packed-image codec and the startup/image
// loader: decoding the octet-level directory/file/symlink records a
// build-time packer produced, and materializing them into a vfs.Graph
// with matching mounts registered in a vfs.MountTable.
//
// The build-time packer that scans a host directory and produces an image
// is out of scope here; this package only ever consumes an image, plus
// offers a minimal re-encoder so tests and cmd/wasivfsctl can round-trip
// one without a second implementation's help.
package pack

import (
	"encoding/binary"

	"github.com/kateinoigakukun/wasi-vfs-go/vfserr"
)

// Kind tags an on-disk record; values are not part of the host ABI,
// only this image format, so any stable assignment works as long as the
// encoder and decoder agree.
type Kind uint8

const (
	KindDir Kind = iota
	KindFile
	KindSymlink
)

// zstdMagic is the four-byte frame magic klauspost/compress/zstd writes at
// the start of a compressed stream; Decode sniffs it ahead of the 4-byte
// image length to opportunistically decompress. The uncompressed octet
// format is always accepted unchanged.
var zstdMagic = [4]byte{0x28, 0xb5, 0x2f, 0xfd}

// Node is the decoded, in-memory form of one packed directory/file/
// symlink record, prior to being materialized into a vfs.Graph.
type Node struct {
	Name    string
	Kind    Kind
	Bytes   []byte // file contents, or symlink target
	Entries []Node // children, when Kind == KindDir
}

// MountImage is one decoded top-level mount entry.
type MountImage struct {
	Prefix string
	Root   Node
}

// Image is the fully decoded packed-image contents.
type Image struct {
	Mounts []MountImage
}

// Decode parses data as a 4-byte image length, then a sequence of
// {prefix_len, prefix, DIR record} mount entries, all integers
// little-endian. If data begins with the zstd frame magic it is
// transparently decompressed first.
func Decode(data []byte) (*Image, error) {
	data, err := maybeDecompress(data)
	if err != nil {
		return nil, err
	}
	r := &reader{buf: data}
	imageLen, err := r.u32()
	if err != nil {
		return nil, err
	}
	if uint64(imageLen) > uint64(len(r.buf)-r.off) {
		return nil, vfserr.Invalid
	}
	end := r.off + int(imageLen)
	img := &Image{}
	for r.off < end {
		prefixLen, err := r.u32()
		if err != nil {
			return nil, err
		}
		prefix, err := r.bytes(int(prefixLen))
		if err != nil {
			return nil, err
		}
		root, err := r.readDirRecord()
		if err != nil {
			return nil, err
		}
		img.Mounts = append(img.Mounts, MountImage{Prefix: string(prefix), Root: root})
	}
	return img, nil
}

func (r *reader) readDirRecord() (Node, error) {
	kind, err := r.u8()
	if err != nil {
		return Node{}, err
	}
	if Kind(kind) != KindDir {
		return Node{}, vfserr.Invalid
	}
	nameLen, err := r.u32()
	if err != nil {
		return Node{}, err
	}
	name, err := r.bytes(int(nameLen))
	if err != nil {
		return Node{}, err
	}
	count, err := r.u32()
	if err != nil {
		return Node{}, err
	}
	n := Node{Name: string(name), Kind: KindDir}
	for i := uint32(0); i < count; i++ {
		child, err := r.readRecord()
		if err != nil {
			return Node{}, err
		}
		n.Entries = append(n.Entries, child)
	}
	return n, nil
}

func (r *reader) readRecord() (Node, error) {
	if r.off >= len(r.buf) {
		return Node{}, vfserr.Invalid
	}
	switch Kind(r.buf[r.off]) {
	case KindDir:
		return r.readDirRecord()
	case KindFile:
		return r.readFileRecord()
	case KindSymlink:
		return r.readSymlinkRecord()
	default:
		return Node{}, vfserr.Invalid
	}
}

func (r *reader) readFileRecord() (Node, error) {
	r.off++ // kind byte already checked by caller's switch
	nameLen, err := r.u32()
	if err != nil {
		return Node{}, err
	}
	name, err := r.bytes(int(nameLen))
	if err != nil {
		return Node{}, err
	}
	size, err := r.u64()
	if err != nil {
		return Node{}, err
	}
	data, err := r.bytes(int(size))
	if err != nil {
		return Node{}, err
	}
	return Node{Name: string(name), Kind: KindFile, Bytes: data}, nil
}

func (r *reader) readSymlinkRecord() (Node, error) {
	r.off++
	nameLen, err := r.u32()
	if err != nil {
		return Node{}, err
	}
	name, err := r.bytes(int(nameLen))
	if err != nil {
		return Node{}, err
	}
	targetLen, err := r.u32()
	if err != nil {
		return Node{}, err
	}
	target, err := r.bytes(int(targetLen))
	if err != nil {
		return Node{}, err
	}
	return Node{Name: string(name), Kind: KindSymlink, Bytes: target}, nil
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) u8() (uint8, error) {
	if r.off >= len(r.buf) {
		return 0, vfserr.Invalid
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, vfserr.Invalid
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, vfserr.Invalid
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, vfserr.Invalid
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v, nil
}

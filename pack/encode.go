package pack

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/zstd"
)

// Encode serializes img back to the octet format Decode reads. It exists so
// tests and wasivfsctl pack can round-trip an Image without depending on a
// second, independent encoder implementation (the on-wire packer proper is
// out of scope here, but wasivfsctl pack still needs to produce images for
// local experimentation).
func Encode(img *Image) []byte {
	var body bytes.Buffer
	for _, m := range img.Mounts {
		writeU32(&body, uint32(len(m.Prefix)))
		body.WriteString(m.Prefix)
		writeDirRecord(&body, m.Root)
	}
	var out bytes.Buffer
	writeU32(&out, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func writeDirRecord(w *bytes.Buffer, n Node) {
	w.WriteByte(byte(KindDir))
	writeU32(w, uint32(len(n.Name)))
	w.WriteString(n.Name)
	writeU32(w, uint32(len(n.Entries)))
	for _, e := range n.Entries {
		writeRecord(w, e)
	}
}

func writeRecord(w *bytes.Buffer, n Node) {
	switch n.Kind {
	case KindDir:
		writeDirRecord(w, n)
	case KindFile:
		w.WriteByte(byte(KindFile))
		writeU32(w, uint32(len(n.Name)))
		w.WriteString(n.Name)
		writeU64(w, uint64(len(n.Bytes)))
		w.Write(n.Bytes)
	case KindSymlink:
		w.WriteByte(byte(KindSymlink))
		writeU32(w, uint32(len(n.Name)))
		w.WriteString(n.Name)
		writeU32(w, uint32(len(n.Bytes)))
		w.Write(n.Bytes)
	}
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeU64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

// Compress wraps an already-encoded image in a zstd frame, for embedders
// that prefer to ship a compressed image and decompress it at startup.
// Decode recognizes the resulting frame automatically.
func Compress(image []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(image, nil), nil
}

func maybeDecompress(data []byte) ([]byte, error) {
	if len(data) < 4 || [4]byte{data[0], data[1], data[2], data[3]} != zstdMagic {
		return data, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

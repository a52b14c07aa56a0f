package wasip1

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFdstatMarshalLayout(t *testing.T) {
	s := Fdstat{FsFiletype: FiletypeRegularFile, FsFlags: FdflagAppend, FsRightsBase: 7, FsRightsInheriting: 9}
	b := s.Marshal()
	assert.Equal(t, byte(FiletypeRegularFile), b[0])
	assert.Equal(t, uint16(FdflagAppend), binary.LittleEndian.Uint16(b[2:]))
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(b[8:]))
	assert.Equal(t, uint64(9), binary.LittleEndian.Uint64(b[16:]))
}

func TestFilestatMarshalLayout(t *testing.T) {
	s := Filestat{Dev: 1, Ino: 2, Filetype: FiletypeDirectory, Nlink: 3, Size: 4, Atim: 5, Mtim: 6, Ctim: 7}
	b := s.Marshal()
	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(b[0:]))
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(b[8:]))
	assert.Equal(t, byte(FiletypeDirectory), b[16])
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(b[24:]))
	assert.Equal(t, uint64(4), binary.LittleEndian.Uint64(b[32:]))
	assert.Equal(t, uint64(5), binary.LittleEndian.Uint64(b[40:]))
	assert.Equal(t, uint64(6), binary.LittleEndian.Uint64(b[48:]))
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(b[56:]))
}

func TestDirentMarshalLayoutAndSize(t *testing.T) {
	d := Dirent{Next: 1, Ino: 2, Namelen: 5, Type: FiletypeRegularFile}
	assert.Equal(t, uint32(29), d.Size())
	b := d.Marshal()
	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(b[0:]))
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(b[8:]))
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(b[16:]))
	assert.Equal(t, byte(FiletypeRegularFile), b[20])
}

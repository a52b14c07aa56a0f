package vfs

import (
	"testing"

	"github.com/kateinoigakukun/wasi-vfs-go/vfserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFDTableAllocateRespectsReservedBand(t *testing.T) {
	tbl := NewFDTable(3)
	desc := &Description{Open: &OpenFile{}}

	fd := tbl.Allocate(desc)
	assert.Equal(t, FD(3), fd, "Allocate must not hand out a number below ReservedBand")
}

func TestFDTableAllocateReusesFreedLowSlotsAfterPopulateComplete(t *testing.T) {
	tbl := NewFDTable(3)
	tbl.Set(0, &Description{Host: &HostPassthrough{HostFD: 0}})
	tbl.PopulateComplete()

	desc := &Description{Open: &OpenFile{}}
	fd := tbl.Allocate(desc)
	assert.Equal(t, FD(1), fd, "slot 0 is occupied, slot 1 is free and now eligible")
}

func TestFDTableCloseAndReallocate(t *testing.T) {
	tbl := NewFDTable(0)
	fd := tbl.Allocate(&Description{Open: &OpenFile{}})

	d, err := tbl.Close(fd)
	require.NoError(t, err)
	require.NotNil(t, d)

	_, err = tbl.Close(fd)
	assert.ErrorIs(t, err, vfserr.NotFound, "double close must fail")

	fd2 := tbl.Allocate(&Description{Open: &OpenFile{}})
	assert.Equal(t, fd, fd2, "freed slot should be recycled")
}

func TestFDTableRenumber(t *testing.T) {
	tbl := NewFDTable(0)
	original := &Description{Open: &OpenFile{Cursor: 42}}
	from := tbl.Allocate(original)
	to := tbl.Allocate(&Description{Open: &OpenFile{}})

	require.NoError(t, tbl.Renumber(from, to))

	assert.Nil(t, tbl.Get(from))
	assert.Same(t, original, tbl.Get(to))
}

func TestFDTableRenumberMissingSource(t *testing.T) {
	tbl := NewFDTable(0)
	err := tbl.Renumber(99, 1)
	assert.ErrorIs(t, err, vfserr.NotFound)
}

func TestFDTableCloseAllVFSLeavesPassthroughOpen(t *testing.T) {
	tbl := NewFDTable(0)
	vfsFD := tbl.Allocate(&Description{Open: &OpenFile{}})
	hostFD := tbl.Allocate(&Description{Host: &HostPassthrough{HostFD: 7}})

	tbl.CloseAllVFS()

	assert.Nil(t, tbl.Get(vfsFD), "VFS-backed descriptor must be closed")
	require.NotNil(t, tbl.Get(hostFD), "passthrough descriptor must survive")
	assert.Equal(t, uint64(7), tbl.Get(hostFD).Host.HostFD)

	// the freed slot is reusable afterwards
	reused := tbl.Allocate(&Description{Open: &OpenFile{}})
	assert.Equal(t, vfsFD, reused)
}

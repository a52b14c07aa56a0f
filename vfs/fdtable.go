package vfs

import (
	"github.com/kateinoigakukun/wasi-vfs-go/vfserr"
)

// FD is a host-facing file descriptor number.
type FD uint32

// Description is a tagged file-description entry: either a VFS-backed
// open file or a passthrough to a real host-ABI descriptor.
type Description struct {
	// Open is non-nil for a VfsOpen entry.
	Open *OpenFile
	// Host is non-nil for a HostPassthrough entry.
	Host *HostPassthrough
}

// IsVFS reports whether this description is backed by the VFS graph rather
// than forwarded to the host ABI.
func (d *Description) IsVFS() bool { return d.Open != nil }

// HostPassthrough carries a real host-ABI descriptor and, for preopens,
// the prefix it was registered under.
type HostPassthrough struct {
	HostFD        uint64
	IsPreopenDir  bool
	PreopenPrefix string
}

// FDTable is the dense, integer-indexed descriptor table shared by every
// interposed call. Descriptor numbers are recycled on close, and numbers
// below ReservedBand are withheld from allocation until the host-ABI
// preopen-populator phase has run.
type FDTable struct {
	entries []*Description // nil slot = free
	free    []FD

	// ReservedBand is the exclusive upper bound of the descriptor range
	// reserved for host-ABI preopens. Allocate never returns a number below
	// it until PopulateComplete is called.
	ReservedBand     FD
	populateComplete bool
}

// NewFDTable returns a table reserving [0, reservedBand) for the host-ABI
// preopen population phase.
func NewFDTable(reservedBand FD) *FDTable {
	return &FDTable{
		entries:      make([]*Description, reservedBand),
		ReservedBand: reservedBand,
	}
}

// PopulateComplete marks the host-ABI preopen population phase finished;
// Allocate may now hand out numbers below ReservedBand if they are free.
func (t *FDTable) PopulateComplete() { t.populateComplete = true }

// Set installs desc at an explicit fd number, growing the table if needed.
// Used to install host-ABI preopens and this VFS's own preopens at their
// assigned numbers during startup.
func (t *FDTable) Set(fd FD, desc *Description) {
	for FD(len(t.entries)) <= fd {
		t.entries = append(t.entries, nil)
	}
	t.entries[fd] = desc
}

// Allocate installs desc at the smallest free descriptor number not in the
// reserved band (or, once PopulateComplete has run, the smallest free
// number at all).
func (t *FDTable) Allocate(desc *Description) FD {
	start := FD(0)
	if !t.populateComplete {
		start = t.ReservedBand
	}
	for fd := start; fd < FD(len(t.entries)); fd++ {
		if fd < t.ReservedBand && !t.populateComplete {
			continue
		}
		if t.entries[fd] == nil {
			t.entries[fd] = desc
			for i, f := range t.free {
				if f == fd {
					t.free = append(t.free[:i], t.free[i+1:]...)
					break
				}
			}
			return fd
		}
	}
	fd := FD(len(t.entries))
	t.entries = append(t.entries, desc)
	return fd
}

// Get returns the description at fd, or nil if fd is unused.
func (t *FDTable) Get(fd FD) *Description {
	if int(fd) >= len(t.entries) {
		return nil
	}
	return t.entries[fd]
}

// Close frees fd, pushing it onto the free list. Returns NOTFOUND-shaped
// error (BADF at the wasip1 boundary) if fd was not open.
func (t *FDTable) Close(fd FD) (*Description, error) {
	d := t.Get(fd)
	if d == nil {
		return nil, vfserr.NotFound
	}
	t.entries[fd] = nil
	t.free = append(t.free, fd)
	return d, nil
}

// CloseAllVFS closes every VFS-backed (non-passthrough) descriptor, for a
// full graph replacement (pack.Loader.Repack) where the old graph's NodeID/
// LinkID handles are about to become meaningless: holding those fds open
// across the swap would let a guest read through a stale or reused index
// into the new graph instead of failing closed.
func (t *FDTable) CloseAllVFS() {
	for fd, d := range t.entries {
		if d != nil && d.IsVFS() {
			t.entries[fd] = nil
			t.free = append(t.free, FD(fd))
		}
	}
}

// Renumber atomically closes `to` (if present) and moves the entry from
// `from` to `to` (fd_renumber).
func (t *FDTable) Renumber(from, to FD) error {
	src := t.Get(from)
	if src == nil {
		return vfserr.NotFound
	}
	t.Set(to, src)
	t.entries[from] = nil
	t.free = append(t.free, from)
	return nil
}

package vfs

import (
	"sync"

	"github.com/kateinoigakukun/wasi-vfs-go/vfserr"
	"github.com/sirupsen/logrus"
)

// VFS is the top-level kernel object: the inode graph, the mount table and
// the file description table, wired together the way rclone's top-level
// VFS struct hangs Dir/File/Handle state off of one object per remote.
//
// A VFS is single-threaded by design. The mutex here serializes only the
// VFS methods that take it (Mount, OpenAt, Close, Unlink, Rmdir, Rename,
// Link); direct calls on Graph, MountTable or FDTable take no lock, so
// callers that introduce threads must serialize on a single lock themselves.
type VFS struct {
	mu sync.Mutex

	Graph   *Graph
	Mounts  MountTable
	FDs     *FDTable
	Log     *logrus.Entry
	HostABI HostClock
}

// HostClock is a clock collaborator stored on the VFS as HostABI; the VFS
// itself has no notion of time-based waiting. wasip1's poll_oneoff does not
// read it: CLOCK subscriptions go to wasip1.Host.ClockTimeGet.
type HostClock interface {
	// Now returns a monotonic or realtime clock reading in nanoseconds,
	// per the clockid requested.
	Now(clockID uint32) (uint64, error)
}

// New constructs an empty VFS with no mounts. reservedBand is the number of
// low descriptor numbers withheld for the host-ABI preopen population
// phase.
func New(reservedBand FD, clock HostClock) *VFS {
	return &VFS{
		Graph:   NewGraph(),
		FDs:     NewFDTable(reservedBand),
		Log:     logrus.WithField("component", "vfs"),
		HostABI: clock,
	}
}

// lock/unlock are exported only as a pair of unexported helpers so callers
// never see lock state leak across the package boundary.
func (v *VFS) lock()   { v.mu.Lock() }
func (v *VFS) unlock() { v.mu.Unlock() }

// Mount creates a preopened root directory and registers it under prefix,
// returning the new root Link (used during image load).
func (v *VFS) Mount(prefix string, shadowsHost bool) (LinkID, error) {
	v.lock()
	defer v.unlock()
	root := v.Graph.NewPreopenDir()
	if err := v.Mounts.AddMount(prefix, root, shadowsHost); err != nil {
		return invalidLink, err
	}
	return root, nil
}

// ResolvePath resolves an absolute or base-relative path. If base is
// invalidLink (zero value), path must be absolute and is resolved against
// whichever mount's prefix matches; otherwise resolution proceeds from
// base, and the mount table is not consulted (the caller already knows
// base belongs to the VFS).
func (v *VFS) ResolvePath(base LinkID, path string, followFinalSymlink bool) (Mount, LinkID, error) {
	if base != invalidLink {
		mnt := v.mountOf(base)
		lid, err := v.Graph.Resolve(base, path, followFinalSymlink)
		return mnt, lid, err
	}
	mnt, remainder, ok := v.Mounts.ResolveMount(path)
	if !ok {
		return Mount{}, invalidLink, vfserr.NotFound
	}
	lid, err := v.Graph.Resolve(mnt.Root, remainder, followFinalSymlink)
	return mnt, lid, err
}

// mountOf finds which registered mount owns link's root by walking up to
// its root and matching against the mount table. Used to recover rights
// defaults / prefix context when a caller already holds a Link.
func (v *VFS) mountOf(link LinkID) Mount {
	root := v.Graph.mountRoot(link)
	for _, m := range v.Mounts.Mounts() {
		if m.Root == root {
			return m
		}
	}
	return Mount{}
}

// OpenAt opens link for I/O with the given rights/flags and installs it in
// the fd table, returning the new descriptor (path_open's VFS path).
func (v *VFS) OpenAt(mnt Mount, link LinkID, base Rights, inheriting Rights, flags FDFlags) FD {
	v.lock()
	defer v.unlock()
	node := v.Graph.L(link).Node
	v.Graph.PinNode(node)
	desc := &Description{Open: &OpenFile{
		Link: link, Node: node, Mount: mnt,
		Flags: flags, RightsBase: base, RightsInheriting: inheriting,
	}}
	return v.FDs.Allocate(desc)
}

// Close releases fd. For a VFS entry this unpins its Node (which may free
// the Node if its last directory entry was already removed while the fd
// was open).
func (v *VFS) Close(fd FD) error {
	v.lock()
	defer v.unlock()
	desc, err := v.FDs.Close(fd)
	if err != nil {
		return err
	}
	if desc.IsVFS() {
		v.Graph.UnpinNode(desc.Open.Node)
	}
	return nil
}

// Unlink removes a directory entry for a file (not a directory), failing
// ISDIR if name names a directory (path_unlink_file).
func (v *VFS) Unlink(dir LinkID, name string) error {
	v.lock()
	defer v.unlock()
	lid, ok := v.Graph.LookupDirent(dir, name)
	if !ok {
		return vfserr.NotFound
	}
	if v.Graph.N(v.Graph.L(lid).Node).Kind == KindDir {
		return vfserr.IsDir
	}
	_, err := v.Graph.RemoveDirent(dir, name)
	return err
}

// Rmdir removes a directory entry for an empty directory (path_remove_directory).
func (v *VFS) Rmdir(dir LinkID, name string) error {
	v.lock()
	defer v.unlock()
	lid, ok := v.Graph.LookupDirent(dir, name)
	if !ok {
		return vfserr.NotFound
	}
	n := v.Graph.N(v.Graph.L(lid).Node)
	if n.Kind != KindDir {
		return vfserr.NotDir
	}
	if len(n.Entries) != 0 {
		return vfserr.Invalid
	}
	_, err := v.Graph.RemoveDirent(dir, name)
	return err
}

// Rename rewires a directory entry to a new (parent, name) without
// touching the underlying node, matching path_rename's contract.
// Both oldDir and newDir must belong to the same mount — the caller
// (wasip1) is responsible for the cross-mount XDEV check, since only it
// knows both descriptors' mount identities.
func (v *VFS) Rename(oldDir LinkID, oldName string, newDir LinkID, newName string) error {
	v.lock()
	defer v.unlock()
	lid, ok := v.Graph.LookupDirent(oldDir, oldName)
	if !ok {
		return vfserr.NotFound
	}
	target := v.Graph.L(lid).Node
	if existing, ok := v.Graph.LookupDirent(newDir, newName); ok {
		// overwrite semantics: remove the existing destination first
		if v.Graph.N(v.Graph.L(existing).Node).Kind == KindDir && v.Graph.N(target).Kind != KindDir {
			return vfserr.IsDir
		}
		if _, err := v.Graph.RemoveDirent(newDir, newName); err != nil {
			return err
		}
	}
	// insert the new entry before removing the old one, so the Node's
	// reference count never drops to zero mid-rename
	if _, err := v.Graph.InsertDirent(newDir, newName, target); err != nil {
		return err
	}
	_, err := v.Graph.RemoveDirent(oldDir, oldName)
	return err
}

// Link creates a hard link: a second directory entry naming the same Node
// as src, with its own parent back-reference. Both src's containing
// directory and dir must belong to the same mount — enforced by the
// caller, as with Rename.
func (v *VFS) Link(src LinkID, dir LinkID, name string) error {
	v.lock()
	defer v.unlock()
	target := v.Graph.L(src).Node
	_, err := v.Graph.InsertDirent(dir, name, target)
	return err
}

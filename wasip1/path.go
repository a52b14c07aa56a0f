package wasip1

import (
	"github.com/kateinoigakukun/wasi-vfs-go/vfs"
	"github.com/kateinoigakukun/wasi-vfs-go/vfserr"
)

// PathOpen implements path_open: resolve path against dirFD, apply
// O_CREAT/O_EXCL/O_TRUNC/O_DIRECTORY atomically (trivially so, since calls
// are never interleaved), and install the result in the fd table.
func (r *Runtime) PathOpen(dirFD Fd, path string, lookup Lookupflags, oflags Oflags, base, inheriting Rights, fdflags Fdflags) (newFD Fd, errno Errno) {
	defer func() { r.logCall("path_open", dirFD, path, errno) }()

	d, errno := r.descOf(dirFD)
	if errno != ErrnoSuccess {
		return 0, errno
	}
	if !d.IsVFS() {
		hostFD, errno := r.Host.PathOpen(d.Host.HostFD, path, lookup, oflags, base, inheriting, fdflags)
		if errno != ErrnoSuccess {
			return 0, errno
		}
		desc := &vfs.Description{Host: &vfs.HostPassthrough{HostFD: hostFD}}
		return Fd(r.VFS.FDs.Allocate(desc)), ErrnoSuccess
	}

	if err := d.Open.RequireRights(Rights(vfs.RightPathOpen)); err != nil {
		return 0, FromError(err)
	}

	followFinal := lookup&LookupSymlinkFollow != 0
	mnt, link, err := r.resolvePathAt(d.Open, path, followFinal)
	notFound := err != nil && errIs(err, vfserr.NotFound)

	switch {
	case notFound && oflags&OflagsCreat != 0:
		if err := d.Open.RequireRights(Rights(vfs.RightPathCreateFile)); err != nil {
			return 0, FromError(err)
		}
		dirLink, name, derr := splitParent(r.VFS, d.Open.Link, path)
		if derr != nil {
			return 0, FromError(derr)
		}
		newLink, derr := r.VFS.Graph.NewFile(dirLink, name, nil)
		if derr != nil {
			return 0, FromError(derr)
		}
		link, mnt = newLink, d.Open.Mount
	case err != nil:
		return 0, FromError(err)
	case oflags&OflagsExcl != 0:
		return 0, ErrnoExist
	}

	node := r.VFS.Graph.L(link)
	n := r.VFS.Graph.N(node.Node)
	if oflags&OflagsDirectory != 0 && n.Kind != vfs.KindDir {
		return 0, ErrnoNotdir
	}
	if oflags&OflagsTrunc != 0 {
		if n.Kind == vfs.KindDir {
			return 0, ErrnoIsdir
		}
		n.Bytes = n.Bytes[:0]
	}

	fd := r.VFS.OpenAt(mnt, link, base, inheriting, fdflags)
	return Fd(fd), ErrnoSuccess
}

// errIs reports whether err wraps target, mirroring errors.Is without
// importing the stdlib errors package redundantly alongside pkg/errors.
func errIs(err, target error) bool {
	code, ok := vfserr.LookupCode(err)
	tcode, tok := vfserr.LookupCode(target)
	return ok && tok && code == tcode
}

// splitParent resolves the directory component of path (everything but
// the final name) against base, for operations that must create a new
// entry in that directory.
func splitParent(v *vfs.VFS, base vfs.LinkID, path string) (dir vfs.LinkID, name string, err error) {
	dirPart, name := splitPath(path)
	_, dirLink, err := v.ResolvePath(base, dirPart, true)
	if err != nil {
		return 0, "", err
	}
	return dirLink, name, nil
}

func splitPath(path string) (dir, name string) {
	i := len(path) - 1
	for i >= 0 && path[i] == '/' {
		i--
	}
	end := i + 1
	for i >= 0 && path[i] != '/' {
		i--
	}
	name = path[i+1 : end]
	if i < 0 {
		dir = "."
	} else {
		dir = path[:i+1]
		if dir == "" {
			dir = "/"
		}
	}
	return dir, name
}

// PathCreateDirectory implements path_create_directory.
func (r *Runtime) PathCreateDirectory(dirFD Fd, path string) (errno Errno) {
	defer func() { r.logCall("path_create_directory", dirFD, path, errno) }()
	d, errno := r.descOf(dirFD)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.PathCreateDirectory(d.Host.HostFD, path)
	}
	if err := d.Open.RequireRights(Rights(vfs.RightPathCreateDirectory)); err != nil {
		return FromError(err)
	}
	dirLink, name, err := splitParent(r.VFS, d.Open.Link, path)
	if err != nil {
		return FromError(err)
	}
	_, err = r.VFS.Graph.NewDir(dirLink, name)
	return FromError(err)
}

// PathFilestatGet implements path_filestat_get.
func (r *Runtime) PathFilestatGet(dirFD Fd, path string, lookup Lookupflags) (Filestat, Errno) {
	d, errno := r.descOf(dirFD)
	if errno != ErrnoSuccess {
		return Filestat{}, errno
	}
	if !d.IsVFS() {
		return r.Host.PathFilestatGet(d.Host.HostFD, path, lookup)
	}
	if err := d.Open.RequireRights(Rights(vfs.RightPathFilestatGet)); err != nil {
		return Filestat{}, FromError(err)
	}
	_, link, err := r.resolvePathAt(d.Open, path, lookup&LookupSymlinkFollow != 0)
	if err != nil {
		return Filestat{}, FromError(err)
	}
	node := r.VFS.Graph.L(link).Node
	st := r.VFS.Graph.Stat(node, r.VFS.Graph.LinkCount(node))
	return filestatFromVFS(st), ErrnoSuccess
}

// PathFilestatSetTimes implements path_filestat_set_times.
func (r *Runtime) PathFilestatSetTimes(dirFD Fd, path string, lookup Lookupflags, atimNS, mtimNS uint64, flags SetTimeFlags) (errno Errno) {
	d, errno := r.descOf(dirFD)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.PathFilestatSetTimes(d.Host.HostFD, path, lookup, atimNS, mtimNS, uint16(flags))
	}
	if err := d.Open.RequireRights(Rights(vfs.RightPathFilestatSetTimes)); err != nil {
		return FromError(err)
	}
	_, link, err := r.resolvePathAt(d.Open, path, lookup&LookupSymlinkFollow != 0)
	if err != nil {
		return FromError(err)
	}
	r.VFS.Graph.SetTimes(r.VFS.Graph.L(link).Node, nsToTime(atimNS), nsToTime(mtimNS), flags)
	return ErrnoSuccess
}

// PathLink implements path_link. Source and destination must resolve to
// the same VFS mount, or both be host passthrough bases (forwarded to the
// host as-is); crossing from one namespace to the other, or between two
// distinct VFS mounts, fails XDEV.
func (r *Runtime) PathLink(srcDirFD Fd, srcPath string, lookup Lookupflags, dstDirFD Fd, dstPath string) (errno Errno) {
	defer func() { r.logCall("path_link", srcDirFD, srcPath+" -> "+dstPath, errno) }()
	srcD, errno := r.descOf(srcDirFD)
	if errno != ErrnoSuccess {
		return errno
	}
	dstD, errno := r.descOf(dstDirFD)
	if errno != ErrnoSuccess {
		return errno
	}
	if srcD.IsVFS() != dstD.IsVFS() {
		return ErrnoXdev
	}
	if !srcD.IsVFS() {
		return r.Host.PathLink(srcD.Host.HostFD, srcPath, lookup, dstD.Host.HostFD, dstPath)
	}
	if err := srcD.Open.RequireRights(Rights(vfs.RightPathLinkSource)); err != nil {
		return FromError(err)
	}
	if err := dstD.Open.RequireRights(Rights(vfs.RightPathLinkTarget)); err != nil {
		return FromError(err)
	}
	srcMnt, srcLink, err := r.resolvePathAt(srcD.Open, srcPath, lookup&LookupSymlinkFollow != 0)
	if err != nil {
		return FromError(err)
	}
	dstDirLink, dstName, err := splitParent(r.VFS, dstD.Open.Link, dstPath)
	if err != nil {
		return FromError(err)
	}
	if srcMnt.Prefix != dstD.Open.Mount.Prefix {
		return ErrnoXdev
	}
	return FromError(r.VFS.Link(srcLink, dstDirLink, dstName))
}

// PathReadlink implements path_readlink: returns the target string
// unchanged, short-returning BufTooSmall if it doesn't fit.
func (r *Runtime) PathReadlink(dirFD Fd, path string, buf []byte) (n int, errno Errno) {
	d, errno := r.descOf(dirFD)
	if errno != ErrnoSuccess {
		return 0, errno
	}
	if !d.IsVFS() {
		target, errno := r.Host.PathReadlink(d.Host.HostFD, path, uint32(len(buf)))
		return copy(buf, target), errno
	}
	if err := d.Open.RequireRights(Rights(vfs.RightPathReadlink)); err != nil {
		return 0, FromError(err)
	}
	_, link, err := r.resolvePathAt(d.Open, path, false)
	if err != nil {
		return 0, FromError(err)
	}
	node := r.VFS.Graph.N(r.VFS.Graph.L(link).Node)
	if !node.IsSymlink {
		return 0, ErrnoInval
	}
	if len(node.Bytes) > len(buf) {
		return 0, ErrnoOverflow
	}
	return copy(buf, node.Bytes), ErrnoSuccess
}

// PathRemoveDirectory implements path_remove_directory.
func (r *Runtime) PathRemoveDirectory(dirFD Fd, path string) (errno Errno) {
	defer func() { r.logCall("path_remove_directory", dirFD, path, errno) }()
	d, errno := r.descOf(dirFD)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.PathRemoveDirectory(d.Host.HostFD, path)
	}
	if err := d.Open.RequireRights(Rights(vfs.RightPathRemoveDirectory)); err != nil {
		return FromError(err)
	}
	dirLink, name, err := splitParent(r.VFS, d.Open.Link, path)
	if err != nil {
		return FromError(err)
	}
	return FromError(r.VFS.Rmdir(dirLink, name))
}

// PathRename implements path_rename. Both sides must be on the same VFS
// mount.
func (r *Runtime) PathRename(oldDirFD Fd, oldPath string, newDirFD Fd, newPath string) (errno Errno) {
	defer func() { r.logCall("path_rename", oldDirFD, oldPath+" -> "+newPath, errno) }()
	oldD, errno := r.descOf(oldDirFD)
	if errno != ErrnoSuccess {
		return errno
	}
	newD, errno := r.descOf(newDirFD)
	if errno != ErrnoSuccess {
		return errno
	}
	if oldD.IsVFS() != newD.IsVFS() {
		return ErrnoXdev
	}
	if !oldD.IsVFS() {
		return r.Host.PathRename(oldD.Host.HostFD, oldPath, newD.Host.HostFD, newPath)
	}
	if err := oldD.Open.RequireRights(Rights(vfs.RightPathRenameSource)); err != nil {
		return FromError(err)
	}
	if err := newD.Open.RequireRights(Rights(vfs.RightPathRenameTarget)); err != nil {
		return FromError(err)
	}
	if oldD.Open.Mount.Prefix != newD.Open.Mount.Prefix {
		return ErrnoXdev
	}
	oldDirLink, oldName, err := splitParent(r.VFS, oldD.Open.Link, oldPath)
	if err != nil {
		return FromError(err)
	}
	newDirLink, newName, err := splitParent(r.VFS, newD.Open.Link, newPath)
	if err != nil {
		return FromError(err)
	}
	return FromError(r.VFS.Rename(oldDirLink, oldName, newDirLink, newName))
}

// PathSymlink implements path_symlink: creates a symlink File node whose
// contents are the target string exactly as given, unresolved.
func (r *Runtime) PathSymlink(target string, dirFD Fd, path string) (errno Errno) {
	defer func() { r.logCall("path_symlink", dirFD, path, errno) }()
	d, errno := r.descOf(dirFD)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.PathSymlink(target, d.Host.HostFD, path)
	}
	if err := d.Open.RequireRights(Rights(vfs.RightPathSymlink)); err != nil {
		return FromError(err)
	}
	dirLink, name, err := splitParent(r.VFS, d.Open.Link, path)
	if err != nil {
		return FromError(err)
	}
	_, err = r.VFS.Graph.NewSymlink(dirLink, name, target)
	return FromError(err)
}

// PathUnlinkFile implements path_unlink_file.
func (r *Runtime) PathUnlinkFile(dirFD Fd, path string) (errno Errno) {
	defer func() { r.logCall("path_unlink_file", dirFD, path, errno) }()
	d, errno := r.descOf(dirFD)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.PathUnlinkFile(d.Host.HostFD, path)
	}
	if err := d.Open.RequireRights(Rights(vfs.RightPathUnlinkFile)); err != nil {
		return FromError(err)
	}
	dirLink, name, err := splitParent(r.VFS, d.Open.Link, path)
	if err != nil {
		return FromError(err)
	}
	return FromError(r.VFS.Unlink(dirLink, name))
}

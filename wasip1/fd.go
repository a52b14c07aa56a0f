package wasip1

import (
	"github.com/kateinoigakukun/wasi-vfs-go/vfs"
)

// FdRead implements fd_read: a non-positional read that advances the
// descriptor's cursor.
func (r *Runtime) FdRead(fd Fd, buf []byte) (n int, errno Errno) {
	defer func() { r.logCall("fd_read", fd, "", errno) }()
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return 0, errno
	}
	if !d.IsVFS() {
		n, errno := r.Host.Read(d.Host.HostFD, buf)
		return n, errno
	}
	o := d.Open
	if err := o.RequireRights(Rights(vfs.RightFDRead)); err != nil {
		return 0, FromError(err)
	}
	n, err := o.Read(r.VFS.Graph, buf)
	return n, FromError(err)
}

// FdPread implements fd_pread: a positional read that does not move the
// cursor.
func (r *Runtime) FdPread(fd Fd, buf []byte, offset uint64) (n int, errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return 0, errno
	}
	if !d.IsVFS() {
		return r.Host.Pread(d.Host.HostFD, buf, offset)
	}
	o := d.Open
	if err := o.RequireRights(Rights(vfs.RightFDRead | vfs.RightFDSeek)); err != nil {
		return 0, FromError(err)
	}
	n, err := o.Pread(r.VFS.Graph, buf, offset)
	return n, FromError(err)
}

// FdWrite implements fd_write.
func (r *Runtime) FdWrite(fd Fd, data []byte) (n int, errno Errno) {
	defer func() { r.logCall("fd_write", fd, "", errno) }()
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return 0, errno
	}
	if !d.IsVFS() {
		n, errno := r.Host.Write(d.Host.HostFD, data)
		return n, errno
	}
	o := d.Open
	if err := o.RequireRights(Rights(vfs.RightFDWrite)); err != nil {
		return 0, FromError(err)
	}
	n, err := o.Write(r.VFS.Graph, data)
	return n, FromError(err)
}

// FdPwrite implements fd_pwrite.
func (r *Runtime) FdPwrite(fd Fd, data []byte, offset uint64) (n int, errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return 0, errno
	}
	if !d.IsVFS() {
		return r.Host.Pwrite(d.Host.HostFD, data, offset)
	}
	o := d.Open
	if err := o.RequireRights(Rights(vfs.RightFDWrite | vfs.RightFDSeek)); err != nil {
		return 0, FromError(err)
	}
	n, err := o.Pwrite(r.VFS.Graph, data, offset)
	return n, FromError(err)
}

// FdSeek implements fd_seek.
func (r *Runtime) FdSeek(fd Fd, offset int64, whence int) (newOffset uint64, errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return 0, errno
	}
	if !d.IsVFS() {
		return r.Host.Seek(d.Host.HostFD, offset, whence)
	}
	o := d.Open
	if err := o.RequireRights(Rights(vfs.RightFDSeek)); err != nil {
		return 0, FromError(err)
	}
	n, err := o.Seek(r.VFS.Graph, offset, whence)
	return n, FromError(err)
}

// FdTell implements fd_tell: returns the cursor without a rights check
// beyond the descriptor being open — the host ABI text requires no right
// for tell, only fd_seek requires RIGHT_FD_SEEK.
func (r *Runtime) FdTell(fd Fd) (offset uint64, errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return 0, errno
	}
	if !d.IsVFS() {
		return r.Host.Tell(d.Host.HostFD)
	}
	return d.Open.Cursor, ErrnoSuccess
}

// FdClose implements fd_close.
func (r *Runtime) FdClose(fd Fd) (errno Errno) {
	defer func() { r.logCall("fd_close", fd, "", errno) }()
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		errno := r.Host.Close(d.Host.HostFD)
		_, _ = r.VFS.FDs.Close(vfs.FD(fd))
		return errno
	}
	if err := r.VFS.Close(vfs.FD(fd)); err != nil {
		return FromError(err)
	}
	return ErrnoSuccess
}

// FdFdstatGet implements fd_fdstat_get.
func (r *Runtime) FdFdstatGet(fd Fd) (Fdstat, Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return Fdstat{}, errno
	}
	if !d.IsVFS() {
		return r.Host.FdstatGet(d.Host.HostFD)
	}
	o := d.Open
	n := r.VFS.Graph.N(o.Node)
	ft := FiletypeRegularFile
	if n.Kind == vfs.KindDir {
		ft = FiletypeDirectory
	} else if n.IsSymlink {
		ft = FiletypeSymbolicLink
	}
	return Fdstat{
		FsFiletype:         ft,
		FsFlags:            o.Flags,
		FsRightsBase:       o.RightsBase,
		FsRightsInheriting: o.RightsInheriting,
	}, ErrnoSuccess
}

// FdFdstatSetFlags implements fd_fdstat_set_flags. Flags may change
// freely (append/nonblock/sync/rsync/dsync) as long as the fd is
// VFS-owned; no additional rights check applies.
func (r *Runtime) FdFdstatSetFlags(fd Fd, flags Fdflags) (errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.FdstatSetFlags(d.Host.HostFD, flags)
	}
	d.Open.Flags = flags
	return ErrnoSuccess
}

// FdFdstatSetRights implements fd_fdstat_set_rights: only narrowing is
// permitted.
func (r *Runtime) FdFdstatSetRights(fd Fd, base, inheriting Rights) (errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.FdstatSetRights(d.Host.HostFD, base, inheriting)
	}
	o := d.Open
	if !o.RightsBase.Narrowed(base) || !o.RightsInheriting.Narrowed(inheriting) {
		return ErrnoNotcapable
	}
	o.RightsBase = base
	o.RightsInheriting = inheriting
	return ErrnoSuccess
}

// FdFilestatGet implements fd_filestat_get.
func (r *Runtime) FdFilestatGet(fd Fd) (Filestat, Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return Filestat{}, errno
	}
	if !d.IsVFS() {
		return r.Host.FilestatGet(d.Host.HostFD)
	}
	o := d.Open
	st := r.VFS.Graph.Stat(o.Node, r.VFS.Graph.LinkCount(o.Node))
	return filestatFromVFS(st), ErrnoSuccess
}

// FdFilestatSetSize implements fd_filestat_set_size (truncate/extend).
func (r *Runtime) FdFilestatSetSize(fd Fd, size uint64) (errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.FilestatSetSize(d.Host.HostFD, size)
	}
	if err := d.Open.RequireRights(Rights(vfs.RightFDFilestatSetSize)); err != nil {
		return FromError(err)
	}
	return FromError(d.Open.SetSize(r.VFS.Graph, size))
}

// SetTimeFlags mirrors vfs.SetTimeFlags at the ABI boundary.
type SetTimeFlags = vfs.SetTimeFlags

const (
	SetATim    = vfs.SetATim
	SetATimNow = vfs.SetATimNow
	SetMTimNow = vfs.SetMTimNow
	SetMTim    = vfs.SetMTim
)

// FdFilestatSetTimes implements fd_filestat_set_times.
func (r *Runtime) FdFilestatSetTimes(fd Fd, atimNS, mtimNS uint64, flags SetTimeFlags) (errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.FilestatSetTimes(d.Host.HostFD, atimNS, mtimNS, uint16(flags))
	}
	if err := d.Open.RequireRights(Rights(vfs.RightFDFilestatSetTimes)); err != nil {
		return FromError(err)
	}
	r.VFS.Graph.SetTimes(d.Open.Node, nsToTime(atimNS), nsToTime(mtimNS), flags)
	return ErrnoSuccess
}

// FdSync implements fd_sync: a no-op success for VFS descriptors.
func (r *Runtime) FdSync(fd Fd) (errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.Sync(d.Host.HostFD)
	}
	return ErrnoSuccess
}

// FdDatasync implements fd_datasync: a no-op success for VFS descriptors.
func (r *Runtime) FdDatasync(fd Fd) (errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.Datasync(d.Host.HostFD)
	}
	return ErrnoSuccess
}

// FdAdvise implements fd_advise: a no-op success for VFS descriptors.
func (r *Runtime) FdAdvise(fd Fd, offset, length uint64, advice uint8) (errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.Advise(d.Host.HostFD, offset, length, advice)
	}
	if err := d.Open.RequireRights(Rights(vfs.RightFDAdvise)); err != nil {
		return FromError(err)
	}
	return ErrnoSuccess
}

// FdAllocate implements fd_allocate.
func (r *Runtime) FdAllocate(fd Fd, offset, length uint64) (errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		return r.Host.Allocate(d.Host.HostFD, offset, length)
	}
	if err := d.Open.RequireRights(Rights(vfs.RightFDAllocate)); err != nil {
		return FromError(err)
	}
	return FromError(d.Open.Allocate(r.VFS.Graph, offset, length))
}

// FdReaddir implements fd_readdir, filling buf with as many whole dirent
// records (header + name) as fit, starting after cookie.
// It returns the number of bytes written; a short return (less than
// len(buf)) signals end-of-buffer to the caller exactly as a full buffer
// does not signal end-of-stream — the guest keeps calling with the last
// emitted entry's Next cookie until a call returns fewer bytes than it
// requested room for entries.
func (r *Runtime) FdReaddir(fd Fd, buf []byte, cookie uint64) (nwritten int, errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return 0, errno
	}
	if !d.IsVFS() {
		data, errno := r.Host.Readdir(d.Host.HostFD, cookie, uint32(len(buf)))
		return copy(buf, data), errno
	}
	o := d.Open
	if err := o.RequireRights(Rights(vfs.RightFDReaddir)); err != nil {
		return 0, FromError(err)
	}
	n := r.VFS.Graph.N(o.Node)
	if n.Kind != vfs.KindDir {
		return 0, ErrnoNotdir
	}
	entries := o.ReadDir(r.VFS.Graph)
	if cookie > uint64(len(entries)) {
		return 0, ErrnoInval
	}
	off := 0
	for i := int(cookie); i < len(entries); i++ {
		e := entries[i]
		ft := filetypeOf(entryKind(e))
		de := Dirent{Next: uint64(i + 1), Ino: r.VFS.Graph.Inode(e.Node), Namelen: uint32(len(e.Name)), Type: ft}
		total := int(de.Size())
		if off+total > len(buf) {
			break
		}
		header := de.Marshal()
		off += copy(buf[off:], header[:])
		off += copy(buf[off:], e.Name)
	}
	return off, ErrnoSuccess
}

func entryKind(e vfs.DirEntry) vfs.Filetype {
	if e.IsSymlink {
		return vfs.FiletypeSymbolicLink
	}
	if e.Kind == vfs.KindDir {
		return vfs.FiletypeDirectory
	}
	return vfs.FiletypeRegularFile
}

// FdRenumber implements fd_renumber.
func (r *Runtime) FdRenumber(from, to Fd) (errno Errno) {
	d, errno := r.descOf(from)
	if errno != ErrnoSuccess {
		return errno
	}
	if !d.IsVFS() {
		toDesc := r.VFS.FDs.Get(vfs.FD(to))
		if toDesc != nil && toDesc.IsVFS() {
			r.VFS.Graph.UnpinNode(toDesc.Open.Node)
		}
		return r.Host.Renumber(d.Host.HostFD, uint64(to))
	}
	if err := r.VFS.FDs.Renumber(vfs.FD(from), vfs.FD(to)); err != nil {
		return FromError(err)
	}
	return ErrnoSuccess
}

// FdPrestatGet implements fd_prestat_get: returns the mount prefix's
// length for a VFS preopen.
func (r *Runtime) FdPrestatGet(fd Fd) (Prestat, Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return Prestat{}, errno
	}
	if !d.IsVFS() {
		if d.Host.IsPreopenDir {
			return Prestat{PrNameLen: uint32(len(d.Host.PreopenPrefix))}, ErrnoSuccess
		}
		return Prestat{}, ErrnoBadf
	}
	return Prestat{PrNameLen: uint32(len(d.Open.Mount.Prefix))}, ErrnoSuccess
}

// FdPrestatDirName implements fd_prestat_dir_name.
func (r *Runtime) FdPrestatDirName(fd Fd, buf []byte) (n int, errno Errno) {
	d, errno := r.descOf(fd)
	if errno != ErrnoSuccess {
		return 0, errno
	}
	var name string
	if !d.IsVFS() {
		if !d.Host.IsPreopenDir {
			return 0, ErrnoBadf
		}
		name = d.Host.PreopenPrefix
	} else {
		name = d.Open.Mount.Prefix
	}
	if len(name) > len(buf) {
		return 0, ErrnoOverflow
	}
	return copy(buf, name), ErrnoSuccess
}


package wasip1

import (
	"github.com/kateinoigakukun/wasi-vfs-go/vfs"
	"github.com/sirupsen/logrus"
)

// Host is the passthrough collaborator: the real host-ABI file imports the
// trampoline would otherwise call directly. Runtime forwards to Host for
// any descriptor or path that does not belong to the VFS.
// The embedding runtime implements this against whatever WASI host it
// actually runs on; Runtime itself never talks to a kernel.
type Host interface {
	Read(hostFD uint64, buf []byte) (int, Errno)
	Pread(hostFD uint64, buf []byte, offset uint64) (int, Errno)
	Write(hostFD uint64, data []byte) (int, Errno)
	Pwrite(hostFD uint64, data []byte, offset uint64) (int, Errno)
	Seek(hostFD uint64, offset int64, whence int) (uint64, Errno)
	Tell(hostFD uint64) (uint64, Errno)
	Close(hostFD uint64) Errno
	FdstatGet(hostFD uint64) (Fdstat, Errno)
	FdstatSetFlags(hostFD uint64, flags Fdflags) Errno
	FdstatSetRights(hostFD uint64, base, inheriting Rights) Errno
	FilestatGet(hostFD uint64) (Filestat, Errno)
	FilestatSetSize(hostFD uint64, size uint64) Errno
	FilestatSetTimes(hostFD uint64, atim, mtim uint64, flags uint16) Errno
	Sync(hostFD uint64) Errno
	Datasync(hostFD uint64) Errno
	Advise(hostFD uint64, offset, length uint64, advice uint8) Errno
	Allocate(hostFD uint64, offset, length uint64) Errno
	Readdir(hostFD uint64, cookie uint64, bufLen uint32) ([]byte, Errno)
	Renumber(fromHostFD, toHostFD uint64) Errno

	PathOpen(dirHostFD uint64, path string, lookup Lookupflags, oflags Oflags, base, inheriting Rights, fdflags Fdflags) (hostFD uint64, errno Errno)
	PathCreateDirectory(dirHostFD uint64, path string) Errno
	PathFilestatGet(dirHostFD uint64, path string, lookup Lookupflags) (Filestat, Errno)
	PathFilestatSetTimes(dirHostFD uint64, path string, lookup Lookupflags, atim, mtim uint64, flags uint16) Errno
	PathLink(srcDirHostFD uint64, srcPath string, lookup Lookupflags, dstDirHostFD uint64, dstPath string) Errno
	PathReadlink(dirHostFD uint64, path string, bufLen uint32) (string, Errno)
	PathRemoveDirectory(dirHostFD uint64, path string) Errno
	PathRename(oldDirHostFD uint64, oldPath string, newDirHostFD uint64, newPath string) Errno
	PathSymlink(target string, dirHostFD uint64, path string) Errno
	PathUnlinkFile(dirHostFD uint64, path string) Errno

	ClockTimeGet(clockID uint32) (uint64, Errno)
}

// Runtime wires a vfs.VFS to a Host collaborator and dispatches every
// interposed host-ABI call. One Runtime exists per guest instance.
type Runtime struct {
	VFS  *vfs.VFS
	Host Host
	Log  *logrus.Entry
}

// NewRuntime constructs a Runtime over an already-mounted VFS.
func NewRuntime(v *vfs.VFS, host Host) *Runtime {
	return &Runtime{VFS: v, Host: host, Log: logrus.WithField("component", "wasip1")}
}

// descOf resolves fd to its Description, returning ErrnoBadf if unknown.
func (r *Runtime) descOf(fd Fd) (*vfs.Description, Errno) {
	d := r.VFS.FDs.Get(vfs.FD(fd))
	if d == nil {
		return nil, ErrnoBadf
	}
	return d, ErrnoSuccess
}

// resolvePathAt resolves path against base's classification: if base is a
// VFS descriptor, resolution happens in the graph (possibly crossing back
// out to a different mount's root only via an absolute path, which always
// restarts at *a* mount root, never the host); if base is a host
// passthrough, the whole call is forwarded, and this function is not used.
func (r *Runtime) resolvePathAt(baseOpen *vfs.OpenFile, path string, followFinalSymlink bool) (vfs.Mount, vfs.LinkID, error) {
	return r.VFS.ResolvePath(baseOpen.Link, path, followFinalSymlink)
}

// logCall emits one line when a call returns: Debug on success, Warn on
// failure. Callers invoke it via defer.
func (r *Runtime) logCall(name string, fd Fd, path string, errno Errno) {
	if errno == ErrnoSuccess {
		r.Log.WithFields(logrus.Fields{"call": name, "fd": fd, "path": path}).Debug("ok")
		return
	}
	r.Log.WithFields(logrus.Fields{"call": name, "fd": fd, "path": path, "errno": errno}).Warn("failed")
}

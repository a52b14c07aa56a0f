//go:build linux

package hostos

import (
	"os"

	"github.com/kateinoigakukun/wasi-vfs-go/vfs"
	"github.com/kateinoigakukun/wasi-vfs-go/wasip1"
	"golang.org/x/sys/unix"
)

// openFlags translates path_open's oflags/fdflags/rights triple into the
// openat(2) flag word, mirroring how backend/local composes os.O_* from a
// fs.VFS OpenOption set before calling os.OpenFile.
func openFlags(oflags wasip1.Oflags, fdflags wasip1.Fdflags, base wasip1.Rights) int {
	flags := os.O_RDONLY
	canWrite := base&wasip1.Rights(vfs.RightFDWrite) != 0
	canRead := base&wasip1.Rights(vfs.RightFDRead) != 0
	switch {
	case canWrite && canRead:
		flags = os.O_RDWR
	case canWrite:
		flags = os.O_WRONLY
	}
	if oflags&wasip1.OflagsCreat != 0 {
		flags |= os.O_CREATE
	}
	if oflags&wasip1.OflagsExcl != 0 {
		flags |= os.O_EXCL
	}
	if oflags&wasip1.OflagsTrunc != 0 {
		flags |= os.O_TRUNC
	}
	if oflags&wasip1.OflagsDirectory != 0 {
		flags |= unix.O_DIRECTORY
	}
	if fdflags&wasip1.FdflagAppend != 0 {
		flags |= os.O_APPEND
	}
	if fdflags&wasip1.FdflagSync != 0 {
		flags |= unix.O_SYNC
	}
	if fdflags&wasip1.FdflagNonblock != 0 {
		flags |= unix.O_NONBLOCK
	}
	return flags
}

// PathOpen implements path_open by openat(2)-ing path relative to dirHostFD.
func (h *Host) PathOpen(dirHostFD uint64, path string, lookup wasip1.Lookupflags, oflags wasip1.Oflags, base, inheriting wasip1.Rights, fdflags wasip1.Fdflags) (uint64, wasip1.Errno) {
	dir, ok := h.fileOf(dirHostFD)
	if !ok {
		return 0, wasip1.ErrnoBadf
	}
	flags := openFlags(oflags, fdflags, base)
	if lookup&wasip1.LookupSymlinkFollow == 0 {
		flags |= unix.O_NOFOLLOW
	}
	fd, err := unix.Openat(int(dir.Fd()), path, flags, 0o644)
	if err != nil {
		return 0, errnoOf(err)
	}
	f := os.NewFile(uintptr(fd), path)
	return h.register(f), wasip1.ErrnoSuccess
}

func (h *Host) PathCreateDirectory(dirHostFD uint64, path string) wasip1.Errno {
	dir, ok := h.fileOf(dirHostFD)
	if !ok {
		return wasip1.ErrnoBadf
	}
	if err := unix.Mkdirat(int(dir.Fd()), path, 0o755); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

func (h *Host) PathFilestatGet(dirHostFD uint64, path string, lookup wasip1.Lookupflags) (wasip1.Filestat, wasip1.Errno) {
	dir, ok := h.fileOf(dirHostFD)
	if !ok {
		return wasip1.Filestat{}, wasip1.ErrnoBadf
	}
	var st unix.Stat_t
	flags := 0
	if lookup&wasip1.LookupSymlinkFollow == 0 {
		flags |= unix.AT_SYMLINK_NOFOLLOW
	}
	if err := unix.Fstatat(int(dir.Fd()), path, &st, flags); err != nil {
		return wasip1.Filestat{}, errnoOf(err)
	}
	return filestatFromStat(&st), wasip1.ErrnoSuccess
}

func filestatFromStat(st *unix.Stat_t) wasip1.Filestat {
	ft := wasip1.FiletypeRegularFile
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFDIR:
		ft = wasip1.FiletypeDirectory
	case unix.S_IFLNK:
		ft = wasip1.FiletypeSymbolicLink
	}
	return wasip1.Filestat{
		Dev:      uint64(st.Dev),
		Ino:      st.Ino,
		Filetype: ft,
		Nlink:    uint64(st.Nlink),
		Size:     uint64(st.Size),
		Atim:     uint64(st.Atim.Sec)*1e9 + uint64(st.Atim.Nsec),
		Mtim:     uint64(st.Mtim.Sec)*1e9 + uint64(st.Mtim.Nsec),
		Ctim:     uint64(st.Ctim.Sec)*1e9 + uint64(st.Ctim.Nsec),
	}
}

func (h *Host) PathFilestatSetTimes(dirHostFD uint64, path string, lookup wasip1.Lookupflags, atim, mtim uint64, flags uint16) wasip1.Errno {
	dir, ok := h.fileOf(dirHostFD)
	if !ok {
		return wasip1.ErrnoBadf
	}
	ts := []unix.Timespec{
		{Sec: int64(atim / 1e9), Nsec: int64(atim % 1e9)},
		{Sec: int64(mtim / 1e9), Nsec: int64(mtim % 1e9)},
	}
	atFlags := 0
	if lookup&wasip1.LookupSymlinkFollow == 0 {
		atFlags |= unix.AT_SYMLINK_NOFOLLOW
	}
	if err := unix.UtimesNanoAt(int(dir.Fd()), path, ts, atFlags); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

func (h *Host) PathLink(srcDirHostFD uint64, srcPath string, lookup wasip1.Lookupflags, dstDirHostFD uint64, dstPath string) wasip1.Errno {
	srcDir, ok := h.fileOf(srcDirHostFD)
	if !ok {
		return wasip1.ErrnoBadf
	}
	dstDir, ok := h.fileOf(dstDirHostFD)
	if !ok {
		return wasip1.ErrnoBadf
	}
	flags := 0
	if lookup&wasip1.LookupSymlinkFollow != 0 {
		flags |= unix.AT_SYMLINK_FOLLOW
	}
	if err := unix.Linkat(int(srcDir.Fd()), srcPath, int(dstDir.Fd()), dstPath, flags); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

func (h *Host) PathReadlink(dirHostFD uint64, path string, bufLen uint32) (string, wasip1.Errno) {
	dir, ok := h.fileOf(dirHostFD)
	if !ok {
		return "", wasip1.ErrnoBadf
	}
	buf := make([]byte, bufLen)
	n, err := unix.Readlinkat(int(dir.Fd()), path, buf)
	if err != nil {
		return "", errnoOf(err)
	}
	return string(buf[:n]), wasip1.ErrnoSuccess
}

func (h *Host) PathRemoveDirectory(dirHostFD uint64, path string) wasip1.Errno {
	dir, ok := h.fileOf(dirHostFD)
	if !ok {
		return wasip1.ErrnoBadf
	}
	if err := unix.Unlinkat(int(dir.Fd()), path, unix.AT_REMOVEDIR); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

func (h *Host) PathRename(oldDirHostFD uint64, oldPath string, newDirHostFD uint64, newPath string) wasip1.Errno {
	oldDir, ok := h.fileOf(oldDirHostFD)
	if !ok {
		return wasip1.ErrnoBadf
	}
	newDir, ok := h.fileOf(newDirHostFD)
	if !ok {
		return wasip1.ErrnoBadf
	}
	if err := unix.Renameat(int(oldDir.Fd()), oldPath, int(newDir.Fd()), newPath); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

func (h *Host) PathSymlink(target string, dirHostFD uint64, path string) wasip1.Errno {
	dir, ok := h.fileOf(dirHostFD)
	if !ok {
		return wasip1.ErrnoBadf
	}
	if err := unix.Symlinkat(target, int(dir.Fd()), path); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

func (h *Host) PathUnlinkFile(dirHostFD uint64, path string) wasip1.Errno {
	dir, ok := h.fileOf(dirHostFD)
	if !ok {
		return wasip1.ErrnoBadf
	}
	if err := unix.Unlinkat(int(dir.Fd()), path, 0); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

//go:build linux

// Package hostos implements wasip1.Host against the real Linux file
// descriptor ABI, for the descriptors and paths the VFS graph does not own.
// It is grounded on backend/local's use of golang.org/x/sys/unix for the
// syscalls os.File does not expose directly
// (fallocate, fadvise, the *at family), split into a linux-only file the
// same way backend/local splits preallocate_unix.go from
// preallocate_windows.go; a Windows or Darwin Host is not provided here.
package hostos

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/kateinoigakukun/wasi-vfs-go/vfs"
	"github.com/kateinoigakukun/wasi-vfs-go/wasip1"
	"golang.org/x/sys/unix"
)

// Host forwards every wasip1.Host call to a real file descriptor, addressed
// by an opaque uint64 handle the caller obtains from Preopen or PathOpen.
// Handles are never raw OS fd numbers exposed to the guest; Host owns the
// mapping so it can close and recycle them independently of guest-visible
// numbering (mirrors vfs.FDTable's own indirection, one layer further down).
type Host struct {
	mu        sync.Mutex
	files     map[uint64]*os.File
	dirs      map[uint64]string   // preopen prefix, for IsPreopenDir fds
	dirstream map[uint64][]string // names snapshot for a paginated Readdir walk
	nextH     uint64
}

// NewHost returns an empty Host with no registered descriptors.
func NewHost() *Host {
	return &Host{
		files:     map[uint64]*os.File{},
		dirs:      map[uint64]string{},
		dirstream: map[uint64][]string{},
	}
}

// Preopen registers dir as a host-ABI preopen directory under prefix and
// returns its handle, for the startup preopen-population phase to install
// via vfs.FDTable.Set.
func (h *Host) Preopen(dir, prefix string) (uint64, error) {
	f, err := os.Open(dir)
	if err != nil {
		return 0, err
	}
	handle := h.register(f)
	h.mu.Lock()
	h.dirs[handle] = prefix
	h.mu.Unlock()
	return handle, nil
}

func (h *Host) fileOf(handle uint64) (*os.File, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.files[handle]
	return f, ok
}

func (h *Host) register(f *os.File) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	handle := h.nextH
	h.nextH++
	h.files[handle] = f
	return handle
}

func errnoOf(err error) wasip1.Errno {
	if err == nil {
		return wasip1.ErrnoSuccess
	}
	switch {
	case os.IsNotExist(err):
		return wasip1.ErrnoNoent
	case os.IsExist(err):
		return wasip1.ErrnoExist
	case os.IsPermission(err):
		return wasip1.ErrnoAcces
	}
	switch err {
	case unix.ENOTDIR:
		return wasip1.ErrnoNotdir
	case unix.EISDIR:
		return wasip1.ErrnoIsdir
	case unix.ENOTEMPTY:
		return wasip1.ErrnoNotempty
	case unix.EXDEV:
		return wasip1.ErrnoXdev
	case unix.ELOOP:
		return wasip1.ErrnoLoop
	case unix.ENOTSUP:
		return wasip1.ErrnoNotsup
	case unix.EINVAL:
		return wasip1.ErrnoInval
	case unix.ENOSPC:
		return wasip1.ErrnoNospc
	case unix.EROFS:
		return wasip1.ErrnoRofs
	default:
		return wasip1.ErrnoIo
	}
}

func (h *Host) Read(handle uint64, buf []byte) (int, wasip1.Errno) {
	f, ok := h.fileOf(handle)
	if !ok {
		return 0, wasip1.ErrnoBadf
	}
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return 0, errnoOf(err)
	}
	return n, wasip1.ErrnoSuccess
}

func (h *Host) Pread(handle uint64, buf []byte, offset uint64) (int, wasip1.Errno) {
	f, ok := h.fileOf(handle)
	if !ok {
		return 0, wasip1.ErrnoBadf
	}
	n, err := unix.Pread(int(f.Fd()), buf, int64(offset))
	if err != nil {
		return n, errnoOf(err)
	}
	return n, wasip1.ErrnoSuccess
}

func (h *Host) Write(handle uint64, data []byte) (int, wasip1.Errno) {
	f, ok := h.fileOf(handle)
	if !ok {
		return 0, wasip1.ErrnoBadf
	}
	n, err := f.Write(data)
	if err != nil {
		return n, errnoOf(err)
	}
	return n, wasip1.ErrnoSuccess
}

func (h *Host) Pwrite(handle uint64, data []byte, offset uint64) (int, wasip1.Errno) {
	f, ok := h.fileOf(handle)
	if !ok {
		return 0, wasip1.ErrnoBadf
	}
	n, err := unix.Pwrite(int(f.Fd()), data, int64(offset))
	if err != nil {
		return n, errnoOf(err)
	}
	return n, wasip1.ErrnoSuccess
}

func (h *Host) Seek(handle uint64, offset int64, whence int) (uint64, wasip1.Errno) {
	f, ok := h.fileOf(handle)
	if !ok {
		return 0, wasip1.ErrnoBadf
	}
	n, err := f.Seek(offset, whence)
	if err != nil {
		return 0, errnoOf(err)
	}
	return uint64(n), wasip1.ErrnoSuccess
}

func (h *Host) Tell(handle uint64) (uint64, wasip1.Errno) {
	f, ok := h.fileOf(handle)
	if !ok {
		return 0, wasip1.ErrnoBadf
	}
	n, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errnoOf(err)
	}
	return uint64(n), wasip1.ErrnoSuccess
}

func (h *Host) Close(handle uint64) wasip1.Errno {
	h.mu.Lock()
	f, ok := h.files[handle]
	delete(h.files, handle)
	delete(h.dirs, handle)
	delete(h.dirstream, handle)
	h.mu.Unlock()
	if !ok {
		return wasip1.ErrnoBadf
	}
	if err := f.Close(); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

func filetypeOfMode(mode os.FileMode) wasip1.Filetype {
	switch {
	case mode.IsDir():
		return wasip1.FiletypeDirectory
	case mode&os.ModeSymlink != 0:
		return wasip1.FiletypeSymbolicLink
	case mode&os.ModeDevice != 0:
		return wasip1.FiletypeBlockDevice
	default:
		return wasip1.FiletypeRegularFile
	}
}

func (h *Host) FdstatGet(handle uint64) (wasip1.Fdstat, wasip1.Errno) {
	f, ok := h.fileOf(handle)
	if !ok {
		return wasip1.Fdstat{}, wasip1.ErrnoBadf
	}
	info, err := f.Stat()
	if err != nil {
		return wasip1.Fdstat{}, errnoOf(err)
	}
	return wasip1.Fdstat{
		FsFiletype:         filetypeOfMode(info.Mode()),
		FsRightsBase:       wasip1.Rights(vfs.RightsAll),
		FsRightsInheriting: wasip1.Rights(vfs.RightsAll),
	}, wasip1.ErrnoSuccess
}

func (h *Host) FdstatSetFlags(handle uint64, flags wasip1.Fdflags) wasip1.Errno {
	if _, ok := h.fileOf(handle); !ok {
		return wasip1.ErrnoBadf
	}
	// O_APPEND/O_NONBLOCK cannot be changed on an already-open *os.File
	// without reopening it; accepted as a no-op rather than failing the
	// guest outright.
	return wasip1.ErrnoSuccess
}

func (h *Host) FdstatSetRights(handle uint64, base, inheriting wasip1.Rights) wasip1.Errno {
	return wasip1.ErrnoNotsup
}

func statFromInfo(info os.FileInfo) wasip1.Filestat {
	st := wasip1.Filestat{
		Filetype: filetypeOfMode(info.Mode()),
		Size:     uint64(info.Size()),
		Mtim:     uint64(info.ModTime().UnixNano()),
	}
	if sys, ok := info.Sys().(*unix.Stat_t); ok {
		st.Dev = uint64(sys.Dev)
		st.Ino = sys.Ino
		st.Nlink = uint64(sys.Nlink)
		st.Atim = uint64(sys.Atim.Sec)*1e9 + uint64(sys.Atim.Nsec)
		st.Ctim = uint64(sys.Ctim.Sec)*1e9 + uint64(sys.Ctim.Nsec)
	}
	return st
}

func (h *Host) FilestatGet(handle uint64) (wasip1.Filestat, wasip1.Errno) {
	f, ok := h.fileOf(handle)
	if !ok {
		return wasip1.Filestat{}, wasip1.ErrnoBadf
	}
	info, err := f.Stat()
	if err != nil {
		return wasip1.Filestat{}, errnoOf(err)
	}
	return statFromInfo(info), wasip1.ErrnoSuccess
}

func (h *Host) FilestatSetSize(handle uint64, size uint64) wasip1.Errno {
	f, ok := h.fileOf(handle)
	if !ok {
		return wasip1.ErrnoBadf
	}
	if err := f.Truncate(int64(size)); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

func (h *Host) FilestatSetTimes(handle uint64, atimNS, mtimNS uint64, flags uint16) wasip1.Errno {
	f, ok := h.fileOf(handle)
	if !ok {
		return wasip1.ErrnoBadf
	}
	atim := time.Unix(0, int64(atimNS))
	mtim := time.Unix(0, int64(mtimNS))
	if err := os.Chtimes(f.Name(), atim, mtim); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

func (h *Host) Sync(handle uint64) wasip1.Errno {
	f, ok := h.fileOf(handle)
	if !ok {
		return wasip1.ErrnoBadf
	}
	if err := f.Sync(); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

func (h *Host) Datasync(handle uint64) wasip1.Errno {
	f, ok := h.fileOf(handle)
	if !ok {
		return wasip1.ErrnoBadf
	}
	if err := unix.Fdatasync(int(f.Fd())); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

// POSIX_FADV_* advice values as the host ABI encodes them (the numbering
// matches backend/local/fadvise_unix.go's own constants exactly).
const (
	adviseNormal = iota
	adviseSequential
	adviseRandom
	adviseWillneed
	adviseDontneed
	adviseNoreuse
)

func (h *Host) Advise(handle uint64, offset, length uint64, advice uint8) wasip1.Errno {
	f, ok := h.fileOf(handle)
	if !ok {
		return wasip1.ErrnoBadf
	}
	var flag int
	switch advice {
	case adviseSequential:
		flag = unix.FADV_SEQUENTIAL
	case adviseRandom:
		flag = unix.FADV_RANDOM
	case adviseWillneed:
		flag = unix.FADV_WILLNEED
	case adviseDontneed:
		flag = unix.FADV_DONTNEED
	case adviseNoreuse:
		flag = unix.FADV_NOREUSE
	default:
		flag = unix.FADV_NORMAL
	}
	if err := unix.Fadvise(int(f.Fd()), int64(offset), int64(length), flag); err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

// Allocate reserves [offset, offset+length) without reporting the new size,
// falling back to a plain grow when the filesystem rejects
// FALLOC_FL_KEEP_SIZE, the same ENOTSUP fallback backend/local's
// preallocate_unix.go performs.
func (h *Host) Allocate(handle uint64, offset, length uint64) wasip1.Errno {
	f, ok := h.fileOf(handle)
	if !ok {
		return wasip1.ErrnoBadf
	}
	err := unix.Fallocate(int(f.Fd()), unix.FALLOC_FL_KEEP_SIZE, int64(offset), int64(length))
	if err == unix.ENOTSUP {
		err = unix.Fallocate(int(f.Fd()), 0, int64(offset), int64(length))
	}
	if err != nil {
		return errnoOf(err)
	}
	return wasip1.ErrnoSuccess
}

// Readdir serves a paginated fd_readdir walk. cookie 0 starts a fresh
// stream: it rewinds the directory and snapshots the full name list once,
// since os.File.Readdirnames consumes the OS directory stream as it goes
// and a second call would otherwise see only the names left unread by the
// first, re-indexed as if they were the whole listing. Subsequent calls
// with the cookie the previous call returned reuse that snapshot.
func (h *Host) Readdir(handle uint64, cookie uint64, bufLen uint32) ([]byte, wasip1.Errno) {
	f, ok := h.fileOf(handle)
	if !ok {
		return nil, wasip1.ErrnoBadf
	}
	h.mu.Lock()
	names, cached := h.dirstream[handle]
	h.mu.Unlock()
	if cookie == 0 || !cached {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, errnoOf(err)
		}
		var err error
		names, err = f.Readdirnames(-1)
		if err != nil {
			return nil, errnoOf(err)
		}
		h.mu.Lock()
		h.dirstream[handle] = names
		h.mu.Unlock()
	}
	var out []byte
	for i := int(cookie); i < len(names); i++ {
		name := names[i]
		de := wasip1.Dirent{Next: uint64(i + 1), Namelen: uint32(len(name))}
		if int(de.Size())+len(out) > int(bufLen) {
			break
		}
		header := de.Marshal()
		out = append(out, header[:]...)
		out = append(out, name...)
	}
	return out, wasip1.ErrnoSuccess
}

func (h *Host) Renumber(fromHandle, toHandle uint64) wasip1.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()
	src, ok := h.files[fromHandle]
	if !ok {
		return wasip1.ErrnoBadf
	}
	if old, exists := h.files[toHandle]; exists {
		_ = old.Close()
	}
	h.files[toHandle] = src
	delete(h.files, fromHandle)
	delete(h.dirstream, toHandle)
	if names, ok := h.dirstream[fromHandle]; ok {
		h.dirstream[toHandle] = names
		delete(h.dirstream, fromHandle)
	}
	return wasip1.ErrnoSuccess
}

func (h *Host) ClockTimeGet(clockID uint32) (uint64, wasip1.Errno) {
	return uint64(time.Now().UnixNano()), wasip1.ErrnoSuccess
}

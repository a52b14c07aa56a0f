//go:build linux

package hostos

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kateinoigakukun/wasi-vfs-go/vfs"
	"github.com/kateinoigakukun/wasi-vfs-go/wasip1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	h := NewHost()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	handle := h.register(f)

	buf := make([]byte, 5)
	n, errno := h.Read(handle, buf)
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	assert.Equal(t, "hello", string(buf[:n]))

	n, errno = h.Pwrite(handle, []byte("HI"), 0)
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	assert.Equal(t, 2, n)

	out := make([]byte, 2)
	n, errno = h.Pread(handle, out, 0)
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	assert.Equal(t, "HI", string(out[:n]))
}

func TestHostCloseInvalidatesHandle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	h := NewHost()
	f, err := os.Open(path)
	require.NoError(t, err)
	handle := h.register(f)

	require.Equal(t, wasip1.ErrnoSuccess, h.Close(handle))
	_, errno := h.Read(handle, make([]byte, 1))
	assert.Equal(t, wasip1.ErrnoBadf, errno)
}

func TestHostPathOpenAndUnlink(t *testing.T) {
	dir := t.TempDir()
	h := NewHost()
	dirHandle, err := h.Preopen(dir, "/")
	require.NoError(t, err)

	base := wasip1.Rights(vfs.RightFDRead | vfs.RightFDWrite)
	fileHandle, errno := h.PathOpen(dirHandle, "new.txt", wasip1.LookupSymlinkFollow,
		wasip1.OflagsCreat, base, base, 0)
	require.Equal(t, wasip1.ErrnoSuccess, errno)

	n, errno := h.Write(fileHandle, []byte("data"))
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	assert.Equal(t, 4, n)
	require.Equal(t, wasip1.ErrnoSuccess, h.Close(fileHandle))

	got, err := os.ReadFile(filepath.Join(dir, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	errno = h.PathUnlinkFile(dirHandle, "new.txt")
	assert.Equal(t, wasip1.ErrnoSuccess, errno)
	_, err = os.Stat(filepath.Join(dir, "new.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestHostPathFilestatGetReportsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	h := NewHost()
	dirHandle, err := h.Preopen(dir, "/")
	require.NoError(t, err)

	st, errno := h.PathFilestatGet(dirHandle, "sub", wasip1.LookupSymlinkFollow)
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	assert.Equal(t, wasip1.FiletypeDirectory, st.Filetype)
}

func TestHostPathSymlinkAndReadlink(t *testing.T) {
	dir := t.TempDir()
	h := NewHost()
	dirHandle, err := h.Preopen(dir, "/")
	require.NoError(t, err)

	require.Equal(t, wasip1.ErrnoSuccess, h.PathSymlink("target", dirHandle, "link"))
	target, errno := h.PathReadlink(dirHandle, "link", 64)
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	assert.Equal(t, "target", target)
}

func TestHostPathRename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.txt"), []byte("x"), 0o644))

	h := NewHost()
	dirHandle, err := h.Preopen(dir, "/")
	require.NoError(t, err)

	errno := h.PathRename(dirHandle, "old.txt", dirHandle, "new.txt")
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	_, err = os.Stat(filepath.Join(dir, "new.txt"))
	assert.NoError(t, err)
}

func TestHostReaddirListsEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0o644))

	h := NewHost()
	dirHandle, err := h.Preopen(dir, "/")
	require.NoError(t, err)

	data, errno := h.Readdir(dirHandle, 0, 4096)
	require.Equal(t, wasip1.ErrnoSuccess, errno)
	assert.NotEmpty(t, data)
}

// A buffer too small to hold every entry forces repeated Readdir calls;
// os.File.Readdirnames consumes the OS stream as it reads, so a naive
// re-read-per-call implementation would see only what the previous call
// left unread and re-index it from zero, producing duplicates and gaps.
func TestHostReaddirPaginatesWithoutDuplicates(t *testing.T) {
	dir := t.TempDir()
	const count = 20
	want := map[string]bool{}
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("file-%02d.txt", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
		want[name] = true
	}

	h := NewHost()
	dirHandle, err := h.Preopen(dir, "/")
	require.NoError(t, err)

	got := map[string]int{}
	var cookie uint64
	for iterations := 0; iterations < count+1; iterations++ {
		data, errno := h.Readdir(dirHandle, cookie, 64)
		require.Equal(t, wasip1.ErrnoSuccess, errno)
		if len(data) == 0 {
			break
		}
		off := 0
		for off < len(data) {
			next := binary.LittleEndian.Uint64(data[off:])
			namelen := binary.LittleEndian.Uint32(data[off+16:])
			name := string(data[off+24 : off+24+int(namelen)])
			got[name]++
			cookie = next
			off += 24 + int(namelen)
		}
	}

	assert.Len(t, got, count, "every entry must be seen exactly once across the paginated walk")
	for name := range want {
		assert.Equal(t, 1, got[name], "entry %q must not be duplicated or skipped", name)
	}
}

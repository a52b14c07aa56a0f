package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kateinoigakukun/wasi-vfs-go/hostos"
	"github.com/kateinoigakukun/wasi-vfs-go/pack"
	"github.com/kateinoigakukun/wasi-vfs-go/vfs"
	"github.com/kateinoigakukun/wasi-vfs-go/wasip1"
	"github.com/spf13/cobra"
)

var servePreviewNormalize bool

// serve-preview is not a guest runtime (driving an actual WASM instance is
// out of scope here); it wires a Loader, a VFS and a Runtime exactly the
// way an embedding host would, then runs one path_open/fd_read/fd_close
// round trip so the interposition layer can be exercised from the CLI
// without a compiled guest module.
var servePreviewCmd = &cobra.Command{
	Use:   "serve-preview <image-file> <guest-path>",
	Short: "Load a packed image into a Runtime and read one file through it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		v := vfs.New(8, wallClock{})
		loader := pack.NewLoader(v, pack.Options{NormalizeNames: servePreviewNormalize})
		if err := loader.Repack(data); err != nil {
			return err
		}

		rt := wasip1.NewRuntime(v, hostos.NewHost())
		return readOnePath(v, rt, args[1])
	},
}

func init() {
	servePreviewCmd.Flags().BoolVar(&servePreviewNormalize, "normalize-names", true, "NFC-normalize names while loading the image")
	rootCmd.AddCommand(servePreviewCmd)
}

// wallClock is the vfs.HostClock handed to vfs.New, reading the process
// clock; a packed image carries no clock of its own. poll_oneoff's clock
// subscriptions go to the hostos.Host instead.
type wallClock struct{}

func (wallClock) Now(clockID uint32) (uint64, error) { return uint64(time.Now().UnixNano()), nil }

// readOnePath opens a preopen fd for whichever mount covers guestPath, then
// drives the Runtime's path_open/fd_read/fd_close the way an embedding guest
// would, and writes the file's contents to stdout.
func readOnePath(v *vfs.VFS, rt *wasip1.Runtime, guestPath string) error {
	mnt, remainder, ok := v.Mounts.ResolveMount(guestPath)
	if !ok {
		return fmt.Errorf("no mount covers %s", guestPath)
	}
	preopenFD := v.OpenAt(mnt, mnt.Root, vfs.RightsAll, vfs.RightsAll, 0)
	defer v.Close(preopenFD)

	fd, errno := rt.PathOpen(wasip1.Fd(preopenFD), remainder, wasip1.LookupSymlinkFollow, 0, wasip1.Rights(vfs.RightFDRead), 0, 0)
	if errno != wasip1.ErrnoSuccess {
		return fmt.Errorf("path_open %s: %s", guestPath, errno)
	}
	defer rt.FdClose(fd)

	buf := make([]byte, 4096)
	n, errno := rt.FdRead(fd, buf)
	if errno != wasip1.ErrnoSuccess {
		return fmt.Errorf("fd_read %s: %s", guestPath, errno)
	}
	os.Stdout.Write(buf[:n])
	return nil
}

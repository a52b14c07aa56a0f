package main

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kateinoigakukun/wasi-vfs-go/pack"
	"github.com/spf13/cobra"
)

var (
	packPrefix string
	packOut    string
	packZstd   bool
)

var packCmd = &cobra.Command{
	Use:   "pack <host-dir>",
	Short: "Pack a host directory tree into a wasi-vfs image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := walkDir(args[0])
		if err != nil {
			return err
		}
		img := &pack.Image{Mounts: []pack.MountImage{{Prefix: packPrefix, Root: root}}}
		data := pack.Encode(img)
		if packZstd {
			data, err = pack.Compress(data)
			if err != nil {
				return err
			}
		}
		log.WithField("bytes", len(data)).Info("packed image")
		if packOut == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		return os.WriteFile(packOut, data, 0o644)
	},
}

func init() {
	packCmd.Flags().StringVar(&packPrefix, "prefix", "/", "guest mount prefix for the packed tree")
	packCmd.Flags().StringVarP(&packOut, "out", "o", "-", "output path, or - for stdout")
	packCmd.Flags().BoolVar(&packZstd, "zstd", false, "compress the image with zstd")
	rootCmd.AddCommand(packCmd)
}

// walkDir builds a pack.Node tree rooted at dir, recursively, following the
// host's symlinks into their target path text (not their resolved content),
// since a symlink record only ever carries an unresolved target string.
func walkDir(dir string) (pack.Node, error) {
	root := pack.Node{Kind: pack.KindDir}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return root, err
	}
	for _, e := range entries {
		child, err := packEntry(filepath.Join(dir, e.Name()), e)
		if err != nil {
			return root, err
		}
		root.Entries = append(root.Entries, child)
	}
	return root, nil
}

func packEntry(path string, e fs.DirEntry) (pack.Node, error) {
	info, err := e.Info()
	if err != nil {
		return pack.Node{}, err
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return pack.Node{}, err
		}
		return pack.Node{Name: e.Name(), Kind: pack.KindSymlink, Bytes: []byte(target)}, nil
	case e.IsDir():
		n, err := walkDir(path)
		if err != nil {
			return pack.Node{}, err
		}
		n.Name = e.Name()
		n.Kind = pack.KindDir
		return n, nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return pack.Node{}, err
		}
		return pack.Node{Name: e.Name(), Kind: pack.KindFile, Bytes: data}, nil
	}
}

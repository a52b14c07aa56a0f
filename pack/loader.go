package pack

import (
	"fmt"

	"github.com/kateinoigakukun/wasi-vfs-go/vfs"
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// Options configures a Loader. The zero value normalizes nothing and
// requires every mount to be a fresh prefix.
type Options struct {
	// NormalizeNames rewrites every decoded name to NFC before it reaches
	// the graph, so an image packed on a filesystem that stores NFD
	// filenames (notably macOS's HFS+/APFS) doesn't end up with entries
	// that look identical but compare unequal to a guest's literal path.
	NormalizeNames bool

	// ShadowsHostFD is passed through to vfs.MountTable.AddMount for every
	// mount in the image: the VFS wins over a same-prefix host preopen.
	ShadowsHostFD bool
}

// Loader materializes decoded packed images into a vfs.VFS, standing in for
// the wasi_vfs_pack_fs startup entry point. It is a Loader method rather
// than a vfs.VFS method because the image format is owned by this package,
// not vfs; embedders call loader.Repack the same way they would call a
// method, just via an explicit receiver value.
type Loader struct {
	VFS  *vfs.VFS
	Opts Options
}

// NewLoader returns a Loader bound to v.
func NewLoader(v *vfs.VFS, opts Options) *Loader {
	return &Loader{VFS: v, Opts: opts}
}

// Repack decodes image and replaces the Loader's VFS graph and mount table
// with its contents, discarding whatever was mounted before. Repack is a
// full graph replacement, not an incremental merge: g.Reset() reuses the
// arena's index space, so any fd still open against the prior generation
// is force-closed first — its NodeID/LinkID would otherwise alias an
// unrelated node in the new graph instead of failing closed.
func (l *Loader) Repack(image []byte) error {
	img, err := Decode(image)
	if err != nil {
		return errors.Wrap(err, "pack: decode image")
	}
	g := l.VFS.Graph
	l.VFS.FDs.CloseAllVFS()
	g.Reset()
	l.VFS.Mounts.Reset()
	for _, m := range img.Mounts {
		root := g.NewPreopenDir()
		if err := l.VFS.Mounts.AddMount(m.Prefix, root, l.Opts.ShadowsHostFD); err != nil {
			return errors.Wrapf(err, "pack: mount %q", m.Prefix)
		}
		if err := l.materializeChildren(root, m.Root.Entries); err != nil {
			return errors.Wrapf(err, "pack: mount %q", m.Prefix)
		}
	}
	return nil
}

func (l *Loader) materializeChildren(parent vfs.LinkID, entries []Node) error {
	for _, n := range entries {
		name := n.Name
		if l.Opts.NormalizeNames {
			name = norm.NFC.String(name)
		}
		switch n.Kind {
		case KindDir:
			lid, err := l.VFS.Graph.NewDir(parent, name)
			if err != nil {
				return errors.Wrapf(err, "mkdir %q", name)
			}
			if err := l.materializeChildren(lid, n.Entries); err != nil {
				return err
			}
		case KindFile:
			if _, err := l.VFS.Graph.NewFile(parent, name, n.Bytes); err != nil {
				return errors.Wrapf(err, "mkfile %q", name)
			}
		case KindSymlink:
			if _, err := l.VFS.Graph.NewSymlink(parent, name, string(n.Bytes)); err != nil {
				return errors.Wrapf(err, "mksymlink %q", name)
			}
		default:
			return fmt.Errorf("pack: unknown record kind %d for %q", n.Kind, name)
		}
	}
	return nil
}

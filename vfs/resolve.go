package vfs

import (
	"strings"

	"github.com/kateinoigakukun/wasi-vfs-go/vfserr"
)

// maxSymlinkHops bounds symlink expansion during resolution; a chain of
// exactly this many hops still succeeds, one more fails LOOP.
const maxSymlinkHops = 32

// Resolve walks path from base, honoring ".", "..", repeated slashes and
// (subject to followFinalSymlink) symlink expansion.
//
// An absolute path (leading '/') restarts resolution at base's mount root.
// base must belong to some mount; Resolve never crosses into the host ABI
// namespace — that decision is made by the mount table before Resolve is
// called.
func (g *Graph) Resolve(base LinkID, path string, followFinalSymlink bool) (LinkID, error) {
	return g.resolve(base, path, followFinalSymlink, maxSymlinkHops)
}

func (g *Graph) resolve(base LinkID, path string, followFinalSymlink bool, hopsLeft int) (LinkID, error) {
	cur := base
	if strings.HasPrefix(path, "/") {
		cur = g.mountRoot(base)
	}
	trailingSlash := strings.HasSuffix(path, "/") && strings.Trim(path, "/") != ""

	rest := path
	for len(rest) > 0 {
		// skip leading slashes
		for len(rest) > 0 && rest[0] == '/' {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			break
		}
		i := strings.IndexByte(rest, '/')
		var comp string
		if i < 0 {
			comp, rest = rest, ""
		} else {
			comp, rest = rest[:i], rest[i+1:]
		}
		isFinal := len(strings.TrimLeft(rest, "/")) == 0

		if comp == "." {
			continue
		}

		curNode := g.N(g.L(cur).Node)
		if curNode.Kind != KindDir {
			return invalidLink, vfserr.NotDir
		}

		if comp == ".." {
			if parent := g.L(cur).Parent; parent != invalidLink {
				cur = parent
			} // else: at a mount root, stay put
			continue
		}

		child, ok := g.LookupDirent(cur, comp)
		if !ok {
			return invalidLink, vfserr.NotFound
		}

		childNode := g.N(g.L(child).Node)
		if childNode.Kind == KindFile && childNode.IsSymlink && (!isFinal || followFinalSymlink) {
			if hopsLeft <= 0 {
				return invalidLink, vfserr.Loop
			}
			target := string(childNode.Bytes)
			var startBase LinkID
			if strings.HasPrefix(target, "/") {
				startBase = g.mountRoot(cur)
			} else {
				// relative symlink target resolves against the symlink's
				// own containing directory, i.e. cur (the directory we
				// just looked comp up in), not child itself.
				startBase = cur
			}
			resolvedTarget, err := g.resolve(startBase, target, true, hopsLeft-1)
			if err != nil {
				return invalidLink, err
			}
			if isFinal {
				// only reached when followFinalSymlink is true, since the
				// guard above requires it for the final component.
				return resolvedTarget, nil
			}
			cur = resolvedTarget
			continue
		}

		cur = child
	}

	if trailingSlash && g.N(g.L(cur).Node).Kind != KindDir {
		return invalidLink, vfserr.NotDir
	}

	return cur, nil
}

// mountRoot walks a Link's Parent chain up to its root (the Link with no
// parent), which is the anchor for an absolute path or an absolute symlink
// target reached from base.
func (g *Graph) mountRoot(base LinkID) LinkID {
	cur := base
	for {
		p := g.L(cur).Parent
		if p == invalidLink {
			return cur
		}
		cur = p
	}
}

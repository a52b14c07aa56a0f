package vfs

import "sort"

// DirEntry is one entry of a directory snapshot, as produced by Graph.Snapshot
// and consumed by the interposition layer's fd_readdir implementation.
// "." and ".." are never included — the host ABI's libc synthesizes them.
type DirEntry struct {
	Name      string
	Link      LinkID
	Node      NodeID
	Kind      NodeKind
	IsSymlink bool
}

// Snapshot returns dirNode's entries in a stable, deterministic order
// (lexicographic by name), so a cookie-paginated fd_readdir walk stays
// monotonic across calls.
func (g *Graph) Snapshot(dirNode NodeID) []DirEntry {
	n := g.N(dirNode)
	out := make([]DirEntry, 0, len(n.Entries))
	for name, lid := range n.Entries {
		l := g.L(lid)
		cn := g.N(l.Node)
		out = append(out, DirEntry{Name: name, Link: lid, Node: l.Node, Kind: cn.Kind, IsSymlink: cn.IsSymlink})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ReadDir returns o's cached directory snapshot, building it on first use
// (cookie 0) and reusing it for the lifetime of the handle so that a
// multi-call pagination walk sees a consistent listing even if the
// directory mutates mid-walk.
func (o *OpenFile) ReadDir(g *Graph) []DirEntry {
	if !o.dirSnapshotBuilt {
		o.dirSnapshot = g.Snapshot(o.Node)
		o.dirSnapshotBuilt = true
	}
	return o.dirSnapshot
}

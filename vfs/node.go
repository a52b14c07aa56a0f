// Package vfs implements the in-memory inode graph, path resolver, mount
// table and file description table that back the WASI preview-1
// interposition layer in package wasip1.
//
// Everything here is single-threaded by design: the host ABI this package
// interposes on is defined per guest instance and never preempts a call
// with another, so the Graph carries no locks. Callers that drive a Graph
// from more than one goroutine must serialize externally.
package vfs

import (
	"time"

	"github.com/google/uuid"
	"github.com/kateinoigakukun/wasi-vfs-go/vfserr"
)

// NodeKind tags a Node as a file or a directory. Symlinks are files with
// IsSymlink set: their byte content is the link target.
type NodeKind uint8

const (
	KindFile NodeKind = iota
	KindDir
)

// NodeID indexes into Graph.nodes. The zero value is never valid.
type NodeID uint32

// LinkID indexes into Graph.links. The zero value is never valid.
type LinkID uint32

const (
	invalidNode NodeID = 0
	invalidLink LinkID = 0
)

// Node is a tagged file-or-directory. Nodes have no name and no single
// parent of their own: names and parents live on Links.
type Node struct {
	Kind      NodeKind
	IsSymlink bool // only meaningful when Kind == KindFile

	// Bytes holds file content, or a symlink's unresolved target path.
	Bytes []byte

	// Entries maps a directory's child names to the Link that owns that
	// directory slot. Only meaningful when Kind == KindDir.
	Entries map[string]LinkID

	// refs counts Links pointing at this Node; pins counts open file
	// descriptions referencing it. The Node is released (its slot in
	// Graph.nodes zeroed) only when both drop to zero, so an unlinked but
	// still-open file keeps serving reads until the last fd referencing it
	// closes.
	refs, pins int

	Atim, Mtim, Ctim time.Time
}

// Link is a named reference to a Node plus a back-reference to its parent
// Link, so ".." can be resolved without searching the parent's directory
// for a matching entry. Multiple Links may reference the same Node (hard
// links); each carries its own parent.
type Link struct {
	Node   NodeID
	Parent LinkID // invalidLink for a mount root
	Name   string // empty for a mount root

	// generation ties this link to the image generation that created it
	// (see Graph.Generation), so stale fds from a replaced image never
	// alias a filestat's inode number with a live one after a Repack.
	generation uuid.UUID
}

// Graph is the inode/link arena. Nodes and Links are addressed by dense
// integer handles rather than pointers, an arena-of-indices shape that
// keeps hard-linking cycle-safe without Go pointer cycles.
type Graph struct {
	nodes []Node // nodes[0] is an unused sentinel; invalidNode never resolves
	links []Link // links[0] is an unused sentinel; invalidLink never resolves

	freeNodes []NodeID
	freeLinks []LinkID

	generation uuid.UUID
}

// NewGraph returns an empty arena with sentinel slot 0 reserved on both
// tables so the zero value of NodeID/LinkID is reliably invalid.
func NewGraph() *Graph {
	g := &Graph{
		nodes:      make([]Node, 1),
		links:      make([]Link, 1),
		generation: uuid.New(),
	}
	return g
}

// Generation identifies the current image load; it changes on every Repack.
func (g *Graph) Generation() uuid.UUID { return g.generation }

// Reset discards every node and link and assigns a fresh generation,
// preparing the graph for a new image unpack (used by Repack).
func (g *Graph) Reset() {
	g.nodes = g.nodes[:1]
	g.links = g.links[:1]
	g.freeNodes = g.freeNodes[:0]
	g.freeLinks = g.freeLinks[:0]
	g.generation = uuid.New()
}

func isReservedName(name string) bool {
	return name == "" || name == "." || name == ".."
}

func hasSlash(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			return true
		}
	}
	return false
}

// validName rejects "." and ".." and any name containing '/'; callers
// enforce this at creation time so such names can never enter the graph.
func validName(name string) bool {
	return !isReservedName(name) && !hasSlash(name)
}

func (g *Graph) allocNode(n Node) NodeID {
	if len(g.freeNodes) > 0 {
		id := g.freeNodes[len(g.freeNodes)-1]
		g.freeNodes = g.freeNodes[:len(g.freeNodes)-1]
		g.nodes[id] = n
		return id
	}
	g.nodes = append(g.nodes, n)
	return NodeID(len(g.nodes) - 1)
}

func (g *Graph) allocLink(l Link) LinkID {
	l.generation = g.generation
	if len(g.freeLinks) > 0 {
		id := g.freeLinks[len(g.freeLinks)-1]
		g.freeLinks = g.freeLinks[:len(g.freeLinks)-1]
		g.links[id] = l
		return id
	}
	g.links = append(g.links, l)
	return LinkID(len(g.links) - 1)
}

// N returns the Node a NodeID addresses. Panics on an out-of-range id: an
// invalid NodeID reaching here is always an internal bug, never guest input.
func (g *Graph) N(id NodeID) *Node { return &g.nodes[id] }

// L returns the Link a LinkID addresses.
func (g *Graph) L(id LinkID) *Link { return &g.links[id] }

// NewPreopenDir creates a root directory Node with no parent — the entry
// point for a mount.
func (g *Graph) NewPreopenDir() LinkID {
	now := timeNow()
	nid := g.allocNode(Node{Kind: KindDir, Entries: map[string]LinkID{}, Atim: now, Mtim: now, Ctim: now})
	g.N(nid).refs++
	return g.allocLink(Link{Node: nid, Parent: invalidLink, Name: ""})
}

// NewDir creates a directory Node and inserts it into parent under name.
func (g *Graph) NewDir(parent LinkID, name string) (LinkID, error) {
	if !validName(name) {
		return invalidLink, vfserr.Invalid
	}
	pl := g.L(parent)
	pn := g.N(pl.Node)
	if pn.Kind != KindDir {
		return invalidLink, vfserr.NotDir
	}
	if _, exists := pn.Entries[name]; exists {
		return invalidLink, vfserr.Exists
	}
	now := timeNow()
	nid := g.allocNode(Node{Kind: KindDir, Entries: map[string]LinkID{}, Atim: now, Mtim: now, Ctim: now})
	g.N(nid).refs++
	lid := g.allocLink(Link{Node: nid, Parent: parent, Name: name})
	pn.Entries[name] = lid
	pn.Mtim = now
	return lid, nil
}

// NewFile creates a file Node with the given initial bytes and inserts it
// into parent under name.
func (g *Graph) NewFile(parent LinkID, name string, bytes []byte) (LinkID, error) {
	return g.newFileNode(parent, name, bytes, false)
}

// NewSymlink creates a symlink File node whose bytes are the unresolved
// target path, exactly as path_symlink receives it.
func (g *Graph) NewSymlink(parent LinkID, name, target string) (LinkID, error) {
	return g.newFileNode(parent, name, []byte(target), true)
}

func (g *Graph) newFileNode(parent LinkID, name string, bytes []byte, symlink bool) (LinkID, error) {
	if !validName(name) {
		return invalidLink, vfserr.Invalid
	}
	pl := g.L(parent)
	pn := g.N(pl.Node)
	if pn.Kind != KindDir {
		return invalidLink, vfserr.NotDir
	}
	if _, exists := pn.Entries[name]; exists {
		return invalidLink, vfserr.Exists
	}
	now := timeNow()
	nid := g.allocNode(Node{Kind: KindFile, IsSymlink: symlink, Bytes: bytes, Atim: now, Mtim: now, Ctim: now})
	g.N(nid).refs++
	lid := g.allocLink(Link{Node: nid, Parent: parent, Name: name})
	pn.Entries[name] = lid
	pn.Mtim = now
	return lid, nil
}

// InsertDirent inserts an existing Link into dir under name, for hard
// links and renames. The Link's own Parent/Name are NOT the same object as
// dir's entry — the inserted link's Parent field must be dir so ".."
// through *this* link returns to dir, even though the link was created
// pointing at the same Node from elsewhere.
func (g *Graph) InsertDirent(dir LinkID, name string, target NodeID) (LinkID, error) {
	if !validName(name) {
		return invalidLink, vfserr.Invalid
	}
	dn := g.N(g.L(dir).Node)
	if dn.Kind != KindDir {
		return invalidLink, vfserr.NotDir
	}
	if _, exists := dn.Entries[name]; exists {
		return invalidLink, vfserr.Exists
	}
	lid := g.allocLink(Link{Node: target, Parent: dir, Name: name})
	dn.Entries[name] = lid
	g.N(target).refs++
	dn.Mtim = timeNow()
	return lid, nil
}

// RemoveDirent removes name from dir's entries and returns the removed
// Link id, releasing the underlying Node if this was its last reference.
func (g *Graph) RemoveDirent(dir LinkID, name string) (LinkID, error) {
	dn := g.N(g.L(dir).Node)
	if dn.Kind != KindDir {
		return invalidLink, vfserr.NotDir
	}
	lid, ok := dn.Entries[name]
	if !ok {
		return invalidLink, vfserr.NotFound
	}
	delete(dn.Entries, name)
	dn.Mtim = timeNow()
	g.releaseNode(g.L(lid).Node)
	g.freeLinks = append(g.freeLinks, lid)
	return lid, nil
}

// LookupDirent looks up name in dir, returning (0, false) if absent.
func (g *Graph) LookupDirent(dir LinkID, name string) (LinkID, bool) {
	dn := g.N(g.L(dir).Node)
	if dn.Kind != KindDir {
		return invalidLink, false
	}
	lid, ok := dn.Entries[name]
	return lid, ok
}

func (g *Graph) releaseNode(id NodeID) {
	n := g.N(id)
	n.refs--
	g.maybeFreeNode(id)
}

func (g *Graph) maybeFreeNode(id NodeID) {
	n := g.N(id)
	if n.refs <= 0 && n.pins <= 0 {
		*n = Node{}
		g.freeNodes = append(g.freeNodes, id)
	}
}

// PinNode marks id as referenced by an open file description, preventing
// its release by RemoveDirent until UnpinNode is called a matching number
// of times.
func (g *Graph) PinNode(id NodeID) { g.N(id).pins++ }

// UnpinNode reverses PinNode, releasing the Node immediately if it is
// already unreferenced by any directory entry.
func (g *Graph) UnpinNode(id NodeID) {
	n := g.N(id)
	n.pins--
	g.maybeFreeNode(id)
}

// timeNow is overridable in tests for deterministic timestamps.
var timeNow = time.Now

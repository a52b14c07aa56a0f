package vfs

// Rights is a WASI preview-1 rights bitmask (fd_rights_base /
// fd_rights_inheriting). The bit order matches the host ABI's definition
// exactly so wasip1 can pass its own Rights type through without
// translation (it is a defined alias of this type).
type Rights uint64

// Right bits, in host-ABI order.
const (
	RightFDDatasync Rights = 1 << iota
	RightFDRead
	RightFDSeek
	RightFDFdstatSetFlags
	RightFDSync
	RightFDTell
	RightFDWrite
	RightFDAdvise
	RightFDAllocate
	RightPathCreateDirectory
	RightPathCreateFile
	RightPathLinkSource
	RightPathLinkTarget
	RightPathOpen
	RightFDReaddir
	RightPathReadlink
	RightPathRenameSource
	RightPathRenameTarget
	RightPathFilestatGet
	RightPathFilestatSetSize
	RightPathFilestatSetTimes
	RightFDFilestatGet
	RightFDFilestatSetSize
	RightFDFilestatSetTimes
	RightPathSymlink
	RightPathRemoveDirectory
	RightPathUnlinkFile
	RightPollFDReadwrite
	RightSockShutdown
	RightSockAccept
)

// RightsAll is the full rights set, the default inheriting-rights value
// for a freshly opened preopen.
const RightsAll Rights = 1<<30 - 1

// Has reports whether r grants every bit set in want.
func (r Rights) Has(want Rights) bool { return r&want == want }

// Narrowed reports whether candidate is a subset of r — used by
// fd_fdstat_set_rights, which may only narrow.
func (r Rights) Narrowed(candidate Rights) bool { return candidate&^r == 0 }

// FDFlags is a WASI preview-1 fdflags bitmask.
type FDFlags uint16

const (
	FDFlagAppend FDFlags = 1 << iota
	FDFlagDsync
	FDFlagNonblock
	FDFlagRsync
	FDFlagSync
)

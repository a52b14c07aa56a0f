// Package wasip1 implements the interposition layer: one function per
// file-oriented WASI preview-1 import the guest expects.
// Each function classifies its descriptor(s), resolves paths through
// package vfs or forwards to a Host collaborator, translates errors to the
// host ABI's numeric errno, and marshals results into the layouts below.
package wasip1

import (
	"fmt"

	"github.com/kateinoigakukun/wasi-vfs-go/vfserr"
)

// Errno is the host-ABI's numeric error code type. The enumeration and
// order match the WASI preview-1 errno table exactly (grounded on the
// retrieved wazero wasi_snapshot_preview1 package's Errno definition).
type Errno uint32

const (
	ErrnoSuccess Errno = iota
	Errno2big
	ErrnoAcces
	ErrnoAddrinuse
	ErrnoAddrnotavail
	ErrnoAfnosupport
	ErrnoAgain
	ErrnoAlready
	ErrnoBadf
	ErrnoBadmsg
	ErrnoBusy
	ErrnoCanceled
	ErrnoChild
	ErrnoConnaborted
	ErrnoConnrefused
	ErrnoConnreset
	ErrnoDeadlk
	ErrnoDestaddrreq
	ErrnoDom
	ErrnoDquot
	ErrnoExist
	ErrnoFault
	ErrnoFbig
	ErrnoHostunreach
	ErrnoIdrm
	ErrnoIlseq
	ErrnoInprogress
	ErrnoIntr
	ErrnoInval
	ErrnoIo
	ErrnoIsconn
	ErrnoIsdir
	ErrnoLoop
	ErrnoMfile
	ErrnoMlink
	ErrnoMsgsize
	ErrnoMultihop
	ErrnoNametoolong
	ErrnoNetdown
	ErrnoNetreset
	ErrnoNetunreach
	ErrnoNfile
	ErrnoNobufs
	ErrnoNodev
	ErrnoNoent
	ErrnoNoexec
	ErrnoNolck
	ErrnoNolink
	ErrnoNomem
	ErrnoNomsg
	ErrnoNoprotoopt
	ErrnoNospc
	ErrnoNosys
	ErrnoNotconn
	ErrnoNotdir
	ErrnoNotempty
	ErrnoNotrecoverable
	ErrnoNotsock
	ErrnoNotsup
	ErrnoNotty
	ErrnoNxio
	ErrnoOverflow
	ErrnoOwnerdead
	ErrnoPerm
	ErrnoPipe
	ErrnoProto
	ErrnoProtonosupport
	ErrnoPrototype
	ErrnoRange
	ErrnoRofs
	ErrnoSpipe
	ErrnoSrch
	ErrnoStale
	ErrnoTimedout
	ErrnoTxtbsy
	ErrnoXdev
	ErrnoNotcapable
)

func (e Errno) Error() string {
	if int(e) < len(errnoNames) {
		return errnoNames[e]
	}
	return fmt.Sprintf("errno(%d)", int(e))
}

var errnoNames = [...]string{
	"ESUCCESS", "E2BIG", "EACCES", "EADDRINUSE", "EADDRNOTAVAIL", "EAFNOSUPPORT",
	"EAGAIN", "EALREADY", "EBADF", "EBADMSG", "EBUSY", "ECANCELED", "ECHILD",
	"ECONNABORTED", "ECONNREFUSED", "ECONNRESET", "EDEADLK", "EDESTADDRREQ",
	"EDOM", "EDQUOT", "EEXIST", "EFAULT", "EFBIG", "EHOSTUNREACH", "EIDRM",
	"EILSEQ", "EINPROGRESS", "EINTR", "EINVAL", "EIO", "EISCONN", "EISDIR",
	"ELOOP", "EMFILE", "EMLINK", "EMSGSIZE", "EMULTIHOP", "ENAMETOOLONG",
	"ENETDOWN", "ENETRESET", "ENETUNREACH", "ENFILE", "ENOBUFS", "ENODEV",
	"ENOENT", "ENOEXEC", "ENOLCK", "ENOLINK", "ENOMEM", "ENOMSG", "ENOPROTOOPT",
	"ENOSPC", "ENOSYS", "ENOTCONN", "ENOTDIR", "ENOTEMPTY", "ENOTRECOVERABLE",
	"ENOTSOCK", "ENOTSUP", "ENOTTY", "ENXIO", "EOVERFLOW", "EOWNERDEAD",
	"EPERM", "EPIPE", "EPROTO", "EPROTONOSUPPORT", "EPROTOTYPE", "ERANGE",
	"EROFS", "ESPIPE", "ESRCH", "ESTALE", "ETIMEDOUT", "ETXTBSY", "EXDEV",
	"ENOTCAPABLE",
}

// FromError translates an internal VFS error (see package vfserr) to its
// host-ABI numeric code. A nil error maps to ErrnoSuccess; any error not
// recognized as one of vfserr's sentinels maps to ErrnoNotsup rather than
// leaking an internal Go error across the ABI boundary.
func FromError(err error) Errno {
	if err == nil {
		return ErrnoSuccess
	}
	code, ok := vfserr.LookupCode(err)
	if !ok {
		return ErrnoNotsup
	}
	switch code {
	case vfserr.CodeNotFound:
		return ErrnoNoent
	case vfserr.CodeNotDir:
		return ErrnoNotdir
	case vfserr.CodeIsDir:
		return ErrnoIsdir
	case vfserr.CodeExists:
		return ErrnoExist
	case vfserr.CodeInvalid:
		return ErrnoInval
	case vfserr.CodeNotCapable:
		return ErrnoNotcapable
	case vfserr.CodeCrossDevice:
		return ErrnoXdev
	case vfserr.CodeLoop:
		return ErrnoLoop
	case vfserr.CodeBufTooSmall:
		return ErrnoOverflow
	default:
		return ErrnoNotsup
	}
}

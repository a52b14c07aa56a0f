// Package vfserr defines the internal error taxonomy the VFS kernel raises
// and the mapping from each sentinel to its host-ABI numeric errno.
//
// Call sites compare with errors.Is and wrap with errors.Wrapf for path
// context; nothing here does string matching on error text.
package vfserr

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// Code is the host-ABI numeric errno a sentinel maps to. Values match the
// WASI preview-1 errno enumeration (see wasip1.Errno), not POSIX.
type Code uint16

// Host-ABI numeric codes.
const (
	CodeSuccess     Code = 0
	CodeNotFound    Code = 44
	CodeNotDir      Code = 54
	CodeIsDir       Code = 31
	CodeExists      Code = 20
	CodeInvalid     Code = 28
	CodeNotCapable  Code = 76
	CodeCrossDevice Code = 75
	CodeLoop        Code = 32
	CodeBufTooSmall Code = 61
	CodeUnsupported Code = 58
)

// sentinel is a leaf error carrying its host code. Wrapping with
// errors.Wrapf preserves Is/As against the sentinel.
type sentinel struct {
	name string
	code Code
}

func (s *sentinel) Error() string { return s.name }

// LookupCode extracts the host-ABI numeric errno from err, walking wrapped
// errors. It returns (0, false) for a nil or unrecognized error — callers
// treat unrecognized errors as CodeUnsupported (NOTSUP) rather than silently
// succeeding.
func LookupCode(err error) (Code, bool) {
	var s *sentinel
	if stderrors.As(err, &s) {
		return s.code, true
	}
	return 0, false
}

var (
	// NotFound is raised when a path component or directory entry is missing.
	NotFound = &sentinel{"NOENT", CodeNotFound}
	// NotDir is raised when a non-final path component is not a directory.
	NotDir = &sentinel{"NOTDIR", CodeNotDir}
	// IsDir is raised on operations (read/write bytes) attempted on a directory.
	IsDir = &sentinel{"ISDIR", CodeIsDir}
	// Exists is raised by O_CREAT|O_EXCL against an existing name.
	Exists = &sentinel{"EXIST", CodeExists}
	// Invalid is raised for bad flags, negative offsets, reserved names, etc.
	Invalid = &sentinel{"INVAL", CodeInvalid}
	// NotCapable is raised for a missing right or a sandbox escape attempt.
	NotCapable = &sentinel{"NOTCAPABLE", CodeNotCapable}
	// CrossDevice is raised by link/rename across mounts.
	CrossDevice = &sentinel{"XDEV", CodeCrossDevice}
	// Loop is raised when symlink expansion exceeds the bound.
	Loop = &sentinel{"LOOP", CodeLoop}
	// BufTooSmall is raised when a caller's buffer can't hold a result
	// (readlink) and a short write isn't an acceptable substitute.
	BufTooSmall = &sentinel{"OVERFLOW", CodeBufTooSmall}
	// Unsupported is raised for operations the VFS does not implement.
	Unsupported = &sentinel{"NOTSUP", CodeUnsupported}
)

// Wrap attaches path context to a sentinel without losing errors.Is-ability.
func Wrap(err error, op, path string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "%s %s", op, path)
}

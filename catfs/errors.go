package catfs

import (
	"errors"
	"fmt"
)

// Kind classifies the errors the core distinguishes (spec.md section 7).
type Kind int

const (
	// KindNone is the zero value, not a real error kind
	KindNone Kind = iota
	// KindSourceNotFound means the source path does not exist
	KindSourceNotFound
	// KindSourceIO is an I/O failure talking to the source
	KindSourceIO
	// KindCacheIO is an I/O failure talking to the cache
	KindCacheIO
	// KindCacheSpaceExhausted means the cache filesystem is full
	KindCacheSpaceExhausted
	// KindXattrUnsupported means the cache filesystem has no xattr support
	KindXattrUnsupported
	// KindStale is an internal validator signal, never returned to callers
	KindStale
	// KindCanceled means a pager was canceled before it could satisfy a waiter
	KindCanceled
	// KindNonSequentialWriteUnsupported is consumed internally by FileHandle.write
	KindNonSequentialWriteUnsupported
	// KindBadHandle means the caller supplied an unknown or already-released handle id
	KindBadHandle
	// KindInvalidArgument covers malformed requests (bad range, bad flags, ...)
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindSourceNotFound:
		return "SourceNotFound"
	case KindSourceIO:
		return "SourceIO"
	case KindCacheIO:
		return "CacheIO"
	case KindCacheSpaceExhausted:
		return "CacheSpaceExhausted"
	case KindXattrUnsupported:
		return "XattrUnsupported"
	case KindStale:
		return "Stale"
	case KindCanceled:
		return "Canceled"
	case KindNonSequentialWriteUnsupported:
		return "NonSequentialWriteUnsupported"
	case KindBadHandle:
		return "BadHandle"
	case KindInvalidArgument:
		return "InvalidArgument"
	default:
		return "None"
	}
}

// Error is the error type returned by every catfs operation that can
// fail. It carries a Kind so callers (notably the adapter) can map it
// to a single numeric protocol error deterministically, and it wraps
// the underlying cause so errors.Is/errors.As keep working against
// os/syscall errors.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("catfs: %s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("catfs: %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/errors.As
func (e *Error) Unwrap() error { return e.Err }

// newErr builds an *Error, wrapping a nil cause with the Kind's own message
func newErr(kind Kind, op, path string, err error) *Error {
	if err == nil {
		err = errors.New(kind.String())
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf extracts the Kind of err if it (or something it wraps) is a
// *Error, otherwise KindNone.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindNone
}

// Is implements errors.Is against bare Kind values, so callers can
// write errors.Is(err, catfs.KindStale) instead of KindOf(err) == ...
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// sentinel kinds satisfy the error interface so they can be used
// directly with errors.Is(err, catfs.KindStale) style comparisons
func (k Kind) Error() string { return k.String() }

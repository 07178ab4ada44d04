package catfs

import (
	"errors"
	"syscall"
)

// errorIsErrno reports whether err (possibly wrapped, e.g. by
// *os.PathError or *os.LinkError) is syscall.Errno want.
func errorIsErrno(err error, want syscall.Errno) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == want
}

// Errno maps a catfs error to the single numeric error the kernel
// protocol expects (spec.md section 7's deterministic table).
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindSourceNotFound:
		return syscall.ENOENT
	case KindSourceIO, KindCacheIO:
		return syscall.EIO
	case KindCacheSpaceExhausted:
		return syscall.ENOSPC
	case KindInvalidArgument:
		return syscall.EINVAL
	case KindBadHandle:
		return syscall.EBADF
	case KindCanceled:
		return syscall.EINTR
	default:
		if errors.Is(err, syscall.ENOENT) {
			return syscall.ENOENT
		}
		return syscall.EIO
	}
}

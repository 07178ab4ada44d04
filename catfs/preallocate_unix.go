//go:build linux

package catfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// preallocateFile mirrors the teacher's backend/local/preallocate_unix.go:
// try fallocate, and treat "not supported" as a soft failure rather
// than an error (some filesystems, e.g. some network mounts, reject it).
func preallocateFile(f *os.File, size int64) error {
	err := unix.Fallocate(int(f.Fd()), unix.FALLOC_FL_KEEP_SIZE, 0, size)
	if err == unix.ENOTSUP || err == unix.EOPNOTSUPP {
		return nil
	}
	return err
}

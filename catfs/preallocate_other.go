//go:build !linux

package catfs

import "os"

// preallocateFile is a no-op on platforms without fallocate; the
// cache file simply grows as the page-in writes to it.
func preallocateFile(f *os.File, size int64) error { return nil }

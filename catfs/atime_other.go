//go:build !linux

package catfs

import (
	"os"
	"time"
)

// accessTime falls back to mtime on platforms without a portable
// atime field in Go's stdlib stat wrapper.
func accessTime(info os.FileInfo) time.Time {
	return info.ModTime()
}

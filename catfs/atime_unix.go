//go:build linux

package catfs

import (
	"os"
	"syscall"
	"time"
)

// accessTime extracts the last-access time from a stat result, the
// same Stat_t field the teacher's backend/local/stat_unix.go reads
// (Atim on Linux, Atimespec on BSD/Darwin).
func accessTime(info os.FileInfo) time.Time {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(st.Atim.Sec, st.Atim.Nsec)
}

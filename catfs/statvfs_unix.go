//go:build linux

package catfs

import "golang.org/x/sys/unix"

// fsSpace is the free/total byte counts of the filesystem containing path.
type fsSpace struct {
	Free  uint64
	Total uint64
}

func statSpace(path string) (fsSpace, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return fsSpace{}, newErr(KindCacheIO, "statfs", path, err)
	}
	bsize := uint64(st.Bsize)
	return fsSpace{
		Free:  st.Bavail * bsize,
		Total: st.Blocks * bsize,
	}, nil
}

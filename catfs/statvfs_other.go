//go:build !linux

package catfs

import "errors"

// fsSpace is the free/total byte counts of the filesystem containing path.
type fsSpace struct {
	Free  uint64
	Total uint64
}

// statSpace has no portable implementation outside linux in this build;
// the governor treats the error as fatal to that pass rather than
// guessing at free space (spec.md section 7).
func statSpace(path string) (fsSpace, error) {
	return fsSpace{}, newErr(KindCacheIO, "statfs", path, errors.New("statfs unsupported on this platform"))
}

package catfs

import (
	"errors"
	"io"
	"os"
)

// cacheHandle is a typed wrapper around an open file descriptor on the
// cache tree (spec.md section 2, "Cache handle"). Distinct type from
// sourceHandle even though both currently wrap *os.File: the two sides
// translate errors into different Kinds (CacheIO vs SourceIO) and only
// the cache side has a preallocate helper for a file it is about to
// overwrite wholesale.
type cacheHandle struct {
	f    *os.File
	path string
}

func openCache(path string, flags openFlags) (*cacheHandle, error) {
	if err := ensureCacheDir(path); err != nil {
		return nil, newErr(KindCacheIO, "mkdir", path, err)
	}
	f, err := os.OpenFile(path, flags.osFlags(), 0o644)
	if err != nil {
		return nil, newErr(KindCacheIO, "open", path, err)
	}
	return &cacheHandle{f: f, path: path}, nil
}

func (h *cacheHandle) ReadAt(p []byte, off int64) (int, error) {
	n, err := h.f.ReadAt(p, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, newErr(KindCacheIO, "read", h.path, err)
	}
	return n, err
}

func (h *cacheHandle) WriteAt(p []byte, off int64) (int, error) {
	n, err := h.f.WriteAt(p, off)
	if err != nil {
		if isENOSPC(err) {
			return n, newErr(KindCacheSpaceExhausted, "write", h.path, err)
		}
		return n, newErr(KindCacheIO, "write", h.path, err)
	}
	return n, nil
}

func (h *cacheHandle) Truncate(size int64) error {
	if err := h.f.Truncate(size); err != nil {
		return newErr(KindCacheIO, "truncate", h.path, err)
	}
	return nil
}

func (h *cacheHandle) Sync() error {
	if err := h.f.Sync(); err != nil {
		return newErr(KindCacheIO, "fsync", h.path, err)
	}
	return nil
}

func (h *cacheHandle) Stat() (os.FileInfo, error) {
	fi, err := h.f.Stat()
	if err != nil {
		return nil, newErr(KindCacheIO, "stat", h.path, err)
	}
	return fi, nil
}

func (h *cacheHandle) Close() error {
	if err := h.f.Close(); err != nil {
		return newErr(KindCacheIO, "close", h.path, err)
	}
	return nil
}

// preallocate reserves size bytes on disk for the cache file up
// front, the same fallocate-with-fallback technique the teacher's
// backend/local/preallocate_unix.go uses, so a page-in's sequential
// writes don't fragment the cache file as it grows. Platform-specific
// implementations live in preallocate_*.go.
func (h *cacheHandle) preallocate(size int64) error {
	if size <= 0 {
		return nil
	}
	if err := preallocateFile(h.f, size); err != nil {
		return newErr(KindCacheIO, "fallocate", h.path, err)
	}
	return nil
}

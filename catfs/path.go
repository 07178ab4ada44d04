package catfs

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// canonical strips leading/trailing slashes and collapses "." / ".."
// components so that every path the core sees is a clean relative
// path, suitable for joining onto either root. Mirrors the teacher's
// own path-cleaning helpers (fs/fspath) but simplified to the local,
// single-rooted case catfs needs.
func canonical(p string) string {
	p = filepath.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// sourcePath joins a canonical relative path onto the source root
func (c *Core) sourcePath(rel string) string {
	return filepath.Join(c.opt.SourceRoot, canonical(rel))
}

// cachePath joins a canonical relative path onto the cache root
func (c *Core) cachePath(rel string) string {
	return filepath.Join(c.opt.CacheRoot, canonical(rel))
}

// attrs is the subset of a SourceFile's metadata the core needs: its
// size, modification time, and (if the source is an object-store
// gateway) an opaque entity tag. statSource populates it from os.Stat
// only; EntityTag is part of the fingerprint but nothing in this
// package sets it.
type attrs struct {
	Size    int64
	ModTime time.Time
	IsDir   bool
	EntityTag string
}

// statSource stats the source path and returns its attrs. EntityTag is
// always left empty, so the fingerprint covers only mtime and size
// (spec.md section 4.1).
func (c *Core) statSource(rel string) (attrs, error) {
	fi, err := os.Stat(c.sourcePath(rel))
	if err != nil {
		return attrs{}, err
	}
	return attrs{Size: fi.Size(), ModTime: fi.ModTime(), IsDir: fi.IsDir()}, nil
}

// ensureCacheDir makes sure the parent directory of a cache path
// exists, since the cache tree mirrors the source tree lazily (only
// paths that have actually been opened get a cache twin).
func ensureCacheDir(cachePath string) error {
	return os.MkdirAll(filepath.Dir(cachePath), 0o755)
}

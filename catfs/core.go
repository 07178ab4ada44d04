// Package catfs implements a pass-through caching filesystem core: a
// source tree and a cache tree, kept coherent by per-file fingerprints
// and hydrated lazily by background pagers. Core is the façade an
// adapter (e.g. package fuseadapter) drives; it owns no kernel-protocol
// knowledge of its own (spec.md section 1, section 6).
package catfs

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/kahing/catfs/internal/catlog"
	"github.com/kahing/catfs/internal/xattrs"
)

// Core is the top-level façade: one Core per mount, owning the handle
// table, the per-path pager registry, and the free-space governor.
// Mirrors the teacher's vfs.VFS, which plays the analogous role of
// "the thing cmd/mount wires to the kernel adapter".
type Core struct {
	opt Options

	handles *HandleTable

	pagerMu sync.Mutex
	pagers  map[string]*Pager

	governor *Governor
}

// NewCore validates opt, probes both roots, and starts the governor.
// Per spec.md section 7, a cache filesystem without xattr support is a
// fatal configuration error rather than something callers can proceed
// without: the whole coherence model rests on the fingerprint xattr.
func NewCore(opt Options) (*Core, error) {
	if opt.SourceRoot == "" || opt.CacheRoot == "" {
		return nil, newErr(KindInvalidArgument, "mount", "", os.ErrInvalid)
	}
	if opt.GovernorInterval == 0 {
		def := DefaultOptions()
		opt.GovernorInterval = def.GovernorInterval
	}

	srcInfo, err := os.Stat(opt.SourceRoot)
	if err != nil {
		return nil, newErr(KindSourceNotFound, "mount", opt.SourceRoot, err)
	}
	if !srcInfo.IsDir() {
		return nil, newErr(KindInvalidArgument, "mount", opt.SourceRoot, os.ErrInvalid)
	}
	if err := os.MkdirAll(opt.CacheRoot, 0o755); err != nil {
		return nil, newErr(KindCacheIO, "mount", opt.CacheRoot, err)
	}
	if err := xattrs.Probe(opt.CacheRoot); err != nil {
		return nil, newErr(KindXattrUnsupported, "mount", opt.CacheRoot, err)
	}

	c := &Core{
		opt:     opt,
		handles: newHandleTable(),
		pagers:  make(map[string]*Pager),
	}
	c.governor = newGovernor(c)
	c.governor.start()

	catlog.Infof(opt.SourceRoot, "mounted source=%s cache=%s free=%s", opt.SourceRoot, opt.CacheRoot, opt.Free)
	return c, nil
}

// Close stops the governor. It does not close any still-open handles;
// the adapter is expected to have released them already.
func (c *Core) Close() error {
	c.governor.stop()
	return nil
}

// Attr is the subset of metadata reported back to the kernel for
// getattr/lookup/readdir (spec.md section 6). It is always read
// straight from the source: catfs caches file contents, never metadata
// (spec.md section 9, Open Question "no metadata caching").
type Attr struct {
	Size    int64
	ModTime time.Time
	IsDir   bool
	Mode    os.FileMode
	UID     uint32
	GID     uint32
}

// Getattr implements spec.md section 6's getattr passthrough: stat the
// source directly, applying any UID/GID override from Options.
func (c *Core) Getattr(rel string) (Attr, error) {
	rel = canonical(rel)
	fi, err := os.Stat(c.sourcePath(rel))
	if err != nil {
		return Attr{}, newErr(KindSourceNotFound, "getattr", rel, err)
	}
	return c.toAttr(fi), nil
}

// Lookup implements spec.md section 6's lookup: identical to Getattr,
// since catfs has no separate name-to-inode cache of its own.
func (c *Core) Lookup(rel string) (Attr, error) {
	return c.Getattr(rel)
}

// Readdir implements spec.md section 6's readdir passthrough.
func (c *Core) Readdir(rel string) ([]os.DirEntry, error) {
	rel = canonical(rel)
	ents, err := os.ReadDir(c.sourcePath(rel))
	if err != nil {
		return nil, newErr(KindSourceIO, "readdir", rel, err)
	}
	return ents, nil
}

// Mkdir implements spec.md section 6's mkdir: source-only, since
// directories are never cached (only regular file contents are).
func (c *Core) Mkdir(rel string, mode os.FileMode) error {
	rel = canonical(rel)
	if err := os.Mkdir(c.sourcePath(rel), mode); err != nil {
		return newErr(KindSourceIO, "mkdir", rel, err)
	}
	return nil
}

// Rmdir implements spec.md section 6's rmdir: source-only; a stray
// cache twin (there shouldn't be one, directories aren't cached) is
// left for the governor to ignore (it has no fingerprint xattr).
func (c *Core) Rmdir(rel string) error {
	rel = canonical(rel)
	if err := os.Remove(c.sourcePath(rel)); err != nil {
		return newErr(KindSourceIO, "rmdir", rel, err)
	}
	return nil
}

// Unlink implements spec.md section 6's unlink: remove from the
// source, then best-effort remove the cache twin and cancel any
// in-flight pager so it doesn't resurrect the file.
func (c *Core) Unlink(rel string) error {
	rel = canonical(rel)
	if err := os.Remove(c.sourcePath(rel)); err != nil {
		return newErr(KindSourceIO, "unlink", rel, err)
	}
	if p, ok := c.lookupPager(rel); ok {
		p.cancel()
	}
	_ = os.Remove(c.cachePath(rel))
	return nil
}

// Rename implements spec.md section 6's rename: source rename first
// (the operation of record), then the cache twin is moved on a
// best-effort basis so the fingerprint and contents travel with it;
// failure to move the cache twin is not fatal, just a forced re-page
// on next open under the new name.
func (c *Core) Rename(relOld, relNew string) error {
	relOld, relNew = canonical(relOld), canonical(relNew)
	if err := os.Rename(c.sourcePath(relOld), c.sourcePath(relNew)); err != nil {
		return newErr(KindSourceIO, "rename", relOld, err)
	}
	if p, ok := c.lookupPager(relOld); ok {
		p.cancel()
	}
	newCache := c.cachePath(relNew)
	if err := ensureCacheDir(newCache); err == nil {
		_ = os.Rename(c.cachePath(relOld), newCache)
	}
	return nil
}

// Symlink/Readlink implement spec.md section 6's symlink passthrough:
// links are never cached.
func (c *Core) Symlink(target, rel string) error {
	rel = canonical(rel)
	if err := os.Symlink(target, c.sourcePath(rel)); err != nil {
		return newErr(KindSourceIO, "symlink", rel, err)
	}
	return nil
}

func (c *Core) Readlink(rel string) (string, error) {
	rel = canonical(rel)
	target, err := os.Readlink(c.sourcePath(rel))
	if err != nil {
		return "", newErr(KindSourceIO, "readlink", rel, err)
	}
	return target, nil
}

// Chmod/Chown/Utimens implement spec.md section 6's metadata
// passthroughs: applied to the source only, never to the cache twin,
// since the fingerprint depends only on size/mtime/entity tag.
func (c *Core) Chmod(rel string, mode os.FileMode) error {
	rel = canonical(rel)
	if err := os.Chmod(c.sourcePath(rel), mode); err != nil {
		return newErr(KindSourceIO, "chmod", rel, err)
	}
	return nil
}

func (c *Core) Chown(rel string, uid, gid int) error {
	rel = canonical(rel)
	if err := os.Chown(c.sourcePath(rel), uid, gid); err != nil {
		return newErr(KindSourceIO, "chown", rel, err)
	}
	return nil
}

func (c *Core) Utimens(rel string, atime, mtime time.Time) error {
	rel = canonical(rel)
	if err := os.Chtimes(c.sourcePath(rel), atime, mtime); err != nil {
		return newErr(KindSourceIO, "utimens", rel, err)
	}
	return nil
}

// Statfs implements spec.md section 6's statfs: reports the cache
// filesystem's space, since that is the resource the governor manages
// and the one callers care about running out of.
func (c *Core) Statfs() (fsSpace, error) {
	return statSpace(c.opt.CacheRoot)
}

// reservedXattr reports whether name is catfs's own reserved
// fingerprint attribute, which setxattr/getxattr/listxattr/removexattr
// must hide from callers (spec.md section 6: "the catfs.* namespace is
// reserved and hidden from listxattr/getxattr").
func reservedXattr(name string) bool {
	return name == fingerprintAttr
}

// Getxattr/Setxattr/Listxattr/Removexattr implement spec.md section
// 6's xattr passthrough to the source, with the fingerprint namespace
// filtered out in both directions.
func (c *Core) Getxattr(rel, name string) ([]byte, error) {
	if reservedXattr(name) {
		return nil, newErr(KindInvalidArgument, "getxattr", rel, os.ErrNotExist)
	}
	rel = canonical(rel)
	v, err := xattrs.Get(c.sourcePath(rel), name)
	if err != nil {
		return nil, newErr(KindSourceIO, "getxattr", rel, err)
	}
	return v, nil
}

// Listxattr lists the source file's extended attributes, filtering out
// catfs's own reserved fingerprint attribute (spec.md section 6: "the
// catfs.* namespace is reserved and hidden from listxattr/getxattr").
func (c *Core) Listxattr(rel string) ([]string, error) {
	rel = canonical(rel)
	names, err := xattrs.List(c.sourcePath(rel))
	if err != nil {
		return nil, newErr(KindSourceIO, "listxattr", rel, err)
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == xattrs.FingerprintKey {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (c *Core) Setxattr(rel, name string, value []byte) error {
	if reservedXattr(name) {
		return newErr(KindInvalidArgument, "setxattr", rel, os.ErrInvalid)
	}
	rel = canonical(rel)
	if err := xattrs.Set(c.sourcePath(rel), name, value); err != nil {
		return newErr(KindSourceIO, "setxattr", rel, err)
	}
	return nil
}

func (c *Core) Removexattr(rel, name string) error {
	if reservedXattr(name) {
		return newErr(KindInvalidArgument, "removexattr", rel, os.ErrInvalid)
	}
	rel = canonical(rel)
	if err := xattrs.Remove(c.sourcePath(rel), name); err != nil {
		return newErr(KindSourceIO, "removexattr", rel, err)
	}
	return nil
}

func (c *Core) toAttr(fi os.FileInfo) Attr {
	a := Attr{Size: fi.Size(), ModTime: fi.ModTime(), IsDir: fi.IsDir(), Mode: fi.Mode()}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		a.UID, a.GID = st.Uid, st.Gid
	}
	if c.opt.UID != nil {
		a.UID = *c.opt.UID
	}
	if c.opt.GID != nil {
		a.GID = *c.opt.GID
	}
	return a
}

// sourceRootBase and cacheRootBase return the cleaned source and cache
// roots.
func (c *Core) sourceRootBase() string { return filepath.Clean(c.opt.SourceRoot) }
func (c *Core) cacheRootBase() string  { return filepath.Clean(c.opt.CacheRoot) }

package catfs

import (
	"io"
	"os"
	"sync"

	"github.com/kahing/catfs/internal/catlog"
	"github.com/kahing/catfs/internal/ranges"
)

// Pager hydrates a CacheFile's contents from its SourceFile in the
// background, coordinating with concurrent readers via a PageMap
// (spec.md section 4.2). At most one Pager is ever active for a given
// path at a time (spec.md section 3 invariant 4): Core.pagers is the
// per-path registry that enforces this, mirroring the teacher's
// uploaderMap / boltMap singleton-per-path pattern in backend/cache.
type Pager struct {
	core       *Core
	rel        string
	size       int64
	expect     Digest
	pageMap    *PageMap
	cancelCh   chan struct{}
	cancelOnce sync.Once
}

// pagerKey returns the registry key for rel - paths are already
// canonicalized by the caller.
func pagerKey(rel string) string { return rel }

// beginPager starts (or joins) the single pager for rel. Idempotent:
// if one is already running it is returned unchanged (spec.md section
// 4.2, "begin... idempotent").
func (c *Core) beginPager(rel string, expect Digest, size int64) *Pager {
	c.pagerMu.Lock()
	defer c.pagerMu.Unlock()
	if p, ok := c.pagers[pagerKey(rel)]; ok {
		return p
	}
	p := &Pager{
		core:     c,
		rel:      rel,
		size:     size,
		expect:   expect,
		pageMap:  NewPageMap(size),
		cancelCh: make(chan struct{}),
	}
	c.pagers[pagerKey(rel)] = p
	go p.run()
	return p
}

// lookupPager returns the pager currently registered for rel, if any.
func (c *Core) lookupPager(rel string) (*Pager, bool) {
	c.pagerMu.Lock()
	defer c.pagerMu.Unlock()
	p, ok := c.pagers[pagerKey(rel)]
	return p, ok
}

// unregisterPager removes a completed or canceled pager so a future
// open starts a fresh one.
func (c *Core) unregisterPager(p *Pager) {
	c.pagerMu.Lock()
	defer c.pagerMu.Unlock()
	if cur, ok := c.pagers[pagerKey(p.rel)]; ok && cur == p {
		delete(c.pagers, pagerKey(p.rel))
	}
}

// cancel requests early termination. The in-progress block finishes
// and the pager exits without stamping the fingerprint; the PageMap's
// contents become meaningless once canceled (spec.md section 4.2).
func (p *Pager) cancel() {
	p.cancelOnce.Do(func() { close(p.cancelCh) })
}

func (p *Pager) canceled() bool {
	select {
	case <-p.cancelCh:
		return true
	default:
		return false
	}
}

// waitFor blocks the caller until every byte in [offset, offset+length)
// is present or the pager has failed/been canceled.
func (p *Pager) waitFor(offset, length int64) error {
	return p.pageMap.wait(offset, length)
}

// run is the pager's worker body: open handles on both sides, truncate
// the cache file to the source size, then copy block by block,
// extending the PageMap after each durable write and stamping the
// fingerprint only once the whole file has landed (spec.md section
// 4.2's "coherence gate").
func (p *Pager) run() {
	defer p.core.unregisterPager(p)

	c := p.core
	srcPath := c.sourcePath(p.rel)
	cachePath := c.cachePath(p.rel)

	src, err := os.Open(srcPath)
	if err != nil {
		p.pageMap.fail(newErr(KindSourceIO, "page-in open source", srcPath, err))
		return
	}
	defer src.Close()

	if err := ensureCacheDir(cachePath); err != nil {
		p.pageMap.fail(newErr(KindCacheIO, "page-in mkdir", cachePath, err))
		return
	}
	cache, err := os.OpenFile(cachePath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		p.pageMap.fail(newErr(KindCacheIO, "page-in open cache", cachePath, err))
		return
	}
	defer cache.Close()

	if err := cache.Truncate(p.size); err != nil {
		p.pageMap.fail(newErr(KindCacheIO, "page-in truncate", cachePath, err))
		return
	}
	if err := preallocateFile(cache, p.size); err != nil {
		catlog.Debugf(p.rel, "preallocate failed, continuing without it: %v", err)
	}

	buf := make([]byte, PageBlockSize)
	var off int64
	for off < p.size {
		if p.canceled() {
			catlog.Debugf(p.rel, "page-in canceled at offset %d/%d", off, p.size)
			p.pageMap.fail(newErr(KindCanceled, "page-in", p.rel, nil))
			return
		}
		n := len(buf)
		if remaining := p.size - off; int64(n) > remaining {
			n = int(remaining)
		}
		nr, rerr := io.ReadFull(src, buf[:n])
		if rerr != nil && rerr != io.EOF && rerr != io.ErrUnexpectedEOF {
			p.pageMap.fail(newErr(KindSourceIO, "page-in read", srcPath, rerr))
			return
		}
		if nr > 0 {
			if _, werr := cache.WriteAt(buf[:nr], off); werr != nil {
				p.pageMap.fail(newErr(KindCacheIO, "page-in write", cachePath, werr))
				return
			}
		}
		off += int64(nr)
		p.pageMap.markPresent(ranges.Range{Pos: off - int64(nr), Size: int64(nr)})
		if nr < n {
			break // short read: source shrank mid-page-in, treat as EOF
		}
	}

	if p.canceled() {
		p.pageMap.fail(newErr(KindCanceled, "page-in", p.rel, nil))
		return
	}
	validator := Validator{}
	if err := validator.Stamp(cachePath, p.expect); err != nil {
		p.pageMap.fail(newErr(KindCacheIO, "page-in stamp", cachePath, err))
		return
	}
	catlog.Debugf(p.rel, "page-in complete, %d bytes", p.size)
	p.pageMap.finish()
}

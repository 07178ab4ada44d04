package catfs

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kahing/catfs/internal/catlog"
	"github.com/kahing/catfs/internal/xattrs"
)

// Governor periodically samples free space on the cache filesystem
// and, when it drops below the configured floor, evicts whole cache
// files by ascending access time until the floor is satisfied or there
// is nothing left to evict (spec.md section 4.4).
type Governor struct {
	core     *Core
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newGovernor(c *Core) *Governor {
	return &Governor{
		core:     c,
		interval: c.opt.GovernorInterval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// start launches the governor's periodic background thread.
func (g *Governor) start() {
	if g.interval <= 0 {
		close(g.doneCh)
		return
	}
	go g.loop()
}

func (g *Governor) loop() {
	defer close(g.doneCh)
	t := time.NewTicker(g.interval)
	defer t.Stop()
	for {
		select {
		case <-g.stopCh:
			return
		case <-t.C:
			if err := g.Run(); err != nil {
				catlog.Errorf(g.core.opt.CacheRoot, "governor pass failed: %v", err)
			}
		}
	}
}

// stop halts the periodic thread. It does not cancel a Run in progress.
func (g *Governor) stop() {
	select {
	case <-g.stopCh:
	default:
		close(g.stopCh)
	}
	<-g.doneCh
}

type evictionCandidate struct {
	path    string
	rel     string
	atime   time.Time
	size    int64
}

// Run performs one synchronous governor pass: sample free space, and
// if below the floor, evict LRU cache files (by access time) until the
// floor is met or candidates are exhausted. Triggered periodically and
// also synchronously on ENOSPC (spec.md section 7).
func (g *Governor) Run() error {
	c := g.core
	space, err := statSpace(c.opt.CacheRoot)
	if err != nil {
		return err
	}
	floor := c.opt.Free.Floor(space.Total)
	if space.Free >= floor {
		return nil
	}

	candidates, err := g.collectCandidates()
	if err != nil {
		return err
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].atime.Before(candidates[j].atime) })

	c.handles.enumMu.RLock()
	defer c.handles.enumMu.RUnlock()
	for _, cand := range candidates {
		if space.Free >= floor {
			break
		}
		// the refcount lock serializes against open() registering a new
		// handle for this path (spec.md section 4.4/5): in-use files are
		// skipped, never waited on.
		if c.handles.pathInUseLocked(cand.rel) {
			continue
		}
		if err := os.Remove(cand.path); err != nil {
			catlog.Debugf(cand.rel, "governor: evict failed: %v", err)
			continue
		}
		catlog.Infof(cand.rel, "governor: evicted %d bytes", cand.size)
		space.Free += uint64(cand.size)
	}
	return nil
}

// collectCandidates walks the cache tree for regular files carrying
// the fingerprint xattr (i.e. files the core actually manages, not
// stray directories or partially-written page-ins without a stamp).
func (g *Governor) collectCandidates() ([]evictionCandidate, error) {
	var out []evictionCandidate
	root := g.core.opt.CacheRoot

	c := g.core
	c.handles.enumMu.RLock()
	defer c.handles.enumMu.RUnlock()

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries
		}
		if info.IsDir() {
			return nil
		}
		if _, xerr := xattrs.Get(path, fingerprintAttr); xerr != nil {
			return nil // no fingerprint: not a managed cache file (or still paging in)
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		out = append(out, evictionCandidate{
			path:  path,
			rel:   rel,
			atime: accessTime(info),
			size:  info.Size(),
		})
		return nil
	})
	return out, err
}

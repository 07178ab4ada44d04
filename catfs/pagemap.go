package catfs

import (
	"sync"

	"github.com/kahing/catfs/internal/ranges"
)

// PageMap tracks, for a single CacheFile that is (or was) being paged
// in, the monotone set of byte ranges that are known to be present.
// Readers block on wait() until the range they need is covered or the
// pager has failed (spec.md section 3, "PageMap" entity, and section
// 9 "do not use completion callbacks on the reader path").
type PageMap struct {
	mu   sync.Mutex
	cond *sync.Cond
	rs   ranges.Ranges
	size int64
	done bool
	err  error
}

// NewPageMap creates a PageMap for a file of the given size with
// nothing yet present.
func NewPageMap(size int64) *PageMap {
	pm := &PageMap{size: size}
	pm.cond = sync.NewCond(&pm.mu)
	return pm
}

// NewFullPageMap creates a PageMap that already reports the whole file
// present and is marked done. Core.Open does not use it: a handle whose
// cache file validated Fresh carries no PageMap at all.
func NewFullPageMap(size int64) *PageMap {
	pm := NewPageMap(size)
	if size > 0 {
		pm.rs.Insert(ranges.Range{Pos: 0, Size: size})
	}
	pm.done = true
	return pm
}

// markPresent extends the present set to include r and wakes any
// waiters. It is the only mutator pagers call; the set only ever
// grows (spec.md section 3 invariant and section 8 "Monotone page map").
func (pm *PageMap) markPresent(r ranges.Range) {
	pm.mu.Lock()
	pm.rs.Insert(r)
	pm.mu.Unlock()
	pm.cond.Broadcast()
}

// fail marks the page-in as permanently failed with err; all current
// and future waiters on ranges not yet present receive it.
func (pm *PageMap) fail(err error) {
	pm.mu.Lock()
	pm.done = true
	pm.err = err
	pm.mu.Unlock()
	pm.cond.Broadcast()
}

// finish marks the page-in as successfully complete.
func (pm *PageMap) finish() {
	pm.mu.Lock()
	pm.done = true
	pm.mu.Unlock()
	pm.cond.Broadcast()
}

// wait blocks until [offset, offset+length) is entirely present, or
// the pager has failed, in which case it returns the recorded error.
func (pm *PageMap) wait(offset, length int64) error {
	if length <= 0 {
		return nil
	}
	want := ranges.Range{Pos: offset, Size: length}
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for {
		if pm.rs.Present(want) {
			return nil
		}
		if pm.done {
			if pm.err != nil {
				return pm.err
			}
			// done with no error but range still missing: the file is
			// shorter than requested (EOF), not a failure.
			return nil
		}
		pm.cond.Wait()
	}
}

// present reports whether [offset, offset+length) is already present,
// without blocking.
func (pm *PageMap) present(offset, length int64) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.rs.Present(ranges.Range{Pos: offset, Size: length})
}

// snapshot returns a copy of the currently-present ranges, for tests
// and diagnostics.
func (pm *PageMap) snapshot() ranges.Ranges {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return append(ranges.Ranges(nil), pm.rs...)
}

package catfs

import (
	"io"
	"sync"

	"github.com/kahing/catfs/internal/catlog"
)

// WritebackMode selects how a FileHandle propagates writes to the
// source (spec.md section 3/4.3).
type WritebackMode int

const (
	// WriteThrough mirrors every write to the source immediately.
	WriteThrough WritebackMode = iota
	// FlushOnClose buffers writes in the cache and streams the whole
	// file to the source on flush/release, for sources that reject
	// non-sequential writes.
	FlushOnClose
)

func (m WritebackMode) String() string {
	if m == FlushOnClose {
		return "FlushOnClose"
	}
	return "WriteThrough"
}

// handleState is FileHandle's lifecycle state (spec.md section 4.3).
type handleState int

const (
	stateOpening handleState = iota
	stateOpen
	stateReleasing
	stateClosed
)

// FileHandle is the per-open-file state machine tying a source
// handle, a cache handle, a pager (if page-in is active), and a
// writeback strategy together (spec.md section 3/4.3).
type FileHandle struct {
	core *Core
	rel  string
	id   HandleID

	mu      sync.Mutex
	state   handleState
	flags   openFlags
	src     sourceWriter
	cache   *cacheHandle
	pager   *Pager // nil if this open started no page-in, or after Truncate canceled it
	dirty bool
	mode  WritebackMode
}

// sourceWriter is the subset of *sourceHandle's method set FileHandle
// drives on the source side. Factored out as an interface so tests can
// substitute a fake that deterministically returns
// KindNonSequentialWriteUnsupported, the ENOTSUP-class fallback path
// (spec.md section 9) that real source filesystems only ever trigger
// nondeterministically.
type sourceWriter interface {
	WriteAt(p []byte, off int64) (int, error)
	Truncate(size int64) error
	Sync() error
	Close() error
}

// Open resolves path to source, validates (or bypasses validation for
// truncate/create-exclusive opens), and arranges for page-in if
// needed (spec.md section 4.3 "open").
func (c *Core) Open(rel string, flags openFlags) (*FileHandle, error) {
	rel = canonical(rel)
	srcAttrs, statErr := c.statSource(rel)
	if statErr != nil {
		if !flags.Create {
			return nil, newErr(KindSourceNotFound, "open", rel, statErr)
		}
		srcAttrs = attrs{}
	}

	cachePath := c.cachePath(rel)
	fh := &FileHandle{core: c, rel: rel, flags: flags, mode: WriteThrough, state: stateOpening}

	bypassValidation := flags.Truncate || flags.Exclusive || (flags.Create && statErr != nil)

	switch {
	case bypassValidation:
		// create/truncate opens skip the validator entirely and start
		// from an empty, already-fresh cache file (spec.md section 4.3).
		if err := ensureCacheDir(cachePath); err != nil {
			return nil, newErr(KindCacheIO, "open", rel, err)
		}
		ch, err := openCache(cachePath, openFlags{Read: true, Write: true, Create: true, Truncate: true})
		if err != nil {
			return nil, err
		}
		if cerr := ch.Close(); cerr != nil {
			return nil, cerr
		}
		if !flags.Create || statErr == nil {
			d := Validator{}.Fingerprint(srcAttrs)
			_ = Validator{}.Stamp(cachePath, d)
		}
	default:
		expected := Validator{}.Fingerprint(srcAttrs)
		v, verr := Validator{}.Validate(cachePath, expected)
		if verr != nil {
			return nil, verr
		}
		switch v {
		case Fresh:
			// nothing to do: the cache already holds the current source
			// generation, so reads need not wait on anything.
		case Stale, Absent:
			if v == Stale {
				if err := truncateIfExists(cachePath); err != nil {
					return nil, newErr(KindCacheIO, "open", rel, err)
				}
			}
			fh.pager = c.beginPager(rel, expected, srcAttrs.Size)
		}
	}

	openForCache := openFlags{Read: true, Write: true, Create: true}
	ch, err := openCache(cachePath, openForCache)
	if err != nil {
		return nil, err
	}
	fh.cache = ch

	if flags.Write {
		sh, err := openSource(c.sourcePath(rel), flags)
		if err != nil {
			_ = ch.Close()
			return nil, err
		}
		fh.src = sh
	}

	fh.state = stateOpen
	fh.id = c.handles.alloc(fh)
	c.handles.registerPath(rel)
	return fh, nil
}

func truncateIfExists(path string) error {
	ch, err := openCache(path, openFlags{Write: true})
	if err != nil {
		return nil // absent cache file: nothing to truncate
	}
	defer ch.Close()
	return ch.Truncate(0)
}

// waitPager blocks until [offset, offset+length) is present, if a
// pager is attached (spec.md section 4.3 "read").
func (fh *FileHandle) waitPager(offset, length int64) error {
	fh.mu.Lock()
	p := fh.pager
	fh.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.waitFor(offset, length)
}

// Read implements spec.md section 4.3 "read(offset, length)".
func (fh *FileHandle) Read(offset int64, buf []byte) (int, error) {
	if err := fh.waitPager(offset, int64(len(buf))); err != nil {
		return 0, err
	}
	n, err := fh.cache.ReadAt(buf, offset)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

// Write implements spec.md section 4.3 "write(offset, buf)": cache
// first, then mirror to source in WriteThrough mode; on the source's
// ENOTSUP-class rejection of a non-sequential write, silently
// transition to FlushOnClose and stop mirroring individual writes
// (spec.md section 7: "NonSequentialWriteUnsupported never escapes").
func (fh *FileHandle) Write(offset int64, buf []byte) (int, error) {
	fh.mu.Lock()
	if fh.pager != nil {
		p := fh.pager
		fh.mu.Unlock()
		if err := p.waitFor(0, offset); err != nil {
			catlog.Debugf(fh.rel, "write: pager wait failed, proceeding: %v", err)
		}
		fh.mu.Lock()
	}
	mode := fh.mode
	fh.mu.Unlock()

	n, err := fh.cache.WriteAt(buf, offset)
	if err != nil && KindOf(err) == KindCacheSpaceExhausted {
		// cache full: run one synchronous governor pass, then retry once
		if gerr := fh.core.governor.Run(); gerr == nil {
			n, err = fh.cache.WriteAt(buf, offset)
		}
	}
	if err != nil {
		return n, err
	}

	fh.mu.Lock()
	fh.dirty = true
	fh.mu.Unlock()

	if mode == FlushOnClose || fh.src == nil {
		return n, nil
	}

	_, werr := fh.src.WriteAt(buf[:n], offset)
	if werr != nil {
		if KindOf(werr) == KindNonSequentialWriteUnsupported {
			fh.mu.Lock()
			fh.mode = FlushOnClose
			fh.mu.Unlock()
			catlog.Debugf(fh.rel, "source rejected non-sequential write, switching to flush-on-close")
			return n, nil
		}
		return n, werr
	}
	return n, nil
}

// Flush implements spec.md section 4.3 "flush": a WriteThrough handle
// has nothing to do beyond what each write already guaranteed; a dirty
// FlushOnClose handle streams its whole cache content to the source.
func (fh *FileHandle) Flush() error {
	fh.mu.Lock()
	mode, dirty := fh.mode, fh.dirty
	fh.mu.Unlock()

	if mode == WriteThrough || !dirty {
		return nil
	}
	return fh.flushWholeFile()
}

func (fh *FileHandle) flushWholeFile() error {
	if fh.src == nil {
		sh, err := openSource(fh.core.sourcePath(fh.rel), openFlags{Write: true, Create: true})
		if err != nil {
			return err
		}
		fh.src = sh
	}
	if err := fh.src.Truncate(0); err != nil {
		return err
	}
	st, err := fh.cache.Stat()
	if err != nil {
		return err
	}
	buf := make([]byte, PageBlockSize)
	var off int64
	for off < st.Size() {
		n, rerr := fh.cache.ReadAt(buf, off)
		if n > 0 {
			if _, werr := fh.src.WriteAt(buf[:n], off); werr != nil {
				return werr
			}
			off += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	fh.mu.Lock()
	fh.dirty = false
	fh.mu.Unlock()
	return nil
}

// Release implements spec.md section 4.3 "release": the last
// descriptor closing triggers a final flush if dirty, restamps the
// fingerprint from the post-flush source state, and returns the
// handle id to the free list.
func (fh *FileHandle) Release() error {
	fh.mu.Lock()
	fh.state = stateReleasing
	dirty := fh.dirty
	fh.mu.Unlock()

	var flushErr error
	if dirty {
		flushErr = fh.Flush()
	}

	if flushErr == nil {
		if srcAttrs, err := fh.core.statSource(fh.rel); err == nil {
			d := Validator{}.Fingerprint(srcAttrs)
			_ = Validator{}.Stamp(fh.core.cachePath(fh.rel), d)
		}
	}

	if fh.src != nil {
		_ = fh.src.Close()
	}
	if fh.cache != nil {
		_ = fh.cache.Close()
	}

	fh.core.handles.unregisterPath(fh.rel)
	fh.core.handles.free(fh.id)

	fh.mu.Lock()
	fh.state = stateClosed
	fh.mu.Unlock()

	return flushErr
}

// Sync implements spec.md section 6's fsync: flushes both descriptors
// to stable storage without changing writeback mode or dirty state.
func (fh *FileHandle) Sync() error {
	fh.mu.Lock()
	src, cache := fh.src, fh.cache
	fh.mu.Unlock()
	if cache != nil {
		if err := cache.Sync(); err != nil {
			return err
		}
	}
	if src != nil {
		return src.Sync()
	}
	return nil
}

// Truncate implements spec.md section 4.3's truncate edge case:
// canceling an active pager, resizing the cache, and leaving the file
// to be repaged on next open if reads don't continue now.
func (fh *FileHandle) Truncate(size int64) error {
	fh.mu.Lock()
	p := fh.pager
	fh.pager = nil
	fh.mu.Unlock()

	if p != nil {
		p.cancel()
	}
	if err := fh.cache.Truncate(size); err != nil {
		return err
	}
	if fh.src != nil {
		if err := fh.src.Truncate(size); err != nil {
			return err
		}
	}
	fh.mu.Lock()
	fh.dirty = true
	fh.mu.Unlock()
	return nil
}

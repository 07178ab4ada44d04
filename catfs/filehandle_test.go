package catfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSource is a sourceWriter whose WriteAt rejects any non-sequential
// write with KindNonSequentialWriteUnsupported, mirroring the ENOTSUP
// class of error an object-store-backed source can return (spec.md
// section 4.3 / section 9). It records every WriteAt and Truncate call
// so a test can assert flushWholeFile's rewrite shape.
type fakeSource struct {
	path     string
	next     int64
	writes   [][]byte
	offsets  []int64
	truncs   []int64
	rejected int
}

func newFakeSource(path string) *fakeSource {
	return &fakeSource{path: path}
}

func (f *fakeSource) WriteAt(p []byte, off int64) (int, error) {
	if off != f.next {
		f.rejected++
		return 0, newErr(KindNonSequentialWriteUnsupported, "write", f.path, os.ErrInvalid)
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	f.writes = append(f.writes, buf)
	f.offsets = append(f.offsets, off)
	f.next += int64(len(p))
	return len(p), nil
}

func (f *fakeSource) Truncate(size int64) error {
	f.truncs = append(f.truncs, size)
	f.next = size
	f.writes = nil
	f.offsets = nil
	return nil
}

func (f *fakeSource) Sync() error { return nil }
func (f *fakeSource) Close() error { return nil }

func newOpenFileHandle(t *testing.T, c *Core, rel string) (*FileHandle, *fakeSource) {
	t.Helper()
	cachePath := c.cachePath(rel)
	require.NoError(t, ensureCacheDir(cachePath))
	ch, err := openCache(cachePath, openFlags{Read: true, Write: true, Create: true, Truncate: true})
	require.NoError(t, err)

	fs := newFakeSource(c.sourcePath(rel))
	fh := &FileHandle{
		core:  c,
		rel:   rel,
		flags: openFlags{Read: true, Write: true},
		mode:  WriteThrough,
		state: stateOpen,
		cache: ch,
		src:   fs,
	}
	fh.id = c.handles.alloc(fh)
	c.handles.registerPath(rel)
	return fh, fs
}

// TestWriteNonSequentialSwitchesToFlushOnClose drives spec.md section
// 9's "non-sequential write fallback": a source that rejects an
// out-of-order WriteAt with NonSequentialWriteUnsupported must not
// surface that error to the caller, must flip the handle into
// FlushOnClose, and must still end up with the right bytes on the
// source once the handle is released.
func TestWriteNonSequentialSwitchesToFlushOnClose(t *testing.T) {
	c, srcDir, _ := newTestCore(t)
	rel := "out-of-order.txt"
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, rel), nil, 0o644))

	fh, fs := newOpenFileHandle(t, c, rel)

	// sequential first write: accepted, mirrored straight through.
	n, err := fh.Write(0, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, WriteThrough, fh.mode)
	require.Equal(t, 1, len(fs.writes))

	// jump the offset: fakeSource rejects it as non-sequential.
	n, err = fh.Write(10, []byte("world"))
	require.NoError(t, err, "ENOTSUP-class rejection must not escape Write")
	require.Equal(t, 5, n)

	fh.mu.Lock()
	mode := fh.mode
	dirty := fh.dirty
	fh.mu.Unlock()
	require.Equal(t, FlushOnClose, mode)
	require.True(t, dirty)
	require.Equal(t, 1, fs.rejected)

	// cache now holds "hello" + 5 zero bytes + "world"; Release must
	// stream the whole file to the source rather than mirroring writes.
	require.NoError(t, fh.Release())

	require.Equal(t, 1, len(fs.truncs), "flushWholeFile must truncate the source before rewriting")
	require.Equal(t, int64(0), fs.truncs[0])

	// flushWholeFile rewrites from the cache in one pass; the fake
	// records exactly what it received after the truncate.
	require.Equal(t, 1, len(fs.writes), "flushWholeFile should rewrite the cache contents in a single sequential pass")
	require.Equal(t, int64(0), fs.offsets[0])
	want := append([]byte("hello"), make([]byte, 5)...)
	want = append(want, []byte("world")...)
	require.Equal(t, want, fs.writes[0])
}

// TestReadEOFIsNotAnError covers FileHandle.Read's EOF-swallowing
// behavior (spec.md section 4.3 "read"), using the fake source so the
// test doesn't depend on the non-sequential-write path at all.
func TestReadEOFIsNotAnError(t *testing.T) {
	c, srcDir, _ := newTestCore(t)
	rel := "short.txt"
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, rel), []byte("hi"), 0o644))

	fh, _ := newOpenFileHandle(t, c, rel)
	_, err := fh.Write(0, []byte("hi"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := fh.Read(0, buf)
	require.NoError(t, err)
	require.Equal(t, "hi", string(buf[:n]))
	require.NoError(t, fh.Release())
}

package catfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGovernorCollectCandidatesSkipsUnstampedFiles(t *testing.T) {
	c, srcDir, cacheDir := newTestCore(t)
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "stamped.txt"), []byte("aaaa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "partial.txt"), []byte("bbbb"), 0o644))

	// stamped.txt: open, read fully, release -> gets a fingerprint xattr
	fh, err := c.Open("stamped.txt", OpenFlags{Read: true})
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = fh.Read(0, buf)
	require.NoError(t, err)
	require.NoError(t, fh.Release())

	// partial.txt: write a cache twin by hand with no fingerprint xattr
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "partial.txt"), []byte("bbbb"), 0o644))

	cands, err := c.governor.collectCandidates()
	require.NoError(t, err)

	var names []string
	for _, cand := range cands {
		names = append(names, cand.rel)
	}
	require.Contains(t, names, "stamped.txt")
	require.NotContains(t, names, "partial.txt")
}

func TestGovernorRunSkipsInUseFiles(t *testing.T) {
	c, srcDir, _ := newTestCore(t)
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "busy.txt"), []byte("aaaa"), 0o644))

	fh, err := c.Open("busy.txt", OpenFlags{Read: true})
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = fh.Read(0, buf)
	require.NoError(t, err)
	// do NOT release: the handle stays registered, so the governor must
	// treat this path as in-use and skip it (spec.md section 4.4).

	c.opt.Free = FreeSpace{Bytes: 1 << 40} // force the floor far above actual free space
	require.NoError(t, c.governor.Run())

	_, statErr := os.Stat(c.cachePath("busy.txt"))
	require.NoError(t, statErr, "an in-use cache file must never be evicted")

	require.NoError(t, fh.Release())
}

package catfs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenFlagsOsFlagsReadOnly(t *testing.T) {
	f := openFlags{Read: true}
	assert.Equal(t, os.O_RDONLY, f.osFlags())
}

func TestOpenFlagsOsFlagsReadWrite(t *testing.T) {
	f := openFlags{Read: true, Write: true, Create: true, Truncate: true}
	got := f.osFlags()
	assert.NotZero(t, got&os.O_RDWR)
	assert.NotZero(t, got&os.O_CREATE)
	assert.NotZero(t, got&os.O_TRUNC)
}

func TestOpenFlagsExclusive(t *testing.T) {
	f := openFlags{Write: true, Create: true, Exclusive: true}
	assert.NotZero(t, f.osFlags()&os.O_EXCL)
}

func TestCacheHandleReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/file"

	h, err := openCache(path, openFlags{Read: true, Write: true, Create: true})
	assert.NoError(t, err)
	defer h.Close()

	n, err := h.WriteAt([]byte("hello"), 0)
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = h.ReadAt(buf, 0)
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestCacheHandleTruncate(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/file"
	h, err := openCache(path, openFlags{Read: true, Write: true, Create: true})
	assert.NoError(t, err)
	defer h.Close()

	_, err = h.WriteAt([]byte("0123456789"), 0)
	assert.NoError(t, err)
	assert.NoError(t, h.Truncate(3))

	st, err := h.Stat()
	assert.NoError(t, err)
	assert.Equal(t, int64(3), st.Size())
}

package xattrs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRemoveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	if err := Probe(path); err != nil {
		t.Skipf("xattrs not supported on this filesystem: %v", err)
	}

	require.NoError(t, Set(path, "catfs.test", []byte("v1")))
	got, err := Get(path, "catfs.test")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	require.NoError(t, Remove(path, "catfs.test"))
	_, err = Get(path, "catfs.test")
	assert.True(t, IsNotFound(err))
}

func TestRemoveOfMissingAttrIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	if err := Probe(path); err != nil {
		t.Skipf("xattrs not supported on this filesystem: %v", err)
	}
	assert.NoError(t, Remove(path, "never.set"))
}

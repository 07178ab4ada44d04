package catfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTableAllocGetFree(t *testing.T) {
	ht := newHandleTable()
	fh1 := &FileHandle{}
	fh2 := &FileHandle{}

	id1 := ht.alloc(fh1)
	id2 := ht.alloc(fh2)
	assert.NotEqual(t, id1, id2)

	got, err := ht.get(id1)
	require.NoError(t, err)
	assert.Same(t, fh1, got)

	ht.free(id1)
	_, err = ht.get(id1)
	assert.Equal(t, KindBadHandle, KindOf(err))
}

func TestHandleTableReusesFreedSlot(t *testing.T) {
	ht := newHandleTable()
	id1 := ht.alloc(&FileHandle{})
	ht.free(id1)
	id2 := ht.alloc(&FileHandle{})
	assert.Equal(t, id1, id2, "freed slot should be reused before growing the table")
}

func TestHandleTableGetUnknownID(t *testing.T) {
	ht := newHandleTable()
	_, err := ht.get(HandleID(999))
	assert.Equal(t, KindBadHandle, KindOf(err))
}

func TestHandleTablePathRefcounting(t *testing.T) {
	ht := newHandleTable()
	assert.False(t, ht.pathInUse("a"))

	ht.registerPath("a")
	assert.True(t, ht.pathInUse("a"))

	ht.registerPath("a")
	ht.unregisterPath("a")
	assert.True(t, ht.pathInUse("a"), "second registration should still hold the path open")

	ht.unregisterPath("a")
	assert.False(t, ht.pathInUse("a"))
}

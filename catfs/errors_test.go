package catfs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfUnwrapsError(t *testing.T) {
	err := newErr(KindSourceIO, "read", "/a/b", errors.New("disk exploded"))
	assert.Equal(t, KindSourceIO, KindOf(err))
}

func TestKindOfNonCatfsError(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(errors.New("plain error")))
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := newErr(KindStale, "validate", "p", nil)
	assert.True(t, errors.Is(err, KindStale))
	assert.False(t, errors.Is(err, KindCanceled))
}

func TestErrorUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := newErr(KindCacheIO, "write", "p", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

package catfs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahing/catfs/internal/ranges"
)

func TestPageMapWaitBlocksUntilPresent(t *testing.T) {
	pm := NewPageMap(100)
	done := make(chan error, 1)
	go func() {
		done <- pm.wait(10, 20)
	}()

	select {
	case <-done:
		t.Fatal("wait returned before the range was marked present")
	case <-time.After(20 * time.Millisecond):
	}

	pm.markPresent(ranges.Range{Pos: 0, Size: 40})
	require.NoError(t, <-done)
}

func TestPageMapFailWakesWaiters(t *testing.T) {
	pm := NewPageMap(100)
	done := make(chan error, 1)
	go func() {
		done <- pm.wait(0, 100)
	}()

	boom := errors.New("boom")
	pm.fail(boom)
	assert.Equal(t, boom, <-done)
}

func TestPageMapFinishWithShortRangeIsNotAnError(t *testing.T) {
	pm := NewPageMap(10)
	pm.markPresent(ranges.Range{Pos: 0, Size: 4})
	pm.finish()
	// the pager ended (source was shorter than requested window); this
	// is treated as EOF, not failure (spec.md section 4.2).
	assert.NoError(t, pm.wait(0, 10))
}

func TestNewFullPageMapIsImmediatelyPresent(t *testing.T) {
	pm := NewFullPageMap(64)
	assert.True(t, pm.present(0, 64))
	assert.NoError(t, pm.wait(10, 20))
}

func TestPageMapMonotone(t *testing.T) {
	pm := NewPageMap(100)
	pm.markPresent(ranges.Range{Pos: 0, Size: 10})
	require.True(t, pm.present(0, 10))

	pm.markPresent(ranges.Range{Pos: 20, Size: 10})
	assert.True(t, pm.present(0, 10), "earlier range must remain present")
	assert.True(t, pm.present(20, 10))
	assert.False(t, pm.present(0, 30))
}

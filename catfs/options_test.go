package catfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFreeSpaceBytes(t *testing.T) {
	f, err := ParseFreeSpace("1024")
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), f.Bytes)
	assert.False(t, f.IsPct)
}

func TestParseFreeSpaceUnits(t *testing.T) {
	cases := map[string]uint64{
		"1K": 1 << 10,
		"2M": 2 << 20,
		"3G": 3 << 30,
		"1T": 1 << 40,
	}
	for in, want := range cases {
		f, err := ParseFreeSpace(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, f.Bytes, in)
	}
}

func TestParseFreeSpacePercent(t *testing.T) {
	f, err := ParseFreeSpace("10%")
	require.NoError(t, err)
	assert.True(t, f.IsPct)
	assert.Equal(t, uint64(10), f.Floor(100))
}

func TestParseFreeSpaceRejectsInvalid(t *testing.T) {
	_, err := ParseFreeSpace("")
	assert.Error(t, err)

	_, err = ParseFreeSpace("150%")
	assert.Error(t, err)

	_, err = ParseFreeSpace("abc")
	assert.Error(t, err)
}

func TestFreeSpaceFloorAbsolute(t *testing.T) {
	f := FreeSpace{Bytes: 500}
	assert.Equal(t, uint64(500), f.Floor(1_000_000))
}

func TestDefaultOptionsHasGovernorInterval(t *testing.T) {
	opt := DefaultOptions()
	assert.NotZero(t, opt.GovernorInterval)
}

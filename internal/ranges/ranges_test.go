package ranges

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeEnd(t *testing.T) {
	assert.Equal(t, int64(3), Range{Pos: 1, Size: 2}.End())
}

func TestRangeIsEmpty(t *testing.T) {
	assert.False(t, Range{Pos: 1, Size: 2}.IsEmpty())
	assert.True(t, Range{Pos: 1, Size: 0}.IsEmpty())
	assert.True(t, Range{Pos: 1, Size: -1}.IsEmpty())
}

func TestRangeClip(t *testing.T) {
	r := Range{Pos: 1, Size: 2}
	r.Clip(5)
	assert.Equal(t, Range{Pos: 1, Size: 2}, r)

	r = Range{Pos: 1, Size: 6}
	r.Clip(5)
	assert.Equal(t, Range{Pos: 1, Size: 4}, r)

	r = Range{Pos: 5, Size: 6}
	r.Clip(5)
	assert.Equal(t, Range{Pos: 0, Size: 0}, r)
}

func TestRangeIntersection(t *testing.T) {
	for _, test := range []struct {
		r, b, want Range
	}{
		{Range{1, 1}, Range{3, 1}, Range{}},
		{Range{1, 1}, Range{1, 1}, Range{1, 1}},
		{Range{1, 9}, Range{3, 2}, Range{3, 2}},
		{Range{1, 5}, Range{3, 5}, Range{3, 3}},
	} {
		assert.Equal(t, test.want, test.r.Intersection(test.b))
		assert.Equal(t, test.want, test.b.Intersection(test.r))
	}
}

func TestRangesInsertAndPresent(t *testing.T) {
	var rs Ranges
	rs.Insert(Range{Pos: 10, Size: 5})
	rs.Insert(Range{Pos: 20, Size: 5})
	assert.True(t, rs.Present(Range{Pos: 10, Size: 5}))
	assert.False(t, rs.Present(Range{Pos: 8, Size: 5}))
	assert.False(t, rs.Present(Range{Pos: 12, Size: 15}))

	// touching ranges merge
	rs.Insert(Range{Pos: 15, Size: 5})
	assert.Equal(t, Ranges{{Pos: 10, Size: 15}}, rs)
}

func TestRangesMonotone(t *testing.T) {
	var rs Ranges
	rs.Insert(Range{Pos: 0, Size: 4})
	first := append(Ranges(nil), rs...)
	rs.Insert(Range{Pos: 4, Size: 4})
	assert.True(t, rs.Present(Range{Pos: 0, Size: 4}))
	for _, r := range first {
		assert.True(t, rs.Present(r), "previously present range must remain present")
	}
}

func TestFindMissing(t *testing.T) {
	rs := Ranges{{Pos: 10, Size: 5}, {Pos: 20, Size: 5}}
	assert.Equal(t, Range{Pos: 3, Size: 5}, rs.FindMissing(Range{Pos: 3, Size: 5}))
	assert.Equal(t, Range{Pos: 15, Size: 0}, rs.FindMissing(Range{Pos: 10, Size: 5}))
	assert.Equal(t, Range{Pos: 15, Size: 2}, rs.FindMissing(Range{Pos: 10, Size: 7}))
}

func TestRangesSize(t *testing.T) {
	rs := Ranges{{Pos: 0, Size: 1}, {Pos: 10, Size: 9}, {Pos: 20, Size: 21}}
	assert.Equal(t, int64(31), rs.Size())
	assert.Equal(t, int64(0), Ranges(nil).Size())
}

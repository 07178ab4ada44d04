// Package ranges implements a set of non-overlapping, non-contiguous
// byte ranges. It is used to track which parts of a file are present,
// for example the set of bytes a pager has already written to a cache
// file.
package ranges

import "sort"

// Range describes a half open range [Pos, Pos+Size)
type Range struct {
	Pos  int64
	Size int64
}

// End returns the end of the Range
func (r Range) End() int64 {
	return r.Pos + r.Size
}

// IsEmpty returns true if the range has no size
func (r Range) IsEmpty() bool {
	return r.Size <= 0
}

// Clip restricts r to the region [0, limit)
func (r *Range) Clip(limit int64) {
	if r.Pos >= limit {
		*r = Range{}
		return
	}
	if r.End() > limit {
		r.Size = limit - r.Pos
	}
}

// Intersection returns the common part of r and b, which will have
// zero size if they don't overlap
func (r Range) Intersection(b Range) Range {
	pos := r.Pos
	if b.Pos > pos {
		pos = b.Pos
	}
	end := r.End()
	if b.End() < end {
		end = b.End()
	}
	if end <= pos {
		return Range{}
	}
	return Range{Pos: pos, Size: end - pos}
}

// touches returns true if r and b overlap or abut
func (r Range) touches(b Range) bool {
	return r.Pos <= b.End() && b.Pos <= r.End()
}

// Merge merges r into dst if they touch, returning the merged range
// and whether a merge happened
func (r Range) Merge(dst Range) (Range, bool) {
	if !r.touches(dst) {
		return dst, false
	}
	pos := r.Pos
	if dst.Pos < pos {
		pos = dst.Pos
	}
	end := r.End()
	if dst.End() > end {
		end = dst.End()
	}
	return Range{Pos: pos, Size: end - pos}, true
}

// Ranges is a sorted, non-overlapping, non-abutting list of Range
type Ranges []Range

// Insert adds new to rs, merging with any touching ranges
func (rs *Ranges) Insert(new Range) {
	if new.IsEmpty() {
		return
	}
	merged := new
	out := make(Ranges, 0, len(*rs)+1)
	inserted := false
	for _, r := range *rs {
		if m, ok := merged.Merge(r); ok {
			merged = m
			continue
		}
		if !inserted && r.Pos > merged.Pos {
			out = append(out, merged)
			inserted = true
		}
		out = append(out, r)
	}
	if !inserted {
		out = append(out, merged)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	*rs = out
}

// Find locates r within rs. It returns curr, the leading portion of r
// which is classified the same way (present or absent) starting at
// r.Pos, next, the remainder of r after curr, and present, whether
// curr is covered by rs.
func (rs Ranges) Find(r Range) (curr, next Range, present bool) {
	if r.IsEmpty() {
		return r, Range{}, false
	}
	for _, b := range rs {
		if b.End() <= r.Pos {
			continue
		}
		if b.Pos <= r.Pos {
			// r.Pos is covered by b
			end := b.End()
			if end >= r.End() {
				return r, Range{}, true
			}
			curr = Range{Pos: r.Pos, Size: end - r.Pos}
			next = Range{Pos: end, Size: r.End() - end}
			return curr, next, true
		}
		// gap before b
		end := b.Pos
		if end >= r.End() {
			return r, Range{}, false
		}
		curr = Range{Pos: r.Pos, Size: end - r.Pos}
		next = Range{Pos: end, Size: r.End() - end}
		return curr, next, false
	}
	return r, Range{}, false
}

// FindAll splits r into the sub-ranges of rs it intersects plus the
// gaps between them, in order
func (rs Ranges) FindAll(r Range) (result []Range) {
	for !r.IsEmpty() {
		curr, next, _ := rs.Find(r)
		result = append(result, curr)
		r = next
	}
	return result
}

// Present returns true if the whole of r is present in rs
func (rs Ranges) Present(r Range) bool {
	if r.IsEmpty() {
		return true
	}
	_, next, present := rs.Find(r)
	return present && next.IsEmpty()
}

// FindMissing returns the first missing sub-range of r, clipped to r.
// If r is entirely present the returned range has zero size but the
// same End() as r.
func (rs Ranges) FindMissing(r Range) Range {
	end := r.End()
	for !r.IsEmpty() {
		curr, next, present := rs.Find(r)
		if !present {
			return curr
		}
		r = next
	}
	return Range{Pos: end, Size: 0}
}

// Intersection returns the ranges of rs restricted to r
func (rs Ranges) Intersection(r Range) (out Ranges) {
	for _, b := range rs {
		i := r.Intersection(b)
		if !i.IsEmpty() {
			out = append(out, i)
		}
	}
	return out
}

// Equal reports whether rs and bs describe the same set of bytes
func (rs Ranges) Equal(bs Ranges) bool {
	if len(rs) != len(bs) {
		return false
	}
	for i := range rs {
		if rs[i] != bs[i] {
			return false
		}
	}
	return true
}

// Size returns the total number of bytes covered by rs
func (rs Ranges) Size() (size int64) {
	for _, r := range rs {
		size += r.Size
	}
	return size
}

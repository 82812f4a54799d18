package growth

// Interpolate returns the LMS parameters at index x, linearly interpolated
// between the two adjacent table rows. At an exact grid index the row is
// returned unchanged. The second return value is false when x lies outside
// the tabulated range or the table has fewer than two rows; no
// extrapolation is ever performed.
//
// Linear interpolation between adjacent rows is a deliberate simplification
// of the reference methodology and must be preserved for compatibility with
// previously computed scores.
func Interpolate(t Table, x float64) (LMSPoint, bool) {
	if len(t) < 2 {
		return LMSPoint{}, false
	}
	if x < t[0].Index || x > t[len(t)-1].Index {
		return LMSPoint{}, false
	}

	// Smallest row with Index >= x; its predecessor bounds the segment.
	hi := 0
	for hi < len(t) && t[hi].Index < x {
		hi++
	}

	p1 := t[hi]
	if p1.Index == x {
		return p1, true
	}

	p0 := t[hi-1]
	w := (x - p0.Index) / (p1.Index - p0.Index)

	return LMSPoint{
		Index: x,
		L:     p0.L + w*(p1.L-p0.L),
		M:     p0.M + w*(p1.M-p0.M),
		S:     p0.S + w*(p1.S-p0.S),
	}, true
}

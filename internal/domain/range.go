package domain

import "fmt"

// Range is a byte interval of a track's content, used as the identity of a
// stream in the session registry. The zero value covers the whole track:
// start at byte zero with no upper bound.
//
// Ranges are compared field-by-field, so an unbounded range never equals a
// bounded one regardless of the bound's value. Constructors keep End at zero
// for unbounded ranges so value comparison stays well-defined.
type Range struct {
	Start  int64 `json:"start"`
	End    int64 `json:"end,omitempty"`
	HasEnd bool  `json:"hasEnd"`
}

// NewRange returns an unbounded range starting at start.
func NewRange(start int64) Range {
	return Range{Start: start}
}

// NewBoundedRange returns a range covering [start, end).
func NewBoundedRange(start, end int64) Range {
	return Range{Start: start, End: end, HasEnd: true}
}

// IsWholeTrack reports whether the range is the canonical full-track shape:
// byte zero to the end of the track.
func (r Range) IsWholeTrack() bool {
	return r.Start == 0 && !r.HasEnd
}

func (r Range) String() string {
	if !r.HasEnd {
		return fmt.Sprintf("[%d,)", r.Start)
	}
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

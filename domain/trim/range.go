package trim

import "math"

// MinGap is the smallest selection length in seconds.
const MinGap = 0.2

// Range is a [Start, End) selection in seconds.
type Range struct {
	Start float64
	End   float64
}

// Duration returns the selection length in seconds
func (r Range) Duration() float64 {
	return r.End - r.Start
}

// Contains reports whether pos lies inside [Start, End)
func (r Range) Contains(pos float64) bool {
	return pos >= r.Start && pos < r.End
}

// Selection holds the trim range for a media of known duration.
// Out-of-range updates are clamped to the nearest legal value, never rejected.
type Selection struct {
	start    float64
	end      float64
	duration float64
}

// NewSelection creates a selection spanning the whole media
func NewSelection(duration float64) *Selection {
	if duration < 0 || math.IsNaN(duration) {
		duration = 0
	}
	return &Selection{
		start:    0,
		end:      duration,
		duration: duration,
	}
}

// Range returns the current selection
func (s *Selection) Range() Range {
	return Range{Start: s.start, End: s.end}
}

// MediaDuration returns the bound the selection is clamped to
func (s *Selection) MediaDuration() float64 {
	return s.duration
}

// UpdateStart moves the start to candidate clamped into [0, end-MinGap].
// The end is never touched.
func (s *Selection) UpdateStart(candidate float64) float64 {
	s.start = math.Max(0, math.Min(candidate, s.end-MinGap))
	return s.start
}

// UpdateEnd moves the end to candidate clamped into [start+MinGap, duration].
// The start is never touched.
func (s *Selection) UpdateEnd(candidate float64) float64 {
	s.end = math.Min(s.duration, math.Max(candidate, s.start+MinGap))
	return s.end
}

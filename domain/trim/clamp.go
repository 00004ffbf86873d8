package trim

// Transport is the part of a media handle the clamp drives.
type Transport interface {
	SetPosition(seconds float64)
	Pause()
}

// Clamp keeps preview playback inside the selection, looping back to the
// start once the end is reached. It is driven by time-update notifications
// and must not run while an export owns the media position.
type Clamp struct {
	display float64
}

// DisplayTime returns the last position reported to the clamp
func (c *Clamp) DisplayTime() float64 {
	return c.display
}

// Record sets the display time without correcting playback
func (c *Clamp) Record(pos float64) {
	c.display = pos
}

// OnTimeUpdate records pos as the display time and corrects the transport
// when pos has left r. It returns the position playback continues from.
func (c *Clamp) OnTimeUpdate(pos float64, playing bool, t Transport, r Range) float64 {
	c.display = pos

	switch {
	case pos >= r.End:
		t.SetPosition(r.Start)
		if !playing {
			// a jump must not restart a paused preview
			t.Pause()
		}
		return r.Start
	case pos < r.Start:
		t.SetPosition(r.Start)
		return r.Start
	}
	return pos
}

package trim

// Phase is the session state as seen by a user.
// It is derived from what the session holds, never stored on its own.
type Phase int

const (
	Idle Phase = iota
	Loading
	Editing
	Exporting
	Finished
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Editing:
		return "editing"
	case Exporting:
		return "exporting"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

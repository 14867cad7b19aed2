package relay

// State is the lifecycle position of a Stream.
type State int32

const (
	Idle State = iota
	ProcessSpawned
	Streaming
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ProcessSpawned:
		return "spawned"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

package marbletest

// State is the lifecycle of a Test.
type State int

const (
	// StateNotStarted accepts registrations.
	StateNotStarted State = iota
	// StateRunning is walking ticks; Tick reports which.
	StateRunning
	// StateFinished passed every tick.
	StateFinished
	// StateFailed stopped at a failing tick.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

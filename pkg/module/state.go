package module

// State is the lifecycle state of a Module.
type State int32

const (
	// StateUnloaded is the state before Init and after Unload completes.
	StateUnloaded State = iota

	// StateInitializing covers executor creation and listener bootstrap.
	StateInitializing

	// StateRunning means the accept loop is serving connections.
	StateRunning

	// StateUnloading means the executor is cancelling and draining tasks.
	StateUnloading
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateUnloading:
		return "unloading"
	default:
		return "unknown"
	}
}

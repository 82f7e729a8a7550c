package protocol

// State is the lifecycle state of one engine instance.
type State int32

const (
	StateDetached State = iota
	StateAttaching
	StateNegotiating
	StateIdle
	StateWaitingSync
	StateThinking
	StatePondering
	StateTerminating
	StateCrashed
)

var stateNames = [...]string{
	"detached", "attaching", "negotiating", "idle", "waiting_sync",
	"thinking", "pondering", "terminating", "crashed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// IsIdle reports whether the engine can take a new command.
// WaitingSync counts: it is Idle with a task blocked on readiness.
func (s State) IsIdle() bool {
	return s == StateIdle || s == StateWaitingSync
}

// IsSearching reports thinking or pondering.
func (s State) IsSearching() bool {
	return s == StateThinking || s == StatePondering
}

// IsLive reports whether the instance still owns a running process that
// accepts lifecycle commands.
func (s State) IsLive() bool {
	switch s {
	case StateDetached, StateTerminating, StateCrashed:
		return false
	}
	return true
}

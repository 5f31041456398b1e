package incident

// State is the lifecycle state of an incident as reported by the ticketing
// system.
type State int

const (
	StateNew State = iota
	StateInProgress
	StateOnHold
	StateResolved
	StateClosed
	StateCanceled
	StateUnknown
)

var rawStates = map[string]State{
	"New":         StateNew,
	"In Progress": StateInProgress,
	"On Hold":     StateOnHold,
	"Resolved":    StateResolved,
	"Closed":      StateClosed,
	"Canceled":    StateCanceled,
	"Cancelled":   StateCanceled,
}

// ParseState maps a raw state label to a State. Labels outside the known set
// yield StateUnknown; those rows still flow through the pipeline but count
// as neither open nor closed.
func ParseState(raw string) State {
	if s, ok := rawStates[raw]; ok {
		return s
	}
	return StateUnknown
}

func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateInProgress:
		return "In Progress"
	case StateOnHold:
		return "On Hold"
	case StateResolved:
		return "Resolved"
	case StateClosed:
		return "Closed"
	case StateCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// IsOpen reports whether the incident is still being worked. Only open
// incidents accrue age.
func (s State) IsOpen() bool {
	switch s {
	case StateNew, StateInProgress, StateOnHold:
		return true
	default:
		return false
	}
}

// IsClosed reports whether the incident reached its terminal worked state.
// Resolved is not closed: closure is the only state that feeds resolution
// statistics.
func (s State) IsClosed() bool {
	return s == StateClosed
}

package screenings

type State string

const (
	StateScheduled State = "scheduled"
	StateRunning   State = "running"
	StateFinished  State = "finished"
	StateCancelled State = "cancelled"
)

// validTransitions captures the lifecycle of a function. Cancellation is
// allowed up to the moment the projection ends.
var validTransitions = map[State][]State{
	StateScheduled: {StateRunning, StateCancelled},
	StateRunning:   {StateFinished, StateCancelled},
	StateFinished:  {},
	StateCancelled: {},
}

func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func IsValidState(state string) bool {
	switch State(state) {
	case StateScheduled, StateRunning, StateFinished, StateCancelled:
		return true
	default:
		return false
	}
}

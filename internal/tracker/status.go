package tracker

// legalTransitions maps each status to the set of statuses it may move
// to. Self-transitions are always legal no-ops and are not listed.
// done and cancelled are terminal.
var legalTransitions = map[Status][]Status{
	StatusTodo:       {StatusInProgress, StatusBlocked, StatusCancelled},
	StatusInProgress: {StatusBlocked, StatusDone, StatusCancelled},
	StatusBlocked:    {StatusInProgress, StatusCancelled},
	StatusDone:       {},
	StatusCancelled:  {},
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(s Status) bool {
	return s == StatusDone || s == StatusCancelled
}

// CanTransition reports whether moving from one status to another is
// legal under the lifecycle state machine.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a TransitionError if the move is illegal.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

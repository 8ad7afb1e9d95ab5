package ordering

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusPickedUp  Status = "picked_up"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// All lists every status, in lifecycle order.
var All = []Status{
	StatusPending,
	StatusAccepted,
	StatusPreparing,
	StatusReady,
	StatusPickedUp,
	StatusRejected,
	StatusCancelled,
}

// transitions is the full state machine as a static table. Terminal states
// map to an empty set. Keeping it a total function makes the machine
// auditable by enumerating every (current, requested) pair.
var transitions = map[Status][]Status{
	StatusPending:   {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:  {StatusPreparing},
	StatusPreparing: {StatusReady},
	StatusReady:     {StatusPickedUp},
	StatusPickedUp:  {},
	StatusRejected:  {},
	StatusCancelled: {},
}

// ParseStatus returns the status for name, or false if name is not a known
// status.
func ParseStatus(name string) (Status, bool) {
	for _, s := range All {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllowedNext returns the legal successors of s. The result is a copy.
func (s Status) AllowedNext() []Status {
	allowed := transitions[s]
	out := make([]Status, len(allowed))
	copy(out, allowed)
	return out
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

package multipart

// State is the lifecycle position of a multipart session.
//
//	Initiated -> PartsInFlight -> Completing -> Committed
//	PartsInFlight | Completing -> Aborting -> Aborted
type State int

const (
	// StateNone precedes session creation
	StateNone State = iota
	StateInitiated
	StatePartsInFlight
	StateCompleting
	StateCommitted
	StateAborting
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateInitiated:
		return "initiated"
	case StatePartsInFlight:
		return "parts_in_flight"
	case StateCompleting:
		return "completing"
	case StateCommitted:
		return "committed"
	case StateAborting:
		return "aborting"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Terminal reports whether no further transition follows.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateAborted
}

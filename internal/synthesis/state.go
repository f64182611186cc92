package synthesis

import "time"

// State is a step of one synthesis run.
type State string

const (
	StateCheckingQuota      State = "CHECKING_QUOTA"
	StateResolvingBaseModel State = "RESOLVING_BASE_MODEL"
	StateCollectingItems    State = "COLLECTING_ITEMS"
	StateCallingGenerator   State = "CALLING_GENERATOR"
	StatePostProcessing     State = "POST_PROCESSING"
	StatePersisting         State = "PERSISTING"
	StateDone               State = "DONE"
	StateAborted            State = "ABORTED"
)

// Event reports a state transition. Reason is set only for StateAborted.
type Event struct {
	State  State     `json:"state"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// Observer receives every transition of a user's run.
type Observer interface {
	Observe(userID uint, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(userID uint, ev Event)

func (f ObserverFunc) Observe(userID uint, ev Event) { f(userID, ev) }

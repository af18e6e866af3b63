package order

import (
	"fmt"
	"strings"

	"github.com/xenking/bakery-engine/internal/domain/fault"
)

// State is the delivery lifecycle state of an order.
type State string

const (
	StateReceived         State = "RECEIVED"
	StateConfirmed        State = "CONFIRMED"
	StateInPreparation    State = "IN_PREPARATION"
	StateReadyForDelivery State = "READY_FOR_DELIVERY"
	StateInTransit        State = "IN_TRANSIT"
	StateDelivered        State = "DELIVERED"
	StateCancelled        State = "CANCELLED"
)

// forward is the advance order. CANCELLED is off the main path.
var forward = []State{
	StateReceived,
	StateConfirmed,
	StateInPreparation,
	StateReadyForDelivery,
	StateInTransit,
	StateDelivered,
}

// labels maps every accepted external label, current and legacy, to a state.
var labels = map[string]State{
	"RECEIVED":           StateReceived,
	"CONFIRMED":          StateConfirmed,
	"IN_PREPARATION":     StateInPreparation,
	"READY_FOR_DELIVERY": StateReadyForDelivery,
	"IN_TRANSIT":         StateInTransit,
	"DELIVERED":          StateDelivered,
	"CANCELLED":          StateCancelled,

	"RECIBIDO":           StateReceived,
	"CONFIRMADO":         StateConfirmed,
	"EN_PREPARACION":     StateInPreparation,
	"LISTO":              StateReadyForDelivery,
	"LISTO_PARA_ENTREGA": StateReadyForDelivery,
	"EN_ENTREGA":         StateInTransit,
	"EN_TRANSITO":        StateInTransit,
	"ENTREGADO":          StateDelivered,
	"CANCELADO":          StateCancelled,
}

// ParseState maps an external label to a state. Unknown labels resolve to
// StateReceived together with an *UnknownStateError.
func ParseState(label string) (State, error) {
	key := strings.ToUpper(strings.TrimSpace(label))
	if s, ok := labels[key]; ok {
		return s, nil
	}
	return StateReceived, &UnknownStateError{Label: label}
}

// Next returns the state one step forward.
func (s State) Next() (State, bool) {
	for i, st := range forward[:len(forward)-1] {
		if st == s {
			return forward[i+1], true
		}
	}
	return "", false
}

// IsTerminal reports whether no further change is allowed.
func (s State) IsTerminal() bool {
	return s == StateDelivered || s == StateCancelled
}

// Cancellable reports whether an order in s may be cancelled.
func (s State) Cancellable() bool {
	return s == StateReceived || s == StateConfirmed
}

// UnknownStateError reports an unrecognized state label.
type UnknownStateError struct {
	Label string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("unknown order state %q", e.Label)
}

func (e *UnknownStateError) Unwrap() error { return fault.ErrUnknownState }

// TransitionError is returned when an order cannot move from its state.
type TransitionError struct {
	OrderID string
	From    State
	// To is empty when there is no next state to advance to.
	To State
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("order %s: cannot advance from %s", e.OrderID, e.From)
	}
	return fmt.Sprintf("order %s: cannot transition from %s to %s", e.OrderID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return fault.ErrInvalidTransition }

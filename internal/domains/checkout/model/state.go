package model

// State of one checkout attempt
type State string

const (
	StateNoAddress         State = "no_address"
	StateAddressReady      State = "address_ready"
	StateMethodChosen      State = "method_chosen"
	StateOrderCreated      State = "order_created"
	StateConfirmed         State = "confirmed"
	StatePaymentSucceeded  State = "payment_succeeded"
	StatePaymentFailed     State = "payment_failed"
	StatePaymentProcessing State = "payment_processing"
)

func (s State) IsValid() bool {
	switch s {
	case StateNoAddress, StateAddressReady, StateMethodChosen, StateOrderCreated,
		StateConfirmed, StatePaymentSucceeded, StatePaymentFailed, StatePaymentProcessing:
		return true
	}
	return false
}

// Terminal states accept no further events
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StatePaymentSucceeded
}

// HasOrder reports whether an order exists for the session
func (s State) HasOrder() bool {
	switch s {
	case StateOrderCreated, StateConfirmed, StatePaymentSucceeded, StatePaymentFailed, StatePaymentProcessing:
		return true
	}
	return false
}

func (s State) String() string {
	return string(s)
}

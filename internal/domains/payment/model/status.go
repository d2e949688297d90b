package model

// Status is the payment state shown on the verification screen
type Status string

const (
	StatusUnknown               Status = "unknown"
	StatusSucceeded             Status = "succeeded"
	StatusProcessing            Status = "processing"
	StatusRequiresPaymentMethod Status = "requires_payment_method"
)

// Server status strings returned by the verify endpoint
const (
	ServerStatusSuccess    = "Success"
	ServerStatusFailed     = "Failed"
	ServerStatusPending    = "Pending"
	ServerStatusProcessing = "Processing"
)

// MapStatus maps the server's status string. Anything unrecognised,
// including empty, is Unknown and treated as still verifying.
func MapStatus(server string) Status {
	switch server {
	case ServerStatusSuccess:
		return StatusSucceeded
	case ServerStatusFailed:
		return StatusRequiresPaymentMethod
	case ServerStatusPending, ServerStatusProcessing:
		return StatusProcessing
	default:
		return StatusUnknown
	}
}

// Terminal reports whether no further action can change the status
func (s Status) Terminal() bool {
	return s == StatusSucceeded
}

// CanRetry reports whether the shopper may request a new payment handle
func (s Status) CanRetry() bool {
	return s == StatusRequiresPaymentMethod
}

package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an opaque server-assigned identifier. The API may send it as a JSON
// string or a JSON number; both decode to the same value.
type ID string

func (id ID) String() string { return string(id) }

// IsZero reports whether no id has been assigned
func (id ID) IsZero() bool { return id == "" }

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// PaymentMethod as sent to the order-creation endpoint
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodCard
}

// Route is a client-side screen the UI can be sent to
type Route string

const (
	RouteHome            Route = "/"
	RouteCODConfirmation Route = "/order-confirmation"
	RoutePayment         Route = "/payment"
	RoutePaymentVerify   Route = "/payment/verify"
	RouteSignIn          Route = "/login"
)

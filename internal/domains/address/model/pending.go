package model

import "storefront/internal/shared"

type PendingKind string

const (
	PendingNone     PendingKind = "none"
	PendingExisting PendingKind = "existing"
	PendingNew      PendingKind = "new"
)

// PendingAddress is the address the shopper intends to check out with:
// nothing yet, a saved address id, or validated new-address fields. At most
// one variant is populated; the zero value is None.
type PendingAddress struct {
	kind      PendingKind
	addressID shared.ID
	fields    AddressFormFields
}

func None() PendingAddress {
	return PendingAddress{kind: PendingNone}
}

func Existing(id shared.ID) PendingAddress {
	if id.IsZero() {
		return None()
	}
	return PendingAddress{kind: PendingExisting, addressID: id}
}

// New wraps form fields. Callers validate first.
func New(fields AddressFormFields) PendingAddress {
	return PendingAddress{kind: PendingNew, fields: fields.Normalize()}
}

func (p PendingAddress) Kind() PendingKind {
	if p.kind == "" {
		return PendingNone
	}
	return p.kind
}

func (p PendingAddress) IsNone() bool { return p.Kind() == PendingNone }

// AddressID returns the saved id of an existing address
func (p PendingAddress) AddressID() (shared.ID, bool) {
	return p.addressID, p.kind == PendingExisting
}

// Fields returns the new-address fields
func (p PendingAddress) Fields() (AddressFormFields, bool) {
	return p.fields, p.kind == PendingNew
}

func (p PendingAddress) Equal(other PendingAddress) bool {
	return p.Kind() == other.Kind() && p.addressID == other.addressID && p.fields == other.fields
}

func (p PendingAddress) String() string {
	switch p.Kind() {
	case PendingExisting:
		return "existing:" + p.addressID.String()
	case PendingNew:
		return "new:" + p.fields.Postcode
	}
	return "none"
}

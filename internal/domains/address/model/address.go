package model

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"storefront/internal/shared"
)

// ukPhone accepts +44 followed by 9-10 digits, or 0 followed by exactly 10
var ukPhone = regexp.MustCompile(`^(\+44\d{9,10}|0\d{10})$`)

// AddressFormFields is the new-address form, also the create payload
type AddressFormFields struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Line1    string `json:"address_line_1"`
	Line2    string `json:"address_line_2,omitempty"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

// Address is a saved address as returned by the API
type Address struct {
	ID        shared.ID `json:"id"`
	IsDefault bool      `json:"is_default,omitempty"`
	AddressFormFields
}

// Normalize trims surrounding whitespace and strips spaces from the phone
func (f AddressFormFields) Normalize() AddressFormFields {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.ReplaceAll(strings.TrimSpace(f.Phone), " ", "")
	f.Line1 = strings.TrimSpace(f.Line1)
	f.Line2 = strings.TrimSpace(f.Line2)
	f.City = strings.TrimSpace(f.City)
	f.Postcode = strings.TrimSpace(f.Postcode)
	f.Country = strings.TrimSpace(f.Country)
	return f
}

// Validate checks the normalized form. The error is a validation.Errors
// keyed by json field name.
func (f AddressFormFields) Validate() error {
	f = f.Normalize()
	return validation.ValidateStruct(&f,
		validation.Field(&f.FullName,
			validation.Required.Error("full name is required"),
			validation.Length(2, 100),
		),
		validation.Field(&f.Email,
			validation.Required.Error("email is required"),
			is.EmailFormat.Error("invalid email format"),
		),
		validation.Field(&f.Phone,
			validation.Required.Error("phone is required"),
			validation.Match(ukPhone).Error("enter a valid UK phone number (+44 followed by 9-10 digits or 0 followed by 10 digits)"),
		),
		validation.Field(&f.Line1, validation.Required.Error("address line 1 is required")),
		validation.Field(&f.City, validation.Required.Error("city is required")),
		validation.Field(&f.Postcode, validation.Required.Error("postcode is required")),
		validation.Field(&f.Country, validation.Required.Error("country is required")),
	)
}

// ValidUKPhone reports whether phone passes the UK rule once spaces are removed
func ValidUKPhone(phone string) bool {
	return ukPhone.MatchString(strings.ReplaceAll(phone, " ", ""))
}

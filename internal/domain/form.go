package domain

import (
	"regexp"
	"strings"
)

// ShippingContactForm holds the customer and shipping fields collected on
// the checkout page. Validation here is a client-side pre-check only; the
// payment provider and backend may independently reject.
type ShippingContactForm struct {
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
}

// FieldErrors maps field name to a message. Nil means the form is valid.
type FieldErrors map[string]string

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func (f ShippingContactForm) Validate() FieldErrors {
	errs := FieldErrors{}

	if !emailPattern.MatchString(strings.TrimSpace(f.Email)) {
		errs["email"] = "Enter a valid email address"
	}
	if len(strings.TrimSpace(f.FullName)) < 2 {
		errs["full_name"] = "Enter your full name"
	}
	if len(strings.TrimSpace(f.AddressLine1)) < 3 {
		errs["address_line1"] = "Enter your address"
	}
	if len(strings.TrimSpace(f.City)) < 2 {
		errs["city"] = "Enter your city"
	}
	if len(strings.TrimSpace(f.PostalCode)) < 3 {
		errs["postal_code"] = "Enter a valid postal code"
	}
	if len(strings.TrimSpace(f.Country)) != 2 {
		errs["country"] = "Select a country"
	}
	if p := strings.TrimSpace(f.Phone); p != "" && len(p) < 7 {
		errs["phone"] = "Enter a valid phone number"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

package directory

import (
	"regexp"
	"strings"

	"gsm-dashboard/internal/gateway"
)

var phonePattern = regexp.MustCompile(`^\+?\d{6,15}$`)

// ValidPhone reports whether phone is an optional leading "+" followed by
// 6 to 15 digits once all whitespace is removed.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(strings.Join(strings.Fields(phone), ""))
}

// normalizeFields trims every field and checks the manual-entry rules shared
// by add and edit.
func normalizeFields(fields gateway.Contact) (gateway.Contact, error) {
	fields = gateway.Contact{
		Name:  strings.TrimSpace(fields.Name),
		Phone: strings.TrimSpace(fields.Phone),
		Email: strings.TrimSpace(fields.Email),
		Group: strings.TrimSpace(fields.Group),
	}
	if fields.Name == "" {
		return fields, &ValidationError{Field: "name", Message: "name and phone are required"}
	}
	if fields.Phone == "" {
		return fields, &ValidationError{Field: "phone", Message: "name and phone are required"}
	}
	if !ValidPhone(fields.Phone) {
		return fields, &ValidationError{Field: "phone", Message: "invalid phone number format"}
	}
	return fields, nil
}

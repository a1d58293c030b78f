// Package validation checks user input before it is sent to the Items API.
//
// The limits match the backend models, so a value rejected here would
// otherwise come back as a 422 after a round trip.
package validation

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 255
	MaxNameLength        = 255
	MaxEmailLength       = 255
	MinPasswordLength    = 8
	MaxPasswordLength    = 40
)

func checkLength(field, value string, max int) error {
	length := utf8.RuneCountInString(value)
	if length > max {
		return newError(field, "%s exceeds maximum length of %d characters (got %d)", field, max, length)
	}
	return nil
}

// ValidateTitle validates a required item title.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return newError("title", "title cannot be empty")
	}
	return checkLength("title", title, MaxTitleLength)
}

// ValidateDescription validates an optional item description.
func ValidateDescription(description string) error {
	return checkLength("description", description, MaxDescriptionLength)
}

// ValidateFullName validates an optional full name.
func ValidateFullName(name string) error {
	return checkLength("full name", name, MaxNameLength)
}

// ValidateEmail checks length and address syntax. Display-name forms such
// as "Ada <ada@example.com>" are rejected: the backend wants a bare address.
func ValidateEmail(email string) error {
	if email == "" {
		return newError("email", "email cannot be empty")
	}
	if err := checkLength("email", email, MaxEmailLength); err != nil {
		return err
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return newError("email", "invalid email format: %w", err)
	}
	if addr.Address != email {
		return newError("email", "invalid email format: expected a bare address like name@example.com")
	}
	return nil
}

// ValidatePassword checks a new password against the backend's length rules.
// Existing passwords are never validated; the server decides.
func ValidatePassword(password string) error {
	length := utf8.RuneCountInString(password)
	if length < MinPasswordLength {
		return newError("password", "password must be at least %d characters", MinPasswordLength)
	}
	if length > MaxPasswordLength {
		return newError("password", "password must be at most %d characters", MaxPasswordLength)
	}
	return nil
}

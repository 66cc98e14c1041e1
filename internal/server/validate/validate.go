// Package validate checks user input at the transport boundary before it
// reaches the services. All failures wrap common.ErrValidation.
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/securemsg/internal/common"
)

// MaxContentBytes bounds a message body.
const MaxContentBytes = 4096

// FieldError reports one invalid field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return common.ErrValidation
}

func fieldError(field, msg string) error {
	return &FieldError{Field: field, Message: msg}
}

// Username trims name and requires ASCII letters and digits only.
func Username(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fieldError("username", "Username could not be empty")
	}
	for _, r := range name {
		if !isASCIIAlnum(r) {
			return "", fieldError("username", "Username should consist only of letters and numbers")
		}
	}
	return name, nil
}

// RegisterPassword requires at least 8 characters with a lowercase letter,
// an uppercase letter and a digit.
func RegisterPassword(password string) error {
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if len([]rune(password)) < 8 || !lower || !upper || !digit {
		return fieldError("password",
			"Password must be at least 8 characters and contain at least one uppercase letter, one lowercase letter, and one number")
	}
	return nil
}

// LoginPassword only requires a non-empty value.
func LoginPassword(password string) error {
	if password == "" {
		return fieldError("password", "Password could not be empty")
	}
	return nil
}

// Email accepts an empty value or an address with exactly one '@' and
// non-empty local and domain parts.
func Email(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") || strings.ContainsAny(email, " \t\r\n") {
		return "", fieldError("email", "Email is not valid")
	}
	return email, nil
}

// Content trims a message body and bounds its size.
func Content(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fieldError("content", "Message's text should not be empty")
	}
	if len(content) > MaxContentBytes {
		return "", fieldError("content", fmt.Sprintf("Message's text should not exceed %d bytes", MaxContentBytes))
	}
	return content, nil
}

// ExistsFunc reports whether a username is registered.
type ExistsFunc func(ctx context.Context, username string) (bool, error)

// Recipient trims name and requires it to be a registered user. A lookup
// failure is returned as is, not as a validation error.
func Recipient(ctx context.Context, name string, exists ExistsFunc) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fieldError("to", "Receiver username could not be empty")
	}
	ok, err := exists(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fieldError("to", "Receiver does not exist")
	}
	return name, nil
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

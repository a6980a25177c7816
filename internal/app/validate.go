package app

import (
	"net/mail"
	"strings"

	"github.com/neomorfeo/secretsanta/internal/domain"
)

// normalizeParticipant trims the input and checks name and email.
func normalizeParticipant(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" {
		return "", "", &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if email == "" {
		return "", "", &domain.ValidationError{Field: "email", Reason: "must not be empty"}
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", "", &domain.ValidationError{Field: "email", Reason: "must be a plain address like name@example.com"}
	}
	return name, email, nil
}

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidParticipant  = errors.New("invalid participant")
	ErrNotDrawn            = errors.New("session has no assignment set")
	ErrTokenGeneration     = errors.New("token generation failed")
	ErrTokensSuperseded    = errors.New("token generation superseded by a newer request")
)

// DuplicateParticipantError is returned when a participant id or email
// appears more than once in the same sequence.
type DuplicateParticipantError struct {
	Field string
	Value string
}

func (e *DuplicateParticipantError) Error() string {
	return fmt.Sprintf("duplicate participant %s %q", e.Field, e.Value)
}

// Unwrap lets callers match the whole family with errors.Is(err, ErrInvalidParticipant).
func (e *DuplicateParticipantError) Unwrap() error {
	return ErrInvalidParticipant
}

// ValidationError is returned when a participant field fails validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidParticipant
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

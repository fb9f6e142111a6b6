package domain

import (
	"errors"
	"fmt"
)

// Role tags a turn of the prompt
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message of the prompt
type Turn struct {
	Role Role
	Text string
}

// Request is everything a generator needs for one reply
type Request struct {
	Instruction string
	History     []Turn
	Message     string
}

// ErrorKind classifies generation failures
type ErrorKind string

const (
	KindQuotaExceeded     ErrorKind = "quota_exceeded"
	KindTransient         ErrorKind = "transient"
	KindMalformedResponse ErrorKind = "malformed_response"
)

// Error is a classified generation failure
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("generation failed: %s", e.Kind)
	}
	return fmt.Sprintf("generation failed: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, treating unclassified errors as transient.
func KindOf(err error) ErrorKind {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindTransient
}

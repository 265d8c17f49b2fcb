package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrQuizNotFound indicates the room code is unknown.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizExists is returned when creating a room whose code is taken.
	ErrQuizExists = errors.New("quiz code already in use")
	// ErrAuthRequired is returned when an operation needs an identity token and none was given.
	ErrAuthRequired = errors.New("authentication required")
	// ErrValidation marks a malformed submission or request payload.
	ErrValidation = errors.New("validation error")
	// ErrDataIntegrity marks quiz data the engine cannot score (no valid correct label).
	ErrDataIntegrity = errors.New("quiz data integrity error")
	// ErrTransport wraps network and subscription failures.
	ErrTransport = errors.New("transport error")
	// ErrProfileNotFound is returned when a user has no stored profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrEmptyQuiz indicates a quiz loaded without questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrSessionClosed is returned when acting on a session that already left Active.
	ErrSessionClosed = errors.New("quiz session is no longer active")
)

// ValidationError names the offending field of a rejected payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IntegrityError lists the questions excluded from scoring.
type IntegrityError struct {
	QuestionIDs []int
}

func (e *IntegrityError) Error() string {
	ids := make([]string, len(e.QuestionIDs))
	for i, id := range e.QuestionIDs {
		ids[i] = strconv.Itoa(id)
	}
	return "questions without a valid correct label: " + strings.Join(ids, ",")
}

func (e *IntegrityError) Unwrap() error { return ErrDataIntegrity }

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz id or share token resolved to nothing.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a referenced question id is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAttemptNotFound indicates the attempt id resolved to nothing.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrUserNotFound indicates no account exists for the given identity.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned on sign-up with an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotQuizOwner is returned when a caller operates on someone else's quiz.
	ErrNotQuizOwner = errors.New("quiz does not belong to this user")
	// ErrSharingDisabled is returned when a share link points at a quiz whose
	// owner has turned sharing off.
	ErrSharingDisabled = errors.New("sharing is disabled for this quiz")
	// ErrRetryLimitReached is returned when a participant has used up the
	// attempt ceiling configured for the quiz.
	ErrRetryLimitReached = errors.New("maximum attempts reached for this quiz")
	// ErrTimeLimitExceeded is returned when a submission reports more time
	// than the configured duration allows.
	ErrTimeLimitExceeded = errors.New("time limit exceeded")
	// ErrInvalidAIResponse is returned when the generation collaborator
	// replies without a usable title/questions payload.
	ErrInvalidAIResponse = errors.New("invalid response from AI")
)

// InputError is a rejected caller input with a user-facing message.
type InputError string

func (e InputError) Error() string { return string(e) }

// ValidationError reports the first draft field that failed validation.
// Question is the 1-based index of the offending question, or 0 when the
// failure concerns the title.
type ValidationError struct {
	Question int
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Question == 0 {
		return e.Reason
	}
	return fmt.Sprintf("question %d: %s", e.Question, e.Reason)
}

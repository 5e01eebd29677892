package store

import "errors"

var (
	// ErrNotFound covers both a missing resource and a resource owned by
	// another user, so handlers never leak which one it was.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned for an unknown email or a failed
	// password comparison, without distinguishing the two.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned when a bearer token is malformed, fails
	// signature verification, or has been revoked.
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError reports malformed input or a disallowed field. It is
// always detected before any write.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

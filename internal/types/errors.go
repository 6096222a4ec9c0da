package types

import "errors"

// Domain error taxonomy. Handlers map these to HTTP statuses; the message
// text for enumeration-sensitive failures is deliberately shared across
// distinguishable causes.
var (
	// ErrDuplicateEmail is returned when registration hits the unique
	// constraint on the normalized email.
	ErrDuplicateEmail = errors.New("user already exists with this email")

	// ErrInvalidCredentials covers unknown email, wrong password and
	// deactivated accounts. The three are indistinguishable externally.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken covers expired, malformed, wrongly signed and
	// orphaned-user tokens.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInsufficientPermissions is returned when an authenticated role is
	// not in the allow-list for the target operation.
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// ErrUserNotFound is internal; services collapse it into one of the
	// errors above before it can reach a client.
	ErrUserNotFound = errors.New("user not found")

	// ErrStoreUnavailable signals a timeout or connectivity failure talking
	// to the credential store. Safe to retry.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

package shared

import "errors"

// Error taxonomy shared across the transactional core. Packages wrap these
// with domain detail so httpx can map them to status codes.
var (
	// ErrValidation indicates malformed or missing input. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a concurrent modification lost the race and the
	// caller must retry with fresh state.
	ErrConflict = errors.New("concurrent modification")
	// ErrAuthorization indicates an actor/location mismatch.
	ErrAuthorization = errors.New("not authorized")
	// ErrUnauthenticated indicates a missing or invalid session token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration indicates missing counter or economics configuration.
	// Fatal for the request; an operator must fix the setup.
	ErrConfiguration = errors.New("configuration error")
	// ErrUpstreamGateway indicates an invoice gateway failure. Non-fatal:
	// the committed sale stays valid with an error flag.
	ErrUpstreamGateway = errors.New("upstream gateway failure")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

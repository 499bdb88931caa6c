package sensorauth

import "errors"

var (
	// ErrValidation is returned when local input rules reject a submission.
	// No network call was made.
	ErrValidation = errors.New("validation failed")
	// ErrNetwork is returned when the backend could not be reached.
	ErrNetwork = errors.New("network failure")
	// ErrMalformedResponse is returned when the backend answered with a body
	// that could not be parsed.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrServerRejected is returned for any non-2xx backend answer. More
	// specific sentinels below are wrapped together with it.
	ErrServerRejected = errors.New("server rejected request")
	// ErrDuplicateSubmission is returned when the same operation is already
	// in flight on the controller.
	ErrDuplicateSubmission = errors.New("operation already in flight")
	// ErrCooldownActive is returned by resend operations while the cooldown
	// has not elapsed.
	ErrCooldownActive       = errors.New("resend cooldown active")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrVerificationRequired = errors.New("email verification required")
	ErrAccountExists        = errors.New("account already exists")
	// ErrNoSession is returned by the session guard when no token is stored.
	ErrNoSession = errors.New("no session")
	// ErrSessionRejected is returned when a stored token failed remote
	// verification. The token has been cleared.
	ErrSessionRejected = errors.New("session rejected")
	// ErrSessionStore is returned when the token slot could not be read or
	// written.
	ErrSessionStore = errors.New("session store failure")
	// ErrInvalidPhase is returned when an operation is called in a phase
	// that does not accept it, such as verifying an OTP before signup.
	ErrInvalidPhase   = errors.New("operation not valid in current phase")
	ErrClientNotReady = errors.New("client not initialized")
	ErrClosed         = errors.New("controller closed")
	ErrBuilderReused  = errors.New("builder already used")
)

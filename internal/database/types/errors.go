package types

import "errors"

var (
	// ErrConfiguration indicates missing or invalid backend settings.
	ErrConfiguration = errors.New("invalid database configuration")
	// ErrConnection indicates the backend is unreachable or rejected authentication.
	ErrConnection = errors.New("database connection failed")
	// ErrPoolExhausted indicates no pooled connection became free within the pool timeout.
	ErrPoolExhausted = errors.New("connection pool exhausted")
	// ErrValidation indicates bad caller input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates no sanction exists with the given ID.
	ErrNotFound = errors.New("sanction not found")
	// ErrAlreadyRevoked indicates the sanction carries a revocation already.
	ErrAlreadyRevoked = errors.New("sanction already revoked")
	// ErrClosed indicates the connector was used after shutdown.
	ErrClosed = errors.New("database connector closed")
)

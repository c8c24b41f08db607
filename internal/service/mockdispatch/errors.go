package mockdispatch

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid nickname or password")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnknownTaxi        = errors.New("taxi not found")
	ErrCallInProgress     = errors.New("a call is already in progress")
)

// Application status codes answered with HTTP 200.
const (
	StatusRejected      = 1
	StatusCallInProcess = 2
	StatusUnknownTaxi   = 3
)

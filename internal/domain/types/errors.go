package types

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyHaveTaxi  = errors.New("already have a taxi")
	ErrCallInProgress   = errors.New("a taxi call is already in progress")
	ErrNoActiveCall     = errors.New("no active taxi call")
	ErrPositionUnknown  = errors.New("waiting for locate")
	ErrNoAssignedTaxi   = errors.New("waiting for taxi locate")
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrAlreadyLoggedIn  = errors.New("already logged in")
	ErrLoginFailed      = errors.New("login failed")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnknownRequest   = errors.New("unknown request type")
	ErrShutdownTimedOut = errors.New("dispatch loop did not stop in time")
)

// TransportError is a connectivity or IO failure; no application data was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: cannot connect to server: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a non-zero application status answered by the server.
type ProtocolError struct {
	Status  int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("server status %d: %s", e.Status, e.Message)
}

// DecodeError is malformed JSON where structure was required.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "decode " + e.What
	}
	return fmt.Sprintf("decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// SequenceViolation is a server reply numbered above the client's own counter.
type SequenceViolation struct {
	Replied int
	Current int
}

func (e *SequenceViolation) Error() string {
	return fmt.Sprintf("replied sequence %d is larger than current sequence %d", e.Replied, e.Current)
}

package rcon

import "fmt"

// InvalidPasswordError is raised when the server responds to a login
// attempt with requestId == -1.
type InvalidPasswordError struct{}

func (e *InvalidPasswordError) Error() string { return "rcon: invalid password" }

// InvalidPacketError is raised when a frame fails structural validation:
// a bad trailing pad, or a Source preamble response whose request id does
// not match the outstanding login id.
type InvalidPacketError struct {
	Reason string
}

func (e *InvalidPacketError) Error() string { return "rcon: invalid packet: " + e.Reason }

// RequestIdMismatchError is raised when a response's request id cannot be
// correlated to any outstanding command or login attempt.
type RequestIdMismatchError struct {
	RequestID int32
}

func (e *RequestIdMismatchError) Error() string {
	return fmt.Sprintf("rcon: unexpected request id %d", e.RequestID)
}

// IncompleteReadError is raised when the connection closes mid-frame.
type IncompleteReadError struct {
	Wanted int
	Got    int
}

func (e *IncompleteReadError) Error() string {
	return fmt.Sprintf("rcon: incomplete read: wanted %d bytes, got %d", e.Wanted, e.Got)
}

// ConnectionRefusedError wraps a dial failure in a typed error the retry
// policy recognizes.
type ConnectionRefusedError struct {
	Inner error
}

func (e *ConnectionRefusedError) Error() string { return "rcon: connection refused: " + e.Inner.Error() }
func (e *ConnectionRefusedError) Unwrap() error  { return e.Inner }

// TimeoutError wraps a deadline-exceeded failure.
type TimeoutError struct {
	Inner error
}

func (e *TimeoutError) Error() string { return "rcon: timeout: " + e.Inner.Error() }
func (e *TimeoutError) Unwrap() error { return e.Inner }

// UnprocessableResponse is not terminal: the receive loop reports it
// through the caller's error callback and keeps reading.
type UnprocessableResponse struct {
	RequestID int32
	Message   string
}

func (e *UnprocessableResponse) Error() string {
	return fmt.Sprintf("rcon: unprocessable response (id=%d): %s", e.RequestID, e.Message)
}

// IsRetryable reports whether err belongs to the enumerated set the retry
// policy is allowed to retry on (spec §4.E / §7): IncompleteRead,
// ConnectionRefused, Timeout, RequestIdMismatch, InvalidPassword,
// InvalidPacket, or a generic network error surfaced as one of the above.
func IsRetryable(err error) bool {
	switch err.(type) {
	case *IncompleteReadError, *ConnectionRefusedError, *TimeoutError,
		*RequestIdMismatchError, *InvalidPasswordError, *InvalidPacketError:
		return true
	default:
		return false
	}
}

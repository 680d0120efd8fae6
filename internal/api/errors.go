package api

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindTransport       Kind = "transport"
	KindServer          Kind = "server"
	KindNotFound        Kind = "not_found"
	KindInvalidResponse Kind = "invalid_response"
	KindInvalidInput    Kind = "invalid_input"
	KindSession         Kind = "session"
)

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTransport       = errors.New("transport failure")
	ErrServer          = errors.New("server error")
	ErrNotFound        = errors.New("not found")
	ErrInvalidResponse = errors.New("invalid response")
	ErrInvalidInput    = errors.New("invalid input")
	ErrSession         = errors.New("session store failure")
)

var kindSentinels = map[Kind]error{
	KindUnauthenticated: ErrUnauthenticated,
	KindTransport:       ErrTransport,
	KindServer:          ErrServer,
	KindNotFound:        ErrNotFound,
	KindInvalidResponse: ErrInvalidResponse,
	KindInvalidInput:    ErrInvalidInput,
	KindSession:         ErrSession,
}

// Error is the single failure shape returned by every gateway operation.
// Status is zero when no HTTP response was received.
type Error struct {
	Op      string
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// KindOf reports the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// StatusOf reports the HTTP status attached to err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func errUnauthenticated(op string) *Error {
	return &Error{Op: op, Kind: KindUnauthenticated, Message: "authentication required"}
}

func errTransport(op string, err error) *Error {
	return &Error{Op: op, Kind: KindTransport, Message: fmt.Sprintf("request failed: %v", err), Err: err}
}

func errInvalidInput(op, message string) *Error {
	return &Error{Op: op, Kind: KindInvalidInput, Message: message}
}

// errSession reports that the credentials were accepted but could not be
// persisted locally.
func errSession(op string, err error) *Error {
	return &Error{Op: op, Kind: KindSession, Message: fmt.Sprintf("store session: %v", err), Err: err}
}

func errInvalidResponse(op string, status int, err error) *Error {
	msg := "invalid response from server"
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{Op: op, Kind: KindInvalidResponse, Message: msg, Status: status, Err: err}
}

// errFromStatus builds the error for a non-2xx response. message is the
// server's "error" field, possibly empty.
func errFromStatus(op string, status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	kind := KindServer
	switch status {
	case http.StatusUnauthorized:
		kind = KindUnauthenticated
	case http.StatusNotFound:
		kind = KindNotFound
	}
	return &Error{Op: op, Kind: kind, Message: message, Status: status}
}

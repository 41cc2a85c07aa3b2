package generation

import (
	"fmt"
	"net/http"
)

// Kind classifies a generation failure.
type Kind int

const (
	KindUnconfigured Kind = iota
	KindInvalidInput
	KindUpstreamAuth
	KindUpstreamQuota
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindUnconfigured:
		return "unconfigured"
	case KindInvalidInput:
		return "invalid input"
	case KindUpstreamAuth:
		return "upstream auth"
	case KindUpstreamQuota:
		return "upstream quota"
	default:
		return "unknown"
	}
}

// Client-facing messages.
const (
	MsgUnconfigured  = "Gemini API key not configured"
	MsgMissingFields = "Missing required fields: message and type"
	MsgInvalidType   = `Invalid type. Must be "chat" or "emoji"`
	MsgTooLong       = "Message is too long. Please shorten it and try again."
	MsgUpstreamAuth  = "Invalid API key"
	MsgUpstreamQuota = "API quota exceeded"
	MsgUnknown       = "Failed to generate response"
)

// Error is returned by Service.Respond.
type Error struct {
	Err     error
	Message string
	Kind    Kind
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("generation %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("generation %s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUpstreamAuth:
		return http.StatusUnauthorized
	case KindUpstreamQuota:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

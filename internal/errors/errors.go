package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a gateway failure and fixes the local HTTP status it maps to.
type Kind string

const (
	KindConfiguration       Kind = "configuration_error"
	KindResourceUnavailable Kind = "resource_unavailable"
	KindUpstreamUnreachable Kind = "upstream_unreachable"
	KindBodyParse           Kind = "body_parse_error"
	KindUpstreamRejected    Kind = "upstream_rejected"
	KindUnauthorized        Kind = "unauthorized"
	KindInvalidRequest      Kind = "invalid_request_error"
	KindUnprocessable       Kind = "unprocessable_request"
	KindPayloadTooLarge     Kind = "payload_too_large"
	KindMethodNotAllowed    Kind = "method_not_allowed"
	KindNotFound            Kind = "not_found_error"
	KindInternal            Kind = "api_error"
)

// Status returns the local HTTP status for k. UpstreamRejected has no fixed
// status; callers mirror the upstream code instead.
func (k Kind) Status() int {
	switch k {
	case KindConfiguration, KindResourceUnavailable, KindInternal:
		return http.StatusInternalServerError
	case KindUpstreamUnreachable, KindBodyParse:
		return http.StatusBadGateway
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindUnprocessable:
		return http.StatusUnprocessableEntity
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

type Envelope struct {
	Type      string `json:"type"`
	Error     Inner  `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type Inner struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func Marshal(kind Kind, message, requestID string) []byte {
	if strings.TrimSpace(message) == "" {
		message = "request failed"
	}
	payload := Envelope{
		Type: "error",
		Error: Inner{
			Type:    string(kind),
			Message: message,
		},
		RequestID: requestID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return []byte(`{"type":"error","error":{"type":"api_error","message":"failed to marshal error"}}`)
	}
	return body
}

func Write(w http.ResponseWriter, statusCode int, kind Kind, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(Marshal(kind, message, requestID))
}

// WriteError writes err using the status of its Kind. Foreign errors become a
// generic 500 without leaking their text.
func WriteError(w http.ResponseWriter, err error, requestID string) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		Write(w, http.StatusInternalServerError, KindInternal, "internal error", requestID)
		return
	}
	Write(w, apiErr.Kind.Status(), apiErr.Kind, apiErr.Message, requestID)
}

// Package errs defines the gateway's error taxonomy and its JSON envelope.
//
// The kinds mirror the exception hierarchy the Python predecessor used
// (LatticeError and its subclasses) so that the propagation rules in the
// routing pipeline read the same way: a handful of sentinel kinds, each
// carrying an optional provider name, instead of untyped errors inspected
// with string matching.
package errs

import "net/http"

// Kind is one of the exact taxonomy strings that may appear in a response.
type Kind string

const (
	KindRequestValidation  Kind = "request_validation"
	KindProviderValidation Kind = "provider_validation"
	KindProviderTimeout    Kind = "provider_timeout"
	KindProviderRateLimit  Kind = "provider_rate_limit"
	KindProviderInternal   Kind = "provider_internal"
	KindConfiguration      Kind = "configuration"
	KindRateLimit          Kind = "rate_limit"
	KindInternal           Kind = "internal_error"
)

// Recoverable reports whether the pipeline should try the next candidate
// in a band rather than abort the request outright.
func (k Kind) Recoverable() bool {
	switch k {
	case KindProviderTimeout, KindProviderRateLimit, KindProviderInternal:
		return true
	default:
		return false
	}
}

// StatusCode is the HTTP status a surfaced error of this kind maps to.
func (k Kind) StatusCode() int {
	switch k {
	case KindProviderTimeout:
		return http.StatusGatewayTimeout
	case KindProviderRateLimit, KindRateLimit:
		return http.StatusTooManyRequests
	case KindProviderValidation:
		return http.StatusBadRequest
	case KindProviderInternal:
		return http.StatusBadGateway
	case KindConfiguration:
		return http.StatusInternalServerError
	case KindRequestValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a gateway error carrying a taxonomy kind and, where relevant,
// the upstream provider name.
type Error struct {
	Kind     Kind
	Message  string
	Provider string
}

func (e *Error) Error() string { return e.Message }

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewWithProvider constructs an Error that also carries a provider name.
func NewWithProvider(kind Kind, message, provider string) *Error {
	return &Error{Kind: kind, Message: message, Provider: provider}
}

// Envelope is the exact wire shape of §6: {"error":{"type","message","provider"?}}.
type Envelope struct {
	Error EnvelopeBody `json:"error"`
}

type EnvelopeBody struct {
	Type     Kind   `json:"type"`
	Message  string `json:"message"`
	Provider string `json:"provider,omitempty"`
}

// ToEnvelope renders the error in the response envelope shape.
func (e *Error) ToEnvelope() Envelope {
	return Envelope{Error: EnvelopeBody{
		Type:     e.Kind,
		Message:  e.Message,
		Provider: e.Provider,
	}}
}

// As extracts a *Error from any error, returning ok=false for anything else.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}

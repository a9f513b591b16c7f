package errs

import (
	"net/http"
	"testing"
)

func TestRecoverable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindProviderTimeout, true},
		{KindProviderRateLimit, true},
		{KindProviderInternal, true},
		{KindRequestValidation, false},
		{KindProviderValidation, false},
		{KindConfiguration, false},
		{KindRateLimit, false},
		{KindInternal, false},
	}
	for _, tc := range tests {
		if got := tc.kind.Recoverable(); got != tc.want {
			t.Errorf("Kind(%s).Recoverable() = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindProviderTimeout, http.StatusGatewayTimeout},
		{KindProviderRateLimit, http.StatusTooManyRequests},
		{KindRateLimit, http.StatusTooManyRequests},
		{KindProviderValidation, http.StatusBadRequest},
		{KindProviderInternal, http.StatusBadGateway},
		{KindConfiguration, http.StatusInternalServerError},
		{KindRequestValidation, http.StatusUnprocessableEntity},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := tc.kind.StatusCode(); got != tc.want {
			t.Errorf("Kind(%s).StatusCode() = %d, want %d", tc.kind, got, tc.want)
		}
	}
}

func TestToEnvelopeOmitsEmptyProvider(t *testing.T) {
	e := New(KindInternal, "boom")
	env := e.ToEnvelope()
	if env.Error.Type != KindInternal || env.Error.Message != "boom" || env.Error.Provider != "" {
		t.Fatalf("ToEnvelope() = %+v, want internal_error/boom with no provider", env.Error)
	}
}

func TestNewWithProvider(t *testing.T) {
	e := NewWithProvider(KindProviderTimeout, "timed out", "openai")
	env := e.ToEnvelope()
	if env.Error.Provider != "openai" {
		t.Fatalf("ToEnvelope().Error.Provider = %q, want openai", env.Error.Provider)
	}
}

func TestAs(t *testing.T) {
	wrapped := New(KindConfiguration, "bad config")
	var err error = wrapped
	got, ok := As(err)
	if !ok || got != wrapped {
		t.Fatalf("As() = (%v, %v), want the original *Error", got, ok)
	}

	if _, ok := As(errPlain{}); ok {
		t.Fatal("As(non-*Error) = ok, want false")
	}
}

type errPlain struct{}

func (errPlain) Error() string { return "plain" }

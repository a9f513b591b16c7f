// Request header hygiene: strips provider credential headers a client
// might (accidentally or otherwise) attach directly, since every
// upstream call is built from the gateway's own configured provider
// keys, never a client-supplied one. Adapted from the teacher's
// header-normalization middleware, trimmed of its response-side half —
// that file rewrote raw provider HTTP responses being proxied back to
// the client; this gateway never forwards a raw provider response, it
// always returns its own JSON envelope, so there is nothing upstream to
// strip on the way out.
package middleware

import (
	"net/http"
)

// headersToStrip are provider-specific headers clients should never set
// directly — the gateway manages provider authentication itself.
var headersToStrip = []string{
	"x-api-key",
	"anthropic-version",
	"anthropic-beta",
	"openai-organization",
	"openai-project",
}

// StripProviderHeaders removes client-supplied provider credential
// headers before the request reaches the routing pipeline.
func StripProviderHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, header := range headersToStrip {
			r.Header.Del(header)
		}
		next.ServeHTTP(w, r)
	})
}

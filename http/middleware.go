package http

import (
	"net/http"
	"net/url"
)

// RequestVerifier authenticates a request. *docvault.SignatureVerifier implements it.
type RequestVerifier interface {
	Verify(method, path string, query url.Values, headers http.Header) error
}

// AuthMiddleware creates middleware that enforces AWS Signature V4 authentication.
// Pass a nil verifier for public access.
func AuthMiddleware(verifier RequestVerifier) func(http.Handler) http.Handler {
	if verifier == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Go stores Host separately from Header
			headers := r.Header.Clone()
			headers.Set("Host", r.Host)

			if err := verifier.Verify(r.Method, r.URL.EscapedPath(), r.URL.Query(), headers); err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

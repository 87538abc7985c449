package testutil

import (
	"net/http"
	"time"

	"sigil/pkg/requestcontext"
)

// WithRequestID stamps a request ID on the request context, the same way the
// HTTP middleware would for real traffic.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithFixedTime pins the request clock so issuance and expiry assertions are
// deterministic.
func WithFixedTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

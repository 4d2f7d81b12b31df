package testutil

import (
	"net/http"
	"time"

	"factgate/pkg/requestcontext"
)

// WithRequestTime pins the request-scoped clock so expiry-sensitive handlers
// behave deterministically without the middleware chain.
func WithRequestTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}

// WithClientMetadata injects client IP and user agent the way the request
// middleware does.
func WithClientMetadata(req *http.Request, clientIP, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent))
}

// WithRequestID injects a correlation ID for assertions on audit records.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

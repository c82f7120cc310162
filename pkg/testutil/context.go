package testutil

import (
	"net/http"

	"skimvault/pkg/requestcontext"
)

// WithCaller marks the request as authenticated by caller, as the auth
// middleware would.
func WithCaller(req *http.Request, caller string) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithRequestID attaches a fixed request id.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

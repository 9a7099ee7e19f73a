package client

import "errors"

// Transport errors are mapped onto these so callers never see gRPC codes.
var (
	// ErrUnavailable means the server could not be reached. Posts stay local
	// and can be resubmitted later.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized means the credentials or the access token were refused.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLocalDataNotAvailable means no offline login data is cached on this
	// device yet.
	ErrLocalDataNotAvailable = errors.New("no offline login data on this device")
)

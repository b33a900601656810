package flickr

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSecret is returned by operations that cannot proceed unsigned
	ErrNoSecret = errors.New("flickr: operation requires an API secret")

	// ErrStopWalk may be returned from a Walk callback to end iteration early
	ErrStopWalk = errors.New("flickr: stop walk")
)

// APIError is a failure reported by the service in a stat="fail" envelope
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flickr: error %d: %s", e.Code, e.Message)
}

// ProtocolError means the service answered with something other than a
// well formed response envelope.
type ProtocolError struct {
	Status  int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("flickr: protocol error (HTTP %d): %s", e.Status, e.Message)
}

// IsErrorCode reports whether err is an *APIError carrying code
func IsErrorCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

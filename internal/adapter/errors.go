package adapter

import "errors"

var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("version conflict")
	ErrUnprocessable       = errors.New("payload rejected by remote validation")
	ErrBadGateway          = errors.New("bad gateway")
	ErrInternalServerError = errors.New("internal server error")

	ErrSubscriptionClosed = errors.New("subscription is closed")
)

// IsTerminal reports whether err is a validation-class rejection that must
// not be retried. Everything else (timeouts, connection resets, 5xx) is
// treated as a transport failure and retried by the drain loop.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrBadRequest) || errors.Is(err, ErrUnprocessable)
}

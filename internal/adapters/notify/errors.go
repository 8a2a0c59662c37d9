package notify

import "errors"

// Sentinel errors for the notification publisher.
var (
	ErrConnect = errors.New("nats connect failed")
	ErrClosed  = errors.New("publisher closed")
)

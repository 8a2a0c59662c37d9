package notify

import (
	"time"

	"github.com/gogobubbles/leadops/pkg/logger"
)

// Option configures a NATSPublisher.
type Option func(*settings)

type settings struct {
	token         string
	maxReconnects int
	reconnectWait time.Duration
	logger        logger.Logger
}

func defaultSettings() settings {
	return settings{
		maxReconnects: 60,
		reconnectWait: 2 * time.Second,
		logger:        logger.Nop(),
	}
}

// WithToken authenticates the connection with a bearer token.
func WithToken(token string) Option {
	return func(s *settings) {
		s.token = token
	}
}

// WithMaxReconnects bounds reconnect attempts.
func WithMaxReconnects(n int) Option {
	return func(s *settings) {
		s.maxReconnects = n
	}
}

// WithReconnectWait sets the delay between reconnect attempts.
func WithReconnectWait(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.reconnectWait = d
		}
	}
}

// WithLogger sets the publisher logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

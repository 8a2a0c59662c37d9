// Package notify publishes settlement and pattern events to NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/gogobubbles/leadops/internal/domain/model"
	"github.com/gogobubbles/leadops/internal/domain/patterns"
	"github.com/gogobubbles/leadops/pkg/logger"
	"github.com/gogobubbles/leadops/pkg/metrics"
)

// Subjects.
const (
	SubjectSettled = "leadops.takeover.settled"
	SubjectFlagged = "leadops.pattern.flagged"
)

// Publisher emits domain events to downstream consumers.
type Publisher interface {
	PublishSettlement(ctx context.Context, s model.Settlement) error
	PublishFlag(ctx context.Context, f patterns.Flag) error
	Close()
}

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Close()
}

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = Nop{}
)

// NATSPublisher publishes JSON payloads over a NATS connection.
type NATSPublisher struct {
	mu     sync.RWMutex
	conn   Conn
	closed bool
	logger logger.Logger
}

// Connect dials url and returns a publisher. The connection retries in the
// background if the server is not reachable yet.
func Connect(url string, opts ...Option) (*NATSPublisher, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	log := s.logger.Named("notify")

	natsOpts := []nats.Option{
		nats.Name("leadops"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(s.maxReconnects),
		nats.ReconnectWait(s.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn(context.Background(), "nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info(context.Background(), "nats reconnected", logger.String("url", nc.ConnectedUrl()))
		}),
	}
	if s.token != "" {
		natsOpts = append(natsOpts, nats.Token(s.token))
	}

	nc, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return NewPublisher(nc, WithLogger(s.logger)), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn Conn, opts ...Option) *NATSPublisher {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &NATSPublisher{conn: conn, logger: s.logger.Named("notify")}
}

// PublishSettlement publishes s on SubjectSettled.
func (p *NATSPublisher) PublishSettlement(ctx context.Context, s model.Settlement) error { //nolint:gocritic // hugeParam: settlements are values throughout
	return p.publish(ctx, SubjectSettled, s)
}

// PublishFlag publishes f on SubjectFlagged.
func (p *NATSPublisher) PublishFlag(ctx context.Context, f patterns.Flag) error { //nolint:gocritic // hugeParam
	return p.publish(ctx, SubjectFlagged, f)
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, v any) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		metrics.RecordNotification(subject, "closed")
		return ErrClosed
	}

	payload, err := json.Marshal(v)
	if err != nil {
		metrics.RecordNotification(subject, "encode_error")
		return fmt.Errorf("marshal %s payload: %w", subject, err)
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		metrics.RecordNotification(subject, "error")
		metrics.RecordErrorByComponent("notify", "publish")
		p.logger.Warn(ctx, "publish failed", logger.String("subject", subject), logger.Error(err))
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	metrics.RecordNotification(subject, "ok")
	return nil
}

// Close closes the underlying connection. Later publishes return ErrClosed.
func (p *NATSPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.conn.Close()
}

// Nop discards every event.
type Nop struct{}

// PublishSettlement does nothing.
func (Nop) PublishSettlement(context.Context, model.Settlement) error { return nil }

// PublishFlag does nothing.
func (Nop) PublishFlag(context.Context, patterns.Flag) error { return nil }

// Close does nothing.
func (Nop) Close() {}

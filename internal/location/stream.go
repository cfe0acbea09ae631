package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
	"github.com/Ch00k/cvs-compass/internal/logging"
)

const (
	defaultReconnectDelay    = 1 * time.Second
	defaultMaxReconnectDelay = 30 * time.Second
)

// StreamProvider receives fixes pushed by a companion device over a websocket.
// Dropped connections are reported as one failure each and redialled with
// exponential backoff.
type StreamProvider struct {
	url               string
	header            http.Header
	dialer            *websocket.Dialer
	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration
	logger            *logrus.Entry
}

// StreamOption configures a StreamProvider
type StreamOption func(*StreamProvider)

// WithHeader sets extra handshake headers, e.g. an auth token
func WithHeader(header http.Header) StreamOption {
	return func(p *StreamProvider) {
		p.header = header
	}
}

// WithReconnectDelay sets the initial and maximum redial delay
func WithReconnectDelay(initial, maxDelay time.Duration) StreamOption {
	return func(p *StreamProvider) {
		p.reconnectDelay = initial
		p.maxReconnectDelay = maxDelay
	}
}

// WithStreamLogger sets the logger
func WithStreamLogger(logger *logrus.Entry) StreamOption {
	return func(p *StreamProvider) {
		p.logger = logger
	}
}

// NewStreamProvider creates a provider reading from the websocket at url
func NewStreamProvider(url string, opts ...StreamOption) *StreamProvider {
	p := &StreamProvider{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		reconnectDelay:    defaultReconnectDelay,
		maxReconnectDelay: defaultMaxReconnectDelay,
		logger:            logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider
func (p *StreamProvider) Name() string { return "stream" }

// Run implements Provider
func (p *StreamProvider) Run(ctx context.Context, sink Sink) error {
	delay := p.reconnectDelay

	for {
		conn, _, err := p.dialer.DialContext(ctx, p.url, p.header)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.WithError(err).Warnf("Failed to connect to %s", p.url)
			sink.LocationUpdateFailed(apperrors.LocationUpdateFailed(apperrors.ProviderUnavailable(p.Name(), err)))
		} else {
			p.logger.Infof("Connected to %s", p.url)
			delay = p.reconnectDelay
			err = p.read(ctx, conn, sink)
			if ctx.Err() != nil {
				return nil
			}
			p.logger.WithError(err).Warn("Location stream dropped")
			sink.LocationUpdateFailed(apperrors.LocationUpdateFailed(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > p.maxReconnectDelay {
			delay = p.maxReconnectDelay
		}
	}
}

// read consumes messages until the connection fails or ctx is cancelled
func (p *StreamProvider) read(ctx context.Context, conn *websocket.Conn, sink Sink) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read location stream: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			p.logger.WithError(err).Warn("Malformed stream message")
			sink.LocationUpdateFailed(apperrors.LocationUpdateFailed(err))
			continue
		}
		if err := deliver(msg, sink); err != nil {
			p.logger.WithError(err).Warn("Rejected stream message")
			sink.LocationUpdateFailed(apperrors.LocationUpdateFailed(err))
		}
	}
}

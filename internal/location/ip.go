package location

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
	"github.com/Ch00k/cvs-compass/internal/logging"
)

// IPProvider polls an IP geolocation service. It has no permission prompt
// of its own: the configured authorization is reported once at start, and
// polling only happens when it allows fixes.
type IPProvider struct {
	client        *Client
	interval      time.Duration
	authorization AuthorizationStatus
	logger        *logrus.Entry
}

// NewIPProvider creates a provider that polls client every interval
func NewIPProvider(client *Client, interval time.Duration, status AuthorizationStatus, logger *logrus.Entry) *IPProvider {
	if logger == nil {
		logger = logging.Discard()
	}
	return &IPProvider{
		client:        client,
		interval:      interval,
		authorization: status,
		logger:        logger,
	}
}

// Name implements Provider
func (p *IPProvider) Name() string { return "ip" }

// Run implements Provider
func (p *IPProvider) Run(ctx context.Context, sink Sink) error {
	sink.AuthorizationChanged(p.authorization)
	if !p.authorization.Allowed() {
		p.logger.Infof("Location sharing is %s, not polling", p.authorization)
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.poll(ctx, sink)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *IPProvider) poll(ctx context.Context, sink Sink) {
	userLoc, err := p.client.GetUserLocation(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		sink.LocationUpdateFailed(apperrors.LocationUpdateFailed(err))
		return
	}
	sink.LocationUpdated(userLoc.Location())
}

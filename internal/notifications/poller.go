package notifications

import (
	"context"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
	"github.com/angelmondragon/storefront-sync/pkg/metrics"
)

// Refresher converges the local notification snapshot with the remote feed.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Poller is the consistency backstop for the notification feed. It refreshes
// on a fixed interval regardless of whether the realtime channel is attached,
// so a dropped push never strands the feed.
type Poller struct {
	refresher Refresher
	interval  time.Duration
	metrics   *metrics.SyncMetrics
	logg      *logger.Logger
}

// PollerParams groups the poller dependencies.
type PollerParams struct {
	Refresher Refresher
	Interval  time.Duration
	Metrics   *metrics.SyncMetrics
	Logger    *logger.Logger
}

// NewPoller builds the notification poller.
func NewPoller(params PollerParams) (*Poller, error) {
	if params.Refresher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "poller requires a refresher")
	}
	if params.Interval <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "poll interval must be positive")
	}
	return &Poller{
		refresher: params.Refresher,
		interval:  params.Interval,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// Run polls until the context is canceled. Refresh failures are counted and
// logged; the loop keeps going.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if p.logg != nil {
		p.logg.Info(ctx, "notification poller started")
	}
	for {
		select {
		case <-ctx.Done():
			if p.logg != nil {
				p.logg.Info(ctx, "notification poller stopped")
			}
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	p.metrics.IncPollCycle()
	if err := p.refresher.Refresh(ctx); err != nil {
		p.metrics.IncPollFailure()
		if p.logg != nil {
			p.logg.Warn(p.logg.WithField(ctx, "cause", err.Error()), "notification poll failed")
		}
	}
}

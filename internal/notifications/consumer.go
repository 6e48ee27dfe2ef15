package notifications

import (
	"context"

	pubsub "cloud.google.com/go/pubsub/v2"

	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
)

// Consumer drives the optional realtime notification channel. Each push
// triggers a refresh; message bodies are ignored because the remote feed is
// the source of truth. The poller remains the backstop for missed pushes.
type Consumer struct {
	subscriber *pubsub.Subscriber
	refresher  Refresher
	logg       *logger.Logger
}

// ConsumerParams groups the consumer dependencies.
type ConsumerParams struct {
	Subscriber *pubsub.Subscriber
	Refresher  Refresher
	Logger     *logger.Logger
}

// NewConsumer builds the realtime notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Subscriber == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "consumer requires a subscriber")
	}
	if params.Refresher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "consumer requires a refresher")
	}
	return &Consumer{
		subscriber: params.Subscriber,
		refresher:  params.Refresher,
		logg:       params.Logger,
	}, nil
}

// Run receives pushes until the context is canceled. A failed refresh nacks
// the message so the channel redelivers it.
func (c *Consumer) Run(ctx context.Context) error {
	if c.logg != nil {
		c.logg.Info(ctx, "notification consumer started")
	}
	return c.subscriber.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
		if err := c.refresher.Refresh(msgCtx); err != nil {
			if c.logg != nil {
				c.logg.Warn(c.logg.WithField(msgCtx, "cause", err.Error()), "realtime refresh failed")
			}
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

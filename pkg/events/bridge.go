package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-sync/pkg/logger"
	syncredis "github.com/angelmondragon/storefront-sync/pkg/redis"
	"github.com/google/uuid"
)

// Conn is the pub/sub surface the bridge needs from the redis client.
type Conn interface {
	Publish(ctx context.Context, channel, payload string) error
	Subscribe(ctx context.Context, channel string) syncredis.Listener
}

// Bridge relays event kinds between processes over a redis channel, the way
// sibling browser tabs observe each other's storage writes. Only the kind
// crosses the wire; receivers republish locally with an empty payload so
// observers re-read from their own cache.
type Bridge struct {
	bus     *Bus
	conn    Conn
	channel string
	origin  string
	logg    *logger.Logger
}

// NewBridge wires the bridge as the bus relay.
func NewBridge(bus *Bus, conn Conn, channel string, logg *logger.Logger) (*Bridge, error) {
	if bus == nil {
		return nil, fmt.Errorf("bus required")
	}
	if conn == nil {
		return nil, fmt.Errorf("redis connection required")
	}
	if channel == "" {
		return nil, fmt.Errorf("channel required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	bridge := &Bridge{
		bus:     bus,
		conn:    conn,
		channel: channel,
		origin:  uuid.NewString(),
		logg:    logg,
	}
	bus.SetRelay(bridge)
	return bridge, nil
}

// Relay publishes the kind to peers. Failures are logged and swallowed: the
// local write already succeeded and peer refresh is best effort.
func (b *Bridge) Relay(ctx context.Context, kind Kind) {
	payload := b.origin + "|" + string(kind)
	if err := b.conn.Publish(ctx, b.channel, payload); err != nil {
		b.logg.Warn(b.logg.WithField(ctx, "kind", string(kind)), "event relay publish failed")
	}
}

// Run consumes peer notifications until the context is canceled.
func (b *Bridge) Run(ctx context.Context) error {
	listener := b.conn.Subscribe(ctx, b.channel)
	defer listener.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-listener.Channel():
			if !ok {
				return nil
			}
			b.handle(ctx, msg.Payload)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, payload string) {
	origin, rawKind, found := strings.Cut(payload, "|")
	if !found {
		b.logg.Warn(ctx, "malformed bridge payload")
		return
	}
	if origin == b.origin {
		return
	}
	kind, err := ParseKind(rawKind)
	if err != nil {
		b.logg.Warn(b.logg.WithField(ctx, "kind", rawKind), "unknown bridge event kind")
		return
	}
	b.bus.Deliver(ctx, Event{Kind: kind})
}

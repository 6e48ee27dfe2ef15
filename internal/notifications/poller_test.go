package notifications

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-sync/pkg/metrics"
)

type countingRefresher struct {
	calls atomic.Int64
	err   error
}

func (c *countingRefresher) Refresh(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestPollerRefreshesOnInterval(t *testing.T) {
	refresher := &countingRefresher{}
	poller, err := NewPoller(PollerParams{
		Refresher: refresher,
		Interval:  5 * time.Millisecond,
		Metrics:   metrics.NewSyncMetrics(nil),
	})
	if err != nil {
		t.Fatalf("building poller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for refresher.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 refreshes, got %d", refresher.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestPollerSurvivesRefreshFailures(t *testing.T) {
	refresher := &countingRefresher{err: errors.New("remote store unavailable")}
	poller, err := NewPoller(PollerParams{
		Refresher: refresher,
		Interval:  5 * time.Millisecond,
		Metrics:   metrics.NewSyncMetrics(nil),
	})
	if err != nil {
		t.Fatalf("building poller: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	poller.Run(ctx)

	if refresher.calls.Load() < 2 {
		t.Fatalf("expected the loop to keep polling through failures, got %d calls", refresher.calls.Load())
	}
}

func TestNewPollerValidation(t *testing.T) {
	if _, err := NewPoller(PollerParams{Interval: time.Second}); err == nil {
		t.Fatal("expected error for missing refresher")
	}
	if _, err := NewPoller(PollerParams{Refresher: &countingRefresher{}}); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

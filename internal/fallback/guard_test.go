package fallback

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"

	"github.com/angelmondragon/storefront-sync/pkg/logger"
	"github.com/angelmondragon/storefront-sync/pkg/metrics"
)

func fallbackCount(t *testing.T, reg *prometheus.Registry, collection, op string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "fallback_recoveries_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchLabels(metric, collection, op) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, collection, op string) bool {
	var gotCollection, gotOp string
	for _, label := range metric.GetLabel() {
		switch label.GetName() {
		case "collection":
			gotCollection = label.GetValue()
		case "op":
			gotOp = label.GetValue()
		}
	}
	return gotCollection == collection && gotOp == op
}

func TestGuardRecoveredCountsAndLogs(t *testing.T) {
	reg := prometheus.NewRegistry()
	var buf bytes.Buffer
	logg := logger.New(logger.Options{
		ServiceName: "guard-test",
		Level:       zerolog.DebugLevel,
		Output:      &buf,
	})
	guard := NewGuard(logg, metrics.NewSyncMetrics(reg))

	guard.Recovered(context.Background(), "user_carts", "fetch", errors.New("connection refused"))

	if got := fallbackCount(t, reg, "user_carts", "fetch"); got != 1 {
		t.Fatalf("expected one recovery counted, got %v", got)
	}
	line := buf.String()
	if !strings.Contains(line, "serving local cache") {
		t.Fatalf("expected recovery warn log, got %q", line)
	}
	if !strings.Contains(line, `"collection":"user_carts"`) || !strings.Contains(line, "connection refused") {
		t.Fatalf("expected collection and cause in log, got %q", line)
	}
}

func TestGuardRecoveredNilError(t *testing.T) {
	reg := prometheus.NewRegistry()
	guard := NewGuard(nil, metrics.NewSyncMetrics(reg))

	guard.Recovered(context.Background(), "orders", "list", nil)

	if got := fallbackCount(t, reg, "orders", "list"); got != 1 {
		t.Fatalf("expected one recovery counted, got %v", got)
	}
}

func TestGuardSkippedAnonymous(t *testing.T) {
	reg := prometheus.NewRegistry()
	var buf bytes.Buffer
	logg := logger.New(logger.Options{
		ServiceName: "guard-test",
		Level:       zerolog.DebugLevel,
		Output:      &buf,
	})
	guard := NewGuard(logg, metrics.NewSyncMetrics(reg))

	guard.SkippedAnonymous(context.Background(), "wishlist", "add")

	if got := fallbackCount(t, reg, "wishlist", "add"); got != 1 {
		t.Fatalf("expected one skip counted, got %v", got)
	}
	line := buf.String()
	if !strings.Contains(line, "local cache only") {
		t.Fatalf("expected debug log, got %q", line)
	}
	if !strings.Contains(line, `"collection":"wishlist"`) || !strings.Contains(line, `"actor_id":"anonymous"`) {
		t.Fatalf("expected collection and actor tags in log, got %q", line)
	}
}

func TestGuardNilReceiverIsNoOp(t *testing.T) {
	var guard *Guard
	guard.Recovered(context.Background(), "products", "list", errors.New("down"))
	guard.SkippedAnonymous(context.Background(), "cart", "get")
}

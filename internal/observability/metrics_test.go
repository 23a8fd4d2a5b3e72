package observability

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecordMetricHelpersNoPanicWhenUninitialized(t *testing.T) {
	ctx := context.Background()
	metricsMu.Lock()
	appMetrics = nil
	metricsMu.Unlock()

	// Smoke-call every helper with appMetrics=nil; they should all no-op safely.
	RecordAuthLogin(ctx, "success")
	RecordAuthRefresh(ctx, "success")
	RecordAuthLogout(ctx, "success")
	RecordAccessTokenValidation(ctx, "ok", "cookie")
	RecordCSRFValidation(ctx, "ok", "api")
	RecordRateLimitDecision(ctx, "auth", "allow", "local", "ip")
	RecordRateLimitRetryAfter(ctx, "auth", "window", time.Second)
	RecordInviteLifecycle(ctx, "create", "success")
	RecordInviteEmailDelivery(ctx, "sent")
	RecordProfileMutation(ctx, "assign", "success")
	RecordPresencePing(ctx, "success")
	RecordRosterRequestDuration(ctx, "success", 20*time.Millisecond)
	RecordRepositoryOperation(ctx, "invite", "create", "success")
	RecordDatabaseStartupEvent(ctx, "migrate", "success")
	RecordDatabaseStartupDuration(ctx, "migrate", 15*time.Millisecond)
	RecordHealthCheckResult(ctx, "db", "ready")
	RecordHealthCheckDuration(ctx, "db", 5*time.Millisecond)
}

func TestRecordHelpersEmitThroughInstalledMetrics(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	meter := provider.Meter("charmops-backend-test")
	inviteCounter, err := meter.Int64Counter("invites.lifecycle.events")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	pingCounter, err := meter.Int64Counter("presence.pings")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}

	metricsMu.Lock()
	appMetrics = &AppMetrics{
		inviteLifecycleCounter: inviteCounter,
		presencePingCounter:    pingCounter,
	}
	metricsMu.Unlock()
	defer func() {
		metricsMu.Lock()
		appMetrics = nil
		metricsMu.Unlock()
	}()

	RecordInviteLifecycle(ctx, "create", "success")
	RecordInviteLifecycle(ctx, "revoke", "success")
	RecordPresencePing(ctx, "success")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected recorded metrics")
	}

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	if !names["invites.lifecycle.events"] || !names["presence.pings"] {
		t.Fatalf("missing expected metrics, got %v", names)
	}
}

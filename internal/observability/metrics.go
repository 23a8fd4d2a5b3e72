package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/charmops/charmops-backend/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
	"go.opentelemetry.io/otel/sdk/resource"
)

type AppMetrics struct {
	authLoginCounter             metric.Int64Counter
	authRefreshCounter           metric.Int64Counter
	authLogoutCounter            metric.Int64Counter
	accessTokenValidationCounter metric.Int64Counter
	csrfValidationCounter        metric.Int64Counter
	rateLimitDecisionCounter     metric.Int64Counter
	rateLimitRetryAfter          metric.Float64Histogram
	inviteLifecycleCounter       metric.Int64Counter
	inviteEmailCounter           metric.Int64Counter
	profileMutationCounter       metric.Int64Counter
	presencePingCounter          metric.Int64Counter
	rosterReqDuration            metric.Float64Histogram
	repositoryOpCounter          metric.Int64Counter
	dbStartupEventCounter        metric.Int64Counter
	dbStartupDuration            metric.Float64Histogram
	healthCheckResultCounter     metric.Int64Counter
	healthCheckDuration          metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "operators.roster.request.duration"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
					Boundaries: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
				},
			},
		)),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("charmops-backend")
	loginCounter, err := meter.Int64Counter("auth.login.attempts")
	if err != nil {
		return nil, err
	}
	refreshCounter, err := meter.Int64Counter("auth.refresh.attempts")
	if err != nil {
		return nil, err
	}
	logoutCounter, err := meter.Int64Counter("auth.logout.attempts")
	if err != nil {
		return nil, err
	}
	accessTokenValidationCounter, err := meter.Int64Counter("auth.access_token.validation.events")
	if err != nil {
		return nil, err
	}
	csrfValidationCounter, err := meter.Int64Counter("security.csrf.validation.events")
	if err != nil {
		return nil, err
	}
	rateLimitDecisionCounter, err := meter.Int64Counter("http.rate_limit.decisions")
	if err != nil {
		return nil, err
	}
	rateLimitRetryAfter, err := meter.Float64Histogram(
		"http.rate_limit.retry_after",
		metric.WithUnit("s"),
		metric.WithDescription("Retry-after duration in seconds for throttled requests"),
	)
	if err != nil {
		return nil, err
	}
	inviteLifecycleCounter, err := meter.Int64Counter("invites.lifecycle.events")
	if err != nil {
		return nil, err
	}
	inviteEmailCounter, err := meter.Int64Counter("invites.email.deliveries")
	if err != nil {
		return nil, err
	}
	profileMutationCounter, err := meter.Int64Counter("profiles.mutations")
	if err != nil {
		return nil, err
	}
	presencePingCounter, err := meter.Int64Counter("presence.pings")
	if err != nil {
		return nil, err
	}
	rosterReqDuration, err := meter.Float64Histogram(
		"operators.roster.request.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of operator roster requests in seconds"),
	)
	if err != nil {
		return nil, err
	}
	repositoryOpCounter, err := meter.Int64Counter("repository.operations")
	if err != nil {
		return nil, err
	}
	dbStartupEventCounter, err := meter.Int64Counter("database.startup.events")
	if err != nil {
		return nil, err
	}
	dbStartupDuration, err := meter.Float64Histogram(
		"database.startup.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of database startup steps in seconds"),
	)
	if err != nil {
		return nil, err
	}
	healthCheckResultCounter, err := meter.Int64Counter("health.check.results")
	if err != nil {
		return nil, err
	}
	healthCheckDuration, err := meter.Float64Histogram(
		"health.check.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of health dependency checks in seconds"),
	)
	if err != nil {
		return nil, err
	}

	metricsMu.Lock()
	appMetrics = &AppMetrics{
		authLoginCounter:             loginCounter,
		authRefreshCounter:           refreshCounter,
		authLogoutCounter:            logoutCounter,
		accessTokenValidationCounter: accessTokenValidationCounter,
		csrfValidationCounter:        csrfValidationCounter,
		rateLimitDecisionCounter:     rateLimitDecisionCounter,
		rateLimitRetryAfter:          rateLimitRetryAfter,
		inviteLifecycleCounter:       inviteLifecycleCounter,
		inviteEmailCounter:           inviteEmailCounter,
		profileMutationCounter:       profileMutationCounter,
		presencePingCounter:          presencePingCounter,
		rosterReqDuration:            rosterReqDuration,
		repositoryOpCounter:          repositoryOpCounter,
		dbStartupEventCounter:        dbStartupEventCounter,
		dbStartupDuration:            dbStartupDuration,
		healthCheckResultCounter:     healthCheckResultCounter,
		healthCheckDuration:          healthCheckDuration,
	}
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func RecordAuthLogin(ctx context.Context, status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAuthRefresh(ctx context.Context, status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.authRefreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAuthLogout(ctx context.Context, status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.authLogoutCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAccessTokenValidation(ctx context.Context, outcome, source string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.accessTokenValidationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	))
}

func RecordCSRFValidation(ctx context.Context, outcome, pathGroup string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.csrfValidationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("path_group", pathGroup),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode, keyType string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
		attribute.String("key_type", keyType),
	))
}

func RecordRateLimitRetryAfter(ctx context.Context, scope, reason string, retryAfter time.Duration) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.rateLimitRetryAfter.Record(ctx, retryAfter.Seconds(), metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("reason", reason),
	))
}

// RecordInviteLifecycle tracks invite state transitions: created, refreshed,
// revoked, accepted, resolve checks.
func RecordInviteLifecycle(ctx context.Context, action, status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.inviteLifecycleCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status", status),
	))
}

func RecordInviteEmailDelivery(ctx context.Context, outcome string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.inviteEmailCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordProfileMutation(ctx context.Context, action, status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.profileMutationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status", status),
	))
}

func RecordPresencePing(ctx context.Context, status string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.presencePingCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordRosterRequestDuration(ctx context.Context, status string, duration time.Duration) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.rosterReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("status", status),
	))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.repositoryOpCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordDatabaseStartupEvent(ctx context.Context, step, outcome string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.dbStartupEventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("outcome", outcome),
	))
}

func RecordDatabaseStartupDuration(ctx context.Context, step string, duration time.Duration) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.dbStartupDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("step", step),
	))
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("check", check),
	))
}

package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string

	JWTIssuer          string
	JWTAudience        string
	JWTAccessSecret    string
	JWTRefreshSecret   string
	JWTAccessTTL       time.Duration
	JWTRefreshTTL      time.Duration
	RefreshTokenPepper string
	CookieDomain       string
	CookieSecure       bool
	CookieSameSite     string
	CORSAllowedOrigins []string

	AppBaseURL        string
	InviteExpiresDays int
	ProfileSecretKey  []byte

	PresenceOnlineWindow time.Duration
	ActivityRetention    time.Duration

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	SuperAdminEmail     string
	SuperAdminPassword  string
	SuperAdminFirstName string
	SuperAdminLastName  string

	AuthRateLimitPerMin   int
	APIRateLimitPerMin    int
	RateLimitRedisEnabled bool
	RateLimitRedisPrefix  string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int

	ReadinessProbeTimeout  time.Duration
	ServerStartGracePeriod time.Duration
	ShutdownTimeout        time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:                env,
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTIssuer:          getEnv("JWT_ISSUER", "charmops-backend"),
		JWTAudience:        getEnv("JWT_AUDIENCE", "charmops-backend-api"),
		JWTAccessSecret:    os.Getenv("JWT_ACCESS_SECRET"),
		JWTRefreshSecret:   os.Getenv("JWT_REFRESH_SECRET"),
		RefreshTokenPepper: os.Getenv("REFRESH_TOKEN_PEPPER"),
		CookieDomain:       os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:       getEnvBool("COOKIE_SECURE", true),
		CookieSameSite:     strings.ToLower(getEnv("COOKIE_SAMESITE", "lax")),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		AppBaseURL:        strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		InviteExpiresDays: getEnvInt("INVITE_EXPIRES_DAYS", 7),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),

		SuperAdminEmail:     strings.TrimSpace(strings.ToLower(os.Getenv("SUPER_ADMIN_EMAIL"))),
		SuperAdminPassword:  os.Getenv("SUPER_ADMIN_PASSWORD"),
		SuperAdminFirstName: strings.TrimSpace(os.Getenv("SUPER_ADMIN_FIRST_NAME")),
		SuperAdminLastName:  strings.TrimSpace(os.Getenv("SUPER_ADMIN_LAST_NAME")),

		AuthRateLimitPerMin:   getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:    getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		RateLimitRedisEnabled: getEnvBool("RATE_LIMIT_REDIS_ENABLED", false),
		RateLimitRedisPrefix:  getEnv("RATE_LIMIT_REDIS_PREFIX", "charmops:rl"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getEnvInt("REDIS_DB", 0),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "charmops-backend"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	var err error
	if cfg.JWTAccessTTL, err = getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.JWTRefreshTTL, err = getEnvDuration("JWT_REFRESH_TTL", 168*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PresenceOnlineWindow, err = getEnvDuration("PRESENCE_ONLINE_WINDOW", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.ActivityRetention, err = getEnvDuration("ACTIVITY_RETENTION", 14*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ReadinessProbeTimeout, err = getEnvDuration("READINESS_PROBE_TIMEOUT", time.Second); err != nil {
		return nil, err
	}
	if cfg.ServerStartGracePeriod, err = getEnvDuration("SERVER_START_GRACE_PERIOD", 0); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = getEnvDuration("OTEL_METRICS_EXPORT_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}

	if raw := os.Getenv("PROFILE_SECRET_KEY"); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode PROFILE_SECRET_KEY: %w", err)
		}
		cfg.ProfileSecretKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTAccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 chars")
	}
	if len(c.JWTRefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 chars")
	}
	if c.JWTAccessSecret != "" && c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if len(c.RefreshTokenPepper) < 16 {
		errs = append(errs, "REFRESH_TOKEN_PEPPER must be at least 16 chars")
	}
	if len(c.ProfileSecretKey) != 32 {
		errs = append(errs, "PROFILE_SECRET_KEY must be 32 bytes in base64")
	}
	if c.InviteExpiresDays <= 0 {
		errs = append(errs, "INVITE_EXPIRES_DAYS must be > 0")
	}
	if c.PresenceOnlineWindow <= 0 {
		errs = append(errs, "PRESENCE_ONLINE_WINDOW must be > 0")
	}
	if c.ActivityRetention <= 0 {
		errs = append(errs, "ACTIVITY_RETENTION must be > 0")
	}
	if c.JWTAccessTTL <= 0 || c.JWTAccessTTL > time.Hour {
		errs = append(errs, "JWT_ACCESS_TTL must be between 1s and 1h")
	}
	if c.JWTRefreshTTL <= 0 || c.JWTRefreshTTL > (30*24*time.Hour) {
		errs = append(errs, "JWT_REFRESH_TTL must be between 1s and 30d")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// MailEnabled reports whether a real SMTP sender is configured. Without a
// host the invite mailer degrades to logging the link.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}

package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/charmops/charmops-backend/internal/app"
	"github.com/charmops/charmops-backend/internal/config"
	"github.com/charmops/charmops-backend/internal/database"
	"github.com/charmops/charmops-backend/internal/health"
	"github.com/charmops/charmops-backend/internal/http/handler"
	"github.com/charmops/charmops-backend/internal/http/middleware"
	"github.com/charmops/charmops-backend/internal/http/router"
	"github.com/charmops/charmops-backend/internal/mailer"
	"github.com/charmops/charmops-backend/internal/observability"
	"github.com/charmops/charmops-backend/internal/repository"
	"github.com/charmops/charmops-backend/internal/security"
	"github.com/charmops/charmops-backend/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewInviteRepository,
	repository.NewProfileRepository,
	repository.NewPresenceRepository,
	repository.NewStatsRepository,
	repository.NewSessionRepository,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	provideCookieManager,
	provideSecretBox,
)

var ServiceSet = wire.NewSet(
	provideTokenService,
	service.NewAuthService,
	provideInviteMailer,
	provideInviteService,
	service.NewProfileService,
	providePresenceService,
	provideOperatorService,
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.InviteServiceInterface), new(*service.InviteService)),
	wire.Bind(new(service.ProfileServiceInterface), new(*service.ProfileService)),
	wire.Bind(new(service.PresenceServiceInterface), new(*service.PresenceService)),
	wire.Bind(new(service.OperatorServiceInterface), new(*service.OperatorService)),
)

var HTTPSet = wire.NewSet(
	provideAuthHandler,
	handler.NewInviteHandler,
	handler.NewProfileHandler,
	handler.NewOperatorHandler,
	provideGlobalRateLimiter,
	provideAuthRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

// SeedRunner backs the seed CLI. It opens its own connection so the command
// works without the HTTP stack.
type SeedRunner struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewSeedRunner(cfg *config.Config, db *gorm.DB) *SeedRunner {
	return &SeedRunner{cfg: cfg, db: db}
}

func (s *SeedRunner) Run() (*database.SuperAdminReport, error) {
	if err := database.Migrate(s.db); err != nil {
		return nil, err
	}
	return database.SeedSuperAdmin(
		s.db,
		s.cfg.SuperAdminEmail,
		s.cfg.SuperAdminPassword,
		s.cfg.SuperAdminFirstName,
		s.cfg.SuperAdminLastName,
	)
}

// HousekeepingRunner prunes aged presence activity and expired sessions.
type HousekeepingRunner struct {
	cfg          *config.Config
	presenceRepo repository.PresenceRepository
	sessionRepo  repository.SessionRepository
}

func NewHousekeepingRunner(cfg *config.Config, presenceRepo repository.PresenceRepository, sessionRepo repository.SessionRepository) *HousekeepingRunner {
	return &HousekeepingRunner{cfg: cfg, presenceRepo: presenceRepo, sessionRepo: sessionRepo}
}

func (h *HousekeepingRunner) Run() (pingsPruned, sessionsPruned int64, err error) {
	cutoff := time.Now().Add(-h.cfg.ActivityRetention)
	pingsPruned, err = h.presenceRepo.PruneActivityBefore(cutoff)
	if err != nil {
		return 0, 0, err
	}
	sessionsPruned, err = h.sessionRepo.CleanupExpired(time.Now())
	if err != nil {
		return pingsPruned, 0, err
	}
	return pingsPruned, sessionsPruned, nil
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if cfg.SuperAdminEmail != "" {
		if _, err := database.SeedSuperAdmin(db, cfg.SuperAdminEmail, cfg.SuperAdminPassword, cfg.SuperAdminFirstName, cfg.SuperAdminLastName); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	if !cfg.RateLimitRedisEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(
		cfg.JWTIssuer,
		cfg.JWTAudience,
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		cfg.JWTAccessTTL,
		cfg.JWTRefreshTTL,
	)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite, cfg.JWTAccessTTL)
}

func provideSecretBox(cfg *config.Config) (*security.SecretBox, error) {
	return security.NewSecretBox(cfg.ProfileSecretKey)
}

func provideTokenService(cfg *config.Config, jwtMgr *security.JWTManager, sessionRepo repository.SessionRepository) *service.TokenService {
	return service.NewTokenService(jwtMgr, sessionRepo, cfg.RefreshTokenPepper)
}

func provideInviteMailer(cfg *config.Config, logger *slog.Logger) (mailer.InviteMailer, error) {
	if cfg.MailEnabled() {
		return mailer.NewSMTPInviteMailer(cfg, logger)
	}
	return mailer.NewDevInviteMailer(logger), nil
}

func provideInviteService(
	db *gorm.DB,
	inviteRepo repository.InviteRepository,
	userRepo repository.UserRepository,
	mail mailer.InviteMailer,
	cfg *config.Config,
	logger *slog.Logger,
) *service.InviteService {
	return service.NewInviteService(db, inviteRepo, userRepo, mail, cfg, logger)
}

func providePresenceService(cfg *config.Config, presenceRepo repository.PresenceRepository) *service.PresenceService {
	return service.NewPresenceService(presenceRepo, cfg.PresenceOnlineWindow)
}

func provideOperatorService(
	cfg *config.Config,
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	presenceRepo repository.PresenceRepository,
	statsRepo repository.StatsRepository,
) *service.OperatorService {
	return service.NewOperatorService(userRepo, profileRepo, presenceRepo, statsRepo, cfg.PresenceOnlineWindow)
}

func provideAuthHandler(authSvc service.AuthServiceInterface, cookieMgr *security.CookieManager, cfg *config.Config) *handler.AuthHandler {
	return handler.NewAuthHandler(authSvc, cookieMgr, cfg.JWTRefreshTTL)
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.GlobalRateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":api")
		return router.GlobalRateLimiterFunc(middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.APIRateLimitPerMin,
			time.Minute,
			middleware.FailOpen,
			"api",
		).Middleware())
	}
	return router.GlobalRateLimiterFunc(middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute).Middleware())
}

func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.AuthRateLimiterFunc {
	if cfg.RateLimitRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RateLimitRedisPrefix+":auth")
		// failing closed here keeps credential stuffing throttled even
		// when redis is down
		return router.AuthRateLimiterFunc(middleware.NewDistributedRateLimiter(
			redisLimiter,
			cfg.AuthRateLimitPerMin,
			time.Minute,
			middleware.FailClosed,
			"auth",
		).Middleware())
	}
	return router.AuthRateLimiterFunc(middleware.NewRateLimiter(cfg.AuthRateLimitPerMin, time.Minute).Middleware())
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	inviteHandler *handler.InviteHandler,
	profileHandler *handler.ProfileHandler,
	operatorHandler *handler.OperatorHandler,
	jwtMgr *security.JWTManager,
	globalRateLimiter router.GlobalRateLimiterFunc,
	authRateLimiter router.AuthRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:       authHandler,
		InviteHandler:     inviteHandler,
		ProfileHandler:    profileHandler,
		OperatorHandler:   operatorHandler,
		JWTManager:        jwtMgr,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:  cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		GlobalRateLimiter: globalRateLimiter,
		AuthRateLimiter:   authRateLimiter,
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := make([]health.Checker, 0, 2)
	if c := health.NewDBChecker(db); c != nil {
		checkers = append(checkers, c)
	}
	if cfg.RateLimitRedisEnabled {
		if c := health.NewRedisChecker(redisClient); c != nil {
			checkers = append(checkers, c)
		}
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, readiness)
}

// @title           Freeday API
// @version         1.0
// @description     Community events and forum API: accounts, event browsing and registration, discussion forum with live comments, admin moderation.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"freeday/config"
	_ "freeday/docs"
	"freeday/internal/adapters/auth"
	"freeday/internal/adapters/cache"
	"freeday/internal/adapters/email"
	"freeday/internal/adapters/ratelimit"
	"freeday/internal/adapters/realtime"
	deliveryhttp "freeday/internal/delivery/http"
	"freeday/internal/delivery/http/controllers"
	"freeday/internal/delivery/http/middleware"
	"freeday/internal/domain"
	"freeday/internal/repository/postgres"
	"freeday/internal/services"
	"freeday/migrations"
)

const redisPingTimeout = 3 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}

	if cfg.MigrateOnStart {
		runner, err := migrations.NewRunner(db, logger)
		if err != nil {
			logger.Error("failed to configure migrations", "err", err)
			os.Exit(1)
		}
		if err := runner.Up(ctx); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}

	var (
		eventCache domain.EventListCache = cache.NopEventCache{}
		limiter    domain.RateLimiter
		revoker    domain.TokenRevoker
	)
	rdb := connectRedis(ctx, cfg.RedisURL, logger)
	if rdb != nil {
		defer rdb.Close()
		eventCache = cache.NewEventCache(rdb, cfg.EventCacheTTL.Std())
		limiter = ratelimit.NewRedis(rdb, logger)
		revoker = auth.NewRedisRevoker(rdb)
	} else {
		limiter = ratelimit.NewMemory()
		revoker = auth.NewMemoryRevoker()
	}
	defer limiter.Close()

	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		logger.Error("failed to parse email templates", "err", err)
		os.Exit(1)
	}
	mailer := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mail.Provider,
		FromAddress: cfg.Mail.FromAddress,
		FromName:    cfg.Mail.FromName,
		SES: email.SESConfig{
			Region:             cfg.Mail.AWSRegion,
			AccessKeyID:        cfg.Mail.AWSAccessKeyID,
			SecretAccessKey:    cfg.Mail.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Mail.InsecureSkipVerify,
		},
	}, logger)
	emailService := services.NewEmailService(mailer, renderer, logger)

	hub := realtime.NewHub(logger)
	defer hub.Stop()

	userRepo := postgres.NewUserRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	registrationRepo := postgres.NewEventRegistrationRepository(db)
	favoriteRepo := postgres.NewFavoriteRepository(db)
	postRepo := postgres.NewPostRepository(db)
	commentRepo := postgres.NewCommentRepository(db)
	tagRepo := postgres.NewTagRepository(db)
	adminRepo := postgres.NewAdminRepository(db)

	tokens := auth.NewJWT(cfg.JWTSecret)
	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	timeout := cfg.ContextTimeout.Std()
	tokenExpiry := cfg.JWTExpiry.Std()

	authService := services.NewAuthService(userRepo, hasher, tokens, revoker, tokenExpiry, emailService, logger, timeout)
	userService := services.NewUserService(userRepo, eventRepo, tokens, tokenExpiry, timeout)
	eventService := services.NewEventService(eventRepo, eventCache, logger, timeout)
	attendeeService := services.NewAttendeeService(eventRepo, registrationRepo, favoriteRepo, userRepo, eventCache, emailService, logger, timeout)
	forumService := services.NewForumService(postRepo, commentRepo, tagRepo, userRepo, hub, logger, timeout)
	adminService := services.NewAdminService(adminRepo, eventCache, logger, timeout)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	origins := cfg.AllowedOrigins()
	routerCfg := deliveryhttp.RouterConfig{
		Logger:         logger,
		Authenticator:  middleware.NewAuthenticator(tokens, revoker, logger),
		Limiter:        limiter,
		Metrics:        middleware.NewMetrics(registry),
		Gatherer:       registry,
		AuthRateLimit:  cfg.LoginRateLimit,
		AllowedOrigins: origins,
	}
	router := deliveryhttp.NewRouter(deliveryhttp.Controllers{
		Auth:     controllers.NewAuthController(logger, authService),
		User:     controllers.NewUserController(logger, userService),
		Event:    controllers.NewEventController(logger, eventService),
		Attendee: controllers.NewAttendeeController(logger, attendeeService),
		Forum:    controllers.NewForumController(logger, forumService, hub, origins),
		Admin:    controllers.NewAdminController(logger, adminService),
		Health:   controllers.NewHealthController(logger, db),
	}, routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      deliveryhttp.NewHandler(router, routerCfg),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Std(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Std(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Std(),
	}

	errorCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.Environment)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Std())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "err", err)
		}
		logger.Info("server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

// connectRedis returns nil when Redis is not configured or unreachable; callers then use
// in-process fallbacks.
func connectRedis(ctx context.Context, url string, logger *slog.Logger) *redis.Client {
	if url == "" {
		logger.Info("redis not configured, using in-memory rate limiting and no event cache")
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn("invalid REDIS_URL, continuing without redis", "err", err)
		return nil
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, continuing without it", "err", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

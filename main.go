// Package main provides the main entry point for the SA Funeral Supplies storefront API
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/safs-storefront/app/handlers"
	"github.com/amirphl/safs-storefront/app/middleware"
	"github.com/amirphl/safs-storefront/app/router"
	"github.com/amirphl/safs-storefront/app/services"
	businessflow "github.com/amirphl/safs-storefront/business_flow"
	"github.com/amirphl/safs-storefront/config"
	"github.com/amirphl/safs-storefront/migrations"
	"github.com/amirphl/safs-storefront/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const adminBootstrapLockTTL = 30 * time.Second

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting SA Funeral Supplies storefront API...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logWriter, closeLog := initializeLogging(cfg.Logging)
	defer closeLog()

	if cfg.JWT.UsingDefaultSecret {
		log.Println("WARNING: JWT_SECRET is not set, tokens are signed with the built-in default secret")
	}

	app, err := initializeApplication(cfg, logWriter)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeLogging points the standard logger at stdout, a rotating file, or both.
// The returned writer is shared with the HTTP access log.
func initializeLogging(cfg config.LoggingConfig) (io.Writer, func()) {
	if cfg.Output != "file" && cfg.Output != "both" {
		return os.Stdout, func() {}
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var w io.Writer = rotating
	if cfg.Output == "both" {
		w = io.MultiWriter(os.Stdout, rotating)
	}
	log.SetOutput(w)
	log.Printf("Logging to %s (max %dMB, %d backups)", cfg.FilePath, cfg.MaxSize, cfg.MaxBackups)

	return w, func() {
		if err := rotating.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}
}

// runMigrations applies pending schema files through database/sql before gorm connects
func runMigrations(cfg config.DatabaseConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sqlDB, err := migrations.Open(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	applied, err := migrations.Up(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Printf("Database migrations complete, %d applied", applied)
	return nil
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{TranslateError: true}
	if cfg.SlowQueryLog {
		gormCfg.Logger = gormlogger.New(log.Default(), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity.
// A nil client means the process runs without redis.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeCaptcha builds the admin captcha on the redis challenge store when redis is
// available and on an in-process store otherwise
func initializeCaptcha(cfg *config.ProductionConfig, rc *redis.Client) (services.CaptchaService, func(), error) {
	var store services.ChallengeStore
	stop := func() {}
	if rc != nil {
		store = services.NewRedisChallengeStore(rc, cfg.Cache.RedisPrefix+"captcha:")
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		store = services.NewMemoryChallengeStore(ctx, time.Minute)
		stop = cancel
	}

	svc, err := services.NewCaptchaServiceRotate(store, cfg.Captcha.TTL, int(cfg.Captcha.AngleSlack), cfg.Captcha.ImageSize)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("failed to initialize captcha service: %w", err)
	}
	return svc, stop, nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig, logWriter io.Writer) (*Application, error) {
	var stopFuncs []func()

	if cfg.Database.AutoMigrate {
		if err := runMigrations(cfg.Database); err != nil {
			return nil, err
		}
	}

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	var locker services.Locker
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthInterval))
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
		locker = services.NewRedisLocker(rc, cfg.Cache.RedisPrefix, cfg.Cache.LockTTL)
	} else {
		locker = services.NewLocalLocker()
	}

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	transactor := repository.NewTransactor(db)

	// Initialize services
	hasher := services.NewPasswordHasher(cfg.Security.BcryptCost)

	tokenService, err := services.NewTokenService(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.Issuer,
		services.WithPasswordResetTTL(cfg.JWT.PasswordResetTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized with issuer: %s", cfg.JWT.Issuer)

	var captchaSvc services.CaptchaService
	if cfg.Captcha.Enabled {
		svc, stop, err := initializeCaptcha(cfg, rc)
		if err != nil {
			return nil, err
		}
		captchaSvc = svc
		stopFuncs = append(stopFuncs, stop)
	}

	// Initialize flows
	bootstrap := businessflow.NewAdminBootstrap(accountRepo, transactor, hasher, locker, cfg.Admin)

	ctx, cancel := context.WithTimeout(context.Background(), adminBootstrapLockTTL)
	outcome, err := bootstrap.EnsureDefaultAdmin(ctx)
	cancel()
	if err != nil {
		log.Printf("Default admin bootstrap failed, continuing: %v", err)
	} else {
		log.Printf("Default admin bootstrap: %s", outcome)
	}

	signupFlow := businessflow.NewSignupFlow(accountRepo, hasher, cfg.Security.PasswordMinLength)
	loginFlow := businessflow.NewLoginFlow(accountRepo, auditRepo, hasher, tokenService, bootstrap, cfg.Security.PasswordMinLength)
	adminAuthFlow := businessflow.NewAdminAuthFlow(accountRepo, auditRepo, hasher, tokenService, bootstrap, captchaSvc, cfg.Captcha.Enabled)
	adminCustomerManagementFlow := businessflow.NewAdminCustomerManagementFlow(accountRepo, transactor, tokenService, locker)
	auditLogFlow := businessflow.NewAuditLogFlow(auditRepo)

	// Initialize handlers
	h := router.Handlers{
		Auth:               handlers.NewAuthHandler(signupFlow, loginFlow, cfg.Security.PasswordMinLength),
		AdminAuth:          handlers.NewAdminHandler(adminAuthFlow),
		CustomerManagement: handlers.NewAdminCustomerManagementHandler(adminCustomerManagementFlow),
		AuditLogs:          handlers.NewAuditLogHandler(auditLogFlow),
	}

	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	fiberRouter := router.NewFiberRouter(cfg, h, authMiddleware, logWriter)

	return &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}

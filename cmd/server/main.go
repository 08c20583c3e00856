package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/api"
	"github.com/mgiordano/clasificados/internal/app"
	"github.com/mgiordano/clasificados/internal/app/maintenance"
	iauth "github.com/mgiordano/clasificados/internal/auth"
	"github.com/mgiordano/clasificados/internal/database"
	"github.com/mgiordano/clasificados/internal/security"
	"github.com/mgiordano/clasificados/internal/services"
	"github.com/mgiordano/clasificados/pkg/logger"
	"github.com/mgiordano/clasificados/pkg/mail"
	"github.com/mgiordano/clasificados/pkg/sms"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("clasificados-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := ensureSecretsPresent(cfg); err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	reportAuditFindings(ctx, db, cfg, log)

	deps, cleaner, err := buildDependencies(db, cfg)
	if err != nil {
		return err
	}

	if cfg.Maintenance.Enabled {
		if err := cleaner.Start(); err != nil {
			return fmt.Errorf("start maintenance jobs: %w", err)
		}
		defer cleaner.Stop()
	}

	router, err := api.NewRouter(db, cfg, deps)
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func buildDependencies(db *gorm.DB, cfg *app.Config) (api.Dependencies, *maintenance.Cleaner, error) {
	jwtService, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	sessionSvc, err := iauth.NewSessionService(db, jwtService, cfg.Auth.SessionServiceConfig())
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("initialise session service: %w", err)
	}

	provider, err := iauth.NewLocalProvider(db)
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("initialise auth provider: %w", err)
	}

	mailer, err := buildMailer(cfg)
	if err != nil {
		return api.Dependencies{}, nil, err
	}
	// SMS delivery is simulated: codes go to the application log.
	sender := sms.NewLogSender(nil)

	var limiter services.AttemptLimiter
	if cfg.Verification.MaxAttempts > 0 {
		limiter = services.NewMemoryAttemptLimiter(cfg.Verification.MaxAttempts)
	}

	registrations, err := services.NewRegistrationService(db, mailer,
		services.WithRegistrationExpiry(cfg.Verification.CodeTTL),
		services.WithRegistrationLimiter(limiter))
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("initialise registration service: %w", err)
	}

	verifications, err := services.NewPhoneVerificationService(db, sender, sessionSvc,
		services.WithPhoneExpiry(cfg.Verification.CodeTTL),
		services.WithPhoneLimiter(limiter))
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("initialise verification service: %w", err)
	}

	profiles, err := services.NewProfileService(db)
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("initialise profile service: %w", err)
	}
	listings, err := services.NewListingService(db)
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("initialise listing service: %w", err)
	}
	categories, err := services.NewCategoryService(db)
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("initialise category service: %w", err)
	}
	comments, err := services.NewCommentService(db)
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("initialise comment service: %w", err)
	}
	reports, err := services.NewReportService(db)
	if err != nil {
		return api.Dependencies{}, nil, fmt.Errorf("initialise report service: %w", err)
	}

	cleaner := maintenance.NewCleaner(sessionSvc, registrations, verifications,
		maintenance.WithSchedule(cfg.Maintenance.Schedule),
		maintenance.WithPendingRetention(cfg.Maintenance.PendingRetention))

	return api.Dependencies{
		JWT:           jwtService,
		Provider:      provider,
		Sessions:      sessionSvc,
		Registrations: registrations,
		Verifications: verifications,
		Profiles:      profiles,
		Listings:      listings,
		Categories:    categories,
		Comments:      comments,
		Reports:       reports,
	}, cleaner, nil
}

// reportAuditFindings logs every configuration check that did not pass.
func reportAuditFindings(ctx context.Context, db *gorm.DB, cfg *app.Config, log *zap.Logger) {
	result := security.NewAuditService(db, cfg).Run(ctx)
	for _, check := range result.Checks {
		if check.Status == security.StatusPass {
			continue
		}
		log.Warn("security audit finding",
			zap.String("check", check.ID),
			zap.String("status", string(check.Status)),
			zap.String("message", check.Message),
			zap.String("remediation", check.Remediation),
		)
	}
}

func buildMailer(cfg *app.Config) (mail.Mailer, error) {
	settings := cfg.Email.SMTPSettings()
	if !settings.Enabled {
		// Codes are still generated and persisted; they just stay in the
		// database and log during development.
		return nil, nil
	}
	mailer, err := mail.NewSMTPMailer(settings)
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	return mailer, nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func ensureSecretsPresent(cfg *app.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Auth.JWT.Secret = strings.TrimSpace(cfg.Auth.JWT.Secret)
	if cfg.Auth.JWT.Secret == "" {
		return errors.New("auth.jwt.secret must be configured")
	}

	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database handle unavailable on shutdown", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}

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

	"github.com/homelearnhq/homelearn/internal/api"
	"github.com/homelearnhq/homelearn/internal/app"
	"github.com/homelearnhq/homelearn/internal/app/maintenance"
	iauth "github.com/homelearnhq/homelearn/internal/auth"
	"github.com/homelearnhq/homelearn/internal/database"
	"github.com/homelearnhq/homelearn/internal/payments"
	"github.com/homelearnhq/homelearn/internal/realtime"
	"github.com/homelearnhq/homelearn/internal/services"
	"github.com/homelearnhq/homelearn/pkg/logger"
	"github.com/homelearnhq/homelearn/pkg/mail"
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
	fs := flag.NewFlagSet("homelearn-server", flag.ContinueOnError)
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

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if err := ensureSecretsPresent(cfg); err != nil {
		return err
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	jwtService, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	var googleProvider *iauth.GoogleProvider
	if cfg.Auth.Google.Enabled {
		googleProvider, err = iauth.NewGoogleProvider(ctx, cfg.Auth.GoogleProviderConfig())
		if err != nil {
			return fmt.Errorf("initialise google provider: %w", err)
		}
		log.Info("google login enabled")
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return fmt.Errorf("initialise mailer: %w", err)
	}

	emailSvc, err := services.NewEmailService(mailer)
	if err != nil {
		return fmt.Errorf("initialise email service: %w", err)
	}
	defer emailSvc.Close()

	verificationSvc, err := services.NewEmailVerificationService(db, emailSvc,
		services.WithVerificationBaseURL(cfg.Frontend.BaseURL))
	if err != nil {
		return fmt.Errorf("initialise verification service: %w", err)
	}

	authSvc, err := services.NewAuthService(db, jwtService, verificationSvc)
	if err != nil {
		return fmt.Errorf("initialise auth service: %w", err)
	}

	userSvc, err := services.NewUserService(db)
	if err != nil {
		return fmt.Errorf("initialise user service: %w", err)
	}

	courseSvc, err := services.NewCourseService(db)
	if err != nil {
		return fmt.Errorf("initialise course service: %w", err)
	}

	enrollmentSvc, err := services.NewEnrollmentService(db)
	if err != nil {
		return fmt.Errorf("initialise enrollment service: %w", err)
	}

	gateway, err := payments.NewStripeGateway(payments.StripeConfig{
		SecretKey: cfg.Payments.Stripe.SecretKey,
	})
	if err != nil {
		return fmt.Errorf("initialise payment gateway: %w", err)
	}

	paymentSvc, err := services.NewPaymentService(db, gateway, enrollmentSvc, emailSvc, cfg.Payments.Currency)
	if err != nil {
		return fmt.Errorf("initialise payment service: %w", err)
	}

	conversationSvc, err := services.NewConversationService(db)
	if err != nil {
		return fmt.Errorf("initialise conversation service: %w", err)
	}

	hub := realtime.NewHub()

	chatSvc, err := services.NewChatService(db, conversationSvc, hub)
	if err != nil {
		return fmt.Errorf("initialise chat service: %w", err)
	}

	dashboardSvc, err := services.NewDashboardService(db)
	if err != nil {
		return fmt.Errorf("initialise dashboard service: %w", err)
	}

	cleaner := maintenance.NewCleaner(db)
	if err := cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		stopCtx := cleaner.Stop()
		if err := cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}()

	router, err := api.NewRouter(db, cfg, api.Dependencies{
		JWT:           jwtService,
		Google:        googleProvider,
		Hub:           hub,
		Auth:          authSvc,
		Users:         userSvc,
		Courses:       courseSvc,
		Enrollments:   enrollmentSvc,
		Payments:      paymentSvc,
		Conversations: conversationSvc,
		Chat:          chatSvc,
		Dashboard:     dashboardSvc,
	})
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

	cfg.Payments.Stripe.SecretKey = strings.TrimSpace(cfg.Payments.Stripe.SecretKey)
	if cfg.Payments.Stripe.SecretKey == "" {
		return errors.New("payments.stripe.secret_key must be configured")
	}

	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}

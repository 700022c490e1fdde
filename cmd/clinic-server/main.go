// Command clinic-server runs the clinic management API: patients,
// appointment scheduling, clinical records, documents and staff
// invitations.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lazos/clinic/internal/config"
	"github.com/lazos/clinic/internal/domain/audit"
	"github.com/lazos/clinic/internal/domain/clinical"
	"github.com/lazos/clinic/internal/domain/document"
	"github.com/lazos/clinic/internal/domain/identity"
	"github.com/lazos/clinic/internal/domain/invitation"
	"github.com/lazos/clinic/internal/domain/patient"
	"github.com/lazos/clinic/internal/domain/room"
	"github.com/lazos/clinic/internal/domain/scheduling"
	"github.com/lazos/clinic/internal/platform/apperror"
	"github.com/lazos/clinic/internal/platform/auth"
	"github.com/lazos/clinic/internal/platform/db"
	"github.com/lazos/clinic/internal/platform/mail"
	"github.com/lazos/clinic/internal/platform/middleware"
)

func main() {
	root := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic management API server",
	}

	root.AddCommand(serveCmd(), migrateCmd(), seedRoomsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cfg, newLogger(cfg))
		},
	}
}

func runServe(cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	secret := cfg.JWTSecret
	if secret == "" {
		// development only; Validate refuses this in production
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generate ephemeral jwt secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		logger.Warn().Msg("JWT_SECRET not set, using an ephemeral secret; sessions will not survive restarts")
	}
	issuer := auth.NewTokenIssuer([]byte(secret), "lazos-clinic", cfg.JWTTTL())

	var mailer mail.Mailer
	if cfg.SMTPAddr != "" {
		mailer = &mail.SMTPMailer{Addr: cfg.SMTPAddr, From: cfg.MailFrom}
	} else {
		mailer = &mail.LogMailer{Logger: logger}
	}

	blobs, err := document.NewFSStore(cfg.DocumentsDir)
	if err != nil {
		return err
	}

	txRunner := db.NewTxRunner(pool)

	auditSvc := audit.NewService(audit.NewRepoPG(pool))
	identitySvc := identity.NewService(identity.NewRepoPG(pool), auditSvc, issuer, txRunner)
	roomSvc := room.NewService(room.NewRepoPG(pool), auditSvc, txRunner)
	patientSvc := patient.NewService(patient.NewRepoPG(pool), auditSvc, txRunner)
	schedulingSvc := scheduling.NewService(scheduling.NewRepoPG(pool), auditSvc, txRunner, loc)
	clinicalSvc := clinical.NewService(clinical.NewNoteRepoPG(pool), clinical.NewReportRepoPG(pool), auditSvc, txRunner)
	documentSvc := document.NewService(document.NewRepoPG(pool), blobs, auditSvc, txRunner, logger)
	invitationSvc := invitation.NewService(invitation.NewRepoPG(pool), identity.NewRepoPG(pool),
		auditSvc, mailer, txRunner, logger, cfg.FrontendURL)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/health", db.HealthHandler(pool))

	api := e.Group("/api")

	identityHandler := identity.NewHandler(identitySvc)
	invitationHandler := invitation.NewHandler(invitationSvc)
	identityHandler.RegisterPublicRoutes(api)
	invitationHandler.RegisterPublicRoutes(api)

	protected := api.Group("", auth.Middleware(issuer))
	identityHandler.RegisterRoutes(protected)
	invitationHandler.RegisterRoutes(protected)
	audit.NewHandler(auditSvc).RegisterRoutes(protected)
	room.NewHandler(roomSvc).RegisterRoutes(protected)
	patient.NewHandler(patientSvc).RegisterRoutes(protected)
	scheduling.NewHandler(schedulingSvc, loc).RegisterRoutes(protected)
	clinical.NewHandler(clinicalSvc, loc).RegisterRoutes(protected)
	document.NewHandler(documentSvc).RegisterRoutes(protected)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) error {
				migrator := db.NewMigrator(pool, cfg.MigrationsDir)
				n, err := migrator.Up(ctx)
				if err != nil {
					return err
				}
				logger.Info().Int("applied", n).Msg("migrations complete")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) error {
				migrator := db.NewMigrator(pool, cfg.MigrationsDir)
				statuses, err := migrator.Status(ctx)
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied " + s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Printf("%03d  %-40s %s\n", s.Version, s.Name, state)
				}
				return nil
			})
		},
	})

	return cmd
}

func seedRoomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-rooms",
		Short: "Create the clinic's eight rooms if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) error {
				svc := room.NewService(room.NewRepoPG(pool), audit.NewService(audit.NewRepoPG(pool)), db.NewTxRunner(pool))
				return svc.Seed(ctx, logger)
			})
		},
	}
}

// withPool runs fn with configuration, a database pool and a logger,
// closing the pool afterwards. Shared by the one-shot subcommands.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, cfg, pool, logger)
}

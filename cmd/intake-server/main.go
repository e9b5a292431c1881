package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/clinica/intake/internal/config"
	"github.com/clinica/intake/internal/domain/access"
	"github.com/clinica/intake/internal/domain/discharge"
	"github.com/clinica/intake/internal/domain/record"
	"github.com/clinica/intake/internal/domain/staff"
	"github.com/clinica/intake/internal/platform/auth"
	"github.com/clinica/intake/internal/platform/blobstore"
	"github.com/clinica/intake/internal/platform/db"
	"github.com/clinica/intake/internal/platform/logging"
	"github.com/clinica/intake/internal/platform/metrics"
	"github.com/clinica/intake/internal/platform/middleware"
	"github.com/clinica/intake/internal/platform/pdf"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "intake-server",
		Short: "Clinic intake and discharge API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			_, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(context.Background())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			_, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff profiles",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			nombre, _ := cmd.Flags().GetString("nombre")
			apellido, _ := cmd.Flags().GetString("apellido")
			especialidad, _ := cmd.Flags().GetString("especialidad")
			matricula, _ := cmd.Flags().GetString("matricula")
			password, _ := cmd.Flags().GetString("password")

			_, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			log := logging.New(logging.Options{Dev: true})
			svc := staff.NewService(staff.NewRepoPG(pool), log)
			p, err := svc.Create(context.Background(), staff.CreateInput{
				Username:     username,
				Password:     password,
				Nombre:       nombre,
				Apellido:     apellido,
				Especialidad: access.Role(especialidad),
				Matricula:    matricula,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created profile %s (%s %s, %s)\n", p.ID, p.Nombre, p.Apellido, p.Especialidad)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login name")
	createCmd.Flags().String("nombre", "", "First name")
	createCmd.Flags().String("apellido", "", "Last name")
	createCmd.Flags().String("especialidad", string(access.RoleAdministrativo), "Specialty role")
	createCmd.Flags().String("matricula", "", "Professional license number")
	createCmd.Flags().String("password", "", "Initial password")
	cmd.AddCommand(createCmd)

	return cmd
}

func connect() (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(logging.Options{
		Dev:        cfg.IsDev(),
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	collector := metrics.NewCollector("intake")

	// Services
	recordSvc := record.NewService(record.NewRepoPG(pool), logger)
	recordSvc.SetMetrics(collector)
	staffSvc := staff.NewService(staff.NewRepoPG(pool), logger)
	attachments := blobstore.NewPGStore(pool)
	renderer := pdf.NewRenderer(cfg.ClinicName)
	workflow := discharge.NewWorkflow(recordSvc, attachments, renderer, pdf.NewMerger(), collector, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics(collector))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dM", cfg.MaxAttachmentMB+1)))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": "1.0.0"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api/v1")

	// Session endpoints live outside the authenticated group.
	sessionTTL := time.Duration(cfg.SessionTTLMin) * time.Minute
	auth.NewHandler(staffSvc, cfg.SessionSecret, sessionTTL, logger).RegisterRoutes(api)

	// Everything else requires a live session with a resolvable profile.
	authed := api.Group("", auth.Middleware(cfg.SessionSecret, staffSvc))
	record.NewHandler(recordSvc, logger).RegisterRoutes(authed)
	staff.NewHandler(staffSvc, logger).RegisterRoutes(authed)
	blobstore.NewHandler(attachments, int64(cfg.MaxAttachmentMB)<<20, logger).RegisterRoutes(authed)
	discharge.NewHandler(workflow, logger).RegisterRoutes(authed)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

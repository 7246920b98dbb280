package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/dentalclinic-api/internal/config"
	appointmentHandler "github.com/jwalitptl/dentalclinic-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/dentalclinic-api/internal/handler/auth"
	catalogHandler "github.com/jwalitptl/dentalclinic-api/internal/handler/catalog"
	employeeHandler "github.com/jwalitptl/dentalclinic-api/internal/handler/employee"
	formdataHandler "github.com/jwalitptl/dentalclinic-api/internal/handler/formdata"
	"github.com/jwalitptl/dentalclinic-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/dentalclinic-api/internal/handler/patient"
	ticketHandler "github.com/jwalitptl/dentalclinic-api/internal/handler/ticket"
	"github.com/jwalitptl/dentalclinic-api/internal/middleware"
	"github.com/jwalitptl/dentalclinic-api/internal/repository/postgres"
	"github.com/jwalitptl/dentalclinic-api/internal/router"
	appointmentService "github.com/jwalitptl/dentalclinic-api/internal/service/appointment"
	authService "github.com/jwalitptl/dentalclinic-api/internal/service/auth"
	catalogService "github.com/jwalitptl/dentalclinic-api/internal/service/catalog"
	employeeService "github.com/jwalitptl/dentalclinic-api/internal/service/employee"
	formdataService "github.com/jwalitptl/dentalclinic-api/internal/service/formdata"
	patientService "github.com/jwalitptl/dentalclinic-api/internal/service/patient"
	ticketService "github.com/jwalitptl/dentalclinic-api/internal/service/ticket"
	"github.com/jwalitptl/dentalclinic-api/pkg/auth"
	"github.com/jwalitptl/dentalclinic-api/pkg/logger"
	"github.com/jwalitptl/dentalclinic-api/pkg/metrics"
	"github.com/jwalitptl/dentalclinic-api/pkg/security"
	"github.com/jwalitptl/dentalclinic-api/pkg/timeutil"
)

const maxBodyBytes = 1 << 20

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "dentalclinic-api",
		Short: "Dental clinic back office API",
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config.yml")

	rootCmd.AddCommand(serveCmd(&configFile))
	rootCmd.AddCommand(migrateCmd(&configFile))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configFile)
			if err != nil {
				return err
			}
			logger.Setup(cfg.Log.ToLoggerConfig())
			return runServer(cfg)
		},
	}
}

func migrateCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(*configFile, func(ctx context.Context, m *postgres.Migrator) error {
				n, err := m.Up(ctx)
				if err != nil {
					return err
				}
				log.Info().Int("applied", n).Msg("migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(*configFile, func(ctx context.Context, m *postgres.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%03d  %-40s %s\n", s.Version, s.Name, state)
				}
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(configFile string, fn func(context.Context, *postgres.Migrator) error) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	logger.Setup(cfg.Log.ToLoggerConfig())

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(context.Background(), postgres.NewMigrator(db))
}

func runServer(cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	loc := timeutil.LoadZone(cfg.Clinic.Timezone)
	pageSize := cfg.Clinic.PageSize
	m := metrics.New("dentalclinic")

	tokens, err := auth.NewJWTService(cfg.Auth.Secret, cfg.Auth.TokenExpiry)
	if err != nil {
		return err
	}
	hasher := security.NewBcryptHasher(cfg.Auth.ToHasherConfig())

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	employeeRepo := postgres.NewEmployeeRepository(db)
	serviceRepo := postgres.NewServiceRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	ticketRepo := postgres.NewTicketRepository(db)
	formDataRepo := postgres.NewFormDataRepository(db)

	// Initialize services
	authSvc := authService.NewService(userRepo, hasher, tokens)
	patientSvc := patientService.NewService(patientRepo, hasher, loc, pageSize)
	employeeSvc := employeeService.NewService(employeeRepo, hasher, pageSize)
	catalogSvc := catalogService.NewService(serviceRepo, pageSize)
	appointmentSvc := appointmentService.NewService(appointmentRepo, loc, pageSize)
	ticketSvc := ticketService.NewService(ticketRepo, loc, pageSize).WithPaymentCounter(m.PaymentsRecorded)
	formDataSvc := formdataService.NewService(formDataRepo)

	r, err := router.NewRouter(
		middleware.NewAuthMiddleware(tokens),
		router.Handlers{
			Health:      health.NewHandler(db, m.Registry),
			Auth:        authHandler.NewHandler(authSvc, m.LoginFailures),
			Patient:     patientHandler.NewHandler(patientSvc, loc),
			Employee:    employeeHandler.NewHandler(employeeSvc, loc),
			Catalog:     catalogHandler.NewHandler(catalogSvc, loc),
			Appointment: appointmentHandler.NewHandler(appointmentSvc, loc),
			Ticket:      ticketHandler.NewHandler(ticketSvc, loc),
			FormData:    formdataHandler.NewHandler(formDataSvc),
		},
		m,
		router.RouterConfig{
			Mode:         cfg.Server.Mode,
			MaxBodyBytes: maxBodyBytes,
			CORS:         middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins),
			RateLimit:    cfg.RateLimit.Enabled,
			RPS:          cfg.RateLimit.RequestsPerSecond,
			Burst:        cfg.RateLimit.Burst,
		},
	)
	if err != nil {
		return err
	}
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}

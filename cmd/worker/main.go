package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/dentalclinic-api/internal/config"
	"github.com/jwalitptl/dentalclinic-api/internal/email"
	"github.com/jwalitptl/dentalclinic-api/internal/repository/postgres"
	"github.com/jwalitptl/dentalclinic-api/internal/service/notification"
	internalworker "github.com/jwalitptl/dentalclinic-api/internal/worker"
	"github.com/jwalitptl/dentalclinic-api/pkg/logger"
	"github.com/jwalitptl/dentalclinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/dentalclinic-api/pkg/metrics"
	"github.com/jwalitptl/dentalclinic-api/pkg/worker"
)

func main() {
	var (
		configFile string
		healthAddr string
	)

	cmd := &cobra.Command{
		Use:   "dentalclinic-worker",
		Short: "Relay outbox events and send appointment notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			return run(cfg, healthAddr, logger.Setup(cfg.Log.ToLoggerConfig()))
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config.yml")
	cmd.Flags().StringVar(&healthAddr, "health-addr", ":8081", "address of the health and metrics listener")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, healthAddr string, l zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), l)
	if err != nil {
		return fmt.Errorf("failed to create Redis broker: %w", err)
	}
	defer broker.Close()

	m := metrics.New("dentalclinic_worker")
	outboxRepo := postgres.NewOutboxRepository(db)

	processor, err := worker.NewOutboxProcessor(outboxRepo, broker, cfg.Outbox.ToWorkerConfig(), l, m)
	if err != nil {
		return err
	}
	cleanup := internalworker.NewOutboxCleanupWorker(outboxRepo, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, l)

	notifier := notification.NewService(
		postgres.NewAppointmentRepository(db),
		email.NewSender(cfg.SMTP.ToEmailConfig(), l),
		l,
	)
	subscriber := internalworker.NewSubscriber(broker, notification.Channels, notifier.HandleEvent, l)

	srv := healthServer(healthAddr, m)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Health check server failed")
		}
	}()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := subscriber.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Notification subscriber stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func healthServer(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux}
}

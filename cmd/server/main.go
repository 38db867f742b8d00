// Command server runs the domain-name workflow service: the HTTP API, the
// notification outbox worker and the scheduled expiry sweep.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"domainflow/internal/audit"
	"domainflow/internal/domain"
	"domainflow/internal/expiry"
	jwttoken "domainflow/internal/jwt_token"
	"domainflow/internal/notify"
	"domainflow/internal/platform/config"
	"domainflow/internal/platform/httpserver"
	"domainflow/internal/platform/kafka"
	"domainflow/internal/platform/logger"
	"domainflow/internal/platform/metrics"
	platformpg "domainflow/internal/platform/postgres"
	platformredis "domainflow/internal/platform/redis"
	"domainflow/internal/registration"
	"domainflow/internal/renewal"
	"domainflow/internal/stakeholder"
	memorystore "domainflow/internal/store/memory"
	pgstore "domainflow/internal/store/postgres"
	"domainflow/internal/transfer"
	transporthttp "domainflow/internal/transport/http"
	"domainflow/internal/workflow"
)

// dataStore is everything the services need from one backing store.
type dataStore interface {
	workflow.Store
	renewal.Store
	registration.Store
	transfer.Store
	expiry.Store
	notify.OutboxStore
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

func main() {
	log := logger.New(slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := platformpg.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	var st dataStore
	if db != nil {
		defer db.Close()
		st = pgstore.New(db)
		log.Info("using postgres store")
	} else {
		st = memorystore.New()
		log.Warn("DATABASE_URL not set, using in-memory store")
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	producer, err := kafka.NewProducer(ctx, cfg.KafkaBrokers, cfg.KafkaAuditTopic, log)
	if err != nil {
		log.Error("connect kafka", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
	}
	trail := audit.NewTrail(producer, log)

	m := metrics.New()
	order := domain.DefaultRoleOrder()

	sink := notify.NewWebhookSink(cfg.WebhookURL, cfg.WebhookSecret, cfg.DispatchTimeout)
	dispatcher := notify.NewDispatcher(st, log)
	worker := notify.NewWorker(st, sink, dispatcher, log, m, cfg.OutboxPollInterval)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()

	resolver := stakeholder.NewCachedResolver(
		stakeholder.NewClient(cfg.StakeholderBaseURL, 5*time.Second, log),
		redisClient, config.StakeholderCacheTTL, log)

	workflowSvc := workflow.NewService(st, st, dispatcher, trail, order, log, m)
	renewalSvc := renewal.NewService(st, st, resolver, dispatcher, trail, order, log, m)
	registrationSvc := registration.NewService(st, st, resolver, dispatcher, trail, order, log, m)
	transferSvc := transfer.NewService(st, st, resolver, dispatcher, trail, log, m)

	sweeper := expiry.NewSweeper(st, st, sink, trail, log, m)
	scheduler := expiry.NewScheduler(sweeper, log)
	if err := scheduler.Start(cfg.ExpirySchedule); err != nil {
		log.Error("schedule expiry sweep", "error", err)
		os.Exit(1)
	}

	jwtValidator := jwttoken.NewValidatorAdapter(
		jwttoken.NewJWTService(cfg.JWTSigningKey, "domainflow", "domainflow"))

	router := transporthttp.NewRouter(log,
		func(r *http.Request) error {
			if db != nil {
				return db.PingContext(r.Context())
			}
			return nil
		},
		transporthttp.NewWorkflowHandler(workflowSvc, log, jwtValidator),
		transporthttp.NewRenewalHandler(renewalSvc, log, jwtValidator),
		transporthttp.NewRegistrationHandler(registrationSvc, log, jwtValidator),
		transporthttp.NewTransferHandler(transferSvc, log, jwtValidator),
	)

	srv := httpserver.New(cfg.Addr, router)
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	// Let a running sweep finish, then stop the outbox worker.
	<-scheduler.Stop().Done()
	stopWorker()
	<-workerDone

	log.Info("server stopped")
}

// Command server runs the trust and access-gating service: the admin
// override panel API, the gated member endpoints, and the audit outbox
// relay. Wiring lives here; behavior lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	jobhandler "stagegate/internal/job/handler"
	jobstore "stagegate/internal/job/store"
	overridehandler "stagegate/internal/override/handler"
	overrideservice "stagegate/internal/override/service"
	"stagegate/internal/payment"
	paymenthandler "stagegate/internal/payment/handler"
	"stagegate/internal/platform/config"
	"stagegate/internal/platform/httpserver"
	"stagegate/internal/platform/logger"
	"stagegate/internal/platform/metrics"
	"stagegate/internal/platform/middleware"
	platformredis "stagegate/internal/platform/redis"
	principalstore "stagegate/internal/principal/store"
	"stagegate/internal/ratelimit/bucket"
	httptransport "stagegate/internal/transport/http"
	"stagegate/pkg/email"
	"stagegate/pkg/platform/audit"
	"stagegate/pkg/platform/audit/outbox"
	auditpublisher "stagegate/pkg/platform/audit/publisher"
	auditmem "stagegate/pkg/platform/audit/store/memory"
	auditpg "stagegate/pkg/platform/audit/store/postgres"
	"stagegate/pkg/platform/circuit"
	"stagegate/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	m := metrics.New()

	var (
		principals principalstore.Store
		jobs       jobstore.Store
		auditStore audit.Store
		pgAudit    *auditpg.Store
		txRunner   tx.Runner
		db         *sql.DB
		health     func() error
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err.Error())
			os.Exit(1)
		}
		if err := applySchemas(db); err != nil {
			log.Error("apply schema", "error", err.Error())
			os.Exit(1)
		}
		principals = principalstore.NewPostgres(db)
		jobs = jobstore.NewPostgres(db)
		pgAudit = auditpg.New(db)
		auditStore = pgAudit
		txRunner = tx.NewSQLRunner(db)
		health = db.Ping
		log.Info("using postgres storage")
	} else {
		principals = principalstore.NewInMemory()
		jobs = jobstore.NewInMemory()
		auditStore = auditmem.NewInMemoryStore()
		txRunner = tx.NewNoopRunner()
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect", "error", err.Error())
		os.Exit(1)
	}
	var limiter bucket.Store
	if redisClient != nil {
		limiter = bucket.NewRedis(redisClient.Client)
		log.Info("using redis rate limiting")
	} else {
		limiter = bucket.NewInMemory()
	}

	auditor := auditpublisher.New(auditStore, auditpublisher.WithLogger(log))
	notifier := &email.LogNotifier{Logger: log}

	overrides := overrideservice.New(principals, jobs, auditor, txRunner,
		overrideservice.WithNotifier(notifier),
		overrideservice.WithMetrics(m),
		overrideservice.WithLogger(log),
	)
	payments := payment.New(principals, limiter,
		payment.WithMetrics(m),
		payment.WithLogger(log),
	)

	var validator middleware.TokenValidator = middleware.NewHMACValidator(cfg.JWTSigningKey)
	if cfg.AdminTokenHash != "" {
		validator = middleware.NewBootstrapValidator(validator, cfg.AdminTokenHash, "ADMIN")
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Override:  overridehandler.New(overrides, auditor, log),
		Jobs:      jobhandler.New(jobs, principals, log, m),
		Payments:  paymenthandler.New(payments, log),
		Validator: validator,
		Logger:    log,
		Metrics:   m,
		Health:    health,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if pgAudit != nil && len(cfg.Kafka.Seeds) > 0 {
		producer, err := outbox.NewKafkaProducer(ctx, cfg.Kafka.Seeds, cfg.Kafka.AuditTopic)
		if err != nil {
			log.Error("kafka connect", "error", err.Error())
			os.Exit(1)
		}
		defer producer.Close()
		relay := outbox.New(pgAudit, producer, log,
			outbox.WithBreaker(circuit.New("audit-producer")))
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit relay stopped", "error", err.Error())
			}
		}()
		log.Info("audit outbox relay started", "topic", cfg.Kafka.AuditTopic)
	}

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}

func applySchemas(db *sql.DB) error {
	for _, schema := range []string{
		principalstore.Schema,
		jobstore.Schema,
		auditpg.Schema,
	} {
		if _, err := db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// Command auditworker consumes relayed ledger entries from Kafka and fans
// them out: per-action Prometheus counters for dashboards, a security feed
// for the SIEM, and a JSONL compliance archive. It is deployed separately
// from the API server so audit fan-out never competes with request traffic.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stagegate/internal/platform/config"
	"stagegate/internal/platform/logger"
	"stagegate/pkg/platform/audit"
	"stagegate/pkg/platform/audit/consumer"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if len(cfg.Kafka.Seeds) == 0 {
		log.Error("KAFKA_SEEDS is required for the audit worker")
		os.Exit(1)
	}

	archive, err := consumer.NewFileArchive(cfg.Kafka.ArchivePath)
	if err != nil {
		log.Error("open archive", "error", err.Error())
		os.Exit(1)
	}
	defer archive.Close()

	sampler := consumer.NewSampler(1.0)
	// Bulk confirmations can land hundreds of OTHER entries at once; the
	// ops counters only need a sample of them.
	sampler.SetRate(audit.ActionOther, 0.25)

	security := consumer.NewSecurityHandler(log.With("stream", "security"))

	fanout := consumer.NewFanout(log).
		WithOps(consumer.NewOpsHandler(consumer.NewOpsMetrics(), sampler)).
		WithSecurity(security).
		WithCompliance(consumer.NewComplianceHandler(archive))

	c, err := consumer.New(cfg.Kafka.Seeds, cfg.Kafka.AuditTopic, cfg.Kafka.ConsumerGroup, fanout, log)
	if err != nil {
		log.Error("kafka connect", "error", err.Error())
		os.Exit(1)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go security.Run(ctx)

	metricsAddr := os.Getenv("AUDITWORKER_METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9091"
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listener stopped", "error", err.Error())
		}
	}()

	log.Info("audit worker consuming",
		"topic", cfg.Kafka.AuditTopic,
		"group", cfg.Kafka.ConsumerGroup,
		"archive", cfg.Kafka.ArchivePath,
	)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("audit worker stopped", "error", err.Error())
		os.Exit(1)
	}
}

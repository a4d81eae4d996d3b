package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"riskgate/internal/dedupe"
	dedupeMetrics "riskgate/internal/dedupe/metrics"
	"riskgate/internal/order"
	orderMetrics "riskgate/internal/order/metrics"
	"riskgate/internal/platform/config"
	"riskgate/internal/platform/httpserver"
	"riskgate/internal/platform/logger"
	platformMetrics "riskgate/internal/platform/metrics"
	"riskgate/internal/platform/postgres"
	"riskgate/internal/platform/redis"
	"riskgate/internal/rules"
	httptransport "riskgate/internal/transport/http"
	"riskgate/internal/validation"
	"riskgate/internal/validation/cache"
	validationMetrics "riskgate/internal/validation/metrics"
	"riskgate/internal/validation/providers"
	id "riskgate/pkg/domain"
	"riskgate/pkg/platform/audit"
	"riskgate/pkg/platform/audit/sink"
	auditMemory "riskgate/pkg/platform/audit/store/memory"
	auditPostgres "riskgate/pkg/platform/audit/store/postgres"
	"riskgate/pkg/platform/audit/worker"
	"riskgate/pkg/platform/circuit"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("riskgate exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DSN)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Validation: every field validator registers once; the external-facing
	// fields get a circuit breaker so a wedged provider degrades instead of
	// stalling the pipeline.
	registry := validation.NewRegistry()
	for _, v := range []validation.Validator{
		providers.NewEmailValidator(),
		providers.NewPhoneValidator(),
		providers.NewNameValidator(),
		providers.NewAddressValidator(),
		providers.NewIPValidator(),
		providers.NewDeviceValidator(),
	} {
		if err := registry.Register(v); err != nil {
			return err
		}
	}

	breakers := make(map[id.FieldType]*circuit.Breaker)
	for _, field := range []id.FieldType{id.FieldEmail, id.FieldPhone, id.FieldAddress, id.FieldIP} {
		breakers[field] = circuit.New(string(field) + "-validator")
	}

	var cacheStore validation.CacheStore = cache.NewInMemoryStore()
	if rdb != nil {
		cacheStore = cache.NewRedisStore(rdb.Client)
	}

	validator := validation.NewService(registry,
		validation.WithCache(cacheStore),
		validation.WithCacheTTL(cfg.CacheTTL),
		validation.WithCircuitBreakers(breakers),
		validation.WithLogger(log),
		validation.WithMetrics(validationMetrics.New()),
	)

	// Audit trail: non-blocking publisher, single worker draining to the
	// store plus the optional Kafka sink.
	om := orderMetrics.New()
	publisher := audit.NewPublisher(cfg.AuditBuffer,
		audit.WithLogger(log),
		audit.WithDropCallback(om.ObserveAuditDrop),
	)

	// Dedupe and decision storage fall back to memory when postgres is not
	// configured, which keeps local development dependency-free.
	var (
		customers dedupe.CustomerStore = dedupe.NewInMemoryCustomerStore()
		addresses dedupe.AddressStore  = dedupe.NewInMemoryAddressStore()
		decisions order.DecisionStore  = order.NewInMemoryDecisionStore()
	)
	if pool != nil {
		customers = dedupe.NewPostgresCustomerStore(pool)
		addresses = dedupe.NewPostgresAddressStore(pool)
		decisions = order.NewPostgresDecisionStore(pool)
	}

	deduper, err := dedupe.NewService(customers, addresses,
		dedupe.WithLogger(log),
		dedupe.WithMetrics(dedupeMetrics.New()),
		dedupe.WithAudit(publisher),
	)
	if err != nil {
		return err
	}

	var idempotency order.IdempotencyStore = order.NewInMemoryIdempotencyStore()
	if rdb != nil {
		idempotency = order.NewRedisIdempotencyStore(rdb.Client)
	}

	var auditStore audit.Store = auditMemory.NewInMemoryStore()
	if pool != nil {
		auditStore = auditPostgres.New(pool)
	}
	var sinks []audit.Sink
	if cfg.Brokers != "" {
		kafkaSink := sink.NewKafkaSink(cfg.Brokers, cfg.AuditTopic)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	auditWorker := worker.NewWorker(auditStore, publisher.Inbox(), log, sinks...)
	go func() {
		if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	engine := rules.NewEngine(
		rules.WithTimeout(cfg.RuleTimeout),
		rules.WithLogger(log),
	)
	ruleSource := order.NewStaticRuleSource()

	orderOpts := []order.Option{
		order.WithLogger(log),
		order.WithMetrics(om),
		order.WithIdempotency(idempotency),
		order.WithIdempotencyTTL(cfg.IdempotencyTTL),
		order.WithAudit(publisher),
		order.WithRuleEngine(engine),
		order.WithRuleSource(ruleSource),
		order.WithHighValueThreshold(cfg.HighValueThreshold),
	}
	if cfg.GeoBoundsSet() {
		orderOpts = append(orderOpts, order.WithGeoBounds(order.GeoBounds{
			MinLat: cfg.GeoMinLat,
			MaxLat: cfg.GeoMaxLat,
			MinLng: cfg.GeoMinLng,
			MaxLng: cfg.GeoMaxLng,
		}))
	}
	orders, err := order.NewService(validator, deduper, decisions, orderOpts...)
	if err != nil {
		return err
	}

	handler := httptransport.NewHandler(orders, deduper, validator, log)
	router := httptransport.NewRouter(handler, platformMetrics.New())
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("riskgate listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

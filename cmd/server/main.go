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

	"golang.org/x/sync/errgroup"

	accessmetrics "factgate/internal/access/metrics"
	accessservice "factgate/internal/access/service"
	authmetrics "factgate/internal/auth/metrics"
	authservice "factgate/internal/auth/service"
	sessionstore "factgate/internal/auth/store/session"
	userstore "factgate/internal/auth/store/user"
	factsservice "factgate/internal/facts/service"
	factsstore "factgate/internal/facts/store"
	"factgate/internal/jwttoken"
	"factgate/internal/platform/config"
	"factgate/internal/platform/httpserver"
	"factgate/internal/platform/logger"
	platformredis "factgate/internal/platform/redis"
	tenantmetrics "factgate/internal/tenant/metrics"
	tenantservice "factgate/internal/tenant/service"
	tenantstore "factgate/internal/tenant/store/tenant"
	usagestore "factgate/internal/tenant/store/usage"
	httptransport "factgate/internal/transport/http"
	"factgate/pkg/platform/audit"
	auditkafka "factgate/pkg/platform/audit/publishers/kafka"
	auditmemory "factgate/pkg/platform/audit/store/memory"
	auditpostgres "factgate/pkg/platform/audit/store/postgres"
	auditworker "factgate/pkg/platform/audit/worker"
)

// main wires configuration, stores, services, and the HTTP router, then
// supervises the server, the audit worker, and the session sweeper until
// shutdown.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session backend precedence: Postgres, then Redis, then in-memory.
	var sessions authservice.SessionStore = sessionstore.New()
	switch {
	case cfg.Postgres.SessionDSN != "":
		pgSessions, err := sessionstore.OpenPostgres(ctx, cfg.Postgres.SessionDSN)
		if err != nil {
			return err
		}
		defer pgSessions.Close()
		sessions = pgSessions
		log.Info("session store backed by postgres")
	case cfg.Redis.URL != "":
		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		sessions = sessionstore.NewRedis(redisClient.Client)
		log.Info("session store backed by redis")
	}

	// Audit pipeline: events queue off the request path, the worker fans
	// them out to the configured sinks.
	var auditSinks []audit.Appender
	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if cfg.Postgres.AuditDSN != "" {
		pg, err := auditpostgres.Open(ctx, cfg.Postgres.AuditDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		auditStore = pg
		log.Info("audit store backed by postgres")
	}
	auditSinks = append(auditSinks, auditStore)

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := auditkafka.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		auditSinks = append(auditSinks, kafkaSink)
		log.Info("audit events published to kafka", "topic", cfg.Kafka.Topic)
	}

	auditQueue := auditworker.NewQueue(256, log)
	worker := auditworker.New(auditQueue.Events(), log, auditSinks...)

	users := userstore.New()
	if cfg.SeedIdentities {
		if err := userstore.Seed(ctx, users, userstore.DefaultSeed(), time.Now().UTC()); err != nil {
			return err
		}
		log.Warn("seed identities loaded, do not use in production")
	}

	tokens := jwttoken.New(cfg.JWTSigningKey, cfg.JWTIssuer)
	auth := authservice.New(users, sessions, tokens,
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(auditQueue),
		authservice.WithMetrics(authmetrics.New()),
		authservice.WithSessionTTL(cfg.SessionTTL),
	)

	access := accessservice.New(
		accessservice.WithLogger(log),
		accessservice.WithAuditPublisher(auditQueue),
		accessservice.WithMetrics(accessmetrics.New()),
	)

	tenants := tenantstore.NewInMemory()
	usage := usagestore.NewInMemory()
	manager := tenantservice.New(tenants, users, auth,
		tenantservice.WithLogger(log),
		tenantservice.WithAuditPublisher(auditQueue),
		tenantservice.WithMetrics(tenantmetrics.New()),
		tenantservice.WithUsageStore(usage),
	)

	facts := factsservice.New(factsstore.NewInMemory(), access,
		factsservice.WithLogger(log),
		factsservice.WithUsageRecorder(usage),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Auth:     httptransport.NewAuthHandler(auth, log),
		Tenants:  httptransport.NewTenantHandler(manager, log),
		Facts:    httptransport.NewFactsHandler(facts, log),
		Sessions: auth,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting factgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				removed, err := auth.CleanupExpiredSessions(groupCtx)
				if err != nil {
					log.Warn("session sweep failed", "error", err)
					continue
				}
				if removed > 0 {
					log.Info("expired sessions removed", "count", removed)
				}
			}
		}
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

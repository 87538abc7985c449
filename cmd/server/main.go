package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	attestationhandler "sigil/internal/attestation/handler"
	attestationmetrics "sigil/internal/attestation/metrics"
	attestationservice "sigil/internal/attestation/service"
	attestationstore "sigil/internal/attestation/store"
	credentialhandler "sigil/internal/credential/handler"
	credentialmetrics "sigil/internal/credential/metrics"
	credentialservice "sigil/internal/credential/service"
	credentialstore "sigil/internal/credential/store"
	"sigil/internal/platform/config"
	"sigil/internal/platform/httpserver"
	"sigil/internal/platform/kafka/producer"
	"sigil/internal/platform/logger"
	"sigil/internal/platform/metrics"
	"sigil/internal/platform/redis"
	"sigil/internal/platform/tracer"
	"sigil/internal/signer"
	tokenhandler "sigil/internal/token/handler"
	tokenmetrics "sigil/internal/token/metrics"
	tokenservice "sigil/internal/token/service"
	tokenstore "sigil/internal/token/store"
	"sigil/internal/token/store/revocation"
	httptransport "sigil/internal/transport/http"
	"sigil/pkg/platform/events/outbox"
	outboxmetrics "sigil/pkg/platform/events/outbox/metrics"
	"sigil/pkg/platform/events/publisher"
	"sigil/pkg/platform/events/worker"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sigil: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sgn, err := signer.New(cfg.IssuerID, cfg.SigningSecret)
	if err != nil {
		return fmt.Errorf("signer: %w", err)
	}

	var (
		attStore    attestationstore.Store
		credStore   credentialstore.Store
		tokStore    tokenstore.Store
		outboxStore outbox.Store
	)
	if cfg.Postgres.URL != "" {
		db, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}

		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("outbox pool: %w", err)
		}
		defer pool.Close()

		attStore = attestationstore.NewPostgres(db)
		credStore = credentialstore.NewPostgres(db)
		tokStore = tokenstore.NewPostgres(db)
		outboxStore = outbox.NewPostgresStore(pool)
		log.Info("using postgres stores")
	} else {
		attStore = attestationstore.NewInMemoryStore()
		credStore = credentialstore.NewInMemoryStore()
		tokStore = tokenstore.NewInMemoryStore()
		outboxStore = outbox.NewMemoryStore()
		log.Warn("postgres not configured, using in-memory stores")
	}

	var revList revocation.List
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		revList = revocation.NewRedisList(redisClient.Client)
		log.Info("using redis revocation list")
	} else {
		revList = revocation.NewMemoryList()
		log.Warn("redis not configured, using in-memory revocation list")
	}

	httpMetrics := metrics.New()

	pub := publisher.New(outboxStore,
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
		publisher.WithDropCounter(httpMetrics.EventsDropped),
	)
	defer pub.Close()

	var trc tracer.Tracer = tracer.NewNoop()
	if cfg.TracingEnabled {
		trc = tracer.NewOTel()
		log.Info("tracing enabled")
	}

	attService := attestationservice.NewService(attStore, sgn,
		attestationservice.WithPublisher(pub),
		attestationservice.WithMetrics(attestationmetrics.New()),
		attestationservice.WithTracer(trc),
		attestationservice.WithLogger(log),
	)
	credService := credentialservice.NewService(credStore, sgn,
		credentialservice.WithPublisher(pub),
		credentialservice.WithMetrics(credentialmetrics.New()),
		credentialservice.WithTracer(trc),
		credentialservice.WithLogger(log),
	)
	tokService := tokenservice.NewService(tokStore, sgn,
		tokenservice.WithRevocationList(revList),
		tokenservice.WithPublisher(pub),
		tokenservice.WithMetrics(tokenmetrics.New()),
		tokenservice.WithTracer(trc),
		tokenservice.WithLogger(log),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Attestations: attestationhandler.New(attService, log),
		Credentials:  credentialhandler.New(credService, log),
		Tokens:       tokenhandler.New(tokService, log),
		Metrics:      httpMetrics,
		Logger:       log,
	})

	var relay *worker.Worker
	if len(cfg.Kafka.Brokers) > 0 {
		prod, err := producer.New(cfg.Kafka.Brokers, producer.WithLogger(log))
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer prod.Close()

		if err := prod.EnsureTopic(ctx, cfg.Kafka.Topic, 3); err != nil {
			return fmt.Errorf("ensure topic: %w", err)
		}

		relay = worker.New(outboxStore, prod, cfg.Kafka.Topic,
			worker.WithMetrics(outboxmetrics.New()),
			worker.WithLogger(log),
		)
		relay.Start()
		defer relay.Stop()
		log.Info("outbox relay started", "topic", cfg.Kafka.Topic)
	} else {
		log.Warn("kafka not configured, events stay in the outbox")
	}

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting sigil", "addr", cfg.Addr, "issuer", cfg.IssuerID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/handler/api"
	mid "SignalGate/internal/middleware"
	internalrepo "SignalGate/internal/repository"
	"SignalGate/internal/service/admission"
	"SignalGate/internal/service/history"
	apimetrics "SignalGate/internal/service/metrics"
	"SignalGate/internal/service/ratelimit"
	"SignalGate/internal/services/analytics"
	"SignalGate/internal/services/quality"
	"SignalGate/internal/services/scoring"
	"SignalGate/internal/services/thresholds"
	"SignalGate/internal/usecase"
	"SignalGate/pkg/cache"
	pkgch "SignalGate/pkg/clickhouse"
	"SignalGate/pkg/config"
	xhttp "SignalGate/pkg/http"
	pkgkafka "SignalGate/pkg/kafka"
	"SignalGate/pkg/logger"
	"SignalGate/pkg/metrics"
	"SignalGate/pkg/queue"
	"SignalGate/pkg/server"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment), logger.String("pool", cfg.Engine.Pool)), nil
}

// ProvideMetrics creates the Prometheus recorder on the default registry.
func ProvideMetrics() domrepo.Metrics {
	apimetrics.Register(prometheus.DefaultRegisterer)
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideClickHouseClient connects and applies the schema. Disabled returns nil.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRedisClient connects to Redis. Disabled returns nil.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	client, _, err := cache.NewRedisClient(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates the signal producer. Disabled returns nil.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the candidate consumer. Disabled returns nil.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook{})
	return consumer, nil
}

// ProvideCache prefers Redis and falls back to an in-process cache.
func ProvideCache(cfg *config.Config, rc *redis.Client) cache.Service {
	if rc != nil {
		return cache.NewRedisCache(rc, cfg.Redis.Prefix)
	}
	return cache.NewMemoryCache()
}

func ProvideCatalogue(cfg *config.Config) (*scoring.Catalogue, error) {
	return scoring.NewCatalogue(cfg.Engine.Scoring.Weights)
}

func ProvideScorer(cat *scoring.Catalogue, cfg *config.Config, l *logger.Logger) *scoring.Scorer {
	return scoring.NewScorer(cat, cfg.Engine.Scoring, l)
}

func ProvideResolver(cat *scoring.Catalogue, cfg *config.Config, l *logger.Logger) (*thresholds.Resolver, error) {
	return thresholds.NewResolver(cfg.Engine.Thresholds, cat.Len(), l)
}

func ProvideValidator(cfg *config.Config, l *logger.Logger) *quality.Validator {
	return quality.NewValidator(cfg.Engine.DataQuality, l)
}

func ProvideDetector(cfg *config.Config, l *logger.Logger) *analytics.RegimeDetector {
	return analytics.NewRegimeDetector(cfg.Engine.Regime, l)
}

func ProvideAdmission(cfg *config.Config, l *logger.Logger) (*admission.Controller, error) {
	loc, err := cfg.Engine.Location()
	if err != nil {
		return nil, err
	}
	return admission.NewController(cfg.Engine.Admission, loc, cfg.Engine.Seed, l), nil
}

func ProvideHistory(cfg *config.Config) *history.Ring {
	return history.NewRing(cfg.Engine.HistoryCapacity)
}

func breakerSettings(cfg *config.Config) internalrepo.BreakerSettings {
	return internalrepo.BreakerSettings{
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         cfg.Breaker.Interval,
		Timeout:          cfg.Breaker.Timeout,
		FailureThreshold: cfg.Breaker.FailureThreshold,
	}
}

// ProvideGate assembles the gate and attaches whichever backends are enabled.
func ProvideGate(
	cfg *config.Config,
	l *logger.Logger,
	v *quality.Validator,
	d *analytics.RegimeDetector,
	r *thresholds.Resolver,
	s *scoring.Scorer,
	a *admission.Controller,
	ring *history.Ring,
	m domrepo.Metrics,
	ch *pkgch.Client,
	rc *redis.Client,
	producer *pkgkafka.Producer,
) *usecase.Gate {
	opts := []usecase.GateOption{usecase.WithMetrics(m)}
	if ch != nil {
		sink := internalrepo.NewCHSignalSink(ch, l)
		opts = append(opts,
			usecase.WithSignalSink(internalrepo.NewBreakerSink(sink, internalrepo.NewBreaker("clickhouse", breakerSettings(cfg), l))),
			usecase.WithHistorySource(sink),
			usecase.WithFeatureStore(internalrepo.NewCHFeatureStore(ch, l), cfg.Engine.WindowBars, models.AllTimeframes()),
		)
	}
	if rc != nil {
		opts = append(opts, usecase.WithStateStore(internalrepo.NewRedisStateStore(rc, cfg.Redis.Prefix, l)))
	}
	if producer != nil {
		pub := internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)
		opts = append(opts, usecase.WithPublisher(internalrepo.NewBreakerPublisher(pub, internalrepo.NewBreaker("kafka", breakerSettings(cfg), l))))
	}
	return usecase.NewGate(cfg.Engine.Pool, v, d, r, s, a, ring, cfg.Engine.Signal, l, opts...)
}

func ProvidePipeline(cfg *config.Config, gate *usecase.Gate, l *logger.Logger) *mid.CandidatePipeline {
	return mid.NewCandidatePipeline(gate, l,
		mid.WithDebounce(cfg.Engine.Intake.DebounceWindow),
		mid.WithDefaultPool(cfg.Engine.Pool),
	)
}

func ProvideCandidatesHandler(cfg *config.Config, pipe *mid.CandidatePipeline, l *logger.Logger) *usecase.KafkaCandidatesHandler {
	return usecase.NewKafkaCandidatesHandler(cfg.Kafka.CandidatesTopic, pipe, l)
}

// ProvideInspect exposes the read-only stages over ClickHouse windows. Disabled returns nil.
func ProvideInspect(ch *pkgch.Client, l *logger.Logger, v *quality.Validator, d *analytics.RegimeDetector, r *thresholds.Resolver) *usecase.InspectUseCase {
	if ch == nil {
		return nil
	}
	return usecase.NewInspectUseCase(internalrepo.NewCHFeatureStore(ch, l), v, d, r)
}

func ProvideSignalsHandler(
	cfg *config.Config,
	l *logger.Logger,
	pipe *mid.CandidatePipeline,
	gate *usecase.Gate,
	c cache.Service,
	insp *usecase.InspectUseCase,
) *api.SignalsEchoHandler {
	h := api.NewSignalsEchoHandler(l, pipe, gate, c, cfg.Redis.CacheTTL)
	if insp != nil {
		h.WithInspector(insp)
	}
	return h
}

// ProvideOutcomeQueue consumes outcome reports from Redis. Disabled returns nil.
func ProvideOutcomeQueue(cfg *config.Config, rc *redis.Client, gate *usecase.Gate, l *logger.Logger) *queue.RedisQueue {
	if rc == nil || !cfg.Redis.Outcomes.Enabled {
		return nil
	}
	q := queue.NewRedisQueue(rc, cfg.Redis.Prefix+":outcomes", queue.Config{
		Workers:    cfg.Redis.Outcomes.Workers,
		RetryLimit: cfg.Redis.Outcomes.RetryLimit,
		RetryDelay: cfg.Redis.Outcomes.RetryDelay,
	}, l)
	q.RegisterJob(usecase.NewOutcomeJob(gate, l))
	return q
}

// ProvideHTTPServer builds the API server with rate limiting and dependency health checks.
func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, h *api.SignalsEchoHandler, ch *pkgch.Client, rc *redis.Client) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, prometheus.DefaultRegisterer, prometheus.DefaultGatherer))
	} else {
		opts = append(opts, xhttp.WithMetrics("", prometheus.DefaultRegisterer, nil))
	}
	if cfg.Server.RateLimit.RPS > 0 {
		opts = append(opts, xhttp.WithRateLimit(
			ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst),
			apimetrics.APIThrottled.Inc,
		))
	}
	if ch != nil {
		opts = append(opts, xhttp.WithHealthCheck("clickhouse", ch.Health))
	}
	if rc != nil {
		opts = append(opts, xhttp.WithHealthCheck("redis", func(ctx context.Context) error { return rc.Ping(ctx).Err() }))
	}
	return xhttp.NewServer(h, l, opts...)
}

// ProvideApp wires the lifecycle. Clients are closed after the gate has persisted its state.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	gate *usecase.Gate,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaCandidatesHandler,
	outcomes *queue.RedisQueue,
	ch *pkgch.Client,
	rc *redis.Client,
	producer *pkgkafka.Producer,
) *server.App {
	opts := []server.Option{
		server.WithHTTP(srv, srv.Errors()),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, kh))
	}
	if outcomes != nil {
		opts = append(opts, server.WithWorkers(outcomes))
	}
	if ch != nil {
		opts = append(opts, server.WithClosers(server.Closer{Name: "clickhouse", Close: ch.Close}))
	}
	if rc != nil {
		opts = append(opts, server.WithClosers(server.Closer{Name: "redis", Close: rc.Close}))
	}
	if producer != nil {
		opts = append(opts, server.WithClosers(server.Closer{Name: "kafka-producer", Close: producer.Close}))
	}
	return server.New(l, gate, opts...)
}

// BuildLocalPipeline assembles an in-memory engine with no sinks, feature store
// or metrics. Candidates must carry their windows.
func BuildLocalPipeline(cfg *config.Config, l *logger.Logger) (*mid.CandidatePipeline, error) {
	cat, err := ProvideCatalogue(cfg)
	if err != nil {
		return nil, err
	}
	res, err := ProvideResolver(cat, cfg, l)
	if err != nil {
		return nil, err
	}
	ctrl, err := ProvideAdmission(cfg, l)
	if err != nil {
		return nil, err
	}
	gate := usecase.NewGate(cfg.Engine.Pool,
		ProvideValidator(cfg, l),
		ProvideDetector(cfg, l),
		res,
		ProvideScorer(cat, cfg, l),
		ctrl,
		ProvideHistory(cfg),
		cfg.Engine.Signal,
		l,
	)
	return ProvidePipeline(cfg, gate, l), nil
}

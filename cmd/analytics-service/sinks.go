package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/datalayer"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/session"
)

const (
	dialTimeout       = 10 * time.Second
	maxConnectRetries = 5
)

// newConnectBackOff is swapped in tests to skip the waits.
var newConnectBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return backoff.WithMaxRetries(b, maxConnectRetries)
}

// connectWithRetry runs op until it succeeds, the retries run out or ctx ends.
func connectWithRetry(ctx context.Context, backend string, logger *zap.Logger, op func() error) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err != nil {
			logger.Warn("sink connect failed",
				zap.String("backend", backend),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	}, backoff.WithContext(newConnectBackOff(), ctx))
}

// buildSinks connects the configured backend and returns a per-session sink
// factory plus a cleanup that releases the shared connection. Remote sinks
// share one circuit breaker per backend.
func buildSinks(ctx context.Context, cfg config.SinkConfig, logger *zap.Logger) (session.SinkFactory, func(), error) {
	switch cfg.Kind {
	case config.SinkMemory:
		factory := func(string) (datalayer.Sink, error) {
			return datalayer.NewMemorySink(), nil
		}
		return factory, func() {}, nil

	case config.SinkRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		err := connectWithRetry(ctx, config.SinkRedis, logger, func() error {
			pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
			defer cancel()
			return client.Ping(pingCtx).Err()
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("redis sink connected", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.RedisTTL))
		cb := datalayer.NewBreaker(config.SinkRedis, logger)
		factory := func(id string) (datalayer.Sink, error) {
			return datalayer.NewBreakerSink(datalayer.NewRedisSink(client, id, cfg.RedisTTL), cb), nil
		}
		return factory, func() { _ = client.Close() }, nil

	case config.SinkRabbitMQ:
		var conn *amqp.Connection
		err := connectWithRetry(ctx, config.SinkRabbitMQ, logger, func() error {
			var err error
			conn, err = amqp.DialConfig(cfg.RabbitURL, amqp.Config{
				Dial: amqp.DefaultDial(dialTimeout),
			})
			return err
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		ch, err := datalayer.OpenSharedChannel(conn, cfg.RabbitExchange)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		logger.Info("rabbitmq sink connected",
			zap.String("exchange", cfg.RabbitExchange),
			zap.String("routing_key", cfg.RabbitRoutingKey),
			zap.Bool("enveloped", cfg.RabbitEnveloped),
		)
		opts := datalayer.RabbitOptions{
			Exchange:   cfg.RabbitExchange,
			RoutingKey: cfg.RabbitRoutingKey,
			Enveloped:  cfg.RabbitEnveloped,
		}
		cb := datalayer.NewBreaker(config.SinkRabbitMQ, logger)
		factory := func(id string) (datalayer.Sink, error) {
			return datalayer.NewBreakerSink(datalayer.NewRabbitSink(ch, id, opts), cb), nil
		}
		cleanup := func() {
			_ = ch.Close()
			_ = conn.Close()
		}
		return factory, cleanup, nil

	case config.SinkKafka:
		w := datalayer.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("kafka sink configured",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
		cb := datalayer.NewBreaker(config.SinkKafka, logger)
		factory := func(id string) (datalayer.Sink, error) {
			return datalayer.NewBreakerSink(datalayer.NewKafkaSink(w, id), cb), nil
		}
		cleanup := func() {
			if err := w.Close(); err != nil {
				logger.Warn("kafka writer close", zap.Error(err))
			}
		}
		return factory, cleanup, nil
	}

	return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownSink, cfg.Kind)
}

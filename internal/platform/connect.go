// Package platform opens the connections the processes depend on, retrying
// while the backing services start up.
package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Retry bounds how long a connection is attempted.
type Retry struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetry waits a little over two minutes in total.
var DefaultRetry = Retry{Attempts: 40, Delay: 3 * time.Second}

func (r Retry) do(ctx context.Context, logger *zap.Logger, what string, fn func(ctx context.Context) error) error {
	if r.Attempts <= 0 {
		r.Attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		if lastErr = fn(ctx); lastErr == nil {
			logger.Info("Connected", zap.String("target", what), zap.Int("attempt", attempt))
			return nil
		}
		logger.Warn("Connection failed, retrying",
			zap.String("target", what),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.Attempts),
			zap.Error(lastErr),
		)
		if attempt == r.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w (last error: %v)", what, ctx.Err(), lastErr)
		case <-time.After(r.Delay):
		}
	}
	return fmt.Errorf("failed to connect to %s after %d attempts: %w", what, r.Attempts, lastErr)
}

type PostgresConfig struct {
	DSN         string
	MaxConns    int
	IdleTimeout time.Duration
}

// ConnectPostgres returns a pinged pool.
func ConnectPostgres(ctx context.Context, cfg PostgresConfig, retry Retry, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.IdleTimeout > 0 {
		poolConfig.MaxConnIdleTime = cfg.IdleTimeout
	}

	var pool *pgxpool.Pool
	err = retry.do(ctx, logger, "postgres", func(ctx context.Context) error {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		p, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		if err != nil {
			return err
		}
		if err := p.Ping(connectCtx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// ConnectRedis returns a pinged client.
func ConnectRedis(ctx context.Context, opts *redis.Options, retry Retry, logger *zap.Logger) (*redis.Client, error) {
	var client *redis.Client
	err := retry.do(ctx, logger, "redis", func(ctx context.Context) error {
		c := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx).Err(); err != nil {
			c.Close()
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ConnectRabbitMQ dials url and logs when the broker drops the connection.
func ConnectRabbitMQ(ctx context.Context, url string, retry Retry, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	err := retry.do(ctx, logger, "rabbitmq", func(ctx context.Context) error {
		c, err := amqp.Dial(url)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if closeErr := <-closed; closeErr != nil {
			logger.Error("RabbitMQ connection lost", zap.Error(closeErr))
		}
	}()
	return conn, nil
}

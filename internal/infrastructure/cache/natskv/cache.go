package natskv

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/clinical-qa/internal/core/domain"
	"github.com/kirillkom/clinical-qa/internal/infrastructure/resilience"
)

// Cache stores validated answers in a JetStream key-value bucket so repeated
// queries skip retrieval. Expiry is bucket-level: the TTL passed at Set time
// is bounded by the bucket TTL configured here.
type Cache struct {
	conn     *nats.Conn
	kv       nats.KeyValue
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	BucketTTL          time.Duration
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(url, bucket string, options Options) (*Cache, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	bucketTTL := options.BucketTTL
	if bucketTTL <= 0 {
		bucketTTL = 15 * time.Minute
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("clinical-qa"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket: bucket,
			TTL:    bucketTTL,
		})
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open kv bucket %s: %w", bucket, err)
	}

	return &Cache{
		conn:     conn,
		kv:       kv,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (c *Cache) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// Get returns the cached answer for a logical key, or false on miss. Backend
// failures count as misses so the pipeline keeps answering.
func (c *Cache) Get(ctx context.Context, key string) (*domain.Answer, bool) {
	var answer domain.Answer
	call := func(_ context.Context) error {
		entry, err := c.kv.Get(hashKey(key))
		if err != nil {
			return err
		}
		return json.Unmarshal(entry.Value(), &answer)
	}

	err := c.execute(ctx, "natskv.get", call)
	if err != nil {
		if !errors.Is(err, nats.ErrKeyNotFound) {
			c.logger.Warn("cache_get_failed", "error", err)
		}
		return nil, false
	}
	return &answer, true
}

// Set stores an answer. Failures are logged, never surfaced: the cache is an
// optimization, not a source of truth.
func (c *Cache) Set(ctx context.Context, key string, answer domain.Answer, _ time.Duration) {
	payload, err := json.Marshal(answer)
	if err != nil {
		c.logger.Warn("cache_marshal_failed", "error", err)
		return
	}

	call := func(_ context.Context) error {
		_, err := c.kv.Put(hashKey(key), payload)
		return err
	}
	if err := c.execute(ctx, "natskv.set", call); err != nil {
		c.logger.Warn("cache_set_failed", "error", err)
	}
}

func (c *Cache) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	if c.executor == nil {
		return call(ctx)
	}
	return c.executor.Execute(ctx, operation, call, classifyNATSError)
}

func classifyNATSError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if errors.Is(err, nats.ErrKeyNotFound) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrNoResponders) || errors.Is(err, nats.ErrTimeout) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

// hashKey makes arbitrary normalized-query keys safe for the KV key charset.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

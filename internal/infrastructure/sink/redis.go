package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/incidentops/itsm-kpi-pipeline/internal/domain/errors"
	"github.com/incidentops/itsm-kpi-pipeline/internal/infrastructure/config"
)

// RedisSink materializes relations as JSON documents for dashboard reads:
// one document per row under <prefix>:<relation>:<key>, plus an index set
// of row keys and a meta document per relation. A write replaces the whole
// relation, deleting rows the new dataset no longer contains.
type RedisSink struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisSink creates a sink writing to the serving Redis instance.
func NewRedisSink(cfg *config.RedisConfig, logger *zap.Logger) (*RedisSink, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("redis sink initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.String("key_prefix", cfg.KeyPrefix))

	return &RedisSink{
		client: client,
		prefix: cfg.KeyPrefix,
		logger: logger,
	}, nil
}

// NewRedisSinkWithClient wires an existing client, used by tests.
func NewRedisSinkWithClient(client *redis.Client, prefix string, logger *zap.Logger) *RedisSink {
	return &RedisSink{client: client, prefix: prefix, logger: logger}
}

func (s *RedisSink) Name() string {
	return "redis"
}

// Close releases the underlying client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

func (s *RedisSink) Materialize(ctx context.Context, ds Dataset) error {
	keyPos := -1
	for i, col := range ds.Columns {
		if col == ds.KeyColumn {
			keyPos = i
			break
		}
	}
	if keyPos < 0 {
		return apperrors.NewInternalError(
			fmt.Sprintf("dataset %s does not carry its key column %q", ds.Relation, ds.KeyColumn))
	}

	indexKey := s.relationKey(ds.Relation, "index")
	stale, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		s.logger.Error("redis index read failed", zap.String("relation", string(ds.Relation)), zap.Error(err))
		return apperrors.NewInfrastructureError("redis_sink", "index read failed").WithCause(err)
	}

	pipe := s.client.TxPipeline()
	for _, member := range stale {
		pipe.Del(ctx, s.rowKey(ds.Relation, member))
	}
	pipe.Del(ctx, indexKey)

	for _, row := range ds.Rows {
		doc := make(map[string]interface{}, len(ds.Columns))
		for i, col := range ds.Columns {
			doc[col] = row[i]
		}
		payload, err := json.Marshal(doc)
		if err != nil {
			return apperrors.NewInternalError(
				fmt.Sprintf("encoding %s row failed", ds.Relation)).WithCause(err)
		}

		member := fmt.Sprintf("%v", row[keyPos])
		pipe.Set(ctx, s.rowKey(ds.Relation, member), payload, 0)
		pipe.SAdd(ctx, indexKey, member)
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"rows":       len(ds.Rows),
		"written_at": time.Now().UTC().Format(time.RFC3339),
	})
	pipe.Set(ctx, s.relationKey(ds.Relation, "meta"), meta, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("redis materialization failed",
			zap.String("relation", string(ds.Relation)),
			zap.Error(err))
		return apperrors.NewInfrastructureError("redis_sink",
			fmt.Sprintf("materializing %s failed", ds.Relation)).WithCause(err)
	}

	s.logger.Info("relation materialized",
		zap.String("relation", string(ds.Relation)),
		zap.Int("rows", len(ds.Rows)))

	return nil
}

func (s *RedisSink) relationKey(rel Relation, suffix string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, rel, suffix)
}

// rowKey namespaces row documents away from the index and meta keys so a
// row whose key value is literally "index" cannot clobber bookkeeping.
func (s *RedisSink) rowKey(rel Relation, member string) string {
	return fmt.Sprintf("%s:%s:row:%s", s.prefix, rel, member)
}

package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/persistence"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/types"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixCommitment  = "whitelist:commitment:"
	keyActiveRoot        = "whitelist:active:root"
	keySchemaVersion     = "whitelist:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Key set for listing operations (Redis doesn't support prefix iteration natively)
	keySetCommitments = "whitelist:commitments:index"
)

// RedisPersistence is a commitment store backed by Redis, for deployments
// where several processes serve proofs from the same commitments.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.ICommitmentPersistence = (*RedisPersistence)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to every key, e.g. "mainnet:" gives
	// "mainnet:whitelist:commitment:0x...". Empty means no extra prefix.
	KeyPrefix string
}

// NewRedisPersistence creates a new Redis-backed persistence layer.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)

	return rp, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisPersistence) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisPersistence) commitmentKey(root string) string {
	return r.prefixKey(keyPrefixCommitment + root)
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}

	return nil
}

// SaveCommitment persists a commitment
func (r *RedisPersistence) SaveCommitment(commitment *types.Commitment) error {
	if commitment == nil {
		return fmt.Errorf("cannot save nil Commitment")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()

	data, err := persistence.MarshalCommitment(commitment)
	if err != nil {
		return err
	}

	root := commitment.Root.Hex()
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.commitmentKey(root), data, 0)
	pipe.SAdd(ctx, r.prefixKey(keySetCommitments), root)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save Commitment: %w", err)
	}
	return nil
}

// LoadCommitment retrieves a commitment by root
func (r *RedisPersistence) LoadCommitment(root common.Hash) (*types.Commitment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	data, err := r.client.Get(context.Background(), r.commitmentKey(root.Hex())).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load Commitment: %w", err)
	}

	return persistence.UnmarshalCommitment(data)
}

// ListCommitments returns all commitments sorted by creation time
func (r *RedisPersistence) ListCommitments() ([]*types.Commitment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()
	indexKey := r.prefixKey(keySetCommitments)

	roots, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list Commitment roots: %w", err)
	}

	commitments := make([]*types.Commitment, 0, len(roots))
	if len(roots) == 0 {
		return commitments, nil
	}

	keys := make([]string, len(roots))
	for i, root := range roots {
		keys[i] = r.commitmentKey(root)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Commitments: %w", err)
	}

	for i, val := range values {
		if val == nil {
			// Key was in index but doesn't exist - clean up index
			r.client.SRem(ctx, indexKey, roots[i])
			continue
		}

		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type for Commitment", "key", keys[i])
			continue
		}

		c, err := persistence.UnmarshalCommitment([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal Commitment, skipping", "key", keys[i], "error", err)
			continue
		}

		commitments = append(commitments, c)
	}

	persistence.SortCommitments(commitments)
	return commitments, nil
}

// DeleteCommitment removes a commitment
func (r *RedisPersistence) DeleteCommitment(root common.Hash) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.commitmentKey(root.Hex()))
	pipe.SRem(ctx, r.prefixKey(keySetCommitments), root.Hex())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete Commitment: %w", err)
	}
	return nil
}

// SetActiveRoot stores the active root
func (r *RedisPersistence) SetActiveRoot(root common.Hash) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return r.client.Set(context.Background(), r.prefixKey(keyActiveRoot), root.Hex(), 0).Err()
}

// GetActiveRoot retrieves the active root
func (r *RedisPersistence) GetActiveRoot() (common.Hash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return common.Hash{}, fmt.Errorf("persistence layer is closed")
	}

	val, err := r.client.Get(context.Background(), r.prefixKey(keyActiveRoot)).Result()
	if err == redis.Nil {
		return common.Hash{}, nil // No active root set yet
	}
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get active root: %w", err)
	}

	var root common.Hash
	if err := root.UnmarshalText([]byte(val)); err != nil {
		return common.Hash{}, fmt.Errorf("invalid active root %q: %w", val, err)
	}
	return root, nil
}

// Close shuts down the persistence layer
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil // Already closed, idempotent
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if err == redis.Nil {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	return nil
}

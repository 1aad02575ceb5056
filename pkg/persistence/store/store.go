// Package store opens the commitment store selected by configuration.
package store

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/config"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/persistence"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/persistence/badger"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/persistence/memory"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/persistence/redis"
)

// NewPersistence opens the backend named by cfg. A nil config or type "none"
// returns a nil store and no error; callers treat that as persistence disabled.
func NewPersistence(cfg *config.PersistenceConfig, logger *zap.Logger) (persistence.ICommitmentPersistence, error) {
	if cfg == nil {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid persistence configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Type {
	case "", config.PersistenceTypeNone:
		return nil, nil
	case config.PersistenceTypeMemory:
		return memory.NewMemoryPersistence(), nil
	case config.PersistenceTypeBadger:
		bp, err := badger.NewBadgerPersistence(cfg.DataPath, logger)
		if err != nil {
			return nil, err
		}
		return bp, nil
	case config.PersistenceTypeRedis:
		rp, err := redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		return rp, nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Type)
	}
}

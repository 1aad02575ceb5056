package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/persistence"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/types"
)

// Key prefixes for namespacing
const (
	keyPrefixCommitment  = "commitment:"
	keyActiveRoot        = "active:root"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerPersistence is a disk-backed commitment store using Badger.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.ICommitmentPersistence = (*BadgerPersistence)(nil)

// NewBadgerPersistence creates a new Badger-backed persistence layer.
// The database is opened at the specified path with SyncWrites enabled for durability.
// A background goroutine is started for garbage collection.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger persistence initialized", "path", absPath)

	return bp, nil
}

// initSchema initializes or validates the schema version
func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}

		return nil
	})
}

// runGC runs periodic value log garbage collection in the background
func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func commitmentKey(root common.Hash) []byte {
	return []byte(keyPrefixCommitment + root.Hex())
}

// get copies the value at key, returning nil when the key is absent
func (b *BadgerPersistence) get(key []byte) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key)
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)
		return err
	})
	return data, err
}

// SaveCommitment persists a commitment
func (b *BadgerPersistence) SaveCommitment(commitment *types.Commitment) error {
	if commitment == nil {
		return fmt.Errorf("cannot save nil Commitment")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalCommitment(commitment)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(commitmentKey(commitment.Root), data)
	})
}

// LoadCommitment retrieves a commitment by root
func (b *BadgerPersistence) LoadCommitment(root common.Hash) (*types.Commitment, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	data, err := b.get(commitmentKey(root))
	if err != nil {
		return nil, fmt.Errorf("failed to load Commitment: %w", err)
	}
	if data == nil {
		return nil, nil // Not found
	}

	return persistence.UnmarshalCommitment(data)
}

// ListCommitments returns all commitments sorted by creation time
func (b *BadgerPersistence) ListCommitments() ([]*types.Commitment, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	commitments := make([]*types.Commitment, 0)

	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixCommitment)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			data, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			c, err := persistence.UnmarshalCommitment(data)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal Commitment, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}

			commitments = append(commitments, c)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list Commitments: %w", err)
	}

	persistence.SortCommitments(commitments)
	return commitments, nil
}

// DeleteCommitment removes a commitment
func (b *BadgerPersistence) DeleteCommitment(root common.Hash) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(commitmentKey(root))
	})
}

// SetActiveRoot stores the active root
func (b *BadgerPersistence) SetActiveRoot(root common.Hash) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keyActiveRoot), root.Bytes())
	})
}

// GetActiveRoot retrieves the active root
func (b *BadgerPersistence) GetActiveRoot() (common.Hash, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return common.Hash{}, fmt.Errorf("persistence layer is closed")
	}

	data, err := b.get([]byte(keyActiveRoot))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get active root: %w", err)
	}
	if data == nil {
		return common.Hash{}, nil // No active root set yet
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid active root data length: %d", len(data))
	}

	return common.BytesToHash(data), nil
}

// Close shuts down the persistence layer
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil // Already closed, idempotent
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger persistence closed")
	return nil
}

// HealthCheck verifies the persistence layer is operational
func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}

package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/logger"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/persistence"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/testutil"
)

// getTestRedisAddress returns the Redis address for testing.
// Redis tests only run when REDIS_TEST_ADDRESS is set.
func getTestRedisAddress(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDRESS not set, skipping Redis tests")
	}
	return addr
}

// newTestRedis connects to DB 15 under a key prefix unique to the test,
// and removes every key under that prefix on cleanup.
func newTestRedis(t *testing.T) *RedisPersistence {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cfg := &RedisConfig{
		Address:   getTestRedisAddress(t),
		DB:        15,
		KeyPrefix: fmt.Sprintf("test-%s:", uuid.New().String()),
	}

	rp, err := NewRedisPersistence(cfg, testLogger)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = rp.Close()

		// rp may already be closed by the test, so clean up on a fresh client
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Address, DB: cfg.DB})
		defer func() { _ = client.Close() }()

		ctx := context.Background()
		keys, err := client.Keys(ctx, cfg.KeyPrefix+"*").Result()
		if err == nil && len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	})

	return rp
}

func TestRedisPersistence(t *testing.T) {
	testutil.RunCommitmentPersistenceSuite(t, func(t *testing.T) persistence.ICommitmentPersistence {
		return newTestRedis(t)
	})
}

func TestRedisPersistence_ConfigErrors(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewRedisPersistence(nil, testLogger)
	require.Error(t, err)

	_, err = NewRedisPersistence(&RedisConfig{}, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address cannot be empty")
}

func TestRedisPersistence_PrefixIsolation(t *testing.T) {
	a := newTestRedis(t)
	b := newTestRedis(t)

	c := testutil.CreateTestCommitment(t, 3, 1, time.Now())
	require.NoError(t, a.SaveCommitment(c))

	loaded, err := b.LoadCommitment(c.Root)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	list, err := b.ListCommitments()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRedisPersistence_IndexCleanup(t *testing.T) {
	rp := newTestRedis(t)

	c := testutil.CreateTestCommitment(t, 3, 2, time.Now())
	require.NoError(t, rp.SaveCommitment(c))

	// Remove the value behind the index's back
	require.NoError(t, rp.client.Del(context.Background(), rp.commitmentKey(c.Root.Hex())).Err())

	list, err := rp.ListCommitments()
	require.NoError(t, err)
	assert.Empty(t, list)

	members, err := rp.client.SMembers(context.Background(), rp.prefixKey(keySetCommitments)).Result()
	require.NoError(t, err)
	assert.Empty(t, members)
}

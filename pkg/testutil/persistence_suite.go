package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/hasher"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/persistence"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/types"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/whitelist"
)

// RunCommitmentPersistenceSuite exercises the ICommitmentPersistence contract.
// newStore must return an empty, open store; the suite closes it.
func RunCommitmentPersistenceSuite(t *testing.T, newStore func(t *testing.T) persistence.ICommitmentPersistence) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("SaveAndLoad", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		c := CreateTestCommitment(t, 5, 1, base)
		require.NoError(t, store.SaveCommitment(c))

		loaded, err := store.LoadCommitment(c.Root)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, c, loaded)

		// Proofs survive storage intact
		require.NoError(t, whitelist.VerifyCommitment(context.Background(), hasher.NewBlake2b256(), loaded))
	})

	t.Run("LoadNotFound", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		loaded, err := store.LoadCommitment(common.HexToHash("0xdead"))
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("SaveNil", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		err := store.SaveCommitment(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil Commitment")
	})

	t.Run("Overwrite", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		c := CreateTestCommitment(t, 3, 2, base)
		require.NoError(t, store.SaveCommitment(c))

		c.ContractInfo.PackageID = "0x01"
		require.NoError(t, store.SaveCommitment(c))

		loaded, err := store.LoadCommitment(c.Root)
		require.NoError(t, err)
		assert.Equal(t, "0x01", loaded.ContractInfo.PackageID)

		list, err := store.ListCommitments()
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("ListSorted", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		list, err := store.ListCommitments()
		require.NoError(t, err)
		assert.Empty(t, list)

		c1 := CreateTestCommitment(t, 2, 3, base.Add(2*time.Hour))
		c2 := CreateTestCommitment(t, 4, 4, base)
		c3 := CreateTestCommitment(t, 6, 5, base.Add(time.Hour))
		require.NoError(t, store.SaveCommitment(c1))
		require.NoError(t, store.SaveCommitment(c2))
		require.NoError(t, store.SaveCommitment(c3))

		list, err = store.ListCommitments()
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, c2.Root, list[0].Root)
		assert.Equal(t, c3.Root, list[1].Root)
		assert.Equal(t, c1.Root, list[2].Root)
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		c := CreateTestCommitment(t, 3, 6, base)
		require.NoError(t, store.SaveCommitment(c))
		require.NoError(t, store.DeleteCommitment(c.Root))

		loaded, err := store.LoadCommitment(c.Root)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		// Idempotent
		require.NoError(t, store.DeleteCommitment(c.Root))

		list, err := store.ListCommitments()
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("ActiveRoot", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		root, err := store.GetActiveRoot()
		require.NoError(t, err)
		assert.Equal(t, common.Hash{}, root)

		want := common.HexToHash("0xb181882764a2cfae461879e032fe05d6ed980a50a26dead8a10f4df26c0bf6af")
		require.NoError(t, store.SetActiveRoot(want))

		root, err = store.GetActiveRoot()
		require.NoError(t, err)
		assert.Equal(t, want, root)

		require.NoError(t, store.SetActiveRoot(common.Hash{}))
		root, err = store.GetActiveRoot()
		require.NoError(t, err)
		assert.Equal(t, common.Hash{}, root)
	})

	t.Run("ClosedOperationsFail", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.HealthCheck())
		require.NoError(t, store.Close())
		require.NoError(t, store.Close()) // idempotent

		c := CreateTestCommitment(t, 2, 7, base)
		assert.Error(t, store.SaveCommitment(c))
		_, err := store.LoadCommitment(c.Root)
		assert.Error(t, err)
		_, err = store.ListCommitments()
		assert.Error(t, err)
		assert.Error(t, store.DeleteCommitment(c.Root))
		assert.Error(t, store.SetActiveRoot(c.Root))
		_, err = store.GetActiveRoot()
		assert.Error(t, err)
		assert.Error(t, store.HealthCheck())
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		commitments := make([]*types.Commitment, 10)
		for i := range commitments {
			commitments[i] = CreateTestCommitment(t, 2, 100+i, base.Add(time.Duration(i)*time.Minute))
		}

		var wg sync.WaitGroup
		for _, c := range commitments {
			wg.Add(1)
			go func(c *types.Commitment) {
				defer wg.Done()
				assert.NoError(t, store.SaveCommitment(c))
				_, err := store.LoadCommitment(c.Root)
				assert.NoError(t, err)
			}(c)
		}
		wg.Wait()

		list, err := store.ListCommitments()
		require.NoError(t, err)
		assert.Len(t, list, 10)
	})
}

package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/hasher"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/types"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/whitelist"
)

// CreateTestAccounts creates n distinct 32 byte account identifiers.
// seed keeps sets from different tests apart.
func CreateTestAccounts(n int, seed int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("0x%032x%032x", seed, i+1)
	}
	return ids
}

// CreateTestCommitment generates a real commitment over n accounts with the given creation time.
func CreateTestCommitment(t *testing.T, n int, seed int, createdAt time.Time) *types.Commitment {
	t.Helper()

	g := whitelist.NewGenerator(hasher.NewBlake2b256(), zap.NewNop())
	c, err := g.Generate(context.Background(), CreateTestAccounts(n, seed), &types.ContractInfo{
		PackageID:   "0xab93dcf01d5ab66e17cc46b654c4727c232e7b18cb189d8ec66645e8e0915c26",
		TokenConfig: "0x49999a2b85c7fb6e6b8ab2b2238f30095d5d0dfff8f5e5d7d3718e1896bd865b",
	})
	if err != nil {
		t.Fatalf("Failed to generate test commitment: %v", err)
	}
	c.CreatedAt = createdAt.UTC()
	return c
}

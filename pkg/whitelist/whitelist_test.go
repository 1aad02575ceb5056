package whitelist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/hasher"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/leaf"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/merkle"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/types"
)

const (
	accountA = "0xb181882764a2cfae461879e032fe05d6ed980a50a26dead8a10f4df26c0bf6af"
	accountB = "0x6ea24779ec54ffab9f0ac53495026533a3c06ed37d5c50b2b2ee2589150d74ee"
	accountC = "0x76c50b04b686651d268ee4994e6891f7c99e01886a820367e091c24ef996300e"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g := NewGenerator(hasher.NewBlake2b256(), zap.NewNop())
	g.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return g
}

func testAccounts(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("0x%064x", i+1)
	}
	return ids
}

func decodeAccount(t *testing.T, id string) []byte {
	t.Helper()
	b, err := leaf.CanonicalBytes(id)
	require.NoError(t, err)
	return b[:]
}

// TestTwoAccountScenario recomputes the two-account commitment by hand
func TestTwoAccountScenario(t *testing.T) {
	g := newTestGenerator(t)

	c, err := g.Generate(context.Background(), []string{accountA, accountB}, nil)
	require.NoError(t, err)

	la := blake2b.Sum256(decodeAccount(t, accountA))
	lb := blake2b.Sum256(decodeAccount(t, accountB))
	root := blake2b.Sum256(append(la[:], lb[:]...))

	require.Equal(t, common.Hash(root), c.Root)
	require.Len(t, c.Proofs, 2)

	require.Equal(t, accountA, c.Proofs[0].AccountID)
	require.Equal(t, 0, c.Proofs[0].Index)
	require.Equal(t, common.Hash(la), c.Proofs[0].LeafHash)
	require.Equal(t, []common.Hash{lb}, c.Proofs[0].Proof)

	require.Equal(t, accountB, c.Proofs[1].AccountID)
	require.Equal(t, 1, c.Proofs[1].Index)
	require.Equal(t, common.Hash(lb), c.Proofs[1].LeafHash)
	require.Equal(t, []common.Hash{la}, c.Proofs[1].Proof)

	require.NoError(t, VerifyAccountProof(g.Hasher(), c.Proofs[0], c.Root))
	require.NoError(t, VerifyAccountProof(g.Hasher(), c.Proofs[1], c.Root))
}

func TestGenerateSingleAccount(t *testing.T) {
	g := newTestGenerator(t)

	c, err := g.Generate(context.Background(), []string{accountA}, nil)
	require.NoError(t, err)

	require.Equal(t, common.Hash(blake2b.Sum256(decodeAccount(t, accountA))), c.Root)
	require.Empty(t, c.Proofs[0].Proof)
	require.NoError(t, VerifyAccountProof(g.Hasher(), c.Proofs[0], c.Root))
}

func TestGenerateRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 13, 64, 100} {
		t.Run(fmt.Sprintf("Accounts_%d", n), func(t *testing.T) {
			g := newTestGenerator(t)
			ids := testAccounts(n)

			c, err := g.Generate(context.Background(), ids, nil)
			require.NoError(t, err)
			require.Equal(t, n, c.TotalAddresses)
			require.Equal(t, ids, c.Addresses)
			require.Equal(t, hasher.AlgorithmBlake2b256, c.HashAlgorithm)
			require.NotEmpty(t, c.ID)

			for i, p := range c.Proofs {
				require.Equal(t, i, p.Index)
				require.NoError(t, VerifyAccountProof(g.Hasher(), p, c.Root))
			}
			require.NoError(t, VerifyCommitment(context.Background(), g.Hasher(), c))
		})
	}
}

func TestGenerateDeterministic(t *testing.T) {
	g := newTestGenerator(t)
	ids := testAccounts(11)

	c1, err := g.Generate(context.Background(), ids, nil)
	require.NoError(t, err)
	c2, err := g.Generate(context.Background(), ids, nil)
	require.NoError(t, err)

	require.Equal(t, c1.Root, c2.Root)
	require.Equal(t, c1.Proofs, c2.Proofs)
	require.NotEqual(t, c1.ID, c2.ID)
}

func TestGenerateOddDuplication(t *testing.T) {
	g := newTestGenerator(t)

	three, err := g.Generate(context.Background(), []string{accountA, accountB, accountC}, nil)
	require.NoError(t, err)
	four, err := g.Generate(context.Background(), []string{accountA, accountB, accountC, accountC}, nil)
	require.NoError(t, err)

	require.Equal(t, four.Root, three.Root)
}

func TestGenerateErrors(t *testing.T) {
	g := newTestGenerator(t)

	t.Run("Empty whitelist", func(t *testing.T) {
		c, err := g.Generate(context.Background(), nil, nil)
		require.ErrorIs(t, err, merkle.ErrEmptyLeaves)
		require.Nil(t, c)
	})

	t.Run("Oversized account", func(t *testing.T) {
		bad := "0x" + strings.Repeat("11", 33)
		c, err := g.Generate(context.Background(), []string{accountA, bad}, nil)
		require.ErrorIs(t, err, leaf.ErrAccountIDTooLong)
		require.Nil(t, c)

		var encErr *leaf.EncodingError
		require.True(t, errors.As(err, &encErr))
		require.Equal(t, bad, encErr.AccountID)
	})

	t.Run("Malformed account", func(t *testing.T) {
		_, err := g.Generate(context.Background(), []string{"0xnothex"}, nil)
		require.ErrorIs(t, err, leaf.ErrInvalidAccountID)
	})

	t.Run("Nil hasher", func(t *testing.T) {
		_, err := NewGenerator(nil, nil).Generate(context.Background(), []string{accountA}, nil)
		require.ErrorIs(t, err, merkle.ErrNilHasher)
	})
}

func TestGenerateCopiesInputs(t *testing.T) {
	g := newTestGenerator(t)
	ids := []string{accountA, accountB}
	info := &types.ContractInfo{PackageID: "0xab", TokenConfig: "0xcd"}

	c, err := g.Generate(context.Background(), ids, info)
	require.NoError(t, err)

	ids[0] = accountC
	info.PackageID = "0xff"

	require.Equal(t, accountA, c.Addresses[0])
	require.Equal(t, "0xab", c.ContractInfo.PackageID)
}

func TestFindProof(t *testing.T) {
	g := newTestGenerator(t)
	c, err := g.Generate(context.Background(), []string{accountA, "0x0102", accountB}, nil)
	require.NoError(t, err)

	p, err := FindProof(c, accountB)
	require.NoError(t, err)
	require.Equal(t, 2, p.Index)

	// Canonical comparison: explicit trailing zeros and missing prefix both match.
	p, err = FindProof(c, "0102"+strings.Repeat("00", 30))
	require.NoError(t, err)
	require.Equal(t, 1, p.Index)

	_, err = FindProof(c, accountC)
	require.ErrorIs(t, err, ErrAccountNotFound)

	_, err = FindProof(c, "0xzz")
	require.ErrorIs(t, err, leaf.ErrInvalidAccountID)
}

func TestVerifyAccountProofFailures(t *testing.T) {
	g := newTestGenerator(t)
	c, err := g.Generate(context.Background(), testAccounts(6), nil)
	require.NoError(t, err)

	t.Run("Wrong account", func(t *testing.T) {
		p := *c.Proofs[0]
		p.AccountID = accountA
		require.ErrorIs(t, VerifyAccountProof(g.Hasher(), &p, c.Root), ErrLeafMismatch)
	})

	t.Run("Wrong index", func(t *testing.T) {
		p := *c.Proofs[0]
		p.Index = 1
		require.ErrorIs(t, VerifyAccountProof(g.Hasher(), &p, c.Root), ErrRootMismatch)
	})

	t.Run("Tampered sibling", func(t *testing.T) {
		p := *c.Proofs[3]
		p.Proof = append([]common.Hash{}, p.Proof...)
		p.Proof[1][0] ^= 0xFF
		require.ErrorIs(t, VerifyAccountProof(g.Hasher(), &p, c.Root), ErrRootMismatch)
	})

	t.Run("Wrong hasher", func(t *testing.T) {
		require.ErrorIs(t, VerifyAccountProof(hasher.NewKeccak256(), c.Proofs[0], c.Root), ErrLeafMismatch)
	})

	t.Run("Nil proof", func(t *testing.T) {
		require.Error(t, VerifyAccountProof(g.Hasher(), nil, c.Root))
	})
}

func TestVerifyCommitmentDetectsTampering(t *testing.T) {
	g := newTestGenerator(t)
	ctx := context.Background()

	c, err := g.Generate(ctx, testAccounts(5), nil)
	require.NoError(t, err)

	tampered := *c
	tampered.Root[0] ^= 0xFF
	require.ErrorIs(t, VerifyCommitment(ctx, g.Hasher(), &tampered), ErrRootMismatch)

	reordered := *c
	reordered.Proofs = []*types.AccountProof{c.Proofs[1], c.Proofs[0], c.Proofs[2], c.Proofs[3], c.Proofs[4]}
	require.Error(t, VerifyCommitment(ctx, g.Hasher(), &reordered))

	require.Error(t, VerifyCommitment(ctx, hasher.NewKeccak256(), c))
}

func TestCommitmentJSONShape(t *testing.T) {
	g := newTestGenerator(t)
	c, err := g.Generate(context.Background(), []string{accountA, accountB}, &types.ContractInfo{
		PackageID:   "0xab93dcf01d5ab66e17cc46b654c4727c232e7b18cb189d8ec66645e8e0915c26",
		TokenConfig: "0x49999a2b85c7fb6e6b8ab2b2238f30095d5d0dfff8f5e5d7d3718e1896bd865b",
	})
	require.NoError(t, err)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, c.Root.Hex(), doc["merkleRoot"])
	assert.Equal(t, float64(2), doc["totalAddresses"])
	assert.Equal(t, "2025-01-02T03:04:05Z", doc["timestamp"])

	proofs := doc["proofs"].([]interface{})
	first := proofs[0].(map[string]interface{})
	assert.Equal(t, accountA, first["address"])
	assert.Equal(t, float64(0), first["index"])
	assert.Equal(t, c.Proofs[0].LeafHash.Hex(), first["leafHash"])
	assert.Equal(t, []interface{}{c.Proofs[0].Proof[0].Hex()}, first["proof"])
	assert.True(t, strings.HasPrefix(first["leafHash"].(string), "0x"))

	info := doc["contractInfo"].(map[string]interface{})
	assert.Equal(t, c.ContractInfo.PackageID, info["packageId"])

	var decoded types.Commitment
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NoError(t, VerifyCommitment(context.Background(), g.Hasher(), &decoded))
}

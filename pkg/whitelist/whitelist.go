package whitelist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/hasher"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/leaf"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/merkle"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/types"
)

var (
	// ErrAccountNotFound is returned when an account has no proof in a commitment.
	ErrAccountNotFound = errors.New("account not found in commitment")

	// ErrLeafMismatch is returned when a proof's leaf hash does not match its account.
	ErrLeafMismatch = errors.New("leaf hash does not match account")

	// ErrRootMismatch is returned when a proof does not fold to the expected root.
	ErrRootMismatch = errors.New("proof does not reproduce merkle root")
)

// Generator builds whitelist commitments. The same hasher encodes leaves and
// combines tree nodes.
type Generator struct {
	hasher hasher.Hasher
	logger *zap.Logger
	now    func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(h hasher.Hasher, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		hasher: h,
		logger: logger,
		now:    time.Now,
	}
}

// Hasher returns the hasher the generator was built with.
func (g *Generator) Hasher() hasher.Hasher {
	return g.hasher
}

// BuildTree encodes the account identifiers and builds the merkle tree over them.
func (g *Generator) BuildTree(ctx context.Context, accountIDs []string) (*merkle.MerkleTree, error) {
	if g.hasher == nil {
		return nil, merkle.ErrNilHasher
	}
	if len(accountIDs) == 0 {
		return nil, merkle.ErrEmptyLeaves
	}

	leaves, err := leaf.EncodeLeaves(ctx, g.hasher, accountIDs)
	if err != nil {
		return nil, err
	}

	return merkle.BuildMerkleTree(leaves, g.hasher)
}

// Generate computes the merkle root over accountIDs, in the order given, and
// an inclusion proof for every entry.
func (g *Generator) Generate(ctx context.Context, accountIDs []string, info *types.ContractInfo) (*types.Commitment, error) {
	tree, err := g.BuildTree(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build merkle tree: %w", err)
	}

	if dups := duplicateAccounts(accountIDs); len(dups) > 0 {
		g.logger.Sugar().Warnw("Whitelist contains duplicate accounts; each occurrence gets its own index",
			"duplicates", dups)
	}

	proofs := make([]*types.AccountProof, len(accountIDs))
	for i, accountID := range accountIDs {
		mp, err := tree.GenerateProof(i)
		if err != nil {
			return nil, fmt.Errorf("failed to generate proof for %s: %w", accountID, err)
		}
		proofs[i] = toAccountProof(accountID, mp)

		g.logger.Sugar().Debugw("Generated proof",
			"account", accountID,
			"index", i,
			"leaf_hash", proofs[i].LeafHash.Hex(),
			"proof_length", len(mp.Proof))
	}

	addresses := make([]string, len(accountIDs))
	copy(addresses, accountIDs)

	var contractInfo *types.ContractInfo
	if info != nil {
		ci := *info
		contractInfo = &ci
	}

	commitment := &types.Commitment{
		ID:             uuid.New().String(),
		CreatedAt:      g.now().UTC(),
		HashAlgorithm:  g.hasher.Name(),
		Root:           common.Hash(tree.Root()),
		TotalAddresses: len(accountIDs),
		Addresses:      addresses,
		Proofs:         proofs,
		ContractInfo:   contractInfo,
	}

	g.logger.Sugar().Infow("Generated whitelist commitment",
		"id", commitment.ID,
		"root", commitment.Root.Hex(),
		"total_addresses", commitment.TotalAddresses,
		"depth", tree.Depth(),
		"hash_algorithm", commitment.HashAlgorithm)

	return commitment, nil
}

// FindProof returns the proof for accountID. Identifiers are compared in
// canonical form, so "0x01" matches "0x0100...00".
func FindProof(c *types.Commitment, accountID string) (*types.AccountProof, error) {
	if c == nil {
		return nil, fmt.Errorf("commitment cannot be nil")
	}

	want, err := leaf.CanonicalBytes(accountID)
	if err != nil {
		return nil, err
	}

	for _, p := range c.Proofs {
		got, err := leaf.CanonicalBytes(p.AccountID)
		if err != nil {
			continue
		}
		if got == want {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
}

// VerifyAccountProof re-encodes the proof's account, checks the recorded leaf
// hash, and folds the proof up to root.
func VerifyAccountProof(h hasher.Hasher, p *types.AccountProof, root common.Hash) error {
	if p == nil {
		return fmt.Errorf("proof cannot be nil")
	}

	l, err := leaf.EncodeLeaf(h, p.AccountID)
	if err != nil {
		return err
	}
	if common.Hash(l) != p.LeafHash {
		return fmt.Errorf("%w: account %s encodes to %s, proof has %s",
			ErrLeafMismatch, p.AccountID, common.Hash(l).Hex(), p.LeafHash.Hex())
	}

	mp := fromAccountProof(p)
	if !merkle.VerifyProof(h, mp, root) {
		return fmt.Errorf("%w: account %s at index %d", ErrRootMismatch, p.AccountID, p.Index)
	}
	return nil
}

// VerifyCommitment checks every proof in c against c.Root and that the root
// matches a fresh build over c.Addresses.
func VerifyCommitment(ctx context.Context, h hasher.Hasher, c *types.Commitment) error {
	if c == nil {
		return fmt.Errorf("commitment cannot be nil")
	}
	if c.HashAlgorithm != "" && c.HashAlgorithm != h.Name() {
		return fmt.Errorf("commitment was built with %s, verifying with %s", c.HashAlgorithm, h.Name())
	}
	if len(c.Proofs) != len(c.Addresses) {
		return fmt.Errorf("commitment has %d addresses but %d proofs", len(c.Addresses), len(c.Proofs))
	}

	tree, err := NewGenerator(h, nil).BuildTree(ctx, c.Addresses)
	if err != nil {
		return fmt.Errorf("failed to rebuild merkle tree: %w", err)
	}
	if common.Hash(tree.Root()) != c.Root {
		return fmt.Errorf("%w: rebuilt %s, commitment has %s", ErrRootMismatch, common.Hash(tree.Root()).Hex(), c.Root.Hex())
	}

	for i, p := range c.Proofs {
		if p.Index != i {
			return fmt.Errorf("proof %d has index %d", i, p.Index)
		}
		if err := VerifyAccountProof(h, p, c.Root); err != nil {
			return err
		}
	}
	return nil
}

func toAccountProof(accountID string, mp *merkle.MerkleProof) *types.AccountProof {
	siblings := make([]common.Hash, len(mp.Proof))
	for i, s := range mp.Proof {
		siblings[i] = common.Hash(s)
	}
	return &types.AccountProof{
		AccountID: accountID,
		Index:     mp.LeafIndex,
		LeafHash:  common.Hash(mp.Leaf),
		Proof:     siblings,
	}
}

func fromAccountProof(p *types.AccountProof) *merkle.MerkleProof {
	siblings := make([][32]byte, len(p.Proof))
	for i, s := range p.Proof {
		siblings[i] = s
	}
	return &merkle.MerkleProof{
		LeafIndex: p.Index,
		Leaf:      p.LeafHash,
		Proof:     siblings,
	}
}

func duplicateAccounts(accountIDs []string) []string {
	seen := make(map[[leaf.AddressLength]byte]struct{}, len(accountIDs))
	var dups []string
	for _, id := range accountIDs {
		b, err := leaf.CanonicalBytes(id)
		if err != nil {
			continue
		}
		if _, ok := seen[b]; ok {
			dups = append(dups, id)
			continue
		}
		seen[b] = struct{}{}
	}
	return dups
}

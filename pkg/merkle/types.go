package merkle

import "github.com/Layr-Labs/whitelist-merkle-go/pkg/hasher"

// MerkleTree is a binary merkle tree over an ordered leaf sequence.
// It is immutable once built and safe for concurrent proof generation.
type MerkleTree struct {
	// hasher combines sibling pairs; it must be the same hasher that produced the leaves
	hasher hasher.Hasher

	// levels stores all tree levels for proof generation
	// levels[0] = leaves, levels[len-1] = root
	levels [][][32]byte
}

// MerkleProof represents a proof that a leaf is included in the tree.
// The proof consists of sibling hashes along the path from leaf to root.
type MerkleProof struct {
	// LeafIndex is the position of the leaf in the input sequence
	LeafIndex int

	// Leaf is the hash of the leaf being proven
	Leaf [32]byte

	// Proof contains the sibling hashes from leaf to root
	// proof[0] is the sibling of the leaf, proof[len-1] is the child of the root
	Proof [][32]byte
}

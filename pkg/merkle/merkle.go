package merkle

import (
	"errors"
	"fmt"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/hasher"
)

var (
	// ErrEmptyLeaves is returned when a tree is built from zero leaves.
	ErrEmptyLeaves = errors.New("cannot build merkle tree from empty leaf list")

	// ErrLeafIndexOutOfRange is returned when a proof is requested for a leaf that does not exist.
	ErrLeafIndexOutOfRange = errors.New("leaf index out of range")

	// ErrNilHasher is returned when no hasher is supplied.
	ErrNilHasher = errors.New("hasher cannot be nil")
)

// BuildMerkleTree creates a binary merkle tree over leaves in the order given.
//
// Pairs are hashed positionally as H(left || right) and never sorted.
// If there's an odd number of nodes at any level, the last node is duplicated.
// A single leaf is its own root.
func BuildMerkleTree(leaves [][32]byte, h hasher.Hasher) (*MerkleTree, error) {
	if h == nil {
		return nil, ErrNilHasher
	}
	if len(leaves) == 0 {
		return nil, ErrEmptyLeaves
	}

	// Copy so later mutation of the caller's slice can't change the tree
	base := make([][32]byte, len(leaves))
	copy(base, leaves)

	// Build tree levels bottom-up
	levels := make([][][32]byte, 0, bitLen(len(base))+1)
	levels = append(levels, base)

	currentLevel := base
	for len(currentLevel) > 1 {
		nextLevel := make([][32]byte, 0, (len(currentLevel)+1)/2)

		for i := 0; i < len(currentLevel); i += 2 {
			left := currentLevel[i]

			// If odd number of nodes, duplicate the last one
			right := left
			if i+1 < len(currentLevel) {
				right = currentLevel[i+1]
			}

			nextLevel = append(nextLevel, hashPair(h, left, right))
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	return &MerkleTree{
		hasher: h,
		levels: levels,
	}, nil
}

// Root returns the merkle root.
func (mt *MerkleTree) Root() [32]byte {
	return mt.levels[len(mt.levels)-1][0]
}

// LeafCount returns the number of leaves the tree was built from.
func (mt *MerkleTree) LeafCount() int {
	return len(mt.levels[0])
}

// Depth returns the number of levels above the leaves, which is also the proof length.
func (mt *MerkleTree) Depth() int {
	return len(mt.levels) - 1
}

// Leaves returns a copy of the leaf level.
func (mt *MerkleTree) Leaves() [][32]byte {
	out := make([][32]byte, len(mt.levels[0]))
	copy(out, mt.levels[0])
	return out
}

// Leaf returns the leaf at index.
func (mt *MerkleTree) Leaf(index int) ([32]byte, error) {
	if index < 0 || index >= mt.LeafCount() {
		return [32]byte{}, fmt.Errorf("%w: index %d (tree has %d leaves)", ErrLeafIndexOutOfRange, index, mt.LeafCount())
	}
	return mt.levels[0][index], nil
}

// GenerateProof creates a merkle proof for the leaf at the given index.
// The proof consists of sibling hashes along the path from leaf to root.
func (mt *MerkleTree) GenerateProof(leafIndex int) (*MerkleProof, error) {
	if leafIndex < 0 || leafIndex >= mt.LeafCount() {
		return nil, fmt.Errorf("%w: index %d (tree has %d leaves)", ErrLeafIndexOutOfRange, leafIndex, mt.LeafCount())
	}

	proof := make([][32]byte, 0, mt.Depth())
	index := leafIndex

	// Traverse from leaf to root, collecting sibling hashes
	for level := 0; level < len(mt.levels)-1; level++ {
		currentLevel := mt.levels[level]

		siblingIndex := index ^ 1

		// Last node on an odd level is paired with itself
		if siblingIndex >= len(currentLevel) {
			siblingIndex = index
		}

		proof = append(proof, currentLevel[siblingIndex])

		// Move to parent index in next level
		index = index / 2
	}

	return &MerkleProof{
		LeafIndex: leafIndex,
		Leaf:      mt.levels[0][leafIndex],
		Proof:     proof,
	}, nil
}

// VerifyProof verifies that a leaf is included in the merkle tree with the given root.
// It recomputes the root hash using the proof and checks if it matches the expected root.
func VerifyProof(h hasher.Hasher, proof *MerkleProof, root [32]byte) bool {
	if proof == nil || h == nil || proof.LeafIndex < 0 {
		return false
	}
	return ComputeRoot(h, proof.Leaf, proof.LeafIndex, proof.Proof) == root
}

// ComputeRoot folds a proof onto a leaf. At each step the index parity decides
// whether the running hash is the left or the right child.
func ComputeRoot(h hasher.Hasher, leaf [32]byte, leafIndex int, proof [][32]byte) [32]byte {
	currentHash := leaf
	index := leafIndex

	for _, siblingHash := range proof {
		if index%2 == 0 {
			// Current node is on the left, sibling is on the right
			currentHash = hashPair(h, currentHash, siblingHash)
		} else {
			// Current node is on the right, sibling is on the left
			currentHash = hashPair(h, siblingHash, currentHash)
		}

		index = index / 2
	}

	return currentHash
}

// hashPair computes H(left || right) for two 32-byte hashes.
func hashPair(h hasher.Hasher, left, right [32]byte) [32]byte {
	var data [64]byte
	copy(data[0:32], left[:])
	copy(data[32:64], right[:])

	return h.Hash(data[:])
}

func bitLen(n int) int {
	l := 0
	for n > 0 {
		l++
		n >>= 1
	}
	return l
}

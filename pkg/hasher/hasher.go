package hasher

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	merkletree "github.com/wealdtech/go-merkletree/v2"
	wealdblake2b "github.com/wealdtech/go-merkletree/v2/blake2b"
	"golang.org/x/crypto/blake2b"
)

// DigestLength is the width of every digest produced by a Hasher.
const DigestLength = 32

const (
	AlgorithmBlake2b256      = "blake2b-256"
	AlgorithmKeyedBlake2b256 = "blake2b-256-keyed"
	AlgorithmKeccak256       = "keccak256"
)

// Hasher is the hash capability shared by the leaf encoder and the merkle tree.
// Implementations must be safe for concurrent use.
type Hasher interface {
	Hash(data []byte) [DigestLength]byte
	Name() string
}

// New selects a Hasher by algorithm name. A non-empty key selects keyed
// BLAKE2b regardless of which BLAKE2b name was given.
func New(algorithm string, key []byte) (Hasher, error) {
	switch strings.ToLower(algorithm) {
	case "", AlgorithmBlake2b256, AlgorithmKeyedBlake2b256:
		if len(key) > 0 {
			return NewKeyedBlake2b256(key)
		}
		if strings.EqualFold(algorithm, AlgorithmKeyedBlake2b256) {
			return nil, fmt.Errorf("algorithm %s requires a key", AlgorithmKeyedBlake2b256)
		}
		return NewBlake2b256(), nil
	case AlgorithmKeccak256:
		if len(key) > 0 {
			return nil, fmt.Errorf("algorithm %s does not take a key", AlgorithmKeccak256)
		}
		return NewKeccak256(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
}

// SupportedAlgorithms lists the names accepted by New.
func SupportedAlgorithms() []string {
	return []string{AlgorithmBlake2b256, AlgorithmKeyedBlake2b256, AlgorithmKeccak256}
}

type hashTypeHasher struct {
	name string
	ht   merkletree.HashType
}

// NewBlake2b256 returns unkeyed BLAKE2b with a 32 byte digest, the hash used
// by the on-chain whitelist verifier.
func NewBlake2b256() Hasher {
	return &hashTypeHasher{name: AlgorithmBlake2b256, ht: wealdblake2b.New()}
}

// FromHashType adapts a go-merkletree hash type. Only 32 byte digests are accepted.
func FromHashType(name string, ht merkletree.HashType) (Hasher, error) {
	if ht == nil {
		return nil, fmt.Errorf("hash type cannot be nil")
	}
	if ht.HashLength() != DigestLength {
		return nil, fmt.Errorf("hash type %s has digest length %d, expected %d", name, ht.HashLength(), DigestLength)
	}
	return &hashTypeHasher{name: name, ht: ht}, nil
}

func (h *hashTypeHasher) Hash(data []byte) [DigestLength]byte {
	var out [DigestLength]byte
	copy(out[:], h.ht.Hash(data))
	return out
}

func (h *hashTypeHasher) Name() string {
	return h.name
}

type keyedBlake2b struct {
	key []byte
}

// NewKeyedBlake2b256 returns BLAKE2b-256 in keyed (MAC) mode. The key must be
// between 1 and 64 bytes.
func NewKeyedBlake2b256(key []byte) (Hasher, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, fmt.Errorf("blake2b key must be 1-%d bytes, got %d", blake2b.Size, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &keyedBlake2b{key: k}, nil
}

func (h *keyedBlake2b) Hash(data []byte) [DigestLength]byte {
	var out [DigestLength]byte
	// New256 only fails on an oversized key, which the constructor rejects.
	d, err := blake2b.New256(h.key)
	if err != nil {
		panic(fmt.Sprintf("blake2b: %v", err))
	}
	_, _ = d.Write(data)
	copy(out[:], d.Sum(nil))
	return out
}

func (h *keyedBlake2b) Name() string {
	return AlgorithmKeyedBlake2b256
}

type keccak256 struct{}

// NewKeccak256 returns the EVM keccak256 hash.
func NewKeccak256() Hasher {
	return keccak256{}
}

func (keccak256) Hash(data []byte) [DigestLength]byte {
	return crypto.Keccak256Hash(data)
}

func (keccak256) Name() string {
	return AlgorithmKeccak256
}

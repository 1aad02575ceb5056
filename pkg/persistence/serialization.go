package persistence

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/types"
)

// MarshalCommitment serializes a Commitment to JSON bytes.
// Digests are rendered as 0x-prefixed hex, the same form as the output document.
func MarshalCommitment(c *types.Commitment) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("cannot marshal nil Commitment")
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Commitment to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalCommitment deserializes a Commitment from JSON bytes.
func UnmarshalCommitment(data []byte) (*types.Commitment, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var c types.Commitment
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to Commitment: %w", err)
	}

	return &c, nil
}

// CloneCommitment returns a deep copy of c.
func CloneCommitment(c *types.Commitment) *types.Commitment {
	if c == nil {
		return nil
	}

	out := *c
	out.Addresses = append([]string(nil), c.Addresses...)
	if c.ContractInfo != nil {
		info := *c.ContractInfo
		out.ContractInfo = &info
	}
	if c.Proofs != nil {
		out.Proofs = make([]*types.AccountProof, len(c.Proofs))
		for i, p := range c.Proofs {
			if p == nil {
				continue
			}
			cp := *p
			cp.Proof = append(cp.Proof[:0:0], p.Proof...)
			out.Proofs[i] = &cp
		}
	}
	return &out
}

// SortCommitments orders commitments by creation time, then by root for ties.
func SortCommitments(commitments []*types.Commitment) {
	sort.Slice(commitments, func(i, j int) bool {
		if !commitments[i].CreatedAt.Equal(commitments[j].CreatedAt) {
			return commitments[i].CreatedAt.Before(commitments[j].CreatedAt)
		}
		return commitments[i].Root.Hex() < commitments[j].Root.Hex()
	})
}

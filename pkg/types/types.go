package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ContractInfo identifies the on-chain objects a commitment is published to.
// It is carried through to the output document and never interpreted.
type ContractInfo struct {
	PackageID   string `json:"packageId" yaml:"packageId"`
	TokenConfig string `json:"tokenConfig" yaml:"tokenConfig"`
}

// AccountProof is the inclusion proof for one whitelisted account, in the
// shape the on-chain verifier takes as call arguments.
type AccountProof struct {
	AccountID string        `json:"address"`
	Index     int           `json:"index"`
	LeafHash  common.Hash   `json:"leafHash"`
	Proof     []common.Hash `json:"proof"`
}

// Commitment is a merkle root over an ordered whitelist plus a proof for every entry.
type Commitment struct {
	ID             string          `json:"id"`
	CreatedAt      time.Time       `json:"timestamp"`
	HashAlgorithm  string          `json:"hashAlgorithm"`
	Root           common.Hash     `json:"merkleRoot"`
	TotalAddresses int             `json:"totalAddresses"`
	Addresses      []string        `json:"addresses"`
	Proofs         []*AccountProof `json:"proofs"`
	ContractInfo   *ContractInfo   `json:"contractInfo,omitempty"`
}

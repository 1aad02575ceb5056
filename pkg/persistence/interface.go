package persistence

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/types"
)

// ICommitmentPersistence stores generated whitelist commitments so proofs can
// be served after the run that produced them.
// All implementations must be thread-safe.
//
// The interface supports:
// - Commitment management (save, load, list, delete), keyed by merkle root
// - Active root tracking (which commitment is currently published on-chain)
// - Lifecycle management (close, health check)
type ICommitmentPersistence interface {
	// Commitment Management

	// SaveCommitment persists a commitment indexed by its merkle root.
	// Overwrites any existing commitment with the same root.
	SaveCommitment(commitment *types.Commitment) error

	// LoadCommitment retrieves a commitment by merkle root.
	// Returns nil if it doesn't exist, error only on storage failure.
	LoadCommitment(root common.Hash) (*types.Commitment, error)

	// ListCommitments returns all persisted commitments sorted by creation time (ascending).
	// Returns empty slice if none exist, error only on storage failure.
	ListCommitments() ([]*types.Commitment, error)

	// DeleteCommitment removes a commitment by merkle root.
	// Idempotent - returns nil if it doesn't exist.
	DeleteCommitment(root common.Hash) error

	// Active Root Tracking

	// SetActiveRoot records which commitment is currently published.
	// Setting the zero hash clears it.
	SetActiveRoot(root common.Hash) error

	// GetActiveRoot returns the active root, or the zero hash if none is set.
	GetActiveRoot() (common.Hash, error)

	// Lifecycle Management

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}

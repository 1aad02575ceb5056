package memory

import (
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/persistence"
	"github.com/Layr-Labs/whitelist-merkle-go/pkg/types"
)

// MemoryPersistence is an in-memory implementation of ICommitmentPersistence.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Deep copies data to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Commitment storage: root -> Commitment
	commitments map[common.Hash]*types.Commitment

	activeRoot common.Hash

	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
// Prints a loud warning to stderr since this should only be used for testing.
func NewMemoryPersistence() *MemoryPersistence {
	fmt.Fprintln(os.Stderr, "⚠️  WARNING: Using in-memory persistence - ALL COMMITMENTS WILL BE LOST ON EXIT")

	return &MemoryPersistence{
		commitments: make(map[common.Hash]*types.Commitment),
	}
}

var _ persistence.ICommitmentPersistence = (*MemoryPersistence)(nil)

// SaveCommitment persists a commitment.
func (m *MemoryPersistence) SaveCommitment(commitment *types.Commitment) error {
	if commitment == nil {
		return fmt.Errorf("cannot save nil Commitment")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	m.commitments[commitment.Root] = persistence.CloneCommitment(commitment)
	return nil
}

// LoadCommitment retrieves a commitment by root.
func (m *MemoryPersistence) LoadCommitment(root common.Hash) (*types.Commitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	c, exists := m.commitments[root]
	if !exists {
		return nil, nil // Not found is not an error
	}
	return persistence.CloneCommitment(c), nil
}

// ListCommitments returns all commitments sorted by creation time.
func (m *MemoryPersistence) ListCommitments() ([]*types.Commitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	result := make([]*types.Commitment, 0, len(m.commitments))
	for _, c := range m.commitments {
		result = append(result, persistence.CloneCommitment(c))
	}
	persistence.SortCommitments(result)

	return result, nil
}

// DeleteCommitment removes a commitment.
func (m *MemoryPersistence) DeleteCommitment(root common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	delete(m.commitments, root)
	return nil
}

// SetActiveRoot stores the active root.
func (m *MemoryPersistence) SetActiveRoot(root common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	m.activeRoot = root
	return nil
}

// GetActiveRoot retrieves the active root.
func (m *MemoryPersistence) GetActiveRoot() (common.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return common.Hash{}, fmt.Errorf("persistence layer is closed")
	}

	return m.activeRoot, nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck reports whether the store is still open.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}

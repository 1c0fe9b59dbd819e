package persistence

import (
	"encoding/json"

	"regime-bot-go/internal/models"
)

// memoryRepository keeps the serialized state in memory. It exists for
// tests and for backtests that want restart-recovery semantics without a
// database on disk. Storing the JSON bytes rather than the struct keeps its
// behavior identical to the Badger implementation.
type memoryRepository struct {
	data []byte
}

// NewMemoryRepository returns an in-memory StateRepository.
func NewMemoryRepository() StateRepository {
	return &memoryRepository{}
}

func (r *memoryRepository) SaveState(state *models.EngineState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	r.data = data
	return nil
}

func (r *memoryRepository) LoadState() (*models.EngineState, error) {
	if r.data == nil {
		return nil, nil
	}
	var state models.EngineState
	if err := json.Unmarshal(r.data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *memoryRepository) Close() error {
	return nil
}

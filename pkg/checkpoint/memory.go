package checkpoint

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/corvid-robotics/robobrain/internal/errors"
	"github.com/corvid-robotics/robobrain/pkg/state"
)

// MemoryStore is an in-process Store implementation for tests and local
// runs with no database attached. It also satisfies
// pkg/react.IdempotencyLedger directly, so a single value can back both
// roles in a test harness.
type MemoryStore struct {
	mu          sync.Mutex
	checkpoints map[string][]Checkpoint
	history     map[string][]ChatMessage
	effects     map[string]map[string]bool
}

// NewMemoryStore returns a ready-to-use in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checkpoints: map[string][]Checkpoint{},
		history:     map[string][]ChatMessage{},
		effects:     map[string]map[string]bool{},
	}
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, snapshot state.BrainState, stage string, metadata map[string]interface{}) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := Checkpoint{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Stage:     stage,
		Snapshot:  snapshot.Clone(),
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	m.checkpoints[sessionID] = append(m.checkpoints[sessionID], cp)
	return cp.ID, nil
}

func (m *MemoryStore) Load(_ context.Context, sessionID, checkpointID string) (*Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.checkpoints[sessionID]
	if len(list) == 0 {
		return nil, apperrors.New(apperrors.ErrorTypeNotFound, "no checkpoint found for session")
	}
	if checkpointID == "" {
		cp := list[len(list)-1]
		return &cp, nil
	}
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].ID == checkpointID {
			cp := list[i]
			return &cp, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrorTypeNotFound, "checkpoint id not found for session")
}

func (m *MemoryStore) List(_ context.Context, sessionID string, limit int) ([]Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append([]Checkpoint(nil), m.checkpoints[sessionID]...)
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *MemoryStore) AppendMessage(_ context.Context, sessionID, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history[sessionID] = append(m.history[sessionID], ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	return nil
}

func (m *MemoryStore) LoadHistory(_ context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append([]ChatMessage(nil), m.history[sessionID]...)
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *MemoryStore) MarkEffect(_ context.Context, sessionID, effectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.effects[sessionID] == nil {
		m.effects[sessionID] = map[string]bool{}
	}
	m.effects[sessionID][effectID] = true
	return nil
}

func (m *MemoryStore) EffectExecuted(_ context.Context, sessionID, effectID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.effects[sessionID][effectID], nil
}

// Seen satisfies pkg/react.IdempotencyLedger by treating the full
// "session:iter:op-index" effect id as its own session bucket, mirroring
// RedisLedger's key scheme without needing to parse it apart.
func (m *MemoryStore) Seen(ctx context.Context, effectID string) (bool, error) {
	return m.EffectExecuted(ctx, effectID, effectID)
}

// Record satisfies pkg/react.IdempotencyLedger.
func (m *MemoryStore) Record(ctx context.Context, effectID string) error {
	return m.MarkEffect(ctx, effectID, effectID)
}
